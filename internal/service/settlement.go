package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/shopspring/decimal"

	"freight/internal/domain"
	"freight/internal/repository"
)

// EntryInput describes a new ledger entry.
type EntryInput struct {
	Category        domain.EntryCategory // defaults to deduction
	DeductionType   domain.DeductionType // defaults to OTHER
	Description     string
	Amount          decimal.Decimal
	FuelEntryID     string
	DriverAdvanceID string
	LoadExpenseID   string
}

func (in *EntryInput) normalize() error {
	if in.Category == "" {
		in.Category = domain.EntryCategoryDeduction
	}
	if in.DeductionType == "" {
		in.DeductionType = domain.DeductionTypeOther
	}
	in.Description = strings.TrimSpace(in.Description)

	v := validationErrors{}
	if !in.Category.Valid() {
		v.add("category", fmt.Sprintf("unknown category %q", in.Category))
	}
	if !in.DeductionType.Valid() {
		v.add("deductionType", fmt.Sprintf("unknown deduction type %q", in.DeductionType))
	}
	if in.Description == "" {
		v.add("description", "is required")
	}
	if !in.Amount.IsPositive() {
		v.add("amount", "must be greater than zero")
	}
	return v.err()
}

// EntryPatch is a partial update of a ledger entry. Nil fields are left
// unchanged; an empty link ID removes the link.
type EntryPatch struct {
	Category        *domain.EntryCategory
	DeductionType   *domain.DeductionType
	Description     *string
	Amount          *decimal.Decimal
	FuelEntryID     *string
	DriverAdvanceID *string
	LoadExpenseID   *string
}

func (p *EntryPatch) validate() error {
	v := validationErrors{}
	if p.Category != nil && !p.Category.Valid() {
		v.add("category", fmt.Sprintf("unknown category %q", *p.Category))
	}
	if p.DeductionType != nil && !p.DeductionType.Valid() {
		v.add("deductionType", fmt.Sprintf("unknown deduction type %q", *p.DeductionType))
	}
	if p.Description != nil && strings.TrimSpace(*p.Description) == "" {
		v.add("description", "must not be empty")
	}
	if p.Amount != nil && !p.Amount.IsPositive() {
		v.add("amount", "must be greater than zero")
	}
	return v.err()
}

func (p *EntryPatch) applyTo(e *domain.LedgerEntry) {
	if p.Category != nil {
		e.Category = *p.Category
	}
	if p.DeductionType != nil {
		e.DeductionType = *p.DeductionType
	}
	if p.Description != nil {
		e.Description = strings.TrimSpace(*p.Description)
	}
	if p.Amount != nil {
		e.Amount = *p.Amount
	}
	if p.FuelEntryID != nil {
		e.FuelEntryID = strings.TrimSpace(*p.FuelEntryID)
	}
	if p.DriverAdvanceID != nil {
		e.DriverAdvanceID = strings.TrimSpace(*p.DriverAdvanceID)
	}
	if p.LoadExpenseID != nil {
		e.LoadExpenseID = strings.TrimSpace(*p.LoadExpenseID)
	}
}

// Totals is the aggregation of one settlement's ledger.
type Totals struct {
	GrossPay   decimal.Decimal
	Additions  decimal.Decimal
	Deductions decimal.Decimal
	Advances   decimal.Decimal
	NetPay     decimal.Decimal
}

// Statement is a settlement together with every line behind its totals.
type Statement struct {
	Settlement *domain.Settlement
	Additions  []*domain.LedgerEntry
	Deductions []*domain.LedgerEntry
	Advances   []*domain.Advance
	Totals     Totals
}

// SettlementService owns the settlement ledger. Every mutation writes one
// record and re-aggregates the settlement in the same unit of work, under
// a lock on the settlement.
type SettlementService struct {
	store  repository.Store
	locker Locker
	perms  PermissionEvaluator
	now    func() time.Time
}

// NewSettlementService creates a new SettlementService.
func NewSettlementService(store repository.Store, locker Locker, perms PermissionEvaluator) *SettlementService {
	return &SettlementService{
		store:  store,
		locker: locker,
		perms:  perms,
		now:    time.Now,
	}
}

// GetSettlement returns one settlement of the actor's organization.
func (s *SettlementService) GetSettlement(ctx context.Context, actor domain.Actor, settlementID string) (*domain.Settlement, error) {
	if err := authorize(s.perms, actor, CapSettlementsView); err != nil {
		return nil, err
	}
	st, err := s.store.Repositories().Settlements.GetByID(ctx, actor.OrganizationID, settlementID)
	if err != nil {
		return nil, lookupErr("settlement", err)
	}
	return st, nil
}

// ListDeductions returns the deduction entries of a settlement, newest first.
func (s *SettlementService) ListDeductions(ctx context.Context, actor domain.Actor, settlementID string) ([]*domain.LedgerEntry, error) {
	if _, err := s.GetSettlement(ctx, actor, settlementID); err != nil {
		return nil, err
	}
	entries, err := s.store.Repositories().Entries.ListBySettlement(ctx, settlementID, domain.EntryCategoryDeduction)
	if err != nil {
		return nil, internal(err)
	}
	return entries, nil
}

// ListAdvances returns the advances of a settlement, newest first.
func (s *SettlementService) ListAdvances(ctx context.Context, actor domain.Actor, settlementID string) ([]*domain.Advance, error) {
	if err := authorize(s.perms, actor, CapAdvancesView); err != nil {
		return nil, err
	}
	if _, err := s.store.Repositories().Settlements.GetByID(ctx, actor.OrganizationID, settlementID); err != nil {
		return nil, lookupErr("settlement", err)
	}
	advances, err := s.store.Repositories().Advances.ListBySettlement(ctx, settlementID)
	if err != nil {
		return nil, internal(err)
	}
	return advances, nil
}

// CreateEntry adds a ledger entry and re-aggregates the settlement.
func (s *SettlementService) CreateEntry(ctx context.Context, actor domain.Actor, settlementID string, in EntryInput) (*domain.LedgerEntry, error) {
	if err := authorize(s.perms, actor, CapSettlementsEdit); err != nil {
		return nil, err
	}
	if err := in.normalize(); err != nil {
		return nil, err
	}

	now := s.now()
	entry := &domain.LedgerEntry{
		ID:              uuid.New().String(),
		SettlementID:    settlementID,
		Category:        in.Category,
		DeductionType:   in.DeductionType,
		Description:     in.Description,
		Amount:          in.Amount,
		FuelEntryID:     strings.TrimSpace(in.FuelEntryID),
		DriverAdvanceID: strings.TrimSpace(in.DriverAdvanceID),
		LoadExpenseID:   strings.TrimSpace(in.LoadExpenseID),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	_, err := s.mutate(ctx, actor, settlementID, "create entry", func(ctx context.Context, tx repository.Repositories) error {
		return tx.Entries.Create(ctx, entry)
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// UpdateEntry changes an entry of the settlement and re-aggregates it.
func (s *SettlementService) UpdateEntry(ctx context.Context, actor domain.Actor, settlementID, entryID string, patch EntryPatch) (*domain.LedgerEntry, error) {
	if err := authorize(s.perms, actor, CapSettlementsEdit); err != nil {
		return nil, err
	}
	if err := patch.validate(); err != nil {
		return nil, err
	}

	var entry *domain.LedgerEntry
	_, err := s.mutate(ctx, actor, settlementID, "update entry", func(ctx context.Context, tx repository.Repositories) error {
		e, err := tx.Entries.GetByID(ctx, settlementID, entryID)
		if err != nil {
			return lookupErr("entry", err)
		}
		patch.applyTo(e)
		e.UpdatedAt = s.now()
		if err := tx.Entries.Update(ctx, e); err != nil {
			return err
		}
		entry = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// DeleteEntry removes an entry of the settlement and re-aggregates it.
func (s *SettlementService) DeleteEntry(ctx context.Context, actor domain.Actor, settlementID, entryID string) (*domain.Settlement, error) {
	if err := authorize(s.perms, actor, CapSettlementsEdit); err != nil {
		return nil, err
	}
	return s.mutate(ctx, actor, settlementID, "delete entry", func(ctx context.Context, tx repository.Repositories) error {
		if err := tx.Entries.Delete(ctx, settlementID, entryID); err != nil {
			return lookupErr("entry", err)
		}
		return nil
	})
}

// CreateAdvance records a cash advance against the settlement's driver.
func (s *SettlementService) CreateAdvance(ctx context.Context, actor domain.Actor, settlementID string, amount decimal.Decimal, notes string) (*domain.Advance, error) {
	if err := authorize(s.perms, actor, CapAdvancesCreate); err != nil {
		return nil, err
	}
	if !amount.IsPositive() {
		return nil, validationErrors{"amount": "must be greater than zero"}.err()
	}

	var advance *domain.Advance
	_, err := s.mutate(ctx, actor, settlementID, "create advance", func(ctx context.Context, tx repository.Repositories) error {
		settlement, err := tx.Settlements.GetByID(ctx, actor.OrganizationID, settlementID)
		if err != nil {
			return err
		}
		advance = &domain.Advance{
			ID:           uuid.New().String(),
			SettlementID: settlementID,
			DriverID:     settlement.DriverID,
			Amount:       amount,
			Notes:        strings.TrimSpace(notes),
			CreatedAt:    s.now(),
		}
		return tx.Advances.Create(ctx, advance)
	})
	if err != nil {
		return nil, err
	}
	return advance, nil
}

// DeleteAdvance removes an advance and re-aggregates the settlement.
func (s *SettlementService) DeleteAdvance(ctx context.Context, actor domain.Actor, settlementID, advanceID string) (*domain.Settlement, error) {
	if err := authorize(s.perms, actor, CapAdvancesDelete); err != nil {
		return nil, err
	}
	return s.mutate(ctx, actor, settlementID, "delete advance", func(ctx context.Context, tx repository.Repositories) error {
		if err := tx.Advances.Delete(ctx, settlementID, advanceID); err != nil {
			return lookupErr("advance", err)
		}
		return nil
	})
}

// Recalculate re-aggregates a settlement without changing any record.
func (s *SettlementService) Recalculate(ctx context.Context, actor domain.Actor, settlementID string) (*domain.Settlement, error) {
	if err := authorize(s.perms, actor, CapSettlementsEdit); err != nil {
		return nil, err
	}
	return s.mutate(ctx, actor, settlementID, "recalculate", func(context.Context, repository.Repositories) error {
		return nil
	})
}

// Statement loads a settlement with all of its lines for display or export.
func (s *SettlementService) Statement(ctx context.Context, actor domain.Actor, settlementID string) (*Statement, error) {
	settlement, err := s.GetSettlement(ctx, actor, settlementID)
	if err != nil {
		return nil, err
	}

	repos := s.store.Repositories()
	lines, err := loadLines(ctx, repos, settlementID)
	if err != nil {
		return nil, internal(err)
	}
	lines.Settlement = settlement
	lines.Totals = computeTotals(settlement.GrossPay, lines)
	return lines, nil
}

// mutate runs fn and the re-aggregation of the settlement as one unit of work.
func (s *SettlementService) mutate(
	ctx context.Context,
	actor domain.Actor,
	settlementID string,
	op string,
	fn func(ctx context.Context, tx repository.Repositories) error,
) (*domain.Settlement, error) {
	defer newrelic.FromContext(ctx).StartSegment("SettlementService/" + op).End()

	unlock, err := s.lock(ctx, settlementID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var result *domain.Settlement
	err = s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
		settlement, err := tx.Settlements.GetForUpdate(ctx, actor.OrganizationID, settlementID)
		if err != nil {
			return lookupErr("settlement", err)
		}

		if err := fn(ctx, tx); err != nil {
			return err
		}

		totals, err := reaggregate(ctx, tx, settlement)
		if err != nil {
			return internal(fmt.Errorf("re-aggregate settlement %s: %w", settlementID, err))
		}

		settlement.Deductions = totals.Deductions
		settlement.NetPay = totals.NetPay
		result = settlement
		return nil
	})
	if err != nil {
		if CodeOf(err) == CodeInternal {
			log.Printf("[SETTLEMENT] %s on settlement %s failed: %v", op, settlementID, err)
		}
		return nil, asServiceErr(err)
	}

	log.Printf("[SETTLEMENT] %s on settlement %s: deductions=%s net_pay=%s",
		op, settlementID, result.Deductions.StringFixed(2), result.NetPay.StringFixed(2))
	return result, nil
}

func (s *SettlementService) lock(ctx context.Context, settlementID string) (func(), error) {
	if s.locker == nil {
		return func() {}, nil
	}
	unlock, err := s.locker.Lock(ctx, "settlement:"+settlementID)
	if err != nil {
		return nil, internal(fmt.Errorf("lock settlement %s: %w", settlementID, err))
	}
	return unlock, nil
}

// reaggregate recomputes deductions and net pay from every record of the
// settlement and persists both. netPay may go negative when deductions and
// advances exceed earnings.
func reaggregate(ctx context.Context, tx repository.Repositories, settlement *domain.Settlement) (Totals, error) {
	lines, err := loadLines(ctx, tx, settlement.ID)
	if err != nil {
		return Totals{}, err
	}
	totals := computeTotals(settlement.GrossPay, lines)
	if err := tx.Settlements.UpdateTotals(ctx, settlement.ID, totals.Deductions, totals.NetPay); err != nil {
		return Totals{}, err
	}
	return totals, nil
}

func loadLines(ctx context.Context, repos repository.Repositories, settlementID string) (*Statement, error) {
	deductions, err := repos.Entries.ListBySettlement(ctx, settlementID, domain.EntryCategoryDeduction)
	if err != nil {
		return nil, err
	}
	additions, err := repos.Entries.ListBySettlement(ctx, settlementID, domain.EntryCategoryAddition)
	if err != nil {
		return nil, err
	}
	advances, err := repos.Advances.ListBySettlement(ctx, settlementID)
	if err != nil {
		return nil, err
	}
	return &Statement{Additions: additions, Deductions: deductions, Advances: advances}, nil
}

func computeTotals(grossPay decimal.Decimal, lines *Statement) Totals {
	t := Totals{GrossPay: grossPay}
	for _, e := range lines.Deductions {
		t.Deductions = t.Deductions.Add(e.Amount)
	}
	for _, e := range lines.Additions {
		t.Additions = t.Additions.Add(e.Amount)
	}
	for _, a := range lines.Advances {
		t.Advances = t.Advances.Add(a.Amount)
	}
	t.NetPay = grossPay.Add(t.Additions).Sub(t.Deductions).Sub(t.Advances).Round(2)
	return t
}
