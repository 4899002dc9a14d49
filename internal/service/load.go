package service

import (
	"context"
	"errors"
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

// Locker provides mutual exclusion per entity key.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

type payMode int

const (
	payKeep payMode = iota
	payClear
	payOverride
	payAuto
)

// DriverPayInput says what an update does with driver pay. The zero value keeps it.
type DriverPayInput struct {
	mode   payMode
	amount decimal.Decimal
}

// KeepDriverPay leaves driver pay to the recalculation rules.
func KeepDriverPay() DriverPayInput { return DriverPayInput{} }

// ClearDriverPay resets driver pay and asks for it to be recomputed.
func ClearDriverPay() DriverPayInput { return DriverPayInput{mode: payClear} }

// OverrideDriverPay sets driver pay manually. A zero amount behaves like ClearDriverPay.
func OverrideDriverPay(amount decimal.Decimal) DriverPayInput {
	return DriverPayInput{mode: payOverride, amount: amount}
}

// AutoComputeDriverPay forces driver pay to be recomputed.
func AutoComputeDriverPay() DriverPayInput { return DriverPayInput{mode: payAuto} }

// LoadPatch is a partial update of a load. Nil fields are left unchanged;
// an empty string on a reference field unassigns it.
type LoadPatch struct {
	Status         *domain.LoadStatus
	DispatchStatus *domain.DispatchStatus

	DriverID     *string
	CoDriverID   *string
	TruckID      *string
	TrailerID    *string
	DispatcherID *string

	Revenue       *decimal.Decimal
	TotalMiles    *decimal.Decimal
	LoadedMiles   *decimal.Decimal
	EmptyMiles    *decimal.Decimal
	TotalExpenses *decimal.Decimal
	DriverPay     DriverPayInput

	Notes *string
}

func (p *LoadPatch) validate() error {
	v := validationErrors{}

	if p.Status != nil && !p.Status.Valid() {
		v.add("status", fmt.Sprintf("unknown status %q", *p.Status))
	}
	if p.DispatchStatus != nil && *p.DispatchStatus != "" && !p.DispatchStatus.Valid() {
		v.add("dispatchStatus", fmt.Sprintf("unknown dispatch status %q", *p.DispatchStatus))
	}

	amounts := map[string]*decimal.Decimal{
		"revenue":       p.Revenue,
		"totalMiles":    p.TotalMiles,
		"loadedMiles":   p.LoadedMiles,
		"emptyMiles":    p.EmptyMiles,
		"totalExpenses": p.TotalExpenses,
	}
	for field, amount := range amounts {
		if amount != nil && amount.IsNegative() {
			v.add(field, "must not be negative")
		}
	}
	if p.DriverPay.mode == payOverride && p.DriverPay.amount.IsNegative() {
		v.add("driverPay", "must not be negative")
	}

	return v.err()
}

// UpdateLoadResult is the outcome of a successful load update.
type UpdateLoadResult struct {
	Load     *domain.Load
	Warnings []string
}

// LoadService manages the load lifecycle: status transitions, derived
// financials and the side effects of both.
type LoadService struct {
	store      repository.Store
	locker     Locker
	perms      PermissionEvaluator
	settings   SettingsSource
	notifier   Notifier
	events     EventEmitter
	completion CompletionWorkflow
	pay        PayCalculator
	now        func() time.Time
}

// NewLoadService creates a new LoadService. notifier, events and completion may be nil.
func NewLoadService(
	store repository.Store,
	locker Locker,
	perms PermissionEvaluator,
	settings SettingsSource,
	notifier Notifier,
	events EventEmitter,
	completion CompletionWorkflow,
) *LoadService {
	return &LoadService{
		store:      store,
		locker:     locker,
		perms:      perms,
		settings:   settings,
		notifier:   notifier,
		events:     events,
		completion: completion,
		pay:        ComputePay,
		now:        time.Now,
	}
}

// GetLoad returns one load of the actor's organization.
func (s *LoadService) GetLoad(ctx context.Context, actor domain.Actor, loadID string) (*domain.Load, error) {
	if err := authorize(s.perms, actor, CapLoadsView); err != nil {
		return nil, err
	}
	load, err := s.store.Repositories().Loads.GetByID(ctx, actor.OrganizationID, loadID)
	if err != nil {
		return nil, lookupErr("load", err)
	}
	return load, nil
}

// ListHistory returns the status history of a load, oldest first.
func (s *LoadService) ListHistory(ctx context.Context, actor domain.Actor, loadID string) ([]*domain.StatusHistoryEntry, error) {
	if _, err := s.GetLoad(ctx, actor, loadID); err != nil {
		return nil, err
	}
	entries, err := s.store.Repositories().History.ListByLoad(ctx, loadID)
	if err != nil {
		return nil, internal(err)
	}
	return entries, nil
}

// DeleteLoad retires a load. Loads are never physically removed.
func (s *LoadService) DeleteLoad(ctx context.Context, actor domain.Actor, loadID string) error {
	if err := authorize(s.perms, actor, CapLoadsDelete); err != nil {
		return err
	}

	unlock, err := s.lock(ctx, loadID)
	if err != nil {
		return err
	}
	defer unlock()

	err = s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
		if _, err := tx.Loads.GetForUpdate(ctx, actor.OrganizationID, loadID); err != nil {
			return lookupErr("load", err)
		}
		return tx.Loads.SoftDelete(ctx, actor.OrganizationID, loadID, s.now())
	})
	if err != nil {
		return asServiceErr(err)
	}

	log.Printf("[LOAD] load %s deleted by %s", loadID, actor.UserID)
	return nil
}

// UpdateLoad validates and applies patch to a load, recomputes the derived
// financial fields, records status history and then dispatches side effects.
// Side-effect failures come back as warnings; the update itself stands.
func (s *LoadService) UpdateLoad(ctx context.Context, actor domain.Actor, loadID string, patch LoadPatch) (*UpdateLoadResult, error) {
	defer newrelic.FromContext(ctx).StartSegment("LoadService/UpdateLoad").End()

	if err := authorize(s.perms, actor, CapLoadsEdit); err != nil {
		return nil, err
	}
	if err := patch.validate(); err != nil {
		return nil, err
	}
	if patch.DriverPay.mode == payOverride && patch.DriverPay.amount.IsZero() {
		patch.DriverPay = ClearDriverPay()
	}

	unlock, err := s.lock(ctx, loadID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	out := newOutbox("load " + loadID)
	var updated *domain.Load

	err = s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
		existing, err := tx.Loads.GetForUpdate(ctx, actor.OrganizationID, loadID)
		if err != nil {
			return lookupErr("load", err)
		}

		u := &loadUpdate{
			svc:    s,
			tx:     tx,
			orgID:  actor.OrganizationID,
			prev:   existing,
			next:   existing.Clone(),
			patch:  &patch,
			actor:  actor,
			outbox: out,
		}
		if err := u.run(ctx); err != nil {
			return err
		}
		updated = u.next
		return nil
	})
	if err != nil {
		return nil, asServiceErr(err)
	}

	// Effects run after commit and outside the load lock.
	unlock()
	warnings := out.flush(ctx)

	return &UpdateLoadResult{Load: updated, Warnings: warnings}, nil
}

func (s *LoadService) lock(ctx context.Context, loadID string) (func(), error) {
	if s.locker == nil {
		return func() {}, nil
	}
	unlock, err := s.locker.Lock(ctx, "load:"+loadID)
	if err != nil {
		return nil, internal(fmt.Errorf("lock load %s: %w", loadID, err))
	}
	return unlock, nil
}

// loadUpdate carries the state of one UpdateLoad call inside its unit of work.
type loadUpdate struct {
	svc    *LoadService
	tx     repository.Repositories
	orgID  string
	prev   *domain.Load
	next   *domain.Load
	patch  *LoadPatch
	actor  domain.Actor
	outbox *outbox

	driver   *domain.Driver
	truck    *domain.Truck
	settings *domain.OrganizationSettings
}

func (u *loadUpdate) run(ctx context.Context) error {
	if err := u.resolveReferences(ctx); err != nil {
		return err
	}
	u.applyFields()

	if err := u.checkTransition(ctx); err != nil {
		return err
	}
	if err := u.recalculate(ctx); err != nil {
		return err
	}

	now := u.svc.now()
	if err := u.recordHistory(ctx, now); err != nil {
		return err
	}

	u.next.UpdatedAt = now
	if err := u.tx.Loads.Update(ctx, u.next); err != nil {
		return err
	}

	u.queueEffects()
	return nil
}

// resolveReferences checks every supplied reference against the organization.
func (u *loadUpdate) resolveReferences(ctx context.Context) error {
	p := u.patch

	if id := trimmed(p.DriverID); id != "" {
		d, err := u.tx.Drivers.GetByID(ctx, u.orgID, id)
		if err != nil {
			return lookupErr("driver", err)
		}
		u.driver = d
	}
	if id := trimmed(p.CoDriverID); id != "" {
		if _, err := u.tx.Drivers.GetByID(ctx, u.orgID, id); err != nil {
			return lookupErr("co-driver", err)
		}
	}
	if id := trimmed(p.TruckID); id != "" {
		t, err := u.tx.Trucks.GetByID(ctx, u.orgID, id)
		if err != nil {
			return lookupErr("truck", err)
		}
		u.truck = t
	}
	if id := trimmed(p.TrailerID); id != "" {
		if _, err := u.tx.Trailers.GetByID(ctx, u.orgID, id); err != nil {
			return lookupErr("trailer", err)
		}
	}
	if id := trimmed(p.DispatcherID); id != "" {
		if _, err := u.tx.Users.GetByID(ctx, u.orgID, id); err != nil {
			return lookupErr("dispatcher", err)
		}
	}
	return nil
}

func (u *loadUpdate) applyFields() {
	p, n := u.patch, u.next

	if p.Status != nil {
		n.Status = *p.Status
	}
	if p.DispatchStatus != nil {
		n.DispatchStatus = *p.DispatchStatus
	}

	setRef := func(dst *string, v *string) {
		if v != nil {
			*dst = strings.TrimSpace(*v)
		}
	}
	setRef(&n.DriverID, p.DriverID)
	setRef(&n.CoDriverID, p.CoDriverID)
	setRef(&n.TruckID, p.TruckID)
	setRef(&n.TrailerID, p.TrailerID)
	setRef(&n.DispatcherID, p.DispatcherID)

	setAmount := func(dst *decimal.Decimal, v *decimal.Decimal) {
		if v != nil {
			*dst = *v
		}
	}
	setAmount(&n.Revenue, p.Revenue)
	setAmount(&n.TotalMiles, p.TotalMiles)
	setAmount(&n.LoadedMiles, p.LoadedMiles)
	setAmount(&n.EmptyMiles, p.EmptyMiles)
	setAmount(&n.TotalExpenses, p.TotalExpenses)

	switch p.DriverPay.mode {
	case payOverride:
		n.DriverPay = p.DriverPay.amount
	case payClear:
		n.DriverPay = decimal.Zero
	}

	if p.Notes != nil {
		n.Notes = *p.Notes
	}
}

func (u *loadUpdate) statusChanged() bool {
	return u.next.Status != u.prev.Status
}

func (u *loadUpdate) dispatchStatusChanged() bool {
	return u.next.DispatchStatus != u.prev.DispatchStatus
}

// checkTransition enforces the cancelled terminal state and the delivery document gate.
func (u *loadUpdate) checkTransition(ctx context.Context) error {
	if !u.statusChanged() {
		return nil
	}

	if u.prev.Status.Terminal() {
		return precondition(fmt.Sprintf("Cannot change status of a %s load", u.prev.Status))
	}

	if u.next.Status != domain.LoadStatusDelivered {
		return nil
	}
	settings, err := u.orgSettings(ctx)
	if err != nil {
		return err
	}
	if !settings.StrictDelivery() {
		return nil
	}

	var missing []string
	if !u.prev.HasDocument(domain.DocumentTypeBOL) {
		missing = append(missing, "Bill of Lading (BOL)")
	}
	if !u.prev.HasDocument(domain.DocumentTypePOD) {
		missing = append(missing, "Proof of Delivery (POD)")
	}
	if len(missing) > 0 {
		return precondition("Cannot mark as Delivered. Missing documents: " + strings.Join(missing, ", "))
	}
	return nil
}

// recalculate derives revenue per mile, driver pay, net profit and the
// operating cost estimates from the effective values of this update.
func (u *loadUpdate) recalculate(ctx context.Context) error {
	p, prev, n := u.patch, u.prev, u.next

	if n.TotalMiles.IsPositive() {
		n.RevenuePerMile = decimal.NewNullDecimal(n.Revenue.Div(n.TotalMiles).Round(2))
	} else {
		n.RevenuePerMile = decimal.NullDecimal{}
	}

	payRecalculated := false
	if u.shouldRecalculatePay() {
		driver, err := u.effectiveDriver(ctx)
		if err != nil {
			return err
		}
		if driver != nil && driver.HasPayConfig() {
			n.DriverPay = u.svc.pay(
				PayConfig{PayType: driver.PayType, PayRate: driver.PayRate.Decimal},
				TripMetrics{
					TotalMiles:  n.TotalMiles,
					LoadedMiles: n.LoadedMiles,
					EmptyMiles:  n.EmptyMiles,
					Revenue:     n.Revenue,
				},
			)
			payRecalculated = true
		}
	}

	financialsChanged := p.Revenue != nil || p.TotalExpenses != nil ||
		p.DriverPay.mode != payKeep || payRecalculated
	if financialsChanged {
		n.NetProfit = n.Revenue.Sub(n.DriverPay).Sub(n.TotalExpenses).Round(2)
	}

	opCostTrigger := p.TotalMiles != nil || p.TruckID != nil ||
		p.LoadedMiles != nil || p.EmptyMiles != nil
	if (opCostTrigger || financialsChanged) && n.TotalMiles.IsPositive() {
		settings, err := u.orgSettings(ctx)
		if err != nil {
			return err
		}
		truck, err := u.effectiveTruck(ctx)
		if err != nil {
			return err
		}
		costs := EstimateOperatingCosts(n.TotalMiles, resolveMPG(truck, settings), settings)
		n.EstimatedFuelCost = decimal.NewNullDecimal(costs.Fuel)
		n.EstimatedMaintCost = decimal.NewNullDecimal(costs.Maintenance)
		n.EstimatedFixedCost = decimal.NewNullDecimal(costs.Fixed)
		n.EstimatedOpCost = decimal.NewNullDecimal(costs.Total)
	}

	if !prev.DriverPay.Equal(n.DriverPay) {
		log.Printf("[LOAD] load %s driver pay %s -> %s", n.ID, prev.DriverPay, n.DriverPay)
	}
	return nil
}

// shouldRecalculatePay keeps pay in sync with dispatch corrections without
// overwriting a manual override.
func (u *loadUpdate) shouldRecalculatePay() bool {
	p, prev, n := u.patch, u.prev, u.next

	if n.DriverID == "" || p.DriverPay.mode == payOverride {
		return false
	}

	switch {
	case n.DriverID != prev.DriverID:
		return true
	case n.DriverPay.IsZero():
		return true
	case p.DriverPay.mode == payClear || p.DriverPay.mode == payAuto:
		return true
	case p.Revenue != nil && !p.Revenue.Equal(prev.Revenue):
		return true
	case p.TotalMiles != nil && !p.TotalMiles.Equal(prev.TotalMiles):
		return true
	}
	return false
}

func (u *loadUpdate) effectiveDriver(ctx context.Context) (*domain.Driver, error) {
	if u.driver != nil && u.driver.ID == u.next.DriverID {
		return u.driver, nil
	}
	d, err := u.tx.Drivers.GetByID(ctx, u.orgID, u.next.DriverID)
	if errors.Is(err, repository.ErrNotFound) {
		// An earlier assignment whose driver has since been retired.
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	u.driver = d
	return d, nil
}

func (u *loadUpdate) effectiveTruck(ctx context.Context) (*domain.Truck, error) {
	if u.next.TruckID == "" {
		return nil, nil
	}
	if u.truck != nil && u.truck.ID == u.next.TruckID {
		return u.truck, nil
	}
	t, err := u.tx.Trucks.GetByID(ctx, u.orgID, u.next.TruckID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	u.truck = t
	return t, nil
}

func (u *loadUpdate) orgSettings(ctx context.Context) (*domain.OrganizationSettings, error) {
	if u.settings != nil {
		return u.settings, nil
	}
	settings, err := u.svc.settings.OrganizationSettings(ctx, u.orgID)
	if err != nil {
		return nil, err
	}
	u.settings = settings
	return settings, nil
}

func (u *loadUpdate) recordHistory(ctx context.Context, now time.Time) error {
	if u.statusChanged() {
		err := u.tx.History.Append(ctx, &domain.StatusHistoryEntry{
			ID:        uuid.New().String(),
			LoadID:    u.next.ID,
			Field:     domain.HistoryFieldStatus,
			OldValue:  string(u.prev.Status),
			NewValue:  string(u.next.Status),
			ActorID:   u.actor.UserID,
			Note:      fmt.Sprintf("Status changed from %s to %s", u.prev.Status, u.next.Status),
			CreatedAt: now,
		})
		if err != nil {
			return err
		}
	}

	if u.dispatchStatusChanged() {
		err := u.tx.History.Append(ctx, &domain.StatusHistoryEntry{
			ID:       uuid.New().String(),
			LoadID:   u.next.ID,
			Field:    domain.HistoryFieldDispatchStatus,
			OldValue: string(u.prev.DispatchStatus),
			NewValue: string(u.next.DispatchStatus),
			ActorID:  u.actor.UserID,
			Note: fmt.Sprintf("Dispatch status changed from %s to %s",
				orNone(string(u.prev.DispatchStatus)), orNone(string(u.next.DispatchStatus))),
			CreatedAt: now,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// queueEffects records what to dispatch once the update has committed.
func (u *loadUpdate) queueEffects() {
	s, load, prev := u.svc, u.next.Clone(), u.prev
	orgID, actorID := u.orgID, u.actor.UserID

	if prev.DriverID == "" && load.DriverID != "" {
		if s.notifier != nil {
			u.outbox.add("notify_assigned", "Driver assignment notification could not be sent", func(ctx context.Context) error {
				return s.notifier.NotifyAssigned(ctx, load.ID, load.DriverID)
			})
		}
		u.emit(EventLoadAssigned, map[string]interface{}{
			"loadId":   load.ID,
			"driverId": load.DriverID,
		})
		u.emit(EventDispatchUpdated, map[string]interface{}{
			"type":     "load_assigned",
			"loadId":   load.ID,
			"driverId": load.DriverID,
		})
	}

	if u.statusChanged() {
		if s.notifier != nil {
			u.outbox.add("notify_status_changed", "Status change notification could not be sent", func(ctx context.Context) error {
				return s.notifier.NotifyStatusChanged(ctx, load.ID, prev.Status, load.Status, actorID)
			})
		}
		u.emit(EventLoadStatusChanged, map[string]interface{}{
			"loadId":         load.ID,
			"organizationId": orgID,
			"previousStatus": prev.Status,
			"status":         load.Status,
		})
		u.emit(EventDispatchUpdated, map[string]interface{}{
			"type":   "load_status_changed",
			"loadId": load.ID,
			"status": load.Status,
		})

		if load.Status.Completes() && s.completion != nil {
			u.outbox.addWithWarnings("completion", func(ctx context.Context) ([]string, error) {
				return s.complete(ctx, orgID, load)
			})
		}
	}

	if u.dispatchStatusChanged() {
		u.emit(EventDispatchUpdated, map[string]interface{}{
			"type":           "dispatch_status_changed",
			"loadId":         load.ID,
			"dispatchStatus": load.DispatchStatus,
		})
	}
}

func (u *loadUpdate) emit(name string, payload map[string]interface{}) {
	events := u.svc.events
	if events == nil {
		return
	}
	u.outbox.add("emit_"+name, "Realtime event "+name+" could not be published", func(ctx context.Context) error {
		return events.Emit(ctx, name, payload)
	})
}

// complete runs the completion workflow and turns its problems into warnings.
func (s *LoadService) complete(ctx context.Context, orgID string, load *domain.Load) ([]string, error) {
	result, err := s.completion.HandleCompletion(ctx, orgID, load.ID)
	if err != nil {
		log.Printf("[LOAD] completion workflow failed for load %s: %v", load.ID, err)
		warnings := []string{"Completion workflow failed"}

		if load.Status == domain.LoadStatusDelivered && load.DriverID != "" {
			if ferr := markReadyForSettlement(ctx, s.store, orgID, load.ID, s.now()); ferr != nil {
				log.Printf("[LOAD] ready-for-settlement fallback failed for load %s: %v", load.ID, ferr)
			}
		}
		return warnings, nil
	}
	if !result.Success {
		return result.Errors, nil
	}
	return nil, nil
}

func trimmed(v *string) string {
	if v == nil {
		return ""
	}
	return strings.TrimSpace(*v)
}

func orNone(v string) string {
	if v == "" {
		return "none"
	}
	return v
}
