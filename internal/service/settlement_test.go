package service_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freight/internal/domain"
	"freight/internal/lock"
	"freight/internal/repository/memory"
	"freight/internal/service"
)

func newSettlementFixture(t *testing.T) (*memory.Store, *service.SettlementService) {
	t.Helper()

	store := memory.NewStore()
	store.AddSettlement(&domain.Settlement{
		ID: "S1", OrganizationID: orgA, DriverID: "D1",
		Status: domain.SettlementStatusPending, GrossPay: dec("2000"), NetPay: dec("2000"),
	})
	store.AddSettlement(&domain.Settlement{
		ID: "S2", OrganizationID: orgA, DriverID: "D2",
		Status: domain.SettlementStatusPending, GrossPay: dec("1000"), NetPay: dec("1000"),
	})
	store.AddSettlement(&domain.Settlement{
		ID: "SX", OrganizationID: orgB, DriverID: "DX",
		Status: domain.SettlementStatusPending, GrossPay: dec("500"), NetPay: dec("500"),
	})

	return store, service.NewSettlementService(store, lock.NewArena(), service.DefaultPermissions())
}

func deduction(description, amount string) service.EntryInput {
	return service.EntryInput{
		Category:      domain.EntryCategoryDeduction,
		DeductionType: domain.DeductionTypeOther,
		Description:   description,
		Amount:        dec(amount),
	}
}

// ──────────────────────────────────────────────
// 1. NET PAY INVARIANT
// ──────────────────────────────────────────────

func TestSettlement_NetPayInvariant(t *testing.T) {
	t.Parallel()

	store, svc := newSettlementFixture(t)
	ctx := context.Background()

	_, err := svc.CreateEntry(ctx, accountant, "S1", service.EntryInput{
		Category: domain.EntryCategoryAddition, Description: "Detention", Amount: dec("100"),
	})
	require.NoError(t, err)
	_, err = svc.CreateEntry(ctx, accountant, "S1", deduction("Insurance", "50"))
	require.NoError(t, err)
	escrow, err := svc.CreateEntry(ctx, accountant, "S1", deduction("Escrow", "75"))
	require.NoError(t, err)
	_, err = svc.CreateAdvance(ctx, accountant, "S1", dec("200"), "Fuel stop")
	require.NoError(t, err)

	s := store.Settlement("S1")
	assertDec(t, "1775", s.NetPay)
	assertDec(t, "125", s.Deductions)

	updated, err := svc.DeleteEntry(ctx, accountant, "S1", escrow.ID)
	require.NoError(t, err)
	assertDec(t, "1850", updated.NetPay)
	assertDec(t, "50", updated.Deductions)

	s = store.Settlement("S1")
	assertDec(t, "1850", s.NetPay)
	assertDec(t, "50", s.Deductions)
}

func TestSettlement_NetPayMayGoNegative(t *testing.T) {
	t.Parallel()

	store, svc := newSettlementFixture(t)
	_, err := svc.CreateEntry(context.Background(), accountant, "S2", deduction("Truck repair", "1500"))
	require.NoError(t, err)

	assertDec(t, "-500", store.Settlement("S2").NetPay)
}

func TestSettlement_UpdateEntryReaggregates(t *testing.T) {
	t.Parallel()

	store, svc := newSettlementFixture(t)
	ctx := context.Background()

	entry, err := svc.CreateEntry(ctx, accountant, "S1", deduction("Permits", "75"))
	require.NoError(t, err)

	updated, err := svc.UpdateEntry(ctx, accountant, "S1", entry.ID, service.EntryPatch{Amount: decPtr("25")})
	require.NoError(t, err)
	assertDec(t, "25", updated.Amount)
	assert.Equal(t, "Permits", updated.Description, "unpatched fields kept")
	assertDec(t, "1975", store.Settlement("S1").NetPay)

	addition := domain.EntryCategoryAddition
	_, err = svc.UpdateEntry(ctx, accountant, "S1", entry.ID, service.EntryPatch{Category: &addition})
	require.NoError(t, err)

	s := store.Settlement("S1")
	assert.True(t, s.Deductions.IsZero())
	assertDec(t, "2025", s.NetPay)
}

func TestSettlement_UpdateEntryClearsLinks(t *testing.T) {
	t.Parallel()

	_, svc := newSettlementFixture(t)
	ctx := context.Background()

	in := deduction("Fuel advance", "120")
	in.DeductionType = domain.DeductionTypeFuelAdvance
	in.FuelEntryID = "fuel-9"
	entry, err := svc.CreateEntry(ctx, accountant, "S1", in)
	require.NoError(t, err)
	assert.Equal(t, "fuel-9", entry.FuelEntryID)

	updated, err := svc.UpdateEntry(ctx, accountant, "S1", entry.ID, service.EntryPatch{FuelEntryID: strPtr("")})
	require.NoError(t, err)
	assert.Empty(t, updated.FuelEntryID)
}

func TestSettlement_AdvancesAndRecalculate(t *testing.T) {
	t.Parallel()

	store, svc := newSettlementFixture(t)
	ctx := context.Background()

	advance, err := svc.CreateAdvance(ctx, accountant, "S2", dec("300"), "")
	require.NoError(t, err)
	assert.Equal(t, "D2", advance.DriverID)
	assertDec(t, "700", store.Settlement("S2").NetPay)

	advances, err := svc.ListAdvances(ctx, accountant, "S2")
	require.NoError(t, err)
	require.Len(t, advances, 1)

	_, err = svc.DeleteAdvance(ctx, accountant, "S2", advance.ID)
	require.NoError(t, err)
	assertDec(t, "1000", store.Settlement("S2").NetPay)

	// Totals written outside the ledger are corrected on demand.
	store.AddEntry(&domain.LedgerEntry{
		ID: "seeded", SettlementID: "S2", Category: domain.EntryCategoryDeduction,
		DeductionType: domain.DeductionTypeOther, Description: "imported", Amount: dec("40"),
	})
	s, err := svc.Recalculate(ctx, accountant, "S2")
	require.NoError(t, err)
	assertDec(t, "40", s.Deductions)
	assertDec(t, "960", s.NetPay)
}

// ──────────────────────────────────────────────
// 2. LISTING
// ──────────────────────────────────────────────

func TestSettlement_ListDeductionsNewestFirst(t *testing.T) {
	t.Parallel()

	_, svc := newSettlementFixture(t)
	ctx := context.Background()

	for _, d := range []string{"first", "second", "third"} {
		_, err := svc.CreateEntry(ctx, accountant, "S1", deduction(d, "10"))
		require.NoError(t, err)
	}
	_, err := svc.CreateEntry(ctx, accountant, "S1", service.EntryInput{
		Category: domain.EntryCategoryAddition, Description: "bonus", Amount: dec("10"),
	})
	require.NoError(t, err)

	entries, err := svc.ListDeductions(ctx, dispatcher, "S1")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "third", entries[0].Description)
	assert.Equal(t, "first", entries[2].Description)
	for _, e := range entries {
		assert.Equal(t, domain.EntryCategoryDeduction, e.Category)
	}
}

func TestSettlement_StatementTotals(t *testing.T) {
	t.Parallel()

	_, svc := newSettlementFixture(t)
	ctx := context.Background()

	_, err := svc.CreateEntry(ctx, accountant, "S1", service.EntryInput{
		Category: domain.EntryCategoryAddition, Description: "Layover", Amount: dec("100"),
	})
	require.NoError(t, err)
	_, err = svc.CreateEntry(ctx, accountant, "S1", deduction("Insurance", "125"))
	require.NoError(t, err)
	_, err = svc.CreateAdvance(ctx, accountant, "S1", dec("200"), "")
	require.NoError(t, err)

	st, err := svc.Statement(ctx, accountant, "S1")
	require.NoError(t, err)
	assertDec(t, "2000", st.Totals.GrossPay)
	assertDec(t, "100", st.Totals.Additions)
	assertDec(t, "125", st.Totals.Deductions)
	assertDec(t, "200", st.Totals.Advances)
	assertDec(t, "1775", st.Totals.NetPay)
	assert.Len(t, st.Additions, 1)
	assert.Len(t, st.Deductions, 1)
	assert.Len(t, st.Advances, 1)
}

// ──────────────────────────────────────────────
// 3. FAILURES
// ──────────────────────────────────────────────

func TestSettlement_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   service.EntryInput
	}{
		{"zero amount", deduction("Insurance", "0")},
		{"negative amount", deduction("Insurance", "-10")},
		{"missing description", deduction("   ", "10")},
		{"unknown category", service.EntryInput{Category: "bonus", Description: "x", Amount: dec("1")}},
		{"unknown deduction type", service.EntryInput{DeductionType: "TOLLS", Description: "x", Amount: dec("1")}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			store, svc := newSettlementFixture(t)
			_, err := svc.CreateEntry(context.Background(), accountant, "S1", tt.in)
			requireCode(t, err, service.CodeValidation)
			assert.Equal(t, int32(0), store.UpdateTotalsCalls)
		})
	}
}

func TestSettlement_UpdateValidation(t *testing.T) {
	t.Parallel()

	_, svc := newSettlementFixture(t)
	ctx := context.Background()
	entry, err := svc.CreateEntry(ctx, accountant, "S1", deduction("Insurance", "10"))
	require.NoError(t, err)

	_, err = svc.UpdateEntry(ctx, accountant, "S1", entry.ID, service.EntryPatch{Amount: decPtr("0")})
	requireCode(t, err, service.CodeValidation)

	_, err = svc.UpdateEntry(ctx, accountant, "S1", entry.ID, service.EntryPatch{Description: strPtr("")})
	requireCode(t, err, service.CodeValidation)

	_, err = svc.CreateAdvance(ctx, accountant, "S1", dec("0"), "")
	requireCode(t, err, service.CodeValidation)
}

func TestSettlement_NotFound(t *testing.T) {
	t.Parallel()

	_, svc := newSettlementFixture(t)
	ctx := context.Background()

	_, err := svc.CreateEntry(ctx, accountant, "SX", deduction("Insurance", "10"))
	requireCode(t, err, service.CodeNotFound)

	_, err = svc.CreateEntry(ctx, accountant, "missing", deduction("Insurance", "10"))
	requireCode(t, err, service.CodeNotFound)

	entry, err := svc.CreateEntry(ctx, accountant, "S2", deduction("Insurance", "10"))
	require.NoError(t, err)

	_, err = svc.UpdateEntry(ctx, accountant, "S1", entry.ID, service.EntryPatch{Amount: decPtr("5")})
	requireCode(t, err, service.CodeNotFound)

	_, err = svc.DeleteEntry(ctx, accountant, "S1", entry.ID)
	requireCode(t, err, service.CodeNotFound)

	_, err = svc.DeleteAdvance(ctx, accountant, "S1", "nope")
	requireCode(t, err, service.CodeNotFound)
}

func TestSettlement_Permissions(t *testing.T) {
	t.Parallel()

	_, svc := newSettlementFixture(t)
	ctx := context.Background()

	_, err := svc.CreateEntry(ctx, dispatcher, "S1", deduction("Insurance", "10"))
	requireCode(t, err, service.CodeForbidden)

	_, err = svc.ListDeductions(ctx, domain.Actor{UserID: "d", OrganizationID: orgA, Role: domain.RoleDriver}, "S1")
	requireCode(t, err, service.CodeForbidden)

	_, err = svc.ListDeductions(ctx, domain.Actor{}, "S1")
	requireCode(t, err, service.CodeUnauthorized)
}

func TestSettlement_AggregationFailureAbortsMutation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		inject func(*memory.Store)
	}{
		{"totals write fails", func(s *memory.Store) { s.UpdateTotalsError = errCollaborator }},
		{"entry listing fails", func(s *memory.Store) { s.ListEntriesError = errCollaborator }},
		{"advance listing fails", func(s *memory.Store) { s.ListAdvancesError = errCollaborator }},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			store, svc := newSettlementFixture(t)
			tt.inject(store)

			_, err := svc.CreateEntry(context.Background(), accountant, "S1", deduction("Insurance", "10"))
			requireCode(t, err, service.CodeInternal)

			store.UpdateTotalsError = nil
			store.ListEntriesError = nil
			store.ListAdvancesError = nil

			entries, err := svc.ListDeductions(context.Background(), accountant, "S1")
			require.NoError(t, err)
			assert.Empty(t, entries, "entry write must be rolled back")
			assertDec(t, "2000", store.Settlement("S1").NetPay)
			assert.Equal(t, int32(1), store.Rollbacks)
		})
	}
}

// ──────────────────────────────────────────────
// 4. CONCURRENCY
// ──────────────────────────────────────────────

func TestSettlement_ConcurrentCreatesAreNotLost(t *testing.T) {
	t.Parallel()

	store, svc := newSettlementFixture(t)
	const n = 40

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			settlementID := "S1"
			if i%2 == 1 {
				settlementID = "S2"
			}
			_, err := svc.CreateEntry(context.Background(), accountant, settlementID, deduction(fmt.Sprintf("line %d", i), "10"))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	s1 := store.Settlement("S1")
	assertDec(t, "200", s1.Deductions)
	assertDec(t, "1800", s1.NetPay)

	s2 := store.Settlement("S2")
	assertDec(t, "200", s2.Deductions)
	assertDec(t, "800", s2.NetPay)
}

func TestSettlement_ConcurrentWithoutServiceLock(t *testing.T) {
	t.Parallel()

	// Row locks taken by the unit of work alone must serialize the ledger.
	store, _ := newSettlementFixture(t)
	svc := service.NewSettlementService(store, nil, service.DefaultPermissions())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.CreateEntry(context.Background(), accountant, "S1", deduction("line", "5"))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assertDec(t, "100", store.Settlement("S1").Deductions)
	assertDec(t, "1900", store.Settlement("S1").NetPay)
}
