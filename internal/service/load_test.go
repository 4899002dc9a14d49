package service_test

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freight/internal/domain"
	"freight/internal/lock"
	"freight/internal/repository/memory"
	"freight/internal/service"
)

type loadFixture struct {
	store      *memory.Store
	notifier   *recordingNotifier
	events     *recordingEmitter
	completion *stubCompletion
	svc        *service.LoadService
}

// newLoadFixture seeds org A with driver D1 (0.50/mile) holding load L1,
// an unassigned load L2, and references in both organizations.
func newLoadFixture(t *testing.T) *loadFixture {
	t.Helper()

	store := memory.NewStore()
	store.AddDriver(&domain.Driver{
		ID: "D1", OrganizationID: orgA, Name: "Dana", Status: domain.DriverStatusActive,
		PayType: domain.PayTypePerMile, PayRate: decimal.NewNullDecimal(dec("0.5")),
	})
	store.AddDriver(&domain.Driver{
		ID: "D2", OrganizationID: orgA, Name: "Eli", Status: domain.DriverStatusActive,
		PayType: domain.PayTypePerLoad, PayRate: decimal.NewNullDecimal(dec("650")),
	})
	store.AddDriver(&domain.Driver{
		ID: "DX", OrganizationID: orgB, Name: "Other", Status: domain.DriverStatusActive,
		PayType: domain.PayTypePerLoad, PayRate: decimal.NewNullDecimal(dec("100")),
	})
	store.AddTruck(&domain.Truck{ID: "T1", OrganizationID: orgA, AverageMPG: decimal.NewNullDecimal(dec("8"))})
	store.AddTrailer(&domain.Trailer{ID: "TR1", OrganizationID: orgA})
	store.AddTrailer(&domain.Trailer{ID: "TRX", OrganizationID: orgB})
	store.AddUser(&domain.User{ID: "user-dispatch", OrganizationID: orgA, Role: domain.RoleDispatcher, Active: true})

	store.AddLoad(&domain.Load{
		ID: "L1", OrganizationID: orgA, CustomerID: "C1",
		Status: domain.LoadStatusAssigned, DriverID: "D1",
		Revenue: dec("3000"), TotalMiles: dec("1500"), DriverPay: dec("800"),
	})
	store.AddLoad(&domain.Load{
		ID: "L2", OrganizationID: orgA, CustomerID: "C1",
		Status: domain.LoadStatusPending,
		Revenue: dec("2400"), TotalMiles: dec("1200"),
	})

	f := &loadFixture{
		store:      store,
		notifier:   &recordingNotifier{},
		events:     &recordingEmitter{},
		completion: &stubCompletion{},
	}
	f.svc = service.NewLoadService(
		store,
		lock.NewArena(),
		service.DefaultPermissions(),
		service.StoreSettings{Repo: store.Repositories().Settings},
		f.notifier,
		f.events,
		f.completion,
	)
	return f
}

func (f *loadFixture) strict() {
	f.store.SetSettings(&domain.OrganizationSettings{
		OrganizationID: orgA,
		ValidationMode: domain.ValidationModeStrict,
		RequirePOD:     true,
	})
}

func (f *loadFixture) history(t *testing.T, loadID string) []*domain.StatusHistoryEntry {
	t.Helper()
	entries, err := f.svc.ListHistory(context.Background(), dispatcher, loadID)
	require.NoError(t, err)
	return entries
}

func statusPtr(s domain.LoadStatus) *domain.LoadStatus {
	return &s
}

// ──────────────────────────────────────────────
// 1. DERIVED FINANCIALS
// ──────────────────────────────────────────────

func TestUpdateLoad_RevenuePerMile(t *testing.T) {
	t.Parallel()

	f := newLoadFixture(t)
	ctx := context.Background()

	res, err := f.svc.UpdateLoad(ctx, dispatcher, "L1", service.LoadPatch{
		Revenue:    decPtr("5000"),
		TotalMiles: decPtr("2000"),
	})
	require.NoError(t, err)
	require.True(t, res.Load.RevenuePerMile.Valid)
	assertDec(t, "2.50", res.Load.RevenuePerMile.Decimal)

	res, err = f.svc.UpdateLoad(ctx, dispatcher, "L1", service.LoadPatch{TotalMiles: decPtr("0")})
	require.NoError(t, err)
	assert.False(t, res.Load.RevenuePerMile.Valid, "revenue per mile must be unset without miles")
}

func TestUpdateLoad_RevenuePerMileRounding(t *testing.T) {
	t.Parallel()

	f := newLoadFixture(t)
	res, err := f.svc.UpdateLoad(context.Background(), dispatcher, "L1", service.LoadPatch{
		Revenue:    decPtr("1000"),
		TotalMiles: decPtr("3"),
	})
	require.NoError(t, err)
	assertDec(t, "333.33", res.Load.RevenuePerMile.Decimal)
}

func TestUpdateLoad_PayRecalculationTriggers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		patch   service.LoadPatch
		wantPay string
	}{
		{
			name:    "miles change recomputes pay",
			patch:   service.LoadPatch{TotalMiles: decPtr("2000")},
			wantPay: "1000",
		},
		{
			name:    "notes change keeps pay",
			patch:   service.LoadPatch{Notes: strPtr("call before arrival")},
			wantPay: "800",
		},
		{
			name: "explicit override wins over miles change",
			patch: service.LoadPatch{
				TotalMiles: decPtr("2000"),
				DriverPay:  service.OverrideDriverPay(dec("900")),
			},
			wantPay: "900",
		},
		{
			name:    "revenue change recomputes pay",
			patch:   service.LoadPatch{Revenue: decPtr("3500")},
			wantPay: "750",
		},
		{
			name:    "same revenue keeps pay",
			patch:   service.LoadPatch{Revenue: decPtr("3000")},
			wantPay: "800",
		},
		{
			name:    "cleared pay is recomputed",
			patch:   service.LoadPatch{DriverPay: service.ClearDriverPay()},
			wantPay: "750",
		},
		{
			name:    "zero override is treated as cleared",
			patch:   service.LoadPatch{DriverPay: service.OverrideDriverPay(decimal.Zero)},
			wantPay: "750",
		},
		{
			name:    "forced recomputation",
			patch:   service.LoadPatch{DriverPay: service.AutoComputeDriverPay()},
			wantPay: "750",
		},
		{
			name:    "driver change recomputes with the new driver",
			patch:   service.LoadPatch{DriverID: strPtr("D2")},
			wantPay: "650",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newLoadFixture(t)
			res, err := f.svc.UpdateLoad(context.Background(), dispatcher, "L1", tt.patch)
			require.NoError(t, err)
			assertDec(t, tt.wantPay, res.Load.DriverPay)
			assertDec(t, tt.wantPay, f.store.Load("L1").DriverPay, "persisted pay")
		})
	}
}

func TestUpdateLoad_UnassignedLoadHasNoPay(t *testing.T) {
	t.Parallel()

	f := newLoadFixture(t)
	res, err := f.svc.UpdateLoad(context.Background(), dispatcher, "L2", service.LoadPatch{TotalMiles: decPtr("1300")})
	require.NoError(t, err)
	assert.True(t, res.Load.DriverPay.IsZero())
}

func TestUpdateLoad_NetProfitAndOperatingCosts(t *testing.T) {
	t.Parallel()

	f := newLoadFixture(t)
	f.store.SetSettings(&domain.OrganizationSettings{
		OrganizationID:  orgA,
		ValidationMode:  domain.ValidationModeFlexible,
		FuelPrice:       dec("4"),
		MaintenanceCPM:  dec("0.2"),
		FixedCostPerDay: dec("100"),
	})

	res, err := f.svc.UpdateLoad(context.Background(), dispatcher, "L1", service.LoadPatch{
		TruckID:       strPtr("T1"),
		TotalMiles:    decPtr("1000"),
		TotalExpenses: decPtr("150"),
	})
	require.NoError(t, err)

	l := res.Load
	assertDec(t, "500", l.DriverPay)
	assertDec(t, "2350", l.NetProfit)
	assertDec(t, "500", l.EstimatedFuelCost.Decimal)
	assertDec(t, "200", l.EstimatedMaintCost.Decimal)
	assertDec(t, "200", l.EstimatedFixedCost.Decimal)
	assertDec(t, "900", l.EstimatedOpCost.Decimal)
}

// ──────────────────────────────────────────────
// 2. TRANSITIONS AND HISTORY
// ──────────────────────────────────────────────

func TestUpdateLoad_StrictModeRequiresPOD(t *testing.T) {
	t.Parallel()

	f := newLoadFixture(t)
	f.strict()
	f.store.AddDocument("L1", domain.DocumentTypeBOL)
	ctx := context.Background()

	patch := service.LoadPatch{Status: statusPtr(domain.LoadStatusDelivered)}

	_, err := f.svc.UpdateLoad(ctx, dispatcher, "L1", patch)
	requireCode(t, err, service.CodePreconditionFailed)
	assert.Contains(t, err.Error(), "Proof of Delivery (POD)")
	assert.NotContains(t, err.Error(), "Bill of Lading (BOL)")
	assert.Equal(t, domain.LoadStatusAssigned, f.store.Load("L1").Status)
	assert.Empty(t, f.history(t, "L1"))

	f.store.AddDocument("L1", domain.DocumentTypePOD)
	res, err := f.svc.UpdateLoad(ctx, dispatcher, "L1", patch)
	require.NoError(t, err)
	assert.Equal(t, domain.LoadStatusDelivered, res.Load.Status)
	assert.Equal(t, []string{"L1"}, f.completion.Calls())
}

func TestUpdateLoad_StrictModeNamesAllMissingDocuments(t *testing.T) {
	t.Parallel()

	f := newLoadFixture(t)
	f.strict()

	_, err := f.svc.UpdateLoad(context.Background(), dispatcher, "L1", service.LoadPatch{
		Status: statusPtr(domain.LoadStatusDelivered),
	})
	requireCode(t, err, service.CodePreconditionFailed)
	assert.Contains(t, err.Error(), "Missing documents: Bill of Lading (BOL), Proof of Delivery (POD)")
}

func TestUpdateLoad_StrictModeOnlyOnTransitionEdge(t *testing.T) {
	t.Parallel()

	f := newLoadFixture(t)
	f.store.AddLoad(&domain.Load{
		ID: "L3", OrganizationID: orgA, Status: domain.LoadStatusDelivered, DriverID: "D1",
		Revenue: dec("1000"), TotalMiles: dec("400"), DriverPay: dec("200"),
	})
	f.strict()

	_, err := f.svc.UpdateLoad(context.Background(), dispatcher, "L3", service.LoadPatch{
		Status: statusPtr(domain.LoadStatusDelivered),
		Notes:  strPtr("signed copy on file"),
	})
	require.NoError(t, err)
	assert.Empty(t, f.completion.Calls(), "no status change, no completion")
}

func TestUpdateLoad_FlexibleModeSkipsDocumentGate(t *testing.T) {
	t.Parallel()

	f := newLoadFixture(t)
	_, err := f.svc.UpdateLoad(context.Background(), dispatcher, "L1", service.LoadPatch{
		Status: statusPtr(domain.LoadStatusDelivered),
	})
	require.NoError(t, err)
}

func TestUpdateLoad_TerminalStatusCannotBeLeft(t *testing.T) {
	t.Parallel()

	f := newLoadFixture(t)
	f.store.AddLoad(&domain.Load{ID: "L4", OrganizationID: orgA, Status: domain.LoadStatusCancelled})

	_, err := f.svc.UpdateLoad(context.Background(), dispatcher, "L4", service.LoadPatch{
		Status: statusPtr(domain.LoadStatusAssigned),
	})
	requireCode(t, err, service.CodePreconditionFailed)
}

func TestUpdateLoad_PaidLoadCanStillMove(t *testing.T) {
	t.Parallel()

	f := newLoadFixture(t)
	f.store.AddLoad(&domain.Load{ID: "LP", OrganizationID: orgA, Status: domain.LoadStatusPaid})

	res, err := f.svc.UpdateLoad(context.Background(), dispatcher, "LP", service.LoadPatch{
		Status: statusPtr(domain.LoadStatusInvoiced),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.LoadStatusInvoiced, res.Load.Status)

	f.store.AddLoad(&domain.Load{ID: "LP2", OrganizationID: orgA, Status: domain.LoadStatusPaid})
	res, err = f.svc.UpdateLoad(context.Background(), dispatcher, "LP2", service.LoadPatch{
		Status: statusPtr(domain.LoadStatusCancelled),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.LoadStatusCancelled, res.Load.Status)
	assert.Equal(t, domain.LoadStatusCancelled, f.store.Load("LP2").Status)
}

func TestUpdateLoad_CancelFromAnyNonTerminalState(t *testing.T) {
	t.Parallel()

	f := newLoadFixture(t)
	res, err := f.svc.UpdateLoad(context.Background(), dispatcher, "L2", service.LoadPatch{
		Status: statusPtr(domain.LoadStatusCancelled),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.LoadStatusCancelled, res.Load.Status)
}

func TestUpdateLoad_IdempotentPatch(t *testing.T) {
	t.Parallel()

	f := newLoadFixture(t)
	ctx := context.Background()
	patch := service.LoadPatch{
		Status:     statusPtr(domain.LoadStatusEnRoutePickup),
		TotalMiles: decPtr("2000"),
	}

	first, err := f.svc.UpdateLoad(ctx, dispatcher, "L1", patch)
	require.NoError(t, err)
	second, err := f.svc.UpdateLoad(ctx, dispatcher, "L1", patch)
	require.NoError(t, err)

	assert.Equal(t, first.Load.Status, second.Load.Status)
	assertDec(t, first.Load.DriverPay.String(), second.Load.DriverPay)
	assertDec(t, first.Load.RevenuePerMile.Decimal.String(), second.Load.RevenuePerMile.Decimal)
	assertDec(t, first.Load.NetProfit.String(), second.Load.NetProfit)

	history := f.history(t, "L1")
	require.Len(t, history, 1)
	assert.Equal(t, "Status changed from ASSIGNED to EN_ROUTE_PICKUP", history[0].Note)
	assert.Equal(t, dispatcher.UserID, history[0].ActorID)
	assert.Len(t, f.notifier.Statuses(), 1)
}

func TestUpdateLoad_DispatchStatusHistory(t *testing.T) {
	t.Parallel()

	f := newLoadFixture(t)
	booked := domain.DispatchStatusBooked

	_, err := f.svc.UpdateLoad(context.Background(), dispatcher, "L1", service.LoadPatch{DispatchStatus: &booked})
	require.NoError(t, err)

	history := f.history(t, "L1")
	require.Len(t, history, 1)
	assert.Equal(t, domain.HistoryFieldDispatchStatus, history[0].Field)
	assert.Equal(t, "Dispatch status changed from none to BOOKED", history[0].Note)
	assert.Empty(t, f.completion.Calls(), "dispatch status does not complete a load")
	assert.Contains(t, f.events.Names(), service.EventDispatchUpdated)
}

// ──────────────────────────────────────────────
// 3. REFERENCES
// ──────────────────────────────────────────────

func TestUpdateLoad_CrossOrganizationDriverRejected(t *testing.T) {
	t.Parallel()

	f := newLoadFixture(t)
	_, err := f.svc.UpdateLoad(context.Background(), dispatcher, "L1", service.LoadPatch{
		DriverID:   strPtr("DX"),
		Notes:      strPtr("should not stick"),
		TotalMiles: decPtr("9999"),
	})
	requireCode(t, err, service.CodeNotFound)

	stored := f.store.Load("L1")
	assert.Equal(t, "D1", stored.DriverID)
	assert.Empty(t, stored.Notes)
	assertDec(t, "1500", stored.TotalMiles)
	assert.Equal(t, int32(0), f.store.LoadUpdateCalls)
}

func TestUpdateLoad_UnknownReferencesRejected(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		patch service.LoadPatch
	}{
		{"truck", service.LoadPatch{TruckID: strPtr("missing")}},
		{"trailer in another organization", service.LoadPatch{TrailerID: strPtr("TRX")}},
		{"dispatcher", service.LoadPatch{DispatcherID: strPtr("nobody")}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newLoadFixture(t)
			_, err := f.svc.UpdateLoad(context.Background(), dispatcher, "L1", tt.patch)
			requireCode(t, err, service.CodeNotFound)
		})
	}
}

func TestUpdateLoad_EmptyStringUnassigns(t *testing.T) {
	t.Parallel()

	f := newLoadFixture(t)
	_, err := f.svc.UpdateLoad(context.Background(), dispatcher, "L1", service.LoadPatch{
		TrailerID: strPtr("TR1"),
	})
	require.NoError(t, err)

	res, err := f.svc.UpdateLoad(context.Background(), dispatcher, "L1", service.LoadPatch{
		DriverID:  strPtr(""),
		TrailerID: strPtr(""),
	})
	require.NoError(t, err)
	assert.Empty(t, res.Load.DriverID)
	assert.Empty(t, res.Load.TrailerID)
}

func TestUpdateLoad_LoadInOtherOrganizationNotFound(t *testing.T) {
	t.Parallel()

	f := newLoadFixture(t)
	outsider := domain.Actor{UserID: "u-b", OrganizationID: orgB, Role: domain.RoleAdmin}

	_, err := f.svc.UpdateLoad(context.Background(), outsider, "L1", service.LoadPatch{Notes: strPtr("x")})
	requireCode(t, err, service.CodeNotFound)
}

// ──────────────────────────────────────────────
// 4. SIDE EFFECTS
// ──────────────────────────────────────────────

func TestUpdateLoad_FirstAssignmentNotifies(t *testing.T) {
	t.Parallel()

	f := newLoadFixture(t)
	res, err := f.svc.UpdateLoad(context.Background(), dispatcher, "L2", service.LoadPatch{
		DriverID: strPtr("D2"),
		Status:   statusPtr(domain.LoadStatusAssigned),
	})
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)
	assertDec(t, "650", res.Load.DriverPay)

	assert.Equal(t, []assignedCall{{LoadID: "L2", DriverID: "D2"}}, f.notifier.Assigned())
	assert.Equal(t, []statusCall{{
		LoadID: "L2", OldStatus: domain.LoadStatusPending, NewStatus: domain.LoadStatusAssigned, ActorID: dispatcher.UserID,
	}}, f.notifier.Statuses())
	assert.Equal(t, []string{
		service.EventLoadAssigned,
		service.EventDispatchUpdated,
		service.EventLoadStatusChanged,
		service.EventDispatchUpdated,
	}, f.events.Names())
}

func TestUpdateLoad_ReassignmentDoesNotNotifyAssignment(t *testing.T) {
	t.Parallel()

	f := newLoadFixture(t)
	_, err := f.svc.UpdateLoad(context.Background(), dispatcher, "L1", service.LoadPatch{DriverID: strPtr("D2")})
	require.NoError(t, err)
	assert.Empty(t, f.notifier.Assigned())
}

func TestUpdateLoad_SideEffectFailuresAreWarnings(t *testing.T) {
	t.Parallel()

	f := newLoadFixture(t)
	f.notifier.AssignedError = errCollaborator
	f.events.EmitError = errCollaborator

	res, err := f.svc.UpdateLoad(context.Background(), dispatcher, "L2", service.LoadPatch{DriverID: strPtr("D1")})
	require.NoError(t, err)
	assert.Len(t, res.Warnings, 3)
	assert.Equal(t, "D1", f.store.Load("L2").DriverID, "update stays committed")
}

func TestUpdateLoad_CompletionErrorsBecomeWarnings(t *testing.T) {
	t.Parallel()

	f := newLoadFixture(t)
	f.completion.Result = &service.CompletionResult{Success: false, Errors: []string{"Load has no customer"}}

	res, err := f.svc.UpdateLoad(context.Background(), dispatcher, "L1", service.LoadPatch{
		Status: statusPtr(domain.LoadStatusInvoiced),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Load has no customer"}, res.Warnings)
}

func TestUpdateLoad_CompletionFailureFallsBack(t *testing.T) {
	t.Parallel()

	f := newLoadFixture(t)
	f.completion.Err = errCollaborator

	res, err := f.svc.UpdateLoad(context.Background(), dispatcher, "L1", service.LoadPatch{
		Status: statusPtr(domain.LoadStatusDelivered),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Completion workflow failed"}, res.Warnings)
	assert.NotContains(t, res.Warnings[0], errCollaborator.Error())

	stored := f.store.Load("L1")
	assert.True(t, stored.ReadyForSettlement)
	assert.False(t, stored.DeliveredAt.IsZero())
}

func TestUpdateLoad_WithCompletionService(t *testing.T) {
	t.Parallel()

	f := newLoadFixture(t)
	svc := service.NewLoadService(
		f.store, lock.NewArena(), service.DefaultPermissions(),
		service.StoreSettings{Repo: f.store.Repositories().Settings},
		nil, nil, service.NewLoadCompletionService(f.store),
	)

	res, err := svc.UpdateLoad(context.Background(), dispatcher, "L2", service.LoadPatch{
		Status: statusPtr(domain.LoadStatusDelivered),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Load has no driver assigned"}, res.Warnings)
	assert.Equal(t, domain.AccountingSyncRequiresReview, f.store.Load("L2").AccountingSyncStatus)
	assert.False(t, f.store.Load("L2").ReadyForSettlement)

	res, err = svc.UpdateLoad(context.Background(), dispatcher, "L1", service.LoadPatch{
		Status: statusPtr(domain.LoadStatusDelivered),
	})
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)
	assert.True(t, f.store.Load("L1").ReadyForSettlement)
	assert.Equal(t, domain.AccountingSyncPending, f.store.Load("L1").AccountingSyncStatus)
}

// ──────────────────────────────────────────────
// 5. FAILURES
// ──────────────────────────────────────────────

func TestUpdateLoad_AuthorizationAndValidation(t *testing.T) {
	t.Parallel()

	bogus := domain.LoadStatus("TELEPORTED")
	driverActor := domain.Actor{UserID: "d", OrganizationID: orgA, Role: domain.RoleDriver}

	tests := []struct {
		name  string
		actor domain.Actor
		patch service.LoadPatch
		want  service.Code
	}{
		{"no session", domain.Actor{}, service.LoadPatch{}, service.CodeUnauthorized},
		{"driver cannot edit", driverActor, service.LoadPatch{}, service.CodeForbidden},
		{"unknown status", dispatcher, service.LoadPatch{Status: &bogus}, service.CodeValidation},
		{"negative revenue", dispatcher, service.LoadPatch{Revenue: decPtr("-1")}, service.CodeValidation},
		{"negative override", dispatcher, service.LoadPatch{DriverPay: service.OverrideDriverPay(dec("-5"))}, service.CodeValidation},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newLoadFixture(t)
			_, err := f.svc.UpdateLoad(context.Background(), tt.actor, "L1", tt.patch)
			requireCode(t, err, tt.want)
			assert.Equal(t, int32(0), f.store.LoadUpdateCalls)
		})
	}
}

func TestUpdateLoad_ValidationErrorCarriesFields(t *testing.T) {
	t.Parallel()

	f := newLoadFixture(t)
	_, err := f.svc.UpdateLoad(context.Background(), dispatcher, "L1", service.LoadPatch{
		Revenue:    decPtr("-1"),
		EmptyMiles: decPtr("-2"),
	})

	var se *service.Error
	require.ErrorAs(t, err, &se)
	assert.Contains(t, se.Fields, "revenue")
	assert.Contains(t, se.Fields, "emptyMiles")
	assert.ErrorIs(t, err, service.ErrValidation)
}

func TestUpdateLoad_HistoryFailureAbortsUpdate(t *testing.T) {
	t.Parallel()

	f := newLoadFixture(t)
	f.store.HistoryAppendError = errCollaborator

	_, err := f.svc.UpdateLoad(context.Background(), dispatcher, "L1", service.LoadPatch{
		Status:     statusPtr(domain.LoadStatusEnRoutePickup),
		TotalMiles: decPtr("2000"),
	})
	requireCode(t, err, service.CodeInternal)
	assert.NotContains(t, err.(*service.Error).Message, errCollaborator.Error())

	stored := f.store.Load("L1")
	assert.Equal(t, domain.LoadStatusAssigned, stored.Status)
	assertDec(t, "800", stored.DriverPay)
	assert.Empty(t, f.notifier.Statuses(), "no effects without a commit")
}

// ──────────────────────────────────────────────
// 6. CONCURRENCY, READS, DELETE
// ──────────────────────────────────────────────

func TestUpdateLoad_ConcurrentUpdatesKeepPayConsistent(t *testing.T) {
	t.Parallel()

	f := newLoadFixture(t)
	miles := []string{"1000", "1200", "1400", "1600", "1800", "2000"}

	var wg sync.WaitGroup
	for _, m := range miles {
		wg.Add(1)
		go func(m string) {
			defer wg.Done()
			_, err := f.svc.UpdateLoad(context.Background(), dispatcher, "L1", service.LoadPatch{TotalMiles: decPtr(m)})
			assert.NoError(t, err)
		}(m)
	}
	wg.Wait()

	stored := f.store.Load("L1")
	assertDec(t, stored.TotalMiles.Mul(dec("0.5")).String(), stored.DriverPay, "pay must match final miles")
}

func TestDeleteLoad(t *testing.T) {
	t.Parallel()

	f := newLoadFixture(t)
	ctx := context.Background()

	err := f.svc.DeleteLoad(ctx, dispatcher, "L2")
	requireCode(t, err, service.CodeForbidden)

	require.NoError(t, f.svc.DeleteLoad(ctx, admin, "L2"))

	_, err = f.svc.GetLoad(ctx, admin, "L2")
	requireCode(t, err, service.CodeNotFound)
	assert.False(t, f.store.Load("L2").DeletedAt.IsZero(), "row is retained")

	err = f.svc.DeleteLoad(ctx, admin, "L2")
	requireCode(t, err, service.CodeNotFound)
}
