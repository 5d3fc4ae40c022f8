package reconcile

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"worktime/models"
)

type failingLedgerStore struct {
	*fakeStore
	readErr  error
	writeErr error
}

func (f *failingLedgerStore) ReadLedger(ctx context.Context, username string, userID uint, year int) (*models.TimeOffLedger, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	return f.fakeStore.ReadLedger(ctx, username, userID, year)
}

func (f *failingLedgerStore) WriteLedger(ctx context.Context, username string, userID uint, ledger *models.TimeOffLedger, year int) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	return f.fakeStore.WriteLedger(ctx, username, userID, ledger, year)
}

func TestSyncLedger_NoRecognizedCodes(t *testing.T) {
	store := newFakeStore()
	r := newTestReconciler(store)

	merged := []models.TimeEntry{
		entry("2025-02-10", "USER_INPUT"),
		entry("2025-02-11", "ADMIN_FINAL"),
	}

	updated := r.syncLedger(context.Background(), "jdoe", 7, 2025, merged)

	assert.False(t, updated)
	assert.Zero(t, store.ledgerWrites, "no time off, no ledger touch")
}

func TestSyncLedger_CreatesLedgerLazily(t *testing.T) {
	store := newFakeStore()
	r := newTestReconciler(store)

	merged := []models.TimeEntry{
		entryWithCode("2025-02-14", "ADMIN_INPUT", models.TimeOffVacation),
	}

	updated := r.syncLedger(context.Background(), "jdoe", 7, 2025, merged)

	require.True(t, updated)
	ledger := store.ledgers[2025]
	require.NotNil(t, ledger)
	assert.Equal(t, uint(7), ledger.UserID)
	assert.Equal(t, 2025, ledger.Year)
	assert.Equal(t, 21, ledger.AvailableDays, "snapshot refreshed from the balance source")
	assert.Equal(t, 1, ledger.UsedDays)
	assert.Equal(t, fixedNow, ledger.LastSyncTime)

	require.Len(t, ledger.Requests, 1)
	req := ledger.Requests[0]
	assert.NotEmpty(t, req.ID)
	assert.Equal(t, "2025-02-14", req.DayKey())
	assert.Equal(t, models.TimeOffVacation, req.TimeOffCode)
	assert.Equal(t, models.RequestApproved, req.Status)
	assert.Equal(t, "derived from worktime sync", req.Notes)
}

func TestSyncLedger_AppendOnlyOnDiff(t *testing.T) {
	store := newFakeStore()
	existing := models.TimeOffRequest{
		ID:          "existing-1",
		Date:        time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC),
		TimeOffCode: models.TimeOffVacation,
		Status:      models.RequestApproved,
		Notes:       "booked by hand",
	}
	store.ledgers[2025] = &models.TimeOffLedger{
		UserID:   7,
		Year:     2025,
		Requests: []models.TimeOffRequest{existing},
	}
	r := newTestReconciler(store)

	merged := []models.TimeEntry{
		entryWithCode("2025-02-01", "ADMIN_FINAL", models.TimeOffVacation), // already covered
		entryWithCode("2025-02-14", "ADMIN_INPUT", models.TimeOffVacation), // new
	}

	updated := r.syncLedger(context.Background(), "jdoe", 7, 2025, merged)

	require.True(t, updated)
	ledger := store.ledgers[2025]
	require.Len(t, ledger.Requests, 2, "exactly one request appended")
	assert.Equal(t, existing, ledger.Requests[0], "pre-existing requests are never touched")
	assert.Equal(t, "2025-02-14", ledger.Requests[1].DayKey())
	assert.Equal(t, 2, ledger.UsedDays)
}

func TestSyncLedger_CodeChangeAppendsReplacement(t *testing.T) {
	store := newFakeStore()
	store.ledgers[2025] = &models.TimeOffLedger{
		UserID: 7,
		Year:   2025,
		Requests: []models.TimeOffRequest{{
			ID:          "existing-1",
			Date:        time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC),
			TimeOffCode: models.TimeOffVacation,
			Status:      models.RequestApproved,
		}},
	}
	r := newTestReconciler(store)

	merged := []models.TimeEntry{
		entryWithCode("2025-02-01", "ADMIN_FINAL", models.TimeOffMedicalLeave),
	}

	updated := r.syncLedger(context.Background(), "jdoe", 7, 2025, merged)

	require.True(t, updated)
	ledger := store.ledgers[2025]
	require.Len(t, ledger.Requests, 2, "the changed code appends, never rewrites")
	assert.Equal(t, models.TimeOffMedicalLeave, ledger.Requests[1].TimeOffCode)
	assert.Equal(t, 0, ledger.UsedDays, "the newest record for the date is authoritative")
}

func TestSyncLedger_RepeatSyncIsIdempotent(t *testing.T) {
	store := newFakeStore()
	r := newTestReconciler(store)

	merged := []models.TimeEntry{
		entryWithCode("2025-02-14", "ADMIN_INPUT", models.TimeOffVacation),
	}

	require.True(t, r.syncLedger(context.Background(), "jdoe", 7, 2025, merged))
	updated := r.syncLedger(context.Background(), "jdoe", 7, 2025, merged)

	assert.False(t, updated, "nothing new to append on the second pass")
	assert.Len(t, store.ledgers[2025].Requests, 1)
}

func TestSyncLedger_BalanceUnavailableKeepsSnapshot(t *testing.T) {
	store := newFakeStore()
	store.balanceOK = false
	store.ledgers[2025] = &models.TimeOffLedger{
		UserID:        7,
		Year:          2025,
		AvailableDays: 17,
	}
	r := newTestReconciler(store)

	merged := []models.TimeEntry{
		entryWithCode("2025-02-14", "ADMIN_INPUT", models.TimeOffVacation),
	}

	updated := r.syncLedger(context.Background(), "jdoe", 7, 2025, merged)

	require.True(t, updated)
	assert.Equal(t, 17, store.ledgers[2025].AvailableDays,
		"previous snapshot survives a balance outage")
}

func TestSyncLedger_ReadFailureIsSoft(t *testing.T) {
	store := newFakeStore()
	failing := &failingLedgerStore{fakeStore: store, readErr: fmt.Errorf("ledger offline")}
	r := NewReconciler(store, failing, store, store, 5*time.Second, 30*time.Minute)
	r.now = func() time.Time { return fixedNow }

	merged := []models.TimeEntry{
		entryWithCode("2025-02-14", "ADMIN_INPUT", models.TimeOffVacation),
	}

	assert.False(t, r.syncLedger(context.Background(), "jdoe", 7, 2025, merged))
}

func TestSyncLedger_WriteFailureIsSoft(t *testing.T) {
	store := newFakeStore()
	failing := &failingLedgerStore{fakeStore: store, writeErr: fmt.Errorf("ledger offline")}
	r := NewReconciler(store, failing, store, store, 5*time.Second, 30*time.Minute)
	r.now = func() time.Time { return fixedNow }

	merged := []models.TimeEntry{
		entryWithCode("2025-02-14", "ADMIN_INPUT", models.TimeOffVacation),
	}

	assert.False(t, r.syncLedger(context.Background(), "jdoe", 7, 2025, merged))
}
