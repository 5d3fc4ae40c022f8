package reconcile

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"worktime/models"
)

const syncNote = "derived from worktime sync"

// syncLedger propagates time-off-coded days from a merged collection into
// the user's yearly ledger. It is append-only: a day whose code is absent
// from, or differs from, the ledger's current view gets a new approved
// request appended; pre-existing requests are never mutated or removed.
// The ledger's available-day snapshot is refreshed from the authoritative
// balance source when reachable.
//
// Any failure is absorbed and reported as "not updated"; ledger trouble
// must never fail the period whose worktime write already happened.
func (r *Reconciler) syncLedger(ctx context.Context, username string, userID uint, year int, merged []models.TimeEntry) bool {
	offDays := extractTimeOff(merged)
	if len(offDays) == 0 {
		return false
	}

	ledger, err := r.ledgers.ReadLedger(ctx, username, userID, year)
	if err != nil {
		slog.Error("ledger sync: read failed",
			"username", username, "year", year, "error", err)
		return false
	}
	if ledger == nil {
		ledger = &models.TimeOffLedger{UserID: userID, Year: year}
	}

	if balance, ok := r.balance.CurrentBalance(ctx, username); ok {
		ledger.AvailableDays = balance
	} else {
		slog.Warn("ledger sync: balance source unavailable, keeping previous snapshot",
			"username", username, "year", year)
	}

	// Current view: the newest appended request for a date is authoritative.
	view := make(map[string]models.TimeOffCode, len(ledger.Requests))
	for _, req := range ledger.Requests {
		view[req.DayKey()] = req.TimeOffCode
	}

	appended := false
	for _, entry := range merged {
		code := entry.TimeOffCode
		if !code.IsRecognized() {
			continue
		}
		if existing, ok := view[entry.DayKey()]; ok && existing == code {
			continue
		}
		ledger.Requests = append(ledger.Requests, models.TimeOffRequest{
			ID:          uuid.NewString(),
			LedgerID:    ledger.ID,
			Date:        entry.Date,
			TimeOffCode: code,
			Status:      models.RequestApproved,
			Notes:       syncNote,
		})
		view[entry.DayKey()] = code
		appended = true
	}

	ledger.UsedDays = countUsedDays(view)
	ledger.LastSyncTime = r.now()

	if err := r.ledgers.WriteLedger(ctx, username, userID, ledger, year); err != nil {
		slog.Error("ledger sync: write failed",
			"username", username, "year", year, "error", err)
		return false
	}
	return appended
}

// extractTimeOff returns the days in the collection carrying a recognized
// time-off code.
func extractTimeOff(entries []models.TimeEntry) map[string]models.TimeOffCode {
	out := make(map[string]models.TimeOffCode)
	for _, e := range entries {
		if e.TimeOffCode.IsRecognized() {
			out[e.DayKey()] = e.TimeOffCode
		}
	}
	return out
}

// countUsedDays counts the days that consume vacation balance. National
// holidays and medical leave do not draw down the allowance.
func countUsedDays(view map[string]models.TimeOffCode) int {
	used := 0
	for _, code := range view {
		if code == models.TimeOffVacation {
			used++
		}
	}
	return used
}
