package reconcile

import (
	"log/slog"
	"sort"

	"worktime/models"
	"worktime/status"
)

// MergeEntries resolves the employee-owned local collection against the
// administrator-owned remote collection for one user and period, producing
// one entry per distinct date appearing in either input.
//
// For a date present on both sides the entry with the higher status
// priority wins; on an exact tie (equal priority and timestamp) the remote
// entry wins, since remote entries represent a review action. When the
// winner for a date is a delete instruction the date is consumed but
// excluded from the output, so the losing side's entry cannot resurface.
//
// Unparseable status strings participate at lowest priority and are
// logged, never fatal. The result is sorted by date, deterministic, and
// idempotent: merging the output with either input again yields the same
// output.
func MergeEntries(local, remote []models.TimeEntry, userID uint) []models.TimeEntry {
	type candidate struct {
		entry models.TimeEntry
		tag   status.Tag
	}

	decode := func(e models.TimeEntry, side string) status.Tag {
		tag, err := status.Parse(e.RawStatus)
		if err != nil {
			slog.Warn("merge: unparseable status, treating as unknown",
				"side", side,
				"user_id", userID,
				"date", e.DayKey(),
				"status", e.RawStatus)
		}
		return tag
	}

	byDate := make(map[string]candidate, len(local)+len(remote))
	for _, e := range local {
		// Later duplicates within one side win by source ordinal.
		byDate[e.DayKey()] = candidate{entry: e, tag: decode(e, "local")}
	}

	for _, e := range remote {
		if e.UserID != userID {
			continue
		}
		incoming := candidate{entry: e, tag: decode(e, "remote")}
		existing, ok := byDate[e.DayKey()]
		if !ok {
			byDate[e.DayKey()] = incoming
			continue
		}
		// Remote wins exact ties: the admin copy is the review authority.
		if incoming.tag.Compare(existing.tag) >= 0 {
			byDate[e.DayKey()] = incoming
		}
	}

	merged := make([]models.TimeEntry, 0, len(byDate))
	for _, c := range byDate {
		if c.tag.IsDelete() {
			continue
		}
		merged = append(merged, c.entry)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Date.Before(merged[j].Date)
	})
	return merged
}

// entriesEqual reports whether two collections carry the same days with the
// same recorded values, ignoring row identity and bookkeeping timestamps.
// Used to decide whether a merged collection needs writing back.
func entriesEqual(a, b []models.TimeEntry) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !entryEqual(&a[i], &b[i]) {
			return false
		}
	}
	return true
}

func entryEqual(a, b *models.TimeEntry) bool {
	return a.DayKey() == b.DayKey() &&
		a.UserID == b.UserID &&
		a.RawStatus == b.RawStatus &&
		a.TimeOffCode == b.TimeOffCode &&
		a.RawWorkedMinutes == b.RawWorkedMinutes &&
		a.TemporaryStopMinutes == b.TemporaryStopMinutes &&
		strPtrEqual(a.StartTime, b.StartTime) &&
		strPtrEqual(a.EndTime, b.EndTime)
}

func strPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
