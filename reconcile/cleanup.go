package reconcile

import (
	"log/slog"
	"time"

	"worktime/models"
	"worktime/status"
)

// CleanupEntries normalizes one entry collection in place before merging:
//
//   - an in-process edit lock whose last activity is older than lockExpiry
//     is demoted to its last provable stable action (Edited when it carries
//     a timestamp, Input otherwise);
//   - delete instructions are counted so the caller knows a write-back is
//     needed to physically drop them;
//   - internally inconsistent tags (Edited without a timestamp) are logged
//     but left alone.
//
// The label only qualifies diagnostics. Returns whether any entry changed
// or a delete is pending removal, so the caller can decide to write back
// even when the merge itself resolves nothing.
func CleanupEntries(entries []models.TimeEntry, label string, lockExpiry time.Duration, now time.Time) bool {
	changed := false
	for i := range entries {
		entry := &entries[i]
		tag, err := status.Parse(entry.RawStatus)
		if err != nil {
			slog.Warn("cleanup: unparseable status",
				"collection", label,
				"date", entry.DayKey(),
				"status", entry.RawStatus)
			continue
		}

		switch tag.Action {
		case status.ActionInProcess:
			if expired(tag, lockExpiry, now) {
				demoted := demoteLock(tag)
				slog.Info("cleanup: expired edit lock demoted",
					"collection", label,
					"date", entry.DayKey(),
					"from", entry.RawStatus,
					"to", demoted.String())
				entry.RawStatus = demoted.String()
				changed = true
			}
		case status.ActionDelete:
			// Physical removal happens when the merged collection is
			// written back; the row must not survive retention.
			changed = true
		case status.ActionEdited:
			if tag.EditedAt.IsZero() {
				slog.Warn("cleanup: inconsistent status, edited without timestamp",
					"collection", label,
					"date", entry.DayKey(),
					"status", entry.RawStatus)
			}
		}
	}
	return changed
}

// expired reports whether an in-process lock has seen no activity within
// the expiry window. A lock with no timestamp cannot prove activity and is
// treated as stale.
func expired(tag status.Tag, lockExpiry time.Duration, now time.Time) bool {
	if tag.EditedAt.IsZero() {
		return true
	}
	return now.Sub(tag.EditedAt) > lockExpiry
}

// demoteLock maps a stale in-process tag back to the last stable action we
// can still prove: Edited when the lock recorded activity, Input otherwise.
func demoteLock(tag status.Tag) status.Tag {
	if !tag.EditedAt.IsZero() {
		return status.Tag{Role: tag.Role, Action: status.ActionEdited, EditedAt: tag.EditedAt}
	}
	return status.Tag{Role: tag.Role, Action: status.ActionInput}
}
