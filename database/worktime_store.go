package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"worktime/models"
)

// WorktimeStore is the gorm-backed implementation of the reconciliation
// engine's collaborators: entry collections keyed by (user, year, month),
// the time-off ledger keyed by (user, year), identity resolution, and the
// authoritative vacation balance.
type WorktimeStore struct {
	db *gorm.DB
}

func NewWorktimeStore(db *gorm.DB) *WorktimeStore {
	return &WorktimeStore{db: db}
}

func monthRange(year int, month time.Month) (time.Time, time.Time) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}

// ReadLocalEntries returns the employee-owned collection for the month,
// ordered by date. Unknown users and missing months read as empty.
func (s *WorktimeStore) ReadLocalEntries(ctx context.Context, username string, year int, month time.Month) ([]models.TimeEntry, error) {
	userID, ok := s.ResolveUserID(ctx, username)
	if !ok {
		return nil, nil
	}

	start, end := monthRange(year, month)
	var entries []models.TimeEntry
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND source = ? AND date >= ? AND date < ?",
			userID, models.SourceLocal, start, end).
		Order("date asc").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("read local entries: %w", err)
	}
	return entries, nil
}

// ReadRemoteEntries returns the admin-side collection for the month across
// all users; the engine filters by user.
func (s *WorktimeStore) ReadRemoteEntries(ctx context.Context, year int, month time.Month) ([]models.TimeEntry, error) {
	start, end := monthRange(year, month)
	var entries []models.TimeEntry
	err := s.db.WithContext(ctx).
		Where("source = ? AND date >= ? AND date < ?", models.SourceRemote, start, end).
		Order("date asc, user_id asc").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("read remote entries: %w", err)
	}
	return entries, nil
}

// WriteLocalEntries replaces the employee-owned collection for the month
// in one transaction, snapshotting the rows being replaced into the backup
// table first so every durable write keeps the previous state.
func (s *WorktimeStore) WriteLocalEntries(ctx context.Context, username string, entries []models.TimeEntry, year int, month time.Month) error {
	userID, ok := s.ResolveUserID(ctx, username)
	if !ok {
		return fmt.Errorf("write local entries: unknown user %q", username)
	}

	start, end := monthRange(year, month)
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current []models.TimeEntry
		if err := tx.
			Where("user_id = ? AND source = ? AND date >= ? AND date < ?",
				userID, models.SourceLocal, start, end).
			Find(&current).Error; err != nil {
			return fmt.Errorf("snapshot current entries: %w", err)
		}

		for _, e := range current {
			backup := models.TimeEntryBackup{
				UserID:               e.UserID,
				Year:                 year,
				Month:                int(month),
				Date:                 e.Date,
				Source:               e.Source,
				StartTime:            e.StartTime,
				EndTime:              e.EndTime,
				RawWorkedMinutes:     e.RawWorkedMinutes,
				TemporaryStopMinutes: e.TemporaryStopMinutes,
				TimeOffCode:          e.TimeOffCode,
				RawStatus:            e.RawStatus,
			}
			if err := tx.Create(&backup).Error; err != nil {
				return fmt.Errorf("write backup row: %w", err)
			}
		}

		if err := tx.
			Where("user_id = ? AND source = ? AND date >= ? AND date < ?",
				userID, models.SourceLocal, start, end).
			Delete(&models.TimeEntry{}).Error; err != nil {
			return fmt.Errorf("clear current entries: %w", err)
		}

		for i := range entries {
			row := entries[i]
			row.ID = 0
			row.UserID = userID
			row.Source = models.SourceLocal
			if err := tx.Create(&row).Error; err != nil {
				return fmt.Errorf("write merged entry %s: %w", row.DayKey(), err)
			}
		}
		return nil
	})
}

// UpsertEntry records one day on one side of the record, replacing any
// existing entry for the same (user, source, date). Used by the handlers;
// the engine itself only does whole-month writes.
func (s *WorktimeStore) UpsertEntry(ctx context.Context, entry models.TimeEntry) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.TimeEntry
		err := tx.
			Where("user_id = ? AND source = ? AND date = ?",
				entry.UserID, entry.Source, entry.Date).
			First(&existing).Error
		switch {
		case err == nil:
			entry.ID = existing.ID
			entry.CreatedAt = existing.CreatedAt
			return tx.Save(&entry).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			return tx.Create(&entry).Error
		default:
			return err
		}
	})
}

// ReadLedger loads the ledger with its requests, or nil when the user has
// none for the year yet.
func (s *WorktimeStore) ReadLedger(ctx context.Context, username string, userID uint, year int) (*models.TimeOffLedger, error) {
	var ledger models.TimeOffLedger
	err := s.db.WithContext(ctx).
		Preload("Requests", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at asc")
		}).
		Where("user_id = ? AND year = ?", userID, year).
		First(&ledger).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}
	return &ledger, nil
}

// WriteLedger persists the ledger header and appends any new requests in
// one transaction. Existing request rows are never updated or deleted.
func (s *WorktimeStore) WriteLedger(ctx context.Context, username string, userID uint, ledger *models.TimeOffLedger, year int) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ledger.UserID = userID
		ledger.Year = year
		requests := ledger.Requests
		ledger.Requests = nil
		if err := tx.Save(ledger).Error; err != nil {
			return fmt.Errorf("write ledger: %w", err)
		}
		ledger.Requests = requests

		for i := range requests {
			req := requests[i]
			if req.LedgerID == 0 {
				req.LedgerID = ledger.ID
			}
			var count int64
			if err := tx.Model(&models.TimeOffRequest{}).
				Where("id = ?", req.ID).
				Count(&count).Error; err != nil {
				return fmt.Errorf("check request %s: %w", req.ID, err)
			}
			if count > 0 {
				continue
			}
			if err := tx.Create(&req).Error; err != nil {
				return fmt.Errorf("append request %s: %w", req.ID, err)
			}
		}
		return nil
	})
}

// ResolveUserID looks up the authoritative user ID for a username.
func (s *WorktimeStore) ResolveUserID(ctx context.Context, username string) (uint, bool) {
	var user models.User
	if err := s.db.WithContext(ctx).
		Select("id").
		Where("username = ?", username).
		First(&user).Error; err != nil {
		return 0, false
	}
	return user.ID, true
}

// CurrentBalance returns the user's authoritative holiday-day balance.
func (s *WorktimeStore) CurrentBalance(ctx context.Context, username string) (int, bool) {
	var user models.User
	if err := s.db.WithContext(ctx).
		Select("id", "vacation_days").
		Where("username = ?", username).
		First(&user).Error; err != nil {
		return 0, false
	}
	return user.VacationDays, true
}
