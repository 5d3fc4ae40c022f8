package models

import (
	"time"
)

type RequestStatus string

const (
	RequestApproved RequestStatus = "APPROVED"
	RequestPending  RequestStatus = "PENDING"
	RequestRejected RequestStatus = "REJECTED"
)

// TimeOffLedger is the derived per-(user, year) balance and history of
// time-off requests. It is owned exclusively by the ledger synchronizer;
// user and admin actors never edit it directly.
type TimeOffLedger struct {
	ID            uint             `gorm:"primaryKey" json:"id"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
	UserID        uint             `gorm:"not null;uniqueIndex:idx_ledger_user_year" json:"user_id"`
	Year          int              `gorm:"not null;uniqueIndex:idx_ledger_user_year" json:"year"`
	AvailableDays int              `gorm:"not null;default:0" json:"available_days"`
	UsedDays      int              `gorm:"not null;default:0" json:"used_days"`
	LastSyncTime  time.Time        `json:"last_sync_time"`
	Requests      []TimeOffRequest `gorm:"foreignKey:LedgerID" json:"requests"`
}

// TimeOffRequest is one appended ledger record. Requests are never mutated
// or removed in place; the newest record for a date is the authoritative one.
type TimeOffRequest struct {
	ID          string        `gorm:"primaryKey;size:36" json:"id"`
	LedgerID    uint          `gorm:"not null;index" json:"ledger_id"`
	Date        time.Time     `gorm:"not null;type:date" json:"date"`
	TimeOffCode TimeOffCode   `gorm:"not null;size:4" json:"time_off_code"`
	Status      RequestStatus `gorm:"not null;size:20" json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	LastUpdated time.Time     `gorm:"autoUpdateTime" json:"last_updated"`
	Notes       string        `gorm:"size:500" json:"notes"`
}

// DayKey returns the calendar-date key a later sync uses to decide whether
// this request is already covered.
func (r *TimeOffRequest) DayKey() string {
	return r.Date.Format("2006-01-02")
}
