package models

import (
	"time"
)

// TimeOffCode marks a day entry as a recognized kind of time off.
type TimeOffCode string

const (
	TimeOffNone            TimeOffCode = ""
	TimeOffNationalHoliday TimeOffCode = "SN"
	TimeOffVacation        TimeOffCode = "CO"
	TimeOffMedicalLeave    TimeOffCode = "CM"
)

func (c TimeOffCode) IsRecognized() bool {
	switch c {
	case TimeOffNationalHoliday, TimeOffVacation, TimeOffMedicalLeave:
		return true
	}
	return false
}

// EntrySource identifies which copy of a month's record an entry belongs to:
// the employee-owned local side or the administrator-owned remote side.
type EntrySource string

const (
	SourceLocal  EntrySource = "LOCAL"
	SourceRemote EntrySource = "REMOTE"
)

// TimeEntry is one day's worktime record for one user. Within one
// (user, source, year, month) collection the date is unique.
type TimeEntry struct {
	ID                   uint        `gorm:"primaryKey" json:"id"`
	CreatedAt            time.Time   `json:"created_at"`
	UpdatedAt            time.Time   `json:"updated_at"`
	UserID               uint        `gorm:"not null;index" json:"user_id"`
	Date                 time.Time   `gorm:"not null;type:date" json:"date"`
	Source               EntrySource `gorm:"not null;size:10;index" json:"source"`
	StartTime            *string     `gorm:"size:5" json:"start_time"`
	EndTime              *string     `gorm:"size:5" json:"end_time"`
	RawWorkedMinutes     int         `gorm:"not null;default:0" json:"raw_worked_minutes"`
	TemporaryStopMinutes int         `gorm:"not null;default:0" json:"temporary_stop_minutes"`
	TimeOffCode          TimeOffCode `gorm:"size:4" json:"time_off_code"`
	// RawStatus carries the encoded status tag, e.g. "ADMIN_EDITED_1641234567890".
	RawStatus string `gorm:"column:status;not null;size:64" json:"status"`
}

// DayKey returns the calendar-date key used to match entries across the
// local and remote collections.
func (e *TimeEntry) DayKey() string {
	return e.Date.Format("2006-01-02")
}

// TimeEntryBackup is a snapshot row written before a local collection is
// replaced, so every durable write keeps the previous month state around.
type TimeEntryBackup struct {
	ID                   uint        `gorm:"primaryKey" json:"id"`
	BackedUpAt           time.Time   `gorm:"autoCreateTime" json:"backed_up_at"`
	UserID               uint        `gorm:"not null;index" json:"user_id"`
	Year                 int         `gorm:"not null" json:"year"`
	Month                int         `gorm:"not null" json:"month"`
	Date                 time.Time   `gorm:"not null;type:date" json:"date"`
	Source               EntrySource `gorm:"not null;size:10" json:"source"`
	StartTime            *string     `gorm:"size:5" json:"start_time"`
	EndTime              *string     `gorm:"size:5" json:"end_time"`
	RawWorkedMinutes     int         `gorm:"not null;default:0" json:"raw_worked_minutes"`
	TemporaryStopMinutes int         `gorm:"not null;default:0" json:"temporary_stop_minutes"`
	TimeOffCode          TimeOffCode `gorm:"size:4" json:"time_off_code"`
	RawStatus            string      `gorm:"column:status;not null;size:64" json:"status"`
}
