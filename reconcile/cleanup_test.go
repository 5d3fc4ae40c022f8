package reconcile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"worktime/models"
)

var cleanupNow = time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)

func cleanupEntry(date, rawStatus string) models.TimeEntry {
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		panic(err)
	}
	return models.TimeEntry{UserID: 7, Date: d, RawStatus: rawStatus}
}

func TestCleanup_ExpiredLockWithTimestamp(t *testing.T) {
	stale := cleanupNow.Add(-2 * time.Hour)
	entries := []models.TimeEntry{
		cleanupEntry("2025-03-01", "USER_INPROCESS_"+millis(stale)),
	}

	changed := CleanupEntries(entries, "test", 30*time.Minute, cleanupNow)

	require.True(t, changed)
	assert.Equal(t, "USER_EDITED_"+millis(stale), entries[0].RawStatus,
		"stale lock demotes to the edit it recorded")
}

func TestCleanup_ExpiredLockWithoutTimestamp(t *testing.T) {
	entries := []models.TimeEntry{
		cleanupEntry("2025-03-01", "USER_ACTIVE"),
	}

	changed := CleanupEntries(entries, "test", 30*time.Minute, cleanupNow)

	require.True(t, changed)
	assert.Equal(t, "USER_INPUT", entries[0].RawStatus,
		"a lock with no recorded activity demotes to input")
}

func TestCleanup_FreshLockKept(t *testing.T) {
	fresh := cleanupNow.Add(-5 * time.Minute)
	raw := "USER_INPROCESS_" + millis(fresh)
	entries := []models.TimeEntry{cleanupEntry("2025-03-01", raw)}

	changed := CleanupEntries(entries, "test", 30*time.Minute, cleanupNow)

	assert.False(t, changed)
	assert.Equal(t, raw, entries[0].RawStatus)
}

func TestCleanup_DeleteForcesWriteBack(t *testing.T) {
	entries := []models.TimeEntry{
		cleanupEntry("2025-03-01", "DELETE"),
		cleanupEntry("2025-03-02", "USER_INPUT"),
	}

	changed := CleanupEntries(entries, "test", 30*time.Minute, cleanupNow)

	assert.True(t, changed, "pending delete needs a write-back to drop the row")
	assert.Equal(t, "DELETE", entries[0].RawStatus, "cleanup does not strip the delete itself")
	assert.Equal(t, "USER_INPUT", entries[1].RawStatus)
}

func TestCleanup_InconsistentEditedLogged(t *testing.T) {
	entries := []models.TimeEntry{
		cleanupEntry("2025-03-01", "USER_EDITED"),
	}

	changed := CleanupEntries(entries, "test", 30*time.Minute, cleanupNow)

	assert.False(t, changed, "inconsistent tags are recorded, not repaired")
	assert.Equal(t, "USER_EDITED", entries[0].RawStatus)
}

func TestCleanup_UnparseableIgnored(t *testing.T) {
	entries := []models.TimeEntry{
		cleanupEntry("2025-03-01", "not a status"),
		cleanupEntry("2025-03-02", "USER_ACTIVE"),
	}

	changed := CleanupEntries(entries, "test", 30*time.Minute, cleanupNow)

	assert.True(t, changed, "remaining entries still get cleaned")
	assert.Equal(t, "not a status", entries[0].RawStatus)
	assert.Equal(t, "USER_INPUT", entries[1].RawStatus)
}

func TestCleanup_Empty(t *testing.T) {
	assert.False(t, CleanupEntries(nil, "test", 30*time.Minute, cleanupNow))
}
