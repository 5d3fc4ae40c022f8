package status

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Valid(t *testing.T) {
	tests := []struct {
		raw    string
		role   Role
		action Action
		millis int64
	}{
		{"USER_INPUT", RoleUser, ActionInput, 0},
		{"ADMIN_INPUT", RoleAdmin, ActionInput, 0},
		{"ADMIN_FINAL", RoleAdmin, ActionFinal, 0},
		{"TEAM_FINAL", RoleTeam, ActionFinal, 0},
		{"SYSTEM_INPUT", RoleSystem, ActionInput, 0},
		{"ADMIN_EDITED_1641234567890", RoleAdmin, ActionEdited, 1641234567890},
		{"USER_EDITED_1700000000000", RoleUser, ActionEdited, 1700000000000},
		{"USER_INPROCESS_1700000000000", RoleUser, ActionInProcess, 1700000000000},
		{"USER_ACTIVE", RoleUser, ActionInProcess, 0},
		{"DELETE", RoleSystem, ActionDelete, 0},
		{"ADMIN_DELETE", RoleAdmin, ActionDelete, 0},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			tag, err := Parse(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.role, tag.Role)
			assert.Equal(t, tt.action, tag.Action)
			if tt.millis > 0 {
				assert.Equal(t, time.UnixMilli(tt.millis).UTC(), tag.EditedAt)
			} else {
				assert.True(t, tag.EditedAt.IsZero())
			}
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	for _, raw := range []string{
		"",
		"GARBAGE",
		"USER",
		"USER_WROTE",
		"NOBODY_INPUT",
		"USER_INPUT_123", // timestamp only valid on EDITED/INPROCESS
		"ADMIN_EDITED_notanumber",
		"ADMIN_EDITED_123_456",
	} {
		t.Run(raw, func(t *testing.T) {
			tag, err := Parse(raw)
			require.ErrorIs(t, err, ErrUnparseable)
			assert.Equal(t, Unknown, tag)
			assert.Equal(t, 0, tag.Priority())
			assert.True(t, tag.Displayable(), "unknown entries stay visible")
		})
	}
}

func TestTag_String_Roundtrip(t *testing.T) {
	for _, raw := range []string{
		"USER_INPUT",
		"ADMIN_FINAL",
		"ADMIN_EDITED_1641234567890",
		"DELETE",
	} {
		tag, err := Parse(raw)
		require.NoError(t, err)
		assert.Equal(t, raw, tag.String())
	}
}

func TestPriority_Order(t *testing.T) {
	mustParse := func(raw string) Tag {
		tag, err := Parse(raw)
		require.NoError(t, err)
		return tag
	}

	// Action class dominates, then admin-side role beats user role.
	ordered := []string{
		"DELETE",
		"USER_INPUT",
		"ADMIN_INPUT",
		"USER_ACTIVE",
		"USER_EDITED_1700000000000",
		"ADMIN_EDITED_1700000000000",
		"USER_FINAL",
		"ADMIN_FINAL",
	}
	for i := 1; i < len(ordered); i++ {
		lo := mustParse(ordered[i-1])
		hi := mustParse(ordered[i])
		assert.Greater(t, hi.Priority(), lo.Priority(), "%s should outrank %s", ordered[i], ordered[i-1])
	}
}

func TestCompare(t *testing.T) {
	early, err := Parse("ADMIN_EDITED_1641234567890")
	require.NoError(t, err)
	late, err := Parse("ADMIN_EDITED_1641234599999")
	require.NoError(t, err)
	final, err := Parse("USER_FINAL")
	require.NoError(t, err)

	assert.Positive(t, late.Compare(early), "more recent edit wins at equal priority")
	assert.Negative(t, early.Compare(late))
	assert.Positive(t, final.Compare(late), "final beats edited regardless of timestamp")
	assert.Zero(t, late.Compare(late), "exact tie left to the caller")
}

func TestDisplayable(t *testing.T) {
	del, err := Parse("DELETE")
	require.NoError(t, err)
	assert.False(t, del.Displayable())
	assert.True(t, del.IsDelete())

	input, err := Parse("USER_INPUT")
	require.NoError(t, err)
	assert.True(t, input.Displayable())
	assert.False(t, input.IsDelete())
}
