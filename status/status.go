// Package status decodes the raw status strings attached to worktime
// entries into an explicit (role, action, timestamp) tag and defines the
// total priority order the merge uses to resolve conflicting edits.
//
// The raw grammar is ROLE_ACTION[_unixmillis], e.g. "USER_INPUT",
// "ADMIN_EDITED_1641234567890", plus the bare marker "DELETE". Anything
// else decodes to the Unknown tag instead of failing the caller.
package status

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrUnparseable reports a raw status string that does not match the
// expected grammar. Callers treat the entry as Unknown (lowest priority,
// displayable) rather than aborting.
var ErrUnparseable = errors.New("unparseable status string")

type Role string

const (
	RoleSystem  Role = "SYSTEM"
	RoleAdmin   Role = "ADMIN"
	RoleUser    Role = "USER"
	RoleTeam    Role = "TEAM"
	RoleUnknown Role = "UNKNOWN"
)

type Action string

const (
	ActionInput     Action = "INPUT"
	ActionEdited    Action = "EDITED"
	ActionFinal     Action = "FINAL"
	ActionInProcess Action = "INPROCESS"
	ActionDelete    Action = "DELETE"
	ActionUnknown   Action = "UNKNOWN"
)

// Tag is the decoded form of a raw status string.
type Tag struct {
	Role   Role
	Action Action
	// EditedAt is set only for EDITED (and optionally INPROCESS, where it
	// marks the start of the implicit edit lock).
	EditedAt time.Time
}

// Unknown is the tag assigned to undecodable status strings.
var Unknown = Tag{Role: RoleUnknown, Action: ActionUnknown}

// Parse decodes a raw status string. On grammar violations it returns the
// Unknown tag together with ErrUnparseable; the tag is always usable.
func Parse(raw string) (Tag, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Unknown, fmt.Errorf("%w: empty", ErrUnparseable)
	}

	// Bare delete marker, written without a role prefix.
	if raw == string(ActionDelete) {
		return Tag{Role: RoleSystem, Action: ActionDelete}, nil
	}

	parts := strings.Split(raw, "_")
	if len(parts) < 2 || len(parts) > 3 {
		return Unknown, fmt.Errorf("%w: %q", ErrUnparseable, raw)
	}

	role, ok := parseRole(parts[0])
	if !ok {
		return Unknown, fmt.Errorf("%w: unknown role in %q", ErrUnparseable, raw)
	}
	action, ok := parseAction(parts[1])
	if !ok {
		return Unknown, fmt.Errorf("%w: unknown action in %q", ErrUnparseable, raw)
	}

	tag := Tag{Role: role, Action: action}
	if len(parts) == 3 {
		if action != ActionEdited && action != ActionInProcess {
			return Unknown, fmt.Errorf("%w: timestamp not allowed on %s in %q", ErrUnparseable, action, raw)
		}
		millis, err := strconv.ParseInt(parts[2], 10, 64)
		if err != nil || millis < 0 {
			return Unknown, fmt.Errorf("%w: bad timestamp in %q", ErrUnparseable, raw)
		}
		tag.EditedAt = time.UnixMilli(millis).UTC()
	}
	return tag, nil
}

func parseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleSystem, RoleAdmin, RoleUser, RoleTeam:
		return Role(s), true
	}
	return RoleUnknown, false
}

func parseAction(s string) (Action, bool) {
	switch s {
	case "INPUT":
		return ActionInput, true
	case "EDITED":
		return ActionEdited, true
	case "FINAL":
		return ActionFinal, true
	case "INPROCESS", "ACTIVE":
		return ActionInProcess, true
	case "DELETE":
		return ActionDelete, true
	}
	return ActionUnknown, false
}

// String re-encodes the tag in the raw wire form.
func (t Tag) String() string {
	if t.Action == ActionUnknown || t.Role == RoleUnknown {
		return "UNKNOWN"
	}
	if t.Action == ActionDelete && t.Role == RoleSystem {
		return string(ActionDelete)
	}
	if !t.EditedAt.IsZero() {
		return fmt.Sprintf("%s_%s_%d", t.Role, t.Action, t.EditedAt.UnixMilli())
	}
	return fmt.Sprintf("%s_%s", t.Role, t.Action)
}

// Priority returns the conflict-resolution rank. Higher wins. The action
// class dominates; within an equal class the admin-side roles outrank the
// user role.
func (t Tag) Priority() int {
	return t.actionClass()*10 + t.roleRank()
}

func (t Tag) actionClass() int {
	switch t.Action {
	case ActionFinal:
		return 4
	case ActionEdited:
		return 3
	case ActionInProcess:
		return 2
	case ActionInput:
		return 1
	default: // Delete, Unknown
		return 0
	}
}

func (t Tag) roleRank() int {
	switch t.Role {
	case RoleAdmin, RoleTeam, RoleSystem:
		return 2
	case RoleUser:
		return 1
	default:
		return 0
	}
}

// Displayable reports whether an entry carrying this tag may appear in
// user-visible output. Only delete instructions are hidden.
func (t Tag) Displayable() bool {
	return t.Action != ActionDelete
}

// IsDelete reports whether the tag is an explicit removal instruction.
func (t Tag) IsDelete() bool {
	return t.Action == ActionDelete
}

// Compare orders two tags for conflict resolution: priority first, then
// most recent EditedAt. It returns a positive value when t outranks other,
// negative when other outranks t, and zero on an exact tie; the caller
// applies its own deterministic tie-break on zero.
func (t Tag) Compare(other Tag) int {
	if d := t.Priority() - other.Priority(); d != 0 {
		return d
	}
	if t.EditedAt.After(other.EditedAt) {
		return 1
	}
	if other.EditedAt.After(t.EditedAt) {
		return -1
	}
	return 0
}
