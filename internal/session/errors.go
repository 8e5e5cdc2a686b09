package session

import (
	"fmt"

	"github.com/hrmate/hrmate/internal/hrerr"
)

// Sentinel errors for session operations, checked with errors.Is. Both
// carry their domain error kind so HTTP mapping works unchanged.
var (
	// ErrNotFound indicates the requested session does not exist.
	ErrNotFound = fmt.Errorf("%w: session", hrerr.ErrNotFound)

	// ErrInvalidRole indicates a message carries a role outside the
	// known set.
	ErrInvalidRole = fmt.Errorf("%w: invalid message role", hrerr.ErrValidation)
)

var validRoles = map[string]bool{
	RoleUser:      true,
	RoleAssistant: true,
	RoleSystem:    true,
	RoleTool:      true,
}
