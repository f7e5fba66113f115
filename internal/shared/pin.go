package shared

import (
	"crypto/subtle"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/eltaworks/workshop-suite/internal/platform/httpx"
)

// PinGuard holds the shop-floor admin PINs. These are shared capability
// secrets configured per deployment, not user identities. A configured value
// starting with a bcrypt marker is treated as a hash.
type PinGuard struct {
	admin string
	pin1  string
	pin2  string
}

// NewPinGuard constructs a guard from configuration.
func NewPinGuard(admin, pin1, pin2 string) *PinGuard {
	return &PinGuard{admin: admin, pin1: pin1, pin2: pin2}
}

func pinMatches(configured, submitted string) bool {
	configured = strings.TrimSpace(configured)
	submitted = strings.TrimSpace(submitted)
	if configured == "" {
		return false
	}
	if strings.HasPrefix(configured, "$2a$") || strings.HasPrefix(configured, "$2b$") {
		return bcrypt.CompareHashAndPassword([]byte(configured), []byte(submitted)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(configured), []byte(submitted)) == 1
}

// CheckAdmin verifies the single admin PIN.
func (g *PinGuard) CheckAdmin(pin string) error {
	if !pinMatches(g.admin, pin) {
		return fmt.Errorf("%w: invalid PIN", httpx.ErrForbidden)
	}
	return nil
}

// CheckDual verifies both manage PINs. Material and complaint edits require
// the pair.
func (g *PinGuard) CheckDual(pin1, pin2 string) error {
	ok1 := pinMatches(g.pin1, pin1)
	ok2 := pinMatches(g.pin2, pin2)
	if !ok1 || !ok2 {
		return fmt.Errorf("%w: invalid PINs", httpx.ErrForbidden)
	}
	return nil
}
