package shared

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/eltaworks/workshop-suite/internal/platform/httpx"
)

func TestPinGuardPlain(t *testing.T) {
	guard := NewPinGuard("7091", "1111", "2222")

	require.NoError(t, guard.CheckAdmin("7091"))
	require.NoError(t, guard.CheckAdmin(" 7091 "))

	err := guard.CheckAdmin("0000")
	require.Error(t, err)
	require.True(t, errors.Is(err, httpx.ErrForbidden))
}

func TestPinGuardDual(t *testing.T) {
	guard := NewPinGuard("", "1111", "2222")

	require.NoError(t, guard.CheckDual("1111", "2222"))
	require.Error(t, guard.CheckDual("1111", "9999"))
	require.Error(t, guard.CheckDual("9999", "2222"))
}

func TestPinGuardBcrypt(t *testing.T) {
	hashed, err := bcrypt.GenerateFromPassword([]byte("7091"), bcrypt.MinCost)
	require.NoError(t, err)

	guard := NewPinGuard(string(hashed), "", "")
	require.NoError(t, guard.CheckAdmin("7091"))
	require.Error(t, guard.CheckAdmin("7092"))
}

func TestPinGuardEmptyConfigRejects(t *testing.T) {
	guard := NewPinGuard("", "", "")
	require.Error(t, guard.CheckAdmin(""))
	require.Error(t, guard.CheckDual("", ""))
}
