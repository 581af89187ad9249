package validator

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateEmail(t *testing.T) {
	require.True(t, ValidateEmail("user@example.com"))
	require.False(t, ValidateEmail("not-an-email"))
	require.False(t, ValidateEmail(""))
}

func TestValidatePassword(t *testing.T) {
	require.False(t, ValidatePassword("Sup3rSecret").HasErrors())

	require.True(t, ValidatePassword("short").HasErrors())
	require.True(t, ValidatePassword("alllowercase1").HasErrors())
	require.True(t, ValidatePassword("ALLUPPERCASE1").HasErrors())
	require.True(t, ValidatePassword("NoNumbersHere").HasErrors())
}

func TestValidateTitle(t *testing.T) {
	require.True(t, ValidateTitle("On the Electrodynamics of Moving Bodies"))
	require.False(t, ValidateTitle("   "))
	require.False(t, ValidateTitle(string(make([]byte, 301))))
}

func TestSanitize(t *testing.T) {
	require.Equal(t, "abc", SanitizeString("  abc  ", 10))
	require.Equal(t, "ab", SanitizeString("abcd", 2))
	require.Equal(t, "user@example.com", SanitizeEmail("  User@Example.COM "))
}
