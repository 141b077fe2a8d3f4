package event

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseMonthKey(t *testing.T) {
	key, err := ParseMonthKey("2026-02")
	require.NoError(t, err)
	require.Equal(t, MonthKey("2026-02"), key)

	for _, s := range []string{"2026-2", "2026-13", "2026-02-01", "202602", "abcd-ef", ""} {
		_, err := ParseMonthKey(s)
		require.ErrorIs(t, err, ErrInvalidMonthKey, "input %q", s)
	}
}

func TestMonthKey_Before(t *testing.T) {
	require.True(t, MonthKey("2025-12").Before("2026-01"))
	require.False(t, MonthKey("2026-02").Before("2026-01"))
	require.False(t, MonthKey("2026-01").Before("2026-01"))
}

func TestParseKind(t *testing.T) {
	kind, err := ParseKind("proposal")
	require.NoError(t, err)
	require.Equal(t, KindProposal, kind)

	kind, err = ParseKind("approval")
	require.NoError(t, err)
	require.Equal(t, KindApproval, kind)

	_, err = ParseKind("rejection")
	require.ErrorIs(t, err, ErrInvalidKind)
}
