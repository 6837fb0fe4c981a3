package misc

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormattedAmount(t *testing.T) {
	testCases := []struct {
		amount   uint64
		decimals int32
		expected string
	}{
		{1_500_000, 6, "1.5"},
		{1_000_000, 6, "1"},
		{1, 6, "0.000001"},
		{0, 6, "0"},
		{12345, 0, "12345"},
		{18446744073709551615, 6, "18446744073709.551615"},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.expected, FormattedAmount(tc.amount, tc.decimals))
	}
}

func TestParseAmount(t *testing.T) {
	v, err := ParseAmount("1.5", 6)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_500_000), v)

	v, err = ParseAmount("42", 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), v)

	_, err = ParseAmount("0.0000001", 6)
	assert.ErrorIs(t, err, errTooPrecise)
	_, err = ParseAmount("-1", 6)
	assert.ErrorIs(t, err, errNegativeAmount)
	_, err = ParseAmount("18446744073709551616", 0)
	assert.ErrorIs(t, err, errAmountRange)
	_, err = ParseAmount("abc", 0)
	assert.Error(t, err)
}

func TestMinimalHandler(t *testing.T) {
	var out bytes.Buffer
	logger := slog.New(NewMinimalHandler(&out, MinimalHandlerOptions{SlogOpts: slog.HandlerOptions{Level: slog.LevelInfo}}))
	Infof(logger, "staked %d into %s", 5, "main")
	logger.Info("claimed", "owner", "alice")
	Debugf(logger, "not shown")

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "staked 5 into main", strings.TrimSpace(lines[0]))
	assert.Equal(t, `claimed {"owner":"alice"}`, lines[1])
}

func TestGetSecret(t *testing.T) {
	SetSecret("LPSTAKE_TEST_SECRET", "fallback")
	assert.Equal(t, "fallback", GetSecret("LPSTAKE_TEST_SECRET"))
	t.Setenv("LPSTAKE_TEST_SECRET", "fromenv")
	assert.Equal(t, "fromenv", GetSecret("LPSTAKE_TEST_SECRET"))
}
