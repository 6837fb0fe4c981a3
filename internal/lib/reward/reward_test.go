package reward

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRewardsOwed(t *testing.T) {
	testCases := []struct {
		name       string
		amount     uint64
		elapsed    int64
		multiplier uint64
		expected   uint64
		overflow   bool
	}{
		{"basic", 100, 10, 5, 5, false},
		{"floors", 100, 10, 1, 1, false},
		{"below scale", 1, 999, 1, 0, false},
		{"exact scale", 1, 1000, 1, 1, false},
		{"zero amount", 0, 1000, 7, 0, false},
		{"zero elapsed", 1000, 0, 7, 0, false},
		{"negative elapsed clamps", 1000, -50, 7, 0, false},
		{"zero multiplier", 1000, 50, 0, 0, false},
		{"max without overflow", math.MaxUint64, 1, 1, math.MaxUint64 / Scale, false},
		{"first product overflows", math.MaxUint64, 2, 1, 0, true},
		{"second product overflows", math.MaxUint64 / 2, 2, 2, 0, true},
		{"zero elapsed never overflows", math.MaxUint64, 0, math.MaxUint64, 0, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := RewardsOwed(tc.amount, tc.elapsed, tc.multiplier)
			if tc.overflow {
				assert.ErrorIs(t, err, ErrOverflow)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestRewardsOwedDeterministic(t *testing.T) {
	for i := 0; i < 10; i++ {
		got, err := RewardsOwed(100, 10, 5)
		require.NoError(t, err)
		assert.Equal(t, uint64(5), got)
	}
}

func TestCheckedMath(t *testing.T) {
	v, err := CheckedAdd(math.MaxUint64-1, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(math.MaxUint64), v)

	_, err = CheckedAdd(math.MaxUint64, 1)
	assert.ErrorIs(t, err, ErrOverflow)

	v, err = CheckedSub(10, 3)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), v)

	_, err = CheckedSub(3, 10)
	assert.ErrorIs(t, err, ErrOverflow)

	_, err = CheckedMul(1<<32, 1<<32)
	assert.ErrorIs(t, err, ErrOverflow)

	v, err = MulDiv(100, 10, 1000)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), v)

	// only the quotient has to fit
	v, err = MulDiv(math.MaxUint64, 1000, 1000)
	require.NoError(t, err)
	assert.Equal(t, uint64(math.MaxUint64), v)

	_, err = MulDiv(math.MaxUint64, 2, 1)
	assert.ErrorIs(t, err, ErrOverflow)

	_, err = MulDiv(1, 1, 0)
	assert.Error(t, err)
}

func TestElapsed(t *testing.T) {
	assert.Equal(t, int64(10), Elapsed(5, 15))
	assert.Equal(t, int64(0), Elapsed(15, 15))
	assert.Equal(t, int64(0), Elapsed(20, 15))
}
