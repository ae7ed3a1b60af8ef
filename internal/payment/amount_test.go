package payment

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestToMinorUnits(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"50", 5000},
		{"19.99", 1999},
		{"19.995", 2000},
		{"0.005", 1},
		{"0.01", 1},
		{"150.5", 15050},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ToMinorUnits(decimal.RequireFromString(tc.in))
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestToMinorUnitsRejectsNonPositive(t *testing.T) {
	for _, in := range []string{"0", "-1", "-0.01", "0.004", "1e30"} {
		t.Run(in, func(t *testing.T) {
			_, err := ToMinorUnits(decimal.RequireFromString(in))
			require.ErrorIs(t, err, errInvalidAmount)
		})
	}
}

func TestFromMinorUnits(t *testing.T) {
	require.True(t, FromMinorUnits(15000).Equal(decimal.RequireFromString("150")))
	require.Equal(t, 19.99, FromMinorUnits(1999).InexactFloat64())
}
