package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFromDecimal(t *testing.T) {
	tests := []struct {
		name      string
		amount    decimal.Decimal
		wantCents int64
	}{
		{"whole", decimal.NewFromInt(1250), 125000},
		{"fraction", decimal.NewFromFloat(125.50), 12550},
		{"rounds half up", decimal.NewFromFloat(0.005), 1},
		{"zero", decimal.Zero, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewFromDecimal(tt.amount, DOP)
			assert.Equal(t, tt.wantCents, m.Amount())
			assert.Equal(t, DOP, m.Currency())
		})
	}
}

func TestAdd(t *testing.T) {
	a := New(10050, DOP)
	b := New(4950, DOP)

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.Equal(t, int64(15000), sum.Amount())

	_, err = a.Add(New(100, "USD"))
	assert.Error(t, err, "currency mismatch")
}

func TestPercentageDecimal(t *testing.T) {
	net := NewFromDecimal(decimal.NewFromInt(1500), DOP)

	commission := net.PercentageDecimal(decimal.NewFromFloat(12.5))
	assert.Equal(t, int64(18750), commission.Amount())

	assert.True(t, net.PercentageDecimal(decimal.Zero).IsZero())
}

func TestToDecimal(t *testing.T) {
	m := New(12550, DOP)
	assert.True(t, m.ToDecimal().Equal(decimal.NewFromFloat(125.50)))

	var nilMoney *Money
	assert.True(t, nilMoney.ToDecimal().IsZero())
}

func TestSplit(t *testing.T) {
	m := New(100, DOP)

	parts, err := m.Split(3)
	require.NoError(t, err)
	require.Len(t, parts, 3)
	assert.Equal(t, int64(34), parts[0].Amount())
	assert.Equal(t, int64(33), parts[1].Amount())
	assert.Equal(t, int64(33), parts[2].Amount())

	_, err = m.Split(0)
	assert.Error(t, err)
}

func TestString(t *testing.T) {
	assert.Equal(t, "125.50", New(12550, DOP).String())

	var nilMoney *Money
	assert.Equal(t, "0.00", nilMoney.String())
}
