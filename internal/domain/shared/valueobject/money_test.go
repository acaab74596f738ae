package valueobject

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMoney(t *testing.T) {
	t.Run("valid money", func(t *testing.T) {
		m, err := NewMoney(decimal.NewFromInt(100), USD)
		require.NoError(t, err)
		assert.True(t, m.Amount().Equal(decimal.NewFromInt(100)))
		assert.Equal(t, USD, m.Currency())
	})

	t.Run("empty currency rejected", func(t *testing.T) {
		_, err := NewMoney(decimal.NewFromInt(100), "")
		assert.Error(t, err)
	})

	t.Run("negative amount allowed", func(t *testing.T) {
		m, err := NewMoney(decimal.NewFromInt(-50), USD)
		require.NoError(t, err)
		assert.True(t, m.IsNegative())
	})
}

func TestMoneyArithmetic(t *testing.T) {
	a := NewMoneyUSD(decimal.NewFromInt(100))
	b := NewMoneyUSD(decimal.NewFromInt(30))

	t.Run("add", func(t *testing.T) {
		sum, err := a.Add(b)
		require.NoError(t, err)
		assert.True(t, sum.Amount().Equal(decimal.NewFromInt(130)))
	})

	t.Run("subtract", func(t *testing.T) {
		diff, err := a.Subtract(b)
		require.NoError(t, err)
		assert.True(t, diff.Amount().Equal(decimal.NewFromInt(70)))
	})

	t.Run("multiply", func(t *testing.T) {
		product := b.Multiply(decimal.NewFromInt(3))
		assert.True(t, product.Amount().Equal(decimal.NewFromInt(90)))
	})

	t.Run("currency mismatch", func(t *testing.T) {
		eur, _ := NewMoney(decimal.NewFromInt(10), EUR)
		_, err := a.Add(eur)
		assert.Error(t, err)
		_, err = a.Subtract(eur)
		assert.Error(t, err)
	})

	t.Run("negate", func(t *testing.T) {
		neg := a.Negate()
		assert.True(t, neg.Amount().Equal(decimal.NewFromInt(-100)))
	})
}

func TestMoneyComparisons(t *testing.T) {
	a := NewMoneyUSD(decimal.NewFromInt(100))
	b := NewMoneyUSD(decimal.NewFromInt(30))

	lt, err := b.LessThan(a)
	require.NoError(t, err)
	assert.True(t, lt)

	gte, err := a.GreaterThanOrEqual(b)
	require.NoError(t, err)
	assert.True(t, gte)

	gte, err = a.GreaterThanOrEqual(a)
	require.NoError(t, err)
	assert.True(t, gte)

	assert.True(t, a.Equals(NewMoneyUSD(decimal.NewFromInt(100))))
	assert.False(t, a.Equals(b))
}

func TestMoneyJSON(t *testing.T) {
	m := NewMoneyUSD(decimal.NewFromFloat(49.99))

	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount":"49.99","currency":"USD"}`, string(data))

	var decoded Money
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, m.Equals(decoded))
}

func TestMoneyScan(t *testing.T) {
	t.Run("string value", func(t *testing.T) {
		var m Money
		require.NoError(t, m.Scan("12.3400"))
		assert.True(t, m.Amount().Equal(decimal.NewFromFloat(12.34)))
		assert.Equal(t, DefaultCurrency, m.Currency())
	})

	t.Run("nil value", func(t *testing.T) {
		var m Money
		require.NoError(t, m.Scan(nil))
		assert.True(t, m.IsZero())
	})

	t.Run("unsupported type", func(t *testing.T) {
		var m Money
		assert.Error(t, m.Scan(12.34))
	})
}
