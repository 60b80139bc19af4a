package valueobject

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMoney(t *testing.T) {
	t.Run("creates money with valid amount and currency", func(t *testing.T) {
		m, err := NewMoney(decimal.NewFromFloat(100.50), USD)
		require.NoError(t, err)
		assert.Equal(t, USD, m.Currency())
		assert.True(t, m.Amount().Equal(decimal.NewFromFloat(100.50)))
	})

	t.Run("returns error for empty currency", func(t *testing.T) {
		_, err := NewMoney(decimal.NewFromFloat(100), "")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "currency cannot be empty")
	})
}

func TestParseMoney(t *testing.T) {
	t.Run("parses combined amount and currency", func(t *testing.T) {
		m, err := ParseMoney("123.45 USD")
		require.NoError(t, err)
		assert.Equal(t, USD, m.Currency())
		assert.True(t, m.Amount().Equal(decimal.NewFromFloat(123.45)))
	})

	t.Run("lower-case currency code is normalized", func(t *testing.T) {
		m, err := ParseMoney("99.90 vnd")
		require.NoError(t, err)
		assert.Equal(t, VND, m.Currency())
	})

	t.Run("surrounding whitespace is tolerated", func(t *testing.T) {
		m, err := ParseMoney("  10.00   EUR  ")
		require.NoError(t, err)
		assert.Equal(t, EUR, m.Currency())
		assert.True(t, m.Amount().Equal(decimal.NewFromInt(10)))
	})

	t.Run("rejects bare amount without currency", func(t *testing.T) {
		_, err := ParseMoney("123.45")
		assert.Error(t, err)
	})

	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseMoney("")
		assert.Error(t, err)
	})

	t.Run("rejects non-numeric amount", func(t *testing.T) {
		_, err := ParseMoney("abc USD")
		assert.Error(t, err)
	})
}

func TestMoneyAdd(t *testing.T) {
	t.Run("adds same-currency amounts", func(t *testing.T) {
		a, _ := NewMoney(decimal.NewFromInt(100), USD)
		b, _ := NewMoney(decimal.NewFromInt(50), USD)
		sum, err := a.Add(b)
		require.NoError(t, err)
		assert.True(t, sum.Amount().Equal(decimal.NewFromInt(150)))
	})

	t.Run("rejects mixed currencies", func(t *testing.T) {
		a, _ := NewMoney(decimal.NewFromInt(100), USD)
		b, _ := NewMoney(decimal.NewFromInt(50), VND)
		_, err := a.Add(b)
		assert.Error(t, err)
	})
}

func TestMoneyConvert(t *testing.T) {
	m, _ := NewMoney(decimal.NewFromInt(100), USD)
	rate := decimal.NewFromFloat(25400.5)
	converted := m.Convert(rate, VND)
	assert.Equal(t, VND, converted.Currency())
	assert.True(t, converted.Amount().Equal(decimal.NewFromFloat(2540050)))
}

func TestMoneyRound(t *testing.T) {
	m, _ := NewMoney(decimal.NewFromFloat(10.005), USD)
	assert.Equal(t, "10.01", m.Round(2).Amount().String())
}

func TestMoneyString(t *testing.T) {
	m, _ := NewMoney(decimal.NewFromFloat(123.45), SGD)
	assert.Equal(t, "123.45 SGD", m.String())
}
