package valueobjects

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBillingCycle(t *testing.T) {
	for _, in := range []string{"monthly", " MONTHLY ", "Monthly"} {
		got, err := ParseBillingCycle(in)
		require.NoError(t, err)
		assert.Equal(t, BillingCycleMonthly, got)
	}

	for _, in := range []string{"", "weekly", "quarterly"} {
		_, err := ParseBillingCycle(in)
		assert.ErrorIs(t, err, ErrInvalidBillingCycle, in)
	}
}

func TestBillingCycle_PeriodEnd(t *testing.T) {
	start := time.Date(2025, time.January, 31, 10, 0, 0, 0, time.UTC)

	monthly := BillingCycleMonthly.PeriodEnd(start)
	require.NotNil(t, monthly)
	assert.Equal(t, start.AddDate(0, 1, 0), *monthly)

	yearly := BillingCycleYearly.PeriodEnd(start)
	require.NotNil(t, yearly)
	assert.Equal(t, 2026, yearly.Year())

	assert.Nil(t, BillingCycleLifetime.PeriodEnd(start))
}

func TestParseResourceType(t *testing.T) {
	got, err := ParseResourceType("Team-Members")
	require.NoError(t, err)
	assert.Equal(t, ResourceTeamMembers, got)

	_, err = ParseResourceType("webhooks")
	assert.ErrorIs(t, err, ErrUnknownResourceType)

	assert.True(t, ResourceMessages.ResetsMonthly())
	assert.False(t, ResourceContacts.ResetsMonthly())
}

func TestParseMessageCategory(t *testing.T) {
	c, err := ParseMessageCategory("")
	require.NoError(t, err)
	assert.Empty(t, c)

	c, err = ParseMessageCategory("Utility")
	require.NoError(t, err)
	assert.Equal(t, MessageCategoryUtility, c)

	_, err = ParseMessageCategory("promo")
	assert.ErrorIs(t, err, ErrUnknownMessageCategory)
}

func TestLimit(t *testing.T) {
	t.Run("unlimited always allows", func(t *testing.T) {
		l := Unlimited()
		assert.True(t, l.Allows(1_000_000))
		assert.Equal(t, int64(-1), l.Remaining(5))
		assert.Equal(t, int64(-1), l.Wire())
		_, finite := l.Value()
		assert.False(t, finite)
	})

	t.Run("at the cap is refused", func(t *testing.T) {
		l := LimitOf(10)
		assert.True(t, l.Allows(9))
		assert.False(t, l.Allows(10))
		assert.Equal(t, int64(0), l.Remaining(10))
		assert.Equal(t, int64(0), l.Remaining(15))
		assert.Equal(t, int64(3), l.Remaining(7))
	})

	t.Run("wire form", func(t *testing.T) {
		l, err := LimitFromWire(-1)
		require.NoError(t, err)
		assert.True(t, l.IsUnlimited())

		_, err = LimitFromWire(-2)
		assert.ErrorIs(t, err, ErrInvalidLimit)

		var decoded struct {
			Contacts Limit `json:"contacts"`
		}
		require.NoError(t, json.Unmarshal([]byte(`{"contacts":-1}`), &decoded))
		assert.True(t, decoded.Contacts.IsUnlimited())

		out, err := json.Marshal(LimitOf(500))
		require.NoError(t, err)
		assert.JSONEq(t, `500`, string(out))
	})

	t.Run("missing resource has zero cap", func(t *testing.T) {
		ls := Limits{ResourceContacts: Unlimited()}
		assert.False(t, ls.For(ResourceNumbers).Allows(0))
	})
}

func TestLimitsFromWire(t *testing.T) {
	ls, err := LimitsFromWire(map[string]int64{"contacts": 1000, "messages": -1})
	require.NoError(t, err)
	assert.True(t, ls.For(ResourceMessages).IsUnlimited())
	assert.Equal(t, map[string]int64{"contacts": 1000, "messages": -1}, ls.Wire())

	_, err = LimitsFromWire(map[string]int64{"webhooks": 1})
	assert.Error(t, err)
}

func TestRoundMoney_HalfAwayFromZero(t *testing.T) {
	assert.Equal(t, "10.13", RoundMoney(decimal.RequireFromString("10.125")).StringFixed(2))
	assert.Equal(t, "-10.13", RoundMoney(decimal.RequireFromString("-10.125")).StringFixed(2))
	assert.Equal(t, "0.33", RoundMoney(decimal.NewFromInt(1).Div(decimal.NewFromInt(3))).StringFixed(2))
}

func TestPrices(t *testing.T) {
	p, err := PricesFromWire(map[string]decimal.Decimal{
		"monthly": decimal.RequireFromString("29.999"),
		"YEARLY":  decimal.NewFromInt(299),
	})
	require.NoError(t, err)

	price, ok := p.For(BillingCycleMonthly)
	assert.True(t, ok)
	assert.Equal(t, "30.00", price.StringFixed(2))

	_, ok = p.For(BillingCycleLifetime)
	assert.False(t, ok)

	_, err = PricesFromWire(map[string]decimal.Decimal{"MONTHLY": decimal.NewFromInt(-1)})
	assert.ErrorIs(t, err, ErrNegativeAmount)
}
