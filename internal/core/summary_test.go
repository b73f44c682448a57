package core

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregate(t *testing.T) {
	users, expenses := fixture()
	admin := userByID(users, 1)

	s := Aggregate(VisibleExpenses(expenses, admin, users))

	require.Len(t, s.ByCategory, 3)
	assert.Equal(t, CategoryTravel, s.ByCategory[0].Category)
	assert.Equal(t, "10.40", FormatAmount(s.ByCategory[0].Total))
	assert.Equal(t, CategoryFood, s.ByCategory[1].Category)
	assert.Equal(t, "21.31", FormatAmount(s.ByCategory[1].Total))
	assert.Equal(t, CategoryOther, s.ByCategory[2].Category)
	assert.Equal(t, "5.00", FormatAmount(s.ByCategory[2].Total))

	require.Len(t, s.ByMonth, 4)
	labels := make([]string, 0, len(s.ByMonth))
	for _, m := range s.ByMonth {
		labels = append(labels, m.Label)
	}
	assert.Equal(t, []string{"Dec", "Jan", "Sep", "Oct"}, labels)
	assert.Equal(t, 2024, s.ByMonth[0].Year)
	assert.Equal(t, time.October, s.ByMonth[3].Month)
	assert.Equal(t, "10.40", FormatAmount(s.ByMonth[3].Total))

	assert.Equal(t, StatusCounts{Pending: 2, Approved: 2, Rejected: 1}, s.StatusCounts)
	assert.Equal(t, "36.71", FormatAmount(s.Total))
	assert.Equal(t, 5, s.Count)
	assert.Empty(t, s.Anomalies)
}

func TestAggregateTotalMatchesIndependentSum(t *testing.T) {
	users, expenses := fixture()

	for _, u := range users {
		visible := VisibleExpenses(expenses, u, users)
		want := decimal.Zero
		for _, e := range visible {
			want = want.Add(e.Amount.Decimal)
		}
		got := Aggregate(visible)
		assert.True(t, want.Equal(got.Total), "user %d: want %s got %s", u.ID, want, got.Total)

		catSum := decimal.Zero
		for _, c := range got.ByCategory {
			catSum = catSum.Add(c.Total)
		}
		assert.True(t, want.Equal(catSum), "user %d: category totals drift", u.ID)
	}
}

func TestAggregateNoFloatDrift(t *testing.T) {
	var expenses []Expense
	for i := 0; i < 1000; i++ {
		expenses = append(expenses, Expense{ID: int64(i + 1), Amount: amount("0.10"), Category: CategoryFood, Date: NewDate(2025, 1, 1), Status: StatusPending})
	}
	s := Aggregate(expenses)
	assert.Equal(t, "100.00", FormatAmount(s.Total))
	assert.True(t, s.Total.Equal(decimal.NewFromInt(100)))
}

func TestAggregateToleratesBrokenRecords(t *testing.T) {
	expenses := []Expense{
		{ID: 1, Amount: decimal.NullDecimal{}, Category: CategoryTravel, Date: NewDate(2025, 3, 1), Status: StatusPending},
		{ID: 2, Amount: amount("12.5"), Category: CategoryTravel, Status: "archived"},
		{ID: 3, Amount: amount("7.5"), Category: CategoryOffice, Date: NewDate(2025, 3, 9), Status: StatusApproved},
	}

	s := Aggregate(expenses)

	assert.Equal(t, "20.00", FormatAmount(s.Total))
	assert.Equal(t, StatusCounts{Pending: 1, Approved: 1}, s.StatusCounts)
	require.Len(t, s.ByCategory, 2)
	assert.Equal(t, "12.50", FormatAmount(s.ByCategory[0].Total))
	require.Len(t, s.ByMonth, 1)
	assert.Equal(t, "7.50", FormatAmount(s.ByMonth[0].Total))
	assert.ElementsMatch(t, []Anomaly{
		{ExpenseID: 1, Reason: AnomalyMissingAmount},
		{ExpenseID: 2, Reason: AnomalyMissingDate},
	}, s.Anomalies)
}

func TestAggregateEmpty(t *testing.T) {
	s := Aggregate(nil)
	assert.True(t, s.Total.IsZero())
	assert.Zero(t, s.Count)
	assert.Empty(t, s.ByCategory)
	assert.Empty(t, s.ByMonth)
}

func TestRecent(t *testing.T) {
	_, expenses := fixture()

	got := Recent(expenses, 3)
	assert.Equal(t, []int64{3, 1, 4}, ids(got))
	assert.Len(t, Recent(expenses, 50), len(expenses))
	// input order untouched
	assert.Equal(t, []int64{1, 2, 3, 4, 5, 6}, ids(expenses))
}
