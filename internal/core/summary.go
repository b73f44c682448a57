package core

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// CategoryTotal is the amount spent in one category.
type CategoryTotal struct {
	Category Category
	Total    decimal.Decimal
}

// MonthTotal is the amount spent in one calendar month.
type MonthTotal struct {
	Year  int
	Month time.Month
	Label string // short month name, e.g. "Oct"
	Total decimal.Decimal
}

type StatusCounts struct {
	Pending  int
	Approved int
	Rejected int
}

// Anomaly describes a record that could not be fully aggregated.
type Anomaly struct {
	ExpenseID int64
	Reason    string
}

const (
	AnomalyMissingAmount = "missing amount"
	AnomalyMissingDate   = "missing date"
)

// Summary is the aggregate view over a filtered expense list.
type Summary struct {
	ByCategory   []CategoryTotal
	ByMonth      []MonthTotal
	StatusCounts StatusCounts
	Total        decimal.Decimal
	Count        int
	Anomalies    []Anomaly
}

// Aggregate reduces expenses to category, month and status totals.
//
// Categories keep first-seen order. Months are ordered chronologically.
// A record with no amount counts as zero and is reported in Anomalies, a
// record with no date is left out of ByMonth. Unknown statuses are not
// counted.
func Aggregate(expenses []Expense) Summary {
	s := Summary{Total: decimal.Zero, Count: len(expenses)}

	catIndex := map[Category]int{}
	monthTotals := map[int]decimal.Decimal{}

	for _, e := range expenses {
		amount := decimal.Zero
		if e.Amount.Valid {
			amount = e.Amount.Decimal
		} else {
			s.Anomalies = append(s.Anomalies, Anomaly{ExpenseID: e.ID, Reason: AnomalyMissingAmount})
		}

		if i, ok := catIndex[e.Category]; ok {
			s.ByCategory[i].Total = s.ByCategory[i].Total.Add(amount)
		} else {
			catIndex[e.Category] = len(s.ByCategory)
			s.ByCategory = append(s.ByCategory, CategoryTotal{Category: e.Category, Total: amount})
		}

		if e.Date.IsZero() {
			s.Anomalies = append(s.Anomalies, Anomaly{ExpenseID: e.ID, Reason: AnomalyMissingDate})
		} else {
			key := monthKey(e.Date)
			monthTotals[key] = monthTotals[key].Add(amount)
		}

		switch e.Status {
		case StatusPending:
			s.StatusCounts.Pending++
		case StatusApproved:
			s.StatusCounts.Approved++
		case StatusRejected:
			s.StatusCounts.Rejected++
		}

		s.Total = s.Total.Add(amount)
	}

	keys := make([]int, 0, len(monthTotals))
	for k := range monthTotals {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	for _, k := range keys {
		year, month := k/12, time.Month(k%12+1)
		s.ByMonth = append(s.ByMonth, MonthTotal{
			Year:  year,
			Month: month,
			Label: month.String()[:3],
			Total: monthTotals[k],
		})
	}

	return s
}

func monthKey(d Date) int {
	return d.Year()*12 + int(d.Month()) - 1
}

// Recent returns up to n expenses, newest date first, ties broken by the
// higher id.
func Recent(expenses []Expense, n int) []Expense {
	out := make([]Expense, len(expenses))
	copy(out, expenses)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.After(out[j].Date.Time)
		}
		return out[i].ID > out[j].ID
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
