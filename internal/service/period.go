package service

import (
	"fmt"
	"time"

	"github.com/boddenberg/spendsense-go/internal/domain"
)

// PeriodRange returns the half-open calendar interval [start, end) of period
// that contains now, in now's location. Weeks start on Monday.
func PeriodRange(period domain.Period, now time.Time) (time.Time, time.Time, error) {
	return periodRange(period, now, time.Monday)
}

func periodRange(period domain.Period, now time.Time, weekStart time.Weekday) (time.Time, time.Time, error) {
	loc := now.Location()
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	switch period {
	case domain.PeriodDaily:
		return day, day.AddDate(0, 0, 1), nil
	case domain.PeriodWeekly:
		back := (int(now.Weekday()) - int(weekStart) + 7) % 7
		start := day.AddDate(0, 0, -back)
		return start, start.AddDate(0, 0, 7), nil
	case domain.PeriodMonthly:
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
		return start, start.AddDate(0, 1, 0), nil
	case domain.PeriodYearly:
		start := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, loc)
		return start, start.AddDate(1, 0, 0), nil
	default:
		return time.Time{}, time.Time{}, &domain.ValidationError{
			Messages: []string{fmt.Sprintf("Unknown budget period %q", period)},
		}
	}
}

// ExpensesInPeriod selects the expenses whose date, read in now's location,
// falls inside the period containing now. Weeks start on Monday.
func ExpensesInPeriod(expenses []domain.Expense, period domain.Period, now time.Time) ([]domain.Expense, error) {
	start, end, err := PeriodRange(period, now)
	if err != nil {
		return nil, err
	}
	return selectBetween(expenses, start, end), nil
}

func selectBetween(expenses []domain.Expense, start, end time.Time) []domain.Expense {
	loc := start.Location()
	out := make([]domain.Expense, 0, len(expenses))
	for _, e := range expenses {
		if e.OccurredAt.IsZero() {
			continue
		}
		at := e.OccurredAt.In(loc)
		if !at.Before(start) && at.Before(end) {
			out = append(out, e)
		}
	}
	return out
}
