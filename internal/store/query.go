package store

import (
	"fmt"
	"strings"

	"nutritrack/internal/datekey"
)

const (
	DefaultLimit = 100
	MaxLimit     = 500
)

// Page is an explicit limit/offset pair. Zero Limit means DefaultLimit.
type Page struct {
	Limit  int
	Offset int
}

func (p Page) normalized() Page {
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// DateRange bounds a query; either end may be nil.
type DateRange struct {
	From *datekey.Date
	To   *datekey.Date
}

func (r DateRange) validate() error {
	if r.From != nil && r.To != nil && r.To.Before(*r.From) {
		return invalid("date range", "end is before start")
	}
	return nil
}

// filter accumulates positional-parameter WHERE clauses. Conditions are fixed strings with a
// single %d placeholder for the argument index; values never touch the SQL text.
type filter struct {
	clauses []string
	args    []any
}

func newFilter(cond string, arg any) *filter {
	f := &filter{}
	return f.and(cond, arg)
}

func (f *filter) and(cond string, arg any) *filter {
	f.args = append(f.args, arg)
	f.clauses = append(f.clauses, fmt.Sprintf(cond, len(f.args)))
	return f
}

func (f *filter) where() string {
	return "WHERE " + strings.Join(f.clauses, " AND ")
}

// page appends LIMIT/OFFSET as parameters and returns the clause.
func (f *filter) page(p Page) string {
	p = p.normalized()
	f.args = append(f.args, p.Limit, p.Offset)
	return fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(f.args)-1, len(f.args))
}

// referenceDay resolves "today" for future-date checks. Callers may pass the user's local
// calendar day, which can lead or trail the server's day by at most one.
func referenceDay(clock datekey.Clock, local *datekey.Date) (datekey.Date, error) {
	today := datekey.Today(clock)
	if local == nil {
		return today, nil
	}
	if d := local.DaysSince(today); d > 1 || d < -1 {
		return datekey.Date{}, invalid("local_date", "must be within one day of the current date")
	}
	return *local, nil
}
