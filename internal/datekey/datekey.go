// Package datekey provides a calendar-date value with no time of day and no zone.
// All temporal reasoning about goals and habit logs happens on these keys.
package datekey

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

const layout = "2006-01-02"

const day = 24 * time.Hour

// Date is a calendar day. The zero value is the zero date and reports IsZero.
type Date struct {
	t time.Time // always midnight UTC
}

func New(year int, month time.Month, d int) Date {
	return Date{t: time.Date(year, month, d, 0, 0, 0, 0, time.UTC)}
}

// FromTime takes the wall-clock year, month and day of t as-is.
// No timezone conversion is performed; callers supply already-localized times.
func FromTime(t time.Time) Date {
	y, m, d := t.Date()
	return New(y, m, d)
}

func Parse(s string) (Date, error) {
	t, err := time.Parse(layout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q; expected YYYY-MM-DD", s)
	}
	return FromTime(t), nil
}

func MustParse(s string) Date {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format(layout)
}

func (d Date) Time() time.Time { return d.t }

func (d Date) IsZero() bool { return d.t.IsZero() }

func (d Date) AddDays(n int) Date { return Date{t: d.t.AddDate(0, 0, n)} }

// DaysSince returns the whole number of days from o to d (d − o).
func (d Date) DaysSince(o Date) int {
	return int(d.t.Sub(o.t) / day)
}

func (d Date) Before(o Date) bool { return d.t.Before(o.t) }
func (d Date) After(o Date) bool  { return d.t.After(o.t) }
func (d Date) Equal(o Date) bool  { return d.t.Equal(o.t) }

// Compare returns -1, 0 or +1.
func (d Date) Compare(o Date) int { return d.t.Compare(o.t) }

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Scan implements sql.Scanner for DATE columns.
func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d = Date{}
		return nil
	case time.Time:
		*d = FromTime(v)
		return nil
	case string:
		return d.scanString(v)
	case []byte:
		return d.scanString(string(v))
	default:
		return fmt.Errorf("datekey: cannot scan %T", src)
	}
}

func (d *Date) scanString(s string) error {
	if len(s) > len(layout) {
		s = s[:len(layout)]
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Value implements driver.Valuer.
func (d Date) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.t, nil
}
