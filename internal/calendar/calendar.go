// Package calendar implements month-granular accounting period arithmetic.
package calendar

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ErrInvalidKey is returned when a period key cannot be parsed.
var ErrInvalidKey = errors.New("calendar: invalid period key")

// Key identifies a calendar month.
type Key struct {
	Year  int
	Month time.Month
}

// KeyOf returns the key of the month containing t.
func KeyOf(t time.Time) Key {
	return Key{Year: t.Year(), Month: t.Month()}
}

// Parse reads a key in the YYYY-MM form.
func Parse(raw string) (Key, error) {
	parts := strings.Split(strings.TrimSpace(raw), "-")
	if len(parts) != 2 || len(parts[0]) != 4 || len(parts[1]) != 2 {
		return Key{}, fmt.Errorf("%w: %q", ErrInvalidKey, raw)
	}
	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return Key{}, fmt.Errorf("%w: %q", ErrInvalidKey, raw)
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil || month < 1 || month > 12 {
		return Key{}, fmt.Errorf("%w: %q", ErrInvalidKey, raw)
	}
	return Key{Year: year, Month: time.Month(month)}, nil
}

// String renders the key as YYYY-MM.
func (k Key) String() string {
	return fmt.Sprintf("%04d-%02d", k.Year, int(k.Month))
}

// MarshalText encodes the key as YYYY-MM.
func (k Key) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText parses a YYYY-MM key.
func (k *Key) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Valid reports whether the month lies in 1..12.
func (k Key) Valid() bool {
	return k.Month >= time.January && k.Month <= time.December
}

// Range spans a whole month: From is its first instant and To its last
// millisecond (23:59:59.999) in loc.
type Range struct {
	From time.Time
	To   time.Time
}

// Contains reports whether t falls inside the range, bounds included.
func (r Range) Contains(t time.Time) bool {
	return !t.Before(r.From) && !t.After(r.To)
}

// PeriodRange returns the range of the month identified by key.
func PeriodRange(key Key, loc *time.Location) Range {
	if loc == nil {
		loc = time.Local
	}
	from := time.Date(key.Year, key.Month, 1, 0, 0, 0, 0, loc)
	to := from.AddDate(0, 1, 0).Add(-time.Millisecond)
	return Range{From: from, To: to}
}

// Next returns the following month, wrapping December into January.
func Next(key Key) Key {
	if key.Month == time.December {
		return Key{Year: key.Year + 1, Month: time.January}
	}
	return Key{Year: key.Year, Month: key.Month + 1}
}

// Previous returns the preceding month, wrapping January into December.
func Previous(key Key) Key {
	if key.Month == time.January {
		return Key{Year: key.Year - 1, Month: time.December}
	}
	return Key{Year: key.Year, Month: key.Month - 1}
}

// Quarter returns the 1-based quarter of the key.
func Quarter(key Key) int {
	return (int(key.Month)-1)/3 + 1
}

var monthNames = [...]string{
	"styczeń", "luty", "marzec", "kwiecień", "maj", "czerwiec",
	"lipiec", "sierpień", "wrzesień", "październik", "listopad", "grudzień",
}

// Label renders the Polish month name followed by the year, e.g. "Czerwiec 2024".
func Label(key Key) string {
	if !key.Valid() {
		return key.String()
	}
	title := cases.Title(language.Polish)
	return title.String(monthNames[key.Month-1]) + " " + strconv.Itoa(key.Year)
}
