package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

var (
	ErrInvalidWeekday = errors.New("invalid weekday")
	ErrNoWeekdays     = errors.New("weekly recurrence needs at least one weekday")
)

// Weekday mirrors time.Weekday (Sunday = 0) with the three-letter tokens used in
// notification identifiers and in the stored days column.
type Weekday int

const (
	Sunday Weekday = iota
	Monday
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
)

var weekdayTokens = [...]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// DailyToken is the recurrence token of a schedule that fires every day
const DailyToken = "daily"

func WeekdayOf(t time.Time) Weekday {
	return Weekday(t.Weekday())
}

// ParseWeekday parses a token such as "Mon". Matching is case-insensitive.
func ParseWeekday(token string) (Weekday, error) {
	for i, t := range weekdayTokens {
		if strings.EqualFold(t, strings.TrimSpace(token)) {
			return Weekday(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidWeekday, token)
}

func (d Weekday) Valid() bool {
	return d >= Sunday && d <= Saturday
}

func (d Weekday) Token() string {
	if !d.Valid() {
		return ""
	}
	return weekdayTokens[d]
}

// GatewayNumber returns the weekday number expected by notification triggers: Sunday=1 .. Saturday=7
func (d Weekday) GatewayNumber() int {
	return int(d) + 1
}

// WeekdayFromGatewayNumber is the inverse of GatewayNumber
func WeekdayFromGatewayNumber(n int) (Weekday, error) {
	d := Weekday(n - 1)
	if !d.Valid() {
		return 0, fmt.Errorf("%w: gateway number %d", ErrInvalidWeekday, n)
	}
	return d, nil
}

// Recurrence is either "every day" or an explicit, non-empty set of weekdays.
// The zero value is Daily.
type Recurrence struct {
	days []Weekday // sorted, unique; nil means daily
}

// Daily returns a recurrence firing every day
func Daily() Recurrence {
	return Recurrence{}
}

// Weekly returns a recurrence firing on the given weekdays. At least one day is required.
func Weekly(days ...Weekday) (Recurrence, error) {
	if len(days) == 0 {
		return Recurrence{}, ErrNoWeekdays
	}
	seen := make(map[Weekday]bool, len(days))
	var set []Weekday
	for _, d := range days {
		if !d.Valid() {
			return Recurrence{}, fmt.Errorf("%w: %d", ErrInvalidWeekday, d)
		}
		if !seen[d] {
			seen[d] = true
			set = append(set, d)
		}
	}
	sort.Slice(set, func(i, j int) bool { return set[i] < set[j] })
	return Recurrence{days: set}, nil
}

// RecurrenceFromTokens builds a recurrence from stored day tokens; an empty list is Daily.
func RecurrenceFromTokens(tokens []string) (Recurrence, error) {
	if len(tokens) == 0 {
		return Daily(), nil
	}
	days := make([]Weekday, 0, len(tokens))
	for _, token := range tokens {
		d, err := ParseWeekday(token)
		if err != nil {
			return Recurrence{}, err
		}
		days = append(days, d)
	}
	return Weekly(days...)
}

func (r Recurrence) IsDaily() bool {
	return len(r.days) == 0
}

// Days returns a copy of the selected weekdays; nil for a daily recurrence
func (r Recurrence) Days() []Weekday {
	if r.IsDaily() {
		return nil
	}
	out := make([]Weekday, len(r.days))
	copy(out, r.days)
	return out
}

// Includes reports whether the recurrence fires on the given weekday
func (r Recurrence) Includes(d Weekday) bool {
	if r.IsDaily() {
		return true
	}
	for _, day := range r.days {
		if day == d {
			return true
		}
	}
	return false
}

// Tokens returns the recurrence tokens used in notification identifiers:
// ["daily"] for a daily recurrence, else one weekday token per selected day.
func (r Recurrence) Tokens() []string {
	if r.IsDaily() {
		return []string{DailyToken}
	}
	tokens := make([]string, len(r.days))
	for i, d := range r.days {
		tokens[i] = d.Token()
	}
	return tokens
}

// DayTokens returns the stored form: weekday tokens, empty for daily
func (r Recurrence) DayTokens() []string {
	tokens := make([]string, len(r.days))
	for i, d := range r.days {
		tokens[i] = d.Token()
	}
	return tokens
}

func (r Recurrence) Equal(other Recurrence) bool {
	if len(r.days) != len(other.days) {
		return false
	}
	for i := range r.days {
		if r.days[i] != other.days[i] {
			return false
		}
	}
	return true
}

func (r Recurrence) String() string {
	if r.IsDaily() {
		return DailyToken
	}
	return strings.Join(r.DayTokens(), ",")
}

// MarshalJSON encodes the recurrence as the stored days array, [] meaning daily
func (r Recurrence) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.DayTokens())
}

func (r *Recurrence) UnmarshalJSON(data []byte) error {
	var tokens []string
	if err := json.Unmarshal(data, &tokens); err != nil {
		return err
	}
	parsed, err := RecurrenceFromTokens(tokens)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Value implements driver.Valuer so the recurrence is stored as its JSON days array
func (r Recurrence) Value() (driver.Value, error) {
	b, err := r.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (r *Recurrence) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*r = Daily()
		return nil
	case string:
		return r.UnmarshalJSON([]byte(v))
	case []byte:
		return r.UnmarshalJSON(v)
	default:
		return fmt.Errorf("failed to scan Recurrence: %v", value)
	}
}
