package rrule

import (
	"fmt"
	"strings"
	"time"

	"github.com/hannsv/PillGood/internal/models"
	"github.com/teambition/rrule-go"
)

// Common frequencies
const (
	FreqDaily  = rrule.DAILY
	FreqWeekly = rrule.WEEKLY
)

var weekdays = map[models.Weekday]rrule.Weekday{
	models.Monday:    rrule.MO,
	models.Tuesday:   rrule.TU,
	models.Wednesday: rrule.WE,
	models.Thursday:  rrule.TH,
	models.Friday:    rrule.FR,
	models.Saturday:  rrule.SA,
	models.Sunday:    rrule.SU,
}

// ParseRRule parses an RFC 5545 RRULE string anchored at dtstart.
// dtstart is reinterpreted in loc so BYHOUR refers to local wall-clock hours.
func ParseRRule(ruleStr string, dtstart time.Time, loc *time.Location) (*rrule.RRule, error) {
	ruleStr = strings.TrimPrefix(ruleStr, "RRULE:")

	opt, err := rrule.StrToROption(ruleStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse RRULE: %w", err)
	}

	local := dtstart.In(loc)
	opt.Dtstart = time.Date(local.Year(), local.Month(), local.Day(), local.Hour(), local.Minute(), 0, 0, loc)
	return rrule.NewRRule(*opt)
}

// NextOccurrence returns the first occurrence strictly after the given time.
// Returns nil if there are no more occurrences.
func NextOccurrence(ruleStr string, dtstart, after time.Time, loc *time.Location) (*time.Time, error) {
	rule, err := ParseRRule(ruleStr, dtstart, loc)
	if err != nil {
		return nil, err
	}

	next := rule.After(after, false)
	if next.IsZero() {
		return nil, nil
	}
	return &next, nil
}

// RRuleBuilder creates an RRULE string from components
type RRuleBuilder struct {
	Freq      rrule.Frequency
	ByHour    []int
	ByMinute  []int
	ByWeekday []rrule.Weekday
}

// DailyAt is the trigger rule of a notification repeating every day at hour:minute
func DailyAt(hour, minute int) *RRuleBuilder {
	return &RRuleBuilder{
		Freq:     FreqDaily,
		ByHour:   []int{hour},
		ByMinute: []int{minute},
	}
}

// WeeklyAt is the trigger rule of a notification repeating on one weekday at hour:minute
func WeeklyAt(day models.Weekday, hour, minute int) (*RRuleBuilder, error) {
	wd, ok := weekdays[day]
	if !ok {
		return nil, fmt.Errorf("%w: %d", models.ErrInvalidWeekday, day)
	}
	return &RRuleBuilder{
		Freq:      FreqWeekly,
		ByHour:    []int{hour},
		ByMinute:  []int{minute},
		ByWeekday: []rrule.Weekday{wd},
	}, nil
}

func (b *RRuleBuilder) Build(dtstart time.Time) (*rrule.RRule, error) {
	opt := rrule.ROption{
		Freq:     b.Freq,
		Interval: 1,
		Dtstart:  dtstart.Truncate(time.Minute),
		Bysecond: []int{0},
	}

	if len(b.ByHour) > 0 {
		opt.Byhour = b.ByHour
	}
	if len(b.ByMinute) > 0 {
		opt.Byminute = b.ByMinute
	}
	if len(b.ByWeekday) > 0 {
		opt.Byweekday = b.ByWeekday
	}

	return rrule.NewRRule(opt)
}

// Next returns the first occurrence of the rule strictly after the given time, in loc
func (b *RRuleBuilder) Next(after time.Time, loc *time.Location) (time.Time, error) {
	rule, err := b.Build(models.StartOfDay(after, loc))
	if err != nil {
		return time.Time{}, err
	}
	next := rule.After(after, false)
	if next.IsZero() {
		return time.Time{}, fmt.Errorf("rule %s has no occurrence after %s", b.String(), after.Format(time.RFC3339))
	}
	return next, nil
}

func (b *RRuleBuilder) String() string {
	var parts []string

	freqMap := map[rrule.Frequency]string{
		rrule.DAILY:  "DAILY",
		rrule.WEEKLY: "WEEKLY",
	}
	parts = append(parts, fmt.Sprintf("FREQ=%s", freqMap[b.Freq]))

	if len(b.ByWeekday) > 0 {
		dayMap := map[rrule.Weekday]string{
			rrule.MO: "MO",
			rrule.TU: "TU",
			rrule.WE: "WE",
			rrule.TH: "TH",
			rrule.FR: "FR",
			rrule.SA: "SA",
			rrule.SU: "SU",
		}
		days := make([]string, len(b.ByWeekday))
		for i, d := range b.ByWeekday {
			days[i] = dayMap[d]
		}
		parts = append(parts, fmt.Sprintf("BYDAY=%s", strings.Join(days, ",")))
	}

	if len(b.ByHour) > 0 {
		hours := make([]string, len(b.ByHour))
		for i, h := range b.ByHour {
			hours[i] = fmt.Sprintf("%d", h)
		}
		parts = append(parts, fmt.Sprintf("BYHOUR=%s", strings.Join(hours, ",")))
	}

	if len(b.ByMinute) > 0 {
		mins := make([]string, len(b.ByMinute))
		for i, m := range b.ByMinute {
			mins[i] = fmt.Sprintf("%d", m)
		}
		parts = append(parts, fmt.Sprintf("BYMINUTE=%s", strings.Join(mins, ",")))
	}

	return strings.Join(parts, ";")
}

// HumanReadableKorean returns a Korean description of a trigger RRULE, e.g. "매주 월 9시"
func HumanReadableKorean(ruleStr string) string {
	ruleStr = strings.TrimPrefix(ruleStr, "RRULE:")

	info := make(map[string]string)
	for _, p := range strings.Split(ruleStr, ";") {
		kv := strings.SplitN(p, "=", 2)
		if len(kv) == 2 {
			info[kv[0]] = kv[1]
		}
	}

	var result strings.Builder

	switch info["FREQ"] {
	case "DAILY":
		result.WriteString("매일")
	case "WEEKLY":
		result.WriteString("매주")
	}

	if byDay := info["BYDAY"]; byDay != "" {
		dayMap := map[string]string{
			"MO": "월", "TU": "화", "WE": "수", "TH": "목",
			"FR": "금", "SA": "토", "SU": "일",
		}
		var krDays []string
		for _, d := range strings.Split(byDay, ",") {
			if kr, ok := dayMap[d]; ok {
				krDays = append(krDays, kr)
			}
		}
		if len(krDays) > 0 {
			result.WriteString(" " + strings.Join(krDays, "·"))
		}
	}

	if byHour := info["BYHOUR"]; byHour != "" {
		result.WriteString(fmt.Sprintf(" %s시", byHour))
		if m := info["BYMINUTE"]; m != "" && m != "0" {
			result.WriteString(fmt.Sprintf(" %s분", m))
		}
	}

	if result.Len() == 0 {
		return "한 번"
	}
	return result.String()
}
