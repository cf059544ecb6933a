package models

import "time"

// SlotHours maps every slot to its configured notification hour
type SlotHours map[Slot]int

// DefaultSlotHours returns the compiled-in slot hours
func DefaultSlotHours() SlotHours {
	hours := make(SlotHours, len(SlotOrder))
	for _, slot := range SlotOrder {
		hours[slot] = slot.DefaultHour()
	}
	return hours
}

// LoadLocation resolves a timezone name, falling back to the local zone
func LoadLocation(name string) *time.Location {
	if name == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.Local
	}
	return loc
}

// StartOfDay returns local midnight of the day containing t in loc
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

// LocalDate formats the local calendar date of t as YYYY-MM-DD
func LocalDate(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("2006-01-02")
}
