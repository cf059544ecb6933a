package models

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrInvalidSlot = errors.New("invalid slot")

// Slot is one of the four fixed times of day a dose can be taken at
type Slot string

const (
	SlotMorning Slot = "morning"
	SlotLunch   Slot = "lunch"
	SlotDinner  Slot = "dinner"
	SlotBedtime Slot = "bedtime"
)

// SlotOrder is the fixed ordering used when picking the next pending dose
var SlotOrder = []Slot{SlotMorning, SlotLunch, SlotDinner, SlotBedtime}

var slotDefaults = map[Slot]struct {
	label string
	hour  int
}{
	SlotMorning: {label: "아침", hour: 9},
	SlotLunch:   {label: "점심", hour: 13},
	SlotDinner:  {label: "저녁", hour: 18},
	SlotBedtime: {label: "자기전", hour: 22},
}

// ParseSlot parses a slot name, case-insensitively
func ParseSlot(s string) (Slot, error) {
	slot := Slot(strings.ToLower(strings.TrimSpace(s)))
	if !slot.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidSlot, s)
	}
	return slot, nil
}

func (s Slot) Valid() bool {
	_, ok := slotDefaults[s]
	return ok
}

// Order returns the position of the slot in SlotOrder, or len(SlotOrder) for unknown slots
func (s Slot) Order() int {
	for i, slot := range SlotOrder {
		if slot == s {
			return i
		}
	}
	return len(SlotOrder)
}

// Label returns the display label used in notification texts
func (s Slot) Label() string {
	return slotDefaults[s].label
}

// DefaultHour returns the compiled-in hour used when no setting overrides it
func (s Slot) DefaultHour() int {
	return slotDefaults[s].hour
}

// SettingKey returns the AppSetting key holding the configured hour of the slot
func (s Slot) SettingKey() string {
	return "time_" + string(s)
}

// ParseSlotHour parses a stored slot hour. Values outside 0..23 are rejected.
func ParseSlotHour(value string) (int, error) {
	hour, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("invalid hour %q: %w", value, err)
	}
	if hour < 0 || hour > 23 {
		return 0, fmt.Errorf("hour %d out of range", hour)
	}
	return hour, nil
}
