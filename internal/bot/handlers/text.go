package handlers

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/hannsv/PillGood/internal/adherence"
	"github.com/hannsv/PillGood/internal/dispatcher"
	"github.com/hannsv/PillGood/internal/models"
)

// Callback actions carried by reminder buttons
const (
	ActionTake = "take"
	ActionSkip = "skip"
)

var errBadCallback = errors.New("malformed callback data")

var weekdayLabels = map[models.Weekday]string{
	models.Sunday:    "일",
	models.Monday:    "월",
	models.Tuesday:   "화",
	models.Wednesday: "수",
	models.Thursday:  "목",
	models.Friday:    "금",
	models.Saturday:  "토",
}

var statusIcons = map[adherence.Status]string{
	adherence.StatusCompleted: "✅",
	adherence.StatusPending:   "⏳",
	adherence.StatusNotDue:    "➖",
	adherence.StatusInactive:  "💤",
}

// TaskCallbackData encodes a button press on a reminder, e.g. "take:12:morning"
func TaskCallbackData(action string, key models.TaskKey) string {
	return fmt.Sprintf("%s:%d:%s", action, key.GroupID, key.Slot)
}

// ParseTaskCallback decodes data produced by TaskCallbackData
func ParseTaskCallback(data string) (string, models.TaskKey, error) {
	parts := strings.Split(data, ":")
	if len(parts) != 3 {
		return "", models.TaskKey{}, errBadCallback
	}
	action := parts[0]
	if action != ActionTake && action != ActionSkip {
		return "", models.TaskKey{}, fmt.Errorf("%w: unknown action %q", errBadCallback, action)
	}
	groupID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return "", models.TaskKey{}, fmt.Errorf("%w: %v", errBadCallback, err)
	}
	slot, err := models.ParseSlot(parts[2])
	if err != nil {
		return "", models.TaskKey{}, err
	}
	return action, models.TaskKey{GroupID: groupID, Slot: slot}, nil
}

// ParseTaskArgs parses "<groupId> <slot>" command arguments. The slot may be
// given by name or by its Korean label.
func ParseTaskArgs(args string) (models.TaskKey, error) {
	fields := strings.Fields(args)
	if len(fields) != 2 {
		return models.TaskKey{}, errors.New("expected <groupId> <slot>")
	}
	groupID, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return models.TaskKey{}, fmt.Errorf("invalid group id %q", fields[0])
	}
	slot, err := parseSlotArg(fields[1])
	if err != nil {
		return models.TaskKey{}, err
	}
	return models.TaskKey{GroupID: groupID, Slot: slot}, nil
}

// ParseTimeArgs parses "<groupId> <slot> <HH:MM|clear>"; clear yields an empty time
func ParseTimeArgs(args string) (models.TaskKey, string, error) {
	fields := strings.Fields(args)
	if len(fields) != 3 {
		return models.TaskKey{}, "", errors.New("expected <groupId> <slot> <HH:MM|clear>")
	}
	key, err := ParseTaskArgs(fields[0] + " " + fields[1])
	if err != nil {
		return models.TaskKey{}, "", err
	}
	if strings.EqualFold(fields[2], "clear") {
		return key, "", nil
	}
	return key, fields[2], nil
}

// ParseSwitchArg reads on/off in English or Korean
func ParseSwitchArg(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on", "켜기":
		return true, nil
	case "off", "끄기":
		return false, nil
	}
	return false, fmt.Errorf("expected on or off, got %q", s)
}

func parseSlotArg(s string) (models.Slot, error) {
	for _, slot := range models.SlotOrder {
		if slot.Label() == s {
			return slot, nil
		}
	}
	return models.ParseSlot(s)
}

// ReminderMessage renders a reminder; schedule reminders get take/skip buttons
func ReminderMessage(chatID int64, r dispatcher.Reminder) tgbotapi.MessageConfig {
	msg := newMessage(chatID, fmt.Sprintf("**%s**\n%s", r.Title, r.Body))
	if r.Task != nil {
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("✅ 먹었어요", TaskCallbackData(ActionTake, *r.Task)),
				tgbotapi.NewInlineKeyboardButtonData("⏭ 건너뛰기", TaskCallbackData(ActionSkip, *r.Task)),
			),
		)
	}
	return msg
}

func slotLabel(slot models.Slot) string {
	if label := slot.Label(); label != "" {
		return label
	}
	return string(slot)
}

// FormatToday renders today's snapshot
func FormatToday(s adherence.Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📅 **%s 오늘의 약**\n\n", s.Date)

	switch {
	case !s.HasAnyDue:
		b.WriteString("오늘은 먹을 약이 없어요 🎉\n")
	case s.Next == nil:
		b.WriteString("오늘 약을 모두 챙겼어요 👏\n")
	default:
		fmt.Fprintf(&b, "⏰ 다음: **%s** %s\n\n", s.Next.Title, slotLabel(s.Next.Slot))
		b.WriteString("남은 복용\n")
		for _, t := range s.Pending {
			fmt.Fprintf(&b, "• %s %s `/take %d %s`\n", t.Title, slotLabel(t.Slot), t.GroupID, t.Slot)
		}
	}

	if len(s.Groups) > 0 {
		b.WriteString("\n")
		for _, g := range s.Groups {
			switch g.Status {
			case adherence.StatusInactive:
				fmt.Fprintf(&b, "%s %s (쉬는 중)\n", statusIcons[g.Status], g.Title)
			case adherence.StatusNotDue:
				fmt.Fprintf(&b, "%s %s (오늘 없음)\n", statusIcons[g.Status], g.Title)
			default:
				fmt.Fprintf(&b, "%s %s %d/%d\n", statusIcons[g.Status], g.Title, g.Done, g.Total)
			}
		}
	}
	return b.String()
}

// FormatNext renders the next pending dose
func FormatNext(t *adherence.Task) string {
	if t == nil {
		return "지금 챙길 약이 없어요 👍"
	}
	return fmt.Sprintf("⏰ 다음 복용: **%s** %s\n`/take %d %s`", t.Title, slotLabel(t.Slot), t.GroupID, t.Slot)
}

// FormatDays renders a recurrence as "매일" or e.g. "월·수·금"
func FormatDays(r models.Recurrence) string {
	if r.IsDaily() {
		return "매일"
	}
	days := r.Days()
	labels := make([]string, len(days))
	for i, d := range days {
		labels[i] = weekdayLabels[d]
	}
	return strings.Join(labels, "·")
}

func scheduleTime(s models.Schedule, hours models.SlotHours) string {
	if hour, minute, ok := s.TimeOverride(); ok {
		return fmt.Sprintf("%02d:%02d", hour, minute)
	}
	hour, ok := hours[s.Slot]
	if !ok {
		hour = s.Slot.DefaultHour()
	}
	return fmt.Sprintf("%d시", hour)
}

// FormatGroups renders registered groups with their schedules and pills
func FormatGroups(groups []*models.GroupWithSchedules, hours models.SlotHours) string {
	if len(groups) == 0 {
		return "등록된 약이 없어요."
	}

	var b strings.Builder
	b.WriteString("💊 **등록된 약**\n")
	for _, g := range groups {
		state := "켜짐"
		if !g.IsActive() {
			state = "꺼짐"
		}
		fmt.Fprintf(&b, "\n**%d. %s** (%s)\n", g.GroupID, g.Title, state)

		if len(g.Schedules) > 0 {
			times := make([]string, 0, len(g.Schedules))
			for _, s := range g.Schedules {
				times = append(times, fmt.Sprintf("%s %s", slotLabel(s.Slot), scheduleTime(s, hours)))
			}
			fmt.Fprintf(&b, "  시간: %s\n", strings.Join(times, ", "))
			fmt.Fprintf(&b, "  요일: %s\n", FormatDays(g.Schedules[0].Days))
		}
		if len(g.Pills) > 0 {
			names := make([]string, len(g.Pills))
			for i, p := range g.Pills {
				names[i] = p.Name
			}
			fmt.Fprintf(&b, "  약: %s\n", strings.Join(names, ", "))
		}
	}
	return b.String()
}

// FormatHours renders the configured hour of every slot
func FormatHours(hours models.SlotHours) string {
	var b strings.Builder
	b.WriteString("⏰ **알림 시간**\n")
	for _, slot := range models.SlotOrder {
		fmt.Fprintf(&b, "%s: %d시\n", slotLabel(slot), hours[slot])
	}
	b.WriteString("\n변경: `/hours morning 8`")
	return b.String()
}

// FormatHistory renders recorded doses in local time
func FormatHistory(entries []models.HistoryEntry, loc *time.Location) string {
	if len(entries) == 0 {
		return "복용 기록이 없어요."
	}
	var b strings.Builder
	b.WriteString("📖 **복용 기록**\n")
	for _, e := range entries {
		icon := "✅"
		if e.IsSkipped {
			icon = "⏭"
		}
		fmt.Fprintf(&b, "%s %s %s %s\n", e.TakenAt.In(loc).Format("01/02 15:04"), icon, e.GroupTitle, slotLabel(e.Slot))
	}
	return b.String()
}
