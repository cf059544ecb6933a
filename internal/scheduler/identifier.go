package scheduler

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hannsv/PillGood/internal/models"
)

// Identifier returns the notification identifier of one trigger of a group slot:
// {groupId}_{slot}_{token}, token being "daily" or a weekday token such as "Mon".
func Identifier(groupID int64, slot models.Slot, token string) string {
	return fmt.Sprintf("%d_%s_%s", groupID, slot, token)
}

// GroupPrefix is the prefix shared by every identifier of the group
func GroupPrefix(groupID int64) string {
	return fmt.Sprintf("%d_", groupID)
}

// Identifiers returns every identifier a schedule registers under
func Identifiers(groupID int64, slot models.Slot, days models.Recurrence) []string {
	tokens := days.Tokens()
	ids := make([]string, len(tokens))
	for i, token := range tokens {
		ids[i] = Identifier(groupID, slot, token)
	}
	return ids
}

// ParseIdentifier splits an identifier back into its task key and recurrence token.
// ok is false for identifiers not produced by Identifier.
func ParseIdentifier(id string) (key models.TaskKey, token string, ok bool) {
	parts := strings.SplitN(id, "_", 3)
	if len(parts) != 3 {
		return models.TaskKey{}, "", false
	}
	groupID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return models.TaskKey{}, "", false
	}
	slot := models.Slot(parts[1])
	if !slot.Valid() {
		return models.TaskKey{}, "", false
	}
	token = parts[2]
	if token != models.DailyToken {
		if _, err := models.ParseWeekday(token); err != nil {
			return models.TaskKey{}, "", false
		}
	}
	return models.TaskKey{GroupID: groupID, Slot: slot}, token, true
}

// NotificationTitle is the title of a slot reminder
func NotificationTitle(slot models.Slot) string {
	return fmt.Sprintf("💊 %s 약 드실 시간이에요!", slot.Label())
}

// NotificationBody is the body of a reminder for the given group title
func NotificationBody(groupTitle string) string {
	return fmt.Sprintf("%s 챙겨 드셨나요?", groupTitle)
}
