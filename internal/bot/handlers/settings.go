package handlers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/hannsv/PillGood/internal/dispatcher"
	"github.com/hannsv/PillGood/internal/service"
	"go.uber.org/zap"
)

func (h *Handlers) handleGroups(ctx context.Context, msg *tgbotapi.Message) {
	groups, err := h.service.ListGroups(ctx)
	if err != nil {
		h.logger.Error("Failed to list groups", zap.Error(err))
		h.sendMessage(msg.Chat.ID, "약 목록을 불러오지 못했어요")
		return
	}
	hours, err := h.service.SlotHours(ctx)
	if err != nil {
		h.logger.Error("Failed to load slot hours", zap.Error(err))
	}
	h.sendMessage(msg.Chat.ID, FormatGroups(groups, hours))
}

func (h *Handlers) handleToggle(ctx context.Context, msg *tgbotapi.Message, active bool) {
	groupID, err := strconv.ParseInt(strings.TrimSpace(msg.CommandArguments()), 10, 64)
	if err != nil {
		h.sendMessage(msg.Chat.ID, fmt.Sprintf("사용법: `/%s <그룹>`", msg.Command()))
		return
	}

	if err := h.service.SetActive(ctx, groupID, active); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			h.sendMessage(msg.Chat.ID, "그룹을 찾을 수 없어요")
			return
		}
		h.logger.Error("Failed to toggle group", zap.Int64("group_id", groupID), zap.Error(err))
		h.sendMessage(msg.Chat.ID, "변경하지 못했어요")
		return
	}

	if active {
		h.sendMessage(msg.Chat.ID, "🔔 알림을 켰어요")
	} else {
		h.sendMessage(msg.Chat.ID, "🔕 알림을 껐어요")
	}
}

// handleHours shows slot hours, or changes one with "/hours <slot> <hour>"
func (h *Handlers) handleHours(ctx context.Context, msg *tgbotapi.Message) {
	args := strings.Fields(msg.CommandArguments())
	if len(args) == 2 {
		h.setHour(ctx, msg, args[0], args[1])
		return
	}

	hours, err := h.service.SlotHours(ctx)
	if err != nil {
		h.logger.Error("Failed to load slot hours", zap.Error(err))
		h.sendMessage(msg.Chat.ID, "설정을 불러오지 못했어요")
		return
	}
	h.sendMessage(msg.Chat.ID, FormatHours(hours))
}

func (h *Handlers) setHour(ctx context.Context, msg *tgbotapi.Message, slotArg, hourArg string) {
	slot, err := parseSlotArg(slotArg)
	if err != nil {
		h.sendMessage(msg.Chat.ID, "시간대는 morning, lunch, dinner, bedtime 중 하나예요")
		return
	}
	hour, err := strconv.Atoi(hourArg)
	if err != nil {
		h.sendMessage(msg.Chat.ID, "시는 0부터 23 사이 숫자예요")
		return
	}

	if err := h.service.SetSlotHour(ctx, slot, hour); err != nil {
		if errors.Is(err, service.ErrValidation) {
			h.sendMessage(msg.Chat.ID, "시는 0부터 23 사이 숫자예요")
			return
		}
		h.logger.Error("Failed to set slot hour", zap.String("slot", string(slot)), zap.Error(err))
		h.sendMessage(msg.Chat.ID, "변경하지 못했어요")
		return
	}
	h.sendMessage(msg.Chat.ID, fmt.Sprintf("⏰ %s 알림을 %d시로 바꿨어요", slotLabel(slot), hour))
}

func (h *Handlers) handleTime(ctx context.Context, msg *tgbotapi.Message) {
	key, hhmm, err := ParseTimeArgs(msg.CommandArguments())
	if err != nil {
		h.sendMessage(msg.Chat.ID, "사용법: `/time <그룹> <시간대> <HH:MM|clear>`")
		return
	}

	if err := h.service.SetScheduleTime(ctx, key.GroupID, key.Slot, hhmm); err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			h.sendMessage(msg.Chat.ID, "그룹이나 시간대를 찾을 수 없어요")
		case errors.Is(err, service.ErrValidation):
			h.sendMessage(msg.Chat.ID, "시각은 07:30 처럼 HH:MM 으로 적어주세요")
		default:
			h.logger.Error("Failed to set schedule time", zap.Int64("group_id", key.GroupID), zap.Error(err))
			h.sendMessage(msg.Chat.ID, "변경하지 못했어요")
		}
		return
	}
	if hhmm == "" {
		h.sendMessage(msg.Chat.ID, fmt.Sprintf("⏰ %s 알림을 기본 시간으로 되돌렸어요", slotLabel(key.Slot)))
		return
	}
	h.sendMessage(msg.Chat.ID, fmt.Sprintf("⏰ %s 알림을 %s로 바꿨어요", slotLabel(key.Slot), hhmm))
}

// handleNotify shows the global switch, or flips it with "/notify on|off"
func (h *Handlers) handleNotify(ctx context.Context, msg *tgbotapi.Message) {
	arg := strings.TrimSpace(msg.CommandArguments())
	if arg == "" {
		if h.service.NotificationsEnabled() {
			h.sendMessage(msg.Chat.ID, "🔔 알림이 켜져 있어요")
		} else {
			h.sendMessage(msg.Chat.ID, "🔕 알림이 꺼져 있어요")
		}
		return
	}
	enabled, err := ParseSwitchArg(arg)
	if err != nil {
		h.sendMessage(msg.Chat.ID, "사용법: `/notify on` 또는 `/notify off`")
		return
	}
	if err := h.service.SetNotificationsEnabled(ctx, enabled); err != nil {
		h.logger.Error("Failed to switch notifications", zap.Bool("enabled", enabled), zap.Error(err))
		h.sendMessage(msg.Chat.ID, "변경하지 못했어요")
		return
	}
	if enabled {
		h.sendMessage(msg.Chat.ID, "🔔 모든 알림을 켰어요")
	} else {
		h.sendMessage(msg.Chat.ID, "🔕 모든 알림을 껐어요")
	}
}

func (h *Handlers) handleTest(ctx context.Context, msg *tgbotapi.Message) {
	reminder := ReminderMessage(msg.Chat.ID, dispatcher.TestReminder(h.engine.Now()))
	if _, err := h.api.Send(reminder); err != nil {
		h.logger.Error("Failed to send test reminder", zap.Error(err))
	}
}
