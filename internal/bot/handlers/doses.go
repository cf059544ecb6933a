package handlers

import (
	"context"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/hannsv/PillGood/internal/models"
	"go.uber.org/zap"
)

func (h *Handlers) handleToday(ctx context.Context, msg *tgbotapi.Message) {
	h.sendMessage(msg.Chat.ID, FormatToday(h.engine.Today(ctx)))
}

func (h *Handlers) handleNext(ctx context.Context, msg *tgbotapi.Message) {
	h.sendMessage(msg.Chat.ID, FormatNext(h.engine.Today(ctx).Next))
}

func (h *Handlers) handleRecord(ctx context.Context, msg *tgbotapi.Message, skipped bool) {
	key, err := ParseTaskArgs(msg.CommandArguments())
	if err != nil {
		h.sendMessage(msg.Chat.ID, "사용법: `/"+msg.Command()+" <그룹> <시간대>`\n예: `/"+msg.Command()+" 1 morning`")
		return
	}
	h.sendMessage(msg.Chat.ID, h.record(ctx, key.GroupID, key.Slot, skipped))
}

// record resolves a task and returns the reply shown to the user
func (h *Handlers) record(ctx context.Context, groupID int64, slot models.Slot, skipped bool) string {
	var (
		inserted bool
		err      error
	)
	if skipped {
		inserted, err = h.engine.SkipTask(ctx, groupID, slot)
	} else {
		inserted, err = h.engine.CompleteTask(ctx, groupID, slot)
	}
	if err != nil {
		h.logger.Error("Failed to record dose", zap.Int64("group_id", groupID), zap.String("slot", string(slot)), zap.Error(err))
		return "❌ 기록하지 못했어요. 잠시 후 다시 시도해 주세요"
	}
	switch {
	case !inserted:
		return "이미 기록되었거나 없는 약이에요"
	case skipped:
		return "⏭ 건너뛰었어요"
	default:
		return "✅ 복용을 기록했어요"
	}
}

func (h *Handlers) handleHistory(ctx context.Context, msg *tgbotapi.Message) {
	limit := 0
	if arg := strings.TrimSpace(msg.CommandArguments()); arg != "" {
		n, err := strconv.Atoi(arg)
		if err != nil || n <= 0 {
			h.sendMessage(msg.Chat.ID, "사용법: `/history 20`")
			return
		}
		limit = n
	}
	entries, err := h.engine.History(ctx, limit)
	if err != nil {
		h.logger.Error("Failed to load history", zap.Error(err))
		h.sendMessage(msg.Chat.ID, "기록을 불러오지 못했어요")
		return
	}
	h.sendMessage(msg.Chat.ID, FormatHistory(entries, h.loc))
}
