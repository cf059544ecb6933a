package handlers

import (
	"context"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/hannsv/PillGood/internal/adherence"
	"github.com/hannsv/PillGood/internal/format"
	"github.com/hannsv/PillGood/internal/service"
	"go.uber.org/zap"
)

type Handlers struct {
	api     *tgbotapi.BotAPI
	engine  *adherence.Engine
	service *service.Service
	loc     *time.Location
	logger  *zap.Logger
}

func New(api *tgbotapi.BotAPI, engine *adherence.Engine, svc *service.Service, loc *time.Location, logger *zap.Logger) *Handlers {
	return &Handlers{
		api:     api,
		engine:  engine,
		service: svc,
		loc:     loc,
		logger:  logger,
	}
}

func (h *Handlers) HandleCommand(ctx context.Context, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start":
		h.handleStart(ctx, msg)
	case "help":
		h.handleHelp(ctx, msg)
	case "today":
		h.handleToday(ctx, msg)
	case "next":
		h.handleNext(ctx, msg)
	case "take":
		h.handleRecord(ctx, msg, false)
	case "skip":
		h.handleRecord(ctx, msg, true)
	case "groups":
		h.handleGroups(ctx, msg)
	case "on":
		h.handleToggle(ctx, msg, true)
	case "off":
		h.handleToggle(ctx, msg, false)
	case "history":
		h.handleHistory(ctx, msg)
	case "hours":
		h.handleHours(ctx, msg)
	case "time":
		h.handleTime(ctx, msg)
	case "notify":
		h.handleNotify(ctx, msg)
	case "test":
		h.handleTest(ctx, msg)
	default:
		h.sendMessage(msg.Chat.ID, "알 수 없는 명령이에요. /help 로 명령 목록을 확인하세요")
	}
}

// HandleMessage answers plain text with a pointer to the commands
func (h *Handlers) HandleMessage(ctx context.Context, msg *tgbotapi.Message) {
	h.sendMessage(msg.Chat.ID, "명령으로 말씀해 주세요. /today 로 오늘 챙길 약을, /help 로 명령 목록을 볼 수 있어요")
}

// HandleCallbackQuery handles the take/skip buttons of a reminder
func (h *Handlers) HandleCallbackQuery(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	action, key, err := ParseTaskCallback(callback.Data)
	if err != nil {
		h.logger.Warn("Ignoring callback", zap.String("data", callback.Data), zap.Error(err))
		h.answerCallback(callback.ID, "")
		return
	}

	result := h.record(ctx, key.GroupID, key.Slot, action == ActionSkip)
	h.answerCallback(callback.ID, result)

	if callback.Message == nil {
		return
	}
	// Appending keeps the offsets of the original entities valid
	edit := tgbotapi.NewEditMessageText(callback.Message.Chat.ID, callback.Message.MessageID, callback.Message.Text+"\n\n"+result)
	edit.Entities = callback.Message.Entities
	if _, err := h.api.Send(edit); err != nil {
		h.logger.Error("Failed to edit message", zap.Error(err))
	}
}

func (h *Handlers) answerCallback(callbackID string, text string) {
	answer := tgbotapi.NewCallback(callbackID, text)
	if _, err := h.api.Request(answer); err != nil {
		h.logger.Error("Failed to answer callback", zap.Error(err))
	}
}

func newMessage(chatID int64, text string) tgbotapi.MessageConfig {
	parsed := format.ParseMarkdown(text)
	msg := tgbotapi.NewMessage(chatID, parsed.Text)
	msg.Entities = parsed.Entities
	return msg
}

func (h *Handlers) sendMessage(chatID int64, text string) {
	if _, err := h.api.Send(newMessage(chatID, text)); err != nil {
		h.logger.Error("Failed to send message", zap.Error(err))
	}
}

func (h *Handlers) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	text := `👋 안녕하세요!

약 먹을 시간이 되면 알려 드릴게요.
알림의 **✅ 먹었어요** 버튼을 누르면 오늘 복용으로 기록돼요.

/today 로 오늘 챙길 약을 확인하고
/help 로 모든 명령을 볼 수 있어요.`
	h.sendMessage(msg.Chat.ID, text)
}

func (h *Handlers) handleHelp(ctx context.Context, msg *tgbotapi.Message) {
	text := `📖 **명령 목록**

**오늘**
/today - 오늘의 복용 현황
/next - 다음에 챙길 약
/take <그룹> <시간대> - 먹었어요
/skip <그룹> <시간대> - 건너뛰기

**약 관리**
/groups - 등록된 약
/on <그룹> - 알림 켜기
/off <그룹> - 알림 끄기
/history [개수] - 복용 기록

**설정**
/hours - 시간대별 알림 시간
/hours <시간대> <시> - 알림 시간 변경
/time <그룹> <시간대> <HH:MM|clear> - 그룹별 알림 시각
/notify [on|off] - 전체 알림 켜기/끄기
/test - 알림 테스트

시간대: morning(아침), lunch(점심), dinner(저녁), bedtime(자기전)`
	h.sendMessage(msg.Chat.ID, text)
}
