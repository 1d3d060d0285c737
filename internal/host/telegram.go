package host

import (
	"context"
	"html"
	"sync"

	"dragonvpn-app/internal/logger"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Sender is the part of *tgbotapi.BotAPI the host uses.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram delivers toasts as chat messages from the bot. Haptics have no
// chat equivalent and are dropped.
type Telegram struct {
	mu      sync.RWMutex
	bot     Sender
	chatID  int64
	session Session
	ready   *Readiness
}

func NewTelegram(bot Sender, chatID int64, session Session) *Telegram {
	t := &Telegram{chatID: chatID, session: session, ready: NewReadiness()}
	if bot != nil {
		t.attach(bot)
	}
	return t
}

// DialTelegram connects the bot in the background; Ready closes once the
// token has been accepted. A rejected token leaves the host unready.
func DialTelegram(token string, chatID int64, session Session) *Telegram {
	t := NewTelegram(nil, chatID, session)
	go func() {
		bot, err := tgbotapi.NewBotAPI(token)
		if err != nil {
			logger.L().Error("failed to connect telegram bot", zap.Error(err))
			return
		}
		logger.L().Info("telegram bot connected", zap.String("bot", bot.Self.UserName))
		t.attach(bot)
	}()
	return t
}

func (t *Telegram) attach(bot Sender) {
	t.mu.Lock()
	t.bot = bot
	t.mu.Unlock()
	t.ready.Resolve()
}

func (t *Telegram) Ready() <-chan struct{} { return t.ready.Done() }

func (t *Telegram) Session() Session { return t.session }

func (t *Telegram) Haptic(kind HapticKind) {}

func (t *Telegram) Toast(ctx context.Context, level ToastLevel, text string) error {
	t.mu.RLock()
	bot := t.bot
	t.mu.RUnlock()
	if bot == nil {
		return ErrNotReady
	}

	msg := tgbotapi.NewMessage(t.chatID, toastIcon(level)+" "+html.EscapeString(text))
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := bot.Send(msg); err != nil {
		logger.FromCtx(ctx).Warn("failed to send toast",
			zap.Int64("chat_id", t.chatID),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// Reload asks the user to reopen the app, which is the only reload a bot
// can trigger.
func (t *Telegram) Reload(ctx context.Context) error {
	return t.Toast(ctx, ToastWarning, "Сессия истекла. Откройте приложение заново")
}
