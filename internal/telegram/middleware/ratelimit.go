package middleware

import (
	"sync"
	"time"

	"github.com/futig/rag-conversations/internal/telegram/render"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Sender delivers a text message to a chat.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// RateLimiterMiddleware drops updates of chats that exceed the per-minute
// allowance and warns them at most once per warning interval.
type RateLimiterMiddleware struct {
	mu              sync.Mutex
	limiters        map[int64]*chatLimit
	limit           rate.Limit
	burst           int
	warningInterval time.Duration
	logger          *zap.Logger
	api             Sender
}

type chatLimit struct {
	limiter       *rate.Limiter
	lastWarningAt time.Time
}

// NewRateLimiterMiddleware creates a new rate limiter middleware
func NewRateLimiterMiddleware(
	requestsPerMinute int,
	burstSize int,
	logger *zap.Logger,
	api Sender,
) *RateLimiterMiddleware {
	return &RateLimiterMiddleware{
		limiters:        make(map[int64]*chatLimit),
		limit:           rate.Every(time.Minute / time.Duration(requestsPerMinute)),
		burst:           burstSize,
		warningInterval: 30 * time.Second,
		logger:          logger,
		api:             api,
	}
}

// Handle processes the update through rate limiting
func (rl *RateLimiterMiddleware) Handle(update tgbotapi.Update, next func(tgbotapi.Update)) {
	chatID, ok := chatOf(update)
	if !ok {
		next(update)
		return
	}

	if !rl.Allow(chatID) {
		rl.logger.Warn("rate limit exceeded", zap.Int64("chat_id", chatID))
		return
	}

	next(update)
}

// Allow reports whether chatID may send one more update now.
func (rl *RateLimiterMiddleware) Allow(chatID int64) bool {
	rl.mu.Lock()
	cl, exists := rl.limiters[chatID]
	if !exists {
		cl = &chatLimit{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.limiters[chatID] = cl
	}

	if cl.limiter.Allow() {
		rl.mu.Unlock()
		return true
	}

	now := time.Now()
	warn := now.Sub(cl.lastWarningAt) > rl.warningInterval
	if warn {
		cl.lastWarningAt = now
	}
	rl.mu.Unlock()

	if warn {
		rl.sendRateLimitWarning(chatID)
	}
	return false
}

func (rl *RateLimiterMiddleware) sendRateLimitWarning(chatID int64) {
	msg := tgbotapi.NewMessage(chatID, render.ErrRateLimited)
	if _, err := rl.api.Send(msg); err != nil {
		rl.logger.Error("failed to send rate limit warning",
			zap.Error(err),
			zap.Int64("chat_id", chatID),
		)
	}
}

func chatOf(update tgbotapi.Update) (int64, bool) {
	switch {
	case update.Message != nil:
		return update.Message.Chat.ID, true
	case update.CallbackQuery != nil && update.CallbackQuery.Message != nil:
		return update.CallbackQuery.Message.Chat.ID, true
	default:
		return 0, false
	}
}
