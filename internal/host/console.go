package host

import (
	"context"
	"fmt"
	"io"
	"sync"

	"dragonvpn-app/internal/logger"

	"go.uber.org/zap"
)

// Console is the host used by the CLI. It is ready as soon as it exists.
type Console struct {
	mu      sync.Mutex
	out     io.Writer
	session Session
	ready   *Readiness
	reload  func(ctx context.Context) error
}

type ConsoleOption func(*Console)

// WithReload sets what Reload does; without it Reload only logs.
func WithReload(fn func(ctx context.Context) error) ConsoleOption {
	return func(c *Console) {
		c.reload = fn
	}
}

func NewConsole(out io.Writer, session Session, opts ...ConsoleOption) *Console {
	c := &Console{out: out, session: session, ready: NewReadiness()}
	for _, opt := range opts {
		opt(c)
	}
	c.ready.Resolve()
	return c
}

func (c *Console) Ready() <-chan struct{} { return c.ready.Done() }

func (c *Console) Session() Session { return c.session }

func (c *Console) Haptic(kind HapticKind) {
	logger.L().Debug("haptic", zap.String("kind", string(kind)))
}

func (c *Console) Toast(ctx context.Context, level ToastLevel, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := fmt.Fprintf(c.out, "%s %s\n", toastIcon(level), text)
	return err
}

func (c *Console) Reload(ctx context.Context) error {
	if c.reload == nil {
		logger.FromCtx(ctx).Info("reload requested")
		return nil
	}
	return c.reload(ctx)
}

func toastIcon(level ToastLevel) string {
	switch level {
	case ToastSuccess:
		return "✅"
	case ToastWarning:
		return "⚠️"
	case ToastError:
		return "❌"
	default:
		return "ℹ️"
	}
}
