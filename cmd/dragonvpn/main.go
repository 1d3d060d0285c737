package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"dragonvpn-app/internal/api"
	"dragonvpn-app/internal/app"
	"dragonvpn-app/internal/config"
	"dragonvpn-app/internal/db"
	"dragonvpn-app/internal/host"
	"dragonvpn-app/internal/logger"
	"dragonvpn-app/internal/storage"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var Version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, userMessage(err))
		logger.L().Debug("command failed", zap.Error(err))
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "dragonvpn",
		Short:         "Dragon VPN client",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(servicesCmd())
	rootCmd.AddCommand(subscriptionCmd())
	rootCmd.AddCommand(buyCmd())
	rootCmd.AddCommand(paymentsCmd())
	rootCmd.AddCommand(resumeCmd())
	rootCmd.AddCommand(refundCmd())
	rootCmd.AddCommand(keysCmd())
	rootCmd.AddCommand(referralsCmd())
	rootCmd.AddCommand(giftCmd())
	rootCmd.AddCommand(watchCmd())
	rootCmd.AddCommand(serveCmd())

	return rootCmd
}

// runtime is a bootstrapped client plus what it takes to shut it down.
type runtime struct {
	cfg   *config.Config
	app   *app.App
	close func()
}

func setup(ctx context.Context, out io.Writer) (*runtime, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	logger.Init(cfg.AppEnv)

	session, err := host.ParseInitData(cfg.InitData)
	if err != nil {
		return nil, err
	}

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	a := app.New(cfg, newHost(cfg, session, out), store)
	if err := a.Bootstrap(ctx); err != nil {
		a.Close()
		closeStore()
		return nil, err
	}

	return &runtime{
		cfg: cfg,
		app: a,
		close: func() {
			a.Close()
			closeStore()
			logger.Sync()
		},
	}, nil
}

// openStore connects the durable storage selected by STORAGE_DRIVER.
func openStore(ctx context.Context, cfg *config.Config) (storage.Store, func(), error) {
	switch cfg.StorageDriver {
	case "redis":
		client, err := storage.DialRedis(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			return nil, nil, err
		}
		return storage.NewRedis(client), func() { _ = client.Close() }, nil
	case "postgres":
		database, err := db.NewDatabase(cfg.DBURL)
		if err != nil {
			return nil, nil, err
		}
		return storage.NewPostgres(database), func() { _ = database.Close() }, nil
	case "memory", "":
		return storage.NewMemory(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

// newHost talks through the bot when one is configured and prints to out
// otherwise.
func newHost(cfg *config.Config, session host.Session, out io.Writer) host.Host {
	if cfg.BotToken != "" && cfg.ChatID != 0 {
		return host.DialTelegram(cfg.BotToken, cfg.ChatID, session)
	}
	return host.NewConsole(out, session, host.WithReload(func(ctx context.Context) error {
		_, err := fmt.Fprintln(out, "Откройте приложение заново, чтобы продолжить")
		return err
	}))
}

func userMessage(err error) string {
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		return api.UserMessage(err)
	}
	return err.Error()
}
