package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/futig/rag-conversations/internal/builder"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var environment string

	root := &cobra.Command{
		Use:           "ragchat",
		Short:         "Conversations over your own documents, backed by a remote RAG service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&environment, "env", "dev", "environment name, selects the .env file to load")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the local HTTP API",
			RunE: func(cmd *cobra.Command, args []string) error {
				app, err := builder.Build(environment)
				if err != nil {
					return fmt.Errorf("failed to build application: %w", err)
				}
				return app.Run()
			},
		},
		&cobra.Command{
			Use:   "bot",
			Short: "Run the Telegram bot",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runBot(environment)
			},
		},
		&cobra.Command{
			Use:   "watch",
			Short: "Upload files dropped into the watch folder to the active conversation",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runWatcher(environment)
			},
		},
	)

	return root
}

func runBot(environment string) error {
	bot, core, err := builder.BuildTelegramBot(environment)
	if err != nil {
		return fmt.Errorf("failed to build telegram bot: %w", err)
	}
	defer core.Close()
	logger := core.Logger

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		logger.Info("starting telegram bot...")
		if err := bot.Start(ctx); err != nil {
			errChan <- err
		}
	}()

	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal",
			zap.String("signal", sig.String()))
		cancel()
		if err := bot.Stop(); err != nil {
			logger.Error("error stopping bot",
				zap.Error(err))
		}
		logger.Info("telegram bot stopped gracefully")
		return nil
	case err := <-errChan:
		logger.Error("telegram bot error",
			zap.Error(err))
		cancel()
		return err
	}
}

func runWatcher(environment string) error {
	w, core, err := builder.BuildWatcher(environment)
	if err != nil {
		return fmt.Errorf("failed to build watcher: %w", err)
	}
	defer core.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	core.Logger.Info("watching folder", zap.String("dir", core.Cfg.WatchCfg.Dir))
	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	core.Logger.Info("watcher stopped")
	return nil
}
