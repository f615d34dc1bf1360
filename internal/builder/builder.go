package builder

import (
	"context"
	"fmt"
	"net/http"

	"github.com/futig/rag-conversations/internal/api"
	conversationapi "github.com/futig/rag-conversations/internal/api/conversation"
	"github.com/futig/rag-conversations/internal/config"
	"github.com/futig/rag-conversations/internal/idgen"
	"github.com/futig/rag-conversations/internal/integration/common"
	"github.com/futig/rag-conversations/internal/integration/rag"
	"github.com/futig/rag-conversations/internal/pkg/formatter"
	"github.com/futig/rag-conversations/internal/pkg/logger"
	"github.com/futig/rag-conversations/internal/pkg/validator"
	"github.com/futig/rag-conversations/internal/repository"
	"github.com/futig/rag-conversations/internal/telegram"
	"github.com/futig/rag-conversations/internal/telegram/handlers"
	"github.com/futig/rag-conversations/internal/usecase/conversation"
	"github.com/futig/rag-conversations/internal/watcher"
	"go.uber.org/zap"
)

var (
	_ conversation.RagConnector = &rag.Connector{}
	_ conversation.RagConnector = &rag.MockConnector{}

	_ conversationapi.ConversationUsecase = &conversation.Store{}
	_ handlers.ConversationUsecase        = &conversation.Store{}
	_ watcher.Uploader                    = &conversation.Store{}
)

// Core is what every front end shares: configuration, logger, the opened
// state store and the conversation store on top of it.
type Core struct {
	Cfg       *config.Config
	Logger    *zap.Logger
	Store     *conversation.Store
	Validator *validator.Validator
	kv        repository.Store
}

// Close releases the state store and flushes the logger.
func (c *Core) Close() {
	if err := c.kv.Close(); err != nil {
		c.Logger.Error("failed to close state store", zap.Error(err))
	}
	_ = c.Logger.Sync()
}

func buildCore(ctx context.Context, environment string) (*Core, error) {
	cfg, err := config.LoadConfig(environment)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, fmt.Errorf("setup logger: %w", err)
	}

	log.Info("Building application",
		zap.String("environment", cfg.Environment),
		zap.String("store_driver", cfg.StoreCfg.Driver),
	)

	kv, err := openStore(ctx, cfg.StoreCfg, log)
	if err != nil {
		return nil, err
	}

	ids, err := idgen.New(cfg.ConversationCfg.IDFormat)
	if err != nil {
		_ = kv.Close()
		return nil, err
	}

	var ragConnector conversation.RagConnector
	if cfg.EnableMocks {
		log.Info("Using mock connector for the RAG service")
		ragConnector = rag.NewMockConnector(log)
	} else {
		log.Info("Using RAG service", zap.String("url", cfg.RAGConnectorCfg.Url))
		ragConnector = rag.NewConnector(cfg.RAGConnectorCfg, log)
	}

	fileValidator := validator.NewFileValidator(cfg.FileUploadCfg)

	store, err := conversation.New(ctx, kv, ragConnector, ids, fileValidator, formatter.NewFactory(),
		conversation.Options{
			DefaultTitle:      cfg.ConversationCfg.DefaultTitle,
			UploadConcurrency: cfg.FileUploadCfg.Concurrency,
		}, log)
	if err != nil {
		_ = kv.Close()
		return nil, fmt.Errorf("load conversations: %w", err)
	}

	log.Info("Conversation store loaded", zap.Int("conversations", len(store.List())))

	return &Core{
		Cfg:       cfg,
		Logger:    log,
		Store:     store,
		Validator: fileValidator,
		kv:        kv,
	}, nil
}

// Build wires the local HTTP API.
func Build(environment string) (*App, error) {
	core, err := buildCore(context.Background(), environment)
	if err != nil {
		return nil, err
	}
	cfg := core.Cfg

	conversationHandler := conversationapi.NewHandler(core.Store, cfg.FileUploadCfg, core.Validator)
	router := api.SetupRouter(conversationHandler, cfg.ServerRequestTimeout, core.Logger)

	// Write timeout covers multipart uploads and exports; builds run detached.
	server := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      router,
		ReadTimeout:  cfg.ServerRequestTimeout,
		WriteTimeout: cfg.ServerRequestTimeout,
		IdleTimeout:  cfg.ServerRequestTimeout,
	}

	core.Logger.Info("Application built successfully", zap.String("server_addr", cfg.ServerAddr))

	return &App{
		server: server,
		core:   core,
	}, nil
}

// BuildTelegramBot wires the Telegram front end.
func BuildTelegramBot(environment string) (telegram.Bot, *Core, error) {
	core, err := buildCore(context.Background(), environment)
	if err != nil {
		return nil, nil, err
	}
	cfg := core.Cfg

	if err := cfg.ValidateTelegram(); err != nil {
		core.Close()
		return nil, nil, err
	}

	// Telegram file links already carry the bot token; no auth header.
	downloadCfg := cfg.RAGConnectorCfg.HTTPClientConfig
	downloadCfg.Token = ""
	downloadCfg.Url = ""
	downloader := common.NewBaseConnector(downloadCfg, core.Logger)

	bot, err := telegram.NewBot(&cfg.TelegramCfg, core.Store, downloader, core.Validator, core.Logger)
	if err != nil {
		core.Close()
		return nil, nil, fmt.Errorf("initialize telegram bot: %w", err)
	}

	return bot, core, nil
}

// BuildWatcher wires the drop folder uploader.
func BuildWatcher(environment string) (*watcher.Watcher, *Core, error) {
	core, err := buildCore(context.Background(), environment)
	if err != nil {
		return nil, nil, err
	}

	w, err := watcher.New(core.Cfg.WatchCfg, core.Store, core.Validator, core.Logger)
	if err != nil {
		core.Close()
		return nil, nil, err
	}

	return w, core, nil
}
