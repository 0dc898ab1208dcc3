// Command archivist is the process entrypoint: it wires every core
// component (C1-C7) into a running scheduler and a thin webhook/request
// listener, mirroring the teacher's cmd/app/main.go bootstrap shape
// (bootstrap -> sqlite -> config -> services -> signal-driven shutdown)
// but with the teacher's REST/auth/websocket tier replaced by the
// boundary-contract-only HTTP surface spec.md §1 calls for.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kestrelmedia/archivist/internal/actors"
	"github.com/kestrelmedia/archivist/internal/clients/downloader"
	"github.com/kestrelmedia/archivist/internal/clients/httpx"
	"github.com/kestrelmedia/archivist/internal/clients/mediaserver"
	"github.com/kestrelmedia/archivist/internal/clients/metadataprovider"
	"github.com/kestrelmedia/archivist/internal/clients/notifier"
	"github.com/kestrelmedia/archivist/internal/clients/translator"
	"github.com/kestrelmedia/archivist/internal/collections"
	"github.com/kestrelmedia/archivist/internal/config"
	"github.com/kestrelmedia/archivist/internal/db/sqlite"
	"github.com/kestrelmedia/archivist/internal/global"
	"github.com/kestrelmedia/archivist/internal/metadatasync"
	"github.com/kestrelmedia/archivist/internal/ratelimit"
	"github.com/kestrelmedia/archivist/internal/scheduler"
	"github.com/kestrelmedia/archivist/internal/selfupdate"
	"github.com/kestrelmedia/archivist/internal/subscriptions"
	"github.com/kestrelmedia/archivist/internal/watchlist"
	"github.com/kestrelmedia/archivist/internal/webhook"
	"github.com/kestrelmedia/archivist/pkg/structures"
)

var Version = "dev"

func main() {
	if v := os.Getenv("VERSION"); v != "" {
		Version = v
	}

	logLevel := slog.LevelInfo
	if Version == "dev" {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	bootstrap, err := config.NewBootstrap(Version)
	if err != nil {
		slog.Error("bootstrap config load failed", "error", err)
		os.Exit(1)
	}

	gctx, cancel := global.WithCancel(global.New(context.Background(), bootstrap, Version))
	defer cancel()

	store, err := sqlite.Open(bootstrap.SQLite.Path)
	if err != nil {
		slog.Error("sqlite open failed", "error", err)
		os.Exit(1)
	}
	gctx.Crate().Store = store.Query()
	slog.Info("sqlite ready", "path", bootstrap.SQLite.Path)

	rawSettings, err := store.Query().LoadAllSettings(gctx)
	if err != nil {
		slog.Error("settings load failed", "error", err)
		os.Exit(1)
	}
	cfg, err := config.New(rawSettings)
	if err != nil {
		slog.Error("config validation failed", "error", err)
		os.Exit(1)
	}

	breaker, err := httpx.New(httpx.Options{ProxyURL: cfg.ProxyURL, BreakerName: "media-server"})
	if err != nil {
		slog.Error("httpx client failed", "error", err)
		os.Exit(1)
	}

	gctx.Crate().MediaServer = mediaserver.New(cfg.MediaServer.URL, cfg.MediaServer.APIKey, cfg.MediaServer.Type, Version, breaker)

	gctx.Crate().MetadataProvider, err = metadataprovider.New(metadataprovider.Options{APIKey: cfg.TMDB.APIKey}, breaker)
	if err != nil {
		slog.Error("metadata provider client failed", "error", err)
		os.Exit(1)
	}

	gctx.Crate().Downloader, err = downloader.New(downloader.Options{
		BaseURL: cfg.Downloader.URL, Username: cfg.Downloader.Username, Password: cfg.Downloader.Password,
	}, breaker)
	if err != nil {
		slog.Error("downloader client failed", "error", err)
		os.Exit(1)
	}

	if cfg.NotifierBotToken != "" {
		gctx.Crate().Notifier, err = notifier.New(notifier.Options{BotToken: cfg.NotifierBotToken}, breaker)
		if err != nil {
			slog.Error("notifier client failed", "error", err)
			os.Exit(1)
		}
	}

	// Translator is an optional capability: cast-translation only runs
	// when an operator has configured a provider.
	if cfg.Translator.APIKey != "" {
		gctx.Crate().Translator, err = translator.New(translator.Options{
			BaseURL: cfg.Translator.URL, APIKey: cfg.Translator.APIKey,
		}, breaker)
		if err != nil {
			slog.Error("translator client failed", "error", err)
			os.Exit(1)
		}
	}

	gctx.Crate().RateLimiter = ratelimit.New()
	gctx.Crate().Quota = ratelimit.NewQuota(cfg.VIPQuotaPerDay)
	gctx.Crate().SelfUpdate = selfupdate.New()

	collectionBuilder := collections.NewBuilder(gctx.Crate().Store, gctx.Crate().MediaServer, gctx.Crate().MetadataProvider)

	subscriptionController := subscriptions.NewController(
		gctx.Crate().Store, gctx.Crate().Downloader, gctx.Crate().MetadataProvider, gctx.Crate().MediaServer,
		gctx.Crate().Quota, cfg.VIPUserIDs,
	)

	watchlistProcessor := &watchlist.Processor{
		Store:            gctx.Crate().Store,
		MediaServer:      gctx.Crate().MediaServer,
		MetadataProvider: gctx.Crate().MetadataProvider,
		Resubscriber:     subscriptionController,
	}

	mediaProcessor := &metadatasync.Processor{
		Store:            gctx.Crate().Store,
		MediaServer:      gctx.Crate().MediaServer,
		MetadataProvider: gctx.Crate().MetadataProvider,
		Notifier:         gctx.Crate().Notifier,
		Collections:      collectionBuilder,
		Watchlist:        watchlistProcessor,
		LibraryIDs:       cfg.LibraryIDs,
		NotifyChatID:     cfg.NotifyChatID,
	}

	processors := map[structures.ProcessorKind]scheduler.Processor{
		structures.ProcessorMedia:     mediaProcessor,
		structures.ProcessorWatchlist: watchlistProcessor,
	}
	if gctx.Crate().Translator != nil {
		processors[structures.ProcessorActor] = &actors.Processor{
			MediaServer: gctx.Crate().MediaServer,
			Translator:  gctx.Crate().Translator,
		}
	}

	sched := scheduler.New(processors)

	listener := webhook.New(webhook.Options{
		Scheduler:       sched,
		Subscriptions:   subscriptionController,
		MediaProcessor:  mediaProcessor,
		SelfUpdate:      gctx.Crate().SelfUpdate,
		ListenAddr:      bootstrapListenAddr(),
	})

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := listener.ListenAndServe(); err != nil {
			slog.Error("webhook listener stopped", "error", err)
		}
	}()

	slog.Info("archivist ready", "version", Version)

	<-interrupt
	slog.Warn("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = listener.Shutdown(shutdownCtx)

	if err := store.Close(); err != nil {
		slog.Error("sqlite close failed", "error", err)
	}
	slog.Info("shutdown complete")
}

func bootstrapListenAddr() string {
	if addr := os.Getenv("ARCHIVIST_LISTEN_ADDR"); addr != "" {
		return addr
	}
	return ":8090"
}
