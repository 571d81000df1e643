package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/0xPuncker/chain-gatekeeper/internal/addchain"
	"github.com/0xPuncker/chain-gatekeeper/internal/api"
	"github.com/0xPuncker/chain-gatekeeper/internal/approval"
	"github.com/0xPuncker/chain-gatekeeper/internal/config"
	"github.com/0xPuncker/chain-gatekeeper/internal/cron"
	"github.com/0xPuncker/chain-gatekeeper/internal/events"
	"github.com/0xPuncker/chain-gatekeeper/internal/network"
	"github.com/0xPuncker/chain-gatekeeper/internal/notifications"
	"github.com/0xPuncker/chain-gatekeeper/internal/poller"
	"github.com/0xPuncker/chain-gatekeeper/internal/rpc"
	seedconfig "github.com/0xPuncker/chain-gatekeeper/pkg/config"
	"github.com/0xPuncker/chain-gatekeeper/pkg/types"
	"github.com/dimiro1/banner"
	"github.com/mattn/go-colorable"
	"github.com/sirupsen/logrus"
)

const bannerText = `
{{ .Title "Chain Gatekeeper" "" 0 }} 
{{ .AnsiBackground.BrightBlue }}{{ .AnsiColor.White }}
{{ .AnsiReset }}
`

func main() {
	banner.Init(colorable.NewColorableStdout(), true, true, strings.NewReader(bannerText))

	configPath := flag.String("config", "config/config.json", "path to config file")
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   false,
		TimestampFormat: "2006-01-02T15:04:05-07:00",
	})

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logger.Warnf("Unknown log level %q, using info", cfg.LogLevel)
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	approvalTimeout, _ := cfg.ApprovalTimeout()
	readTimeout, _ := cfg.ReadTimeout()
	writeTimeout, _ := cfg.WriteTimeout()
	healthInterval, _ := cfg.HealthInterval()

	registry := network.NewRegistry(logger)

	seed, err := seedconfig.LoadSeed(cfg.Networks.SeedPath)
	if err != nil {
		logger.Fatalf("Failed to load network seed: %v", err)
	}
	logger.Debugf("Seeded %d networks from %s", registry.Seed(seed.Networks), cfg.Networks.SeedPath)

	restored, err := registry.LoadSnapshot(cfg.Networks.SnapshotPath)
	if err != nil {
		logger.Fatalf("Failed to load network snapshot: %v", err)
	}
	logger.Debugf("Restored %d networks from %s", restored, cfg.Networks.SnapshotPath)

	approvals := approval.NewController(logger, approvalTimeout)

	slack, err := notifications.NewSlackService(logger, cfg.Slack.WebhookURL)
	if err != nil {
		logger.Warnf("Failed to initialize Slack service: %v", err)
	} else {
		approvals.AddNotifier(slack)
		registry.AddNotifier(slack)
	}

	hub := events.NewHub(logger)
	approvals.AddNotifier(hub)
	registry.AddNotifier(hub)

	dispatcher := rpc.NewDispatcher(logger)
	addChain := addchain.NewHandler(registry, approvals, registry, logger)
	dispatcher.Register(types.MessageTypeAddEthereumChain, addChain.ServeRPC)

	scheduler := cron.NewScheduler(logger, cfg.Jobs)
	scheduler.RegisterTask(types.TaskExpireApprovals, cron.NewExpireApprovalsTask(approvals, logger))
	scheduler.RegisterTask(types.TaskSnapshotNetworks, cron.NewSnapshotNetworksTask(registry, cfg.Networks.SnapshotPath, logger))
	if err := scheduler.LoadPredefinedJobs(cfg.Jobs.Predefined); err != nil {
		logger.Fatalf("Failed to load jobs: %v", err)
	}

	handler := api.NewHandler(dispatcher, registry, approvals, scheduler, logger)
	handler.SetEventHub(hub)
	server := api.NewServer(handler, logger, cfg.Server.Port, readTimeout, writeTimeout)

	var p *poller.Poller
	if healthInterval > 0 {
		p = poller.New(registry, logger, healthInterval, cfg.Fetch.TimeoutMS)
		handler.SetHealthReporter(p)
		p.Start(context.Background())
	}

	startupNotifier := notifications.NewStartupNotifier(registry, slack, logger)
	go func() {
		if err := startupNotifier.NotifyStartup(); err != nil {
			logger.Warnf("Startup notification failed: %v", err)
		}
	}()

	if err := scheduler.Start(); err != nil {
		logger.Fatalf("Failed to start scheduler: %v", err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	logger.Infof("Server started on port %s - Press Ctrl+C to stop.", cfg.Server.Port)

	<-stop
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if p != nil {
		p.Stop()
	}
	scheduler.Stop()

	hub.Close()
	if err := server.Shutdown(ctx); err != nil {
		logger.Errorf("Server shutdown failed: %v", err)
	}

	if err := registry.SaveSnapshot(cfg.Networks.SnapshotPath); err != nil {
		logger.Errorf("Failed to write network snapshot: %v", err)
	}

	logger.Info("Server stopped")
}
