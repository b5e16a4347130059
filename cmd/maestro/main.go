package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/scrum-maestro/agent/internal/chat"
	"github.com/scrum-maestro/agent/internal/config"
	"github.com/scrum-maestro/agent/internal/dedup"
	"github.com/scrum-maestro/agent/internal/engine"
	"github.com/scrum-maestro/agent/internal/extract"
	"github.com/scrum-maestro/agent/internal/health"
	"github.com/scrum-maestro/agent/internal/jira"
	"github.com/scrum-maestro/agent/internal/llm"
	"github.com/scrum-maestro/agent/internal/metrics"
	"github.com/scrum-maestro/agent/internal/mgmt"
	"github.com/scrum-maestro/agent/internal/notify"
	"github.com/scrum-maestro/agent/internal/responder"
	"github.com/scrum-maestro/agent/internal/sched"
	"github.com/scrum-maestro/agent/internal/standup"
	"github.com/scrum-maestro/agent/internal/store"
)

const botName = "ScrumMaestro"

var version = "dev"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	logger := zerolog.New(os.Stdout).With().Timestamp().Caller().Logger()

	if os.Getenv("ENVIRONMENT") == "development" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	log.Logger = logger

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	if level, perr := zerolog.ParseLevel(cfg.LogLevel); perr == nil {
		zerolog.SetGlobalLevel(level)
	}

	rules, err := config.LoadRules(cfg.RulesPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.RulesPath).Msg("failed to load rules")
	}

	logger.Info().
		Str("environment", cfg.Environment).
		Str("ops_addr", cfg.OpsListenAddr).
		Str("mgmt_addr", cfg.MgmtListenAddr).
		Bool("jira_enabled", cfg.JiraEnabled()).
		Bool("oracle_enabled", cfg.OracleEnabled()).
		Msg("starting " + botName)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	m := metrics.New()
	checker := health.NewChecker(logger)

	db, err := store.New(cfg.DBPath, logger)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.DBPath).Msg("failed to open store")
	}
	defer db.Close()
	checker.Register("store", func(ctx context.Context) error {
		return db.Ping()
	})

	provider := chat.NewClient(cfg.SlackBotToken, cfg.SlackChannel, cfg.SlackFetchLimit, logger)
	checker.Register("slack", func(ctx context.Context) error {
		_, err := provider.BotUserID(ctx)
		return err
	})

	var oracle llm.Oracle
	if cfg.OracleEnabled() {
		oracle = llm.NewGeminiClient(cfg.GeminiAPIKey, logger,
			llm.WithModel(cfg.GeminiModel),
			llm.WithTimeout(cfg.OracleTimeout))
	} else {
		logger.Warn().Msg("oracle not configured, extraction and summaries disabled")
	}

	var tracker engine.IssueTracker
	if cfg.JiraEnabled() {
		tracker = jira.NewClient(cfg.JiraBaseURL, jira.BasicAuth{
			Email:    cfg.JiraAPIEmail,
			APIToken: cfg.JiraAPIToken,
		}, logger)
		logger.Info().Str("project", cfg.JiraProjectKey).Msg("Jira issue filing enabled")
	} else {
		logger.Info().Msg("Jira not configured, skipping issue filing")
	}

	notifier := notify.New(provider, cfg.SlackChannel, db, m, logger)
	eng := engine.New(db, tracker, notifier, &rules, cfg.JiraProjectKey, m, logger)

	seen := dedup.New(cfg.DedupCapacity)
	buffer := standup.NewBuffer()

	scheduler := sched.New(m, logger)
	scheduler.Register(sched.Job{
		Name:     "reconcile",
		Interval: cfg.ReconcileInterval,
		Run:      eng.Reconcile,
	})
	scheduler.Register(sched.Job{
		Name:     "due-reminder",
		Interval: cfg.ReminderInterval,
		Run:      eng.RemindDueSoon,
	})
	scheduler.Register(sched.Job{
		Name:     "dead-letter-replay",
		Interval: cfg.DeadLetterInterval,
		Run:      notifier.ReplayDeadLetters,
	})

	if oracle != nil {
		extractor := extract.New(oracle, rules.ExtractionPrompt, logger)
		ingestor := engine.NewIngestor(provider, seen, extractor, eng, buffer, m, logger)
		scheduler.Register(sched.Job{
			Name:     "ingest",
			Interval: cfg.IngestInterval,
			Run:      ingestor.Run,
		})

		summarizer := standup.New(buffer, oracle, provider, notifier, &rules, cfg.SummaryWarmup, logger)
		scheduler.Register(sched.Job{
			Name:     "standup-summary",
			Interval: cfg.SummaryInterval,
			Run:      summarizer.Run,
		})
		scheduler.Register(sched.Job{
			Name:     "morning-greeting",
			Interval: cfg.GreetingInterval,
			Run:      summarizer.Greet,
		})

		replier := responder.New(provider, seen, db, oracle, notifier, &rules, botName, logger)
		scheduler.Register(sched.Job{
			Name:     "mention-reply",
			Interval: cfg.MentionInterval,
			Run:      replier.Run,
		})
	}

	scheduler.Start(ctx)

	// ops HTTP server: probes and metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/health", health.LivenessHandler())
	mux.HandleFunc("/ready", checker.ReadinessHandler())
	mux.Handle("/metrics", m.Handler())

	opsServer := &http.Server{
		Addr:         cfg.OpsListenAddr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		logger.Info().Str("addr", cfg.OpsListenAddr).Msg("ops server starting")
		if err := opsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("ops server error")
		}
	}()

	mgmtServer := mgmt.NewServer(mgmt.ServerConfig{
		ListenAddr:  cfg.MgmtListenAddr,
		APIKey:      cfg.MgmtAPIKey,
		Environment: cfg.Environment,
		Version:     version,
	}, db, logger)

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := mgmtServer.Listen(); err != nil {
			logger.Error().Err(err).Msg("management API server error")
		}
	}()

	sig := <-sigCh
	logger.Info().Str("signal", sig.String()).Msg("shutting down gracefully")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := opsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("ops server shutdown error")
	}
	if err := mgmtServer.Shutdown(); err != nil {
		logger.Error().Err(err).Msg("management API server shutdown error")
	}

	done := make(chan struct{})
	go func() {
		scheduler.Wait()
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info().Msg("all goroutines stopped")
	case <-time.After(15 * time.Second):
		logger.Warn().Msg("forced shutdown after timeout")
	}

	logger.Info().Msg(botName + " stopped")
}
