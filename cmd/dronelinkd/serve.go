package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dronelink/dronelinkd/internal/adapter"
	"github.com/dronelink/dronelinkd/internal/adapter/fake"
	"github.com/dronelink/dronelinkd/internal/api"
	"github.com/dronelink/dronelinkd/internal/audit"
	"github.com/dronelink/dronelinkd/internal/auth"
	"github.com/dronelink/dronelinkd/internal/bridge"
	"github.com/dronelink/dronelinkd/internal/config"
	"github.com/dronelink/dronelinkd/internal/metrics"
	"github.com/dronelink/dronelinkd/internal/session"
	"github.com/dronelink/dronelinkd/internal/telemetry"
)

type serveFlags struct {
	configPath string
	addr       string
	simulate   bool
	logLevel   string
}

func newServeCommand() *cobra.Command {
	var flags serveFlags
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the MQTT transport bridge",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(flags.configPath)
			if err != nil {
				return err
			}
			if flags.addr != "" {
				cfg.Server.Addr = flags.addr
			}
			if flags.simulate {
				cfg.Simulate = true
			}
			if flags.logLevel != "" {
				cfg.Log.Level = flags.logLevel
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
	cmd.Flags().StringVarP(&flags.configPath, "config", "c", "", "YAML configuration file")
	cmd.Flags().StringVar(&flags.addr, "addr", "", "HTTP listen address (overrides server.addr)")
	cmd.Flags().BoolVar(&flags.simulate, "simulate", false, "Use simulated drones")
	cmd.Flags().StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, warn or error")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config) error {
	// Step 1: logging and tracing
	logger, err := newLogger(cfg.Log, os.Stderr)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	logger.Info("Starting dronelinkd", "version", Version, "simulate", cfg.Simulate, "tracing", cfg.Tracing.Endpoint)

	shutdownTracing, err := setupTracing(ctx, cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn("Tracer shutdown failed", "error", err)
		}
	}()

	// Step 2: reporters
	m := metrics.New()

	auditLogger, err := audit.NewLogger(cfg.Audit, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize audit logger: %w", err)
	}
	defer func() {
		if err := auditLogger.Close(); err != nil {
			logger.Warn("Error closing audit logger", "error", err)
		}
	}()

	verifier, err := auth.FromConfig(cfg.Auth)
	if err != nil {
		return fmt.Errorf("failed to initialize auth: %w", err)
	}
	if verifier == nil {
		logger.Warn("Authentication disabled, API requests run as anonymous pilot")
	}

	// Step 3: session manager, telemetry and bridge
	var manager *session.Manager
	hub := telemetry.NewHub(&cfg.Timing, func() map[string]interface{} {
		return snapshot(manager)
	}, logger)

	var b *bridge.Bridge
	if cfg.MQTT.Broker != "" {
		client, err := bridge.Dial(cfg.MQTT, bridge.WillTopic(cfg.MQTT), bridge.ClosedPayload(), logger)
		if err != nil {
			hub.Stop()
			return err
		}
		b = bridge.New(client, productFactory(cfg.Simulate), cfg.MQTT, logger)
	}

	reporters := session.Reporters{auditLogger, hub, m}
	if b != nil {
		reporters = append(reporters, b)
	}
	manager = session.NewManager(session.Options{
		Timing:       &cfg.Timing,
		Logger:       logger,
		Reporter:     reporters,
		PollRecorder: m,
	})
	defer manager.Close()
	manager.Add(hub)
	manager.Add(m)

	if b != nil {
		if err := b.Start(manager); err != nil {
			hub.Stop()
			return err
		}
		defer b.Stop()
	} else if cfg.Simulate {
		manager.ProductConnected(fake.NewDrone("Simulator"))
	}

	// Step 4: HTTP API
	server := api.NewServer(api.Options{
		Manager:     manager,
		Telemetry:   hub,
		Auth:        auth.NewMiddleware(verifier),
		Metrics:     m,
		Logger:      logger,
		CommandWait: cfg.Timing.CommandWaitBudget(),
		Version:     Version,
	})

	serverErr := make(chan error, 1)
	go func() { serverErr <- server.Start(cfg.Server.Addr) }()

	select {
	case <-ctx.Done():
		logger.Info("Shutdown requested")
	case err = <-serverErr:
		if err != nil {
			logger.Error("HTTP server failed", "error", err)
		}
	}

	// Streams hold connections open, so the hub goes first.
	hub.Stop()
	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if stopErr := server.Stop(stopCtx); stopErr != nil {
		logger.Warn("Error stopping HTTP server", "error", stopErr)
	}

	logger.Info("dronelinkd stopped")
	return err
}

// productFactory builds products announced over MQTT. Only simulated drones are
// available in this build.
func productFactory(simulate bool) bridge.ProductFactory {
	return func(model string) (adapter.Product, error) {
		if !simulate {
			return nil, fmt.Errorf("no adapter for model %q (start with --simulate)", model)
		}
		if model == "" {
			model = "Simulator"
		}
		return fake.NewDrone(model), nil
	}
}

// snapshot is the payload of the telemetry ready event.
func snapshot(m *session.Manager) map[string]interface{} {
	data := map[string]interface{}{"session": nil}
	if m == nil {
		return data
	}
	data["statusMessages"] = m.StatusMessages()
	if s := m.Session(); s != nil {
		data["session"] = s.State()
	}
	return data
}
