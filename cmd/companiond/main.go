// Package main is the CLI entry point for companiond.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ambientworks/companiond/internal/config"
	"github.com/ambientworks/companiond/internal/dispatch"
	"github.com/ambientworks/companiond/internal/domain"
	"github.com/ambientworks/companiond/internal/infra"
	"github.com/ambientworks/companiond/internal/llm"
	"github.com/ambientworks/companiond/internal/monitor"
	"github.com/ambientworks/companiond/internal/probe"
	"github.com/ambientworks/companiond/internal/prompt"
	"github.com/ambientworks/companiond/internal/provider"
	"github.com/ambientworks/companiond/internal/server"
	"github.com/ambientworks/companiond/internal/tts"
)

var (
	// Version info (set via ldflags)
	Version   = "0.1.0"
	Commit    = "dev"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "companiond",
	Short: "Desktop companion daemon - focus-aware suggestions over WebSocket",
	Long: `companiond watches the focused application, asks an LLM for a short
contextual suggestion when focus settles on a supported app, and
streams suggestions and chat replies to connected desktop clients
over a local WebSocket.`,
	Version: Version,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the companion daemon",
	Long: `Starts the focus monitor and the WebSocket server, and runs until
interrupted. A Gemini API key must be available via the GEMINI_API_KEY
environment variable, the config file, or a previous run's secret store.`,
	RunE: runServe,
}

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List registered context providers",
	Long:  `Shows the application context providers in resolution order.`,
	RunE:  runProviders,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run:   runVersion,
}

var jsonOutput bool

func init() {
	versionCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output version info as JSON")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(providersCmd)
	rootCmd.AddCommand(versionCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := createLogger(cfg.DataDir)
	defer func() { _ = logger.Sync() }()
	logger.Info("companiond starting", zap.String("version", Version))

	apiKey, store, err := resolveAPIKey(cfg, logger)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}
	if apiKey == "" {
		return fmt.Errorf("no API key: set GEMINI_API_KEY or llm.api_key in the config file")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	generator, err := llm.NewGemini(ctx, apiKey, cfg.LLM.Model, logger)
	if err != nil {
		return fmt.Errorf("failed to create LLM client: %w", err)
	}

	registry := provider.NewDefaultRegistry(logger)
	focusProbe := probe.New(logger)
	composer := prompt.NewComposer(prompt.DefaultPersona())
	state := monitor.NewState()

	var speaker domain.Speaker = tts.NullSpeaker{}
	if cfg.Speech.Enabled {
		speaker = tts.NewSystemSpeaker(cfg.Speech.Rate, logger)
	}

	hub := server.NewHub(logger)

	dispatcher := dispatch.New(
		registry,
		focusProbe,
		state,
		composer,
		generator,
		generator,
		speaker,
		hub,
		cfg.Monitor.IgnoreApps,
		logger,
	)

	mon := monitor.New(
		monitor.Config{
			Interval:           cfg.Monitor.Interval,
			SuggestionCooldown: cfg.Monitor.SuggestionCooldown,
			IgnoreApps:         cfg.Monitor.IgnoreApps,
		},
		state,
		registry,
		focusProbe,
		dispatcher,
		logger,
	)

	srv := server.New(cfg.Server.ListenAddr, hub, dispatcher, logger)
	srv.Start(ctx)

	monitorDone := make(chan error, 1)
	go func() {
		monitorDone <- mon.Run(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	logger.Info("received shutdown signal")

	// Stop the monitor first so no new notification starts, then drop
	// the client sessions. The server shuts down on context cancel.
	cancel()
	<-monitorDone
	hub.CloseAll()

	logger.Info("companiond stopped")
	return nil
}

// resolveAPIKey returns the Gemini API key, preferring config/env and
// falling back to the encrypted secret store. A key arriving via
// config/env is written through to the store so later runs work without
// it. Store failures degrade to config/env-only operation.
func resolveAPIKey(cfg *config.Config, logger *zap.Logger) (string, domain.SecretStore, error) {
	const secretName = "gemini_api_key"

	store, err := openSecretStore(cfg.DataDir)
	if err != nil {
		logger.Warn("secret store unavailable", zap.Error(err))
		return cfg.LLM.APIKey, nil, nil
	}

	if cfg.LLM.APIKey != "" {
		if err := store.Set(secretName, cfg.LLM.APIKey); err != nil {
			logger.Warn("failed to persist API key", zap.Error(err))
		}
		return cfg.LLM.APIKey, store, nil
	}

	stored, err := store.Get(secretName)
	if err != nil {
		logger.Warn("failed to read stored API key", zap.Error(err))
	}
	return stored, store, nil
}

func openSecretStore(dataDir string) (domain.SecretStore, error) {
	key, err := infra.NewFileKeyProvider(dataDir).EnsureKey()
	if err != nil {
		return nil, err
	}
	return infra.NewEncryptedSecretStore(dataDir, key)
}

func runProviders(cmd *cobra.Command, args []string) error {
	logger := zap.NewNop()
	registry := provider.NewDefaultRegistry(logger)

	fmt.Println("Context providers (resolution order):")
	for _, name := range registry.Names() {
		fmt.Printf("  - %s\n", name)
	}
	return nil
}

func createLogger(dataDir string) *zap.Logger {
	config := zap.NewProductionConfig()
	config.OutputPaths = []string{filepath.Join(dataDir, "companiond.log")}
	config.ErrorOutputPaths = []string{filepath.Join(dataDir, "companiond.error.log")}
	config.EncoderConfig.TimeKey = "time"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		logger, _ := zap.NewProduction()
		return logger
	}

	logger, err := config.Build()
	if err != nil {
		// Fallback to stderr if file logging fails
		logger, _ = zap.NewProduction()
		return logger
	}
	return logger
}

func runVersion(cmd *cobra.Command, args []string) {
	if jsonOutput {
		fmt.Printf(`{"version":"%s","commit":"%s","build_time":"%s"}`+"\n",
			Version, Commit, BuildTime)
	} else {
		fmt.Printf("companiond %s (commit: %s, built: %s)\n",
			Version, Commit, BuildTime)
	}
}
