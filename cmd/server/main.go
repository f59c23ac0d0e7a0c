// Package main is the CLI entry point for the screentime backend.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/fernwall/screentime/internal/rules"
	"github.com/fernwall/screentime/internal/server"
	"github.com/fernwall/screentime/internal/storage"
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
	Use:   "screentime-server",
	Short: "Family usage tracking backend",
	Long: `screentime-server receives usage reports from paired agents,
stores them, and serves enforcement rules with live usage figures.`,
	Version: Version,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	RunE:  runServe,
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage pairing tokens",
}

var tokenNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Mint a one-time pairing token",
	Long: `Mints a pairing token and prints it. Hand the token to the device
being paired; it is single-use and expires after the configured TTL.`,
	RunE: runTokenNew,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run:   runVersion,
}

var (
	configPath string
	jsonOutput bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to server config file")
	versionCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output version info as JSON")

	tokenCmd.AddCommand(tokenNewCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(versionCmd)
}

// buildHandlers opens the database and wires the handler dependencies.
// The caller owns closing the returned DB.
func buildHandlers(cfg server.Config, logger *zap.Logger) (*server.Handlers, *storage.DB, error) {
	db, err := storage.Open(cfg.DatabasePath)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}

	devices := storage.NewDeviceStore(db)
	usage := storage.NewUsageLogStore(db)
	ruleStore := storage.NewRuleStore(db)
	pairing := storage.NewPairingStore(db)

	clock := rules.RealClock{}
	engine := rules.NewEngine(ruleStore, usage, clock, logger)

	return server.NewHandlers(devices, usage, pairing, engine, clock, logger), db, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := server.LoadConfig(configPath)
	if err != nil {
		return err
	}

	logger, err := createLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	handlers, db, err := buildHandlers(cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	logger.Info("backend starting",
		zap.String("addr", cfg.ListenAddr),
		zap.String("database", cfg.DatabasePath),
		zap.String("version", Version))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("received shutdown signal")
		cancel()
	}()

	srv := server.New(cfg, handlers, logger)
	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("server: %w", err)
	}

	logger.Info("backend stopped")
	return nil
}

func runTokenNew(cmd *cobra.Command, args []string) error {
	cfg, err := server.LoadConfig(configPath)
	if err != nil {
		return err
	}

	logger := zap.NewNop()
	handlers, db, err := buildHandlers(cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	tok, err := handlers.CreatePairingToken(context.Background(), cfg.PairingTokenTTL)
	if err != nil {
		return fmt.Errorf("mint pairing token: %w", err)
	}

	fmt.Printf("Pairing token: %s\n", tok.Token)
	fmt.Printf("Expires:       %s\n", tok.ExpiresAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Println("\nOn the device, run:")
	fmt.Printf("  screentime-agent pair --token %s --name <device-name>\n", tok.Token)
	return nil
}

func createLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(lvl)
	config.EncoderConfig.TimeKey = "time"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return config.Build()
}

func runVersion(cmd *cobra.Command, args []string) {
	if jsonOutput {
		fmt.Printf(`{"version":"%s","commit":"%s","build_time":"%s"}`+"\n",
			Version, Commit, BuildTime)
	} else {
		fmt.Printf("screentime-server %s (commit: %s, built: %s)\n",
			Version, Commit, BuildTime)
	}
}
