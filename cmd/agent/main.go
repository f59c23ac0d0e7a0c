// Package main is the CLI entry point for the screentime agent.
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/fernwall/screentime/internal/agentcfg"
	"github.com/fernwall/screentime/internal/classify"
	"github.com/fernwall/screentime/internal/detector"
	"github.com/fernwall/screentime/internal/domain"
	"github.com/fernwall/screentime/internal/probe"
	"github.com/fernwall/screentime/internal/reporter"
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
	Use:   "screentime-agent",
	Short: "Usage tracking agent - reports foreground app activity",
	Long: `screentime-agent watches which application is in the foreground,
accumulates per-app usage, and ships it to the family backend in
batches. Pair it once with a token from the backend, then run it.`,
	Version: Version,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the agent (detector and reporter loops)",
	Long: `Runs the foreground detector and the usage reporter until
interrupted. Requires a paired device; see 'pair'.`,
	RunE: runAgent,
}

var pairCmd = &cobra.Command{
	Use:   "pair",
	Short: "Pair this device with the backend",
	Long: `Exchanges a one-time pairing token for device credentials and
stores them in the agent config. Tokens are minted on the backend and
expire quickly; pair promptly after generating one.`,
	RunE: runPair,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show pairing state and today's usage",
	RunE:  runStatus,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run:   runVersion,
}

var (
	dataDir    string
	pairToken  string
	deviceName string
	backendURL string
	jsonOutput bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", agentcfg.DefaultDataDir(),
		"Directory for agent config and local state")

	pairCmd.Flags().StringVar(&pairToken, "token", "", "One-time pairing token")
	pairCmd.Flags().StringVar(&deviceName, "name", "", "Device display name")
	pairCmd.Flags().StringVar(&backendURL, "backend", "", "Backend base URL (overrides config)")
	versionCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output version info as JSON")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(pairCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
}

func runAgent(cmd *cobra.Command, args []string) error {
	cfg, err := agentcfg.Load(dataDir)
	if err != nil {
		return err
	}
	if !cfg.Paired() {
		return fmt.Errorf("device is not paired; run 'screentime-agent pair --token <token> --name <name>' first")
	}

	logger := createLogger()
	defer func() { _ = logger.Sync() }()

	classifier := classify.New(cfg.ClassifierConfig, logger)
	sysProbe := probe.NewSystemProbe(nil)

	key, err := agentcfg.EnsureKey(dataDir)
	if err != nil {
		return fmt.Errorf("load spill key: %w", err)
	}
	spill, err := reporter.NewSpillStore(dataDir, key)
	if err != nil {
		return fmt.Errorf("open spill store: %w", err)
	}
	defer spill.Close()

	batch := reporter.NewBatch()
	client := reporter.NewClient(cfg.BackendURL)

	repCfg := reporter.DefaultConfig()
	repCfg.DeviceID = cfg.DeviceID
	repCfg.APIKey = cfg.APIKey
	repCfg.FlushInterval = cfg.ReportingInterval
	rep := reporter.New(repCfg, batch, client, spill, logger)

	det := detector.New(detector.Config{
		DeviceID:     cfg.DeviceID,
		PollInterval: cfg.PollingInterval,
	}, sysProbe, classifier, batch, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("received shutdown signal")
		cancel()
	}()

	logger.Info("agent starting",
		zap.String("device_id", cfg.DeviceID),
		zap.String("backend", cfg.BackendURL),
		zap.Duration("poll_interval", cfg.PollingInterval),
		zap.Duration("report_interval", cfg.ReportingInterval))

	errCh := make(chan error, 1)
	go func() {
		errCh <- det.Run(ctx)
	}()

	// The reporter owns the final flush on shutdown.
	if err := rep.Run(ctx); err != nil && err != context.Canceled {
		<-errCh
		return err
	}
	if err := <-errCh; err != nil && err != context.Canceled {
		return err
	}

	logger.Info("agent stopped")
	return nil
}

func runPair(cmd *cobra.Command, args []string) error {
	if pairToken == "" || deviceName == "" {
		return fmt.Errorf("--token and --name are required")
	}

	cfg, err := agentcfg.Load(dataDir)
	if err != nil {
		return err
	}
	if backendURL != "" {
		cfg.BackendURL = backendURL
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client := reporter.NewClient(cfg.BackendURL)
	device, err := client.Pair(ctx, domain.PairRequest{
		Token:      pairToken,
		DeviceName: deviceName,
		DeviceType: runtime.GOOS,
		MACAddress: primaryMAC(),
	})
	if err != nil {
		return fmt.Errorf("pairing failed: %w", err)
	}

	cfg.DeviceID = device.DeviceID
	cfg.APIKey = device.APIKey
	if err := agentcfg.Save(dataDir, cfg); err != nil {
		return fmt.Errorf("save credentials: %w", err)
	}

	fmt.Printf("Paired as %q (device %s)\n", deviceName, device.DeviceID)
	fmt.Printf("Config written to %s\n", dataDir)
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := agentcfg.Load(dataDir)
	if err != nil {
		return err
	}

	fmt.Println("\n=== screentime-agent Status ===")
	if !cfg.Paired() {
		fmt.Println("Pairing: NOT PAIRED")
		fmt.Println("\nRun 'screentime-agent pair --token <token> --name <name>'.")
		return nil
	}
	fmt.Println("Pairing: PAIRED")
	fmt.Printf("Device:  %s\n", cfg.DeviceID)
	fmt.Printf("Backend: %s\n", cfg.BackendURL)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client := reporter.NewClient(cfg.BackendURL)
	resp, err := client.FetchRules(ctx, cfg.DeviceID, cfg.APIKey)
	if err != nil {
		fmt.Printf("\nBackend unreachable: %v\n", err)
		return nil
	}

	fmt.Printf("\nToday's usage: %s\n", (time.Duration(resp.DailyUsage) * time.Second).String())
	if len(resp.Rules) > 0 {
		fmt.Println("Rules:")
		for _, r := range resp.Rules {
			target := "device"
			if r.AppName != "" {
				target = r.AppName
			}
			state := "ok"
			if r.Exceeded {
				state = "EXCEEDED"
			}
			fmt.Printf("  - %s %s: %dm [%s]\n", r.RuleType, target, r.TimeLimitMinutes, state)
		}
	}
	fmt.Println("===============================")
	return nil
}

// primaryMAC returns the hardware address of the first non-loopback
// interface, or "" when none is available.
func primaryMAC() string {
	ifaces, err := net.Interfaces()
	if err != nil {
		return ""
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 || len(iface.HardwareAddr) == 0 {
			continue
		}
		return iface.HardwareAddr.String()
	}
	return ""
}

func createLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.OutputPaths = []string{filepath.Join(dataDir, "agent.log")}
	config.ErrorOutputPaths = []string{filepath.Join(dataDir, "agent.error.log")}
	config.EncoderConfig.TimeKey = "time"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := config.Build()
	if err != nil {
		// Fallback to stdout if file logging fails
		logger, _ = zap.NewProduction()
	}
	return logger
}

func runVersion(cmd *cobra.Command, args []string) {
	if jsonOutput {
		fmt.Printf(`{"version":"%s","commit":"%s","build_time":"%s"}`+"\n",
			Version, Commit, BuildTime)
	} else {
		fmt.Printf("screentime-agent %s (commit: %s, built: %s)\n",
			Version, Commit, BuildTime)
	}
}
