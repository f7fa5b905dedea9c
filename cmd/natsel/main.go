package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/san-kum/natsel/internal/config"
	"github.com/san-kum/natsel/internal/controller"
	"github.com/san-kum/natsel/internal/engine"
	"github.com/san-kum/natsel/internal/logging"
	"github.com/san-kum/natsel/internal/storage"
	"github.com/san-kum/natsel/internal/tui"
)

var (
	configFile string
	engineURL  string
	dataDir    string
	logLevel   string
	theme      string
	cellWidth  int
	record     bool
)

// main registers the commands and runs the interactive viewer when no
// subcommand is given.
func main() {
	rootCmd := &cobra.Command{
		Use:           "natsel",
		Short:         "natural selection simulation client",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runInteractive,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", config.DefaultPath, "client config file (yaml)")
	pf.StringVar(&engineURL, "url", engine.DefaultBaseURL, "engine base url")
	pf.StringVar(&dataDir, "data", config.DefaultDataDir, "directory for recorded runs")
	pf.StringVar(&logLevel, "log-level", "info", "debug, info, warn or error")

	rootCmd.Flags().StringVar(&theme, "theme", config.DefaultTheme, "color theme")
	rootCmd.Flags().IntVar(&cellWidth, "cell-width", config.DefaultCellWidth, "terminal columns per grid cell")
	rootCmd.Flags().BoolVar(&record, "record", false, "record every applied snapshot")

	rootCmd.AddCommand(
		stateCommand(),
		stepCommand(),
		resetCommand(),
		configCommand(),
		presetsCommand(),
		scenarioCommand(),
		sweepCommand(),
		trialsCommand(),
		listCommand(),
		plotCommand(),
		exportCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// loadSettings reads the config file and lays changed flags over it.
func loadSettings(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("url") {
		cfg.Engine.BaseURL = engineURL
	}
	if flags.Changed("data") {
		cfg.DataDir = dataDir
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = logLevel
	}
	if flags.Lookup("theme") != nil && flags.Changed("theme") {
		cfg.UI.Theme = theme
	}
	if flags.Lookup("cell-width") != nil && flags.Changed("cell-width") {
		cfg.UI.CellWidth = cellWidth
	}
	if flags.Lookup("record") != nil && flags.Changed("record") {
		cfg.Record = record
	}
	return cfg, cfg.Validate()
}

// headless builds a stderr logger and an engine client for the batch
// commands.
func headless(cmd *cobra.Command) (*config.Config, *engine.Client, *slog.Logger, error) {
	cfg, err := loadSettings(cmd)
	if err != nil {
		return nil, nil, nil, err
	}
	log, err := logging.New(os.Stderr, cfg.Log.Level, "text")
	if err != nil {
		return nil, nil, nil, err
	}
	client, err := engine.NewClient(engine.ClientConfig{
		BaseURL: cfg.Engine.BaseURL,
		Timeout: cfg.Engine.Timeout,
		Logger:  log,
	})
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, client, log, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runInteractive(cmd *cobra.Command, args []string) error {
	cfg, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	// stdout belongs to the viewer; logs go to a file.
	logFile, err := logging.OpenFile(cfg.Log.File)
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	defer logFile.Close()
	log, err := logging.New(logFile, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}

	client, err := engine.NewClient(engine.ClientConfig{
		BaseURL: cfg.Engine.BaseURL,
		Timeout: cfg.Engine.Timeout,
		Logger:  log,
	})
	if err != nil {
		return err
	}

	opts := cfg.ControllerOptions()
	opts.Logger = log
	ctrl := controller.New(client, opts)

	var rec *storage.Recorder
	if cfg.Record {
		rec = storage.NewRecorder(storage.New(cfg.DataDir), client.BaseURL(), log)
		ctrl.AddObserver(rec)
	}
	defer func() {
		ctrl.Close()
		if rec != nil {
			if err := rec.Close(); err != nil {
				log.Error("close recording", "err", err)
			}
		}
	}()

	ctx, cancel := signalContext()
	defer cancel()

	log.Info("starting viewer", "engine", client.BaseURL(), "record", cfg.Record)
	return tui.Run(ctx, ctrl, tui.Options{
		Theme:     cfg.UI.Theme,
		CellWidth: cfg.UI.CellWidth,
		Logger:    log,
	})
}
