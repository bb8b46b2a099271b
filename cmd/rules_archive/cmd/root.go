package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/cvickery/rules-archive/internal/app"
	"github.com/cvickery/rules-archive/internal/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	cfgFile string
	verbose bool

	logger *zap.SugaredLogger
)

var rootCmd = &cobra.Command{
	Use:   "rules_archive",
	Short: "Load and describe archived CUNY transfer rules",
	Long: `rules_archive restores dated archives of the CUNY transfer rules into
snapshot schemas named aYYYYMMDD, and generates a readable description of
each rule in a snapshot.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setupLogger,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML config file (default: $RULES_ARCHIVE_CONFIG)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

func setupLogger(cmd *cobra.Command, args []string) error {
	zapConfig := zap.NewProductionConfig()
	zapConfig.Encoding = "console"
	zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapConfig.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	zapConfig.DisableStacktrace = true
	if verbose {
		zapConfig.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	base, err := zapConfig.Build()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	logger = base.Sugar()
	return nil
}

func loadConfig() (*config.Config, error) {
	if cfgFile != "" {
		if err := os.Setenv("RULES_ARCHIVE_CONFIG", cfgFile); err != nil {
			return nil, err
		}
	}
	cfg, err := config.New()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// connect loads the configuration, lets adjust apply flag overrides, and opens the database.
func connect(ctx context.Context, adjust func(*config.Config)) (*app.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if adjust != nil {
		adjust(cfg)
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	a, err := app.Connect(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return a, nil
}
