package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"demo-console/config"
)

// Assets are the files compiled into the binary.
type Assets struct {
	Static fs.FS // page, rooted so that "static/index.html" exists
	Demos  fs.FS // bundled snippets, rooted so that "demos/<name>.js" exists
}

var (
	configPath string
	assets     Assets
)

var rootCmd = &cobra.Command{
	Use:   "demo-console",
	Short: "Browser console for running demo snippets",
	Long: `demo-console serves a page with a demo picker, an editor and a terminal.
Picking a demo loads its source into the editor; running it evaluates the
editor text in a per-session runtime and streams the output to the terminal.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "console.toml", "Path to the TOML config file")
}

// Execute runs the root command
func Execute(a Assets) {
	assets = a
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadSettings reads .env (if present) and then the config file.
func loadSettings() (config.Settings, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return config.Settings{}, fmt.Errorf("load .env: %w", err)
	}
	return config.Load(configPath)
}

func newLogger(s config.Settings) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(s.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", s.LogLevel, err)
	}
	cfg := zap.NewProductionConfig()
	if s.LogDev {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	return cfg.Build()
}
