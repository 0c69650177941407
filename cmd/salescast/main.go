// Command salescast analyses and forecasts monthly shop sales.
//
//	salescast shops
//	salescast run --shop "Moscow TC" --xlsx report.xlsx
//	salescast serve
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sartorproj/salescast/analysis"
	"github.com/sartorproj/salescast/config"
	"github.com/sartorproj/salescast/logging"
	"github.com/sartorproj/salescast/metrics"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:           "salescast",
	Short:         "Monthly sales analysis and forecasting",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env", "", "env file with configuration (default: .env in the working or parent directory)")
}

// app holds what every subcommand needs.
type app struct {
	cfg     *config.Config
	logger  *logrus.Logger
	metrics *metrics.Collector
	session *analysis.Session
}

func newApp() (*app, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}

	collector := metrics.New()
	source := analysis.FileSource{SalesPath: cfg.Data.SalesPath, ShopsPath: cfg.Data.ShopsPath}

	return &app{
		cfg:     cfg,
		logger:  logger,
		metrics: collector,
		session: analysis.NewSession(source, analysis.SettingsFromConfig(cfg), logger, collector),
	}, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}
