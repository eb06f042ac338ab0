package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rustyeddy/stepper/config"
	"github.com/rustyeddy/stepper/journal"
	"github.com/rustyeddy/stepper/logging"
	"github.com/rustyeddy/stepper/market"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var rootCmd = &cobra.Command{
	Use:   "stepper",
	Short: "A turn-based leveraged trading simulator",
	Long: `Stepper replays historical candles one bar at a time while you trade a
single leveraged LONG or SHORT position against them.

It provides:
  - An interactive play loop with market, limit, stop-loss and partial exits
  - Forced liquidation and a per-episode turn budget
  - A persistent trade journal (SQLite, CSV, Postgres or Redis)
  - Performance statistics rebuilt from the journal`,
	SilenceUsage: true,
}

var (
	cfgFile  string
	envFile  string
	logLevel string
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (YAML or JSON)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env", ".env", "dotenv file with STEPPER_* overrides")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override logging.level")
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile, envFile)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	log, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return log.Named("stepper"), nil
}

func openJournal(ctx context.Context, cfg *config.Config) (journal.Store, error) {
	store, err := journal.Open(ctx, cfg.Journal.Options())
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	return store, nil
}

var randomWalkStart = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

// loadFeed reads the configured candle file, or generates a random walk
// when none is set.
func loadFeed(cfg *config.Config, log *zap.Logger) (*market.CandleSet, error) {
	interval, err := cfg.Data.ParseInterval()
	if err != nil {
		return nil, err
	}
	if cfg.Data.Path == "" {
		d := cfg.Data
		log.Info("generating random walk", zap.Int("candles", d.RandomCandles), zap.Int64("seed", d.RandomSeed))
		return market.RandomWalk(d.RandomCandles, d.RandomSeed, randomWalkStart, interval, d.StartPrice, d.Volatility), nil
	}

	cs, err := market.NewCandleSet(cfg.Data.Path)
	if err != nil {
		return nil, fmt.Errorf("load candles: %w", err)
	}
	log.Info("loaded candles",
		zap.String("path", cfg.Data.Path),
		zap.Int("candles", cs.Len()),
		zap.Int("duplicates", cs.Duplicates()),
		zap.Int("bad_lines", cs.BadLines()),
	)
	return cs, nil
}

var sessionFlag string

// resolveSessionID picks the --session flag, then the configured id, then
// the journal's active session.
func resolveSessionID(ctx context.Context, cfg *config.Config, store journal.Store) (string, error) {
	if sessionFlag != "" {
		return sessionFlag, nil
	}
	if cfg.Session.ID != "" {
		return cfg.Session.ID, nil
	}
	reg, ok := store.(journal.SessionRegistry)
	if !ok {
		return "", fmt.Errorf("journal type %q does not track sessions; pass --session", cfg.Journal.Type)
	}
	id, err := reg.ActiveSession(ctx)
	if errors.Is(err, journal.ErrNoSession) {
		return "", fmt.Errorf("no session yet; run 'stepper play' first")
	}
	return id, err
}
