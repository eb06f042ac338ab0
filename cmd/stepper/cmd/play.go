package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/rustyeddy/stepper/id"
	"github.com/rustyeddy/stepper/metrics"
	"github.com/rustyeddy/stepper/sim"
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Start or resume an interactive trading session",
	Long: `Play resumes the active session (or starts one) and reads commands from
stdin, one per line. Type 'help' at the prompt for the command list.

Examples:
  stepper play
  stepper play --data btc_1h.csv --seed 7
  echo "long\nnext 10\nclose" | stepper play --journal memory`,
	Args: cobra.NoArgs,
	RunE: runPlay,
}

var (
	playData    string
	playJournal string
	playSeed    int64
	playMetrics string
)

func init() {
	rootCmd.AddCommand(playCmd)
	playCmd.Flags().StringVarP(&sessionFlag, "session", "s", "", "resume this session id")
	playCmd.Flags().StringVar(&playData, "data", "", "candle CSV (overrides data.path)")
	playCmd.Flags().StringVar(&playJournal, "journal", "", "journal type: sqlite, csv, postgres, redis, memory")
	playCmd.Flags().Int64Var(&playSeed, "seed", 0, "seed for episode start selection")
	playCmd.Flags().StringVar(&playMetrics, "metrics-addr", "", "serve Prometheus metrics on this address")
}

func runPlay(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if playData != "" {
		cfg.Data.Path = playData
	}
	if playJournal != "" {
		cfg.Journal.Type = playJournal
	}
	if playSeed != 0 {
		cfg.Session.Seed = playSeed
	}
	if playMetrics != "" {
		cfg.Metrics.Addr = playMetrics
	}
	if sessionFlag != "" {
		cfg.Session.ID = sessionFlag
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx := cmd.Context()
	feed, err := loadFeed(cfg, log)
	if err != nil {
		return err
	}
	store, err := openJournal(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	overlays, err := cfg.Session.ParseIndicators()
	if err != nil {
		return err
	}

	collector := metrics.New()
	opts := []sim.Option{
		sim.WithLogger(log),
		sim.WithRecorder(collector),
		sim.WithWindow(cfg.Session.Window),
		sim.WithMaxTurns(cfg.Session.MaxTurns),
		sim.WithLeverage(cfg.Session.Leverage),
		sim.WithPositionRatio(cfg.Session.PositionRatio),
		sim.WithIndicators(overlays...),
	}
	if cfg.Session.Seed != 0 {
		opts = append(opts, sim.WithSeed(cfg.Session.Seed))
	}
	if cfg.Session.ID != "" {
		opts = append(opts, sim.WithSession(cfg.Session.ID))
	}
	if cfg.Session.ID != "" && !id.ValidSession(cfg.Session.ID) {
		log.Warn("resuming a session id that is not a UUID", zap.String("session", cfg.Session.ID))
	}
	eng, err := sim.New(ctx, feed, store, opts...)
	if err != nil {
		return err
	}

	if cfg.Metrics.Addr != "" {
		srv := serveMetrics(cfg.Metrics.Addr, collector, log)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	prompt := ""
	if term.IsTerminal(int(os.Stdin.Fd())) {
		prompt = "> "
	}
	return runREPL(ctx, eng, cmd.InOrStdin(), cmd.OutOrStdout(), prompt)
}

func serveMetrics(addr string, c *metrics.Collector, log *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("serving metrics", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server", zap.Error(err))
		}
	}()
	return srv
}
