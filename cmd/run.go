package cmd

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mezonai/dosguard/banstore"
	"github.com/mezonai/dosguard/config"
	"github.com/mezonai/dosguard/exception"
	"github.com/mezonai/dosguard/guard"
	"github.com/mezonai/dosguard/logx"
	"github.com/mezonai/dosguard/monitoring"
)

const defaultConfigPath = "config/config.ini"

var runConfigPath string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the DoS guard with metrics and ban persistence",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadDosConfig(runConfigPath)
		if err != nil {
			return err
		}
		return runGuard(cmd.Context(), cfg)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVarP(&runConfigPath, "config", "c", defaultConfigPath, "Path to the .ini or .yml config")
}

func applyLogging(cfg *config.DosConfig) {
	if cfg.LogFile != "" {
		logx.Configure(cfg.LogFile, cfg.LogMaxSizeMB, cfg.LogMaxAgeDays)
	}
	logx.EnableDebug(cfg.Debug)
}

func newGuard(cfg *config.DosConfig) (*guard.Guard, error) {
	store, err := banstore.New(cfg.BanStoreOptions())
	if err != nil {
		return nil, err
	}
	return guard.New(&guard.Options{
		Orphans:     cfg.OrphanPoolConfig(),
		Bans:        cfg.BanConfig(),
		SigCacheMax: cfg.MaxSigCacheSize,
		RateLimit:   cfg.RateLimiterConfig(),
		Store:       store,
	}), nil
}

func runGuard(parent context.Context, cfg *config.DosConfig) error {
	if parent == nil {
		parent = context.Background()
	}
	applyLogging(cfg)
	monitoring.InitMetrics()

	g, err := newGuard(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := g.Close(); err != nil {
			logx.Error("RUN", "Failed to close guard:", err)
		}
	}()

	restored, err := g.LoadBans()
	if err != nil {
		return err
	}
	logx.Info("RUN", "Restored", restored, "active bans")

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	mux := http.NewServeMux()
	monitoring.RegisterMetrics(mux)
	server := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	exception.SafeGoWithPanic("MetricsServer", func() {
		logx.Info("RUN", "Serving metrics on", cfg.MetricsAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logx.Error("RUN", "Metrics server stopped:", err)
		}
	})

	if every := cfg.SnapshotEvery(); every > 0 {
		exception.SafeGo("BanSnapshot", func() {
			snapshotLoop(ctx, g, every)
		})
	}

	<-ctx.Done()
	logx.Info("RUN", "Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Warn("RUN", "Metrics server shutdown:", err)
	}
	return g.SaveBans()
}

func snapshotLoop(ctx context.Context, g *guard.Guard, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := g.SaveBans(); err != nil {
				logx.Error("RUN", "Ban snapshot failed:", err)
			}
		}
	}
}
