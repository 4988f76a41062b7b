package cmd

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"usenet-scout/worker"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the background workers",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		a := buildApp(cfg)
		defer a.Close()

		interval, err := time.ParseDuration(cfg.Search.RefreshEvery)
		if err != nil {
			return err
		}
		refresher := &worker.CacheRefresher{
			Catalog:  a.Catalog,
			Interval: interval,
		}
		slog.Info("starting catalog cache refresher", "interval", interval)

		mgr := worker.NewManager(refresher)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Signal handling for systemd
		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			s := <-sigc
			log.Printf("received signal: %s, shutting down", s)
			cancel()
		}()

		if err := mgr.Start(ctx); err != nil {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
