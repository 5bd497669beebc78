package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"promoscout/internal/api"
	"promoscout/internal/classify"
	"promoscout/internal/discovery"
	"promoscout/internal/draft"
	"promoscout/internal/moderation"
	"promoscout/internal/orchestrator"
	"promoscout/internal/redisclient"
	"promoscout/internal/storage"
	"promoscout/worker"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the pipeline workers and the moderation/webhook API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()

		log, err := newLogger(cfg)
		if err != nil {
			return err
		}
		defer log.Sync()

		rdb := redisclient.New(cfg.Redis)
		defer rdb.Close()
		runs := storage.NewRunStore(rdb)

		store, err := openStore(cfg)
		if err != nil {
			return err
		}

		cl, err := newClients(cfg, log)
		if err != nil {
			return err
		}
		if cl.posting == nil {
			return errors.New("posting.api_key is required for serve")
		}

		approaches, err := loadApproaches(cfg)
		if err != nil {
			return err
		}

		queue := moderation.NewQueue(store, log)
		orch := orchestrator.New(store, cl.posting, log)
		server := api.NewServer(queue, orch, runs, cl.posting, log)

		var ws []worker.Worker
		for _, p := range cfg.Projects {
			if cl.serp != nil {
				interval, err := time.ParseDuration(p.DiscoverInterval)
				if err != nil {
					return fmt.Errorf("invalid discover_interval for project %s: %w", p.Name, err)
				}
				engine := discovery.NewEngine(cl.serp, store, runs, cfg.Pipeline.Fanout, log)
				ws = append(ws, &worker.DiscoveryWorker{Engine: engine, Project: p, Interval: interval, Log: log})
			}
			if cl.gen != nil {
				ci, err := time.ParseDuration(p.ClassifyInterval)
				if err != nil {
					return fmt.Errorf("invalid classify_interval for project %s: %w", p.Name, err)
				}
				classifier := classify.NewClassifier(cl.gen, store, runs, cfg.Pipeline.Fanout, log)
				ws = append(ws, &worker.ClassifyWorker{Classifier: classifier, Project: p, Interval: ci, Log: log})

				di, err := time.ParseDuration(p.DraftInterval)
				if err != nil {
					return fmt.Errorf("invalid draft_interval for project %s: %w", p.Name, err)
				}
				gen := draft.NewGenerator(cl.gen, store, approaches, log)
				ws = append(ws, &worker.DraftWorker{Generator: gen, Project: p, Interval: di, Log: log})
			}
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Signal handling for systemd
		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			s := <-sigc
			log.Info("received signal, shutting down", zap.String("signal", s.String()))
			cancel()
		}()

		go func() {
			log.Info("api: listening", zap.String("addr", cfg.Server.Addr))
			if err := server.Run(cfg.Server.Addr); err != nil {
				log.Error("api: server stopped", zap.Error(err))
				cancel()
			}
		}()

		mgr := worker.NewManager(log, ws...)
		return mgr.Start(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
