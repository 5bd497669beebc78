package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"promoscout/internal/discovery"
	"promoscout/internal/redisclient"
	"promoscout/internal/storage"
)

// discoverCmd runs one discovery pass for a project.
var discoverCmd = &cobra.Command{
	Use:   "discover <project>",
	Short: "Run one discovery pass for a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		p, err := requireProject(cfg, args[0])
		if err != nil {
			return err
		}

		log, err := newLogger(cfg)
		if err != nil {
			return err
		}
		defer log.Sync()

		cl, err := newClients(cfg, log)
		if err != nil {
			return err
		}
		if cl.serp == nil {
			return errors.New("serp.api_key is required for discover")
		}

		store, err := openStore(cfg)
		if err != nil {
			return err
		}
		rdb := redisclient.New(cfg.Redis)
		defer rdb.Close()
		runs := storage.NewRunStore(rdb)

		engine := discovery.NewEngine(cl.serp, store, runs, cfg.Pipeline.Fanout, log)
		res, err := engine.Discover(context.Background(), p)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "found=%d unique=%d stored=%d errors=%d\n",
			res.Found, res.Unique, res.Stored, res.Errors)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(discoverCmd)
}
