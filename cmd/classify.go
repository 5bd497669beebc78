package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"promoscout/internal/classify"
	"promoscout/internal/redisclient"
	"promoscout/internal/storage"
)

// classifyCmd runs one classification pass for a project.
var classifyCmd = &cobra.Command{
	Use:   "classify <project>",
	Short: "Classify a project's pending discovered items",
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
		if cl.gen == nil {
			return errors.New("openai.api_key is required for classify")
		}

		store, err := openStore(cfg)
		if err != nil {
			return err
		}
		rdb := redisclient.New(cfg.Redis)
		defer rdb.Close()
		runs := storage.NewRunStore(rdb)

		classifier := classify.NewClassifier(cl.gen, store, runs, cfg.Pipeline.Fanout, log)
		res, err := classifier.Classify(context.Background(), p)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "processed=%d relevant=%d irrelevant=%d errors=%d\n",
			res.Processed, res.Relevant, res.Irrelevant, res.Errors)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(classifyCmd)
}
