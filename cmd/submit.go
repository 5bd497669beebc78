package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"promoscout/internal/orchestrator"
)

var submitUpvotes int

// submitCmd sends a project's approved drafts to the posting service.
var submitCmd = &cobra.Command{
	Use:   "submit <project>",
	Short: "Submit a project's approved drafts to the posting service",
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
		if cl.posting == nil {
			return errors.New("posting.api_key is required for submit")
		}

		store, err := openStore(cfg)
		if err != nil {
			return err
		}

		orch := orchestrator.New(store, cl.posting, log)
		results, err := orch.Submit(context.Background(), p.Name, submitUpvotes)
		if err != nil {
			return err
		}
		for _, r := range results {
			if r.OK {
				fmt.Fprintf(cmd.OutOrStdout(), "submitted draft=%s task=%s\n", r.DraftID, r.TaskID)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "failed draft=%s: %s\n", r.DraftID, r.Error)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(submitCmd)
	submitCmd.Flags().IntVarP(&submitUpvotes, "upvotes", "u", 0, "upvotes to request per task")
}
