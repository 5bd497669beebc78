package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"promoscout/internal/draft"
)

var draftApproach string

// draftCmd generates drafts for a project's relevant items.
var draftCmd = &cobra.Command{
	Use:   "draft <project>",
	Short: "Generate reply drafts for a project's relevant items",
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
			return errors.New("openai.api_key is required for draft")
		}

		store, err := openStore(cfg)
		if err != nil {
			return err
		}
		approaches, err := loadApproaches(cfg)
		if err != nil {
			return err
		}

		gen := draft.NewGenerator(cl.gen, store, approaches, log)
		ctx := context.Background()

		if draftApproach != "" {
			// single-approach mode: draft each eligible item with the named
			// approach instead of drawing randomly
			items, err := store.RelevantItemsWithoutDraft(ctx, p.Name)
			if err != nil {
				return err
			}
			var generated, failed int
			for _, item := range items {
				if _, err := gen.Generate(ctx, p, item, draftApproach); err != nil {
					failed++
					continue
				}
				generated++
			}
			fmt.Fprintf(cmd.OutOrStdout(), "generated=%d errors=%d\n", generated, failed)
			return nil
		}

		res, err := gen.GenerateBatch(ctx, p)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "generated=%d skipped=%d errors=%d\n",
			res.Generated, res.Skipped, res.Errors)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(draftCmd)
	draftCmd.Flags().StringVarP(&draftApproach, "approach", "a", "", "force a named approach instead of random selection")
}
