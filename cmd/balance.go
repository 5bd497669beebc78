package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// balanceCmd prints the posting-service account balance.
var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Print the posting-service account balance",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()

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
			return errors.New("posting.api_key is required for balance")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		balance, err := cl.posting.Balance(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%.2f\n", balance)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(balanceCmd)
}
