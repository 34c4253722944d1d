package main

import (
	"fmt"

	"github.com/cardtable/cards-client/internal/errors"

	"github.com/spf13/cobra"
)

func newCreateCmd() *cobra.Command {
	var username string

	cmd := &cobra.Command{
		Use:   "create GAME",
		Short: "Open a new round of GAME and print how to join it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := startClient(cmd.Context())
			if err != nil {
				return err
			}
			defer client.Shutdown()

			round, err := client.GameServer.CreateRound(cmd.Context(), args[0], username)
			if err != nil {
				return fmt.Errorf("creating a round of %s: %s", args[0], errors.UserMessage(err))
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Created round %s of %s (%d to %d players)\n",
				round.ID, args[0], round.MinPlayers, round.MaxPlayers)
			fmt.Fprintf(out, "Join it with: cards join %s --as %s\n", round.GameID, username)
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "as", "", "Name of the round's creator")
	_ = cmd.MarkFlagRequired("as")
	return cmd
}
