package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cardtable/cards-client/internal/connection"
	"github.com/cardtable/cards-client/internal/console"
	"github.com/cardtable/cards-client/internal/domain"
	"github.com/cardtable/cards-client/internal/game"
	"github.com/cardtable/cards-client/internal/join"
	"github.com/cardtable/cards-client/internal/notify"
	"github.com/cardtable/cards-client/internal/wire"

	"github.com/spf13/cobra"
)

const playHelp = `commands:
  start   ask the server to start the game
  ping    send a PING frame
  quit    leave`

func newJoinCmd() *cobra.Command {
	var username string

	cmd := &cobra.Command{
		Use:   "join GAME_ID",
		Short: "Join a round and follow it until interrupted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			client, err := startClient(ctx)
			if err != nil {
				return err
			}
			defer client.Shutdown()

			notes := client.Notifications.Subscribe(func(n notify.Notification) {
				fmt.Fprintf(out, "(%s) %s\n", n.Level, n.Text)
			})
			defer client.Notifications.Unsubscribe(notes)

			redirected := make(chan domain.ConnectionIdentity, 1)
			nav := domain.NavigatorFunc(func(gameID, playerID string) {
				redirected <- domain.ConnectionIdentity{GameID: gameID, PlayerID: playerID}
			})
			failed := make(chan struct{}, 1)

			wf := client.Join(args[0], username, nav, join.WithObserver(func(_ string, step join.Step) {
				fmt.Fprintln(out, join.Describe(step))
				if _, ok := step.(join.Failed); ok {
					select {
					case failed <- struct{}{}:
					default:
					}
				}
			}))
			defer wf.Close()

			var id domain.ConnectionIdentity
			select {
			case id = <-redirected:
			case <-failed:
				return fmt.Errorf("could not join game %s", args[0])
			case <-ctx.Done():
				return nil
			}

			sub := client.Tracker.Subscribe(game.Handlers{
				Status: func(st connection.Status) {
					fmt.Fprintln(out, console.StatusLine(st))
				},
				Message: func(m wire.Message) {
					data, err := wire.Encode(m)
					if err != nil {
						fmt.Fprintf(os.Stderr, "%s: %v\n", m.Type(), err)
						return
					}
					fmt.Fprintf(out, "%s %s\n", m.Type(), data)
				},
			})
			defer client.Tracker.Unsubscribe(sub)
			client.Tracker.EnsureConnected(id)
			fmt.Fprintln(out, console.StatusLine(client.Tracker.Status()))

			fmt.Fprintln(out, playHelp)
			lines := make(chan string)
			go readLines(cmd.InOrStdin(), lines)
			for {
				select {
				case <-ctx.Done():
					return nil
				case line, ok := <-lines:
					if !ok {
						<-ctx.Done()
						return nil
					}
					if !runPlayCommand(client.Tracker, out, line) {
						return nil
					}
				}
			}
		},
	}
	cmd.Flags().StringVar(&username, "as", "", "Name to sit at the table with")
	_ = cmd.MarkFlagRequired("as")
	return cmd
}

// runPlayCommand executes one input line of play mode; it returns false on
// quit.
func runPlayCommand(t *game.Tracker, out io.Writer, line string) bool {
	var msg wire.Message
	switch strings.TrimSpace(line) {
	case "":
		return true
	case "start":
		msg = wire.StartGame{}
	case "ping":
		msg = wire.Ping{}
	case "quit", "exit":
		return false
	default:
		fmt.Fprintln(out, playHelp)
		return true
	}
	if err := t.Send(msg); err != nil {
		fmt.Fprintf(out, "%s: %v\n", msg.Type(), err)
	}
	return true
}
