package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/cardtable/cards-client/internal/console"

	"github.com/spf13/cobra"
)

const consoleHelp = `commands:
  connect GAME_ID PLAYER_ID   open the session socket
  ping                        send a PING frame
  send JSON                   send a raw frame
  close                       close the socket
  status                      print the connection status
  history                     print the console history
  quit                        leave`

func newConsoleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "console",
		Short: "Interactive WebSocket debug console",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			client, err := startClient(ctx)
			if err != nil {
				return err
			}
			defer client.Shutdown()

			m := client.Console(func(e console.Entry) {
				fmt.Fprintln(out, e)
			})
			defer m.Stop()

			fmt.Fprintln(out, consoleHelp)
			lines := make(chan string)
			go readLines(cmd.InOrStdin(), lines)
			for {
				select {
				case <-ctx.Done():
					return nil
				case line, ok := <-lines:
					if !ok || !runConsoleCommand(m, out, line) {
						return nil
					}
				}
			}
		},
	}
}

func readLines(r io.Reader, lines chan<- string) {
	defer close(lines)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lines <- scanner.Text()
	}
}

// runConsoleCommand executes one input line; it returns false on quit.
func runConsoleCommand(m *console.Model, out io.Writer, line string) bool {
	verb, rest, _ := strings.Cut(strings.TrimSpace(line), " ")
	switch verb {
	case "":
	case "connect":
		fields := strings.Fields(rest)
		if len(fields) != 2 {
			fmt.Fprintln(out, "usage: connect GAME_ID PLAYER_ID")
			return true
		}
		m.Connect(fields[0], fields[1])
	case "ping":
		m.Ping()
	case "send":
		m.SendRaw(rest)
	case "close":
		m.Close()
	case "status":
		fmt.Fprintln(out, console.StatusLine(m.Status()))
	case "history":
		entries := m.History()
		for i := len(entries) - 1; i >= 0; i-- {
			fmt.Fprintln(out, entries[i])
		}
	case "quit", "exit":
		return false
	default:
		fmt.Fprintln(out, consoleHelp)
	}
	return true
}
