package main

import (
	"context"
	"fmt"
	"os"

	"github.com/cardtable/cards-client/internal/application"
	"github.com/cardtable/cards-client/internal/config"
	"github.com/cardtable/cards-client/internal/logger"
	"go.uber.org/zap"

	"github.com/spf13/cobra"
)

var (
	cfgFile string         // Path to custom config file (optional)
	cfg     *config.Config // Global reference to loaded configuration
)

// rootCmd defines the main CLI command for the cards client
var rootCmd = &cobra.Command{
	Use:   "cards",
	Short: "Command line client for the card table game server",
	Long:  `Joins card game rounds over HTTP and follows them on the game server's WebSocket.`,
	Example: `
  cards join my-game --as Toto
  cards console --server https://cards.example.com/
  cards join my-game --as Toto --log-level debug --metrics-port 9464`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		var err error
		cfg, err = config.Load(cfgFile, nil)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %v", err)
		}

		flags := cmd.Flags()
		if flags.Changed("server") {
			cfg.Server.Origin, _ = flags.GetString("server")
		}
		if flags.Changed("metrics-port") {
			cfg.Metrics.Port, _ = flags.GetInt("metrics-port")
			cfg.Metrics.Enabled = true
		}
		if err := config.Validate(cfg); err != nil {
			return err
		}
		if flags.Changed("log-level") {
			lvl, _ := flags.GetString("log-level")
			if err := logger.UpdateLevel(lvl); err != nil {
				return err
			}
		}
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		if err := cmd.Help(); err != nil {
			fmt.Fprintf(os.Stderr, "Error displaying help: %v\n", err)
		}
	},
}

// Execute runs the root command with the provided context
func Execute(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// startClient builds the client from the loaded configuration and starts
// its metrics endpoint.
func startClient(ctx context.Context) (*application.Client, error) {
	client, err := application.New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := client.Start(); err != nil {
		client.Shutdown()
		return nil, err
	}
	logger.Debug("Client started", zap.String("origin", cfg.Server.Origin))
	return client, nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Path to custom config file (optional)")
	rootCmd.PersistentFlags().String("server", "", "Game server origin, e.g. https://cards.example.com/")
	rootCmd.PersistentFlags().String("log-level", "info", "Logging level (debug, info, warn, error, fatal)")
	rootCmd.PersistentFlags().Int("metrics-port", 9464, "Serve Prometheus metrics and health on this port")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version number of the cards client",
		Run: func(cmd *cobra.Command, args []string) {
			if detailed, _ := cmd.Flags().GetBool("detailed"); detailed {
				fmt.Println(GetFullVersionInfo())
			} else {
				fmt.Println(GetVersionWithPrefix())
			}
		},
	}
	versionCmd.Flags().BoolP("detailed", "d", false, "Show detailed version information")

	rootCmd.AddCommand(versionCmd, newCreateCmd(), newJoinCmd(), newConsoleCmd())
}
