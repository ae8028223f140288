package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"relaydash/internal/auth/hash"
	"relaydash/internal/config"
	"relaydash/internal/server"
)

var (
	cfgFile string
	envFile string
)

var rootCmd = &cobra.Command{
	Use:   "relaydash",
	Short: "Web dashboard for relay devices",
	Long: `relaydash keeps a list of network relay devices in a JSON file and
switches them through their local HTTP API from a small web dashboard.`,
	SilenceUsage: true,
	RunE:         runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the dashboard HTTP server",
	RunE:  runServe,
}

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password <password>",
	Short: "Print an argon2id hash for the users table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		phc, err := hash.HashPassword(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), phc)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "relaydash %s\n", server.Version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: $DASH_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "optional dotenv file loaded before the config")
	rootCmd.AddCommand(serveCmd, hashPasswordCmd, versionCmd)
}

func loadConfig() config.Config {
	if err := config.LoadDotEnv(envFile); err != nil {
		log.Warn().Err(err).Str("file", envFile).Msg("dotenv file not loaded")
	}
	if cfgFile == "" {
		cfgFile = os.Getenv("DASH_CONFIG")
	}
	return config.Load(cfgFile)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return server.Serve(ctx, cfg)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		server.Logger(config.Defaults()).Error().Err(err).Msg("relaydash exited")
		os.Exit(1)
	}
}
