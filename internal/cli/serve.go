package cli

import (
	"github.com/spf13/cobra"

	"github.com/showcase-dev/showcase/internal/chatd"
	"github.com/showcase-dev/showcase/internal/logging"
)

var (
	serveHost     string
	servePort     int
	serveGRPCPort int
	serveDatabase string
)

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveHost, "host", "", "listen host (overrides server.host)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "HTTP port (overrides server.port)")
	serveCmd.Flags().IntVar(&serveGRPCPort, "grpc-port", -1, "gRPC health port, 0 disables (overrides server.grpc_port)")
	serveCmd.Flags().StringVar(&serveDatabase, "db", "", "SQLite event log path (in memory when empty)")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the demo chat server",
	Long:  "Serve the demo chat API with rate limiting, input screening and an event log.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := *GetConfig()
		if serveHost != "" {
			cfg.Server.Host = serveHost
		}
		if servePort > 0 {
			cfg.Server.Port = servePort
		}
		if serveGRPCPort >= 0 {
			cfg.Server.GRPCPort = serveGRPCPort
		}
		if serveDatabase != "" {
			cfg.Server.DatabasePath = serveDatabase
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		daemon, err := chatd.New(&cfg, logging.Component("chatd"))
		if err != nil {
			return err
		}

		ctx, cancel := signalContext(cmd.Context())
		defer cancel()
		return daemon.Run(ctx)
	},
}
