package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/veritas/internal/adapters/driven/config/env"
	"github.com/custodia-labs/veritas/internal/adapters/driving/httpapi"
	"github.com/custodia-labs/veritas/internal/logger"
)

var (
	serveAddr    string
	serveTimeout time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Serves /retrieve, /retrieve/ac and /answer over HTTP. Callers name their
tenant with "Authorization: Bearer tenant:<id>". /health and /metrics need no
authentication.

Environment:
  CORS_ALLOW_ORIGINS         comma-separated allowed origins
  ENV=test                   mounts /debug/tenant
  ENABLE_TEST_TENANT_HEADER  with ENV=test, trusts X-Tenant-Debug
  GIT_SHA                    version reported by /health`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8000", "listen address")
	serveCmd.Flags().DurationVar(&serveTimeout, "timeout", 60*time.Second, "per-request timeout (0 disables)")
	rootCmd.AddCommand(serveCmd)
}

// serverOptions builds the HTTP API options from the environment.
func serverOptions() httpapi.Options {
	v := env.Version()
	if v == "dev" {
		v = version
	}
	return httpapi.Options{
		Version:          v,
		TrustDebugHeader: env.TestTenantHeaderEnabled(),
		DebugRoutes:      env.IsTest(),
		AllowedOrigins:   env.AllowedOrigins(),
		RequestTimeout:   serveTimeout,
		Observer:         httpObserver,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	if retrievalService == nil || answerService == nil {
		return errors.New("answer services not configured")
	}

	opts := serverOptions()
	server, err := httpapi.NewServer(&httpapi.Ports{
		Retrieval: retrievalService,
		Answer:    answerService,
		Metrics:   metricsHandler,
	}, opts)
	if err != nil {
		return err
	}

	logger.SetTimestamps(true)
	if opts.TrustDebugHeader {
		logger.Warn("trusting %s header (test deployment)", httpapi.DebugTenantHeader)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "HTTP API listening on %s\n", serveAddr)
	return server.Run(commandContext(cmd), serveAddr)
}
