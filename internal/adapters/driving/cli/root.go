// Package cli implements the veritas command line.
package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/veritas/internal/adapters/driven/config/env"
	"github.com/custodia-labs/veritas/internal/adapters/driving/httpapi"
	"github.com/custodia-labs/veritas/internal/core/domain"
	"github.com/custodia-labs/veritas/internal/core/ports/driving"
	"github.com/custodia-labs/veritas/internal/logger"
)

var version = "dev"

var (
	tenantFlag  string
	verboseFlag bool
)

// Services wired by main.
var (
	retrievalService driving.RetrievalService
	answerService    driving.AnswerService
	indexingService  driving.IndexingService
	settingsService  driving.SettingsService
	newIndexer       func(sectionizer string) (driving.IndexingService, error)
	metricsHandler   http.Handler
	httpObserver     httpapi.RequestObserver
)

// errTenantRequired is returned when neither --tenant nor VERITAS_TENANT is set.
var errTenantRequired = errors.New("tenant required: pass --tenant or set " + env.Tenant)

var rootCmd = &cobra.Command{
	Use:   "veritas",
	Short: "Grounded question answering over your own pages",
	Long: `Veritas indexes pages per tenant and answers questions using only
that tenant's content. Every claim in an answer cites the evidence it came
from; when the evidence is too weak, veritas refuses instead of guessing.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verboseFlag)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&tenantFlag, "tenant", "t", "",
		"tenant to act as (defaults to $"+env.Tenant+")")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "enable debug logging")
}

// Services holds the driving ports the commands call.
type Services struct {
	Retrieval driving.RetrievalService
	Answer    driving.AnswerService
	Indexing  driving.IndexingService
	Settings  driving.SettingsService

	// NewIndexer builds an indexing service using the named sectionizer.
	// Optional; without it --sectionizer is rejected.
	NewIndexer func(sectionizer string) (driving.IndexingService, error)

	// MetricsHandler serves /metrics for `veritas serve`. Optional.
	MetricsHandler http.Handler

	// HTTPObserver records served requests. Optional.
	HTTPObserver httpapi.RequestObserver
}

// SetServices installs the services used by every command.
func SetServices(s Services) {
	retrievalService = s.Retrieval
	answerService = s.Answer
	indexingService = s.Indexing
	settingsService = s.Settings
	newIndexer = s.NewIndexer
	metricsHandler = s.MetricsHandler
	httpObserver = s.HTTPObserver
}

// SetVersion sets the version reported by `veritas version` and /health.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteContext runs the root command with ctx.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// resolveTenant returns the --tenant flag, falling back to VERITAS_TENANT.
func resolveTenant() (domain.TenantID, error) {
	raw := tenantFlag
	if strings.TrimSpace(raw) == "" {
		raw = os.Getenv(env.Tenant)
	}
	tenant, err := domain.ParseTenantID(raw)
	if err != nil {
		return "", errTenantRequired
	}
	return tenant, nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
