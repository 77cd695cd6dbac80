package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/veritas/internal/core/domain"
)

var (
	retrieveK    int
	retrieveJSON bool
)

var retrieveCmd = &cobra.Command{
	Use:   "retrieve [query]",
	Short: "Show the sections most relevant to a query",
	Long: `Runs hybrid retrieval (vector plus lexical, merged and reranked)
against the tenant's corpus and prints the ranked candidates.`,
	Args: cobra.ExactArgs(1),
	RunE: runRetrieve,
}

func init() {
	retrieveCmd.Flags().IntVarP(&retrieveK, "k", "k", domain.DefaultRetrieveK, "number of candidates")
	retrieveCmd.Flags().BoolVar(&retrieveJSON, "json", false, "output the full response as JSON")
	rootCmd.AddCommand(retrieveCmd)
}

func runRetrieve(cmd *cobra.Command, args []string) error {
	if retrievalService == nil {
		return errors.New("retrieval service not configured")
	}
	tenant, err := resolveTenant()
	if err != nil {
		return err
	}

	resp, err := retrievalService.Retrieve(commandContext(cmd), tenant, args[0], retrieveK)
	if err != nil {
		return fmt.Errorf("retrieve failed: %w", err)
	}

	if retrieveJSON {
		data, err := json.MarshalIndent(resp, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal response: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}
	printCandidates(cmd, resp.Candidates)
	return nil
}

func printCandidates(cmd *cobra.Command, candidates []domain.RetrievalCandidate) {
	if len(candidates) == 0 {
		cmd.Println("No results found.")
		return
	}

	for i, c := range candidates {
		cmd.Printf("  [%d] %s (merged %.3f, rerank %.3f)\n", i+1, c.URL, c.MergedScore, c.RerankScore)
		cmd.Printf("      section %s\n", c.SectionID)
		if c.Snippet != "" {
			cmd.Printf("      %s\n", c.Snippet)
		}
		cmd.Println()
	}
}
