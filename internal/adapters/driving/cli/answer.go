package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/veritas/internal/core/domain"
)

var answerJSON bool

var answerCmd = &cobra.Command{
	Use:   "answer [question]",
	Short: "Answer a question from indexed content",
	Long: `Answers a question using only the tenant's indexed pages. Each claim is
printed with the evidence ids it is grounded on. If the evidence is too weak
the answer is refused and the reason is printed instead.`,
	Args: cobra.ExactArgs(1),
	RunE: runAnswer,
}

func init() {
	answerCmd.Flags().BoolVar(&answerJSON, "json", false, "output the full response as JSON")
	rootCmd.AddCommand(answerCmd)
}

func runAnswer(cmd *cobra.Command, args []string) error {
	if answerService == nil {
		return errors.New("answer service not configured")
	}
	tenant, err := resolveTenant()
	if err != nil {
		return err
	}

	resp, err := answerService.Answer(commandContext(cmd), tenant, args[0])
	if err != nil {
		return fmt.Errorf("answer failed: %w", err)
	}

	if answerJSON {
		data, err := json.MarshalIndent(resp, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal response: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}
	printAnswer(cmd, resp)
	return nil
}

func printAnswer(cmd *cobra.Command, resp domain.AnswerResponse) {
	if resp.Refused {
		reason := "unknown"
		if resp.RefusalReason != nil {
			reason = resp.RefusalReason.String()
		}
		cmd.Printf("Refused: %s\n", reason)
		if resp.Debug != nil && resp.Debug.TopScore != nil {
			cmd.Printf("  top score %.3f, threshold %.3f\n", *resp.Debug.TopScore, resp.Debug.Threshold)
		}
		return
	}

	cmd.Println(resp.Answer)
	cmd.Println()
	for i, c := range resp.Claims {
		cmd.Printf("  %d. %s %v\n", i+1, c.Text, c.EvidenceIDs)
	}

	ids := make([]string, 0, len(resp.Citations))
	for id := range resp.Citations {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	if len(ids) > 0 {
		cmd.Println()
		cmd.Println("Sources:")
	}
	for _, id := range ids {
		c := resp.Citations[id]
		cmd.Printf("  %s %s\n", id, c.URL)
		cmd.Printf("      %q\n", c.QuoteSpan)
	}
}
