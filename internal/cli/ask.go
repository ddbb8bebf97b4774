package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"rentalsearch-ai/internal/service"
)

var askJSON bool

var askCmd = &cobra.Command{
	Use:   "ask [query...]",
	Short: "Answer a rental search question",
	Long: `Builds the listing index, retrieves the listings closest to the question and
prints the model's recommendation followed by the addresses it mentions.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the answer as JSON")
	rootCmd.AddCommand(askCmd)
}

type askOutput struct {
	Response  string   `json:"response"`
	Addresses []string `json:"addresses"`
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	query := strings.Join(args, " ")

	assistant, closeFn, err := assistantFactory(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	defer func() {
		_ = closeFn()
	}()

	resp, err := assistant.Answer(ctx, service.AnswerRequest{Query: query})
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	if askJSON {
		data, err := json.MarshalIndent(askOutput{Response: resp.Text, Addresses: resp.Addresses}, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal answer: %w", err)
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	fmt.Fprintln(out, resp.Text)
	if len(resp.Addresses) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Addresses:")
		for _, addr := range resp.Addresses {
			fmt.Fprintf(out, "  - %s\n", addr)
		}
	}
	return nil
}
