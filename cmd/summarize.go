package cmd

import (
	"fmt"

	"github.com/lehigh-university-libraries/solarlabel/internal/label"
	"github.com/lehigh-university-libraries/solarlabel/internal/summary"
	"github.com/spf13/cobra"
)

func newSummarizeCmd(a *app) *cobra.Command {
	var (
		provider string
		model    string
	)

	cmd := &cobra.Command{
		Use:   "summarize",
		Short: "Summarize the label log with an LLM",
		Long: `Sends the recorded labels to an LLM provider (ollama, openai or gemini) and
prints a short prose summary.`,
		Example: `  solarlabel summarize
  solarlabel summarize --provider openai --model gpt-4o`,
		RunE: func(cmd *cobra.Command, args []string) error {
			labels, err := label.ReadLog(a.cfg.Paths.LabelLog)
			if err != nil {
				return err
			}

			if provider == "" {
				provider = a.cfg.Summary.Provider
			}
			if model == "" {
				model = a.cfg.Summary.Model
			}

			text, err := summary.NewService().Summarize(cmd.Context(), labels, provider, model)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}

	cmd.Flags().StringVarP(&provider, "provider", "p", "", "LLM provider: ollama, openai, gemini (default summary.provider)")
	cmd.Flags().StringVarP(&model, "model", "m", "", "Model name (default per provider)")

	return cmd
}
