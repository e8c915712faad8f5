package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	domanswer "github.com/kailas-cloud/healthrag/internal/domain/answer"
	"github.com/kailas-cloud/healthrag/internal/domain/grounding"
)

const refusalBanner = "The question appears to be outside the scope of the trusted health documents."

func newAskCmd(a *app) *cobra.Command {
	var topK int

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer one question from the command line",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadPipeline(cmd.Context(), a)
			if err != nil {
				return err
			}
			defer p.Close()

			res, err := p.answers.Answer(cmd.Context(), strings.Join(args, " "), topK)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			printResult(cmd.OutOrStdout(), res)
			return nil
		},
	}

	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "passages to retrieve (default: retrieval.top_k)")
	return cmd
}

// printResult renders the answer, a banner for refusals, and the sources.
func printResult(w io.Writer, res domanswer.Result) {
	fmt.Fprintln(w, res.Answer)

	if grounding.IsRefusal(res.Answer) {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "ℹ "+refusalBanner)
	}

	if len(res.Sources) == 0 {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Sources:")
	for i, c := range res.Sources {
		line := fmt.Sprintf("  %d. %s", i+1, grounding.Citation(&c))
		if c.DocURL != "" {
			line += " " + c.DocURL
		}
		fmt.Fprintln(w, line)
	}
}
