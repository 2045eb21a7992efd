package main

import (
	"strings"

	"github.com/spf13/cobra"

	"morocco-rag/internal/helper"
	"morocco-rag/internal/rag"
)

var (
	askSources bool
	askVerbose bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a single question",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askSources, "sources", false, "append the retrieved chunks to the answer")
	askCmd.Flags().BoolVarP(&askVerbose, "verbose", "v", false, "print the question, sources and answer as JSON")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if askSources {
		cfg.RAG.IncludeSources = true
	}
	pipeline, err := rag.Load(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer pipeline.Close()

	resp, err := pipeline.Answer(cmd.Context(), strings.Join(args, " "))
	if err != nil {
		return err
	}
	if askVerbose {
		helper.PrettyPrint(cmd.OutOrStdout(), resp)
		return nil
	}
	cmd.Println(resp.Content)
	return nil
}
