package main

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"morocco-rag/internal/ingest"
)

var (
	ingestDataset string
	ingestIndex   string
	ingestExtra   []string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Build the vector index from the dataset",
	Long: `Loads the JSON dataset, turns every record into a labelled document,
splits documents into chunks, embeds them and replaces the vector index.
The previous index is kept if anything fails.`,
	Args: cobra.NoArgs,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVarP(&ingestDataset, "dataset", "d", "", "dataset file (defaults to dataset.path)")
	ingestCmd.Flags().StringVarP(&ingestIndex, "index", "i", "", "index location (defaults to index.path)")
	ingestCmd.Flags().StringSliceVar(&ingestExtra, "extra", nil, "extra source files or glob patterns")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestDataset != "" {
		cfg.Dataset.Path = ingestDataset
	}
	if ingestIndex != "" {
		cfg.Index.Path = ingestIndex
	}
	if len(ingestExtra) > 0 {
		cfg.Ingest.ExtraSources = append(cfg.Ingest.ExtraSources, ingestExtra...)
	}

	pipeline, err := ingest.FromConfig(cfg)
	if err != nil {
		return err
	}
	log.Info().Str("dataset", cfg.Dataset.Path).Str("backend", cfg.Index.Backend).Msg("Building vector index")
	if err := pipeline.Build(cmd.Context(), cfg.Dataset.Path, cfg.Index.Path); err != nil {
		return err
	}
	cmd.Printf("Index written to %s\n", cfg.Index.Path)
	return nil
}
