package main

import (
	"context"

	"github.com/spf13/cobra"

	"morocco-rag/internal/rag"
	"morocco-rag/internal/session"
	"morocco-rag/internal/tui"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat in the terminal",
	Args:  cobra.NoArgs,
	RunE:  runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

// newPipeline loads a fresh pipeline for every session
func newPipeline(ctx context.Context) (session.Pipeline, error) {
	p, err := rag.Load(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func runChat(cmd *cobra.Command, args []string) error {
	registry := session.NewRegistry(newPipeline)
	defer registry.CloseAll()

	return tui.Run(cmd.Context(), func(ctx context.Context) (tui.Asker, error) {
		s, err := registry.Create(ctx)
		if err != nil {
			return nil, err
		}
		return s, nil
	})
}
