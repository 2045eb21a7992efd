package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"morocco-rag/internal/chromemdb"
	"morocco-rag/internal/config"
)

var exportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Export the chromem index to a single file",
	Long: `Writes the index collection to one gob file. The file is gzip compressed
when index.compress is set and AES encrypted when index.encryption_key is set.`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

var importCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Replace the chromem index with an exported file",
	Args:  cobra.ExactArgs(1),
	RunE:  runImport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
}

func requireChromem() error {
	if cfg.Index.Backend != config.BackendChromem {
		return fmt.Errorf("export and import need the %s backend, index.backend is %s", config.BackendChromem, cfg.Index.Backend)
	}
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	if err := requireChromem(); err != nil {
		return err
	}
	m, err := chromemdb.Open(cfg.Index.Path, cfg.Index.Collection, cfg.Index.Compress, nil)
	if err != nil {
		return err
	}
	if err := m.WithEncryptionKey(cfg.Index.EncryptionKey).Export(args[0]); err != nil {
		return err
	}
	cmd.Printf("Exported %d chunks to %s\n", m.Count(), args[0])
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	if err := requireChromem(); err != nil {
		return err
	}
	if err := chromemdb.Import(cfg.Index.Path, cfg.Index.Collection, cfg.Index.Compress, args[0], cfg.Index.EncryptionKey); err != nil {
		return err
	}
	cmd.Printf("Imported %s into %s\n", args[0], cfg.Index.Path)
	return nil
}
