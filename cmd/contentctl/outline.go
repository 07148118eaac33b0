package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/studyhub/content-service/internal/outline"
)

var (
	outlineReserveEmpty bool
	outlineMaxDepth     int
	outlineCompact      bool
)

var outlineCmd = &cobra.Command{
	Use:   "outline [file]",
	Short: "Convert a Lexical document to a mindmap outline",
	Long:  `Reads a Lexical editor state from file, or stdin when no file is given, and prints the outline as JSON.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runOutline,
}

func init() {
	outlineCmd.Flags().BoolVar(&outlineReserveEmpty, "reserve-empty", false, "Keep levels of empty list items")
	outlineCmd.Flags().IntVar(&outlineMaxDepth, "max-depth", outline.DefaultMaxDepth, "Deepest nesting accepted")
	outlineCmd.Flags().BoolVar(&outlineCompact, "compact", false, "Print without indentation")
	rootCmd.AddCommand(outlineCmd)
}

func runOutline(cmd *cobra.Command, args []string) error {
	var (
		data []byte
		err  error
	)
	if len(args) == 1 && args[0] != "-" {
		data, err = os.ReadFile(args[0])
	} else {
		data, err = io.ReadAll(cmd.InOrStdin())
	}
	if err != nil {
		return fmt.Errorf("read document: %w", err)
	}

	forest, err := outline.BuildLexical(data, outline.Options{
		MaxDepth:           outlineMaxDepth,
		ReserveEmptyLevels: outlineReserveEmpty,
	})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	if !outlineCompact {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(forest)
}
