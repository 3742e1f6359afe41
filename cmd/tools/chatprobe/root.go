package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

// newRootCmd builds the command tree. A fresh tree per call keeps flag state
// out of tests.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "chatprobe",
		Short: "Drive and inspect What'sEat chat sessions from a terminal",
		Long: `chatprobe talks to the configured agent runtime the same way the gateway does.

Commands:
  chat        open a session and chat interactively (or send one --message)
  normalize   normalize a raw payload into restaurant cards
  decode      build the visible transcript from a list of wire messages`,
		SilenceUsage: true,
	}
	root.AddCommand(newChatCmd(), newNormalizeCmd(), newDecodeCmd())
	return root
}

// readInput reads the file named by args[0], or stdin when no file is given.
func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", args[0], err)
	}
	return data, nil
}

// writeStructured writes v as json or yaml.
func writeStructured(w io.Writer, format string, v any) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported format %q: want %s, %s or %s", format, formatText, formatJSON, formatYAML)
	}
}
