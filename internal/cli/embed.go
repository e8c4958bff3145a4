package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// previewValues is how many vector components text output shows without --full.
const previewValues = 8

var fullVector bool

var embedCmd = &cobra.Command{
	Use:   "embed <text>|-",
	Short: "Embed text with the daemon's model",
	Long: `Send text to POST /embed and print the resulting vector.

Multiple arguments are joined with single spaces. Use '-' to read the text
from stdin; one trailing newline is removed.

Examples:
  embedsvc embed "hello world"
  echo "¿dónde está la estación?" | embedsvc embed -
  embedsvc embed --json "hola"`,
	RunE: runEmbed,
}

func init() {
	embedCmd.Flags().BoolVar(&fullVector, "full", false, "Print every vector component instead of a preview")
	rootCmd.AddCommand(embedCmd)
}

func runEmbed(cmd *cobra.Command, args []string) error {
	text, err := embedInput(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}

	res, err := newClient().Embed(cmd.Context(), text)
	if err != nil {
		return err
	}

	out := outputFor(cmd)
	if IsJSONOutput() {
		return out.JSON(res)
	}

	out.Info("Model: %s", res.Model)
	out.Info("Dim:   %d", res.Dim)
	out.Info("%s", formatVector(res.Embedding, fullVector))
	return nil
}

func embedInput(stdin io.Reader, args []string) (string, error) {
	if len(args) == 0 {
		return "", ErrEmptyInput()
	}
	if len(args) == 1 && args[0] == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		text := strings.TrimSuffix(string(data), "\n")
		return strings.TrimSuffix(text, "\r"), nil
	}
	return strings.Join(args, " "), nil
}

func formatVector(vec []float64, full bool) string {
	n := len(vec)
	if !full && n > previewValues {
		n = previewValues
	}
	parts := make([]string, n)
	for i := 0; i < n; i++ {
		parts[i] = strconv.FormatFloat(vec[i], 'f', 6, 64)
	}
	s := "[" + strings.Join(parts, ", ")
	if n < len(vec) {
		s += fmt.Sprintf(", ... (%d more)", len(vec)-n)
	}
	return s + "]"
}
