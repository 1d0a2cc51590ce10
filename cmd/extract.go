package main

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/showroom-assistant/internal/extract"
	"github.com/sells-group/showroom-assistant/internal/model"
	"github.com/sells-group/showroom-assistant/internal/patterns"
)

var extractCmd = &cobra.Command{
	Use:   "extract [utterance...]",
	Short: "Fold utterances into a customer profile and print it as JSON",
	Long:  "Each argument is one customer utterance, applied oldest first. With no arguments, utterances are read from stdin, one per line.",
	RunE: func(cmd *cobra.Command, args []string) error {
		lib, err := patterns.Load(cfg.Patterns.OverridesPath)
		if err != nil {
			return eris.Wrap(err, "load patterns")
		}

		utterances := args
		if len(utterances) == 0 {
			utterances, err = readLines(os.Stdin)
			if err != nil {
				return err
			}
		}

		return writeJSON(os.Stdout, foldProfile(lib, utterances))
	},
}

func init() {
	rootCmd.AddCommand(extractCmd)
}

func foldProfile(lib *patterns.Library, utterances []string) model.Profile {
	return extract.New(lib).Fold(model.Profile{}, utterances...)
}

// readLines returns the non-blank lines of r.
func readLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, eris.Wrap(err, "read input")
	}
	return lines, nil
}
