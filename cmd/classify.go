package main

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/showroom-assistant/internal/objection"
	"github.com/sells-group/showroom-assistant/internal/patterns"
)

var classifyCmd = &cobra.Command{
	Use:   "classify <utterance>",
	Short: "Detect the sales objection in an utterance and print its follow-up prompts",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lib, err := patterns.Load(cfg.Patterns.OverridesPath)
		if err != nil {
			return eris.Wrap(err, "load patterns")
		}

		result := objection.New(lib).Classify(strings.Join(args, " "))
		return writeJSON(os.Stdout, result)
	},
}

func init() {
	rootCmd.AddCommand(classifyCmd)
}
