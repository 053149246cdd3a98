package cli

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/showcase-dev/showcase/internal/conversation"
)

func init() {
	rootCmd.AddCommand(scriptsCmd)
}

var scriptsCmd = &cobra.Command{
	Use:     "scripts",
	Aliases: []string{"ls"},
	Short:   "List the scripted conversations",
	RunE: func(cmd *cobra.Command, args []string) error {
		lib, err := conversation.LoadLibrary(GetConfig().Player.ScriptsDir)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		if IsJSONOutput() {
			type scriptJSON struct {
				Name     string  `json:"name"`
				Messages int     `json:"messages"`
				Seconds  float64 `json:"duration_seconds"`
				Source   string  `json:"source"`
			}
			list := make([]scriptJSON, 0, len(lib))
			for _, s := range lib {
				list = append(list, scriptJSON{Name: s.Name, Messages: s.Len(), Seconds: s.Duration().Seconds(), Source: s.Source})
			}
			return writeJSON(out, list)
		}

		rows := make([][]string, 0, len(lib))
		for _, s := range lib {
			rows = append(rows, []string{s.Name, strconv.Itoa(s.Len()), formatDuration(s.Duration()), s.Source})
		}
		return writeTable(out, []string{"NAME", "MESSAGES", "DURATION", "SOURCE"}, rows)
	},
}
