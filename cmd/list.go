package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"demo-console/runtime"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the demos a new session offers",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSettings()
		if err != nil {
			return err
		}
		manager, err := newManager(s, zap.NewNop())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, opt := range manager.Catalog() {
			suffix := ""
			if _, ok := s.Builtins[opt.Key]; ok {
				suffix = " " + dimStyle.Render("(built-in)")
			}
			fmt.Fprintln(out, nameStyle.Render(opt.Label)+suffix)
		}
		fmt.Fprintln(out, dimStyle.Render("runtime: "+s.RuntimeKind+" (available: "+strings.Join(runtime.Kinds(), ", ")+")"))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
