package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	runFile        string
	runKeepHistory bool
	runRepeat      int
)

var errRunFailed = errors.New("run failed")

var runCmd = &cobra.Command{
	Use:   "run [name]",
	Short: "Run one demo headless and print its terminal output",
	Long: `Run selects a demo the same way the page does and evaluates it once (or
--repeat times). With --file the editor text is read from a file instead and
the demo name is optional.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 && runFile == "" {
			return errors.New("a demo name or --file is required")
		}
		s, err := loadSettings()
		if err != nil {
			return err
		}
		if s.LogLevel == "info" {
			s.LogLevel = "warn"
		}
		log, err := newLogger(s)
		if err != nil {
			return err
		}
		defer log.Sync() //nolint:errcheck

		manager, err := newManager(s, log)
		if err != nil {
			return err
		}
		defer manager.CloseAll()

		sess, err := manager.Create()
		if err != nil {
			return err
		}

		title := runFile
		if len(args) == 1 {
			title = args[0]
			if err := <-sess.Select(args[0]); err != nil {
				return fmt.Errorf("load %s: %w", args[0], err)
			}
		}
		if runFile != "" {
			src, err := os.ReadFile(runFile)
			if err != nil {
				return err
			}
			if err := sess.Edit(string(src)); err != nil {
				return err
			}
		}

		stderr := cmd.ErrOrStderr()
		printBanner(stderr, title, s.RuntimeKind)

		failed := false
		for i := 0; i < max(runRepeat, 1); i++ {
			res, err := sess.Submit(cmd.Context(), runKeepHistory && i > 0)
			if err != nil {
				return err
			}
			if i == max(runRepeat, 1)-1 {
				fmt.Fprint(cmd.OutOrStdout(), res.Output)
			}
			printFooter(stderr, res.Duration, res.Error)
			if res.Error != "" {
				failed = true
				log.Debug("run error", zap.String("error", res.Error))
			}
		}
		if failed {
			return errRunFailed
		}
		return nil
	},
}

func init() {
	runCmd.Flags().StringVarP(&runFile, "file", "f", "", "Read the program from a file instead of the demo source")
	runCmd.Flags().BoolVar(&runKeepHistory, "keep-history", false, "Keep terminal output between repeated runs")
	runCmd.Flags().IntVarP(&runRepeat, "repeat", "n", 1, "Number of times to run")
	rootCmd.AddCommand(runCmd)
}
