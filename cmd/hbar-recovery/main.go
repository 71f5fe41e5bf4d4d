package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"hbar_recovery/internal/config"
)

var (
	log = logrus.New()
	cfg config.Config
)

func main() {
	root := &cobra.Command{
		Use:   "hbar-recovery",
		Short: "Hedera seed-phrase recovery engine",
		Long: `Enumerates candidate seed phrases from an operator wordlist, derives
keys under every known Hedera wallet convention, and checks the results
against a mirror node for funded accounts. Progress is checkpointed so an
interrupted run resumes without repeating work.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			verbose, _ := cmd.Flags().GetBool("verbose")
			if verbose {
				log.SetLevel(logrus.DebugLevel)
			}
			var err error
			cfg, err = config.Load()
			return err
		},
	}
	root.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")

	root.AddCommand(newRunCmd(), newSelfTestCmd())

	if err := root.Execute(); err != nil {
		log.WithError(err).Error("exiting")
		os.Exit(1)
	}
}
