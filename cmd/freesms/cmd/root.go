package cmd

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "freesms",
	Short: "Free Mobile SMS notifier",
	Long: `freesms sends SMS notifications through the Free Mobile SMS API.

Run "freesms serve" for the HTTP service or "freesms send" for a one-off message.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		_ = godotenv.Load()
	},
}

func Execute() error {
	return rootCmd.Execute()
}
