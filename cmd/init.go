package cmd

import (
	"github.com/spf13/cobra"

	"github.com/nlweb/chatpanel/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize nlchat configuration with an interactive wizard",
	Long:  `Runs an interactive wizard that asks where the site list comes from and how the selector panel should look, then writes .nlchat.yml.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard(cfgFile)
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
