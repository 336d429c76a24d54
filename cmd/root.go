package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nlweb/chatpanel/internal/config"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "nlchat",
	Short: "Chat debug page with a site, mode and debug selector panel",
	Long: `nlchat serves a chat debug page whose selector panel lets you pick the
site to query, choose how results are generated, clear the conversation
and toggle a debug view of the session state. The list of sites comes
from a remote /sites endpoint or from a local site catalog.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return config.LoadEnvFiles()
	},
}

func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", ".nlchat.yml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
