package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nlweb/chatpanel/internal/sites"
)

var (
	sitesURL    string
	sitesStrict bool
)

var sitesCmd = &cobra.Command{
	Use:   "sites",
	Short: "Print the site list the selector panel would show",
	Long: `Fetches the site list the same way the chat page does and prints it,
one site per line, "all" first. Without --url the configured sites_url is
used, and without that the local catalog. A failed fetch prints the
built-in fallback list unless --strict is given.`,
	RunE: runSites,
}

func init() {
	sitesCmd.Flags().StringVar(&sitesURL, "url", "", "base URL of a server exposing /sites")
	sitesCmd.Flags().BoolVar(&sitesStrict, "strict", false, "fail instead of printing the fallback list")
	rootCmd.AddCommand(sitesCmd)
}

func runSites(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()
	ctx := cmd.Context()

	base := sitesURL
	if base == "" {
		base = cfg.SitesURL
	}

	var list []string
	if base != "" {
		client := sites.NewClient(base, cfg.FetchTimeout, logger)
		if sitesStrict {
			names, err := client.Fetch(ctx)
			if err != nil {
				return fmt.Errorf("fetching sites from %s: %w", base, err)
			}
			list = sites.Normalize(names)
		} else {
			list = client.ListSites(ctx)
		}
	} else {
		database, store, err := openCatalog(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer database.Close()
		list = store.ListSites(ctx)
	}

	out := cmd.OutOrStdout()
	for _, s := range list {
		fmt.Fprintln(out, s)
	}
	return nil
}
