package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nlweb/chatpanel/internal/catalog"
	"github.com/nlweb/chatpanel/internal/progress"
	"github.com/nlweb/chatpanel/internal/sites"
)

var catalogDescription string

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Manage the local site catalog served on /sites",
}

var catalogAddCmd = &cobra.Command{
	Use:   "add <site>",
	Short: "Add a site or update its description",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCatalog(cmd, func(store *catalog.Store) error {
			if err := store.Add(cmd.Context(), args[0], catalogDescription); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s\n", strings.TrimSpace(args[0]))
			return nil
		})
	},
}

var catalogRemoveCmd = &cobra.Command{
	Use:   "remove <site>",
	Short: "Remove a site",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCatalog(cmd, func(store *catalog.Store) error {
			if err := store.Remove(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
			return nil
		})
	},
}

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored sites and whether /sites exposes them",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCatalog(cmd, func(store *catalog.Store) error {
			all, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			visible, err := store.Names(cmd.Context())
			if err != nil {
				return err
			}
			shown := make(map[string]bool, len(visible))
			for _, n := range visible {
				shown[n] = true
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tVISIBLE\tADDED\tDESCRIPTION")
			for _, s := range all {
				fmt.Fprintf(tw, "%s\t%t\t%s\t%s\n", s.Name, shown[s.Name], s.CreatedAt.Format("2006-01-02"), s.Description)
			}
			return tw.Flush()
		})
	},
}

var catalogImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Add every site listed in a file, one name per line",
	Long: `Reads site names from a file, one per line. Blank lines and lines
starting with # are skipped. Use - to read from stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in := cmd.InOrStdin()
		if args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening %s: %w", args[0], err)
			}
			defer f.Close()
			in = f
		}
		names, err := parseSiteList(in)
		if err != nil {
			return fmt.Errorf("reading %s: %w", args[0], err)
		}

		return withCatalog(cmd, func(store *catalog.Store) error {
			reporter := progress.NewReporter(cmd.ErrOrStderr())
			reporter.Start(len(names))
			for i, n := range names {
				if err := store.Add(cmd.Context(), n, ""); err != nil {
					reporter.Finish()
					return fmt.Errorf("importing %q: %w", n, err)
				}
				reporter.Update(i+1, n)
			}
			reporter.Finish()
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d sites\n", len(names))
			return nil
		})
	},
}

func init() {
	catalogAddCmd.Flags().StringVarP(&catalogDescription, "description", "d", "", "site description")
	catalogCmd.AddCommand(catalogAddCmd, catalogRemoveCmd, catalogListCmd, catalogImportCmd)
	rootCmd.AddCommand(catalogCmd)
}

// parseSiteList reads one site name per line. Blank lines, comments and
// the reserved "all" entry are skipped; duplicates are dropped.
func parseSiteList(r io.Reader) ([]string, error) {
	var names []string
	seen := make(map[string]bool)

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") || line == sites.All || seen[line] {
			continue
		}
		seen[line] = true
		names = append(names, line)
	}
	return names, sc.Err()
}
