package commands

import (
	"encoding/json"
	"fmt"
	"slices"
	"text/tabwriter"

	"github.com/openfroyo/froyodesk/pkg/packagelist"
	"github.com/spf13/cobra"
)

func newPackagesCommand() *cobra.Command {
	var (
		source string
		all    bool
	)

	cmd := &cobra.Command{
		Use:   "packages",
		Short: "Print the packages of a package list",
		Long: `Fetch a package list and print the packages a run would install.

Lines are "tag,name,description". Rows with an empty tag are installed;
tagged rows are listed only with --all.`,
		Example: `  # Packages from the configured list
  froyodesk packages

  # Inspect another list, including tagged rows
  froyodesk packages --source https://example.com/packages.csv --all`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if source == "" {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				source = cfg.Packages.ListURL
			}

			list, err := packagelist.NewLoader(nil).Load(cmd.Context(), source)
			if err != nil {
				return err
			}

			entries := list.Active()
			if all {
				entries = list.All()
			}

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(slices.Collect(entries))
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for e := range entries {
				if all {
					fmt.Fprintf(w, "%s\t%s\t%s\n", e.Tag, e.Name, e.Description)
				} else {
					fmt.Fprintf(w, "%s\t%s\n", e.Name, e.Description)
				}
			}
			if err := w.Flush(); err != nil {
				return err
			}

			for _, line := range list.Rejected() {
				fmt.Fprintf(cmd.ErrOrStderr(), "rejected: %s\n", line)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&source, "source", "s", "", "package list URL or path (defaults to packages.list_url)")
	cmd.Flags().BoolVar(&all, "all", false, "include tagged rows")

	return cmd
}
