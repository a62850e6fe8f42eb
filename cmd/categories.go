package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/roleautomator/jamfroles/pkg/output"
	"github.com/spf13/cobra"
)

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "Print the privilege count per category from a published privilege-categories.json",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		dir, _ := cmd.Flags().GetString("dir")
		verbose, _ := cmd.Flags().GetBool("verbose")
		return printCategories(cmd.OutOrStdout(), filepath.Join(dir, output.CategoriesFile), verbose)
	},
}

// printCategories writes "category<TAB>count" lines sorted by category.
func printCategories(w io.Writer, path string, verbose bool) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var idx map[string][]string
	if err := json.Unmarshal(b, &idx); err != nil {
		return fmt.Errorf("%s is not a category index: %w", path, err)
	}

	names := make([]string, 0, len(idx))
	for c := range idx {
		names = append(names, c)
	}
	sort.Strings(names)
	for _, c := range names {
		fmt.Fprintf(w, "%s\t%d\n", c, len(idx[c]))
		if verbose {
			for _, p := range idx[c] {
				fmt.Fprintf(w, "\t%s\n", p)
			}
		}
	}
	return nil
}

func init() {
	rootCmd.AddCommand(categoriesCmd)
	categoriesCmd.Flags().String("dir", "roles", "Directory holding the published JSON files")
	categoriesCmd.Flags().BoolP("verbose", "v", false, "Also list the privileges of each category")
}
