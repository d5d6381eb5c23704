package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/pcsensei/pcsensei/internal/utils"
	"github.com/pcsensei/pcsensei/pkg/catalog"
	"github.com/spf13/cobra"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect the component catalog and its cache",
}

var catalogValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Load the catalog, check it, and print item counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		src, err := newSource(nil)
		if err != nil {
			return err
		}
		c, err := src.Refresh(cmd.Context())
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "CATEGORY\tITEMS\tCHEAPEST\tPRICIEST\t")
		for _, cat := range catalog.Categories {
			items := c.Get(cat)
			if len(items) == 0 {
				fmt.Fprintf(w, "%s\t0\t-\t-\t\n", cat)
				continue
			}
			lo, hi := items[0].Price, items[0].Price
			for _, it := range items[1:] {
				lo, hi = min(lo, it.Price), max(hi, it.Price)
			}
			fmt.Fprintf(w, "%s\t%d\t%s\t%s\t\n", cat, len(items), utils.FormatINR(lo), utils.FormatINR(hi))
		}
		fmt.Fprintf(w, "TOTAL\t%d\t\t\t\n", c.Count())
		if err := w.Flush(); err != nil {
			return err
		}

		if err := c.Validate(); err != nil {
			return fmt.Errorf("catalog is invalid:\n%w", err)
		}
		fmt.Println("Catalog is valid.")
		return nil
	},
}

var catalogRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Fetch the remote catalog now and update the cache",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !catalogIsRemote() {
			return fmt.Errorf("catalog.url is not set; nothing to refresh")
		}
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		src, err := newSource(db)
		if err != nil {
			return err
		}
		c, err := src.Refresh(cmd.Context())
		if err != nil {
			return err
		}
		utils.Log.Infof("Cached catalog with %d items", c.Count())
		return nil
	},
}

var catalogClearCacheCmd = &cobra.Command{
	Use:   "clear-cache",
	Short: "Drop the cached remote catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		src, err := newSource(db)
		if err != nil {
			return err
		}
		if err := src.Invalidate(cmd.Context()); err != nil {
			return err
		}
		fmt.Println("Catalog cache cleared.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(catalogCmd)
	catalogCmd.AddCommand(catalogValidateCmd, catalogRefreshCmd, catalogClearCacheCmd)
}
