package cmd

import (
	"fmt"
	"time"

	"github.com/pcsensei/pcsensei/internal/utils"
	"github.com/pcsensei/pcsensei/pkg/catalog"
	"github.com/pcsensei/pcsensei/pkg/shoplinks"
	"github.com/pcsensei/pcsensei/pkg/whttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var linksCmd = &cobra.Command{
	Use:   "links",
	Short: "Manage retailer shop links in the catalog",
}

var linksGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Write search links for every store into each catalog record",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := viper.GetString("catalog.path")
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		lock, err := utils.NewFileLock(path)
		if err != nil {
			return err
		}
		if err := lock.Lock(); err != nil {
			return err
		}
		defer lock.Unlock()

		c, err := catalog.Load(path)
		if err != nil {
			return err
		}
		n := shoplinks.Apply(c)
		if dryRun {
			fmt.Printf("Would add links for %d stores to %d products.\n", len(shoplinks.Stores), n)
			return nil
		}
		if err := catalog.Save(path, c); err != nil {
			return err
		}
		utils.Log.Infof("Added links for %d stores to %d products in %s", len(shoplinks.Stores), n, path)
		return nil
	},
}

var linksCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Probe the shop links of one catalog item",
	RunE: func(cmd *cobra.Command, args []string) error {
		category, _ := cmd.Flags().GetString("category")
		id, _ := cmd.Flags().GetString("id")
		interval, _ := cmd.Flags().GetDuration("interval")
		timeout, _ := cmd.Flags().GetDuration("timeout")

		src, err := newSource(nil)
		if err != nil {
			return err
		}
		c, err := src.Catalog(cmd.Context())
		if err != nil {
			return err
		}

		var item *catalog.Component
		for _, it := range c.Get(catalog.Category(category)) {
			if it.ID == id {
				it := it
				item = &it
				break
			}
		}
		if item == nil {
			return fmt.Errorf("no %s item with id %q", category, id)
		}

		links := item.ShopLinks
		if len(links) == 0 {
			utils.Log.Infof("%s has no stored links, checking generated ones", item.DisplayName())
			links = shoplinks.Generate(item.DisplayName(), catalog.Category(category))
		}

		client := whttp.NewClient(timeout, 1)
		for _, r := range shoplinks.Check(cmd.Context(), client, links, interval) {
			status := "OK"
			if !r.OK() {
				status = "FAIL"
			}
			detail := r.Title
			if r.Error != "" {
				detail = r.Error
			}
			fmt.Printf("%-4s  %-12s  %3d  %s\n", status, r.Store, r.StatusCode, detail)
		}
		return nil
	},
}

var linksRetailerCmd = &cobra.Command{
	Use:   "retailer <url>...",
	Short: "Print which store each URL belongs to",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, link := range args {
			store, ok := shoplinks.Retailer(link)
			if !ok {
				store = "unknown"
			}
			fmt.Printf("%s\t%s\n", store, link)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(linksCmd)
	linksCmd.AddCommand(linksGenerateCmd, linksCheckCmd, linksRetailerCmd)

	linksGenerateCmd.Flags().Bool("dry-run", false, "Report what would change without writing the catalog")

	linksCheckCmd.Flags().String("category", "", "Catalog category of the item (e.g. gpus)")
	linksCheckCmd.Flags().String("id", "", "Item id")
	linksCheckCmd.Flags().Duration("interval", 2*time.Second, "Delay between requests")
	linksCheckCmd.Flags().Duration("timeout", 15*time.Second, "Per-request timeout")
	linksCheckCmd.MarkFlagRequired("category")
	linksCheckCmd.MarkFlagRequired("id")
}
