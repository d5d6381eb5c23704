package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/pcsensei/pcsensei/internal/utils"
	"github.com/pcsensei/pcsensei/pkg/catalog"
	"github.com/pcsensei/pcsensei/pkg/recommend"
	"github.com/pcsensei/pcsensei/pkg/storage"
	"github.com/spf13/cobra"
)

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Recommend a laptop or a desktop build for a budget",
}

var recommendLaptopCmd = &cobra.Command{
	Use:   "laptop",
	Short: "Rank up to three laptops for a budget and usage",
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := requestFromFlags(cmd)
		if err != nil {
			return err
		}
		svc, closeFn, err := serviceForCommand()
		if err != nil {
			return err
		}
		defer closeFn()

		laptops, err := svc.LaptopRecommendations(cmd.Context(), req)
		if err != nil {
			return err
		}
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return printJSON(laptops)
		}
		if len(laptops) == 0 {
			fmt.Println("No laptops found within budget.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "#\tLAPTOP\tPRICE\tSCORE\tSPEC\t")
		for i, l := range laptops {
			fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\t\n", i+1, label(l.Laptop), utils.FormatINR(l.Laptop.Price), l.Score, l.Laptop.Spec)
		}
		return w.Flush()
	},
}

var recommendDesktopCmd = &cobra.Command{
	Use:   "desktop",
	Short: "Assemble a compatible desktop build for a budget and usage",
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := requestFromFlags(cmd)
		if err != nil {
			return err
		}
		svc, closeFn, err := serviceForCommand()
		if err != nil {
			return err
		}
		defer closeFn()

		build, err := svc.DesktopBuild(cmd.Context(), req)
		if err != nil {
			return err
		}
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return printJSON(build)
		}

		fmt.Printf("%s build for %s (%s tier)\n\n", capitalize(string(build.Usage)), utils.FormatINR(build.Budget), build.Allocation.Tier)
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "PART\tCOMPONENT\tPRICE\t")
		for _, p := range build.Parts() {
			fmt.Fprintf(w, "%s\t%s\t%s\t\n", partLabel(p.Category), label(p.Component), utils.FormatINR(p.Component.Price))
		}
		fmt.Fprintln(w, " \t \t \t")
		fmt.Fprintf(w, "TOTAL\t\t%s\t\n", utils.FormatINR(build.TotalPrice))
		if err := w.Flush(); err != nil {
			return err
		}

		if build.TotalPrice > build.Budget {
			fmt.Printf("\nOver budget by %s\n", utils.FormatINR(build.TotalPrice-build.Budget))
		}
		for _, warning := range build.Warnings {
			fmt.Printf("Warning: %s\n", warning)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(recommendCmd)
	recommendCmd.AddCommand(recommendLaptopCmd, recommendDesktopCmd)

	recommendCmd.PersistentFlags().IntP("budget", "b", 0, "Budget in INR")
	recommendCmd.PersistentFlags().StringP("usage", "u", string(recommend.Gaming), "Usage profile: gaming, content, coding, office, student")
	recommendCmd.PersistentFlags().String("cpu", recommend.NoPreference, "Preferred CPU brand (e.g. AMD, Intel)")
	recommendCmd.PersistentFlags().String("gpu", recommend.NoPreference, "Preferred GPU brand (e.g. NVIDIA, AMD)")
	recommendCmd.PersistentFlags().Bool("json", false, "Print the result as JSON")
	recommendCmd.MarkPersistentFlagRequired("budget")
}

func requestFromFlags(cmd *cobra.Command) (recommend.Request, error) {
	budget, _ := cmd.Flags().GetInt("budget")
	usage, _ := cmd.Flags().GetString("usage")
	cpu, _ := cmd.Flags().GetString("cpu")
	gpu, _ := cmd.Flags().GetString("gpu")

	u := recommend.ParseUsage(usage)
	known := false
	for _, k := range recommend.Usages {
		if u == k {
			known = true
		}
	}
	if !known {
		utils.Log.Warnf("Unknown usage %q, no usage-specific weighting will apply", usage)
	}

	return recommend.Request{
		Budget:      budget,
		Usage:       u,
		Preferences: recommend.Preferences{CPU: cpu, GPU: gpu},
	}, nil
}

// serviceForCommand opens the database only when a remote catalog needs caching.
func serviceForCommand() (*recommend.Service, func(), error) {
	closeFn := func() {}
	var db *storage.DB
	if catalogIsRemote() {
		d, err := openDB()
		if err != nil {
			utils.Log.Warnf("Catalog cache unavailable: %v", err)
		} else {
			db = d
			closeFn = func() { d.Close() }
		}
	}
	svc, err := newService(db)
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	return svc, closeFn, nil
}

func label(c catalog.Component) string {
	if c.Brand != "" && !strings.HasPrefix(c.Name, c.Brand) {
		return c.Brand + " " + c.DisplayName()
	}
	return c.DisplayName()
}

func partLabel(c catalog.Category) string {
	switch c {
	case catalog.CPUs:
		return "CPU"
	case catalog.GPUs:
		return "GPU"
	case catalog.Motherboards:
		return "Motherboard"
	case catalog.RAM:
		return "RAM"
	case catalog.Storage:
		return "Storage"
	case catalog.PSUs:
		return "PSU"
	case catalog.Cases:
		return "Case"
	}
	return string(c)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
