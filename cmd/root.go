package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pcsensei/pcsensei/internal/utils"
	"github.com/spf13/cobra"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

var cfgFile string

const (
	LOGO = `                                         _
	 _ __   ___ ___  ___ _ __  ___  ___ (_)
	| '_ \ / __/ __|/ _ \ '_ \/ __|/ _ \| |
	| |_) | (__\__ \  __/ | | \__ \  __/| |
	| .__/ \___|___/\___|_| |_|___/\___||_|
	|_|

`
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pcsensei",
	Short: "Budget PC and laptop recommendations for the Indian market.",
	Long: LOGO + `pcsensei picks laptops and assembles compatible desktop builds for a budget in INR,
and keeps its component prices moving with a scheduled market simulation.`,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.pcsensei.yaml)")

	// Global flags
	rootCmd.PersistentFlags().StringP("loglevel", "l", "info", "Set log level. Available: debug, info, warn, error, fatal")
	rootCmd.PersistentFlags().String("catalog", "", "Path to the component catalog JSON (overrides catalog.path)")
	rootCmd.PersistentFlags().String("catalog-url", "", "Fetch the catalog from this URL instead of a local file (overrides catalog.url)")
	rootCmd.PersistentFlags().String("dbpath", "", "Path to SQLite DB file (overrides db.path)")
	rootCmd.PersistentFlags().String("logdir", "", "Directory for the price update log and summary (overrides logs.dir)")

	viper.BindPFlag("catalog.path", rootCmd.PersistentFlags().Lookup("catalog"))
	viper.BindPFlag("catalog.url", rootCmd.PersistentFlags().Lookup("catalog-url"))
	viper.BindPFlag("db.path", rootCmd.PersistentFlags().Lookup("dbpath"))
	viper.BindPFlag("logs.dir", rootCmd.PersistentFlags().Lookup("logdir"))
}

func setDefaults() {
	viper.SetDefault("catalog.path", "components.json")
	viper.SetDefault("catalog.url", "")
	viper.SetDefault("catalog.ttl", "24h")
	viper.SetDefault("logs.dir", "logs")
	viper.SetDefault("db.path", "pcsensei.sqlite")
	viper.SetDefault("drift.schedule", "@every 24h")
	viper.SetDefault("server.listen", ":3001")
	viper.SetDefault("server.username", "")
	viper.SetDefault("server.password", "")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	setDefaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(".pcsensei")
		viper.SetConfigType("yaml")
	}

	// PCSENSEI_CATALOG_URL overrides catalog.url, and so on.
	viper.SetEnvPrefix("pcsensei")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; create it with defaults.
			home, _ := homedir.Dir()
			configPath := filepath.Join(home, ".pcsensei.yaml")
			if err := viper.SafeWriteConfigAs(configPath); err != nil {
				fmt.Printf("Error creating config file: %s\n", err)
			}
		} else {
			fmt.Printf("Error reading config file: %s\n", err)
		}
	}

	// Init log library
	levelString, _ := rootCmd.PersistentFlags().GetString("loglevel")
	if err := utils.SetLogLevel(levelString); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
