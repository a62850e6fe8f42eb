package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/roleautomator/jamfroles/internal/utils"
	"github.com/roleautomator/jamfroles/pkg/privileges"
	"github.com/roleautomator/jamfroles/pkg/syncer"
	"github.com/spf13/cobra"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd runs the sync when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "jamfroles",
	Short: "Sync Jamf Pro API privileges and categories into static JSON files.",
	Long: `jamfroles scrapes Jamf's developer documentation for Classic API and Jamf Pro API
privileges and writes them to roles/*.json:

  jamf-roles.json             full database
  classic-api-roles.json      Classic API privileges only
  jamf-pro-api-roles.json     Jamf Pro API privileges only
  privilege-categories.json   category -> privilege names

All four files are replaced together, or not at all.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runSync(cmd)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "%s failed: %v\n", stageOf(err), err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.jamfroles.yaml)")

	// Global flags
	rootCmd.PersistentFlags().StringP("loglevel", "l", "info", "Set log level. Available: debug, info, warn, error, fatal")

	rootCmd.Flags().StringP("output", "o", "roles", "Directory the JSON files are written to")
	rootCmd.Flags().String("proxy", "", "HTTP Proxy (Useful for debugging. Example: http://127.0.0.1:8080)")
	rootCmd.Flags().Duration("timeout", 0, "Per-request timeout (default 30s)")
	rootCmd.Flags().Int("retries", 0, "Extra attempts per documentation page")
	rootCmd.Flags().String("classic-url", "", "Override the Classic API privileges page URL")
	rootCmd.Flags().String("jamf-pro-url", "", "Override the Jamf Pro API privileges page URL")
	rootCmd.Flags().String("db", "", "Record run history and privilege changes in this SQLite file")
	rootCmd.Flags().Bool("dry-run", false, "Fetch and render, but do not write any file")

	viper.BindPFlag("output.dir", rootCmd.Flags().Lookup("output"))
	viper.BindPFlag("http.proxy", rootCmd.Flags().Lookup("proxy"))
	viper.BindPFlag("http.timeout", rootCmd.Flags().Lookup("timeout"))
	viper.BindPFlag("http.retries", rootCmd.Flags().Lookup("retries"))
	viper.BindPFlag("sources.classic", rootCmd.Flags().Lookup("classic-url"))
	viper.BindPFlag("sources.jamfpro", rootCmd.Flags().Lookup("jamf-pro-url"))
	viper.BindPFlag("db.path", rootCmd.Flags().Lookup("db"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(".jamfroles")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("jamfroles")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// A missing config file is fine: defaults cover the scheduled run.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "Error reading config file: %s\n", err)
			os.Exit(1)
		}
	}

	defaults := syncer.DefaultConfig()
	viper.SetDefault("output.dir", defaults.OutputDir)
	viper.SetDefault("http.timeout", defaults.Timeout)
	viper.SetDefault("http.retries", 0)
	viper.SetDefault("sources.classic", defaults.ClassicURL)
	viper.SetDefault("sources.jamfpro", defaults.JamfProURL)
	viper.SetDefault("sources.allowed_domains", defaults.AllowedDomains)

	// Init log library
	levelString, _ := rootCmd.PersistentFlags().GetString("loglevel")
	if err := utils.SetLogLevel(levelString); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig assembles the sync configuration from flags, env and config file.
func loadConfig(cmd *cobra.Command) syncer.Config {
	cfg := syncer.DefaultConfig()
	if d := viper.GetString("output.dir"); d != "" {
		cfg.OutputDir = d
	}
	cfg.Proxy = viper.GetString("http.proxy")
	cfg.Retries = viper.GetInt("http.retries")
	if t := viper.GetDuration("http.timeout"); t > 0 {
		cfg.Timeout = t
	}
	if u := viper.GetString("sources.classic"); u != "" {
		cfg.ClassicURL = u
	}
	if u := viper.GetString("sources.jamfpro"); u != "" {
		cfg.JamfProURL = u
	}
	if d := splitDomains(viper.GetStringSlice("sources.allowed_domains")); len(d) > 0 {
		cfg.AllowedDomains = d
	}
	cfg.DBPath = viper.GetString("db.path")
	cfg.DryRun, _ = cmd.Flags().GetBool("dry-run")
	return cfg
}

// stageOf names the pipeline stage an error came from.
func stageOf(err error) string {
	var fe *privileges.FetchError
	var pe *privileges.ParseError
	var we *privileges.WriteError
	switch {
	case errors.As(err, &fe):
		return "fetch"
	case errors.As(err, &pe):
		return "parse"
	case errors.As(err, &we):
		return "write"
	}
	return "jamfroles"
}

// splitDomains flattens comma-separated entries, as set through
// JAMFROLES_SOURCES_ALLOWED_DOMAINS="jamf.com,example.org".
func splitDomains(entries []string) []string {
	var out []string
	for _, e := range entries {
		for _, d := range strings.Split(e, ",") {
			if d = strings.TrimSpace(d); d != "" {
				out = append(out, d)
			}
		}
	}
	return out
}
