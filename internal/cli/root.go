package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ppiankov/verity/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Version is overridden at build time with -ldflags "-X".
var Version = "v0.1.0"

var (
	cfgFile string
	verbose bool
	debug   bool
	logJSON bool
)

var rootCmd = &cobra.Command{
	Use:   "verity",
	Short: "Verity - search-augmented factuality evaluation for model responses",
	Long: `Verity splits a model response into atomic facts, drops the ones that are
irrelevant to the prompt, and checks every remaining fact against web or
meta-search evidence gathered in a short search/reason loop.

Each fact ends up Supported, Not Supported or Irrelevant. The report keeps
every query, every search result and every rater response.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "verity %s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.verity/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "log prompts, model responses and search calls")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "emit logs as JSON")

	_ = viper.BindPFlag("output.verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("rater.debug", rootCmd.PersistentFlags().Lookup("debug"))

	rootCmd.AddCommand(versionCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}

		viper.AddConfigPath(filepath.Join(home, ".verity"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	configureEnv(viper.GetViper())

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

func newLogger() *slog.Logger {
	return logging.New(logging.Options{
		Verbose: verbose,
		Debug:   debug,
		JSON:    logJSON,
	})
}
