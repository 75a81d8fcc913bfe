// Package cmd implements the command-line interface for the observatory
// seeder. It provides the root command and subcommands for each pipeline
// phase.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	checkpointcmd "github.com/adiazpar/starview-agent/cmd/checkpoint"
	"github.com/adiazpar/starview-agent/cmd/cleanup"
	"github.com/adiazpar/starview-agent/cmd/discover"
	imagescmd "github.com/adiazpar/starview-agent/cmd/images"
	"github.com/adiazpar/starview-agent/cmd/merge"
	"github.com/adiazpar/starview-agent/cmd/validate"
	"github.com/adiazpar/starview-agent/internal/config"
)

var (
	// cfgFile holds the path to the configuration file.
	cfgFile string

	// Debug enables debug logging for all commands.
	Debug bool

	rootCmd = &cobra.Command{
		Use:   "starview-agent",
		Short: "Observatory seeding pipeline",
		Long: `Discovers observatories from Wikidata, validates their websites,
downloads candidate images, and merges validated results into the durable
seed file.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
)

// Execute runs the root command.
func Execute() error {
	// Load .env early so environment variables are available to flag parsing
	_ = godotenv.Load()

	// Parse flags early to get the debug flag before commands build loggers
	_ = rootCmd.ParseFlags(os.Args[1:])

	if err := initConfig(); err != nil {
		return fmt.Errorf("failed to initialize configuration: %w", err)
	}

	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"",
		"config file (default is ./config.yaml or ./config/config.yaml)",
	)
	rootCmd.PersistentFlags().BoolVar(&Debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("starview-agent version %s\n", "1.0.0")
		},
	})

	rootCmd.AddCommand(discover.Command())
	rootCmd.AddCommand(validate.Command())
	rootCmd.AddCommand(imagescmd.Command())
	rootCmd.AddCommand(checkpointcmd.Command())
	rootCmd.AddCommand(merge.Command())
	rootCmd.AddCommand(cleanup.Command())
}

// initConfig reads the config file and environment variables.
func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./config")
	}

	// Environment variables take precedence over defaults
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	config.SetDefaults(viper.GetViper())

	// Config file is optional; defaults plus environment cover everything
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			fmt.Fprintf(os.Stderr, "Warning: config file not loaded: %v\n", err)
		}
	}

	if err := bindEnvVars(); err != nil {
		return err
	}

	if Debug {
		viper.Set("logger.level", "debug")
	}
	return nil
}

// bindEnvVars maps well-known environment variables to config keys.
func bindEnvVars() error {
	bindings := map[string][]string{
		"logger.level":      {"LOG_LEVEL"},
		"logger.encoding":   {"LOG_FORMAT"},
		"paths.data_dir":    {"SEED_DATA_DIR"},
		"wikidata.endpoint": {"WIKIDATA_ENDPOINT"},
		"commons.api_url":   {"COMMONS_API_URL"},
	}
	for key, envs := range bindings {
		if err := viper.BindEnv(append([]string{key}, envs...)...); err != nil {
			return fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}
	return nil
}
