package commands

import (
	"fmt"

	"github.com/openfroyo/froyodesk/pkg/config"
	"github.com/openfroyo/froyodesk/pkg/telemetry"
	"github.com/spf13/cobra"
)

// loadConfig returns the file named by --config, or the built-in default.
func loadConfig() (*config.Config, error) {
	if configPath == "" {
		return config.Default()
	}
	return config.Load(configPath)
}

// telemetryConfig maps the configuration file's telemetry section and the
// global flags onto the telemetry package configuration.
func telemetryConfig(cfg config.TelemetryConfig) *telemetry.Config {
	tc := telemetry.DefaultConfig()
	tc.ServiceVersion = version

	if cfg.LogLevel != "" {
		tc.Logging.Level = cfg.LogLevel
	}
	if verbose {
		tc.Logging.Level = "debug"
	}
	if cfg.LogFormat != "" {
		tc.Logging.Format = cfg.LogFormat
	}
	if cfg.LogOutput != "" {
		tc.Logging.Output = cfg.LogOutput
	}
	tc.Logging.NoColor = noColor

	tc.Metrics.Textfile = cfg.MetricsFile

	if cfg.TraceExporter != "" {
		tc.Tracing.Exporter = cfg.TraceExporter
	}
	tc.Tracing.File = cfg.TraceFile
	tc.Tracing.Endpoint = cfg.TraceEndpoint

	return tc
}

func newConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the configuration",
	}

	cmd.AddCommand(newConfigShowCommand())
	cmd.AddCommand(newConfigValidateCommand())

	return cmd
}

func newConfigShowCommand() *cobra.Command {
	var defaults bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Long: `Print the effective configuration as YAML.

Values from the --config file are merged over the built-in defaults. Use
--defaults to print the built-in configuration as a starting point for
your own file.`,
		Example: `  # Show the effective configuration
  froyodesk config show --config desk.yaml

  # Write the defaults to a file to edit
  froyodesk config show --defaults > desk.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if defaults {
				_, err := cmd.OutOrStdout().Write(config.DefaultYAML())
				return err
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			data, err := config.Marshal(cfg)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd.Flags().BoolVar(&defaults, "defaults", false, "print the built-in defaults")

	return cmd
}

func newConfigValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "validate",
		Short:   "Validate the configuration file",
		Example: `  froyodesk config validate --config desk.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := loadConfig(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "configuration is valid")
			return nil
		},
	}
}
