package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/relabs-tech/forktilt/internal/app"
	"github.com/relabs-tech/forktilt/internal/config"
)

// DefaultConfigPath is used when neither --config nor FORKTILT_CONFIG is
// given and the file exists.
const DefaultConfigPath = "forktilt.conf"

// resolveConfigPath picks the configuration file in order: --config flag,
// FORKTILT_CONFIG, ./forktilt.conf if present, none (defaults and env only).
func resolveConfigPath(flag string) string {
	if flag != "" {
		return flag
	}
	if p := os.Getenv(config.EnvPrefix + "_CONFIG"); p != "" {
		return p
	}
	if _, err := os.Stat(DefaultConfigPath); err == nil {
		return DefaultConfigPath
	}
	return ""
}

func loadConfig(cmd *cobra.Command, _ []string) error {
	path, _ := cmd.Flags().GetString("config")
	path = resolveConfigPath(path)
	if err := config.InitGlobal(path); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	debug, _ := cmd.Flags().GetBool("debug")
	sim, _ := cmd.Flags().GetBool("sim")
	config.Override(func(c *config.Config) {
		if debug {
			c.LogLevel = log.DebugLevel
		}
		if sim {
			c.UseSim = true
		}
	})

	cfg := config.Get()
	log.SetLevel(cfg.LogLevel)
	if path != "" {
		log.Debugf("config: loaded %s", path)
	}
	return nil
}

func runWith(fn func(context.Context) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		return fn(cmd.Context())
	}
}

func newProduceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "produce",
		Short: "read the tilt sensor and publish readings over MQTT",
		Long: `produce brings up the MPU-6050, updates it every SAMPLE_INTERVAL and
publishes each reading to TOPIC_TILT and each raw burst to TOPIC_IMU_RAW.
Failed updates are logged and nothing is published for that tick.`,
		Example: `  forktilt produce --config=/etc/forktilt.conf
  forktilt produce --sim`,
		RunE: runWith(app.RunTiltProducer),
	}
}

func newConsoleCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "console",
		Short:   "print readings published on the broker",
		Example: `  forktilt console`,
		RunE:    runWith(app.RunConsoleMQTT),
	}
}

func newMockCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mock",
		Short: "run the driver against the simulated device and print readings",
		Long: `mock needs neither hardware nor a broker. The simulated MPU-6050 rocks
the fork ±20° with accelerometer noise and occasional full-scale outliers.`,
		Example: `  forktilt mock
  FORKTILT_FILTER_POLICY=block forktilt mock`,
		RunE: runWith(app.RunMockConsole),
	}
}

func newWebCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "web",
		Short:   "serve the latest reading over HTTP and websocket",
		Example: `  forktilt web`,
		RunE:    runWith(app.RunWeb),
	}
}

func newDisplayCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "display",
		Short:   "show the tilt on an SSD1306 OLED",
		Example: `  forktilt display`,
		RunE:    runWith(app.RunDisplay),
	}
}

func newRegistersCmd() *cobra.Command {
	return &cobra.Command{
		Use:        "registers",
		SuggestFor: []string{"regs", "reg"},
		Short:      "serve the MPU-6050 register debug tool",
		Long: `registers serves a websocket register browser on REGISTER_DEBUG_PORT.
Writes are refused unless REGISTER_DEBUG_ALLOW_WRITES=true.`,
		Example: `  forktilt registers
  FORKTILT_REGISTER_DEBUG_ALLOW_WRITES=true forktilt registers`,
		RunE: runWith(app.RunRegisterDebug),
	}
}

func newSurveyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "survey",
		Short: "measure sensor noise with and without the filter",
		Long: `survey samples the sensor for SURVEY_DURATION seconds while the fork is
held still and writes a JSON report comparing raw and filtered accelerometer
statistics. The report is informative only; no correction is applied.`,
		Example: `  forktilt survey --dir /tmp
  FORKTILT_FILTER_POLICY=block forktilt survey`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir, _ := cmd.Flags().GetString("dir")
			return app.RunSurvey(cmd.Context(), dir)
		},
	}
	cmd.Flags().String("dir", ".", "directory the report is written to")
	return cmd
}

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:        "init",
		SuggestFor: []string{"ini", "in"},
		Short:      "init create a configuration template",
		Long: `init writes the default configuration in KEY=VALUE form.
If --print is present the configuration is printed to stdout instead.
If --yaml is present the printed form is YAML (for review, not loading).
An existing file is only replaced with --yes / -y.`,
		Example: `  forktilt init --print
  forktilt init -o /etc/forktilt.conf -y`,
		// init must work without a readable configuration.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE:              runInit,
	}
	cmd.Flags().Bool("print", false, "print config to stdout")
	cmd.Flags().Bool("yaml", false, "print as YAML")
	cmd.Flags().BoolP("yes", "y", false, "overwrite")
	cmd.Flags().StringP("output", "o", DefaultConfigPath, "output path")
	return cmd
}

func runInit(cmd *cobra.Command, _ []string) error {
	printOnly, _ := cmd.Flags().GetBool("print")
	asYAML, _ := cmd.Flags().GetBool("yaml")
	overwrite, _ := cmd.Flags().GetBool("yes")
	output, _ := cmd.Flags().GetString("output")

	cfg := config.Default()
	if printOnly || asYAML {
		if asYAML {
			b, err := cfg.Dump()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(b)
			return err
		}
		_, err := fmt.Fprint(cmd.OutOrStdout(), cfg.Env())
		return err
	}

	if _, err := os.Stat(output); err == nil && !overwrite {
		return fmt.Errorf("%s already exists, use --yes to overwrite", output)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if err := os.WriteFile(output, []byte(cfg.Env()), 0o644); err != nil {
		return err
	}
	log.Infof("wrote default configuration to %s", output)
	return nil
}

// NewRootCmd builds the forktilt command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "forktilt",
		Short: "forklift fork tilt sensor on an MPU-6050",
		Long: `forktilt reads an MPU-6050 over I2C, filters the accelerometer and
derives the fork tilt angle. Configuration is read from --config,
FORKTILT_CONFIG or ./forktilt.conf, then overridden by FORKTILT_<KEY>
environment variables and finally by command line flags.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: loadConfig,
	}
	root.PersistentFlags().String("config", "", "configuration file path")
	root.PersistentFlags().Bool("debug", false, "toggle debug logging")
	root.PersistentFlags().Bool("sim", false, "use the simulated sensor instead of hardware")

	root.AddCommand(
		newProduceCmd(),
		newConsoleCmd(),
		newMockCmd(),
		newWebCmd(),
		newDisplayCmd(),
		newRegistersCmd(),
		newSurveyCmd(),
		newInitCmd(),
	)
	return root
}

// Execute runs the command tree until it returns or SIGINT/SIGTERM.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		log.Error(err)
		stop()
		os.Exit(1)
	}
}
