package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/nathonfowlie/zfr/config"
	"github.com/nathonfowlie/zfr/formatter"
	"github.com/nathonfowlie/zfr/zephyr"
)

// skipConfig marks commands that run without Zephyr credentials.
const skipConfig = "zfr/skip-config"

// app holds the state shared by every command once the configuration has
// been loaded.
type app struct {
	cfgFile string
	cfg     *config.Config
	logger  zerolog.Logger
	printer *formatter.Formatter

	folders zephyr.FolderAPI
	plans   zephyr.PlanAPI
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(&app{}).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "zfr",
		Short: "Manage Zephyr Scale folders and test plans from the command line",
		Long: `zfr is a CLI tool for the Zephyr Scale Server REST API. It creates and
renames folders and creates, reads, updates and deletes test plans,
including their attachments.

Results are printed to stdout as JSON so they can be piped into other tools.`,
		PersistentPreRunE: a.initialize,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default is ~/"+config.DefaultFileName+")")
	flags.String("url", "", "Jira URL used to reach the Zephyr API (env ZFR_URL)")
	flags.String("username", "", "username used to log in to Zephyr Scale (env ZFR_USERNAME)")
	flags.String("password", "", "password used to log in to Zephyr Scale (env ZFR_PASSWORD)")
	flags.String("api-suffix", "", "path of the REST API relative to the Jira URL (default "+zephyr.DefaultAPISuffix+")")
	flags.StringP("output", "o", "json", "output format (json or table)")
	flags.Bool("pretty", false, "indent JSON output")
	flags.String("log-level", "", "log level (debug, info, warn, error)")

	// Add subcommands
	rootCmd.AddCommand(newFolderCmd(a))
	rootCmd.AddCommand(newPlanCmd(a))
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newSelfUpdateCmd(a))

	return rootCmd
}

// initialize loads the configuration and creates the Zephyr managers
func (a *app) initialize(cmd *cobra.Command, args []string) error {
	if cmd.Annotations[skipConfig] == "true" {
		a.logger = setupLogger(config.LoggingConfig{Level: "warn", Format: "console", Color: true})
		return nil
	}

	// Load configuration
	var err error
	a.cfg, err = config.Load(a.cfgFile, cmd.Flags())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Setup logger
	a.logger = setupLogger(a.cfg.Logging)

	format, err := formatter.ParseFormat(a.cfg.Output.Format)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	a.printer = formatter.New(out, format, a.cfg.Output.Pretty || isTerminal(out))

	if a.folders != nil && a.plans != nil {
		return nil
	}

	client, err := zephyr.NewClient(a.cfg.Jira.URL, a.cfg.Jira.Username, a.cfg.Jira.Password, a.logger,
		zephyr.WithAPISuffix(a.cfg.Jira.APISuffix),
		zephyr.WithTimeout(a.cfg.Jira.Timeout),
		zephyr.WithMaxRetries(a.cfg.Jira.MaxRetries),
		zephyr.WithUserAgent("zfr/"+version),
	)
	if err != nil {
		return fmt.Errorf("failed to create Zephyr client: %w", err)
	}

	a.logger.Debug().
		Str("url", a.cfg.Jira.URL).
		Str("api_suffix", a.cfg.Jira.APISuffix).
		Msg("Zephyr client ready")

	a.folders = zephyr.NewFolderManager(client, a.logger)
	a.plans = zephyr.NewPlanManager(client, a.logger)
	return nil
}

// setupLogger configures the zerolog logger
func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	// Set log level
	level := zerolog.InfoLevel
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = zerolog.DebugLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	zerolog.SetGlobalLevel(level)

	// Configure output format
	if cfg.Format == "json" {
		return zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	// Console format
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
		NoColor:    !cfg.Color || !isTerminal(os.Stderr),
	}

	return zerolog.New(output).With().Timestamp().Logger()
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
