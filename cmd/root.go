package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/s0up4200/youtrackr/admin"
	"github.com/s0up4200/youtrackr/config"
	"github.com/s0up4200/youtrackr/youtrack"
)

// skipConfig marks commands that run without loading configuration
const skipConfig = "skip-config"

var (
	cfgFile  string
	logLevel string
	cfg      *config.Config
	logger   zerolog.Logger
	conn     *youtrack.Connection
	users    *admin.UserManagement
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "youtrackr",
	Short: "A command line client for the YouTrack REST API",
	Long: `youtrackr talks to a YouTrack server over its REST API. It logs in with
the configured account and can look up and create users, list saved
searches, probe resources and upload files.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: initializeApp,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override logging.level (trace, debug, info, warn, error)")

	// Add subcommands
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(userCmd)
	rootCmd.AddCommand(probeCmd)
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(updateCmd)
}

// initializeApp loads configuration, sets up logging and opens the YouTrack session
func initializeApp(cmd *cobra.Command, args []string) error {
	if _, ok := cmd.Annotations[skipConfig]; ok {
		logger = setupLogger(config.LoggingConfig{Level: logLevel, Format: "console", Color: true})
		return nil
	}

	// Load configuration
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Override log level from command line if specified
	if cmd.Flags().Changed("log-level") {
		cfg.Logging.Level = logLevel
	}

	// Setup logger
	logger = setupLogger(cfg.Logging)

	conn, err = youtrack.NewConnection(
		cfg.YouTrack.Host,
		cfg.YouTrack.Port,
		cfg.YouTrack.UseSSL,
		cfg.YouTrack.Path,
		logger,
		connectionOptions(cfg.YouTrack)...,
	)
	if err != nil {
		return fmt.Errorf("failed to create YouTrack connection: %w", err)
	}

	if cfg.YouTrack.HasCredentials() {
		if err := conn.Authenticate(cmd.Context(), cfg.YouTrack.Username, cfg.YouTrack.Password); err != nil {
			return fmt.Errorf("failed to log in as %s: %w", cfg.YouTrack.Username, err)
		}
		logger.Debug().Str("username", conn.Username()).Msg("Logged in")
	} else {
		logger.Debug().Msg("No credentials configured, continuing anonymously")
	}

	users = admin.NewUserManagement(conn, logger)

	return nil
}

// connectionOptions translates configuration into connection options
func connectionOptions(c config.YouTrackConfig) []youtrack.Option {
	opts := []youtrack.Option{
		youtrack.WithUserAgent("youtrackr/" + version),
	}
	if c.Timeout > 0 {
		opts = append(opts, youtrack.WithTimeout(c.Timeout))
	}
	if c.InsecureSkipVerify {
		opts = append(opts, youtrack.WithInsecureSkipVerify())
	}
	return opts
}

// parseLevel maps a configured level name to a zerolog level, defaulting to info
func parseLevel(name string) zerolog.Level {
	switch strings.ToLower(name) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// setupLogger configures the zerolog logger
func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	// Configure output format
	if cfg.Format == "json" {
		return zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	// Console format, colour only when stderr is a terminal
	fd := os.Stderr.Fd()
	tty := isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
		NoColor:    !cfg.Color || !tty,
	}

	return zerolog.New(output).With().Timestamp().Logger()
}

// requireLogin fails commands that cannot work anonymously
func requireLogin() error {
	if !conn.IsAuthenticated() {
		return fmt.Errorf("this command needs youtrack.username and youtrack.password to be configured")
	}
	return nil
}
