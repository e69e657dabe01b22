package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/grafana/changeset"
	"github.com/grafana/changeset/cli/internal/client"
	"github.com/grafana/changeset/cli/internal/config"
	"github.com/grafana/changeset/cli/internal/output"
	"github.com/grafana/changeset/log"
	"github.com/grafana/changeset/retry"
)

var (
	// Global flags
	repoPath    string
	backend     string
	authorName  string
	authorEmail string
	redisAddr   string
	logLevel    string
	shadow      bool
	jsonOut     bool
	debug       bool
)

var (
	cfg        *config.Config
	csClient   changeset.Client
	closeStore = func() error { return nil }
	zapLogger  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "changeset",
	Short: "Edit named changesets of a repository without touching its checkout",
	Long: `changeset keeps named, durable changesets on top of a git-compatible
object store. Every edit becomes a commit on the changeset's ref; the working
checkout and the index are never modified.

Settings can be provided via flags or environment variables:
  - CHANGESET_REPO:         repository directory or database path
  - CHANGESET_BACKEND:      git, go-git, bolt, badger or redis
  - CHANGESET_AUTHOR_NAME:  author of edits (falls back to GIT_AUTHOR_NAME)
  - CHANGESET_AUTHOR_EMAIL: author email (falls back to GIT_AUTHOR_EMAIL)
  - CHANGESET_SHADOW:       accumulate edits as a pending commit
  - CHANGESET_REDIS_ADDR:   redis server of the redis backend
  - CHANGESET_LOG_LEVEL:    debug, info, warn or error`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return teardown()
	},
}

// Execute runs the root command
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		printError(err)
		_ = teardown()
	}
	return err
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	// Global flags available to all commands
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&repoPath, "repo", "C", "", "Repository directory, or database path for bolt and badger")
	flags.StringVar(&backend, "backend", "", "Object store: git, go-git, bolt, badger or redis")
	flags.StringVar(&authorName, "author", "", "Author name of edits")
	flags.StringVar(&authorEmail, "email", "", "Author email of edits")
	flags.StringVar(&redisAddr, "redis-addr", "", "Redis server address")
	flags.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error")
	flags.BoolVar(&shadow, "shadow", false, "Commit edits to the shadow ref until promoted")
	flags.BoolVar(&jsonOut, "json", false, "Output in JSON format")
	flags.BoolVar(&debug, "debug", false, "Enable debug logging")
}

// setup loads the configuration and opens the store for every command.
func setup(cmd *cobra.Command, args []string) error {
	cfg = config.FromEnvironment()
	mergeFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	var err error
	zapLogger, err = newZapLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	logger := log.NewZapLogger(zapLogger)

	store, closer, err := client.OpenStore(cmd.Context(), cfg)
	if err != nil {
		return fmt.Errorf("open %s store at %s: %w", cfg.Backend, cfg.Repo, err)
	}
	closeStore = closer

	csClient, err = client.New(store, cfg, logger)
	if err != nil {
		return err
	}

	cmd.SetContext(retry.ToContext(cmd.Context(), retry.NewBackoff(retry.WithAttempts(cfg.Retries))))

	logger.Debug("Opened store", "backend", string(cfg.Backend), "repo", cfg.Repo)
	return nil
}

// mergeFlags overrides environment settings with flags given explicitly.
func mergeFlags(cmd *cobra.Command, c *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("repo") {
		c.Repo = repoPath
	}
	if flags.Changed("backend") {
		c.Backend = config.Backend(strings.ToLower(backend))
	}
	if flags.Changed("author") {
		c.AuthorName = authorName
	}
	if flags.Changed("email") {
		c.AuthorEmail = authorEmail
	}
	if flags.Changed("redis-addr") {
		c.Redis.Addr = redisAddr
	}
	if flags.Changed("log-level") {
		c.LogLevel = logLevel
	}
	if flags.Changed("shadow") {
		c.Shadow = shadow
	}
	if flags.Changed("json") {
		c.JSON = jsonOut
	}
	if debug {
		c.LogLevel = "debug"
	}
}

func newZapLogger(level string) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()

	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}
	zc.Level = zap.NewAtomicLevelAt(zapLevel)
	zc.Encoding = "console"
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return zc.Build()
}

func teardown() error {
	if zapLogger != nil {
		_ = zapLogger.Sync()
		zapLogger = nil
	}
	closer := closeStore
	closeStore = func() error { return nil }
	return closer()
}

// formatter returns the output formatter selected by --json
func formatter(cmd *cobra.Command) output.Formatter {
	if cfg != nil && cfg.JSON {
		return output.Get("json", cmd.OutOrStdout())
	}
	return output.Get("human", cmd.OutOrStdout())
}

// printError prints an error to stderr
func printError(err error) {
	if jsonOut || (cfg != nil && cfg.JSON) {
		_ = json.NewEncoder(os.Stderr).Encode(map[string]string{"error": err.Error()})
	} else {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
}
