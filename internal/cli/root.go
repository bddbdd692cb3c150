package cli

import (
	stdcontext "context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/wrenware/vigil/internal/config"
	"github.com/wrenware/vigil/internal/logging"
)

func NewRootCmd() *cobra.Command {
	root, _ := newRootCommand()
	return root
}

func newRootCommand() (*cobra.Command, *context) {
	ctx := &context{
		configPath: os.Getenv("VIGIL_CONFIG"),
		logLevel:   os.Getenv("VIGIL_LOG_LEVEL"),
		logFormat:  os.Getenv("VIGIL_LOG_FORMAT"),
	}

	root := &cobra.Command{
		Use:   "vigil",
		Short: "Process liveness toolkit",
		Long: "Vigil watches processes and containers for death, dispatches signals,\n" +
			"bounds command lifetimes and tails files until their owner goes away.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return ctx.setup()
		},
	}

	root.PersistentFlags().StringVar(&ctx.configPath, "config", ctx.configPath, "Path to the vigil configuration file")
	root.PersistentFlags().StringVar(&ctx.logLevel, "log-level", ctx.logLevel, "Override log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&ctx.logFormat, "log-format", ctx.logFormat, "Override log format (text, json)")

	root.AddCommand(newFollowCmd(ctx))
	root.AddCommand(newSignalCmd(ctx))
	root.AddCommand(newRunCmd(ctx))
	root.AddCommand(newAwaitCmd(ctx))
	root.AddCommand(newStatusCmd(ctx))
	root.AddCommand(newIdsCmd(ctx))
	root.AddCommand(newServeCmd(ctx))
	root.AddCommand(newTuiCmd(ctx))
	root.AddCommand(newConfigCmd())

	root.SilenceUsage = true
	root.SilenceErrors = true

	return root, ctx
}

// Execute runs the CLI entrypoint.
func Execute() {
	ctx, stop := signal.NotifyContext(stdcontext.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := NewRootCmd()
	root.SetContext(ctx)

	if err := root.ExecuteContext(ctx); err != nil {
		var coded *exitError
		if errors.As(err, &coded) {
			if coded.cause != nil {
				fmt.Fprintln(os.Stderr, coded.cause)
			}
			os.Exit(coded.code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type context struct {
	configPath string
	logLevel   string
	logFormat  string

	mu  sync.Mutex
	cfg *config.Config
}

// setup loads the configuration, applies flag overrides and installs the
// log handler. It runs from PersistentPreRunE before every command.
func (c *context) setup() error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	if c.logLevel != "" {
		cfg.Log.Level = c.logLevel
	}
	if c.logFormat != "" {
		cfg.Log.Format = c.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	c.mu.Lock()
	c.cfg = cfg
	c.mu.Unlock()
	return nil
}

// configuration returns the loaded config, falling back to defaults when a
// command is exercised without going through the root command.
func (c *context) configuration() *config.Config {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cfg == nil {
		c.cfg = config.Default()
	}
	return c.cfg
}

// exitError carries a process exit code through the cobra error path. A nil
// cause exits silently, which run uses to mirror its child's status without
// printing anything.
type exitError struct {
	code  int
	cause error
}

func (e *exitError) Error() string {
	if e.cause != nil {
		return e.cause.Error()
	}
	return fmt.Sprintf("exit code %d", e.code)
}

func (e *exitError) Unwrap() error { return e.cause }

func exitWith(code int, cause error) error {
	return &exitError{code: code, cause: cause}
}

func exitSilently(code int) error {
	return &exitError{code: code}
}

func supportsInteractiveOutput(cmd *cobra.Command) bool {
	file, ok := cmd.OutOrStdout().(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(file.Fd()))
}
