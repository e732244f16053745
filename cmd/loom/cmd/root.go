// Package cmd implements the Loom CLI commands.
//
// The command structure follows standard Go CLI patterns with a root command
// that dispatches to subcommands (resolve, run).
package cmd

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/go-drift/loom/cmd/loom/internal/config"
	"github.com/go-drift/loom/cmd/loom/internal/definition"
	"github.com/go-drift/loom/pkg/core"
	"github.com/go-drift/loom/pkg/errors"
)

// Version information set at build time.
var (
	Version   = "0.1.0-dev"
	BuildTime = "unknown"
)

// Command represents a CLI command.
type Command struct {
	Name        string
	Short       string
	Long        string
	Usage       string
	Run         func(args []string) error
	SubCommands []*Command
}

var rootCmd = &Command{
	Name:  "loom",
	Short: "Loom - component definitions and instance lifecycles",
	Long: `Loom declares component types in loom.yaml, resolves their effective
options through the extension chain and runs instances through their
lifecycle.

Use "loom <command> --help" for more information about a command.`,
	Usage: "loom <command> [flags]",
}

// Commands registered with the CLI.
var commands = make(map[string]*Command)

// out receives command output.
var out io.Writer = os.Stdout

// RegisterCommand adds a command to the CLI.
func RegisterCommand(cmd *Command) {
	commands[cmd.Name] = cmd
	rootCmd.SubCommands = append(rootCmd.SubCommands, cmd)
}

// Execute runs the CLI with the process arguments.
func Execute() error {
	return execute(os.Args[1:])
}

func execute(args []string) error {
	if len(args) == 0 {
		printHelp(rootCmd)
		return nil
	}

	// Handle global flags
	var filteredArgs []string
	verbose := false
	for _, arg := range args {
		switch arg {
		case "-h", "--help", "help":
			if len(filteredArgs) == 0 {
				printHelp(rootCmd)
				return nil
			}
			filteredArgs = append(filteredArgs, arg)
		case "-v", "--version", "version":
			if len(filteredArgs) == 0 {
				fmt.Fprintf(out, "Loom CLI version %s (built %s)\n", Version, BuildTime)
				return nil
			}
			filteredArgs = append(filteredArgs, arg)
		case "--verbose":
			verbose = true
		default:
			filteredArgs = append(filteredArgs, arg)
		}
	}
	args = filteredArgs

	if len(args) == 0 {
		printHelp(rootCmd)
		return nil
	}

	if verbose {
		if err := setupVerboseLogging(); err != nil {
			return err
		}
	}

	// Find and execute the command
	cmdName := args[0]
	cmd, ok := commands[cmdName]
	if !ok {
		fmt.Fprintf(os.Stderr, "Error: unknown command %q\n\n", cmdName)
		printHelp(rootCmd)
		return fmt.Errorf("unknown command: %s", cmdName)
	}

	// Check for help flag on subcommand
	cmdArgs := args[1:]
	for _, arg := range cmdArgs {
		if arg == "-h" || arg == "--help" || arg == "help" {
			printCommandHelp(cmd)
			return nil
		}
	}

	return runCommand(cmd, cmdArgs)
}

// runCommand runs cmd, turning a panic into a reported PanicError and a
// command failure.
func runCommand(cmd *Command, args []string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			perr := &errors.PanicError{
				Op:         "loom " + cmd.Name,
				Value:      r,
				StackTrace: errors.CaptureStack(),
			}
			errors.ReportPanic(perr)
			err = perr
		}
	}()
	return cmd.Run(args)
}

// setupVerboseLogging routes core debug logs and diagnostics with stack
// traces to a development logger on stderr.
func setupVerboseLogging() error {
	logger, err := zap.NewDevelopment()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	core.SetLogger(logger.Named("core"))
	errors.SetHandler(&errors.LogHandler{Logger: logger.Named("loom"), Verbose: true})
	return nil
}

func printHelp(cmd *Command) {
	fmt.Fprintln(out, cmd.Long)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Usage:")
	fmt.Fprintf(out, "  %s\n", cmd.Usage)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Commands:")
	for _, sub := range cmd.SubCommands {
		fmt.Fprintf(out, "  %-14s %s\n", sub.Name, sub.Short)
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Flags:")
	fmt.Fprintln(out, "  -h, --help           Show help for a command")
	fmt.Fprintln(out, "  -v, --version        Show version information")
	fmt.Fprintln(out, "  --verbose            Log resolution and lifecycle details to stderr")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Examples:")
	fmt.Fprintln(out, "  loom resolve              Show the resolved options of every component")
	fmt.Fprintln(out, "  loom run counter          Create and mount the counter component")
}

func printCommandHelp(cmd *Command) {
	fmt.Fprintln(out, cmd.Long)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Usage:")
	fmt.Fprintf(out, "  %s\n", cmd.Usage)
}

// loadProject resolves the configuration at file, or the loom.yaml of the
// enclosing Go module when file is empty.
func loadProject(file string) (*config.Resolved, error) {
	if file != "" {
		return config.ResolveFile(file)
	}
	root, err := config.FindProjectRoot()
	if err != nil {
		return nil, fmt.Errorf("not in a Loom project (no go.mod found)")
	}
	cfg, err := config.Resolve(root)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// buildProject declares the project's component types in a fresh Env.
func buildProject(cfg *config.Resolved) (*definition.Set, error) {
	env := core.NewEnv()
	rt := *cfg.Runtime
	env.Config = &rt
	set, err := definition.Build(env, cfg.Components, core.Logger())
	if err != nil {
		return nil, &errors.LoomError{Op: "loom.build", Kind: errors.KindConfig, Err: err}
	}
	return set, nil
}
