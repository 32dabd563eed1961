package main

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-arrow/pkg/capability"
	"github.com/ajitpratap0/nebula-arrow/pkg/columnar"
	"github.com/ajitpratap0/nebula-arrow/pkg/config"
	"github.com/ajitpratap0/nebula-arrow/pkg/logger"
)

var version = "0.1.0"

// Output formats accepted by --format.
const (
	formatTable = "table"
	formatJSON  = "json"
)

// app carries the state shared by every subcommand.
type app struct {
	v   *viper.Viper
	out io.Writer
	cfg *config.Config
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := newRootCommand(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand(out io.Writer) *cobra.Command {
	a := &app{v: viper.New(), out: out}
	a.v.SetEnvPrefix("NEBULA_ARROW")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	root := &cobra.Command{
		Use:   "nebula-arrow",
		Short: "nebula-arrow - arrow-backed columnar arrays from the command line",
		Long: `nebula-arrow reads a column of a CSV file into a nullable arrow-backed array
and runs the array's analytics on it: reductions, value counts, ranking,
deduplication and sorting.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.configure()
		},
	}
	root.SetOut(out)

	root.PersistentFlags().String("config", "", "Path to a YAML configuration file")
	root.PersistentFlags().String("format", formatTable, "Output format (table, json)")
	root.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	for _, name := range []string{"config", "format", "log-level"} {
		_ = a.v.BindPFlag(name, root.PersistentFlags().Lookup(name))
	}

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			probe := capability.Current()
			fmt.Fprintf(a.out, "nebula-arrow v%s\n", version)
			fmt.Fprintf(a.out, "arrow-go: %s\n", probe.Version())
			fmt.Fprintf(a.out, "Go version: %s\n", runtime.Version())
			fmt.Fprintf(a.out, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})

	root.AddCommand(
		a.kernelsCommand(),
		a.describeCommand(),
		a.valueCountsCommand(),
		a.rankCommand(),
		a.uniqueCommand(),
		a.sortCommand(),
	)
	return root
}

// configure builds the process configuration from defaults, the optional
// YAML file and the flag or environment overrides, then applies it.
func (a *app) configure() error {
	cfg := config.Default()
	if path := a.v.GetString("config"); path != "" {
		if err := config.Load(path, cfg); err != nil {
			return err
		}
	}
	if level := a.v.GetString("log-level"); level != "" {
		cfg.Logging.Level = level
	}
	switch a.format() {
	case formatTable, formatJSON:
	default:
		return fmt.Errorf("unknown output format %q", a.v.GetString("format"))
	}
	if err := columnar.Configure(cfg); err != nil {
		return err
	}
	a.cfg = cfg

	logger.Get().Debug("configuration loaded",
		zap.String("component", "nebula-arrow-cli"),
		zap.String("config", cfg.String()))
	return nil
}

func (a *app) format() string {
	return strings.ToLower(a.v.GetString("format"))
}
