package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/TFMV/dirhunt/internal/logging"
	"github.com/TFMV/dirhunt/internal/pool"
	"github.com/TFMV/dirhunt/internal/protocol"
	"github.com/TFMV/dirhunt/internal/walker"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	cfgFile string
	version = "0.1.0"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "dirhunt [options] [path]",
	Short: "Find dependency folders fast",
	Long: `dirhunt searches a directory tree for folders with a given name
(node_modules by default) using a pool of parallel walkers, and prints every
match as soon as it is found.

Examples:
  dirhunt ~/projects
  dirhunt --target=target --exclude=.git,.cache ~/code
  dirhunt --sizes --format=json .
  dirhunt --sort-by=size --exclude-hidden-directories ~/projects
  dirhunt --older-than=90d --delete --dry-run ~/projects`,
	Version:       version,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := rootArg(args)
		if err != nil {
			return err
		}
		return runScan(cmd.Context(), root, cmd.OutOrStdout(), cmd.ErrOrStderr())
	},
}

// ExecuteContext adds all child commands to the root command and sets flags
// appropriately. Canceling ctx stops a running scan or watch.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default is $HOME/.dirhunt.yaml)")
	rootCmd.PersistentFlags().StringP("target", "t", "node_modules", "Name of the directories to find")
	rootCmd.PersistentFlags().StringSliceP("exclude", "E", nil, "Skip paths containing any of these substrings (comma-separated)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().Bool("silent", false, "Disable all output except results and errors")
	rootCmd.PersistentFlags().Bool("no-color", false, "Disable colored output")

	rootCmd.Flags().IntP("workers", "w", 0, "Number of walkers (0 = one less than the available CPUs)")
	rootCmd.Flags().Int("max-workers", pool.DefaultMaxWorkers, "Upper bound on the number of walkers")
	rootCmd.Flags().Int("max-procs", walker.DefaultMaxProcs, "Directory reads each walker keeps open at once")
	rootCmd.Flags().Bool("sizes", false, "Report size and last modification of every result")
	rootCmd.Flags().String("format", "text", "Output format (text|json)")
	rootCmd.Flags().String("template", "", "Text output template ({}, {base}, {dir}, {size}, {time}, {dangerous})")
	rootCmd.Flags().String("larger-than", "", "Only report results at least this large (e.g. 100MB); implies --sizes")
	rootCmd.Flags().String("older-than", "", "Only report projects untouched for this long (e.g. 30d); implies --sizes")
	rootCmd.Flags().String("sort-by", "", "Print results once the scan ends, sorted by path|size|last-mod; size and last-mod imply --sizes")
	rootCmd.Flags().BoolP("exclude-hidden-directories", "x", false, "Drop results that live in hidden or application directories")
	rootCmd.Flags().BoolP("delete", "D", false, "Delete every reported folder (requires --yes or --dry-run)")
	rootCmd.Flags().BoolP("yes", "y", false, "Confirm --delete without asking")
	rootCmd.Flags().Bool("dry-run", false, "Report what --delete would remove without removing anything")

	for _, name := range []string{"target", "exclude", "verbose", "silent", "no-color"} {
		viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name))
	}
	for _, name := range []string{"workers", "max-workers", "max-procs", "sizes", "format", "template", "larger-than", "older-than",
		"sort-by", "exclude-hidden-directories", "delete", "yes", "dry-run"} {
		viper.BindPFlag(name, rootCmd.Flags().Lookup(name))
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.SetConfigType("yaml")
		viper.SetConfigName(".dirhunt")
	}

	viper.SetEnvPrefix("dirhunt")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && !viper.GetBool("silent") {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func rootArg(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("error getting current directory: %w", err)
	}
	return wd, nil
}

// newLogger builds the logger selected by --verbose/--silent.
func newLogger() *zap.Logger {
	switch {
	case viper.GetBool("verbose"):
		return logging.New(logging.LevelDebug)
	case viper.GetBool("silent"):
		return logging.New(logging.LevelError)
	default:
		return logging.New(logging.LevelWarn)
	}
}

// scanConfig builds the search configuration from flags, env and config file.
func scanConfig(root string) protocol.Config {
	var exclude []string
	for _, e := range viper.GetStringSlice("exclude") {
		if e = strings.TrimSpace(e); e != "" {
			exclude = append(exclude, e)
		}
	}
	return protocol.Config{
		RootPath:   root,
		TargetName: viper.GetString("target"),
		Exclude:    exclude,
	}
}
