package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"kabu-vault/internal/confirmation"
	"kabu-vault/internal/display"
	"kabu-vault/internal/logging"
	"kabu-vault/internal/snapshot"
	"kabu-vault/internal/store"
)

var cfgFile string

// CLI flag variables
var (
	rootDir      string
	databasePath string
	uploadsDir   string

	verbose bool
	quiet   bool
	logFile string

	noColor bool
	noIcons bool
	theme   string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "kabu-vault",
	Short: "Snapshot and restore tooling for the stock research database",
	Long: `kabu-vault protects the application's SQLite database and uploads
directory with timestamped, checksummed snapshots and restores them
safely: a snapshot is fully verified before any live data is touched,
and the previous live state is captured first.

It also derives financial ratios, growth rates and trend signals from
the stored per-ticker fundamentals.

Examples:
  # Take a snapshot of the database and uploads
  kabu-vault backup

  # List existing snapshots
  kabu-vault snapshots list

  # Verify every snapshot's checksums
  kabu-vault snapshots validate

  # Restore a snapshot (prompts for confirmation)
  kabu-vault restore 20250115_031500

  # Prune old snapshots per the retention policy
  kabu-vault snapshots prune --dry-run

  # Analyze stored fundamentals for a ticker
  kabu-vault analyze --ticker 7203`,
	SilenceUsage: true,
}

// Execute runs the CLI. Called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./kabu-vault.yaml or $HOME/.kabu-vault.yaml)")
	rootCmd.PersistentFlags().StringVar(&rootDir, "root", "", "snapshot root directory")
	rootCmd.PersistentFlags().StringVar(&databasePath, "db", "", "path to the live SQLite database")
	rootCmd.PersistentFlags().StringVar(&uploadsDir, "uploads", "", "path to the live uploads directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress non-error output")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "write logs to file in addition to stdout")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable color output")
	rootCmd.PersistentFlags().BoolVar(&noIcons, "no-icons", false, "disable Unicode icons")
	rootCmd.PersistentFlags().StringVar(&theme, "theme", "dark", "color theme (dark, light, plain)")

	viper.BindPFlag("root", rootCmd.PersistentFlags().Lookup("root"))
	viper.BindPFlag("sources.database_path", rootCmd.PersistentFlags().Lookup("db"))
	viper.BindPFlag("sources.uploads_dir", rootCmd.PersistentFlags().Lookup("uploads"))

	rootCmd.AddCommand(newVersionCommand())
	rootCmd.AddCommand(newConfigCommand())
}

// initConfig reads the config file and environment variables
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(".")
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName("kabu-vault")
	}

	viper.SetEnvPrefix("KABU_VAULT")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig merges defaults, config file, environment and flags
func loadConfig() (*snapshot.Config, error) {
	config := snapshot.DefaultConfig()
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if rootDir != "" {
		config.Root = rootDir
	}
	if databasePath != "" {
		config.Sources.DatabasePath = databasePath
	}
	if uploadsDir != "" {
		config.Sources.UploadsDir = uploadsDir
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}

func newLogger() (*logging.Logger, error) {
	level := logging.LogLevelNormal
	switch {
	case verbose && quiet:
		return nil, fmt.Errorf("--verbose and --quiet are mutually exclusive")
	case quiet:
		level = logging.LogLevelQuiet
	case verbose:
		level = logging.LogLevelVerbose
	}

	return logging.NewLogger(logging.Config{
		Level:   level,
		Output:  os.Stderr,
		Format:  "text",
		LogFile: logFile,
	})
}

func newPrinter() *display.Printer {
	selected := theme
	if noColor {
		selected = "plain"
	}
	return display.NewPrinter(display.ThemeByName(selected),
		display.WithIcons(!noIcons),
		display.WithQuiet(quiet),
	)
}

// newManager builds the snapshot manager with all wiring: SQLite
// copy adapter, interactive confirmation and optional offsite target.
func newManager(printer *display.Printer) (*snapshot.Manager, error) {
	config, err := loadConfig()
	if err != nil {
		return nil, err
	}

	logger, err := newLogger()
	if err != nil {
		return nil, err
	}

	opts := []snapshot.ManagerOption{
		snapshot.WithLogger(logger),
		snapshot.WithDatabaseAdapter(store.SQLiteAdapter{}),
		snapshot.WithConfirmer(confirmation.NewService(printer)),
		snapshot.WithVersion(version),
	}

	if config.Offsite.Enabled {
		ctx := rootCmd.Context()
		provider, err := snapshot.NewOffsiteProvider(ctx, config.Offsite)
		if err != nil {
			return nil, fmt.Errorf("failed to configure offsite storage: %w", err)
		}
		if err := provider.HealthCheck(ctx); err != nil {
			return nil, fmt.Errorf("offsite storage %s is unreachable: %w", provider.Name(), err)
		}
		opts = append(opts, snapshot.WithOffsite(provider))
	}

	return snapshot.NewManager(config, opts...)
}

// formatSize renders a byte count for table output
func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// Version information (set by main package)
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

// SetVersionInfo sets the version information from build flags
func SetVersionInfo(v, bt, gc string) {
	version = v
	buildTime = bt
	gitCommit = gc
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("kabu-vault version %s\n", version)
			fmt.Printf("Built: %s\n", buildTime)
			fmt.Printf("Commit: %s\n", gitCommit)
		},
	}
}

func newConfigCommand() *cobra.Command {
	var effective bool

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Generate a sample configuration file",
		Long: `Generate a sample configuration file for use with the --config flag.

With --effective, print the configuration actually in effect after
merging defaults, the config file, environment variables and flags.
Secrets are omitted.

Examples:
  kabu-vault config > kabu-vault.yaml
  kabu-vault config --effective`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !effective {
				fmt.Print(sampleConfig)
				return nil
			}
			config, err := loadConfig()
			if err != nil {
				return err
			}
			out, err := yaml.Marshal(config)
			if err != nil {
				return fmt.Errorf("failed to render configuration: %w", err)
			}
			fmt.Print(string(out))
			return nil
		},
	}
	cmd.Flags().BoolVar(&effective, "effective", false, "print the merged configuration in effect")
	return cmd
}

const sampleConfig = `# kabu-vault configuration file

# Snapshot root directory. Each snapshot is a timestamped
# subdirectory like 20250115_031500/
root: backups

# Live data to snapshot
sources:
  database_path: data/app.db
  uploads_dir: data/uploads

# Pruning of old snapshots, applied after each backup and by
# "kabu-vault snapshots prune"
retention:
  enabled: true
  max_age_days: 30        # delete snapshots older than this (0 = no age limit)
  max_count: 0            # keep at most this many snapshots (0 = no count limit)
  keep_safety: true       # never age out pre-restore safety snapshots

# Compression for the uploads archive (gzip, zstd, lz4, none)
compression:
  algorithm: gzip
  level: 6

# Optional at-rest encryption of snapshot members (AES-256-GCM).
# The passphrase is read from the named environment variable.
encryption:
  enabled: false
  passphrase_env: KABU_VAULT_PASSPHRASE

# Optional replication of completed snapshots to object storage
offsite:
  enabled: false
  provider: s3            # s3, gcs, azure
  s3:
    bucket: ""
    region: ""
    prefix: snapshots/
    endpoint: ""          # set for S3-compatible stores
  gcs:
    bucket: ""
    prefix: snapshots/
    credentials_file: ""
  azure:
    container: ""
    prefix: snapshots/
    account_name: ""
    account_key: ""

# Verification behaviour
validation:
  verify_after_create: true   # re-hash every member right after backup
  integrity_check: true       # run PRAGMA integrity_check after restore

# Environment variables:
# All options can be set with the KABU_VAULT_ prefix, e.g.
#   KABU_VAULT_ROOT=/var/backups/kabu
`
