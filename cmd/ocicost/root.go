package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/thannaske/ocicost/pkg/db"
	"github.com/thannaske/ocicost/pkg/models"
	"gopkg.in/yaml.v3"
)

// defaultBucket receives the report when no bucket is configured
const defaultBucket = "usage-from-oci"

var (
	cfgFile   string
	logLevel  string
	config    models.Config
	logger    = logrus.New()
	defaultDB = filepath.Join(os.Getenv("HOME"), ".ocicost.db")
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ocicost",
	Short: "OCI cost report to CSV and object storage",
	Long: `Retrieves the cost of an OCI tenancy per region, compartment and product
for a date range (at most 93 days), writes it as a CSV file and uploads
the file to an S3-compatible bucket.

Without date flags the previous calendar month is reported.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	rootCmd.SetArgs(normalizeArgs(os.Args[1:]))
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "settings file (default is $HOME/.ocicost.yaml)")
	rootCmd.PersistentFlags().StringVar(&config.Bucket, "bucket", defaultBucket, "bucket receiving the report")
	rootCmd.PersistentFlags().StringVar(&config.S3Endpoint, "endpoint", "", "S3-compatible endpoint URL (default AWS S3)")
	rootCmd.PersistentFlags().StringVar(&config.S3AccessKey, "access-key", "", "S3 access key")
	rootCmd.PersistentFlags().StringVar(&config.S3SecretKey, "secret-key", "", "S3 secret key")
	rootCmd.PersistentFlags().StringVar(&config.S3Region, "region", "", "S3 region")
	rootCmd.PersistentFlags().StringVar(&config.DBPath, "db", defaultDB, "SQLite run history path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
}

// initConfig reads in the settings file and environment overrides.
func initConfig() {
	logger.SetOutput(os.Stderr)
	if os.Getenv("OCICOST_LOG_LEVEL") != "" && !flagChanged("log-level") {
		logLevel = os.Getenv("OCICOST_LOG_LEVEL")
	}
	if level, err := logrus.ParseLevel(logLevel); err != nil {
		logger.Warnf("unknown log level %q, using info", logLevel)
	} else {
		logger.SetLevel(level)
	}

	path := cfgFile
	if path == "" {
		path = filepath.Join(os.Getenv("HOME"), ".ocicost.yaml")
	}
	settings, err := loadSettings(path)
	switch {
	case err == nil:
		applySettings(settings)
	case cfgFile == "" && errors.Is(err, os.ErrNotExist):
		// no default settings file
	default:
		logger.WithError(err).Warn("ignoring settings file")
	}

	// Environment variables can override config
	if os.Getenv("S3_ENDPOINT") != "" {
		config.S3Endpoint = os.Getenv("S3_ENDPOINT")
	}
	if os.Getenv("S3_ACCESS_KEY") != "" {
		config.S3AccessKey = os.Getenv("S3_ACCESS_KEY")
	}
	if os.Getenv("S3_SECRET_KEY") != "" {
		config.S3SecretKey = os.Getenv("S3_SECRET_KEY")
	}
	if os.Getenv("S3_REGION") != "" {
		config.S3Region = os.Getenv("S3_REGION")
	}
	if os.Getenv("OCICOST_BUCKET") != "" {
		config.Bucket = os.Getenv("OCICOST_BUCKET")
	}
	if os.Getenv("OCICOST_DB_PATH") != "" {
		config.DBPath = os.Getenv("OCICOST_DB_PATH")
	}
}

// loadSettings parses the YAML settings file at path.
func loadSettings(path string) (models.Config, error) {
	var c models.Config
	b, err := os.ReadFile(path)
	if err != nil {
		return c, err
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return c, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	logger.WithField("file", path).Debug("loaded settings")
	return c, nil
}

// applySettings copies file values into config where no flag was given.
func applySettings(s models.Config) {
	set := func(flag string, dst *string, v string) {
		if v != "" && !flagChanged(flag) {
			*dst = v
		}
	}
	set("bucket", &config.Bucket, s.Bucket)
	set("endpoint", &config.S3Endpoint, s.S3Endpoint)
	set("access-key", &config.S3AccessKey, s.S3AccessKey)
	set("secret-key", &config.S3SecretKey, s.S3SecretKey)
	set("region", &config.S3Region, s.S3Region)
	set("db", &config.DBPath, s.DBPath)
	set("proxy", &config.Proxy, s.Proxy)
}

func flagChanged(name string) bool {
	f := rootCmd.Flags().Lookup(name)
	if f == nil {
		f = rootCmd.PersistentFlags().Lookup(name)
	}
	return f != nil && f.Changed
}

// openHistory opens the run history database, or returns nil after a
// warning when it is unavailable.
func openHistory() *db.DB {
	if config.DBPath == "" {
		return nil
	}
	database, err := db.NewDB(config.DBPath)
	if err != nil {
		logger.WithError(err).WithField("db", config.DBPath).Warn("run history unavailable")
		return nil
	}
	if err := database.InitDB(); err != nil {
		logger.WithError(err).WithField("db", config.DBPath).Warn("run history unavailable")
		database.Close()
		return nil
	}
	return database
}
