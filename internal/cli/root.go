package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/regoguard/regoguard/internal/catalog"
	"github.com/regoguard/regoguard/internal/config"
	apperrors "github.com/regoguard/regoguard/internal/pkg/errors"
	"github.com/regoguard/regoguard/internal/pkg/logger"
	"github.com/regoguard/regoguard/internal/policy"
)

var (
	cfgFile      string
	outputFormat string
	catalogPath  string
	policyRoot   string

	cfg     *config.Config
	log     *logger.Logger
	store   *catalog.Store
	toggler *policy.Toggler
)

var rootCmd = &cobra.Command{
	Use:   "regoguard",
	Short: "RegoGuard - IaC security control registry and compliance engine",
	Long: `RegoGuard maintains a catalog of security controls for cloud
infrastructure-as-code, toggles individual controls on and off without
deleting their implementation, evaluates infrastructure change plans
against the enabled controls, and produces aggregated compliance
reports across severity, domain, cloud provider, and external
compliance frameworks.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initApp()
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return appErr.ExitCode
		}
		return apperrors.ExitFailure
	}
	return exitCode
}

// exitCode lets commands signal "ran cleanly, found violations" (2)
// distinctly from failure (1).
var exitCode = apperrors.ExitOK

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default $HOME/.regoguard/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "output format: table, json, yaml")
	rootCmd.PersistentFlags().StringVar(&catalogPath, "catalog", "", "catalog file (overrides config)")
	rootCmd.PersistentFlags().StringVar(&policyRoot, "policy-root", "", "policy tree root (overrides config)")

	_ = viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output"))
	_ = viper.BindPFlag("catalog", rootCmd.PersistentFlags().Lookup("catalog"))
	_ = viper.BindPFlag("policy_root", rootCmd.PersistentFlags().Lookup("policy-root"))

	// Register all subcommands
	rootCmd.AddCommand(newListControlsCmd())
	rootCmd.AddCommand(newControlCmd())
	rootCmd.AddCommand(newEvaluateCmd())
	rootCmd.AddCommand(newReportCmd())
	rootCmd.AddCommand(newComplianceCmd())
	rootCmd.AddCommand(newPlanCmd())
	rootCmd.AddCommand(newStatusCmd())
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			return
		}
		viper.AddConfigPath(home + "/.regoguard")
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("REGOGUARD")
	viper.AutomaticEnv()

	viper.SetDefault("output", "table")

	_ = viper.ReadInConfig()
}

// initApp loads configuration and wires the shared components used by
// most subcommands.
func initApp() error {
	var err error
	cfg, err = config.Load()
	if err != nil {
		return err
	}

	if v := viper.GetString("catalog"); v != "" {
		cfg.Catalog.Path = v
	}
	if v := viper.GetString("policy_root"); v != "" {
		cfg.Policy.Root = v
	}

	log = logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	store = catalog.NewStore(cfg.Catalog.Path, log)
	toggler = policy.NewToggler(store, cfg.Policy.Root, log)
	return nil
}

func getOutputFormat() string {
	if outputFormat != "" && outputFormat != "table" {
		return outputFormat
	}
	return viper.GetString("output")
}
