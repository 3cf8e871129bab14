package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/webform-civicrm/acceptance/internal/config"
	"github.com/webform-civicrm/acceptance/internal/harness"
	"github.com/webform-civicrm/acceptance/internal/scenario"
	"github.com/webform-civicrm/acceptance/internal/suites"
	"github.com/webform-civicrm/acceptance/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "wfcrm-acceptance",
	Short: "Browser acceptance tests for the CiviCRM webform integration",
	Long: `wfcrm-acceptance drives a real browser against a Drupal site with the
webform_civicrm module installed, submits forms and checks the CiviCRM
records they produce.

Configuration is read from acceptance.yaml (., ./config or $WFCRM_CONFIG_DIR),
.env and WFCRM_* environment variables.`,
	Version:       version.String(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

var runCmd = &cobra.Command{
	Use:   "run [scenario...]",
	Short: "Run acceptance scenarios",
	Long: `Run runs every scenario, or only those matching the given names.
A name matches exactly, as a group prefix ("submit-contact" selects
"submit-contact/1".."submit-contact/5") or as a glob ("*-filter").`,
	RunE: runScenarios,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the available scenarios",
	RunE:  runList,
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check configuration and CiviCRM API access",
	RunE:  runCheck,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("wfcrm-acceptance %s\n", version.Full())
	},
}

var (
	reportPathFlag  string
	configDirFlag   string
	stepTimeoutFlag time.Duration
	headedFlag      bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configDirFlag, "config-dir", "", "Directory containing acceptance.yaml")

	runCmd.Flags().StringVar(&reportPathFlag, "report", "", "Write the YAML run report to this path (default runner.report_path)")
	runCmd.Flags().DurationVar(&stepTimeoutFlag, "step-timeout", 0, "Override runner.step_timeout")
	runCmd.Flags().BoolVar(&headedFlag, "headed", false, "Show the browser window")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(versionCmd)
}

func loadConfig() (*config.Config, error) {
	if configDirFlag != "" {
		return config.Load(configDirFlag)
	}
	return config.Get()
}

func runScenarios(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if stepTimeoutFlag > 0 {
		cfg.Runner.StepTimeout = stepTimeoutFlag
	}
	if headedFlag {
		cfg.Browser.Headless = false
	}
	if err := cfg.ValidateCRM(); err != nil {
		return err
	}

	selected := scenario.Select(suites.All(), args)
	if len(selected) == 0 {
		return fmt.Errorf("no scenario matches %s", strings.Join(args, ", "))
	}

	env, err := harness.New(cfg)
	if err != nil {
		return err
	}
	defer env.Close()

	fmt.Printf("🧪 Running %d scenarios against %s\n", len(selected), cfg.BaseURL)
	if err := env.Setup(); err != nil {
		return fmt.Errorf("failed to start browser: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res := scenario.NewRunner(env).RunAll(ctx, selected)

	fmt.Println()
	if err := res.RenderSummary(os.Stdout); err != nil {
		return err
	}

	path := reportPathFlag
	if path == "" {
		path = cfg.Runner.ReportPath
	}
	if path != "" {
		if err := res.WriteYAML(path); err != nil {
			return err
		}
		fmt.Printf("📝 Report written to %s\n", path)
	}

	if !res.OK() {
		return fmt.Errorf("%d of %d scenarios failed", res.FailedScenarios, res.TotalScenarios)
	}
	fmt.Println("✅ All scenarios passed")
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tTAGS\tDESCRIPTION")
	for _, sc := range suites.All() {
		fmt.Fprintf(w, "%s\t%s\t%s\n", sc.Name, strings.Join(sc.Tags, ","), sc.Description)
	}
	return w.Flush()
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	fmt.Printf("🔍 Site: %s\n", cfg.BaseURL)

	if err := cfg.ValidateBrowser(); err != nil {
		fmt.Printf("⚠️  %v\n", err)
	} else {
		fmt.Println("✓ Browser scenarios configured")
	}
	if err := cfg.ValidateCRM(); err != nil {
		return err
	}

	env, err := harness.New(cfg)
	if err != nil {
		return err
	}
	defer env.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.CRM.Timeout)
	defer cancel()
	if err := env.CRM.Ping(ctx); err != nil {
		return fmt.Errorf("CiviCRM API not reachable: %w", err)
	}
	fmt.Println("✓ CiviCRM API reachable")

	styles, err := env.CommunicationStyles(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("✓ Communication styles: %d\n", len(styles))
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}
