package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"reactagent/internal/agent"
	"reactagent/internal/audit"
	"reactagent/internal/config"
	"reactagent/internal/observability"
	"reactagent/internal/render"
	"reactagent/internal/tools"
	"reactagent/internal/tui"
)

// errRunFailed maps a failed run to exit code 1 once its report is printed.
var errRunFailed = errors.New("run failed")

var (
	cfgFile    string
	goal       string
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:   "reactagent [goal...]",
	Short: "reactagent pursues a goal with a bounded plan, execute and evaluate loop.",
	Long: `reactagent asks a language model for a plan of tool calls, executes the plan,
asks the model whether the goal is satisfied and replans until it is or the iteration
cap is reached. Without a goal it starts an interactive TUI.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		currentGoal := goal
		if currentGoal == "" && len(args) > 0 {
			currentGoal = strings.Join(args, " ")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		if strings.TrimSpace(currentGoal) != "" {
			return runHeadless(ctx, cmd.OutOrStdout(), currentGoal)
		}
		return runTUI(ctx)
	},
}

// runHeadless performs one run and prints its report.
func runHeadless(ctx context.Context, out io.Writer, currentGoal string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	observability.InitializeLogger(cfg.Logger)
	defer observability.Sync()

	approver := tools.NewPromptApprover(os.Stdin, os.Stderr)
	return executeRun(ctx, out, cfg, approver, observability.GetLogger(), currentGoal, jsonOutput)
}

// executeRun prints and audits every report the controller produces, failed runs included.
func executeRun(ctx context.Context, out io.Writer, cfg *config.Config, approver tools.Approver, logger *zap.Logger, currentGoal string, asJSON bool) error {
	rt, err := newAgentRuntime(ctx, cfg, approver, logger)
	if err != nil {
		return err
	}
	controller, err := rt.controller(nil)
	if err != nil {
		return err
	}

	report, err := controller.Run(ctx, currentGoal)
	if report == nil {
		return err
	}
	if err != nil {
		logger.Debug("Run ended with a failure", zap.String("run_id", report.RunID), zap.Error(err))
	}
	saveReport(ctx, cfg, report, logger)

	if err := printReport(out, report, asJSON); err != nil {
		return err
	}
	return outcomeError(report)
}

// runTUI starts the interactive program. Console logging is disabled so it cannot tear the
// screen; the log file still receives everything.
func runTUI(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	observability.Initialize(cfg.Logger, zapcore.AddSync(io.Discard))
	defer observability.Sync()
	logger := observability.GetLogger()

	bridge := tui.NewBridge()
	rt, err := newAgentRuntime(ctx, cfg, bridge, logger)
	if err != nil {
		return err
	}

	run := func(runCtx context.Context, g string, sink agent.EventSink) (*agent.Report, error) {
		controller, err := rt.controller(sink)
		if err != nil {
			return nil, err
		}
		report, err := controller.Run(runCtx, g)
		if report != nil {
			saveReport(runCtx, cfg, report, logger)
		}
		return report, err
	}

	program := tea.NewProgram(
		tui.NewModel(run, bridge, tui.Options{Goal: goal, Model: rt.client.Model()}),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("error running program: %w", err)
	}
	return nil
}

func printReport(out io.Writer, report *agent.Report, asJSON bool) error {
	if asJSON {
		return writeJSON(out, report)
	}

	rendered, err := render.Terminal(report, 100, "")
	if err != nil {
		rendered = render.Markdown(report)
	}
	fmt.Fprint(out, rendered)
	fmt.Fprintln(out, render.StatusLine(report))
	return nil
}

func saveReport(ctx context.Context, cfg *config.Config, report *agent.Report, logger *zap.Logger) {
	if !cfg.Audit.Enabled {
		return
	}
	store, err := audit.Open(cfg.Audit.Path)
	if err != nil {
		logger.Warn("Could not open audit store", zap.String("path", cfg.Audit.Path), zap.Error(err))
		return
	}
	defer store.Close()
	if err := store.Save(ctx, report); err != nil {
		logger.Warn("Could not save run", zap.String("run_id", report.RunID), zap.Error(err))
		return
	}
	logger.Debug("Run saved", zap.String("run_id", report.RunID), zap.String("path", store.Path()))
}

// outcomeError converts the outcome into the process result. A capped run still exits 0.
func outcomeError(report *agent.Report) error {
	if report.Outcome == agent.OutcomeFailed {
		return errRunFailed
	}
	return nil
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.NewConfigFromViper(viper.GetViper())
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errRunFailed) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "Config file (default is ./.reactagent.yaml or $HOME/.reactagent.yaml)")
	flags.String("model", "", "Model name")
	flags.String("provider", "", "LLM provider: openai, anthropic, gemini or compatible")
	flags.String("api-url", "", "Base URL for the compatible provider")
	flags.Int("max-iterations", 0, "Maximum plan, execute and evaluate cycles")
	flags.String("system-prompt", "", "Path of the system prompt file")
	flags.String("mcp-config", "", "Path of the tool server registry JSON")
	flags.String("workspace", "", "Root directory of the built-in filesystem and shell tools")
	flags.String("log-level", "", "Log level: debug, info, warn or error")
	flags.Bool("audit", false, "Save the run to the audit database")

	rootCmd.Flags().StringVarP(&goal, "goal", "g", "", "Goal to pursue. If empty, starts the interactive TUI.")
	rootCmd.Flags().Bool("auto-approve", false, "Run actions that need confirmation without asking")
	rootCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the report as JSON")

	bindFlag("llm.model", flags.Lookup("model"))
	bindFlag("llm.provider", flags.Lookup("provider"))
	bindFlag("llm.api_url", flags.Lookup("api-url"))
	bindFlag("loop.max_iterations", flags.Lookup("max-iterations"))
	bindFlag("system_prompt", flags.Lookup("system-prompt"))
	bindFlag("mcp_config", flags.Lookup("mcp-config"))
	bindFlag("tools.workspace", flags.Lookup("workspace"))
	bindFlag("logger.level", flags.Lookup("log-level"))
	bindFlag("audit.enabled", flags.Lookup("audit"))
	bindFlag("tools.auto_approve", rootCmd.Flags().Lookup("auto-approve"))

	rootCmd.AddCommand(historyCmd)
}

func bindFlag(key string, flag *pflag.Flag) {
	if err := viper.BindPFlag(key, flag); err != nil {
		panic(fmt.Sprintf("binding flag for %s: %v", key, err))
	}
}

func initConfig() {
	config.SetDefaults(viper.GetViper())
	config.BindEnv(viper.GetViper())

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName(".reactagent")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			fmt.Fprintf(os.Stderr, "Error reading config file: %s\n", err)
			os.Exit(1)
		}
	}
}
