// -- cmd/run.go --
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/CharbelDaher34/jarvis/internal/agent"
	"github.com/CharbelDaher34/jarvis/internal/browser"
	"github.com/CharbelDaher34/jarvis/internal/llmclient"
	"github.com/CharbelDaher34/jarvis/internal/notify"
	"github.com/CharbelDaher34/jarvis/internal/observability"
	"github.com/CharbelDaher34/jarvis/internal/orchestrator"
	"github.com/CharbelDaher34/jarvis/internal/resilience"
	"github.com/CharbelDaher34/jarvis/internal/resolver"
)

var runCmd = &cobra.Command{
	Use:   "run \"<task>\"",
	Short: "Execute a natural-language browser task",
	Long: `Runs the plan/act/critique loop against a live browser until the task
completes, fails permanently, or the iteration budget is spent. With
--single the planning and critique roles are skipped and the task goes
straight to the acting role.`,
	Args: cobra.ExactArgs(1),
	RunE: runTask,
}

func init() {
	runCmd.Flags().Bool("headless", true, "run the browser headless")
	runCmd.Flags().Int("max-iterations", 0, "override the plan/act/critique iteration cap")
	runCmd.Flags().Bool("single", false, "single-shot mode: skip planning and critique")
	runCmd.Flags().String("start-url", "", "page to open before the task starts")

	_ = viper.BindPFlag("browser.headless", runCmd.Flags().Lookup("headless"))
	_ = viper.BindPFlag("browser.start_url", runCmd.Flags().Lookup("start-url"))

	rootCmd.AddCommand(runCmd)
}

func runTask(cmd *cobra.Command, args []string) error {
	query := args[0]
	logger := observability.GetLogger()

	if override, _ := cmd.Flags().GetInt("max-iterations"); override > 0 {
		cfg.Agent.MaxIterations = override
	}
	single, _ := cmd.Flags().GetBool("single")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	llm, err := llmclient.NewClient(cfg.LLM, logger)
	if err != nil {
		return fmt.Errorf("failed to build LLM client: %w", err)
	}

	session, err := browser.NewSession(ctx, cfg.Browser, logger)
	if err != nil {
		return fmt.Errorf("failed to launch browser: %w", err)
	}
	defer session.Close()

	if cfg.Browser.StartURL != "" {
		if err := session.Navigate(ctx, cfg.Browser.StartURL); err != nil {
			return fmt.Errorf("failed to open start URL: %w", err)
		}
	}

	retrier, err := resilience.NewRetrier(cfg.Resilience.Retry, resilience.DefaultRetryable(), logger)
	if err != nil {
		return fmt.Errorf("invalid retry configuration: %w", err)
	}
	breaker := resilience.NewCircuitBreaker(cfg.Resilience.Breaker, logger)

	driver := browser.NewDriver(session)
	engine := resolver.NewEngine(driver, resolver.NewCatalog(), cfg.Resilience.Resolver, logger)

	tools := agent.NewToolbox(session, engine, driver, retrier, breaker, cfg.Browser.BlockedDomains, logger)
	planner := agent.NewPlanner(llm, logger)
	actor := agent.NewActor(llm, tools, cfg.Agent.MaxToolCalls, logger)
	critic := agent.NewCritic(llm, logger)

	bus := notify.NewBus(logger)
	bus.Register(consoleListener(cmd))

	orch, err := orchestrator.New(cfg.Agent, logger, bus, planner, actor, critic, session)
	if err != nil {
		return fmt.Errorf("failed to build orchestrator: %w", err)
	}

	var result orchestrator.Result
	if single || !cfg.Agent.MultiAgent {
		result, err = orch.RunSingle(ctx, query)
	} else {
		result, err = orch.Run(ctx, query)
	}
	if err != nil {
		// Best effort: a snapshot of where the run died helps diagnosis.
		if shotErr := session.SaveScreenshot(context.Background(), "jarvis-failure.png"); shotErr != nil {
			logger.Warn("Could not capture failure screenshot", zap.Error(shotErr))
		}
		return fmt.Errorf("task run failed: %w", err)
	}

	logger.Info("Run complete",
		zap.String("run_id", result.RunID),
		zap.Int("iterations", result.Iterations),
		zap.Duration("elapsed", result.Elapsed),
	)
	cmd.Println()
	cmd.Println(result.FinalResponse)
	return nil
}

// consoleListener mirrors progress events onto the command's stdout so the
// operator can follow the run without reading logs.
func consoleListener(cmd *cobra.Command) notify.Listener {
	return func(message string, kind notify.Kind) {
		cmd.Printf("[%s] %s\n", kind, message)
	}
}
