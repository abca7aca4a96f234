package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/venke07/conductor/internal/config"
	"github.com/venke07/conductor/internal/orchestrator"
)

var (
	runMode      string
	runAgents    []string
	runSession   string
	runJSON      bool
	runWithTools bool
	runVerbose   bool
)

var runCmd = &cobra.Command{
	Use:   "run [prompt]",
	Short: "Run a workflow once and print the result",
	Long: `Run a workflow over the prompt.

  --mode sequential  chain --agents in order
  --mode parallel    send the prompt to every agent in --agents
  --mode autonomous  classify and plan, restricted to --agents when given`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cliContext(cmd)
		a, err := loadApp(ctx, func(cfg *config.Config) {
			if runWithTools {
				cfg.Tools.Enabled = true
			}
		})
		if err != nil {
			return err
		}
		defer closeApp(a)

		prompt := strings.Join(args, " ")
		var observer orchestrator.Observer
		if runVerbose {
			observer = func(ev orchestrator.StepEvent) {
				if ev.Type == orchestrator.EventWorkflowCompleted {
					return
				}
				line := fmt.Sprintf("step %d %s: %s", ev.Step, ev.Agent, ev.Type)
				if ev.Error != "" {
					line += " (" + ev.Error + ")"
				}
				fmt.Fprintln(cmd.ErrOrStderr(), line)
			}
		}

		var res *orchestrator.Result
		switch orchestrator.Mode(runMode) {
		case orchestrator.ModeSequential:
			res, err = a.Engine.RunWorkflow(ctx, orchestrator.WorkflowRequest{
				SessionID: runSession, Prompt: prompt, AgentIDs: runAgents, Observer: observer,
			})
		case orchestrator.ModeParallel:
			res, err = a.Engine.RunParallel(ctx, orchestrator.ParallelRequest{
				SessionID: runSession, Prompt: prompt, AgentIDs: runAgents, Observer: observer,
			})
		case orchestrator.ModeAutonomous:
			res, err = a.Engine.RunAutonomous(ctx, orchestrator.AutonomousRequest{
				SessionID: runSession, Prompt: prompt, AvailableAgents: runAgents, Observer: observer,
			})
		default:
			return fmt.Errorf("unknown mode %q (sequential, parallel or autonomous)", runMode)
		}
		if err != nil {
			return err
		}
		return printJSONOrText(cmd, runJSON, res, res.FinalResult)
	},
}

func init() {
	runCmd.Flags().StringVarP(&runMode, "mode", "m", string(orchestrator.ModeAutonomous), "sequential, parallel or autonomous")
	runCmd.Flags().StringSliceVarP(&runAgents, "agents", "a", nil, "agent ids, comma separated")
	runCmd.Flags().StringVar(&runSession, "session", "", "session id, generated when empty")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "print the full result as JSON")
	runCmd.Flags().BoolVar(&runWithTools, "tools", false, "enable tool calls in agent replies")
	runCmd.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "print step progress to stderr")
}
