package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	planAgents []string
	planJSON   bool
)

var planCmd = &cobra.Command{
	Use:   "plan [task]",
	Short: "Show the execution plan for a task without running it",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp(cliContext(cmd), nil)
		if err != nil {
			return err
		}
		defer closeApp(a)

		plan, err := a.Engine.PlanTask(strings.Join(args, " "), planAgents)
		if err != nil {
			return err
		}
		var sb strings.Builder
		fmt.Fprintf(&sb, "pattern %s (confidence %.0f%%), ~%d tokens\n", plan.Pattern, plan.Confidence, plan.TokenEstimate)
		for _, s := range plan.Steps {
			fmt.Fprintf(&sb, "%d. %s [%s] <- %s\n", s.Number, s.Agent.ID, strings.Join(s.Capabilities, ", "), s.InputSource)
		}
		return printJSONOrText(cmd, planJSON, plan, strings.TrimRight(sb.String(), "\n"))
	},
}

func init() {
	planCmd.Flags().StringSliceVarP(&planAgents, "agents", "a", nil, "restrict planning to these agent ids")
	planCmd.Flags().BoolVar(&planJSON, "json", false, "print JSON")
}
