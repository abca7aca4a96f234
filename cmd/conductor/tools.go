package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/venke07/conductor/internal/config"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "Inspect and run agent tools",
}

var toolsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the tools agents may call",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp(cliContext(cmd), enableTools)
		if err != nil {
			return err
		}
		defer closeApp(a)

		for _, t := range a.Tools.Registry().Tools() {
			fmt.Fprintf(cmd.OutOrStdout(), "%-18s %s\n", t.ID, t.Description)
		}
		return nil
	},
}

var toolsExecJSON bool

var toolsExecCmd = &cobra.Command{
	Use:   "exec [text]",
	Short: "Execute the tool calls embedded in text, or in stdin when no text is given",
	RunE: func(cmd *cobra.Command, args []string) error {
		text := strings.Join(args, " ")
		if text == "" {
			data, err := io.ReadAll(os.Stdin)
			if err != nil {
				return err
			}
			text = string(data)
		}
		ctx := cliContext(cmd)
		a, err := loadApp(ctx, enableTools)
		if err != nil {
			return err
		}
		defer closeApp(a)

		exec := a.Tools.Execute(ctx, text)
		return printJSONOrText(cmd, toolsExecJSON, exec, exec.Text)
	},
}

func enableTools(cfg *config.Config) {
	cfg.Tools.Enabled = true
}

func init() {
	toolsExecCmd.Flags().BoolVar(&toolsExecJSON, "json", false, "print calls and results as JSON")
	toolsCmd.AddCommand(toolsListCmd)
	toolsCmd.AddCommand(toolsExecCmd)
}
