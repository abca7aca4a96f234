package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var classifyJSON bool

var classifyCmd = &cobra.Command{
	Use:   "classify [text]",
	Short: "Show the intent a text is classified as",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp(cliContext(cmd), nil)
		if err != nil {
			return err
		}
		defer closeApp(a)

		c := a.Engine.Classify(strings.Join(args, " "))
		text := fmt.Sprintf("%s (confidence %.2f)\n%s\nrecommended: %s",
			c.Intent, c.Confidence, c.Description, strings.Join(c.RecommendedAgents, ", "))
		return printJSONOrText(cmd, classifyJSON, c, text)
	},
}

func init() {
	classifyCmd.Flags().BoolVar(&classifyJSON, "json", false, "print JSON")
}
