package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quailyquaily/morphgate/guard"
	"github.com/quailyquaily/morphgate/internal/clifmt"
	"github.com/quailyquaily/morphgate/llm"
)

// check runs a candidate response through the configured guardrail as if
// an agent had just produced it, so policies can be exercised without a
// host framework.
func newCheckCmd() *cobra.Command {
	var task string

	cmd := &cobra.Command{
		Use:   "check <response text>",
		Short: "Run a response through the guardrail and show the outcome",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := clientFromViper()
			if err != nil {
				return err
			}
			g, err := guardrailFromViper(client)
			if err != nil {
				return err
			}

			messages := []llm.Message{
				{Role: llm.RoleUser, Content: task},
				{Role: llm.RoleAssistant, Content: args[0]},
			}
			out := g.AfterResponse(cmd.Context(), messages)

			last := out[len(out)-1]
			switch {
			case last.Meta[guard.MetaBlocked] == true:
				fmt.Println(clifmt.Error("blocked"))
				fmt.Printf("%s %s\n", clifmt.Dim("substitute:"), last.Content)
				if reason, ok := last.Meta[guard.MetaReason].(string); ok && reason != "" {
					fmt.Printf("%s %s\n", clifmt.Dim("reason:"), reason)
				}
			case last.Meta[guard.MetaWarning] != nil:
				fmt.Println(clifmt.Warn("flagged (logging mode)"))
			default:
				fmt.Println(clifmt.Success("approved"))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&task, "task", "user request", "user turn to provide as conversation context")
	return cmd
}
