package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/quailyquaily/morphgate/internal/clifmt"
	"github.com/quailyquaily/morphgate/review"
)

func newReviewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "review",
		Short: "Submit and inspect review tasks",
	}
	cmd.AddCommand(newReviewSubmitCmd())
	cmd.AddCommand(newReviewStatusCmd())
	cmd.AddCommand(newReviewWaitCmd())
	return cmd
}

func newReviewSubmitCmd() *cobra.Command {
	var (
		argsJSON     string
		metadataJSON string
		doc          string
		wait         bool
	)

	cmd := &cobra.Command{
		Use:   "submit <function_name>",
		Short: "Create a review task and print the verdict",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := clientFromViper()
			if err != nil {
				return err
			}

			task := review.Task{FunctionName: strings.TrimSpace(args[0]), Doc: doc}
			if strings.TrimSpace(argsJSON) != "" {
				if err := json.Unmarshal([]byte(argsJSON), &task.Args); err != nil {
					return fmt.Errorf("invalid --args: %w", err)
				}
			}
			if strings.TrimSpace(metadataJSON) != "" {
				if err := json.Unmarshal([]byte(metadataJSON), &task.Metadata); err != nil {
					return fmt.Errorf("invalid --metadata: %w", err)
				}
			}

			ctx := cmd.Context()
			v, err := client.Submit(ctx, task)
			if err != nil {
				return err
			}
			if wait && !v.IsTerminal() {
				v, err = client.Wait(ctx, v.ReviewTaskID, waitOptionsFromViper())
				if err != nil {
					return err
				}
			}
			printVerdict(v)
			return nil
		},
	}

	cmd.Flags().StringVar(&argsJSON, "args", "", "task args as a JSON object")
	cmd.Flags().StringVar(&metadataJSON, "metadata", "", "task metadata as a JSON object")
	cmd.Flags().StringVar(&doc, "doc", "", "human-readable description")
	cmd.Flags().BoolVar(&wait, "wait", false, "poll until the verdict is terminal")
	return cmd
}

func newReviewStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <review_task_id>",
		Short: "Fetch the current verdict for a review task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := clientFromViper()
			if err != nil {
				return err
			}
			v, err := client.Status(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printVerdict(v)
			return nil
		},
	}
}

func newReviewWaitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "wait <review_task_id>",
		Short: "Poll a review task until it reaches a terminal state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := clientFromViper()
			if err != nil {
				return err
			}
			v, err := client.Wait(cmd.Context(), args[0], waitOptionsFromViper())
			if err != nil {
				return err
			}
			printVerdict(v)
			return nil
		},
	}
}

func printVerdict(v review.Verdict) {
	state := string(v.State)
	switch {
	case v.IsApproved():
		state = clifmt.Success(state)
	case v.IsBlocking():
		state = clifmt.Error(state)
	default:
		state = clifmt.Warn(state)
	}
	fmt.Printf("%s %s\n", clifmt.Key(v.ReviewTaskID), state)
	if strings.TrimSpace(v.RequestedChange) != "" {
		fmt.Printf("%s %s\n", clifmt.Dim("requested_change:"), v.RequestedChange)
	}
}
