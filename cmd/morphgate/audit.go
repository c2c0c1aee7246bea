package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/quailyquaily/morphgate/guard"
	"github.com/quailyquaily/morphgate/internal/clifmt"
	"github.com/quailyquaily/morphgate/internal/pathutil"
)

func newAuditCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Show recent review decisions from the SQLite audit trail",
		RunE: func(cmd *cobra.Command, args []string) error {
			dsn := strings.TrimSpace(viper.GetString("audit.sqlite_dsn"))
			if dsn == "" {
				return fmt.Errorf("missing audit.sqlite_dsn")
			}
			sink, err := guard.NewSQLiteAuditSink(pathutil.ExpandHomePath(dsn))
			if err != nil {
				return err
			}
			defer sink.Close()

			events, err := sink.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(events) == 0 {
				fmt.Println(clifmt.Dim("no audit events"))
				return nil
			}
			for _, e := range events {
				state := string(e.State)
				if state == "" {
					state = "-"
				}
				verdict := clifmt.Success(state)
				if e.Blocked {
					verdict = clifmt.Error(state)
				}
				fmt.Printf("%s  %s  %s  %s  %s\n",
					clifmt.Dim(e.Timestamp.Format("2006-01-02 15:04:05")),
					e.Hook, clifmt.Key(e.FunctionName), verdict, e.ReviewTaskID)
				if e.Reason != "" {
					fmt.Printf("    %s %s\n", clifmt.Dim("reason:"), e.Reason)
				}
				if e.Error != "" {
					fmt.Printf("    %s %s\n", clifmt.Dim("error:"), e.Error)
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "maximum number of events to show")
	return cmd
}
