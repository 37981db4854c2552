package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past scan and merge sessions",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

var (
	historyLimit  int
	historyErrors string
)

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of sessions to list")
	historyCmd.Flags().StringVar(&historyErrors, "errors", "", "Show the chat errors of the given session id")
}

func runHistory(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, c *components) error {
		if historyErrors != "" {
			id, err := uuid.Parse(historyErrors)
			if err != nil {
				return fmt.Errorf("parse session id: %w", err)
			}
			errs, err := c.Journal.Errors(id)
			if err != nil {
				return err
			}
			if len(errs) == 0 {
				cmd.Println("no chat errors recorded")
				return nil
			}
			for _, se := range errs {
				cmd.Printf("chat %q (%s): %s\n", se.ChatTitle, se.ChatIdentity, se.Error)
			}
			return nil
		}

		sessions, err := c.Journal.Sessions(historyLimit)
		if err != nil {
			return err
		}
		if len(sessions) == 0 {
			cmd.Println("no sessions recorded")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "STARTED\tKIND\tSOURCE\tTARGET\tCHATS\tMESSAGES\tSTATUS\tID")
		for _, s := range sessions {
			status := "ok"
			switch {
			case s.FinishedAt.IsZero():
				status = "running"
			case s.Error != "":
				status = "aborted"
			case s.Cancelled:
				status = "cancelled"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
				s.StartedAt.UTC().Format("2006-01-02 15:04"), s.Kind,
				s.Source, s.Target, s.Chats, s.Messages, status, s.ID)
		}
		return w.Flush()
	})
}
