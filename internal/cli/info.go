package cli

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info DATABASE",
	Short: "Show a database's account and chat statistics",
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, c *components) error {
		db, closeDB, err := openDB(args[0], c)
		if err != nil {
			return err
		}
		defer closeDB()

		if account := db.Account(); account != nil {
			cmd.Printf("account: %s (%s)\n", account.Name, account.Identity)
		} else {
			cmd.Println("account: none")
		}

		convs, err := db.Conversations()
		if err != nil {
			return err
		}
		if err := db.ConversationStats(convs); err != nil {
			return err
		}
		contacts, err := db.Contacts()
		if err != nil {
			return err
		}
		cmd.Printf("chats: %d, contacts: %d\n\n", len(convs), len(contacts))

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "CHAT\tTYPE\tMESSAGES\tFIRST\tLAST")
		for _, conv := range convs {
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
				conv.Title(), conv.TypeName(), conv.MessageCount,
				formatTimestamp(conv.FirstMessageTimestamp),
				formatTimestamp(conv.LastMessageTimestamp))
		}
		return w.Flush()
	})
}

func formatTimestamp(ts int64) string {
	if ts == 0 {
		return "-"
	}
	return time.Unix(ts, 0).UTC().Format("2006-01-02 15:04")
}
