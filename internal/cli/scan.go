package cli

import (
	"context"
	"fmt"
	"sort"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/skyhist/skypemerge/internal/merge"
	"github.com/skyhist/skypemerge/internal/skypedata"
	"github.com/spf13/cobra"
)

var scanCmd = &cobra.Command{
	Use:   "scan SOURCE TARGET",
	Short: "Compare two databases without writing anything",
	Long: `Compares every chat of SOURCE against TARGET and reports the messages,
participants and contacts TARGET is missing. Read-only; run it before
merging to see what a merge would copy.`,
	Args: cobra.ExactArgs(2),
	RunE: runScan,
}

var (
	scanTwoWay  bool
	scanVerbose bool
)

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().BoolVar(&scanTwoWay, "two-way", false, "Also report what SOURCE is missing from TARGET")
	scanCmd.Flags().BoolVarP(&scanVerbose, "verbose", "v", false, "Print a unified diff of each chat's history")
}

func runScan(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, c *components) error {
		source, closeSource, err := openDB(args[0], c)
		if err != nil {
			return err
		}
		defer closeSource()
		target, closeTarget, err := openDB(args[1], c)
		if err != nil {
			return err
		}
		defer closeTarget()

		if err := scanDirection(ctx, cmd, c, source, target); err != nil {
			return err
		}
		if scanTwoWay {
			cmd.Println()
			return scanDirection(ctx, cmd, c, target, source)
		}
		return nil
	})
}

func scanDirection(ctx context.Context, cmd *cobra.Command, c *components,
	source, target *skypedata.Database) error {

	cmd.Printf("scanning %s against %s\n", source.Path, target.Path)
	ch, err := c.Coordinator.Scan(ctx, source, target)
	if err != nil {
		return err
	}

	var summary *merge.Summary
	for p := range ch {
		if p.Done {
			summary = p.Summary
			continue
		}
		cmd.Printf("[%d/%d] chat %q: %d messages, %d participants missing from target\n",
			p.ChatIndex, p.ChatCount, p.Chat.Title,
			len(p.Diff.LeftOnly), len(p.Diff.LeftOnlyParticipants))
		if scanVerbose {
			if err := printChatDiff(cmd, p.Diff); err != nil {
				return err
			}
		}
	}
	return reportSummary(cmd, summary, "would merge")
}

// printChatDiff renders the chat's history as a unified diff between
// what the target has and what it would have after the merge.
func printChatDiff(cmd *cobra.Command, diff *merge.ChatDiff) error {
	var have, merged []*skypedata.Message
	have = append(have, diff.RightOnly...)
	merged = append(merged, diff.LeftOnly...)
	merged = append(merged, diff.RightOnly...)
	sortMessages(merged)

	ud := difflib.UnifiedDiff{
		A:        messageLines(have),
		B:        messageLines(merged),
		FromFile: "target",
		ToFile:   "merged",
		Context:  3,
	}
	text, err := difflib.GetUnifiedDiffString(ud)
	if err != nil {
		return fmt.Errorf("render diff: %w", err)
	}
	cmd.Print(text)
	return nil
}

func messageLines(msgs []*skypedata.Message) []string {
	lines := make([]string, 0, len(msgs))
	for _, m := range msgs {
		lines = append(lines, fmt.Sprintf("%d %s: %s\n", m.Timestamp, m.Author, skypedata.BodyText(m)))
	}
	return lines
}

func sortMessages(msgs []*skypedata.Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].Timestamp < msgs[j].Timestamp
	})
}
