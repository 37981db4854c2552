package cli

import (
	"context"

	"github.com/skyhist/skypemerge/internal/lock"
	"github.com/skyhist/skypemerge/internal/skypedata"
	"github.com/spf13/cobra"
)

var mergeCmd = &cobra.Command{
	Use:   "merge SOURCE TARGET",
	Short: "Merge SOURCE's missing history into TARGET",
	Long: `Copies the messages, chats, participants and contacts present in SOURCE
but missing from TARGET into TARGET. TARGET is backed up to a .bak
sibling before the first write; SOURCE is never modified. Each chat is
merged in its own transaction, so a failing chat is skipped whole.`,
	Args: cobra.ExactArgs(2),
	RunE: runMerge,
}

var (
	mergeChats    []string
	mergeTwoWay   bool
	mergeNoBackup bool
)

func init() {
	rootCmd.AddCommand(mergeCmd)
	mergeCmd.Flags().StringArrayVar(&mergeChats, "chat", nil, "Merge only the named chat (identity or title); repeatable")
	mergeCmd.Flags().BoolVar(&mergeTwoWay, "two-way", false, "Also merge TARGET's missing history back into SOURCE")
	mergeCmd.Flags().BoolVar(&mergeNoBackup, "no-backup", false, "Skip the .bak backup of the written database")
}

func runMerge(cmd *cobra.Command, args []string) error {
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
		if mergeNoBackup {
			source.BackupEnabled = false
			target.BackupEnabled = false
		}

		targetLock, err := lock.Acquire(target.Path)
		if err != nil {
			return err
		}
		defer func() { _ = targetLock.Release() }()
		if mergeTwoWay {
			sourceLock, err := lock.Acquire(source.Path)
			if err != nil {
				return err
			}
			defer func() { _ = sourceLock.Release() }()
		}

		if err := mergeDirection(ctx, cmd, c, source, target); err != nil {
			return err
		}
		if mergeTwoWay {
			cmd.Println()
			return mergeDirection(ctx, cmd, c, target, source)
		}
		return nil
	})
}

func mergeDirection(ctx context.Context, cmd *cobra.Command, c *components,
	source, target *skypedata.Database) error {

	cmd.Printf("merging %s into %s\n", source.Path, target.Path)
	ch, err := c.Coordinator.Merge(ctx, source, target, mergeChats)
	if err != nil {
		return err
	}
	summary := reportProgress(cmd, ch, "merged chat")
	return reportSummary(cmd, summary, "merged")
}
