// Package cli implements the skypemerge command tree.
package cli

import (
	"context"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "skypemerge",
	Short: "Compare and merge Skype chat history databases",
	Long: `skypemerge compares two Skype main.db files and copies the messages,
chats, participants and contacts missing from one into the other.
Merging only ever adds rows; the target is backed up before the first
write.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// ExecuteContext runs the root command. Cancelling ctx stops a running
// session at the next chat boundary.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to config file (default ~/.skypemerge/config.toml)")
}
