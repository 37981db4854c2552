package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/skyhist/skypemerge/internal/app"
	"github.com/skyhist/skypemerge/internal/config"
	"github.com/skyhist/skypemerge/internal/history"
	"github.com/skyhist/skypemerge/internal/merge"
	"github.com/skyhist/skypemerge/internal/skypedata"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// components are the resolved application pieces a command works with.
type components struct {
	Config      *config.Config
	Logger      *zap.Logger
	Journal     *history.Store
	Coordinator *merge.Coordinator
}

// withApp builds the fx application, runs fn against its components and
// tears everything down afterwards.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, c *components) error) error {
	var c components
	fxApp := fx.New(
		app.Module(app.Params{ConfigPath: cmd.Flag("config").Value.String()}),
		fx.NopLogger,
		fx.Populate(&c.Config, &c.Logger, &c.Journal, &c.Coordinator),
	)

	startCtx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
	defer cancel()
	if err := fxApp.Start(startCtx); err != nil {
		return fmt.Errorf("start: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = fxApp.Stop(stopCtx)
	}()

	return fn(cmd.Context(), &c)
}

// openDB opens a Skype database for this command's lifetime.
func openDB(path string, c *components) (*skypedata.Database, func(), error) {
	db, err := skypedata.Open(path, c.Logger)
	if err != nil {
		return nil, nil, err
	}
	db.BackupEnabled = c.Config.BackupEnabled
	db.RegisterConsumer("cli")
	return db, func() { _ = db.UnregisterConsumer("cli") }, nil
}

// reportProgress drains a session's progress stream, printing one line
// per chat, and returns the final summary.
func reportProgress(cmd *cobra.Command, ch <-chan merge.Progress, verb string) *merge.Summary {
	var summary *merge.Summary
	for p := range ch {
		if p.Done {
			summary = p.Summary
			continue
		}
		extra := ""
		if p.Chat.NewChat() && p.Merged == nil {
			extra = " (chat missing from target)"
		} else if p.Merged != nil && p.Merged.NewChat {
			extra = " (new chat created)"
		}
		cmd.Printf("[%d/%d] %s %q: %d messages, %d participants%s\n",
			p.ChatIndex, p.ChatCount, verb, p.Chat.Title,
			len(p.Diff.LeftOnly), len(p.Diff.LeftOnlyParticipants), extra)
	}
	return summary
}

// reportSummary prints the session totals and per-chat errors; it
// returns an error when the session aborted.
func reportSummary(cmd *cobra.Command, summary *merge.Summary, verb string) error {
	if summary == nil {
		return fmt.Errorf("session ended without a summary")
	}
	for _, ce := range summary.Errors {
		cmd.PrintErrf("error in chat %q: %v\n", ce.Title, ce.Err)
	}
	cmd.Printf("%s %d chats: %d messages, %d participants, %d contacts, %d contact groups",
		verb, summary.Chats, summary.Messages, summary.Participants,
		summary.Contacts, summary.ContactGroups)
	if len(summary.Errors) > 0 {
		cmd.Printf(", %d chats failed", len(summary.Errors))
	}
	if summary.Cancelled {
		cmd.Printf(" (cancelled)")
	}
	cmd.Println()
	if summary.Fatal != "" {
		return fmt.Errorf("session aborted: %s", summary.Fatal)
	}
	return nil
}
