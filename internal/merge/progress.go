package merge

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/skyhist/skypemerge/internal/skypedata"
)

// ChatPair is the same logical chat as seen by the two databases, joined
// on the cross-database identity string. Either side may be nil when the
// chat exists only in one file.
type ChatPair struct {
	Identity string
	Title    string
	Left     *skypedata.Conversation
	Right    *skypedata.Conversation
}

// NewChat reports whether the chat is absent from the right side.
func (p *ChatPair) NewChat() bool { return p.Right == nil }

// ChatDiff is the per-chat reconciliation result. LeftOnly holds
// messages present in the left database with no equivalent on the right,
// and vice versa; both are ordered by ascending timestamp. Participants
// are diffed by contact identity alone.
type ChatDiff struct {
	Chat *ChatPair

	LeftOnly  []*skypedata.Message
	RightOnly []*skypedata.Message

	LeftOnlyParticipants  []*skypedata.Participant
	RightOnlyParticipants []*skypedata.Participant
}

// Empty reports whether the two sides agree on this chat.
func (d *ChatDiff) Empty() bool {
	return len(d.LeftOnly) == 0 && len(d.RightOnly) == 0 &&
		len(d.LeftOnlyParticipants) == 0 && len(d.RightOnlyParticipants) == 0
}

// RightComplete reports whether the right database already holds
// everything the left has for this chat. Such a chat still shows up in
// a scan when the left side lags behind, but a left-to-right merge has
// nothing to write for it.
func (d *ChatDiff) RightComplete() bool {
	return len(d.LeftOnly) == 0 && len(d.LeftOnlyParticipants) == 0
}

// DiffError marks a chat whose rows could not be compared. The chat is
// skipped and the session continues.
type DiffError struct {
	ChatIdentity string
	Err          error
}

func (e *DiffError) Error() string {
	return fmt.Sprintf("diff of chat %s failed: %v", e.ChatIdentity, e.Err)
}

func (e *DiffError) Unwrap() error { return e.Err }

// ChatError records one chat that failed during a session.
type ChatError struct {
	Identity string
	Title    string
	Err      error
}

func (e ChatError) Error() string {
	return fmt.Sprintf("chat %q: %v", e.Title, e.Err)
}

// ChatMergeResult summarizes the writes for one merged chat.
type ChatMergeResult struct {
	ConvoID      int64
	NewChat      bool
	Messages     int
	Participants int
	Contacts     int
}

// Summary is the terminal accounting of one scan or merge session.
type Summary struct {
	Chats         int
	Messages      int
	Participants  int
	Contacts      int
	ContactGroups int
	Errors        []ChatError
	Cancelled     bool
	// Fatal is set when the session aborted before finishing, for
	// example on a backup failure. Per-chat failures go to Errors.
	Fatal string
}

// Progress is one event on a session's stream. Per-chat events carry
// Diff (scan) or Merged (merge); the terminal event has Done set and
// carries the Summary. Events arrive in the order chats were processed.
type Progress struct {
	SessionID uuid.UUID
	ChatIndex int
	ChatCount int

	Chat   *ChatPair
	Diff   *ChatDiff
	Merged *ChatMergeResult

	Done    bool
	Summary *Summary
}
