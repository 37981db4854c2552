package merge

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/skyhist/skypemerge/internal/bus"
	"github.com/skyhist/skypemerge/internal/config"
	"github.com/skyhist/skypemerge/internal/history"
	"github.com/skyhist/skypemerge/internal/skypedata"
	"go.uber.org/zap"
)

// ErrBusy is returned when a scan or merge is requested while another
// run is in flight.
var ErrBusy = errors.New("another session is already running")

// ErrNoScan is returned by MergeScanned when no completed scan for the
// given database pair is held.
var ErrNoScan = errors.New("no completed scan for this database pair")

// ScanResult holds a completed scan's diffs so they can be merged
// without rescanning. Valid only while both databases stay unchanged.
type ScanResult struct {
	SessionID  uuid.UUID
	SourcePath string
	TargetPath string
	Diffs      []*ChatDiff
	Contacts   []*skypedata.Contact
	Groups     []*skypedata.ContactGroup
	Summary    *Summary
}

// Coordinator runs scan and merge sessions over a pair of Skype
// databases: one session at a time, chats in deterministic order,
// progress streamed per chat and published on the event bus. A chat
// that fails is recorded and skipped; only a backup failure aborts the
// whole session.
type Coordinator struct {
	cfg     *config.Config
	bus     *bus.Bus
	journal *history.Store
	differ  *Differ
	writer  *Writer
	machine *Machine
	logger  *zap.Logger

	mu       sync.Mutex
	cancel   context.CancelFunc
	lastScan *ScanResult
}

// NewCoordinator creates a coordinator. journal may be nil, which
// disables session recording.
func NewCoordinator(cfg *config.Config, b *bus.Bus, journal *history.Store, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg == nil {
		cfg = config.Default()
	}
	return &Coordinator{
		cfg:     cfg,
		bus:     b,
		journal: journal,
		differ:  NewDiffer(cfg.MatchWindowSecs, logger),
		writer:  NewWriter(logger),
		machine: NewMachine(b),
		logger:  logger,
	}
}

// State returns the coordinator's current state.
func (c *Coordinator) State() State {
	return c.machine.Current()
}

// LastScan returns the held result of the most recent completed scan,
// or nil.
func (c *Coordinator) LastScan() *ScanResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastScan
}

// invalidateScan drops the held scan if it covers path. The holder is
// about to write to that file, so the diffs no longer describe it.
func (c *Coordinator) invalidateScan(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastScan != nil &&
		(c.lastScan.SourcePath == path || c.lastScan.TargetPath == path) {
		c.lastScan = nil
	}
}

// Cancel requests cooperative cancellation of the running session. The
// session stops at the next chat boundary; a chat mid-merge commits or
// rolls back whole.
func (c *Coordinator) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
	}
}

// Scan diffs every chat of source against target without writing
// anything. It returns a channel of per-chat progress events ending in
// one Done event carrying the summary; the channel closes when the
// session ends.
func (c *Coordinator) Scan(ctx context.Context, source, target *skypedata.Database) (<-chan Progress, error) {
	return c.start(ctx, "scan", source, target, nil, false)
}

// Merge diffs and merges each chat of source into target in one pass.
// chats, when non-empty, restricts the run to the named chats (matched
// by identity or case-insensitive title).
func (c *Coordinator) Merge(ctx context.Context, source, target *skypedata.Database, chats []string) (<-chan Progress, error) {
	return c.start(ctx, "merge", source, target, chats, false)
}

// MergeScanned applies the diffs held from the last completed scan of
// the same database pair, skipping the rescan.
func (c *Coordinator) MergeScanned(ctx context.Context, source, target *skypedata.Database) (<-chan Progress, error) {
	c.mu.Lock()
	scan := c.lastScan
	c.mu.Unlock()
	if scan == nil || scan.SourcePath != source.Path || scan.TargetPath != target.Path {
		return nil, ErrNoScan
	}
	return c.start(ctx, "merge", source, target, nil, true)
}

func (c *Coordinator) start(ctx context.Context, kind string, source, target *skypedata.Database,
	chats []string, fromScan bool) (<-chan Progress, error) {

	c.mu.Lock()
	defer c.mu.Unlock()

	to := Scanning
	if kind == "merge" {
		to = Merging
	}
	if err := c.machine.Transition(to); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBusy, err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	id := uuid.New()
	if c.journal != nil {
		if err := c.journal.BeginSession(id, kind, source.Path, target.Path); err != nil {
			c.logger.Warn("session journal unavailable", zap.Error(err))
		}
	}

	out := make(chan Progress, c.cfg.ProgressBatch)
	go func() {
		defer close(out)
		defer cancel()

		var summary *Summary
		if kind == "scan" {
			summary = c.runScan(runCtx, id, source, target, out)
		} else {
			summary = c.runMerge(runCtx, id, source, target, chats, fromScan, out)
		}

		c.finish(id, kind, summary, out)
	}()
	return out, nil
}

// finish records the session outcome, emits the Done event and returns
// the machine to its rest state.
func (c *Coordinator) finish(id uuid.UUID, kind string, summary *Summary, out chan<- Progress) {
	if c.journal != nil {
		var chatErrs []history.SessionError
		for _, ce := range summary.Errors {
			chatErrs = append(chatErrs, history.SessionError{
				ChatIdentity: ce.Identity,
				ChatTitle:    ce.Title,
				Error:        ce.Err.Error(),
			})
		}
		err := c.journal.FinishSession(id, summary.Chats, summary.Messages,
			summary.Participants, summary.Contacts, summary.ContactGroups,
			summary.Cancelled, summary.Fatal, chatErrs)
		if err != nil {
			c.logger.Warn("session journal unavailable", zap.Error(err))
		}
	}

	out <- Progress{SessionID: id, Done: true, Summary: summary}
	c.publish("merge."+kind+".done", summary)

	c.mu.Lock()
	c.cancel = nil
	c.mu.Unlock()

	rest := Idle
	if kind == "scan" && !summary.Cancelled && summary.Fatal == "" {
		rest = Scanned
	}
	if err := c.machine.Transition(rest); err != nil {
		c.logger.Error("state machine out of sync", zap.Error(err))
	}
	c.logger.Info("session finished",
		zap.String("session", id.String()),
		zap.String("kind", kind),
		zap.Int("chats", summary.Chats),
		zap.Int("messages", summary.Messages),
		zap.Bool("cancelled", summary.Cancelled))
}

func (c *Coordinator) runScan(ctx context.Context, id uuid.UUID, source, target *skypedata.Database,
	out chan<- Progress) *Summary {

	summary := &Summary{}
	result := &ScanResult{SessionID: id, SourcePath: source.Path, TargetPath: target.Path}

	contacts, _, err := c.differ.ContactsDiff(source, target)
	if err != nil {
		summary.Fatal = err.Error()
		return summary
	}
	groups, _, err := c.differ.ContactGroupsDiff(source, target)
	if err != nil {
		summary.Fatal = err.Error()
		return summary
	}
	result.Contacts = contacts
	result.Groups = groups
	summary.Contacts = len(contacts)
	summary.ContactGroups = len(groups)

	pairs, err := c.pairChats(source, target, nil)
	if err != nil {
		summary.Fatal = err.Error()
		return summary
	}

	for i, pair := range pairs {
		if ctx.Err() != nil {
			summary.Cancelled = true
			break
		}
		diff, err := c.differ.ChatDiff(source, target, pair)
		if err != nil {
			summary.Errors = append(summary.Errors, ChatError{Identity: pair.Identity, Title: pair.Title, Err: err})
			continue
		}
		if diff.Empty() {
			continue
		}
		result.Diffs = append(result.Diffs, diff)
		summary.Chats++
		summary.Messages += len(diff.LeftOnly)
		summary.Participants += len(diff.LeftOnlyParticipants)

		p := Progress{SessionID: id, ChatIndex: i + 1, ChatCount: len(pairs), Chat: pair, Diff: diff}
		c.emit(ctx, out, p)
		c.publish("merge.scan.chat", p)
		if summary.Chats%c.cfg.ProgressBatch == 0 {
			c.publish("merge.scan.batch", *summary)
		}
	}

	if !summary.Cancelled && summary.Fatal == "" {
		result.Summary = summary
		c.mu.Lock()
		c.lastScan = result
		c.mu.Unlock()
	}
	return summary
}

func (c *Coordinator) runMerge(ctx context.Context, id uuid.UUID, source, target *skypedata.Database,
	chats []string, fromScan bool, out chan<- Progress) *Summary {

	summary := &Summary{}

	var (
		contacts []*skypedata.Contact
		groups   []*skypedata.ContactGroup
		diffs    []*ChatDiff
		pairs    []*ChatPair
		err      error
	)
	if fromScan {
		c.mu.Lock()
		scan := c.lastScan
		c.lastScan = nil
		c.mu.Unlock()
		contacts, groups, diffs = scan.Contacts, scan.Groups, scan.Diffs
	} else {
		contacts, _, err = c.differ.ContactsDiff(source, target)
		if err != nil {
			summary.Fatal = err.Error()
			return summary
		}
		groups, _, err = c.differ.ContactGroupsDiff(source, target)
		if err != nil {
			summary.Fatal = err.Error()
			return summary
		}
		pairs, err = c.pairChats(source, target, chats)
		if err != nil {
			summary.Fatal = err.Error()
			return summary
		}
	}

	// From here on the target gets written to, so any held scan covering
	// it describes contents about to change and must not be replayed.
	c.invalidateScan(target.Path)

	// The address book goes first so participant rows merged later can
	// reference their contacts. A chat filter skips it: partial merges
	// only pull in the contacts their own participants need.
	if len(chats) == 0 {
		nContacts, nGroups, err := c.writer.MergeAddressBook(source, target, contacts, groups)
		if err != nil {
			summary.Fatal = err.Error()
			return summary
		}
		summary.Contacts += nContacts
		summary.ContactGroups += nGroups
	}

	chatCount := len(pairs)
	if fromScan {
		chatCount = len(diffs)
	}
	mergeOne := func(i int, pair *ChatPair, diff *ChatDiff) bool {
		result, err := c.writer.MergeChat(source, target, diff)
		if err != nil {
			var backupErr *skypedata.BackupError
			if errors.As(err, &backupErr) {
				summary.Fatal = err.Error()
				return false
			}
			summary.Errors = append(summary.Errors, ChatError{Identity: pair.Identity, Title: pair.Title, Err: err})
			return true
		}
		summary.Chats++
		summary.Messages += result.Messages
		summary.Participants += result.Participants
		summary.Contacts += result.Contacts

		p := Progress{SessionID: id, ChatIndex: i + 1, ChatCount: chatCount, Chat: pair, Diff: diff, Merged: result}
		c.emit(ctx, out, p)
		c.publish("merge.merge.chat", p)
		if summary.Chats%c.cfg.ProgressBatch == 0 {
			c.publish("merge.merge.batch", *summary)
		}
		return true
	}

	if fromScan {
		for i, diff := range diffs {
			if ctx.Err() != nil {
				summary.Cancelled = true
				break
			}
			if diff.RightComplete() {
				continue
			}
			if !mergeOne(i, diff.Chat, diff) {
				break
			}
		}
		return summary
	}

	for i, pair := range pairs {
		if ctx.Err() != nil {
			summary.Cancelled = true
			break
		}
		diff, err := c.differ.ChatDiff(source, target, pair)
		if err != nil {
			summary.Errors = append(summary.Errors, ChatError{Identity: pair.Identity, Title: pair.Title, Err: err})
			continue
		}
		if diff.RightComplete() {
			continue
		}
		if !mergeOne(i, pair, diff) {
			break
		}
	}
	return summary
}

// pairChats unions the conversations of both databases by identity and
// orders the pairs by lowercased title, so runs are deterministic and
// progress reads naturally. A chat present in only one file yields a
// pair with the other side nil.
func (c *Coordinator) pairChats(source, target *skypedata.Database, filter []string) ([]*ChatPair, error) {
	sourceConvs, err := source.Conversations()
	if err != nil {
		return nil, err
	}
	targetConvs, err := target.Conversations()
	if err != nil {
		return nil, err
	}
	byIdentity := make(map[string]*skypedata.Conversation, len(targetConvs))
	for _, conv := range targetConvs {
		byIdentity[conv.Identity] = conv
	}

	wanted := make(map[string]bool, len(filter))
	for _, name := range filter {
		wanted[strings.ToLower(name)] = true
	}
	skip := func(p *ChatPair) bool {
		return len(wanted) > 0 &&
			!wanted[strings.ToLower(p.Identity)] && !wanted[strings.ToLower(p.Title)]
	}

	var pairs []*ChatPair
	inSource := make(map[string]bool, len(sourceConvs))
	for _, conv := range sourceConvs {
		inSource[conv.Identity] = true
		pair := &ChatPair{
			Identity: conv.Identity,
			Title:    conv.Title(),
			Left:     conv,
			Right:    byIdentity[conv.Identity],
		}
		if skip(pair) {
			continue
		}
		pairs = append(pairs, pair)
	}
	for _, conv := range targetConvs {
		if inSource[conv.Identity] {
			continue
		}
		pair := &ChatPair{
			Identity: conv.Identity,
			Title:    conv.Title(),
			Right:    conv,
		}
		if skip(pair) {
			continue
		}
		pairs = append(pairs, pair)
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		return strings.ToLower(pairs[i].Title) < strings.ToLower(pairs[j].Title)
	})
	return pairs, nil
}

// emit delivers a progress event to the session's consumer, giving up
// only when the session is cancelled.
func (c *Coordinator) emit(ctx context.Context, out chan<- Progress, p Progress) {
	select {
	case out <- p:
	case <-ctx.Done():
	}
}

func (c *Coordinator) publish(kind string, payload any) {
	if c.bus == nil {
		return
	}
	c.bus.Publish(bus.Event{Kind: kind, Timestamp: time.Now(), Payload: payload})
}
