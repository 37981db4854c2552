package merge

import (
	"strings"

	"github.com/skyhist/skypemerge/internal/skypedata"
	"go.uber.org/zap"
)

// Writer copies the records a diff flagged as missing into the target
// database. All writes for one chat happen inside one backup-guarded
// transaction; a failure rolls the chat back without touching chats
// already committed. It never deletes rows and, fed by a fresh diff, is
// idempotent: a second run over merged databases writes nothing.
type Writer struct {
	logger *zap.Logger
}

// NewWriter creates a merge writer.
func NewWriter(logger *zap.Logger) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{logger: logger}
}

// mergeTables are materialized on the target before a chat merge when an
// older export lacks them.
var mergeTables = []string{
	"accounts", "conversations", "chats", "messages", "transfers",
	"smses", "participants", "contacts",
}

// MergeChat writes one chat's diff from source into target: the
// conversation row if absent, new contacts and participants, then the
// missing messages in ascending timestamp order with their dependent
// transfer/SMS rows, and finally the creation-timestamp repair.
func (w *Writer) MergeChat(source, target *skypedata.Database, diff *ChatDiff) (*ChatMergeResult, error) {
	pair := diff.Chat
	result := &ChatMergeResult{NewChat: pair.NewChat()}

	for _, table := range mergeTables {
		if err := target.CreateTable(table); err != nil {
			return nil, err
		}
	}
	if err := target.EnsureBackup(); err != nil {
		return nil, err
	}

	// Target-side reads happen before the write transaction opens.
	chatNames, err := target.ChatRowNames()
	if err != nil {
		return nil, err
	}
	targetContacts, err := target.Contacts()
	if err != nil {
		return nil, err
	}
	knownIdentity := make(map[string]bool, len(targetContacts)+2)
	for _, c := range targetContacts {
		knownIdentity[c.Identity] = true
	}
	for _, id := range []string{source.AccountIdentity(), target.AccountIdentity()} {
		if id != "" {
			knownIdentity[id] = true
		}
	}
	chatRowByName := make(map[string]*skypedata.ChatRow)
	if pair.Left != nil {
		sourceChatRows, err := source.ChatRowsForConversation(pair.Left)
		if err != nil {
			return nil, err
		}
		for _, cr := range sourceChatRows {
			chatRowByName[cr.Name] = cr
		}
	}

	prevAccount := target.Account()
	tx, err := target.Begin()
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
			target.SetAccount(prevAccount)
		}
	}()

	// A target without an account row adopts the source's, so merged
	// history has an owner the client recognizes.
	if target.Account() == nil && source.Account() != nil {
		if err := target.InsertAccount(tx, source.Account()); err != nil {
			return nil, err
		}
	}

	if pair.Right == nil {
		newID, err := target.InsertConversation(tx, pair.Left)
		if err != nil {
			return nil, err
		}
		pair.Right = &skypedata.Conversation{
			ID:                newID,
			Identity:          pair.Left.Identity,
			Type:              pair.Left.Type,
			DisplayName:       pair.Left.DisplayName,
			MetaTopic:         pair.Left.MetaTopic,
			CreationTimestamp: pair.Left.CreationTimestamp,
			Raw:               pair.Left.Raw,
		}
	}
	convoID := pair.Right.ID
	result.ConvoID = convoID

	// Participants may reference contacts the target has never seen;
	// those address-book rows go in first.
	var newContacts []*skypedata.Contact
	for _, p := range diff.LeftOnlyParticipants {
		if p.Contact == nil || p.Contact.Stub() || knownIdentity[p.Identity] {
			continue
		}
		newContacts = append(newContacts, p.Contact)
		knownIdentity[p.Identity] = true
	}
	if err := target.InsertContacts(tx, newContacts); err != nil {
		return nil, err
	}
	result.Contacts = len(newContacts)
	if err := target.InsertParticipants(tx, convoID, diff.LeftOnlyParticipants); err != nil {
		return nil, err
	}
	result.Participants = len(diff.LeftOnlyParticipants)

	// A pair with no left side diffs to an empty LeftOnly set, so the
	// loop below writes nothing for it.
	var earliest int64
	if pair.Left != nil {
		earliest = pair.Left.CreationTimestamp
	}
	for _, m := range diff.LeftOnly {
		newID, err := w.insertMessage(tx, source, target, m, pair, chatNames, chatRowByName)
		if err != nil {
			return nil, err
		}
		if err := w.insertDependents(tx, source, target, m, newID, convoID); err != nil {
			return nil, err
		}
		if earliest == 0 || m.Timestamp < earliest {
			earliest = m.Timestamp
		}
		result.Messages++
	}

	// The client hides messages older than the chat's recorded creation
	// time, so the chat's creation timestamp is lowered to the earliest
	// merged message.
	if earliest != 0 && pair.Right.CreationTimestamp > earliest {
		if err := target.SetConversationCreation(tx, convoID, earliest); err != nil {
			return nil, err
		}
		pair.Right.CreationTimestamp = earliest
	}

	if err := tx.Commit(); err != nil {
		return nil, &skypedata.StorageError{File: target.Path, Err: err}
	}
	committed = true
	target.ClearCache()

	w.logger.Info("chat merged",
		zap.String("chat", pair.Title),
		zap.Int("messages", result.Messages),
		zap.Int("participants", result.Participants),
		zap.Bool("new_chat", result.NewChat),
		zap.String("target", target.Path))
	return result, nil
}

// insertMessage writes one message row. A legacy Chats row referenced by
// Messages.chatname is copied first when the target lacks it; the author
// is rewritten to the target's own account when the source's account
// wrote it, so ownership transfers when merging one's own history.
func (w *Writer) insertMessage(tx skypedata.Execer, source, target *skypedata.Database,
	m *skypedata.Message, pair *ChatPair, chatNames map[string]bool,
	chatRowByName map[string]*skypedata.ChatRow) (int64, error) {

	if m.ChatName != "" && !chatNames[m.ChatName] {
		if cr, ok := chatRowByName[m.ChatName]; ok {
			row := cloneRow(cr.Raw)
			row["conv_dbid"] = pair.Right.ID
			if _, err := target.InsertRow(tx, "chats", row); err != nil {
				return 0, err
			}
			chatNames[m.ChatName] = true
		}
	}

	row := cloneRow(m.Raw)
	row["convo_id"] = pair.Right.ID
	if m.Author != "" && m.Author == source.AccountIdentity() && target.AccountIdentity() != "" {
		row["author"] = target.AccountIdentity()
	}
	return target.InsertRow(tx, "messages", row)
}

// insertDependents copies the transfer/SMS rows owned by a merged
// message, re-keyed to the new message and chat ids. Messages of other
// types have no dependents; absent rows degrade to "no dependents".
func (w *Writer) insertDependents(tx skypedata.Execer, source, target *skypedata.Database,
	m *skypedata.Message, newMsgID, convoID int64) error {

	switch m.Type {
	case skypedata.MessageTypeFile:
		transfers, err := source.TransfersForMessage(m)
		if err != nil {
			return err
		}
		for _, t := range transfers {
			row := cloneRow(t.Raw)
			row["convo_id"] = convoID
			if t.PartnerHandle != "" && t.PartnerHandle == source.AccountIdentity() &&
				target.AccountIdentity() != "" {
				row["partner_handle"] = target.AccountIdentity()
			}
			if _, err := target.InsertRow(tx, "transfers", row); err != nil {
				return err
			}
		}
	case skypedata.MessageTypeSMS:
		smses, err := source.SMSesForMessage(m)
		if err != nil {
			return err
		}
		for _, s := range smses {
			row := cloneRow(s.Raw)
			row["chatmsg_id"] = newMsgID
			if _, err := target.InsertRow(tx, "smses", row); err != nil {
				return err
			}
		}
	}
	return nil
}

// MergeAddressBook copies contacts and contact groups missing from the
// target, pulling in group members the target has never seen. Runs in
// its own transaction, before any chat merge.
func (w *Writer) MergeAddressBook(source, target *skypedata.Database,
	contacts []*skypedata.Contact, groups []*skypedata.ContactGroup) (int, int, error) {

	if len(contacts) == 0 && len(groups) == 0 {
		return 0, 0, nil
	}
	for _, table := range []string{"contacts", "contactgroups"} {
		if err := target.CreateTable(table); err != nil {
			return 0, 0, err
		}
	}
	if err := target.EnsureBackup(); err != nil {
		return 0, 0, err
	}

	known := make(map[string]bool)
	for _, c := range contacts {
		known[c.Identity] = true
	}
	targetContacts, err := target.Contacts()
	if err != nil {
		return 0, 0, err
	}
	for _, c := range targetContacts {
		known[c.Identity] = true
	}
	sourceContacts, err := source.Contacts()
	if err != nil {
		return 0, 0, err
	}
	byIdentity := make(map[string]*skypedata.Contact, len(sourceContacts))
	for _, c := range sourceContacts {
		byIdentity[c.Identity] = c
	}
	// A merged group can list members absent from both the contact diff
	// and the target's address book.
	toInsert := append([]*skypedata.Contact(nil), contacts...)
	for _, g := range groups {
		for _, member := range strings.Fields(g.Members) {
			if known[member] {
				continue
			}
			if c, ok := byIdentity[member]; ok {
				toInsert = append(toInsert, c)
				known[member] = true
			}
		}
	}

	tx, err := target.Begin()
	if err != nil {
		return 0, 0, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := target.InsertContacts(tx, toInsert); err != nil {
		return 0, 0, err
	}
	if err := target.ReplaceContactGroups(tx, groups); err != nil {
		return 0, 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, 0, &skypedata.StorageError{File: target.Path, Err: err}
	}
	committed = true
	target.ClearCache()
	return len(toInsert), len(groups), nil
}

func cloneRow(row skypedata.Row) skypedata.Row {
	out := make(skypedata.Row, len(row))
	for k, v := range row {
		out[k] = v
	}
	return out
}
