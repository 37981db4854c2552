package skypedata

import (
	"fmt"
	"strings"
)

// Conversations returns every chat in the database with its participant
// list attached, ordered by last activity. Results are cached until
// ClearCache.
func (d *Database) Conversations() ([]*Conversation, error) {
	d.cacheMu.Lock()
	cached := d.convCache
	d.cacheMu.Unlock()
	if cached != nil {
		return cached, nil
	}
	if !d.HasTable("conversations") {
		return nil, nil
	}

	participants, err := d.participantsByChat()
	if err != nil {
		return nil, err
	}

	rows, err := d.queryRows(d.db,
		"SELECT * FROM conversations WHERE displayname IS NOT NULL "+
			"ORDER BY last_activity_timestamp DESC")
	if err != nil {
		return nil, err
	}
	convs := make([]*Conversation, 0, len(rows))
	for _, row := range rows {
		c := conversationFromRow(row)
		c.Participants = participants[c.ID]
		convs = append(convs, c)
	}

	d.cacheMu.Lock()
	d.convCache = convs
	d.cacheMu.Unlock()
	return convs, nil
}

func conversationFromRow(row Row) *Conversation {
	return &Conversation{
		ID:                    rowInt(row, "id"),
		Identity:              rowString(row, "identity"),
		Type:                  rowInt(row, "type"),
		DisplayName:           rowString(row, "displayname"),
		MetaTopic:             rowString(row, "meta_topic"),
		CreationTimestamp:     rowInt(row, "creation_timestamp"),
		LastActivityTimestamp: rowInt(row, "last_activity_timestamp"),
		Raw:                   row,
	}
}

// participantsByChat loads every participant row grouped by convo_id,
// with contact rows resolved (or stubbed for unknown identities).
func (d *Database) participantsByChat() (map[int64][]*Participant, error) {
	if !d.HasTable("participants") {
		return nil, nil
	}
	contacts, err := d.contactsByIdentity()
	if err != nil {
		return nil, err
	}
	rows, err := d.queryRows(d.db, "SELECT * FROM participants")
	if err != nil {
		return nil, err
	}
	byChat := make(map[int64][]*Participant)
	for _, row := range rows {
		p := &Participant{
			ID:       rowInt(row, "id"),
			ConvoID:  rowInt(row, "convo_id"),
			Identity: rowString(row, "identity"),
			Rank:     rowInt(row, "rank"),
			Raw:      row,
		}
		switch {
		case d.account != nil && p.Identity == d.account.Identity:
			p.Contact = &Contact{ID: d.account.ID, Identity: d.account.Identity, Name: d.account.Name, Raw: d.account.Raw}
		case contacts[p.Identity] != nil:
			p.Contact = contacts[p.Identity]
		default:
			// No Contacts row: fabricate a stub so display code has a name.
			p.Contact = &Contact{Identity: p.Identity, Name: p.Identity}
		}
		byChat[p.ConvoID] = append(byChat[p.ConvoID], p)
	}
	return byChat, nil
}

// Contacts returns the address book, keyed order preserved from the
// table. Cached until ClearCache.
func (d *Database) Contacts() ([]*Contact, error) {
	rows, err := d.TableRows("contacts")
	if err != nil {
		return nil, err
	}
	contacts := make([]*Contact, 0, len(rows))
	for _, row := range rows {
		contacts = append(contacts, contactFromRow(row))
	}
	return contacts, nil
}

func (d *Database) contactsByIdentity() (map[string]*Contact, error) {
	contacts, err := d.Contacts()
	if err != nil {
		return nil, err
	}
	m := make(map[string]*Contact, len(contacts))
	for _, c := range contacts {
		m[c.Identity] = c
	}
	return m, nil
}

func contactFromRow(row Row) *Contact {
	c := &Contact{
		ID:       rowInt(row, "id"),
		Identity: rowString(row, "skypename"),
		Raw:      row,
	}
	for _, col := range []string{"fullname", "displayname", "skypename"} {
		if c.Name = rowString(row, col); c.Name != "" {
			break
		}
	}
	return c
}

// ContactGroups returns the non-empty contact groups.
func (d *Database) ContactGroups() ([]*ContactGroup, error) {
	rows, err := d.TableRows("contactgroups")
	if err != nil {
		return nil, err
	}
	var groups []*ContactGroup
	for _, row := range rows {
		g := &ContactGroup{
			ID:      rowInt(row, "id"),
			Name:    rowString(row, "given_displayname"),
			Members: rowString(row, "members"),
			Raw:     row,
		}
		if g.Name == "" || strings.TrimSpace(g.Members) == "" {
			continue
		}
		groups = append(groups, g)
	}
	return groups, nil
}

// Messages returns all messages of one chat in ascending timestamp order.
// Not cached: message sets are the bulk of the data and each chat is
// visited once per scan.
func (d *Database) Messages(conv *Conversation) ([]*Message, error) {
	if !d.HasTable("messages") {
		return nil, nil
	}
	rows, err := d.queryRows(d.db,
		"SELECT * FROM messages WHERE convo_id = ? ORDER BY timestamp, id", conv.ID)
	if err != nil {
		return nil, err
	}
	msgs := make([]*Message, 0, len(rows))
	for _, row := range rows {
		msgs = append(msgs, messageFromRow(row))
	}
	return msgs, nil
}

func messageFromRow(row Row) *Message {
	return &Message{
		ID:              rowInt(row, "id"),
		ChatName:        rowString(row, "chatname"),
		ConvoID:         rowInt(row, "convo_id"),
		Author:          rowString(row, "author"),
		FromDispname:    rowString(row, "from_dispname"),
		Timestamp:       rowInt(row, "timestamp"),
		Type:            rowInt(row, "type"),
		RemoteID:        rowInt(row, "remote_id"),
		Identities:      rowString(row, "identities"),
		BodyXML:         rowString(row, "body_xml"),
		GUID:            rowBytes(row, "guid"),
		EditedTimestamp: rowInt(row, "edited_timestamp"),
		Raw:             row,
	}
}

// ConversationStats fills message-count and first/last timestamp
// statistics for the given chats. Only history message types count.
func (d *Database) ConversationStats(convs []*Conversation) error {
	if !d.HasTable("messages") || len(convs) == 0 {
		return nil
	}
	types := make([]string, len(historyMessageTypes))
	args := make([]any, 0, len(historyMessageTypes)+len(convs))
	for i, t := range historyMessageTypes {
		types[i] = "?"
		args = append(args, t)
	}
	ids := make([]string, len(convs))
	for i, c := range convs {
		ids[i] = "?"
		args = append(args, c.ID)
	}
	rows, err := d.queryRows(d.db, fmt.Sprintf(
		"SELECT convo_id AS id, COUNT(*) AS message_count, "+
			"MIN(timestamp) AS first_message_timestamp, "+
			"MAX(timestamp) AS last_message_timestamp "+
			"FROM messages WHERE type IN (%s) AND convo_id IN (%s) "+
			"GROUP BY convo_id",
		strings.Join(types, ", "), strings.Join(ids, ", ")), args...)
	if err != nil {
		return err
	}
	stats := make(map[int64]Row, len(rows))
	for _, row := range rows {
		stats[rowInt(row, "id")] = row
	}
	for _, c := range convs {
		if row, ok := stats[c.ID]; ok {
			c.MessageCount = rowInt(row, "message_count")
			c.FirstMessageTimestamp = rowInt(row, "first_message_timestamp")
			c.LastMessageTimestamp = rowInt(row, "last_message_timestamp")
		} else {
			c.MessageCount = 0
			c.FirstMessageTimestamp = 0
			c.LastMessageTimestamp = 0
		}
	}
	return nil
}

// TransfersForMessage returns the file-transfer rows dependent on the
// message, matched by chatmsg_guid and ordered by chatmsg_index. Absent
// dependents are not an error.
func (d *Database) TransfersForMessage(m *Message) ([]*Transfer, error) {
	if !d.HasTable("transfers") || len(m.GUID) == 0 {
		return nil, nil
	}
	rows, err := d.queryRows(d.db,
		"SELECT * FROM transfers WHERE chatmsg_guid = ? ORDER BY chatmsg_index", m.GUID)
	if err != nil {
		return nil, err
	}
	transfers := make([]*Transfer, 0, len(rows))
	for _, row := range rows {
		transfers = append(transfers, &Transfer{
			ID:            rowInt(row, "id"),
			ChatmsgGUID:   rowBytes(row, "chatmsg_guid"),
			ChatmsgIndex:  rowInt(row, "chatmsg_index"),
			ConvoID:       rowInt(row, "convo_id"),
			PartnerHandle: rowString(row, "partner_handle"),
			Raw:           row,
		})
	}
	return transfers, nil
}

// SMSesForMessage returns the SMS rows dependent on the message, matched
// by chatmsg_id. Absent dependents are not an error.
func (d *Database) SMSesForMessage(m *Message) ([]*SMS, error) {
	if !d.HasTable("smses") {
		return nil, nil
	}
	rows, err := d.queryRows(d.db, "SELECT * FROM smses WHERE chatmsg_id = ?", m.ID)
	if err != nil {
		return nil, err
	}
	smses := make([]*SMS, 0, len(rows))
	for _, row := range rows {
		smses = append(smses, &SMS{
			ID:        rowInt(row, "id"),
			ChatmsgID: rowInt(row, "chatmsg_id"),
			Raw:       row,
		})
	}
	return smses, nil
}

// ChatRowsForConversation returns the legacy Chats rows linked to the
// conversation via conv_dbid.
func (d *Database) ChatRowsForConversation(conv *Conversation) ([]*ChatRow, error) {
	if !d.HasTable("chats") {
		return nil, nil
	}
	rows, err := d.queryRows(d.db, "SELECT * FROM chats WHERE conv_dbid = ?", conv.ID)
	if err != nil {
		return nil, err
	}
	chats := make([]*ChatRow, 0, len(rows))
	for _, row := range rows {
		chats = append(chats, &ChatRow{
			ID:       rowInt(row, "id"),
			Name:     rowString(row, "name"),
			ConvDBID: rowInt(row, "conv_dbid"),
			Raw:      row,
		})
	}
	return chats, nil
}

// ChatRowNames returns the set of Chats.name values present in the file.
func (d *Database) ChatRowNames() (map[string]bool, error) {
	if !d.HasTable("chats") {
		return map[string]bool{}, nil
	}
	rows, err := d.queryRows(d.db, "SELECT name FROM chats")
	if err != nil {
		return nil, err
	}
	names := make(map[string]bool, len(rows))
	for _, row := range rows {
		names[rowString(row, "name")] = true
	}
	return names, nil
}
