package skypedata

// Row is one table row as read from the database, keyed by column name.
// Values are whatever the driver produced: int64, string, []byte, float64
// or nil. Inserts write the Raw row of a record so columns the typed
// structs do not model survive a merge unchanged.
type Row map[string]any

// Account is the owner row of one database (table Accounts).
type Account struct {
	ID       int64
	Identity string // skypename
	Name     string // fullname/displayname/skypename fallback
	Raw      Row
}

// Conversation is one chat (table Conversations). Identity is the
// cross-database join key; ID is local and never compared across files.
type Conversation struct {
	ID                    int64
	Identity              string
	Type                  int64
	DisplayName           string
	MetaTopic             string
	CreationTimestamp     int64
	LastActivityTimestamp int64
	Raw                   Row

	// Statistics, filled by ConversationStats.
	MessageCount          int64
	FirstMessageTimestamp int64
	LastMessageTimestamp  int64

	// Participants, filled by Conversations.
	Participants []*Participant
}

// Title returns the derived display title: displayname, else meta_topic,
// else the identity.
func (c *Conversation) Title() string {
	if c.DisplayName != "" {
		return c.DisplayName
	}
	if c.MetaTopic != "" {
		return c.MetaTopic
	}
	return c.Identity
}

// TypeName returns a human-readable chat type.
func (c *Conversation) TypeName() string {
	if name, ok := ChatTypeNames[c.Type]; ok {
		return name
	}
	return "Unknown"
}

// ChatRow is a legacy Chats table row. Messages.chatname refers to
// Chats.name; the Skype client cannot display merged messages without a
// matching Chats entry.
type ChatRow struct {
	ID       int64
	Name     string
	ConvDBID int64
	Raw      Row
}

// Message is one chat event (table Messages). RemoteID is the
// provider-assigned id, zero when absent; it is usable but not unique
// across databases. ID is local.
type Message struct {
	ID              int64
	ChatName        string
	ConvoID         int64
	Author          string
	FromDispname    string
	Timestamp       int64
	Type            int64
	RemoteID        int64
	Identities      string
	BodyXML         string
	GUID            []byte
	EditedTimestamp int64
	Raw             Row
}

// Participant is the membership of one contact identity in one chat
// (table Participants). Matched across databases by (chat identity,
// contact identity) only.
type Participant struct {
	ID       int64
	ConvoID  int64
	Identity string
	Rank     int64
	Raw      Row

	// Contact is the resolved address-book row, or a synthesized stub
	// when the database has no Contacts row for the identity.
	Contact *Contact
}

// Contact is an address-book row (table Contacts), keyed by skypename.
type Contact struct {
	ID       int64
	Identity string
	Name     string
	Raw      Row
}

// Stub reports whether this contact was synthesized for a participant
// with no Contacts row; stubs are never written to a database.
func (c *Contact) Stub() bool { return c.Raw == nil }

// ContactGroup is a named contact group (table ContactGroups), keyed by
// its given_displayname. Members is a space-separated identity list.
type ContactGroup struct {
	ID      int64
	Name    string
	Members string
	Raw     Row
}

// Transfer is a file-transfer row dependent on one message, linked by
// chatmsg_guid (table Transfers).
type Transfer struct {
	ID            int64
	ChatmsgGUID   []byte
	ChatmsgIndex  int64
	ConvoID       int64
	PartnerHandle string
	Raw           Row
}

// SMS is an SMS row dependent on one message, linked by chatmsg_id
// (table SMSes).
type SMS struct {
	ID        int64
	ChatmsgID int64
	Raw       Row
}
