package skypedata

import (
	"testing"
)

func TestConversationsOrderAndTitle(t *testing.T) {
	db := testDB(t)
	seedConversation(t, db, Row{"identity": "bob", "displayname": "Bob", "last_activity_timestamp": int64(100)})
	seedConversation(t, db, Row{"identity": "#group/x", "type": int64(2), "displayname": "", "meta_topic": "Weekend plans", "last_activity_timestamp": int64(300)})
	seedConversation(t, db, Row{"identity": "carol", "displayname": "Carol", "last_activity_timestamp": int64(200)})

	convs, err := db.Conversations()
	if err != nil {
		t.Fatal(err)
	}
	if len(convs) != 3 {
		t.Fatalf("conversations = %d, want 3", len(convs))
	}
	// Most recently active first.
	want := []string{"Weekend plans", "Carol", "Bob"}
	for i, conv := range convs {
		if conv.Title() != want[i] {
			t.Errorf("conv[%d].Title() = %q, want %q", i, conv.Title(), want[i])
		}
	}
	if convs[0].TypeName() != "Group" {
		t.Errorf("TypeName() = %q, want Group", convs[0].TypeName())
	}
}

func TestConversationsSkipsUnnamed(t *testing.T) {
	db := testDB(t)
	seedConversation(t, db, Row{"identity": "bob", "displayname": "Bob"})
	// Phantom rows without a displayname are Skype-internal artifacts.
	if _, err := db.Conn().Exec("INSERT INTO Conversations (identity) VALUES ('ghost')"); err != nil {
		t.Fatal(err)
	}
	db.ClearCache()

	convs, err := db.Conversations()
	if err != nil {
		t.Fatal(err)
	}
	if len(convs) != 1 {
		t.Errorf("conversations = %d, want 1", len(convs))
	}
}

func TestParticipantContactResolution(t *testing.T) {
	db := testDB(t)
	seedAccount(t, db, "alice")
	if _, err := db.InsertRow(db.Conn(), "contacts", Row{"skypename": "bob", "fullname": "Bob B."}); err != nil {
		t.Fatal(err)
	}
	convoID := seedConversation(t, db, Row{"identity": "#group/x", "displayname": "Group"})
	for _, identity := range []string{"alice", "bob", "mallory"} {
		if _, err := db.InsertRow(db.Conn(), "participants", Row{"convo_id": convoID, "identity": identity}); err != nil {
			t.Fatal(err)
		}
	}
	db.ClearCache()

	convs, err := db.Conversations()
	if err != nil {
		t.Fatal(err)
	}
	if len(convs) != 1 || len(convs[0].Participants) != 3 {
		t.Fatalf("want 1 conversation with 3 participants, got %+v", convs)
	}
	byIdentity := map[string]*Participant{}
	for _, p := range convs[0].Participants {
		byIdentity[p.Identity] = p
	}
	if c := byIdentity["alice"].Contact; c == nil || c.Stub() {
		t.Error("account participant should resolve to a real contact")
	}
	if c := byIdentity["bob"].Contact; c == nil || c.Stub() || c.Name != "Bob B." {
		t.Errorf("known participant contact = %+v, want Bob B.", c)
	}
	if c := byIdentity["mallory"].Contact; c == nil || !c.Stub() {
		t.Error("unknown participant should get a stub contact")
	}
}

func TestMessagesAscending(t *testing.T) {
	db := testDB(t)
	convoID := seedConversation(t, db, Row{"identity": "bob", "displayname": "Bob"})
	seedMessage(t, db, Row{"convo_id": convoID, "timestamp": int64(300), "type": int64(61), "author": "bob", "body_xml": "late"})
	seedMessage(t, db, Row{"convo_id": convoID, "timestamp": int64(100), "type": int64(61), "author": "bob", "body_xml": "early"})
	seedMessage(t, db, Row{"convo_id": convoID, "timestamp": int64(200), "type": int64(61), "author": "bob", "body_xml": "middle"})

	convs, err := db.Conversations()
	if err != nil {
		t.Fatal(err)
	}
	msgs, err := db.Messages(convs[0])
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 3 {
		t.Fatalf("messages = %d, want 3", len(msgs))
	}
	for i, want := range []string{"early", "middle", "late"} {
		if msgs[i].BodyXML != want {
			t.Errorf("msgs[%d] = %q, want %q", i, msgs[i].BodyXML, want)
		}
	}
}

func TestConversationStatsCountsHistoryTypesOnly(t *testing.T) {
	db := testDB(t)
	convoID := seedConversation(t, db, Row{"identity": "bob", "displayname": "Bob"})
	seedMessage(t, db, Row{"convo_id": convoID, "timestamp": int64(100), "type": int64(61)})
	seedMessage(t, db, Row{"convo_id": convoID, "timestamp": int64(200), "type": int64(61)})
	// Call events are not chat history.
	seedMessage(t, db, Row{"convo_id": convoID, "timestamp": int64(300), "type": int64(30)})

	convs, err := db.Conversations()
	if err != nil {
		t.Fatal(err)
	}
	if err := db.ConversationStats(convs); err != nil {
		t.Fatal(err)
	}
	conv := convs[0]
	if conv.MessageCount != 2 {
		t.Errorf("MessageCount = %d, want 2", conv.MessageCount)
	}
	if conv.FirstMessageTimestamp != 100 || conv.LastMessageTimestamp != 200 {
		t.Errorf("range = %d..%d, want 100..200", conv.FirstMessageTimestamp, conv.LastMessageTimestamp)
	}
}

func TestTransfersForMessageOrderedByIndex(t *testing.T) {
	db := testDB(t)
	convoID := seedConversation(t, db, Row{"identity": "bob", "displayname": "Bob"})
	seedMessage(t, db, Row{"convo_id": convoID, "timestamp": int64(100), "type": int64(68), "guid": "g1"})
	for _, row := range []Row{
		{"chatmsg_guid": "g1", "chatmsg_index": int64(1), "convo_id": convoID, "filename": "b.jpg"},
		{"chatmsg_guid": "g1", "chatmsg_index": int64(0), "convo_id": convoID, "filename": "a.jpg"},
		{"chatmsg_guid": "other", "chatmsg_index": int64(0), "convo_id": convoID, "filename": "c.jpg"},
	} {
		if _, err := db.InsertRow(db.Conn(), "transfers", row); err != nil {
			t.Fatal(err)
		}
	}

	convs, err := db.Conversations()
	if err != nil {
		t.Fatal(err)
	}
	msgs, err := db.Messages(convs[0])
	if err != nil {
		t.Fatal(err)
	}
	transfers, err := db.TransfersForMessage(msgs[0])
	if err != nil {
		t.Fatal(err)
	}
	if len(transfers) != 2 {
		t.Fatalf("transfers = %d, want 2", len(transfers))
	}
	if transfers[0].ChatmsgIndex != 0 || transfers[1].ChatmsgIndex != 1 {
		t.Error("transfers should be ordered by chatmsg_index")
	}
}

func TestSMSesForMessage(t *testing.T) {
	db := testDB(t)
	convoID := seedConversation(t, db, Row{"identity": "bob", "displayname": "Bob"})
	msgID := seedMessage(t, db, Row{"convo_id": convoID, "timestamp": int64(100), "type": int64(64)})
	if _, err := db.InsertRow(db.Conn(), "smses", Row{"chatmsg_id": msgID, "body": "on my way"}); err != nil {
		t.Fatal(err)
	}

	convs, err := db.Conversations()
	if err != nil {
		t.Fatal(err)
	}
	msgs, err := db.Messages(convs[0])
	if err != nil {
		t.Fatal(err)
	}
	smses, err := db.SMSesForMessage(msgs[0])
	if err != nil {
		t.Fatal(err)
	}
	if len(smses) != 1 || smses[0].ChatmsgID != msgID {
		t.Errorf("smses = %+v, want one linked to message %d", smses, msgID)
	}
}

func TestContactGroupsSkipsEmpty(t *testing.T) {
	db := testDB(t)
	for _, row := range []Row{
		{"given_displayname": "Family", "members": "bob carol"},
		{"given_displayname": "", "members": "x"},
		{"given_displayname": "Empty", "members": "  "},
	} {
		if _, err := db.InsertRow(db.Conn(), "contactgroups", row); err != nil {
			t.Fatal(err)
		}
	}

	groups, err := db.ContactGroups()
	if err != nil {
		t.Fatal(err)
	}
	if len(groups) != 1 || groups[0].Name != "Family" {
		t.Errorf("groups = %+v, want only Family", groups)
	}
}

func TestChatRowNames(t *testing.T) {
	db := testDB(t)
	convoID := seedConversation(t, db, Row{"identity": "bob", "displayname": "Bob"})
	if _, err := db.InsertRow(db.Conn(), "chats", Row{"name": "#alice/$bob;x", "conv_dbid": convoID}); err != nil {
		t.Fatal(err)
	}

	names, err := db.ChatRowNames()
	if err != nil {
		t.Fatal(err)
	}
	if !names["#alice/$bob;x"] {
		t.Errorf("names = %v, want #alice/$bob;x present", names)
	}

	convs, err := db.Conversations()
	if err != nil {
		t.Fatal(err)
	}
	chatRows, err := db.ChatRowsForConversation(convs[0])
	if err != nil {
		t.Fatal(err)
	}
	if len(chatRows) != 1 || chatRows[0].Name != "#alice/$bob;x" {
		t.Errorf("chat rows = %+v, want the seeded legacy row", chatRows)
	}
}
