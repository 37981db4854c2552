package skypedata

import (
	"testing"
)

func TestInsertAccountAdopts(t *testing.T) {
	db := testDB(t)
	account := &Account{
		Identity: "alice",
		Name:     "Alice A.",
		Raw:      Row{"id": int64(7), "skypename": "alice", "fullname": "Alice A."},
	}
	if err := db.InsertAccount(db.Conn(), account); err != nil {
		t.Fatal(err)
	}
	if db.AccountIdentity() != "alice" {
		t.Errorf("identity = %q, want alice", db.AccountIdentity())
	}
	if db.Account().ID == 7 {
		t.Error("adopted account should carry the newly assigned id")
	}
}

func TestInsertConversationCopiesRow(t *testing.T) {
	db := testDB(t)
	conv := &Conversation{
		Identity: "#group/x",
		Raw: Row{
			"id":          int64(42),
			"identity":    "#group/x",
			"displayname": "Group",
			"meta_topic":  "Topic",
		},
	}
	id, err := db.InsertConversation(db.Conn(), conv)
	if err != nil {
		t.Fatal(err)
	}
	if id == 42 {
		t.Error("conversation should get a fresh local id")
	}
	db.ClearCache()
	convs, err := db.Conversations()
	if err != nil {
		t.Fatal(err)
	}
	if len(convs) != 1 || convs[0].MetaTopic != "Topic" {
		t.Errorf("conversations = %+v, want the copied row", convs)
	}
}

func TestInsertContactsSkipsStubs(t *testing.T) {
	db := testDB(t)
	contacts := []*Contact{
		{Identity: "bob", Raw: Row{"skypename": "bob", "fullname": "Bob B."}},
		{Identity: "ghost"}, // stub, no address-book row to copy
	}
	if err := db.InsertContacts(db.Conn(), contacts); err != nil {
		t.Fatal(err)
	}
	got, err := db.Contacts()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Identity != "bob" {
		t.Errorf("contacts = %+v, want only bob", got)
	}
}

func TestReplaceContactGroupsUpdatesExisting(t *testing.T) {
	db := testDB(t)
	if _, err := db.InsertRow(db.Conn(), "contactgroups", Row{"given_displayname": "Family", "members": "bob"}); err != nil {
		t.Fatal(err)
	}

	groups := []*ContactGroup{
		{Name: "Family", Members: "bob carol", Raw: Row{"given_displayname": "Family", "members": "bob carol"}},
		{Name: "Work", Members: "dave", Raw: Row{"given_displayname": "Work", "members": "dave"}},
	}
	if err := db.ReplaceContactGroups(db.Conn(), groups); err != nil {
		t.Fatal(err)
	}

	db.ClearCache()
	got, err := db.ContactGroups()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("groups = %d, want 2 (update, not duplicate)", len(got))
	}
	byName := map[string]string{}
	for _, g := range got {
		byName[g.Name] = g.Members
	}
	if byName["Family"] != "bob carol" {
		t.Errorf("Family members = %q, want updated list", byName["Family"])
	}
	if byName["Work"] != "dave" {
		t.Errorf("Work members = %q, want dave", byName["Work"])
	}
}

func TestInsertParticipantsRewritesConvoID(t *testing.T) {
	db := testDB(t)
	convoID := seedConversation(t, db, Row{"identity": "#group/x", "displayname": "Group"})

	parts := []*Participant{
		{Identity: "bob", Raw: Row{"convo_id": int64(999), "identity": "bob", "rank": int64(1)}},
	}
	if err := db.InsertParticipants(db.Conn(), convoID, parts); err != nil {
		t.Fatal(err)
	}

	db.ClearCache()
	convs, err := db.Conversations()
	if err != nil {
		t.Fatal(err)
	}
	if len(convs[0].Participants) != 1 {
		t.Fatalf("participants = %d, want 1", len(convs[0].Participants))
	}
	if convs[0].Participants[0].ConvoID != convoID {
		t.Error("participant convo_id should point at the local conversation")
	}
	// The source row must not be mutated by the rewrite.
	if parts[0].Raw["convo_id"] != int64(999) {
		t.Error("insert should not mutate the source row")
	}
}

func TestSetConversationCreation(t *testing.T) {
	db := testDB(t)
	convoID := seedConversation(t, db, Row{"identity": "bob", "displayname": "Bob", "creation_timestamp": int64(5000)})

	if err := db.SetConversationCreation(db.Conn(), convoID, 1000); err != nil {
		t.Fatal(err)
	}
	db.ClearCache()
	convs, err := db.Conversations()
	if err != nil {
		t.Fatal(err)
	}
	if convs[0].CreationTimestamp != 1000 {
		t.Errorf("creation_timestamp = %d, want 1000", convs[0].CreationTimestamp)
	}
}
