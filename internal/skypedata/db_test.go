package skypedata

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func testDB(t *testing.T) *Database {
	t.Helper()
	path := filepath.Join(t.TempDir(), "main.db")
	db, err := NewEmpty(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		db.RegisterConsumer("test")
		_ = db.UnregisterConsumer("test")
	})
	return db
}

func seedConversation(t *testing.T, db *Database, row Row) int64 {
	t.Helper()
	id, err := db.InsertRow(db.Conn(), "conversations", row)
	if err != nil {
		t.Fatal(err)
	}
	db.ClearCache()
	return id
}

func seedMessage(t *testing.T, db *Database, row Row) int64 {
	t.Helper()
	id, err := db.InsertRow(db.Conn(), "messages", row)
	if err != nil {
		t.Fatal(err)
	}
	return id
}

func seedAccount(t *testing.T, db *Database, skypename string) {
	t.Helper()
	if _, err := db.InsertRow(db.Conn(), "accounts", Row{"skypename": skypename}); err != nil {
		t.Fatal(err)
	}
	db.loadAccount()
}

func TestNewEmptyCreatesFullSchema(t *testing.T) {
	db := testDB(t)
	for name := range createStatements {
		if !db.HasTable(name) {
			t.Errorf("missing table %s", name)
		}
	}
	if db.Account() != nil {
		t.Error("fresh database should have no account")
	}
}

func TestOpenMissingFile(t *testing.T) {
	if _, err := Open(filepath.Join(t.TempDir(), "nope.db"), nil); err == nil {
		t.Error("Open of a missing file should fail")
	}
}

func TestOpenLoadsAccount(t *testing.T) {
	path := filepath.Join(t.TempDir(), "main.db")
	db, err := NewEmpty(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.InsertRow(db.Conn(), "accounts", Row{"skypename": "alice", "fullname": "Alice A."}); err != nil {
		t.Fatal(err)
	}
	db.RegisterConsumer("seed")
	if err := db.UnregisterConsumer("seed"); err != nil {
		t.Fatal(err)
	}

	reopened, err := Open(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if reopened.AccountIdentity() != "alice" {
		t.Errorf("identity = %q, want alice", reopened.AccountIdentity())
	}
	if reopened.Account().Name != "Alice A." {
		t.Errorf("name = %q, want Alice A.", reopened.Account().Name)
	}
}

func TestInsertRowAssignsFreshID(t *testing.T) {
	db := testDB(t)
	row := Row{"id": int64(999), "identity": "bob", "displayname": "Bob"}
	id, err := db.InsertRow(db.Conn(), "conversations", row)
	if err != nil {
		t.Fatal(err)
	}
	// The source-side primary key must never be copied across files.
	if id == 999 {
		t.Error("insert should assign a fresh id, not copy the source's")
	}
}

func TestInsertRowConvertsBlobStrings(t *testing.T) {
	db := testDB(t)
	convoID := seedConversation(t, db, Row{"identity": "bob", "displayname": "Bob"})
	seedMessage(t, db, Row{"convo_id": convoID, "guid": "abc123", "timestamp": int64(100), "type": int64(61)})

	rows, err := db.TableRows("messages")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}
	if _, ok := rows[0]["guid"].([]byte); !ok {
		t.Errorf("guid stored as %T, want []byte", rows[0]["guid"])
	}
}

func TestEnsureBackup(t *testing.T) {
	db := testDB(t)
	bak := db.Path + ".bak"

	if err := db.EnsureBackup(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(bak); err != nil {
		t.Fatalf("backup not created: %v", err)
	}

	// Removed backup is re-created on the next write.
	if err := os.Remove(bak); err != nil {
		t.Fatal(err)
	}
	if err := db.EnsureBackup(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(bak); err != nil {
		t.Errorf("backup not re-created: %v", err)
	}
}

func TestEnsureBackupDisabled(t *testing.T) {
	db := testDB(t)
	db.BackupEnabled = false
	if err := db.EnsureBackup(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(db.Path + ".bak"); !errors.Is(err, os.ErrNotExist) {
		t.Error("disabled backup should not create a .bak file")
	}
}

func TestEnsureBackupFailureIsBackupError(t *testing.T) {
	db := testDB(t)
	// Point the backup at an unwritable location.
	origPath := db.Path
	db.Path = filepath.Join(t.TempDir(), "no-such-dir", "main.db")
	err := db.EnsureBackup()
	db.Path = origPath
	var backupErr *BackupError
	if !errors.As(err, &backupErr) {
		t.Fatalf("err = %v, want BackupError", err)
	}
}

func TestConsumerRefcount(t *testing.T) {
	db := testDB(t)
	db.RegisterConsumer("scan")
	db.RegisterConsumer("merge")
	if !db.HasConsumers() {
		t.Fatal("consumers registered, HasConsumers() = false")
	}

	if err := db.UnregisterConsumer("scan"); err != nil {
		t.Fatal(err)
	}
	if err := db.Conn().Ping(); err != nil {
		t.Errorf("connection closed while a consumer remains: %v", err)
	}

	if err := db.UnregisterConsumer("merge"); err != nil {
		t.Fatal(err)
	}
	if db.HasConsumers() {
		t.Error("HasConsumers() = true after the last detach")
	}
	if db.Conn() != nil {
		t.Error("connection should be closed once the last consumer detaches")
	}
}

func TestTableRowsCached(t *testing.T) {
	db := testDB(t)
	seedConversation(t, db, Row{"identity": "bob", "displayname": "Bob"})

	first, err := db.TableRows("conversations")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.InsertRow(db.Conn(), "conversations", Row{"identity": "eve", "displayname": "Eve"}); err != nil {
		t.Fatal(err)
	}

	cached, err := db.TableRows("conversations")
	if err != nil {
		t.Fatal(err)
	}
	if len(cached) != len(first) {
		t.Errorf("cached rows = %d, want %d", len(cached), len(first))
	}

	db.ClearCache()
	fresh, err := db.TableRows("conversations")
	if err != nil {
		t.Fatal(err)
	}
	if len(fresh) != len(first)+1 {
		t.Errorf("fresh rows = %d, want %d", len(fresh), len(first)+1)
	}
}

func TestCreateTableUnknownTemplate(t *testing.T) {
	db := testDB(t)
	err := db.CreateTable("Voicemails")
	var storageErr *StorageError
	if !errors.As(err, &storageErr) {
		t.Fatalf("err = %v, want StorageError", err)
	}
}
