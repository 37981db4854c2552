package skypedata

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// InsertAccount inserts the given account row and adopts it as this
// database's own account. Used when merging into a file that has none.
func (d *Database) InsertAccount(q Execer, account *Account) error {
	if err := d.CreateTable("accounts"); err != nil {
		return err
	}
	if err := d.EnsureBackup(); err != nil {
		return err
	}
	id, err := d.InsertRow(q, "accounts", account.Raw)
	if err != nil {
		return err
	}
	adopted := &Account{ID: id, Identity: account.Identity, Name: account.Name, Raw: account.Raw}
	d.SetAccount(adopted)
	d.logger.Info("account adopted",
		zap.String("identity", account.Identity), zap.String("db", d.Path))
	return nil
}

// InsertConversation copies a conversation row (minus its local id) into
// this database and returns the newly assigned id.
func (d *Database) InsertConversation(q Execer, conv *Conversation) (int64, error) {
	if err := d.CreateTable("conversations"); err != nil {
		return 0, err
	}
	if err := d.EnsureBackup(); err != nil {
		return 0, err
	}
	return d.InsertRow(q, "conversations", conv.Raw)
}

// InsertContacts inserts brand-new address-book rows. Stub contacts
// fabricated for unknown participants are skipped.
func (d *Database) InsertContacts(q Execer, contacts []*Contact) error {
	if len(contacts) == 0 {
		return nil
	}
	if err := d.CreateTable("contacts"); err != nil {
		return err
	}
	if err := d.EnsureBackup(); err != nil {
		return err
	}
	n := 0
	for _, c := range contacts {
		if c.Stub() {
			continue
		}
		if _, err := d.InsertRow(q, "contacts", c.Raw); err != nil {
			return err
		}
		n++
	}
	d.logger.Info("contacts merged", zap.Int("count", n), zap.String("db", d.Path))
	return nil
}

// ReplaceContactGroups updates groups already present (matched by name)
// and inserts the rest.
func (d *Database) ReplaceContactGroups(q Execer, groups []*ContactGroup) error {
	if len(groups) == 0 {
		return nil
	}
	if err := d.CreateTable("contactgroups"); err != nil {
		return err
	}
	if err := d.EnsureBackup(); err != nil {
		return err
	}
	existing, err := d.ContactGroups()
	if err != nil {
		return err
	}
	byName := make(map[string]*ContactGroup, len(existing))
	for _, g := range existing {
		byName[g.Name] = g
	}
	cols, err := d.TableColumns("contactgroups")
	if err != nil {
		return err
	}
	for _, g := range groups {
		if have, ok := byName[g.Name]; ok {
			sets := make([]string, 0, len(cols))
			args := make([]any, 0, len(cols)+1)
			for _, col := range cols {
				if col.PK {
					continue
				}
				sets = append(sets, col.Name+" = ?")
				args = append(args, blobToBinary(col, g.Raw[col.Name]))
			}
			args = append(args, have.ID)
			query := fmt.Sprintf("UPDATE contactgroups SET %s WHERE id = ?",
				strings.Join(sets, ", "))
			if _, err := q.Exec(query, args...); err != nil {
				return &StorageError{File: d.Path, Table: "contactgroups", SQL: query, Err: err}
			}
		} else if _, err := d.InsertRow(q, "contactgroups", g.Raw); err != nil {
			return err
		}
	}
	d.logger.Info("contact groups merged", zap.Int("count", len(groups)), zap.String("db", d.Path))
	return nil
}

// InsertParticipants inserts participant rows against the resolved chat
// id of this database.
func (d *Database) InsertParticipants(q Execer, convoID int64, participants []*Participant) error {
	if len(participants) == 0 {
		return nil
	}
	if err := d.CreateTable("participants"); err != nil {
		return err
	}
	if err := d.EnsureBackup(); err != nil {
		return err
	}
	for _, p := range participants {
		row := make(Row, len(p.Raw))
		for k, v := range p.Raw {
			row[k] = v
		}
		row["convo_id"] = convoID
		if _, err := d.InsertRow(q, "participants", row); err != nil {
			return err
		}
	}
	return nil
}

// SetConversationCreation lowers a chat's creation timestamp. The Skype
// client hides messages older than the chat's recorded creation time.
func (d *Database) SetConversationCreation(q Execer, convoID, timestamp int64) error {
	query := "UPDATE conversations SET creation_timestamp = ? WHERE id = ?"
	if _, err := q.Exec(query, timestamp, convoID); err != nil {
		return &StorageError{File: d.Path, Table: "conversations", SQL: query, Err: err}
	}
	return nil
}
