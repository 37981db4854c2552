package skypedata

import "fmt"

// StorageError is an I/O or schema failure on one database. Fatal to the
// current chat's write, non-fatal to a merge session.
type StorageError struct {
	File  string
	Table string
	SQL   string
	Err   error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error on %s (table %s): %v", e.File, e.Table, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// BackupError is an inability to create the safety copy before the first
// write. Fatal to the entire merge session: nothing may be written after
// a failed backup.
type BackupError struct {
	File string
	Err  error
}

func (e *BackupError) Error() string {
	return fmt.Sprintf("backup of %s failed: %v", e.File, e.Err)
}

func (e *BackupError) Unwrap() error { return e.Err }
