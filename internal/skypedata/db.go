package skypedata

import (
	"database/sql"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// Column describes one table column from the database schema.
type Column struct {
	Name string
	Type string
	PK   bool
}

// Execer is the subset of database/sql shared by *sql.DB and *sql.Tx.
// Record-store writes take an Execer so the merge writer can run every
// write for one chat inside a single transaction.
type Execer interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// Database is typed access to a single Skype main.db file. Exactly one
// Database owns one underlying connection; consumers register and
// unregister so the connection is physically closed only once nobody
// needs it.
type Database struct {
	Path string

	// BackupEnabled gates EnsureBackup. When false no .bak copy is made
	// and writes proceed unguarded.
	BackupEnabled bool

	db     *sql.DB
	logger *zap.Logger

	mu         sync.Mutex
	consumers  map[string]struct{}
	backupDone bool

	tables   map[string]struct{}
	colCache map[string][]Column

	cacheMu   sync.Mutex
	rowCache  map[string][]Row
	convCache []*Conversation

	account *Account
}

// Open opens an existing Skype database file. The account row, when
// present, is cached; databases without one are still usable (the merge
// writer adopts the source's account lazily).
func Open(path string, logger *zap.Logger) (*Database, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	conn, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	d := &Database{
		Path:          path,
		BackupEnabled: true,
		db:            conn,
		logger:        logger,
		consumers:     make(map[string]struct{}),
		colCache:      make(map[string][]Column),
		rowCache:      make(map[string][]Row),
	}
	if err := d.loadTables(); err != nil {
		_ = conn.Close()
		return nil, err
	}
	d.loadAccount()
	return d, nil
}

// NewEmpty creates a new database file with the full Skype schema.
// Used when merging into a fresh file and as the test fixture factory.
func NewEmpty(path string, logger *zap.Logger) (*Database, error) {
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("create database: %w", err)
	}
	names := make([]string, 0, len(createStatements))
	for name := range createStatements {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, err := conn.Exec(createStatements[name]); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("create table %s: %w", name, err)
		}
	}
	if err := conn.Close(); err != nil {
		return nil, err
	}
	return Open(path, logger)
}

func (d *Database) loadTables() error {
	rows, err := d.db.Query("SELECT name FROM sqlite_master WHERE type = 'table'")
	if err != nil {
		return fmt.Errorf("read schema of %s: %w", d.Path, err)
	}
	defer func() { _ = rows.Close() }()

	d.tables = make(map[string]struct{})
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return err
		}
		d.tables[strings.ToLower(name)] = struct{}{}
	}
	return rows.Err()
}

func (d *Database) loadAccount() {
	if !d.HasTable("accounts") {
		return
	}
	accounts, err := d.queryRows(d.db, "SELECT * FROM accounts LIMIT 1")
	if err != nil || len(accounts) == 0 {
		return
	}
	d.account = accountFromRow(accounts[0])
}

func accountFromRow(row Row) *Account {
	a := &Account{
		ID:       rowInt(row, "id"),
		Identity: rowString(row, "skypename"),
		Raw:      row,
	}
	for _, col := range []string{"fullname", "displayname", "skypename"} {
		if a.Name = rowString(row, col); a.Name != "" {
			break
		}
	}
	return a
}

// Account returns the database's own account row, or nil when the file
// has none. SetAccount is called by the merge writer after adoption.
func (d *Database) Account() *Account { return d.account }

// SetAccount records the adopted account after a lazy insert.
func (d *Database) SetAccount(a *Account) { d.account = a }

// AccountIdentity returns the owning skypename, or "" without an account.
func (d *Database) AccountIdentity() string {
	if d.account == nil {
		return ""
	}
	return d.account.Identity
}

// HasTable reports whether the file contains the named table.
func (d *Database) HasTable(name string) bool {
	_, ok := d.tables[strings.ToLower(name)]
	return ok
}

// CreateTable materializes a table from the known schema templates when
// the file predates it. No-op if the table already exists.
func (d *Database) CreateTable(name string) error {
	lname := strings.ToLower(name)
	if d.HasTable(lname) {
		return nil
	}
	stmt, ok := createStatements[lname]
	if !ok {
		return &StorageError{File: d.Path, Table: name, Err: fmt.Errorf("no schema template")}
	}
	if _, err := d.db.Exec(stmt); err != nil {
		return &StorageError{File: d.Path, Table: name, SQL: stmt, Err: err}
	}
	d.tables[lname] = struct{}{}
	d.logger.Info("created missing table", zap.String("table", name), zap.String("db", d.Path))
	return nil
}

// TableColumns returns the column metadata for a table, cached per table.
func (d *Database) TableColumns(table string) ([]Column, error) {
	lname := strings.ToLower(table)
	if cols, ok := d.colCache[lname]; ok {
		return cols, nil
	}
	rows, err := d.db.Query(fmt.Sprintf("PRAGMA table_info(%q)", table))
	if err != nil {
		return nil, &StorageError{File: d.Path, Table: table, Err: err}
	}
	defer func() { _ = rows.Close() }()

	var cols []Column
	for rows.Next() {
		var (
			cid     int
			name    string
			ctype   string
			notnull int
			dflt    any
			pk      int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return nil, &StorageError{File: d.Path, Table: table, Err: err}
		}
		cols = append(cols, Column{Name: name, Type: ctype, PK: pk > 0})
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{File: d.Path, Table: table, Err: err}
	}
	d.colCache[lname] = cols
	return cols, nil
}

// TableRows returns all rows of a table as raw maps, lazily cached.
// Invalidated by ClearCache.
func (d *Database) TableRows(table string) ([]Row, error) {
	lname := strings.ToLower(table)
	d.cacheMu.Lock()
	cached, ok := d.rowCache[lname]
	d.cacheMu.Unlock()
	if ok {
		return cached, nil
	}
	if !d.HasTable(lname) {
		return nil, nil
	}
	rows, err := d.queryRows(d.db, fmt.Sprintf("SELECT * FROM %s", lname))
	if err != nil {
		return nil, err
	}
	d.cacheMu.Lock()
	d.rowCache[lname] = rows
	d.cacheMu.Unlock()
	return rows, nil
}

// ClearCache drops all cached rows; the next read repopulates them.
// Call after a merge so statistics reflect the written data.
func (d *Database) ClearCache() {
	d.cacheMu.Lock()
	d.rowCache = make(map[string][]Row)
	d.convCache = nil
	d.cacheMu.Unlock()
}

// EnsureBackup copies the database file to a .bak sibling before the
// first write of the session. Subsequent calls are no-ops. A failed
// backup aborts the write with a BackupError.
func (d *Database) EnsureBackup() error {
	if !d.BackupEnabled {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	backupPath := d.Path + ".bak"
	if d.backupDone {
		if _, err := os.Stat(backupPath); err == nil {
			return nil
		}
	}
	if err := copyFile(d.Path, backupPath); err != nil {
		return &BackupError{File: d.Path, Err: err}
	}
	d.backupDone = true
	d.logger.Info("backup created", zap.String("db", d.Path), zap.String("backup", backupPath))
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

// Begin starts a write transaction on the underlying connection.
func (d *Database) Begin() (*sql.Tx, error) {
	tx, err := d.db.Begin()
	if err != nil {
		return nil, &StorageError{File: d.Path, Err: err}
	}
	return tx, nil
}

// Conn exposes the raw connection for reads outside a transaction.
func (d *Database) Conn() *sql.DB { return d.db }

// InsertRow inserts one row into the table. Columns absent from the row
// are filled with NULL, blob-typed columns are converted to []byte, the
// integer primary key is never copied. Returns the assigned row id.
func (d *Database) InsertRow(q Execer, table string, row Row) (int64, error) {
	cols, err := d.TableColumns(table)
	if err != nil {
		return 0, err
	}
	fields := make([]string, 0, len(cols))
	args := make([]any, 0, len(cols))
	for _, col := range cols {
		if col.PK && strings.EqualFold(col.Type, "integer") {
			continue
		}
		fields = append(fields, col.Name)
		args = append(args, blobToBinary(col, row[col.Name]))
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table,
		strings.Join(fields, ", "), placeholders(len(fields)))
	res, err := q.Exec(query, args...)
	if err != nil {
		return 0, &StorageError{File: d.Path, Table: table, SQL: query, Err: err}
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, &StorageError{File: d.Path, Table: table, SQL: query, Err: err}
	}
	return id, nil
}

// blobToBinary converts string values destined for blob columns into the
// driver's binary parameter type.
func blobToBinary(col Column, val any) any {
	if val == nil {
		return nil
	}
	if strings.EqualFold(col.Type, "blob") {
		if s, ok := val.(string); ok {
			return []byte(s)
		}
	}
	return val
}

func placeholders(n int) string {
	if n == 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}

// queryRows runs a query and decodes every result row into a Row map.
func (d *Database) queryRows(q Execer, query string, args ...any) ([]Row, error) {
	rows, err := q.Query(query, args...)
	if err != nil {
		return nil, &StorageError{File: d.Path, SQL: query, Err: err}
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, &StorageError{File: d.Path, SQL: query, Err: err}
	}
	var out []Row
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, &StorageError{File: d.Path, SQL: query, Err: err}
		}
		row := make(Row, len(cols))
		for i, col := range cols {
			row[col] = vals[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{File: d.Path, SQL: query, Err: err}
	}
	return out, nil
}

// RegisterConsumer marks the database as needed by the named consumer.
func (d *Database) RegisterConsumer(name string) {
	d.mu.Lock()
	d.consumers[name] = struct{}{}
	d.mu.Unlock()
}

// UnregisterConsumer detaches a consumer; the last one to detach closes
// the underlying connection.
func (d *Database) UnregisterConsumer(name string) error {
	d.mu.Lock()
	delete(d.consumers, name)
	remaining := len(d.consumers)
	d.mu.Unlock()
	if remaining == 0 {
		return d.Close()
	}
	return nil
}

// HasConsumers reports whether any consumer is still registered.
func (d *Database) HasConsumers() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.consumers) > 0
}

// Close closes the connection regardless of registered consumers.
// Prefer Register/UnregisterConsumer when the file is shared.
func (d *Database) Close() error {
	if d.db == nil {
		return nil
	}
	err := d.db.Close()
	d.db = nil
	return err
}

// rowString reads a column as string, tolerating NULL and blobs.
func rowString(row Row, col string) string {
	switch v := row[col].(type) {
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return ""
	}
}

// rowInt reads a column as int64, tolerating NULL.
func rowInt(row Row, col string) int64 {
	switch v := row[col].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	default:
		return 0
	}
}

// rowBytes reads a column as a byte slice, tolerating NULL and text.
func rowBytes(row Row, col string) []byte {
	switch v := row[col].(type) {
	case []byte:
		return v
	case string:
		return []byte(v)
	default:
		return nil
	}
}
