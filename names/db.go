package names

import (
	"database/sql"
	"fmt"
	"os"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

// DB is a table of contents stored in SQLite.
type DB struct {
	db *sql.DB
}

// NewDB opens or creates the database in file.
func NewDB(file string) (*DB, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("%s?_foreign_keys=on", file))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)

	if _, err = db.Exec("CREATE TABLE IF NOT EXISTS type (id INTEGER PRIMARY KEY NOT NULL, tag TEXT NOT NULL UNIQUE)"); err != nil {
		db.Close()
		return nil, err
	}

	if _, err = db.Exec("CREATE TABLE IF NOT EXISTS file (type_id INTEGER NOT NULL, idx INTEGER NOT NULL, name TEXT NOT NULL, PRIMARY KEY(type_id, idx), FOREIGN KEY(type_id) REFERENCES type(id))"); err != nil {
		db.Close()
		return nil, err
	}

	return &DB{
		db: db,
	}, nil
}

// ImportJSON replaces the contents of the database with the table of
// contents in file.
func (db *DB) ImportJSON(file string) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	jt, err := readJSON(f)
	if err != nil {
		return err
	}

	tx, err := db.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err = tx.Exec("DELETE FROM file"); err != nil {
		return err
	}

	if _, err = tx.Exec("DELETE FROM type"); err != nil {
		return err
	}

	for _, ft := range jt.FileTypes {
		id, err := addType(tx, ft.Type)
		if err != nil {
			return errors.Wrapf(err, "names: adding type %q", ft.Type)
		}

		for _, f := range ft.Files {
			if err := addFile(tx, id, f.Index, f.Name); err != nil {
				return errors.Wrapf(err, "names: adding %s/%d", ft.Type, f.Index)
			}
		}
	}

	return tx.Commit()
}

func addType(tx *sql.Tx, tag string) (int64, error) {
	var id int64
	switch err := tx.QueryRow("SELECT id FROM type WHERE tag = ?", tag).Scan(&id); err {
	case sql.ErrNoRows:
		result, err := tx.Exec("INSERT INTO type (tag) VALUES (?)", tag)
		if err != nil {
			return 0, err
		}
		return result.LastInsertId()
	case nil:
		return id, nil
	default:
		return 0, err
	}
}

func addFile(tx *sql.Tx, typeID int64, index int, name string) error {
	// First name wins, as with Table.
	if _, err := tx.Exec("INSERT OR IGNORE INTO file (type_id, idx, name) VALUES (?, ?, ?)", typeID, index, name); err != nil {
		return err
	}
	return nil
}

// Name implements container.Namer.
func (db *DB) Name(tag string, index int) (string, error) {
	var name string
	switch err := db.db.QueryRow("SELECT f.name FROM file AS f JOIN type AS t ON f.type_id = t.id WHERE t.tag = ? AND f.idx = ?", tag, index).Scan(&name); err {
	case sql.ErrNoRows:
		return "", nil
	case nil:
		return name, nil
	default:
		return "", err
	}
}

// Close closes the database.
func (db *DB) Close() error {
	return db.db.Close()
}
