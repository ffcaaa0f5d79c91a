package oracle

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/classic-terra/oracle-voter/oracle/types"
	"github.com/classic-terra/oracle-voter/pkg/decimal"
)

// SQLitePrevoteMemory is a disk-persisted PrevoteStore: a restart of
// the voter process shouldn't lose a commitment mid-way through its
// reveal window. It implements the same hash -> commitment contract as
// PrevoteMemory, backed by a single table instead of a map.
type SQLitePrevoteMemory struct {
	db *sql.DB
}

// NewSQLitePrevoteMemory opens (creating if necessary) a sqlite database
// at path and ensures its schema exists.
func NewSQLitePrevoteMemory(path string) (*SQLitePrevoteMemory, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("prevote memory: open %s: %w", path, err)
	}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS prevote_commitments (
			hash   TEXT PRIMARY KEY,
			denom  TEXT NOT NULL,
			salt   TEXT NOT NULL,
			price  TEXT NOT NULL,
			period INTEGER NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("prevote memory: migrate: %w", err)
	}
	return &SQLitePrevoteMemory{db: db}, nil
}

// Close releases the underlying database handle.
func (m *SQLitePrevoteMemory) Close() error { return m.db.Close() }

// Put persists a commitment, replacing any prior row with the same hash.
func (m *SQLitePrevoteMemory) Put(hash string, c types.PrevoteCommitment) {
	_, err := m.db.Exec(
		`INSERT INTO prevote_commitments (hash, denom, salt, price, period)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(hash) DO UPDATE SET denom=excluded.denom, salt=excluded.salt,
			price=excluded.price, period=excluded.period`,
		hash, string(c.Denom), c.Salt, c.Price.String18(), c.Period,
	)
	if err != nil {
		// Put has no error return in the PrevoteStore contract; a failed
		// write here just means the reveal for this hash will be skipped
		// next period, the same outcome as never having committed it.
		return
	}
}

// Get looks up a commitment by its chain-reported hash.
func (m *SQLitePrevoteMemory) Get(hash string) (types.PrevoteCommitment, bool) {
	row := m.db.QueryRow(
		`SELECT denom, salt, price, period FROM prevote_commitments WHERE hash = ?`, hash,
	)
	var denom, salt, price string
	var period int64
	if err := row.Scan(&denom, &salt, &price, &period); err != nil {
		return types.PrevoteCommitment{}, false
	}
	rate, err := decimal.Parse(price)
	if err != nil {
		return types.PrevoteCommitment{}, false
	}
	return types.PrevoteCommitment{
		Hash:   hash,
		Salt:   salt,
		Price:  rate,
		Denom:  types.Denom(denom),
		Period: period,
	}, true
}

// GC deletes commitments created more than one period before currentPeriod.
func (m *SQLitePrevoteMemory) GC(currentPeriod int64) {
	_, _ = m.db.Exec(`DELETE FROM prevote_commitments WHERE ? - period > 1`, currentPeriod)
}

// Len reports the number of commitments currently persisted.
func (m *SQLitePrevoteMemory) Len() int {
	row := m.db.QueryRow(`SELECT COUNT(*) FROM prevote_commitments`)
	var n int
	if err := row.Scan(&n); err != nil {
		return 0
	}
	return n
}
