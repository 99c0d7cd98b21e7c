package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
)

// DefaultHistoryLimit is how many entries are kept per owner.
const DefaultHistoryLimit = 50

var ErrNotFound = errors.New("history entry not found")

// Entry is one solved equation. Timestamp is in unix milliseconds.
type Entry struct {
	ID        string `json:"id"`
	Owner     string `json:"owner"`
	Equation  string `json:"equation"`
	Result    string `json:"result"`
	Timestamp int64  `json:"timestamp"`
}

type HistoryRepo struct {
	DB    *sql.DB
	Limit int

	driver string
	now    func() time.Time
	newID  func() (uuid.UUID, error)
}

func NewHistoryRepo(db *sql.DB, driver string, limit int) *HistoryRepo {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &HistoryRepo{
		DB:     db,
		Limit:  limit,
		driver: driver,
		now:    time.Now,
		newID:  uuid.NewV7,
	}
}

var rePlaceholder = regexp.MustCompile(`\$\d+`)

// q adapts a query written with $n placeholders to the repo's driver.
// Placeholders must appear once each and in order.
func (r *HistoryRepo) q(query string) string {
	if r.driver == DriverSQLite {
		return rePlaceholder.ReplaceAllString(query, "?")
	}
	return query
}

var migrations = []string{
	`create table if not exists history (
  id         text primary key,
  owner      text not null,
  equation   text not null,
  result     text not null,
  created_at bigint not null
)`,
	`create index if not exists history_owner_created_idx on history (owner, created_at desc)`,
}

// Migrate creates the history table when it does not exist.
func (r *HistoryRepo) Migrate(ctx context.Context) error {
	for _, m := range migrations {
		if _, err := r.DB.ExecContext(ctx, m); err != nil {
			return fmt.Errorf("migrate history: %w", err)
		}
	}
	return nil
}

// Save stores a new entry and trims the owner's history to Limit entries,
// dropping the oldest ones.
func (r *HistoryRepo) Save(ctx context.Context, owner, equation, result string) (Entry, error) {
	id, err := r.newID()
	if err != nil {
		return Entry{}, fmt.Errorf("new id: %w", err)
	}
	e := Entry{
		ID:        id.String(),
		Owner:     owner,
		Equation:  equation,
		Result:    result,
		Timestamp: r.now().UnixMilli(),
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return Entry{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const ins = `insert into history (id, owner, equation, result, created_at) values ($1,$2,$3,$4,$5)`
	if _, err := tx.ExecContext(ctx, r.q(ins), e.ID, e.Owner, e.Equation, e.Result, e.Timestamp); err != nil {
		return Entry{}, fmt.Errorf("insert history: %w", err)
	}

	const trim = `
delete from history
where owner = $1
  and id not in (
    select id from history
    where owner = $2
    order by created_at desc, id desc
    limit $3
  )`
	if _, err := tx.ExecContext(ctx, r.q(trim), owner, owner, r.Limit); err != nil {
		return Entry{}, fmt.Errorf("trim history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Entry{}, fmt.Errorf("commit transaction: %w", err)
	}
	return e, nil
}

// List returns the owner's entries, newest first.
func (r *HistoryRepo) List(ctx context.Context, owner string) ([]Entry, error) {
	const q = `
select id, owner, equation, result, created_at
from history
where owner = $1
order by created_at desc, id desc
limit $2`
	rows, err := r.DB.QueryContext(ctx, r.q(q), owner, r.Limit)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	out := make([]Entry, 0)
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Owner, &e.Equation, &e.Result, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	return out, nil
}

// Delete removes one entry of the owner.
func (r *HistoryRepo) Delete(ctx context.Context, owner, id string) error {
	const q = `delete from history where owner = $1 and id = $2`
	res, err := r.DB.ExecContext(ctx, r.q(q), owner, id)
	if err != nil {
		return fmt.Errorf("delete history: %w", err)
	}
	aff, _ := res.RowsAffected()
	if aff == 0 {
		return ErrNotFound
	}
	return nil
}

// Clear removes every entry of the owner.
func (r *HistoryRepo) Clear(ctx context.Context, owner string) (int64, error) {
	const q = `delete from history where owner = $1`
	res, err := r.DB.ExecContext(ctx, r.q(q), owner)
	if err != nil {
		return 0, fmt.Errorf("clear history: %w", err)
	}
	aff, _ := res.RowsAffected()
	return aff, nil
}

// PurgeOlderThan removes entries of all owners older than olderThan.
func (r *HistoryRepo) PurgeOlderThan(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, errors.New("olderThan must be > 0")
	}
	cutoff := r.now().Add(-olderThan).UnixMilli()
	const q = `delete from history where created_at < $1`
	res, err := r.DB.ExecContext(ctx, r.q(q), cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge history: %w", err)
	}
	aff, _ := res.RowsAffected()
	return aff, nil
}
