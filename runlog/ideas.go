package runlog

import (
	"context"
	"database/sql"
	"fmt"
)

// IdeasSchema for the variant-round dedup table.
const IdeasSchema = `
CREATE TABLE IF NOT EXISTS used_ideas (
	variant_key TEXT NOT NULL,
	idea TEXT NOT NULL,
	created_at INTEGER NOT NULL DEFAULT (unixepoch()),
	PRIMARY KEY (variant_key, idea)
);
`

// Ideas tracks which variant ideas have already been applied, scoped by a
// caller-supplied key (typically the template being varied). This is the
// variant loop's own bookkeeping, passed into it as context; the edit
// engine itself never reads it.
type Ideas struct {
	db *sql.DB
}

// NewIdeas creates the dedup store backed by db.
func NewIdeas(db *sql.DB) *Ideas {
	return &Ideas{db: db}
}

// Init creates the used_ideas table if it doesn't exist.
func (i *Ideas) Init() error {
	_, err := i.db.Exec(IdeasSchema)
	return err
}

// Seen reports whether idea was already used under key.
func (i *Ideas) Seen(ctx context.Context, key, idea string) (bool, error) {
	var one int
	err := i.db.QueryRowContext(ctx,
		`SELECT 1 FROM used_ideas WHERE variant_key = ? AND idea = ?`, key, idea).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query idea: %w", err)
	}
	return true, nil
}

// Mark records idea as used under key. Marking twice is a no-op.
func (i *Ideas) Mark(ctx context.Context, key, idea string) error {
	_, err := i.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO used_ideas (variant_key, idea) VALUES (?, ?)`, key, idea)
	if err != nil {
		return fmt.Errorf("mark idea: %w", err)
	}
	return nil
}
