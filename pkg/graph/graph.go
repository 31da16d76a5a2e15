package graph

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/octohelm/mirrorkit/pkg/content"
)

// Graph records content entities and the references between them.
//
// Bytes live in a content.Store; the graph holds digests, media types and
// join relations, each guarded by a unique constraint so that re-ingesting an
// already known digest is a no-op rather than an error.
type Graph struct {
	db    *sqlx.DB
	store content.Store
}

func New(db *sqlx.DB, store content.Store) *Graph {
	return &Graph{db: db, store: store}
}

func Open(ctx context.Context, dsn string) (*sqlx.DB, error) {
	// pragmas go on the DSN so every pooled connection gets them, not just
	// the first one opened
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	dsn += sep + "_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"

	db, err := sqlx.ConnectContext(ctx, "sqlite", dsn)
	if err != nil {
		return nil, err
	}

	return db, nil
}

func (g *Graph) Init(ctx context.Context) error {
	_, err := g.db.ExecContext(ctx, schema)
	return err
}
