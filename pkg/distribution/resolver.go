package distribution

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"
)

// Resolver guards the base-path namespace: no distribution may serve content
// from under another distribution's base path.
type Resolver struct {
	db *sqlx.DB
}

func NewResolver(db *sqlx.DB) *Resolver {
	return &Resolver{db: db}
}

const schema = `
CREATE TABLE IF NOT EXISTS distributions (
	name        TEXT NOT NULL PRIMARY KEY,
	base_path   TEXT NOT NULL UNIQUE,
	publisher   TEXT NOT NULL DEFAULT '',
	publication TEXT NOT NULL DEFAULT '',
	repository  TEXT NOT NULL DEFAULT ''
);
`

func (r *Resolver) Init(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, schema)
	return err
}

// Conflict names an existing distribution whose base path overlaps a
// candidate path.
type Conflict struct {
	Name     string `db:"name"`
	BasePath string `db:"base_path"`
}

// CheckOverlap reports the lexicographically first distribution whose base
// path overlaps the candidate on a slash boundary, excluding the named
// distribution itself.
//
// Overlap is either an existing base path equal to a slash prefix of the
// candidate, or an existing base path extending the candidate past a slash.
// "foobar" does not overlap "foo".
func (r *Resolver) CheckOverlap(ctx context.Context, basePath string, excludeName string) (*Conflict, error) {
	pattern := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(basePath) + "/%"

	query, args, err := sqlx.In(
		`SELECT name, base_path FROM distributions `+
			`WHERE name != ? AND (base_path IN (?) OR base_path LIKE ? ESCAPE '\') `+
			`ORDER BY base_path LIMIT 1`,
		excludeName, slashPrefixes(basePath), pattern,
	)
	if err != nil {
		return nil, err
	}

	c := &Conflict{}
	if err := r.db.GetContext(ctx, c, r.db.Rebind(query), args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return c, nil
}

// Save validates the distribution, checks its base path against every other
// distribution and upserts it.
func (r *Resolver) Save(ctx context.Context, d *Distribution) error {
	if err := d.Validate(); err != nil {
		return err
	}

	conflict, err := r.CheckOverlap(ctx, d.BasePath, d.Name)
	if err != nil {
		return err
	}
	if conflict != nil {
		return &ErrPathOverlap{
			BasePath:        d.BasePath,
			Conflicting:     conflict.BasePath,
			ConflictingName: conflict.Name,
		}
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO distributions (name, base_path, publisher, publication, repository) `+
			`VALUES (?, ?, ?, ?, ?) `+
			`ON CONFLICT (name) DO UPDATE SET `+
			`base_path = excluded.base_path, publisher = excluded.publisher, `+
			`publication = excluded.publication, repository = excluded.repository`,
		d.Name, d.BasePath, d.Publisher, d.Publication, d.Repository,
	)
	return err
}

func (r *Resolver) Get(ctx context.Context, name string) (*Distribution, error) {
	d := &Distribution{}
	if err := r.db.GetContext(ctx, d, "SELECT * FROM distributions WHERE name = ?", name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &ErrDistributionUnknown{Name: name}
		}
		return nil, err
	}
	return d, nil
}
