package mirror

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-courier/logr"
	"github.com/jmoiron/sqlx"
	"github.com/octohelm/unifs/pkg/filesystem"
	"github.com/octohelm/unifs/pkg/filesystem/api"
	"github.com/octohelm/unifs/pkg/strfmt"
	"github.com/pkg/errors"

	"github.com/octohelm/mirrorkit/pkg/content"
	contentfs "github.com/octohelm/mirrorkit/pkg/content/fs"
	"github.com/octohelm/mirrorkit/pkg/graph"
	"github.com/octohelm/mirrorkit/pkg/remote"
)

// Mirror wires the remote client, the content store and the graph together
// and syncs a configured set of repositories.
type Mirror struct {
	Remote  remote.Registry
	Content api.FileSystemBackend

	// Graph database file path
	Database string `flag:",omitempty,volume"`
	// Repository names to mirror
	Repositories []string `flag:",omitzero"`
	// Tag glob patterns applied to every repository
	TagPatterns []string `flag:",omitzero"`
	// Parallel blob fetches per manifest
	Concurrency int `flag:",omitzero"`

	client *remote.Client
	store  content.Store
	graph  *graph.Graph
	db     *sqlx.DB
}

func (m *Mirror) SetDefaults() {
	if m.Concurrency == 0 {
		m.Concurrency = 4
	}

	if m.Content.Backend.IsZero() {
		if cwd, err := os.Getwd(); err == nil {
			endpoint, _ := strfmt.ParseEndpoint("file://" + filepath.Join(cwd, ".tmp/mirror"))
			m.Content.Backend = *endpoint
		}
	}

	if m.Database == "" {
		if cwd, err := os.Getwd(); err == nil {
			m.Database = filepath.Join(cwd, ".tmp/mirror/graph.db")
		}
	}
}

func (m *Mirror) Init(ctx context.Context) error {
	if m.db != nil {
		return nil
	}

	if err := filesystem.MkdirAll(ctx, m.Content.FileSystem(), "."); err != nil {
		return err
	}
	m.store = contentfs.NewStore(m.Content.FileSystem())

	if err := os.MkdirAll(filepath.Dir(m.Database), 0o755); err != nil {
		return err
	}

	db, err := graph.Open(ctx, "file:"+m.Database)
	if err != nil {
		return errors.Wrapf(err, "open graph database failed: %s", m.Database)
	}
	m.db = db

	m.graph = graph.New(db, m.store)
	if err := m.graph.Init(ctx); err != nil {
		return err
	}

	m.client = &remote.Client{Registry: m.Remote}
	return m.client.Init(ctx)
}

func (m *Mirror) Run(ctx context.Context) error {
	return m.SyncAll(ctx)
}

// SyncAll mirrors every configured repository. A failing repository is
// recorded and skipped unless the remote rejects our credentials, which
// aborts the rest of the run.
func (m *Mirror) SyncAll(ctx context.Context) error {
	l := logr.FromContext(ctx).WithValues(slog.String("remote", m.Remote.Endpoint))

	for _, repo := range m.Repositories {
		s := &Syncer{
			Name:        repo,
			Tags:        m.TagPatterns,
			Concurrency: m.Concurrency,

			Client: m.client,
			Graph:  m.graph,
			Store:  m.store,
		}

		result, err := s.Sync(ctx)
		if err != nil {
			failed := &remote.ErrAuthenticationFailed{}
			if errors.As(err, &failed) {
				return err
			}

			l.WithValues(slog.String("repository", repo)).Warn(err)
			continue
		}

		l.WithValues(
			slog.String("repository", repo),
			slog.Int("synced", len(result.Synced)),
			slog.Int("failed", len(result.Failed)),
		).Info("done")
	}

	return nil
}

func (m *Mirror) Shutdown(ctx context.Context) error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
