package fs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/google/uuid"
	"github.com/octohelm/unifs/pkg/filesystem"
	"github.com/opencontainers/go-digest"

	manifestv1 "github.com/octohelm/mirrorkit/pkg/apis/manifest/v1"
	"github.com/octohelm/mirrorkit/pkg/content"
	"github.com/octohelm/mirrorkit/pkg/content/fs/driver"
	"github.com/octohelm/mirrorkit/pkg/content/fs/layout"
)

func NewStore(fs filesystem.FileSystem) content.Store {
	return &store{
		workspace: &workspace{
			Driver: driver.FromFileSystem(fs),
			layout: layout.Default,
		},
	}
}

type workspace struct {
	driver.Driver

	layout layout.Layout
}

type store struct {
	workspace *workspace

	// serializes writes per digest; losers of a race land on the
	// idempotent already-present path
	digestMu sync.Map
}

var _ content.Store = &store{}

type blobMeta struct {
	MediaType string `json:"mediaType,omitempty"`
	Size      int64  `json:"size"`
}

func (s *store) lock(dgst digest.Digest) func() {
	mu, _ := s.digestMu.LoadOrStore(dgst, &sync.Mutex{})
	mu.(*sync.Mutex).Lock()
	return mu.(*sync.Mutex).Unlock
}

func (s *store) Stat(ctx context.Context, dgst digest.Digest) (*manifestv1.Descriptor, error) {
	info, err := s.workspace.Stat(ctx, s.workspace.layout.BlobDataPath(dgst))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &content.ErrBlobUnknown{
				Digest: dgst,
			}
		}
		return nil, err
	}

	desc := &manifestv1.Descriptor{
		Digest: dgst,
		Size:   info.Size(),
	}

	if raw, err := s.workspace.GetContent(ctx, s.workspace.layout.BlobMetaPath(dgst)); err == nil {
		meta := &blobMeta{}
		if err := json.Unmarshal(raw, meta); err == nil {
			desc.MediaType = meta.MediaType
		}
	}

	return desc, nil
}

func (s *store) Open(ctx context.Context, dgst digest.Digest) (io.ReadCloser, error) {
	file, err := s.workspace.Reader(ctx, s.workspace.layout.BlobDataPath(dgst))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &content.ErrBlobUnknown{
				Digest: dgst,
			}
		}
		return nil, err
	}
	return file, nil
}

func (s *store) Put(ctx context.Context, expected manifestv1.Descriptor, r io.Reader) (*manifestv1.Descriptor, error) {
	if err := expected.Digest.Validate(); err != nil {
		return nil, &content.ErrBlobInvalidDigest{
			Digest: expected.Digest,
			Reason: err,
		}
	}

	unlock := s.lock(expected.Digest)
	defer unlock()

	if existing, err := s.Stat(ctx, expected.Digest); err == nil {
		return s.reconcile(ctx, existing, expected, r)
	}

	return s.write(ctx, expected, r)
}

// reconcile handles a Put against an already registered digest: identical
// content succeeds without a second physical write, diverging content is a
// digest conflict.
func (s *store) reconcile(ctx context.Context, existing *manifestv1.Descriptor, expected manifestv1.Descriptor, r io.Reader) (*manifestv1.Descriptor, error) {
	size := expected.Size
	if size == 0 {
		n, err := io.Copy(io.Discard, r)
		if err != nil {
			return nil, err
		}
		size = n
	}

	if size != existing.Size {
		return nil, &content.ErrDigestConflict{
			Digest: expected.Digest,
			Reason: fmt.Sprintf("content length %d, already stored as %d", size, existing.Size),
		}
	}

	if expected.MediaType != "" && existing.MediaType != "" && expected.MediaType != existing.MediaType {
		return nil, &content.ErrDigestConflict{
			Digest: expected.Digest,
			Reason: fmt.Sprintf("media type %s, already stored as %s", expected.MediaType, existing.MediaType),
		}
	}

	return existing, nil
}

func (s *store) write(ctx context.Context, expected manifestv1.Descriptor, r io.Reader) (*manifestv1.Descriptor, error) {
	id := uuid.New().String()
	uploadRoot := s.workspace.layout.UploadRootPath(id)
	uploadDataPath := s.workspace.layout.UploadDataPath(id)

	defer func() {
		_ = s.workspace.Delete(ctx, uploadRoot)
	}()

	w, err := s.workspace.Writer(ctx, uploadDataPath)
	if err != nil {
		return nil, err
	}

	digester := expected.Digest.Algorithm().Digester()

	written, err := io.Copy(io.MultiWriter(w, digester.Hash()), r)
	if err != nil {
		_ = w.Cancel(ctx)
		return nil, err
	}

	if err := w.Commit(ctx); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	desc := &manifestv1.Descriptor{
		MediaType: expected.MediaType,
		Digest:    digester.Digest(),
		Size:      written,
	}

	if desc.Digest != expected.Digest {
		return nil, &content.ErrBlobInvalidDigest{
			Digest: desc.Digest,
			Reason: fmt.Errorf("not match %s", expected.Digest),
		}
	}

	if expected.Size > 0 && expected.Size != desc.Size {
		return nil, &content.ErrBlobInvalidLength{
			Reason: fmt.Sprintf("unexpected commit size %d, expected %d", desc.Size, expected.Size),
		}
	}

	meta, err := json.Marshal(&blobMeta{MediaType: desc.MediaType, Size: desc.Size})
	if err != nil {
		return nil, err
	}
	if err := s.workspace.PutContent(ctx, s.workspace.layout.BlobMetaPath(desc.Digest), meta); err != nil {
		return nil, err
	}

	// the entry becomes visible only once data lands on its final path
	if err := s.workspace.Move(ctx, uploadDataPath, s.workspace.layout.BlobDataPath(desc.Digest)); err != nil {
		return nil, err
	}

	return desc, nil
}
