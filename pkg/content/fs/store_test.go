package fs_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/octohelm/unifs/pkg/filesystem/local"
	testingx "github.com/octohelm/x/testing"
	"github.com/opencontainers/go-digest"

	manifestv1 "github.com/octohelm/mirrorkit/pkg/apis/manifest/v1"
	"github.com/octohelm/mirrorkit/pkg/content"
	contentfs "github.com/octohelm/mirrorkit/pkg/content/fs"
)

func TestStore(t *testing.T) {
	tmp := t.TempDir()
	t.Cleanup(func() {
		_ = os.RemoveAll(tmp)
	})

	s := contentfs.NewStore(local.NewFS(tmp))

	str := "12345678"
	dgst := digest.FromString(str)

	ctx := context.Background()

	t.Run("put contents", func(t *testing.T) {
		d, err := s.Put(ctx, manifestv1.Descriptor{
			MediaType: manifestv1.MediaTypeRegularBlob,
			Digest:    dgst,
		}, bytes.NewBufferString(str))
		testingx.Expect(t, err, testingx.Be[error](nil))
		testingx.Expect(t, d.Size, testingx.Be(int64(len(str))))
		testingx.Expect(t, d.Digest, testingx.Be(dgst))

		t.Run("stat", func(t *testing.T) {
			d, err := s.Stat(ctx, dgst)
			testingx.Expect(t, err, testingx.Be[error](nil))
			testingx.Expect(t, d.Size, testingx.Be(int64(len(str))))
			testingx.Expect(t, d.MediaType, testingx.Be(manifestv1.MediaTypeRegularBlob))
		})

		t.Run("open", func(t *testing.T) {
			r, err := s.Open(ctx, dgst)
			testingx.Expect(t, err, testingx.Be[error](nil))
			defer r.Close()

			data, _ := io.ReadAll(r)
			testingx.Expect(t, string(data), testingx.Be(str))
		})

		t.Run("put again is idempotent", func(t *testing.T) {
			d, err := s.Put(ctx, manifestv1.Descriptor{
				MediaType: manifestv1.MediaTypeRegularBlob,
				Digest:    dgst,
			}, bytes.NewBufferString(str))
			testingx.Expect(t, err, testingx.Be[error](nil))
			testingx.Expect(t, d.Digest, testingx.Be(dgst))
		})

		t.Run("put same digest with different media type conflicts", func(t *testing.T) {
			_, err := s.Put(ctx, manifestv1.Descriptor{
				MediaType: manifestv1.MediaTypeConfigBlob,
				Digest:    dgst,
			}, bytes.NewBufferString(str))

			conflict := &content.ErrDigestConflict{}
			testingx.Expect(t, errors.As(err, &conflict), testingx.Be(true))
		})

		t.Run("put same digest with different length conflicts", func(t *testing.T) {
			_, err := s.Put(ctx, manifestv1.Descriptor{
				MediaType: manifestv1.MediaTypeRegularBlob,
				Digest:    dgst,
			}, bytes.NewBufferString(str+"-tampered"))

			conflict := &content.ErrDigestConflict{}
			testingx.Expect(t, errors.As(err, &conflict), testingx.Be(true))
		})
	})

	t.Run("stat unknown digest", func(t *testing.T) {
		_, err := s.Stat(ctx, digest.FromString("never-put"))

		unknown := &content.ErrBlobUnknown{}
		testingx.Expect(t, errors.As(err, &unknown), testingx.Be(true))
	})

	t.Run("put with mismatched digest", func(t *testing.T) {
		_, err := s.Put(ctx, manifestv1.Descriptor{
			Digest: digest.FromString("other-content"),
		}, strings.NewReader("not that content"))

		invalid := &content.ErrBlobInvalidDigest{}
		testingx.Expect(t, errors.As(err, &invalid), testingx.Be(true))
	})

	t.Run("concurrent puts of the same digest", func(t *testing.T) {
		str := "concurrent-blob"
		dgst := digest.FromString(str)

		wg := sync.WaitGroup{}
		errs := make([]error, 4)

		for i := range errs {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, errs[i] = s.Put(ctx, manifestv1.Descriptor{
					MediaType: manifestv1.MediaTypeRegularBlob,
					Digest:    dgst,
				}, strings.NewReader(str))
			}()
		}
		wg.Wait()

		for _, err := range errs {
			testingx.Expect(t, err, testingx.Be[error](nil))
		}
	})
}
