package distribution

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/jmoiron/sqlx"
	testingx "github.com/octohelm/x/testing"
	_ "modernc.org/sqlite"
)

func newResolver(t *testing.T) *Resolver {
	t.Helper()

	tmp := t.TempDir()
	t.Cleanup(func() {
		_ = os.RemoveAll(tmp)
	})

	db, err := sqlx.Connect("sqlite", "file:"+tmp+"/distributions.db")
	testingx.Expect(t, err, testingx.Be[error](nil))
	t.Cleanup(func() {
		_ = db.Close()
	})

	r := NewResolver(db)
	testingx.Expect(t, r.Init(context.Background()), testingx.Be[error](nil))

	return r
}

func TestValidate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		d := &Distribution{Name: "foo", BasePath: "foo/bar"}
		testingx.Expect(t, d.Validate(), testingx.Be[error](nil))
	})

	t.Run("publisher and repository go together", func(t *testing.T) {
		for _, d := range []*Distribution{
			{Name: "foo", BasePath: "foo", Publisher: "p"},
			{Name: "foo", BasePath: "foo", Repository: "r"},
		} {
			mismatch := &ErrPublisherRepositoryMismatch{}
			testingx.Expect(t, errors.As(d.Validate(), &mismatch), testingx.Be(true))
		}

		d := &Distribution{Name: "foo", BasePath: "foo", Publisher: "p", Repository: "r"}
		testingx.Expect(t, d.Validate(), testingx.Be[error](nil))
	})

	t.Run("base path rules", func(t *testing.T) {
		for _, basePath := range []string{
			"",
			"/abs",
			"a//b",
			"a/",
			"a/./b",
			"a/../b",
			strings.Repeat("x", 256),
		} {
			d := &Distribution{Name: "foo", BasePath: basePath}
			invalid := &ErrDistributionInvalid{}
			testingx.Expect(t, errors.As(d.Validate(), &invalid), testingx.Be(true))
		}
	})
}

func TestResolver(t *testing.T) {
	r := newResolver(t)
	ctx := context.Background()

	err := r.Save(ctx, &Distribution{Name: "foo", BasePath: "foo"})
	testingx.Expect(t, err, testingx.Be[error](nil))

	t.Run("a child path conflicts", func(t *testing.T) {
		err := r.Save(ctx, &Distribution{Name: "child", BasePath: "foo/bar"})
		overlap := &ErrPathOverlap{}
		testingx.Expect(t, errors.As(err, &overlap), testingx.Be(true))
		testingx.Expect(t, overlap.Conflicting, testingx.Be("foo"))
		testingx.Expect(t, overlap.ConflictingName, testingx.Be("foo"))
	})

	t.Run("a parent path conflicts", func(t *testing.T) {
		err := r.Save(ctx, &Distribution{Name: "deep", BasePath: "x/y/z"})
		testingx.Expect(t, err, testingx.Be[error](nil))

		err = r.Save(ctx, &Distribution{Name: "parent", BasePath: "x/y"})
		overlap := &ErrPathOverlap{}
		testingx.Expect(t, errors.As(err, &overlap), testingx.Be(true))
		testingx.Expect(t, overlap.Conflicting, testingx.Be("x/y/z"))
		testingx.Expect(t, overlap.ConflictingName, testingx.Be("deep"))
	})

	t.Run("shared prefix without a slash boundary does not conflict", func(t *testing.T) {
		err := r.Save(ctx, &Distribution{Name: "foobar", BasePath: "foobar"})
		testingx.Expect(t, err, testingx.Be[error](nil))
	})

	t.Run("updating a distribution does not conflict with itself", func(t *testing.T) {
		err := r.Save(ctx, &Distribution{Name: "foo", BasePath: "foo"})
		testingx.Expect(t, err, testingx.Be[error](nil))

		d, err := r.Get(ctx, "foo")
		testingx.Expect(t, err, testingx.Be[error](nil))
		testingx.Expect(t, d.BasePath, testingx.Be("foo"))
	})

	t.Run("unknown name", func(t *testing.T) {
		_, err := r.Get(ctx, "nope")
		unknown := &ErrDistributionUnknown{}
		testingx.Expect(t, errors.As(err, &unknown), testingx.Be(true))
	})
}
