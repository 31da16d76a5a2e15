package content

import (
	"fmt"

	"github.com/opencontainers/go-digest"

	"github.com/octohelm/courier/pkg/statuserror"
)

type ErrBlobUnknown struct {
	statuserror.NotFound

	Digest digest.Digest
}

func (ErrBlobUnknown) ErrCode() string {
	return "BLOB_UNKNOWN"
}

func (err *ErrBlobUnknown) Error() string {
	return fmt.Sprintf("unknown blob digest=%s", err.Digest)
}

// ErrDigestConflict is returned when an existing entry under the same digest
// carries a different media type or content length.
type ErrDigestConflict struct {
	statuserror.Conflict

	Digest digest.Digest
	Reason string
}

func (ErrDigestConflict) ErrCode() string {
	return "DIGEST_CONFLICT"
}

func (err *ErrDigestConflict) Error() string {
	return fmt.Sprintf("conflicting content for digest %s: %s", err.Digest, err.Reason)
}

type ErrBlobInvalidDigest struct {
	statuserror.BadRequest

	Digest digest.Digest
	Reason error
}

func (ErrBlobInvalidDigest) ErrCode() string {
	return "DIGEST_INVALID"
}

func (err *ErrBlobInvalidDigest) Error() string {
	return fmt.Sprintf("invalid digest %q: %v", err.Digest, err.Reason)
}

type ErrBlobInvalidLength struct {
	statuserror.RequestedRangeNotSatisfiable

	Reason string
}

func (ErrBlobInvalidLength) ErrCode() string {
	return "SIZE_INVALID"
}

func (err *ErrBlobInvalidLength) Error() string {
	return fmt.Sprintf("blob invalid length: %s", err.Reason)
}

// ErrManifestBlobUnknown is returned when a manifest references a config or
// layer blob that has not been ingested yet.
type ErrManifestBlobUnknown struct {
	statuserror.NotFound

	Digest digest.Digest
}

func (ErrManifestBlobUnknown) ErrCode() string {
	return "MANIFEST_BLOB_UNKNOWN"
}

func (err *ErrManifestBlobUnknown) Error() string {
	return fmt.Sprintf("unknown blob %v on manifest", err.Digest)
}

// ErrListManifestUnknown is returned when a manifest list references a
// manifest that has not been ingested yet.
type ErrListManifestUnknown struct {
	statuserror.NotFound

	Digest digest.Digest
}

func (ErrListManifestUnknown) ErrCode() string {
	return "MANIFEST_UNKNOWN"
}

func (err *ErrListManifestUnknown) Error() string {
	return fmt.Sprintf("unknown manifest %v on manifest list", err.Digest)
}

type ErrManifestUnknownRevision struct {
	statuserror.NotFound

	Revision digest.Digest
}

func (ErrManifestUnknownRevision) ErrCode() string {
	return "MANIFEST_UNKNOWN"
}

func (err *ErrManifestUnknownRevision) Error() string {
	return fmt.Sprintf("unknown manifest revision=%s", err.Revision)
}

type ErrSchemaVersionInvalid struct {
	statuserror.BadRequest

	MediaType     string
	SchemaVersion int
}

func (ErrSchemaVersionInvalid) ErrCode() string {
	return "MANIFEST_INVALID"
}

func (err *ErrSchemaVersionInvalid) Error() string {
	return fmt.Sprintf("media type %s cannot declare schema version %d", err.MediaType, err.SchemaVersion)
}

type ErrTagUnknown struct {
	statuserror.NotFound

	Tag string
}

func (ErrTagUnknown) ErrCode() string {
	return "MANIFEST_UNKNOWN"
}

func (err *ErrTagUnknown) Error() string {
	return fmt.Sprintf("unknown tag=%s", err.Tag)
}
