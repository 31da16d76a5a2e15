package graph

import (
	"database/sql"

	"github.com/opencontainers/go-digest"
)

type Blob struct {
	Digest    digest.Digest `db:"digest"`
	MediaType string        `db:"media_type"`
	Size      int64         `db:"size"`
}

type Manifest struct {
	Digest           digest.Digest  `db:"digest"`
	SchemaVersion    int            `db:"schema_version"`
	MediaType        string         `db:"media_type"`
	ConfigBlobDigest sql.NullString `db:"config_blob_digest"`
}

type ManifestList struct {
	Digest        digest.Digest `db:"digest"`
	SchemaVersion int           `db:"schema_version"`
	MediaType     string        `db:"media_type"`
}

// ManifestBlob is the ordered join between a manifest and a layer or config blob.
type ManifestBlob struct {
	ManifestDigest digest.Digest `db:"manifest_digest"`
	BlobDigest     digest.Digest `db:"blob_digest"`
	Position       int           `db:"position"`
}

// ManifestListManifest is the join between a manifest list and a manifest,
// carrying the platform the manifest was listed under.
type ManifestListManifest struct {
	ListDigest     digest.Digest `db:"list_digest"`
	ManifestDigest digest.Digest `db:"manifest_digest"`

	Architecture string `db:"architecture"`
	OS           string `db:"os"`
	OSVersion    string `db:"os_version"`
	OSFeatures   string `db:"os_features"`
	Features     string `db:"features"`
	Variant      string `db:"variant"`
}

type ManifestTag struct {
	Name           string        `db:"name"`
	ManifestDigest digest.Digest `db:"manifest_digest"`
}

type ManifestListTag struct {
	Name       string        `db:"name"`
	ListDigest digest.Digest `db:"list_digest"`
}
