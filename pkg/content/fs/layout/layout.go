package layout

import (
	"path"

	"github.com/opencontainers/go-digest"
)

const Default = Layout("mirror/v1")

type Layout string

func (b Layout) UploadPath() string {
	return path.Join(string(b), "uploads")
}

func (b Layout) UploadRootPath(id string) string {
	return path.Join(string(b), "uploads", id)
}

func (b Layout) UploadDataPath(id string) string {
	return path.Join(b.UploadRootPath(id), "data")
}

// BlobsPath
// blobs
func (b Layout) BlobsPath() string {
	return path.Join(string(b), "blobs")
}

// BlobRootPath
// blobs/{algorithm}/{hex_digest_prefix_2}/{hex_digest}
func (b Layout) BlobRootPath(dgst digest.Digest) string {
	return path.Join(b.BlobsPath(), dgst.Algorithm().String(), dgst.Hex()[0:2], dgst.Hex())
}

// BlobDataPath
// blobs/{algorithm}/{hex_digest_prefix_2}/{hex_digest}/data
func (b Layout) BlobDataPath(dgst digest.Digest) string {
	return path.Join(b.BlobRootPath(dgst), "data")
}

// BlobMetaPath
// blobs/{algorithm}/{hex_digest_prefix_2}/{hex_digest}/meta
func (b Layout) BlobMetaPath(dgst digest.Digest) string {
	return path.Join(b.BlobRootPath(dgst), "meta")
}
