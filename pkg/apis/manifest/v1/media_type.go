package v1

const (
	MediaTypeManifestV1   = "application/vnd.docker.distribution.manifest.v1+json"
	MediaTypeManifestV2   = "application/vnd.docker.distribution.manifest.v2+json"
	MediaTypeManifestList = "application/vnd.docker.distribution.manifest.list.v2+json"

	MediaTypeConfigBlob  = "application/vnd.docker.container.image.v1+json"
	MediaTypeRegularBlob = "application/vnd.docker.image.rootfs.diff.tar.gzip"
	MediaTypeForeignBlob = "application/vnd.docker.image.rootfs.foreign.diff.tar.gzip"
)

// SchemaVersionFor returns the schema version a manifest media type must declare.
func SchemaVersionFor(mediaType string) int {
	switch mediaType {
	case MediaTypeManifestV1:
		return 1
	case MediaTypeManifestV2, MediaTypeManifestList:
		return 2
	}
	return 0
}

func IsBlobMediaType(mediaType string) bool {
	switch mediaType {
	case MediaTypeConfigBlob, MediaTypeRegularBlob, MediaTypeForeignBlob:
		return true
	}
	return false
}
