package v1

import (
	"encoding/json"
	"fmt"

	"github.com/opencontainers/go-digest"
)

// Payload wraps a parsed manifest together with its canonical raw bytes.
//
// The digest of a payload is always computed over the bytes as received,
// never over a re-serialization.
type Payload struct {
	Manifest `json:"-"`

	raw  []byte
	dgst digest.Digest
}

func From(media Manifest) (*Payload, error) {
	switch x := media.(type) {
	case *Payload:
		return x, nil
	case Payload:
		return &x, nil
	}

	if _, ok := Mapping()[media.Type()]; ok {
		return &Payload{Manifest: media}, nil
	}

	return nil, fmt.Errorf("invalid media %s", media.Type())
}

func Mapping() map[string]func() Manifest {
	return map[string]func() Manifest{
		MediaTypeManifestV1:   func() Manifest { return &DockerManifestV1{} },
		MediaTypeManifestV2:   func() Manifest { return &DockerManifest{} },
		MediaTypeManifestList: func() Manifest { return &DockerManifestList{} },
	}
}

// MediaTypes lists every manifest media type the payload can decode,
// suitable for an Accept header.
func MediaTypes() []string {
	return []string{
		MediaTypeManifestList,
		MediaTypeManifestV2,
		MediaTypeManifestV1,
	}
}

func (m *Payload) UnmarshalJSON(data []byte) error {
	probe := struct {
		SchemaVersion int    `json:"schemaVersion"`
		MediaType     string `json:"mediaType"`
	}{}
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}

	mediaType := probe.MediaType
	if mediaType == "" && probe.SchemaVersion == 1 {
		// schema 1 never declares a mediaType
		mediaType = MediaTypeManifestV1
	}

	newManifest, ok := Mapping()[mediaType]
	if !ok {
		return fmt.Errorf("unsupported manifest media type %q", probe.MediaType)
	}

	manifest := newManifest()
	if err := json.Unmarshal(data, manifest); err != nil {
		return err
	}

	*m = Payload{
		Manifest: manifest,
		raw:      data,
		dgst:     digest.FromBytes(data),
	}
	return nil
}

func (m Payload) MarshalJSON() ([]byte, error) {
	if len(m.raw) != 0 {
		return m.raw[:], nil
	}
	if m.Manifest == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m.Manifest)
}

func (m *Payload) Payload() ([]byte, digest.Digest, error) {
	if m.raw == nil {
		raw, err := m.MarshalJSON()
		if err != nil {
			return nil, "", err
		}
		m.raw = raw
		m.dgst = digest.FromBytes(raw)
	}
	return m.raw, m.dgst, nil
}
