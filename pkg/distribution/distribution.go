package distribution

import (
	"strings"
)

// Distribution exposes synced content under a base path. It points either at
// a publisher together with the repository it publishes, or directly at a
// publication, or at nothing yet.
type Distribution struct {
	Name        string `db:"name" json:"name"`
	BasePath    string `db:"base_path" json:"basePath"`
	Publisher   string `db:"publisher" json:"publisher,omitzero"`
	Publication string `db:"publication" json:"publication,omitzero"`
	Repository  string `db:"repository" json:"repository,omitzero"`
}

const maxBasePathLength = 255

func (d *Distribution) Validate() error {
	if d.Name == "" {
		return &ErrDistributionInvalid{Reason: "name must not be empty"}
	}

	if err := validateBasePath(d.BasePath); err != nil {
		return err
	}

	// a publisher only makes sense against the repository it publishes
	if (d.Publisher == "") != (d.Repository == "") {
		return &ErrPublisherRepositoryMismatch{Name: d.Name}
	}

	return nil
}

func validateBasePath(basePath string) error {
	if basePath == "" {
		return &ErrDistributionInvalid{Reason: "base path must not be empty"}
	}
	if len(basePath) > maxBasePathLength {
		return &ErrDistributionInvalid{Reason: "base path longer than 255 characters"}
	}
	if strings.HasPrefix(basePath, "/") {
		return &ErrDistributionInvalid{Reason: "base path must be relative"}
	}

	for _, seg := range strings.Split(basePath, "/") {
		switch seg {
		case "":
			return &ErrDistributionInvalid{Reason: "base path must not contain empty segments"}
		case ".", "..":
			return &ErrDistributionInvalid{Reason: "base path must not contain dot segments"}
		}
	}

	return nil
}

// slashPrefixes returns every prefix of a base path ending on a slash
// boundary, the full path included.
//
// "a/b/c" yields "a", "a/b", "a/b/c".
func slashPrefixes(basePath string) []string {
	segments := strings.Split(basePath, "/")
	prefixes := make([]string, 0, len(segments))

	for i := range segments {
		prefixes = append(prefixes, strings.Join(segments[:i+1], "/"))
	}

	return prefixes
}
