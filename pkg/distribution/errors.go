package distribution

import (
	"fmt"

	"github.com/octohelm/courier/pkg/statuserror"
)

type ErrDistributionInvalid struct {
	statuserror.BadRequest

	Reason string
}

func (e *ErrDistributionInvalid) ErrCode() string {
	return "DISTRIBUTION_INVALID"
}

func (e *ErrDistributionInvalid) Error() string {
	return fmt.Sprintf("invalid distribution: %s", e.Reason)
}

// ErrPublisherRepositoryMismatch is returned when a distribution names a
// publisher without the repository it publishes, or the other way round.
type ErrPublisherRepositoryMismatch struct {
	statuserror.BadRequest

	Name string
}

func (e *ErrPublisherRepositoryMismatch) ErrCode() string {
	return "DISTRIBUTION_INVALID"
}

func (e *ErrPublisherRepositoryMismatch) Error() string {
	return fmt.Sprintf("distribution %q must set publisher and repository together", e.Name)
}

type ErrPathOverlap struct {
	statuserror.Conflict

	BasePath        string
	Conflicting     string
	ConflictingName string
}

func (e *ErrPathOverlap) ErrCode() string {
	return "DISTRIBUTION_PATH_OVERLAP"
}

func (e *ErrPathOverlap) Error() string {
	return fmt.Sprintf("base path %q overlaps base path %q of distribution %q", e.BasePath, e.Conflicting, e.ConflictingName)
}

type ErrDistributionUnknown struct {
	statuserror.NotFound

	Name string
}

func (e *ErrDistributionUnknown) ErrCode() string {
	return "DISTRIBUTION_UNKNOWN"
}

func (e *ErrDistributionUnknown) Error() string {
	return fmt.Sprintf("unknown distribution name=%s", e.Name)
}
