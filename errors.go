package conductor

import "errors"

var (
	// Store errors.
	ErrNoStore     = errors.New("conductor: no store configured")
	ErrStoreClosed = errors.New("conductor: store closed")

	// Not found errors.
	ErrTenantNotFound    = errors.New("conductor: tenant not found")
	ErrWorkflowNotFound  = errors.New("conductor: workflow not found")
	ErrBranchNotFound    = errors.New("conductor: branch not found")
	ErrJobNotFound       = errors.New("conductor: job not found")
	ErrRunNotFound       = errors.New("conductor: run not found")
	ErrTemplateNotFound  = errors.New("conductor: job template not found")
	ErrCronNotFound      = errors.New("conductor: cron entry not found")
	ErrSpecIndexNotFound = errors.New("conductor: job spec index out of range")

	// Conflict errors.
	ErrTenantExists   = errors.New("conductor: tenant already exists")
	ErrWorkflowExists = errors.New("conductor: workflow already exists")
	ErrBranchExists   = errors.New("conductor: branch already exists")
	ErrJobExists      = errors.New("conductor: job already exists")
	ErrDuplicateCron  = errors.New("conductor: duplicate cron entry")
	ErrTenantBusy     = errors.New("conductor: tenant has pending or running jobs")
	ErrWorkflowBusy   = errors.New("conductor: workflow has pending or running jobs")
	ErrEntryBranch    = errors.New("conductor: branch is the workflow entry branch")

	// Input errors.
	ErrInvalidInput  = errors.New("conductor: invalid input")
	ErrNoEntryBranch = errors.New("conductor: workflow has no entry branch")

	// State errors.
	ErrInvalidTransition = errors.New("conductor: invalid job state transition")
)

// IsNotFound reports whether err belongs to the NotFound error class.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrTenantNotFound) ||
		errors.Is(err, ErrWorkflowNotFound) ||
		errors.Is(err, ErrBranchNotFound) ||
		errors.Is(err, ErrJobNotFound) ||
		errors.Is(err, ErrRunNotFound) ||
		errors.Is(err, ErrTemplateNotFound) ||
		errors.Is(err, ErrCronNotFound) ||
		errors.Is(err, ErrSpecIndexNotFound)
}

// IsConflict reports whether err belongs to the Conflict error class.
func IsConflict(err error) bool {
	return errors.Is(err, ErrTenantExists) ||
		errors.Is(err, ErrWorkflowExists) ||
		errors.Is(err, ErrBranchExists) ||
		errors.Is(err, ErrJobExists) ||
		errors.Is(err, ErrDuplicateCron) ||
		errors.Is(err, ErrTenantBusy) ||
		errors.Is(err, ErrWorkflowBusy) ||
		errors.Is(err, ErrEntryBranch)
}

// IsInvalidInput reports whether err belongs to the InvalidInput error class.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput) || errors.Is(err, ErrNoEntryBranch)
}
