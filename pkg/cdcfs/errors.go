package cdcfs

type errString string

func (e errString) Error() string { return string(e) }

const (
	// ErrNotFound is returned when a file name is not in the registry
	ErrNotFound errString = "file not found"

	// ErrAlreadyExists is returned by CreateFile with createNew on an existing name
	ErrAlreadyExists errString = "file exists already"

	// ErrInvalidHandle is returned when an operation does not match the handle mode
	ErrInvalidHandle errString = "operation does not match handle mode"

	// ErrHandleClosed is returned when a handle is used after CloseFile
	ErrHandleClosed errString = "handle is closed"

	// ErrFileLocked is returned when a second write handle is requested on a name
	ErrFileLocked errString = "file is already opened for writing"

	// ErrNoScrubber is returned by Scrub on a CDC-only file system
	ErrNoScrubber errString = "scrubber cannot be used with a CDC-only file system"

	// ErrInvalidPlan is returned when a migration plan fails validation
	ErrInvalidPlan errString = "invalid migration plan"

	// ErrChunkerRequired is returned when CreateFile is given no chunker
	ErrChunkerRequired errString = "a chunker is required to create a file"
)
