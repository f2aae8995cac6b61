package firmware

import "errors"

var (
	// ErrToolTimeout is returned when the extraction tool exceeds its time budget.
	ErrToolTimeout = errors.New("extraction tool timed out")
	// ErrToolNotFound is returned when the extraction tool cannot be started.
	ErrToolNotFound = errors.New("extraction tool not found")

	// ErrNoFilename is returned for an upload without a usable file name.
	ErrNoFilename = errors.New("no file selected")
	// ErrEmptyUpload is returned for a zero-byte upload.
	ErrEmptyUpload = errors.New("uploaded firmware is empty")
)
