package domain

import "errors"

// ValidationError is a user-correctable reason why a boulder cannot be saved.
type ValidationError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return e.Message
}

var (
	ErrEmptySequence = &ValidationError{Code: "empty_sequence", Message: "Cannot save: Add holds to the boulder."}
	ErrMissingStart  = &ValidationError{Code: "missing_start", Message: "Cannot save: Mark Start hold(s)."}
	ErrMissingFinish = &ValidationError{Code: "missing_finish", Message: "Cannot save: Mark Finish hold(s)."}
)

// Import errors. A malformed record is skipped; an invalid format aborts the
// whole import before any record is looked at.
var (
	ErrMalformedRecord     = errors.New("malformed boulder record")
	ErrInvalidImportFormat = errors.New(`invalid import file format: expected JSON with a "boulders" array`)
)

// Catalogue errors abort the whole load; the previous catalogue stays active.
var (
	ErrInvalidCatalogue = errors.New(`invalid holds data format: required "image_dimensions", "holds" (array)`)
	ErrFetchFailed      = errors.New("failed to fetch holds data")
)

// Storage errors never block in-memory progress.
var (
	ErrCorruptCollection = errors.New("could not load saved boulders: storage might be corrupt")
	ErrStorageWrite      = errors.New("error saving boulders: storage might be full")
)

var (
	ErrNoActiveBoulder    = errors.New("no active boulder: load holds data and start a boulder first")
	ErrCatalogueNotLoaded = errors.New("holds data not loaded")
	ErrUnknownHold        = errors.New("hold not found in holds data")
	ErrBoulderNotFound    = errors.New("boulder not found")
)

// AsValidationError unwraps err into a ValidationError when it is one.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
