package errorutil

import "errors"

// ErrDataIntegrity is a base error type to use for failures that are due to
// a report or diagnostic that decodes but does not have the expected shape.
var ErrDataIntegrity = errors.New("data integrity error")

// ErrNoResults represents situations in which no report has been loaded yet.
var ErrNoResults = errors.New("no results returned")

// ErrNoReport is returned when a report path holds nothing to read.
var ErrNoReport = errors.New("no crash report")
