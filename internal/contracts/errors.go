package contracts

import "errors"

var (
	// ErrInsufficientHistory is returned when a quantile or mean is asked of
	// an empty distribution
	ErrInsufficientHistory = errors.New("insufficient valuation history")

	// ErrInvalidInput is returned for inputs that would divide by a
	// non-positive pe or otherwise produce NaN/Inf
	ErrInvalidInput = errors.New("invalid valuation input")
)

// ErrNoData is returned when an index has no valuation on the requested date
var ErrNoData = errors.New("no valuation data for date")
