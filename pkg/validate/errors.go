package validate

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for failures that carry no extra detail. Handlers match
// them with errors.Is and map them to user-facing responses.
var (
	// ErrMissingSelection means one or more of the four categorical
	// filters (fuel type, brand, segment, body type) was left empty.
	ErrMissingSelection = errors.New("fuel type, brand, segment and body type must all be selected")

	// ErrEmptyInput means the pipeline was asked to price an empty
	// trajectory.
	ErrEmptyInput = errors.New("input trajectory is empty")

	// ErrUnknownBrand means the selected brand is not among the
	// comparison candidates, so no shortlist can be anchored to it.
	ErrUnknownBrand = errors.New("selected brand is not a known brand")

	// ErrEmptyPrediction means the model returned no prices for a
	// non-empty trajectory.
	ErrEmptyPrediction = errors.New("model returned no predictions")

	// ErrModelNotFound means the configured model artifact does not exist
	// on the model server.
	ErrModelNotFound = errors.New("model artifact not found")

	// ErrGatewayUnavailable means the model server could not be reached
	// or did not answer within the configured timeout.
	ErrGatewayUnavailable = errors.New("prediction service unavailable")
)

// MissingFieldsError reports which categorical fields were empty across a
// batch of observations. Field names are deduplicated and sorted.
type MissingFieldsError struct {
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	return fmt.Sprintf("observations are missing fields: %s", strings.Join(e.Fields, ", "))
}

// ShapeMismatchError reports a cardinality disagreement between two
// sequences that must align, such as ages vs mileages or observations vs
// predicted prices.
type ShapeMismatchError struct {
	What string
	Want int
	Got  int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("%s: expected %d elements, got %d", e.What, e.Want, e.Got)
}
