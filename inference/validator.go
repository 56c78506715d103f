// Package inference turns prediction requests into results against a
// loaded artifact.
package inference

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FeaturesKey is the request field holding the feature vector.
const FeaturesKey = "features"

// ValidationKind identifies which input check failed.
type ValidationKind int

const (
	NotAnObject ValidationKind = iota + 1
	MissingKey
	NotAList
	WrongArity
	NonNumeric
)

func (k ValidationKind) String() string {
	switch k {
	case NotAnObject:
		return "not_an_object"
	case MissingKey:
		return "missing_key"
	case NotAList:
		return "not_a_list"
	case WrongArity:
		return "wrong_arity"
	case NonNumeric:
		return "non_numeric"
	default:
		return "unknown"
	}
}

// ValidationError is a caller-fixable problem with a prediction request.
type ValidationError struct {
	Kind ValidationKind
	// Expected and Received are set for WrongArity.
	Expected int
	Received int
	// Index is the offending element for NonNumeric.
	Index int
}

func (e *ValidationError) Error() string {
	switch e.Kind {
	case NotAnObject:
		return "request body must be a JSON object with a 'features' key"
	case MissingKey:
		return "missing 'features' key in JSON body"
	case NotAList:
		return "'features' must be a list"
	case WrongArity:
		return fmt.Sprintf("expected %d numeric values, received %d", e.Expected, e.Received)
	case NonNumeric:
		return fmt.Sprintf("all elements of 'features' must be numeric (int/float); element %d is not", e.Index)
	default:
		return "invalid request"
	}
}

// IsValidationError reports whether err is a ValidationError of any kind.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// DecodePayload parses a request body holding exactly one JSON value.
// Numbers are kept as json.Number so Validate sees them unrounded.
func DecodePayload(body []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var payload any
	if err := dec.Decode(&payload); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errors.New("trailing data after JSON value")
	}
	return payload, nil
}

// Validate checks a decoded request payload and returns the feature vector
// as a single-row matrix. Checks run in a fixed order and stop at the first
// failure: object shape, key presence, list shape, arity, numeric coercion.
func Validate(payload any, expectedFeatureCount int) ([][]float64, error) {
	obj, ok := payload.(map[string]any)
	if !ok {
		return nil, &ValidationError{Kind: NotAnObject}
	}
	raw, ok := obj[FeaturesKey]
	if !ok {
		return nil, &ValidationError{Kind: MissingKey}
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, &ValidationError{Kind: NotAList}
	}
	if len(list) != expectedFeatureCount {
		return nil, &ValidationError{Kind: WrongArity, Expected: expectedFeatureCount, Received: len(list)}
	}

	row := make([]float64, len(list))
	for i, v := range list {
		f, ok := toFloat(v)
		if !ok {
			return nil, &ValidationError{Kind: NonNumeric, Index: i}
		}
		row[i] = f
	}
	return [][]float64{row}, nil
}

// toFloat accepts numbers, booleans (as 0/1) and numeric strings. Null,
// containers and values that are not finite are rejected.
func toFloat(v any) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case json.Number:
		parsed, err := strconv.ParseFloat(string(x), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	case float64:
		f = x
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case bool:
		if x {
			f = 1
		}
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
