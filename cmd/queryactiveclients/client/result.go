package client

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"github.com/SanteonNL/atws/models/atws"
)

const (
	// ReturnCodeSuccess is the query ReturnCode of a successful call.
	ReturnCodeSuccess = 1

	// MaxQueryRecords is the most records a single query returns. Larger
	// result sets have to be paged by the caller.
	MaxQueryRecords = 500
)

// QueryResult is the decoded queryResult of a query call.
type QueryResult struct {
	ReturnCode       int
	EntityResultType string
	EntityResults    []atws.Entity
	Errors           []string
}

// Truncated reports whether the service may have held back records.
func (r *QueryResult) Truncated() bool {
	return len(r.EntityResults) >= MaxQueryRecords
}

// ReturnCodeError is returned when the service answers with a ReturnCode
// other than ReturnCodeSuccess.
type ReturnCodeError struct {
	ReturnCode int
	Messages   []string
}

func (e *ReturnCodeError) Error() string {
	if len(e.Messages) == 0 {
		return fmt.Sprintf("query returned code %d", e.ReturnCode)
	}
	return fmt.Sprintf("query returned code %d: %s", e.ReturnCode, strings.Join(e.Messages, "; "))
}

// EntitiesOf returns the results of type T, in response order.
func EntitiesOf[T atws.Entity](r *QueryResult) []T {
	var out []T
	for _, e := range r.EntityResults {
		if typed, ok := e.(T); ok {
			out = append(out, typed)
		}
	}
	return out
}

func decodeQueryResult(response *etree.Element) (*QueryResult, error) {
	result := child(response, "queryResult")
	if result == nil {
		return nil, fmt.Errorf("%w: missing queryResult", ErrMalformedResponse)
	}

	code, err := strconv.Atoi(text(result, "ReturnCode"))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid ReturnCode: %v", ErrMalformedResponse, err)
	}

	decoded := &QueryResult{
		ReturnCode:       code,
		EntityResultType: text(result, "EntityResultType"),
	}
	for _, e := range children(child(result, "Errors"), "ATWSError") {
		decoded.Errors = append(decoded.Errors, text(e, "Message"))
	}
	for _, el := range children(child(result, "EntityResults"), "Entity") {
		entity, err := atws.DecodeEntity(el)
		if err != nil {
			return nil, err
		}
		decoded.EntityResults = append(decoded.EntityResults, entity)
	}
	return decoded, nil
}
