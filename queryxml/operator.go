package queryxml

import (
	"fmt"
	"strings"
)

// Operator is the comparison applied to a field in a query condition.
type Operator int

const (
	// Equals matches fields equal to the value.
	Equals Operator = iota
	// LessThan matches fields lesser than the value.
	LessThan
	// LessThanOrEqual matches fields lesser or equal to the value.
	LessThanOrEqual
	// GreaterThan matches fields greater than the value.
	GreaterThan
	// GreaterThanOrEqual matches fields greater or equal to the value.
	GreaterThanOrEqual
)

// wire tokens as documented for the service's queryxml dialect
var operatorTokens = [...]string{
	Equals:             "equals",
	LessThan:           "lessthan",
	LessThanOrEqual:    "lessthanorequals",
	GreaterThan:        "greaterthan",
	GreaterThanOrEqual: "greaterthanorequals",
}

// Operators returns all known operators in declaration order.
func Operators() []Operator {
	return []Operator{Equals, LessThan, LessThanOrEqual, GreaterThan, GreaterThanOrEqual}
}

// Valid reports whether op is one of the declared operators.
func (op Operator) Valid() bool {
	return op >= Equals && int(op) < len(operatorTokens)
}

// String returns the wire token of the operator, e.g. "greaterthan".
func (op Operator) String() string {
	if !op.Valid() {
		return fmt.Sprintf("Operator(%d)", int(op))
	}
	return operatorTokens[op]
}

// ParseOperator resolves a wire token (case-insensitive) to its Operator.
func ParseOperator(token string) (Operator, error) {
	for i, t := range operatorTokens {
		if strings.EqualFold(t, strings.TrimSpace(token)) {
			return Operator(i), nil
		}
	}
	return 0, fmt.Errorf("unknown operator %q", token)
}

func (op Operator) MarshalText() ([]byte, error) {
	if !op.Valid() {
		return nil, fmt.Errorf("invalid operator %d", int(op))
	}
	return []byte(op.String()), nil
}

func (op *Operator) UnmarshalText(text []byte) error {
	parsed, err := ParseOperator(string(text))
	if err != nil {
		return err
	}
	*op = parsed
	return nil
}
