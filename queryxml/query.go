// Package queryxml builds query documents in the queryxml dialect accepted by
// the ATWS query operation:
//
//	<queryxml version="1.0">
//	  <entity>Account</entity>
//	  <query>
//	    <condition>
//	      <field>id<expression op="greaterthan">0</expression></field>
//	    </condition>
//	  </query>
//	</queryxml>
//
// All conditions are ANDed by the service, in the order they were added.
// A Query is owned by a single caller and is not safe for concurrent use.
package queryxml

import (
	"errors"
	"fmt"
	"strings"

	"github.com/beevik/etree"
	"golang.org/x/exp/slices"
)

const (
	// Version is the queryxml dialect version emitted on the root element.
	Version = "1.0"

	rootTag       = "queryxml"
	entityTag     = "entity"
	queryTag      = "query"
	conditionTag  = "condition"
	fieldTag      = "field"
	expressionTag = "expression"
	opAttr        = "op"
)

// Condition is a single field comparison.
type Condition struct {
	Field    string
	Operator Operator
	Value    string
}

// Query accumulates conditions for one entity.
//
// The document tree is created by New and extended by Where, so Build only
// renders it and may be called any number of times.
type Query struct {
	entity     string
	conditions []Condition
	doc        *etree.Document
	query      *etree.Element
	errs       []error
}

// New creates a query for the named entity. Field names passed to Where are
// not validated against any schema.
func New(entityName string) *Query {
	doc := etree.NewDocument()
	doc.WriteSettings.CanonicalEndTags = true

	root := doc.CreateElement(rootTag)
	root.CreateAttr("version", Version)
	root.CreateElement(entityTag).SetText(entityName)

	return &Query{
		entity: entityName,
		doc:    doc,
		query:  root.CreateElement(queryTag),
	}
}

// Where appends a condition and returns q for chaining. The value must already
// be formatted the way the service expects it (e.g. invariant dates).
//
// Surrounding whitespace is trimmed from the field name. A condition with an
// empty field name or an unknown operator is not added; the problem is
// reported by Err and Build.
func (q *Query) Where(field string, op Operator, value string) *Query {
	if err := q.add(field, op, value); err != nil {
		q.errs = append(q.errs, err)
	}
	return q
}

func (q *Query) add(field string, op Operator, value string) error {
	field = strings.TrimSpace(field)
	if field == "" {
		return &InvalidFieldReferenceError{Entity: q.entity, Reason: "field name is empty"}
	}
	if !op.Valid() {
		return fmt.Errorf("%w %d on field %s", ErrInvalidOperator, int(op), field)
	}

	q.conditions = append(q.conditions, Condition{Field: field, Operator: op, Value: value})

	fieldNode := q.query.CreateElement(conditionTag).CreateElement(fieldTag)
	fieldNode.SetText(field)
	expression := fieldNode.CreateElement(expressionTag)
	expression.CreateAttr(opAttr, op.String())
	expression.SetText(value)
	return nil
}

// Entity returns the entity name the query is bound to.
func (q *Query) Entity() string {
	return q.entity
}

// Conditions returns a copy of the accepted conditions, in insertion order.
func (q *Query) Conditions() []Condition {
	return slices.Clone(q.conditions)
}

// Err returns every error recorded by Where so far, or nil.
func (q *Query) Err() error {
	return errors.Join(q.errs...)
}

// Build renders the document. It fails only if a Where call was rejected.
func (q *Query) Build() (string, error) {
	if err := q.Err(); err != nil {
		return "", err
	}
	return q.doc.WriteToString()
}

// Indent renders the document indented by the given number of spaces. It is
// meant for logs and console output; the service does not need it.
func (q *Query) Indent(spaces int) (string, error) {
	if err := q.Err(); err != nil {
		return "", err
	}
	doc := q.doc.Copy()
	doc.WriteSettings.CanonicalEndTags = true
	doc.Indent(spaces)
	return doc.WriteToString()
}

// String renders the document, or returns an empty string if the query holds
// rejected conditions.
func (q *Query) String() string {
	s, err := q.Build()
	if err != nil {
		return ""
	}
	return s
}
