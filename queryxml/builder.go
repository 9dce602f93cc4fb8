package queryxml

import (
	"errors"
	"reflect"
	"strings"
)

// Builder is a Query bound to the Go struct type T. Field references are
// checked against T when Where or WhereField is called.
//
//	q := queryxml.For[atws.Account]().
//		WhereField(func(a *atws.Account) any { return &a.ID }, queryxml.GreaterThan, "0")
type Builder[T any] struct {
	query  *Query
	schema *entitySchema
	errs   []error
}

// For creates a Builder for T. The entity name is the type name of T, or the
// result of its EntityName method.
func For[T any]() *Builder[T] {
	schema, err := schemaOf[T]()
	b := &Builder[T]{
		query:  New(schema.entity),
		schema: schema,
	}
	if err != nil {
		b.errs = append(b.errs, err)
	}
	return b
}

// Where adds a condition on the field called name. The name is either the
// field's xml tag name or its Go name; fields promoted from embedded structs
// are accepted.
func (b *Builder[T]) Where(name string, op Operator, value string) *Builder[T] {
	f, err := b.schema.lookup(strings.TrimSpace(name))
	if err != nil {
		b.errs = append(b.errs, err)
		return b
	}
	b.query.Where(f.name, op, value)
	return b
}

// WhereField adds a condition on the field the accessor points to. The
// accessor must return the address of a field of its argument, e.g.
// func(a *Account) any { return &a.AccountName }.
func (b *Builder[T]) WhereField(accessor func(*T) any, op Operator, value string) *Builder[T] {
	f, err := b.schema.resolve(accessor, func(base reflect.Value) any {
		return accessor(base.Interface().(*T))
	})
	if err != nil {
		b.errs = append(b.errs, err)
		return b
	}
	b.query.Where(f.name, op, value)
	return b
}

// Query returns the underlying untyped query.
func (b *Builder[T]) Query() *Query {
	return b.query
}

// Entity returns the entity name the builder is bound to.
func (b *Builder[T]) Entity() string {
	return b.query.Entity()
}

// Conditions returns a copy of the accepted conditions, in insertion order.
func (b *Builder[T]) Conditions() []Condition {
	return b.query.Conditions()
}

// Err returns every error recorded so far, or nil.
func (b *Builder[T]) Err() error {
	return errors.Join(append(append([]error(nil), b.errs...), b.query.Err())...)
}

// Build renders the document, failing if any field reference was rejected.
func (b *Builder[T]) Build() (string, error) {
	if err := b.Err(); err != nil {
		return "", err
	}
	return b.query.Build()
}

// Indent renders the document indented by the given number of spaces.
func (b *Builder[T]) Indent(spaces int) (string, error) {
	if err := b.Err(); err != nil {
		return "", err
	}
	return b.query.Indent(spaces)
}

func (b *Builder[T]) String() string {
	s, err := b.Build()
	if err != nil {
		return ""
	}
	return s
}
