package queryxml_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SanteonNL/atws/queryxml"
)

type Base struct {
	ID         int64 `xml:"id"`
	CreateDate string
}

type Address struct {
	City string
}

type Customer struct {
	Base
	Name     string `xml:"AccountName"`
	Internal string `xml:"-"`
	Address  Address
	secret   string
}

func (c Customer) DisplayName() string { return c.Name }

type Linked struct {
	*Base
	Name string
}

type renamed struct {
	Number string `xml:"AccountNumber,omitempty"`
}

func (renamed) EntityName() string { return "Account" }

type pointerNamed struct {
	Value string
}

func (*pointerNamed) EntityName() string { return "Ticket" }

func TestBuilder_FieldNames(t *testing.T) {
	q := queryxml.For[Customer]().
		Where("id", queryxml.GreaterThan, "0").
		Where("ID", queryxml.LessThan, "100").
		Where("AccountName", queryxml.Equals, "Acme").
		Where("Name", queryxml.Equals, "Acme").
		Where("CreateDate", queryxml.GreaterThanOrEqual, "2020-01-01").
		Where(" AccountName ", queryxml.Equals, "Acme")

	require.NoError(t, q.Err())
	assert.Equal(t, "Customer", q.Entity())

	var fields []string
	for _, c := range q.Conditions() {
		fields = append(fields, c.Field)
	}
	assert.Equal(t, []string{"id", "id", "AccountName", "AccountName", "CreateDate", "AccountName"}, fields)
}

func TestBuilder_WhereFieldAncestor(t *testing.T) {
	q := queryxml.For[Customer]().
		WhereField(func(c *Customer) any { return &c.ID }, queryxml.GreaterThan, "0").
		WhereField(func(c *Customer) any { return &c.Base.CreateDate }, queryxml.Equals, "2020-01-01").
		WhereField(func(c *Customer) any { return &c.Name }, queryxml.Equals, "Acme")

	require.NoError(t, q.Err())
	assert.Equal(t, []queryxml.Condition{
		{Field: "id", Operator: queryxml.GreaterThan, Value: "0"},
		{Field: "CreateDate", Operator: queryxml.Equals, Value: "2020-01-01"},
		{Field: "AccountName", Operator: queryxml.Equals, Value: "Acme"},
	}, q.Conditions())
}

func TestBuilder_EntityNamer(t *testing.T) {
	assert.Equal(t, "Account", queryxml.For[renamed]().Entity())
	assert.Equal(t, "Ticket", queryxml.For[pointerNamed]().Entity())

	q := queryxml.For[renamed]().WhereField(func(r *renamed) any { return &r.Number }, queryxml.Equals, "A-1")
	require.NoError(t, q.Err())
	assert.Equal(t, "AccountNumber", q.Conditions()[0].Field)
}

func TestBuilder_RejectsInvalidNames(t *testing.T) {
	tests := []struct {
		name  string
		field string
	}{
		{name: "unknown field", field: "Missing"},
		{name: "method", field: "DisplayName"},
		{name: "ignored field", field: "Internal"},
		{name: "unexported field", field: "secret"},
		{name: "embedded struct itself", field: "Base"},
		{name: "nested field", field: "City"},
		{name: "empty", field: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := queryxml.For[Customer]().Where(tt.field, queryxml.Equals, "x")

			err := q.Err()
			require.Error(t, err)
			assert.ErrorIs(t, err, queryxml.ErrInvalidFieldReference)
			assert.Empty(t, q.Conditions())
		})
	}
}

func TestBuilder_RejectsMethodName(t *testing.T) {
	err := queryxml.For[Customer]().Where("DisplayName", queryxml.Equals, "x").Err()

	var ref *queryxml.InvalidFieldReferenceError
	require.True(t, errors.As(err, &ref))
	assert.Equal(t, "Customer", ref.Entity)
	assert.Equal(t, "DisplayName", ref.Field)
	assert.Contains(t, ref.Reason, "method")
}

func TestBuilder_RejectsInvalidAccessors(t *testing.T) {
	var unrelated Customer
	other := struct{ Name string }{}

	tests := []struct {
		name     string
		accessor func(*Customer) any
	}{
		{name: "method call", accessor: func(c *Customer) any { return c.DisplayName() }},
		{name: "field value", accessor: func(c *Customer) any { return c.Name }},
		{name: "field of another instance", accessor: func(*Customer) any { return &unrelated.Name }},
		{name: "field of unrelated type", accessor: func(*Customer) any { return &other.Name }},
		{name: "nested struct field", accessor: func(c *Customer) any { return &c.Address.City }},
		{name: "embedded struct itself", accessor: func(c *Customer) any { return &c.Base }},
		{name: "entity itself", accessor: func(c *Customer) any { return c }},
		{name: "nil pointer", accessor: func(*Customer) any { return (*string)(nil) }},
		{name: "nil", accessor: func(*Customer) any { return nil }},
		{name: "nil accessor", accessor: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := queryxml.For[Customer]().WhereField(tt.accessor, queryxml.Equals, "x")

			assert.ErrorIs(t, q.Err(), queryxml.ErrInvalidFieldReference)
			assert.Empty(t, q.Conditions())
			_, err := q.Build()
			assert.Error(t, err)
		})
	}
}

func TestBuilder_EmbeddedPointer(t *testing.T) {
	byName := queryxml.For[Linked]().Where("id", queryxml.Equals, "1")
	require.NoError(t, byName.Err())

	// the embedded pointer is nil on the zero value the accessor runs against
	byAccessor := queryxml.For[Linked]().WhereField(func(l *Linked) any { return &l.ID }, queryxml.Equals, "1")
	assert.ErrorIs(t, byAccessor.Err(), queryxml.ErrInvalidFieldReference)

	direct := queryxml.For[Linked]().WhereField(func(l *Linked) any { return &l.Name }, queryxml.Equals, "x")
	require.NoError(t, direct.Err())
}

func TestBuilder_RejectionDoesNotStopChain(t *testing.T) {
	q := queryxml.For[Customer]().
		Where("Missing", queryxml.Equals, "x").
		Where("id", queryxml.GreaterThan, "0")

	assert.Error(t, q.Err())
	assert.Len(t, q.Conditions(), 1)
	_, err := q.Build()
	assert.ErrorIs(t, err, queryxml.ErrInvalidFieldReference)
}

func TestBuilder_NonStructEntity(t *testing.T) {
	q := queryxml.For[int]()
	assert.ErrorIs(t, q.Err(), queryxml.ErrInvalidEntity)

	_, err := q.Build()
	assert.Error(t, err)
}

type ZeroSized struct {
	Marker struct{}
	Flag   struct{}
	Name   string
}

func TestBuilder_ZeroSizeFields(t *testing.T) {
	tests := []struct {
		name     string
		accessor func(*ZeroSized) any
	}{
		{name: "first zero-size field", accessor: func(z *ZeroSized) any { return &z.Marker }},
		{name: "second zero-size field", accessor: func(z *ZeroSized) any { return &z.Flag }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := queryxml.For[ZeroSized]().WhereField(tt.accessor, queryxml.Equals, "x")

			assert.ErrorIs(t, q.Err(), queryxml.ErrInvalidFieldReference)
			assert.Empty(t, q.Conditions())
		})
	}

	q := queryxml.For[ZeroSized]().
		WhereField(func(z *ZeroSized) any { return &z.Name }, queryxml.Equals, "x").
		Where("Flag", queryxml.Equals, "y")
	require.NoError(t, q.Err())
	assert.Equal(t, []queryxml.Condition{
		{Field: "Name", Operator: queryxml.Equals, Value: "x"},
		{Field: "Flag", Operator: queryxml.Equals, Value: "y"},
	}, q.Conditions())
}
