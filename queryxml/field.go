package queryxml

import (
	"fmt"
	"reflect"
	"strings"
)

// EntityNamer lets an entity type override the entity name used in queries.
// By default the Go type name is used.
type EntityNamer interface {
	EntityName() string
}

type entityField struct {
	name  string
	index []int
	typ   reflect.Type
	// direct is false when the field is promoted through an embedded pointer,
	// which a typed accessor cannot reach on a zero value.
	direct bool
}

type entitySchema struct {
	entity string
	typ    reflect.Type
	fields []entityField
}

func schemaOf[T any]() (*entitySchema, error) {
	typ := reflect.TypeOf((*T)(nil)).Elem()
	if typ.Kind() != reflect.Struct {
		return &entitySchema{entity: typ.String(), typ: typ}, fmt.Errorf("%w: %s is not a struct", ErrInvalidEntity, typ)
	}

	schema := &entitySchema{entity: entityName[T](typ), typ: typ}
	for _, f := range reflect.VisibleFields(typ) {
		if !f.IsExported() || f.Anonymous {
			continue
		}
		name, ok := fieldName(f)
		if !ok {
			continue
		}
		schema.fields = append(schema.fields, entityField{
			name:   name,
			index:  f.Index,
			typ:    f.Type,
			direct: !throughPointer(typ, f.Index),
		})
	}
	return schema, nil
}

func entityName[T any](typ reflect.Type) string {
	var zero T
	if namer, ok := any(zero).(EntityNamer); ok {
		return namer.EntityName()
	}
	if namer, ok := any(&zero).(EntityNamer); ok {
		return namer.EntityName()
	}
	return typ.Name()
}

// fieldName returns the queryxml field name: the xml tag name when set,
// otherwise the Go field name. Fields tagged `xml:"-"` are not queryable.
func fieldName(f reflect.StructField) (string, bool) {
	tag, ok := f.Tag.Lookup("xml")
	if !ok {
		return f.Name, true
	}
	name, _, _ := strings.Cut(tag, ",")
	if name == "-" {
		return "", false
	}
	if name == "" {
		return f.Name, true
	}
	// namespaced tags look like "space name"
	if i := strings.LastIndexByte(name, ' '); i >= 0 {
		name = name[i+1:]
	}
	return name, true
}

func throughPointer(typ reflect.Type, index []int) bool {
	for _, i := range index[:len(index)-1] {
		f := typ.Field(i)
		if f.Type.Kind() == reflect.Pointer {
			return true
		}
		typ = f.Type
	}
	return false
}

// lookup resolves a field by queryxml name or by Go field name.
func (s *entitySchema) lookup(name string) (entityField, error) {
	for _, f := range s.fields {
		if f.name == name {
			return f, nil
		}
	}
	for _, f := range s.fields {
		if s.typ.FieldByIndex(f.index).Name == name {
			return f, nil
		}
	}

	reason := "no such field"
	if _, ok := reflect.PointerTo(s.typ).MethodByName(name); ok {
		reason = "refers to a method, not a field"
	}
	return entityField{}, &InvalidFieldReferenceError{Entity: s.entity, Field: name, Reason: reason}
}

// resolve runs the accessor against a zero value of the entity and matches the
// returned pointer against the addresses of the entity's fields.
func (s *entitySchema) resolve(accessor any, call func(base reflect.Value) any) (f entityField, err error) {
	invalid := func(reason string) error {
		return &InvalidFieldReferenceError{Entity: s.entity, Reason: reason}
	}
	if reflect.ValueOf(accessor).IsNil() {
		return entityField{}, invalid("accessor is nil")
	}

	base := reflect.New(s.typ)
	var ref any
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = invalid(fmt.Sprintf("accessor panicked: %v", r))
			}
		}()
		ref = call(base)
	}()
	if err != nil {
		return entityField{}, err
	}

	v := reflect.ValueOf(ref)
	if !v.IsValid() || v.Kind() != reflect.Pointer {
		return entityField{}, invalid(fmt.Sprintf("accessor returned %T, not a pointer to a field", ref))
	}
	if v.IsNil() {
		return entityField{}, invalid("accessor returned a nil pointer")
	}

	if v.Type().Elem().Size() == 0 {
		// zero-size fields share addresses, so the pointer cannot tell them apart
		return entityField{}, invalid("accessor points to a zero-size value; reference the field by name")
	}

	addr := v.Pointer()
	elem := base.Elem()
	for _, candidate := range s.fields {
		if !candidate.direct || v.Type().Elem() != candidate.typ {
			continue
		}
		if elem.FieldByIndex(candidate.index).Addr().Pointer() == addr {
			return candidate, nil
		}
	}
	return entityField{}, invalid(fmt.Sprintf("accessor does not point to a field of %s", s.typ))
}
