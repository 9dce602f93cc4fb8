// Package atws holds the entity records returned by the ATWS query operation.
package atws

import (
	"encoding/xml"
	"fmt"
	"strings"
	"sync"

	"github.com/beevik/etree"
)

// Entity is a record returned in the EntityResults of a query.
type Entity interface {
	EntityType() string
}

// Field is one child element of an entity record.
type Field struct {
	Name  string
	Value string
}

// GenericEntity holds records of types without a registered Go type.
type GenericEntity struct {
	Type   string
	Fields []Field
}

func (e *GenericEntity) EntityType() string { return e.Type }

// Get returns the value of the first field called name.
func (e *GenericEntity) Get(name string) (string, bool) {
	for _, f := range e.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

var (
	registryMu sync.RWMutex
	registry   = map[string]func() Entity{}
)

// Register makes DecodeEntity decode records of typeName with the entity
// returned by factory. The factory must return a pointer to a struct.
func Register(typeName string, factory func() Entity) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[strings.ToLower(typeName)] = factory
}

func lookup(typeName string) (func() Entity, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	factory, ok := registry[strings.ToLower(typeName)]
	return factory, ok
}

// DecodeEntity decodes an <Entity xsi:type="..."> element. Unregistered types
// decode into a *GenericEntity.
func DecodeEntity(el *etree.Element) (Entity, error) {
	typeName := entityType(el)
	if typeName == "" {
		return nil, fmt.Errorf("entity element <%s> has no xsi:type", el.Tag)
	}

	factory, ok := lookup(typeName)
	if !ok {
		generic := &GenericEntity{Type: typeName}
		for _, child := range el.ChildElements() {
			generic.Fields = append(generic.Fields, Field{Name: child.Tag, Value: child.Text()})
		}
		return generic, nil
	}

	doc := etree.NewDocument()
	doc.SetRoot(el.Copy())
	b, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize %s entity: %w", typeName, err)
	}

	entity := factory()
	if err := xml.Unmarshal(b, entity); err != nil {
		return nil, fmt.Errorf("failed to decode %s entity: %w", typeName, err)
	}
	return entity, nil
}

// entityType returns the xsi:type of el without a namespace prefix.
func entityType(el *etree.Element) string {
	for _, attr := range el.Attr {
		if attr.Key == "type" && (attr.Space == "xsi" || attr.NamespaceURI() == "http://www.w3.org/2001/XMLSchema-instance") {
			_, name, found := strings.Cut(attr.Value, ":")
			if !found {
				return attr.Value
			}
			return name
		}
	}
	return ""
}
