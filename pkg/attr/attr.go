// Package attr provides checked, typed access to the named attributes of
// run metadata and events.
package attr

import (
	"reflect"

	"github.com/NuHepMC/ReferenceImplementation/internal/model"
	lferrors "github.com/NuHepMC/ReferenceImplementation/pkg/errors"
)

// Holder is anything that carries named attributes. *model.RunMetadata and
// *model.Event implement it.
type Holder interface {
	Attribute(name string) (model.Attribute, bool)
	AttributeNames() []string
}

// Value lists the Go types an attribute can be read as.
type Value interface {
	int | float64 | string | []int | []float64 | []string
}

// KindOf returns the attribute kind that stores T.
func KindOf[T Value]() model.AttrKind {
	var zero T
	switch any(zero).(type) {
	case int:
		return model.AttrInt
	case float64:
		return model.AttrDouble
	case string:
		return model.AttrString
	case []int:
		return model.AttrVectorInt
	case []float64:
		return model.AttrVectorDouble
	default:
		return model.AttrVectorString
	}
}

func isNil(h Holder) bool {
	if h == nil {
		return true
	}
	v := reflect.ValueOf(h)
	return v.Kind() == reflect.Pointer && v.IsNil()
}

// Has reports whether h carries an attribute called name. An absent holder
// has no attributes.
func Has(h Holder, name string) bool {
	if isNil(h) {
		return false
	}
	_, ok := h.Attribute(name)
	return ok
}

// Get reads attribute name as T. It fails with a null-entity error when h is
// absent, a missing-attribute error when no such attribute exists and a type
// error when it is stored as something other than T.
func Get[T Value](h Holder, name string) (T, error) {
	var zero T
	if isNil(h) {
		return zero, lferrors.NullEntity(name)
	}
	a, ok := h.Attribute(name)
	if !ok {
		return zero, lferrors.MissingAttribute(name, h.AttributeNames())
	}
	kind := KindOf[T]()
	converted, err := a.Convert(kind)
	if err != nil {
		return zero, lferrors.AttributeType(name, kind.String(), err)
	}
	v, ok := converted.Value.(T)
	if !ok {
		return zero, lferrors.AttributeType(name, kind.String(), nil)
	}
	return v, nil
}

// GetOr reads attribute name as T, returning def only when the attribute is
// missing. Type errors and null entities are still returned.
func GetOr[T Value](h Holder, name string, def T) (T, error) {
	v, err := Get[T](h, name)
	if lferrors.IsCode(err, lferrors.CodeMissingAttribute) {
		return def, nil
	}
	return v, err
}
