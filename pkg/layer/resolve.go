package layer

import (
	"fmt"
	"reflect"

	"github.com/newstack-cloud/celerity-core/pkg/module"
)

// Resolve turns a LayerRef into a Layer: a class reference is instantiated
// with a zero-argument constructor, an instance reference is used directly.
func Resolve(ref module.LayerRef) (Layer, error) {
	if !ref.IsClass() {
		l, ok := ref.Instance.(Layer)
		if !ok {
			return nil, fmt.Errorf("layer: instance reference of type %T does not implement Layer", ref.Instance)
		}
		return l, nil
	}

	t := ref.Class.Type
	if t == nil || t.Kind() != reflect.Ptr {
		return nil, fmt.Errorf("layer: class reference %s must be a pointer type to zero-construct", ref.Class)
	}

	v := reflect.New(t.Elem()).Interface()
	l, ok := v.(Layer)
	if !ok {
		return nil, fmt.Errorf("layer: class reference %s does not implement Layer", ref.Class)
	}
	return l, nil
}

// ResolveAll resolves a slice of LayerRefs in order, stopping at the first
// error.
func ResolveAll(refs []module.LayerRef) ([]Layer, error) {
	out := make([]Layer, 0, len(refs))
	for _, ref := range refs {
		l, err := Resolve(ref)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, nil
}
