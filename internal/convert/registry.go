// Package convert dispatches between pipe geometry values and a host's native
// objects through a kind-tagged binding table.
package convert

import (
	"errors"
	"fmt"
	"slices"

	"thepipe/internal/datatree"
	"thepipe/internal/geometry"
)

// Classifier maps a host object to the kind it converts to.
type Classifier[H any] func(H) (geometry.Kind, bool)

type binding[H any] struct {
	toPipe   func(H) (geometry.Value, error)
	fromPipe func(geometry.Value) ([]H, error)
	// accepts checks the value's Go type against the binding's P before the
	// destination sees it.
	accepts func(geometry.Value) error
}

// Registry converts between values of host root type H and geometry values.
// A Registry is not safe for concurrent registration; build it up front and
// share it read-only afterwards.
type Registry[H any] struct {
	classifiers []Classifier[H]
	bindings    map[geometry.Kind]binding[H]
}

// NewRegistry returns an empty registry that classifies host objects with
// classify.
func NewRegistry[H any](classify Classifier[H]) *Registry[H] {
	r := &Registry[H]{bindings: make(map[geometry.Kind]binding[H])}
	if classify != nil {
		r.classifiers = append(r.classifiers, classify)
	}
	return r
}

// Register binds kind to a pair of conversions over the concrete pipe type P.
func Register[H any, P geometry.Value](r *Registry[H], kind geometry.Kind, toPipe func(H) (P, error), fromPipe func(P) (H, error)) error {
	return RegisterExpand(r, kind, toPipe, func(p P) ([]H, error) {
		h, err := fromPipe(p)
		if err != nil {
			return nil, err
		}
		return []H{h}, nil
	})
}

// RegisterExpand is Register for destinations that build several host
// objects from one value. The results are flattened into the batch.
func RegisterExpand[H any, P geometry.Value](r *Registry[H], kind geometry.Kind, toPipe func(H) (P, error), fromPipe func(P) ([]H, error)) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: %d", ErrUnsupportedKind, uint16(kind))
	}
	if _, exists := r.bindings[kind]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateBinding, kind)
	}
	b := binding[H]{}
	if toPipe != nil {
		b.toPipe = func(h H) (geometry.Value, error) { return toPipe(h) }
	}
	if fromPipe != nil {
		b.accepts = func(v geometry.Value) error {
			if p, ok := v.(P); !ok {
				return fmt.Errorf("%w: %s binding expects %T, got %T", ErrBindingMismatch, kind, p, v)
			}
			return nil
		}
		b.fromPipe = func(v geometry.Value) ([]H, error) { return fromPipe(v.(P)) }
	}
	r.bindings[kind] = b
	return nil
}

// Include merges every binding and classifier of sub. Overlapping kinds are
// rejected and leave r unchanged.
func (r *Registry[H]) Include(sub *Registry[H]) error {
	for kind := range sub.bindings {
		if _, exists := r.bindings[kind]; exists {
			return fmt.Errorf("%w: %s", ErrDuplicateBinding, kind)
		}
	}
	for kind, b := range sub.bindings {
		r.bindings[kind] = b
	}
	r.classifiers = append(r.classifiers, sub.classifiers...)
	return nil
}

// Supports reports whether kind converts in both directions.
func (r *Registry[H]) Supports(kind geometry.Kind) bool {
	b, ok := r.bindings[kind]
	return ok && b.toPipe != nil && b.fromPipe != nil
}

// Kinds lists registered kinds in tag order.
func (r *Registry[H]) Kinds() []geometry.Kind {
	out := make([]geometry.Kind, 0, len(r.bindings))
	for k := range r.bindings {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// Require reports every kind in kinds that lacks a two-way binding.
func (r *Registry[H]) Require(kinds ...geometry.Kind) error {
	var errs []error
	for _, k := range kinds {
		if !r.Supports(k) {
			errs = append(errs, &UnsupportedKindError{Kind: k})
		}
	}
	return errors.Join(errs...)
}

// Classify resolves the kind a host object converts to.
func (r *Registry[H]) Classify(h H) (geometry.Kind, bool) {
	for _, c := range r.classifiers {
		if k, ok := c(h); ok {
			return k, true
		}
	}
	return geometry.KindInvalid, false
}

// ToPipe converts one host object.
func (r *Registry[H]) ToPipe(h H) (geometry.Value, error) {
	kind, ok := r.Classify(h)
	if !ok {
		return nil, &UnsupportedKindError{HostType: fmt.Sprintf("%T", h)}
	}
	b, ok := r.bindings[kind]
	if !ok || b.toPipe == nil {
		return nil, &UnsupportedKindError{Kind: kind, HostType: fmt.Sprintf("%T", h)}
	}
	v, err := b.toPipe(h)
	if err != nil {
		return nil, fmt.Errorf("convert %s to pipe: %w", kind, err)
	}
	return v, nil
}

// FromPipeAll converts one value into the host objects it produces.
// Destination failures surface as *ReconstructionError; a value whose Go type
// the binding was not registered for fails with ErrBindingMismatch before the
// destination is called.
func (r *Registry[H]) FromPipeAll(v geometry.Value) ([]H, error) {
	if v == nil {
		return nil, &UnsupportedKindError{HostType: "nil"}
	}
	kind := v.Kind()
	b, ok := r.bindings[kind]
	if !ok || b.fromPipe == nil {
		return nil, &UnsupportedKindError{Kind: kind}
	}
	if err := b.accepts(v); err != nil {
		return nil, err
	}
	out, err := b.fromPipe(v)
	if err != nil {
		var rerr *ReconstructionError
		if errors.As(err, &rerr) {
			return nil, err
		}
		return nil, &ReconstructionError{Kind: kind, Diagnostic: err.Error(), Err: err}
	}
	return out, nil
}

// FromPipe converts one value into exactly one host object.
func (r *Registry[H]) FromPipe(v geometry.Value) (H, error) {
	var zero H
	out, err := r.FromPipeAll(v)
	if err != nil {
		return zero, err
	}
	if len(out) != 1 {
		return zero, Reconstruction(v.Kind(), fmt.Sprintf("expected one host object, got %d", len(out)))
	}
	return out[0], nil
}

// TreeToPipe wraps the converted host objects as leaves of one group node.
// Every object is attempted; unsupported kinds are reported together.
func (r *Registry[H]) TreeToPipe(objects []H) (*datatree.Node, error) {
	values := make([]geometry.Value, 0, len(objects))
	var errs []error
	for _, h := range objects {
		v, err := r.ToPipe(h)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		values = append(values, v)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return datatree.Leaves(values...), nil
}

// Tagged is a host object with the kind of the value it was built from.
type Tagged[H any] struct {
	Kind   geometry.Kind
	Object H
}

// TreeFromPipe converts every payload of tree depth-first, flattening
// multi-object conversions. Unsupported kinds are collected and reported
// together; the first reconstruction failure aborts.
func (r *Registry[H]) TreeFromPipe(tree *datatree.Node) ([]H, error) {
	tagged, err := r.TreeFromPipeTagged(tree)
	if err != nil {
		return nil, err
	}
	out := make([]H, len(tagged))
	for i, t := range tagged {
		out[i] = t.Object
	}
	return out, nil
}

// TreeFromPipeTagged is TreeFromPipe keeping each object's source kind.
func (r *Registry[H]) TreeFromPipeTagged(tree *datatree.Node) ([]Tagged[H], error) {
	var (
		out         []Tagged[H]
		unsupported []error
		seen        = make(map[geometry.Kind]bool)
	)
	for _, v := range tree.Payloads() {
		hs, err := r.FromPipeAll(v)
		if errors.Is(err, ErrUnsupportedKind) {
			if !seen[v.Kind()] {
				seen[v.Kind()] = true
				unsupported = append(unsupported, err)
			}
			continue
		}
		if err != nil {
			return nil, err
		}
		for _, h := range hs {
			out = append(out, Tagged[H]{Kind: v.Kind(), Object: h})
		}
	}
	if len(unsupported) > 0 {
		return nil, errors.Join(unsupported...)
	}
	return out, nil
}
