package refhost

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"

	"thepipe/internal/exchange"
)

var (
	// ErrNotFound is returned for an unknown object ID.
	ErrNotFound = errors.New("refhost: object not found")
	// ErrConflict is returned when another transaction committed first.
	ErrConflict = errors.New("refhost: document changed during transaction")
	// ErrTxDone is returned by a finished transaction.
	ErrTxDone = errors.New("refhost: transaction already finished")
)

// Validator lets a document reject objects the way a real host would.
type Validator func(Object) error

// Document stores objects in insertion order under generated IDs.
type Document struct {
	mu       sync.Mutex
	objects  map[string]Object
	order    []string
	revision int
	validate Validator
}

var _ exchange.Host[Object] = (*Document)(nil)

// DocumentOption configures a Document.
type DocumentOption func(*Document)

// WithValidator runs fn on every added or replaced object.
func WithValidator(fn Validator) DocumentOption {
	return func(d *Document) { d.validate = fn }
}

func NewDocument(opts ...DocumentOption) *Document {
	d := &Document{objects: make(map[string]Object)}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Len returns the number of stored objects.
func (d *Document) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.order)
}

// Get returns the object stored under id.
func (d *Document) Get(id string) (Object, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	obj, ok := d.objects[id]
	return obj, ok
}

// IDs returns object IDs in insertion order.
func (d *Document) IDs() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.order)
}

// Objects returns every object in insertion order.
func (d *Document) Objects() []Object {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Object, len(d.order))
	for i, id := range d.order {
		out[i] = d.objects[id]
	}
	return out
}

// Source exposes the whole document as a send selection.
func (d *Document) Source() exchange.Source[Object] {
	return func(context.Context) ([]Object, error) {
		return d.Objects(), nil
	}
}

// Add stores obj outside any transaction.
func (d *Document) Add(obj Object) (string, error) {
	tx, err := d.Begin(context.Background())
	if err != nil {
		return "", err
	}
	id, err := tx.Add(obj)
	if err != nil {
		_ = tx.Rollback()
		return "", err
	}
	return id, tx.Commit()
}

// Begin snapshots the document. Changes become visible on Commit.
func (d *Document) Begin(ctx context.Context) (exchange.Tx[Object], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	objects := make(map[string]Object, len(d.objects))
	for id, obj := range d.objects {
		objects[id] = obj
	}
	return &docTx{
		doc:      d,
		base:     d.revision,
		objects:  objects,
		order:    slices.Clone(d.order),
		validate: d.validate,
	}, nil
}

type docTx struct {
	doc      *Document
	base     int
	objects  map[string]Object
	order    []string
	validate Validator
	done     bool
}

func (t *docTx) check(obj Object) error {
	if t.done {
		return ErrTxDone
	}
	if obj == nil {
		return errors.New("refhost: nil object")
	}
	if t.validate != nil {
		if err := t.validate(obj); err != nil {
			return fmt.Errorf("refhost: rejected %s: %w", obj.ObjectType(), err)
		}
	}
	return nil
}

func (t *docTx) Add(obj Object) (string, error) {
	if err := t.check(obj); err != nil {
		return "", err
	}
	id := uuid.NewString()
	t.objects[id] = obj
	t.order = append(t.order, id)
	return id, nil
}

func (t *docTx) Replace(id string, obj Object) error {
	if err := t.check(obj); err != nil {
		return err
	}
	if _, ok := t.objects[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	t.objects[id] = obj
	return nil
}

func (t *docTx) Delete(id string) error {
	if t.done {
		return ErrTxDone
	}
	if _, ok := t.objects[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(t.objects, id)
	t.order = slices.DeleteFunc(t.order, func(s string) bool { return s == id })
	return nil
}

func (t *docTx) Commit() error {
	if t.done {
		return ErrTxDone
	}
	t.done = true
	d := t.doc
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.revision != t.base {
		return ErrConflict
	}
	d.objects, d.order = t.objects, t.order
	d.revision++
	return nil
}

func (t *docTx) Rollback() error {
	if t.done {
		return ErrTxDone
	}
	t.done = true
	return nil
}
