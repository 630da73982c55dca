// Package observer propagates state changes from the object that owns them
// to the object that wants to be told about them.
//
// A Dispatcher keeps an ordered list of callbacks. An Observable wraps one
// value; writing it notifies the dispatcher on behalf of a notify target,
// which lets one dispatcher serve many values across objects while every
// change is reported under the identity of the receiver.
package observer

import "sync"

// Callback receives the notify target, the property key and the new value.
// A returned error stops the notification chain.
type Callback func(target any, key string, value any) error

// Dispatcher calls registered callbacks synchronously in registration order.
// It is not reentrant: a callback must not write the observable that is
// notifying it.
type Dispatcher struct {
	mu        sync.RWMutex
	callbacks []Callback
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

// Register appends cb and returns it unchanged.
func (d *Dispatcher) Register(cb Callback) Callback {
	d.mu.Lock()
	d.callbacks = append(d.callbacks, cb)
	d.mu.Unlock()
	return cb
}

// Notify calls every callback with the same arguments. The first error is
// returned and the remaining callbacks are skipped. Panics are not recovered.
func (d *Dispatcher) Notify(target any, key string, value any) error {
	d.mu.RLock()
	callbacks := make([]Callback, len(d.callbacks))
	copy(callbacks, d.callbacks)
	d.mu.RUnlock()

	for _, cb := range callbacks {
		if err := cb(target, key, value); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of registered callbacks.
func (d *Dispatcher) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.callbacks)
}

// Observable is a value whose every write is announced. Writes are never
// compared with the previous value: setting the same value notifies again.
type Observable[T any] struct {
	value       T
	key         string
	target      any
	dispatcher  *Dispatcher
	subscribers []func(T) error
}

// NewObservable binds a value to a dispatcher. Changes are reported under
// key on behalf of target. The initial value is stored without notifying.
func NewObservable[T any](d *Dispatcher, key string, target any, initial T) *Observable[T] {
	return &Observable[T]{value: initial, key: key, target: target, dispatcher: d}
}

func (o *Observable[T]) Get() T { return o.value }

func (o *Observable[T]) Key() string { return o.key }

// Set stores v, then notifies the dispatcher, then the typed subscribers.
// The value stays written when a listener fails.
func (o *Observable[T]) Set(v T) error {
	o.value = v
	if o.dispatcher != nil {
		if err := o.dispatcher.Notify(o.target, o.key, v); err != nil {
			return err
		}
	}
	for _, fn := range o.subscribers {
		if err := fn(v); err != nil {
			return err
		}
	}
	return nil
}

// Subscribe adds a typed listener called after the dispatcher on every Set.
func (o *Observable[T]) Subscribe(fn func(T) error) {
	o.subscribers = append(o.subscribers, fn)
}
