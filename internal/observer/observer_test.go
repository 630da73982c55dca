package observer

import (
	"errors"
	"slices"
	"testing"
)

type receiver struct{ name string }

func TestDispatcherRegisterReturnsCallback(t *testing.T) {
	d := NewDispatcher()
	called := 0
	cb := d.Register(func(any, string, any) error { called++; return nil })
	if cb == nil {
		t.Fatal("Register() returned nil")
	}

	if err := cb(nil, "", nil); err != nil {
		t.Fatalf("callback error = %v", err)
	}
	if called != 1 {
		t.Errorf("called = %d, want 1", called)
	}
	if d.Len() != 1 {
		t.Errorf("Len() = %d, want 1", d.Len())
	}
}

func TestDispatcherNotifyOrder(t *testing.T) {
	d := NewDispatcher()
	var order []string
	for _, name := range []string{"first", "second", "third"} {
		name := name
		d.Register(func(target any, key string, value any) error {
			order = append(order, name+":"+key+":"+value.(string))
			return nil
		})
	}

	if err := d.Notify(nil, "k", "v"); err != nil {
		t.Fatalf("Notify() error = %v", err)
	}
	want := []string{"first:k:v", "second:k:v", "third:k:v"}
	if !slices.Equal(order, want) {
		t.Errorf("order = %v, want %v", order, want)
	}
}

func TestDispatcherNotifyStopsOnError(t *testing.T) {
	d := NewDispatcher()
	boom := errors.New("boom")
	reached := false
	d.Register(func(any, string, any) error { return boom })
	d.Register(func(any, string, any) error { reached = true; return nil })

	if err := d.Notify(nil, "k", 1); !errors.Is(err, boom) {
		t.Errorf("Notify() error = %v, want %v", err, boom)
	}
	if reached {
		t.Error("callback after the failing one was called")
	}
}

func TestObservableReportsUnderTarget(t *testing.T) {
	d := NewDispatcher()
	target := &receiver{name: "coordinator"}

	var gotTarget any
	var gotKey string
	var gotValue any
	d.Register(func(tg any, key string, value any) error {
		gotTarget, gotKey, gotValue = tg, key, value
		return nil
	})

	o := NewObservable(d, "chosen_categories", target, []string{"Bread"})
	if got := o.Get(); !slices.Equal(got, []string{"Bread"}) {
		t.Errorf("Get() = %v, want [Bread]", got)
	}

	if err := o.Set([]string{"Rent"}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if gotTarget != any(target) {
		t.Errorf("target = %v, want %v", gotTarget, target)
	}
	if gotKey != "chosen_categories" {
		t.Errorf("key = %q, want chosen_categories", gotKey)
	}
	if v, ok := gotValue.([]string); !ok || !slices.Equal(v, []string{"Rent"}) {
		t.Errorf("value = %v, want [Rent]", gotValue)
	}
	if got := o.Get(); !slices.Equal(got, []string{"Rent"}) {
		t.Errorf("Get() = %v, want [Rent]", got)
	}
}

func TestObservableNotifiesOnEqualValue(t *testing.T) {
	d := NewDispatcher()
	notifications := 0
	d.Register(func(any, string, any) error { notifications++; return nil })

	o := NewObservable(d, "chosen_category_type", nil, 0)
	for i := 0; i < 2; i++ {
		if err := o.Set(1); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
	}
	if notifications != 2 {
		t.Errorf("notifications = %d, want 2", notifications)
	}
}

func TestObservableSubscribe(t *testing.T) {
	d := NewDispatcher()
	var seen []int
	dispatched := false
	d.Register(func(any, string, any) error {
		if len(seen) != 0 {
			t.Error("subscriber ran before the dispatcher")
		}
		dispatched = true
		return nil
	})

	o := NewObservable(d, "n", nil, 0)
	o.Subscribe(func(v int) error { seen = append(seen, v); return nil })

	if err := o.Set(7); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if !dispatched {
		t.Error("dispatcher not notified")
	}
	if !slices.Equal(seen, []int{7}) {
		t.Errorf("seen = %v, want [7]", seen)
	}
}

func TestObservableKeepsValueWhenListenerFails(t *testing.T) {
	d := NewDispatcher()
	d.Register(func(any, string, any) error { return errors.New("listener failed") })

	o := NewObservable(d, "n", nil, 1)
	if err := o.Set(2); err == nil {
		t.Fatal("Set() error = nil, want listener error")
	}
	if o.Get() != 2 {
		t.Errorf("Get() = %d, want 2", o.Get())
	}
}
