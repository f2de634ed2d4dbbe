package events

import (
	"context"
	"errors"
	"testing"
)

func TestInMemoryDispatcher_Publish(t *testing.T) {
	d := NewInMemoryDispatcher()
	ctx := context.Background()

	var created, deleted int
	boom := errors.New("boom")
	d.Subscribe(EventUserCreated, func(context.Context, Event) error {
		created++
		return boom
	})
	d.Subscribe(EventUserCreated, func(context.Context, Event) error {
		created++
		return nil
	})
	d.Subscribe(EventUserDeleted, func(context.Context, Event) error {
		deleted++
		return nil
	})

	err := d.Publish(ctx, NewUserEvent(EventUserCreated, 1, nil))
	if !errors.Is(err, boom) {
		t.Errorf("Publish() error = %v, want boom", err)
	}
	if created != 2 {
		t.Errorf("created handlers ran %d times, want 2", created)
	}
	if deleted != 0 {
		t.Errorf("deleted handler ran %d times, want 0", deleted)
	}

	if err := d.Publish(ctx, NewUserEvent(EventUserUpdated, 1, nil)); err != nil {
		t.Errorf("Publish() without listeners error = %v", err)
	}
}

func TestNewUserEvent(t *testing.T) {
	a := NewUserEvent(EventUserDeleted, 9, nil)
	b := NewUserEvent(EventUserDeleted, 9, nil)
	if a.ID == "" || a.ID == b.ID {
		t.Errorf("event ids should be unique and non-empty: %q %q", a.ID, b.ID)
	}
	if a.UserID != 9 || a.Type != EventUserDeleted {
		t.Errorf("NewUserEvent() = %+v", a)
	}
	if a.Timestamp.IsZero() {
		t.Error("timestamp not set")
	}
}

func TestInMemoryDispatcher_SubscribeDuringPublish(t *testing.T) {
	d := NewInMemoryDispatcher()
	ctx := context.Background()

	var late int
	d.Subscribe(EventUserDeleted, func(context.Context, Event) error {
		// Registering from inside a handler must not deadlock.
		d.Subscribe(EventUserDeleted, func(context.Context, Event) error {
			late++
			return nil
		})
		return nil
	})

	if err := d.Publish(ctx, NewUserEvent(EventUserDeleted, 3, nil)); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if late != 0 {
		t.Errorf("handler added during Publish ran %d times in that Publish, want 0", late)
	}
	if err := d.Publish(ctx, NewUserEvent(EventUserDeleted, 3, nil)); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if late != 1 {
		t.Errorf("handler added during first Publish ran %d times on the second, want 1", late)
	}
}
