package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDispatcherRoutesByType(t *testing.T) {
	t.Parallel()

	d := NewInMemoryDispatcher()

	var got []Event
	d.Subscribe(EventTaskAssigned, func(_ context.Context, event Event) error {
		got = append(got, event)
		return nil
	})

	require.NoError(t, d.Publish(context.Background(), Event{Type: EventTaskAssigned, SubjectID: "u1"}))
	require.NoError(t, d.Publish(context.Background(), Event{Type: EventProjectCreated, SubjectID: "u1"}))

	require.Len(t, got, 1)
	require.Equal(t, EventTaskAssigned, got[0].Type)
}

func TestDispatcherContinuesPastHandlerErrors(t *testing.T) {
	t.Parallel()

	d := NewInMemoryDispatcher()

	calls := 0
	d.Subscribe(EventUserRegistered, func(context.Context, Event) error {
		calls++
		return errors.New("handler failed")
	})
	d.Subscribe(EventUserRegistered, func(context.Context, Event) error {
		calls++
		return nil
	})

	require.NoError(t, d.Publish(context.Background(), Event{Type: EventUserRegistered}))
	require.Equal(t, 2, calls)
}
