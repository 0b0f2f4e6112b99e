package bus

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testObserver struct {
	publishCount   int
	deliveredCount int
	lastErr        error
}

func (o *testObserver) OnPublish(_, _ string, _ Event) {
	o.publishCount++
}

func (o *testObserver) OnDelivered(_, _ string, handlers int, err error, _ int64) {
	o.deliveredCount += handlers
	o.lastErr = err
}

func TestBasicPublishSubscribe(t *testing.T) {
	b := New()
	var got Event
	_, err := b.Subscribe("pose.committed", func(e Event) error {
		got = e
		return nil
	})
	require.NoError(t, err)

	ev := NewEvent("pose.committed", "scene", 123, map[string]any{"body": "modelA"})
	require.NoError(t, b.Publish(ev))
	require.NotNil(t, got)
	assert.Equal(t, ev.ID(), got.ID())
	assert.Equal(t, 123, got.Data())
	assert.Equal(t, "scene", got.Source())
	assert.NotEmpty(t, got.ID())
}

func TestDeliveryOrderFollowsSubscriptionOrder(t *testing.T) {
	b := New()
	var order []int
	for i := 0; i < 5; i++ {
		i := i
		_, err := b.Subscribe("e", func(Event) error {
			order = append(order, i)
			return nil
		})
		require.NoError(t, err)
	}
	require.NoError(t, b.Publish(NewEvent("e", "src", nil, nil)))
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestCancelStopsDelivery(t *testing.T) {
	b := New()
	calls := 0
	sub, err := b.Subscribe("e", func(Event) error { calls++; return nil })
	require.NoError(t, err)

	require.NoError(t, b.Publish(NewEvent("e", "src", nil, nil)))
	require.NoError(t, b.Unsubscribe(sub))
	require.NoError(t, sub.Cancel())
	assert.False(t, sub.IsActive())
	require.NoError(t, b.Publish(NewEvent("e", "src", nil, nil)))
	assert.Equal(t, 1, calls)
	assert.NoError(t, b.Unsubscribe(nil))
}

func TestHandlerErrorsAreJoined(t *testing.T) {
	b := New()
	errA, errB := errors.New("a"), errors.New("b")
	_, _ = b.Subscribe("e", func(Event) error { return errA })
	_, _ = b.Subscribe("e", func(Event) error { return errB })
	err := b.Publish(NewEvent("e", "src", nil, nil))
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)
}

func TestNilHandlerRejected(t *testing.T) {
	_, err := New().Subscribe("e", nil)
	assert.ErrorIs(t, err, ErrNilHandler)
}

func TestTopicsIsolation(t *testing.T) {
	b := New()
	count1 := 0
	count2 := 0
	_, _ = b.SubscribeTopic("t1", "ev", func(e Event) error { count1++; return nil })
	_, _ = b.SubscribeTopic("t2", "ev", func(e Event) error { count2++; return nil })
	_ = b.PublishToTopic("t1", NewEvent("ev", "src", nil, nil))
	assert.Equal(t, 1, count1)
	assert.Equal(t, 0, count2)

	// the default topic does not see topic events
	defaultCalls := 0
	_, _ = b.Subscribe("ev", func(e Event) error { defaultCalls++; return nil })
	_ = b.PublishToTopic("t2", NewEvent("ev", "src", nil, nil))
	assert.Equal(t, 0, defaultCalls)
	assert.Equal(t, 1, count2)
}

func TestObserverMetricsOptional(t *testing.T) {
	b := New()
	_, _ = b.Subscribe("e", func(e Event) error { return nil })
	_ = b.Publish(NewEvent("e", "s", nil, nil))
	assert.Zero(t, b.GetMetrics().Published)

	obs := &testObserver{}
	b.AddObserver(obs)
	_ = b.Publish(NewEvent("e", "s", nil, nil))
	m := b.GetMetrics()
	assert.Equal(t, uint64(1), m.Published)
	assert.Equal(t, uint64(1), m.DeliveredHandlers)
	assert.Equal(t, uint64(1), m.SubscribersActive)
	assert.Equal(t, 1, obs.publishCount)
	assert.Equal(t, 1, obs.deliveredCount)

	b.RemoveObserver(obs)
	_ = b.Publish(NewEvent("e", "s", nil, nil))
	assert.Equal(t, 1, obs.publishCount)
}
