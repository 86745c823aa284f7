package eventbus

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/models"
)

func TestPublishDeliversInInsertionAndPublishOrder(t *testing.T) {
	bus := New(nil)
	var got []string

	bus.Subscribe(ListenerFunc(func(_ context.Context, e models.PipelineEvent) error {
		got = append(got, "A:"+e.Name)
		return nil
	}))
	bus.Subscribe(ListenerFunc(func(_ context.Context, e models.PipelineEvent) error {
		got = append(got, "B:"+e.Name)
		return nil
	}))

	bus.Publish(context.Background(), models.PipelineEvent{Name: "first"})
	bus.Publish(context.Background(), models.PipelineEvent{Name: "second"})

	assert.Equal(t, []string{"A:first", "B:first", "A:second", "B:second"}, got)
}

func TestPublishIsolatesListenerFailure(t *testing.T) {
	bus := New(nil)
	secondCalled := false

	bus.Subscribe(ListenerFunc(func(_ context.Context, _ models.PipelineEvent) error {
		return errors.New("boom")
	}))
	bus.Subscribe(ListenerFunc(func(_ context.Context, _ models.PipelineEvent) error {
		secondCalled = true
		return nil
	}))

	assert.NotPanics(t, func() {
		bus.Publish(context.Background(), models.PipelineEvent{Name: "x"})
	})
	assert.True(t, secondCalled)
}

func TestPublishIsolatesListenerPanic(t *testing.T) {
	bus := New(nil)
	secondCalled := false

	bus.Subscribe(ListenerFunc(func(_ context.Context, _ models.PipelineEvent) error {
		panic("kaboom")
	}))
	bus.Subscribe(ListenerFunc(func(_ context.Context, _ models.PipelineEvent) error {
		secondCalled = true
		return nil
	}))

	assert.NotPanics(t, func() {
		bus.Publish(context.Background(), models.PipelineEvent{Name: "x"})
	})
	assert.True(t, secondCalled)
}
