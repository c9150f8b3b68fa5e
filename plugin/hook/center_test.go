package hook

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrigger_NoHandlers(t *testing.T) {
	hc := NewHookCenter()
	ev := &Event{Type: OnTextShown, Text: "hi"}
	require.NoError(t, hc.Trigger(context.Background(), ev))
	assert.Equal(t, "hi", ev.Text)
}

func TestTrigger_NilCenter(t *testing.T) {
	var hc *HookCenter
	assert.NoError(t, hc.Trigger(context.Background(), &Event{Type: OnTextShown}))
}

func TestTrigger_HandlersRewriteEvent(t *testing.T) {
	hc := NewHookCenter()
	hc.Register(OnTextShown, 0, "upper", func(_ context.Context, ev *Event) error {
		ev.Speaker = "Aoi"
		return nil
	})
	hc.Register(OnTextShown, 1, "suffix", func(_ context.Context, ev *Event) error {
		ev.Text += "!"
		return nil
	})
	ev := &Event{Type: OnTextShown, Speaker: "aoi", Text: "hello"}
	require.NoError(t, hc.Trigger(context.Background(), ev))
	assert.Equal(t, "Aoi", ev.Speaker)
	assert.Equal(t, "hello!", ev.Text)
}

func TestTrigger_PriorityOrder(t *testing.T) {
	hc := NewHookCenter()
	var order []int
	for _, p := range []int{10, 1, 5} {
		p := p
		hc.Register(OnChoiceSelected, p, "h", func(context.Context, *Event) error {
			order = append(order, p)
			return nil
		})
	}
	require.NoError(t, hc.Trigger(context.Background(), &Event{Type: OnChoiceSelected}))
	assert.Equal(t, []int{1, 5, 10}, order)
}

func TestTrigger_OnlyMatchingEvent(t *testing.T) {
	hc := NewHookCenter()
	called := false
	hc.Register(OnScriptFinished, 0, "h", func(context.Context, *Event) error {
		called = true
		return nil
	})
	require.NoError(t, hc.Trigger(context.Background(), &Event{Type: OnScriptLoaded}))
	assert.False(t, called)
}

func TestTrigger_ErrInterrupt(t *testing.T) {
	hc := NewHookCenter()
	secondCalled := false
	hc.Register(BeforeChoiceSelect, 0, "veto", func(context.Context, *Event) error {
		return ErrInterrupt
	})
	hc.Register(BeforeChoiceSelect, 1, "after", func(context.Context, *Event) error {
		secondCalled = true
		return nil
	})
	err := hc.Trigger(context.Background(), &Event{Type: BeforeChoiceSelect})
	assert.True(t, errors.Is(err, ErrInterrupt))
	assert.False(t, secondCalled)
}

func TestTrigger_OtherErrorsContinue(t *testing.T) {
	hc := NewHookCenter()
	secondCalled := false
	hc.Register(OnTextShown, 0, "err", func(context.Context, *Event) error {
		return errors.New("publish failed")
	})
	hc.Register(OnTextShown, 1, "second", func(context.Context, *Event) error {
		secondCalled = true
		return nil
	})
	assert.NoError(t, hc.Trigger(context.Background(), &Event{Type: OnTextShown}))
	assert.True(t, secondCalled)
}

func TestUnregister_OnlyNamed(t *testing.T) {
	hc := NewHookCenter()
	var c1, c2 bool
	hc.Register(OnTextShown, 0, "h1", func(context.Context, *Event) error { c1 = true; return nil })
	hc.Register(OnTextShown, 1, "h2", func(context.Context, *Event) error { c2 = true; return nil })
	hc.Unregister(OnTextShown, "h1")
	require.NoError(t, hc.Trigger(context.Background(), &Event{Type: OnTextShown}))
	assert.False(t, c1)
	assert.True(t, c2)
}

func TestUnregisterAll(t *testing.T) {
	hc := NewHookCenter()
	var a, b, other bool
	hc.Register(OnTextShown, 0, "sse", func(context.Context, *Event) error { a = true; return nil })
	hc.Register(OnChoiceShown, 0, "sse", func(context.Context, *Event) error { b = true; return nil })
	hc.Register(OnChoiceShown, 1, "log", func(context.Context, *Event) error { other = true; return nil })
	hc.UnregisterAll("sse")
	_ = hc.Trigger(context.Background(), &Event{Type: OnTextShown})
	_ = hc.Trigger(context.Background(), &Event{Type: OnChoiceShown})
	assert.False(t, a)
	assert.False(t, b)
	assert.True(t, other)
}
