package bot

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcus/taskbot/internal/chat"
)

type orderHandler struct {
	mu    sync.Mutex
	seen  map[int64][]string
	total int
	done  chan struct{}
	want  int
}

func (h *orderHandler) Handle(_ context.Context, ev chat.Event) {
	if ev.Text == "panic" {
		panic("boom")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seen[ev.ChatID] = append(h.seen[ev.ChatID], ev.Text)
	h.total++
	if h.total == h.want {
		close(h.done)
	}
}

func TestDispatcherKeepsPerChatOrder(t *testing.T) {
	const chats, perChat = 5, 40
	h := &orderHandler{seen: map[int64][]string{}, done: make(chan struct{}), want: chats * perChat}
	d := NewDispatcher(h, 3, 4, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errc := make(chan error, 1)
	go func() { errc <- d.Run(ctx) }()

	for i := 0; i < perChat; i++ {
		for c := int64(1); c <= chats; c++ {
			require.NoError(t, d.Dispatch(ctx, chat.Event{ChatID: c, Text: string(rune('a' + i%26))}))
		}
	}

	select {
	case <-h.done:
	case <-time.After(5 * time.Second):
		t.Fatal("events not handled in time")
	}

	h.mu.Lock()
	for c := int64(1); c <= chats; c++ {
		got := h.seen[c]
		require.Len(t, got, perChat)
		for i, s := range got {
			assert.Equal(t, string(rune('a'+i%26)), s, "chat %d event %d", c, i)
		}
	}
	h.mu.Unlock()

	cancel()
	assert.NoError(t, <-errc)
}

func TestDispatcherSurvivesPanics(t *testing.T) {
	h := &orderHandler{seen: map[int64][]string{}, done: make(chan struct{}), want: 1}
	d := NewDispatcher(h, 1, 2, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	require.NoError(t, d.Dispatch(ctx, chat.Event{ChatID: 1, Text: "panic"}))
	require.NoError(t, d.Dispatch(ctx, chat.Event{ChatID: 1, Text: "after"}))

	select {
	case <-h.done:
	case <-time.After(5 * time.Second):
		t.Fatal("worker died after panic")
	}
}

func TestDispatchHonoursContext(t *testing.T) {
	d := NewDispatcher(&orderHandler{}, 1, 1, nil)
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, d.Dispatch(ctx, chat.Event{ChatID: 1}))
	cancel()
	assert.ErrorIs(t, d.Dispatch(ctx, chat.Event{ChatID: 1}), context.Canceled)
}

func TestPartition(t *testing.T) {
	d := NewDispatcher(&orderHandler{}, 4, 1, nil)
	tests := []struct {
		chatID int64
		want   int
	}{
		{0, 0},
		{5, 1},
		{-5, 3},
		{-1001234567890, int((-1001234567890%4 + 4) % 4)},
	}
	for _, tt := range tests {
		if got := d.partition(tt.chatID); got != tt.want {
			t.Errorf("partition(%d) = %d, want %d", tt.chatID, got, tt.want)
		}
	}
}

func TestNewDispatcherClampsWorkers(t *testing.T) {
	tests := []struct {
		workers int
		want    int
	}{
		{0, 1},
		{-3, 1},
		{1, 1},
		{8, 8},
	}
	for _, tt := range tests {
		if got := NewDispatcher(&orderHandler{}, tt.workers, 0, nil).Workers(); got != tt.want {
			t.Errorf("Workers() with %d = %d, want %d", tt.workers, got, tt.want)
		}
	}
}
