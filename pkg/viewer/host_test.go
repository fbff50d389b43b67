package viewer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHeadlessHostReleaseUnblocksSenders(t *testing.T) {
	h := NewHeadlessHost(10, 10)
	for range cap(h.input) {
		h.Send(InputEvent{Kind: InputReset})
	}
	for range cap(h.resizes) {
		h.Resize(20, 20)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.Send(InputEvent{Kind: InputQuit})
		h.Resize(30, 30)
	}()

	select {
	case <-done:
		t.Fatal("send on a full host should block until release")
	case <-time.After(20 * time.Millisecond):
	}

	h.Release()
	h.Release()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("release did not unblock pending sends")
	}

	assert.True(t, h.Released())
	w, hh := h.Size()
	assert.Equal(t, 30, w)
	assert.Equal(t, 30, hh)
}
