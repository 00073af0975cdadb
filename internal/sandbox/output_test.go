package sandbox

import (
	"strings"
	"testing"
)

func TestCappedBuffer(t *testing.T) {
	t.Run("under limit", func(t *testing.T) {
		b := newCappedBuffer(10)
		b.Write([]byte("hello"))
		if b.String() != "hello" {
			t.Errorf("got %q", b.String())
		}
		if b.Truncated() {
			t.Error("should not be truncated")
		}
	})

	t.Run("over limit truncates once", func(t *testing.T) {
		b := newCappedBuffer(4)
		b.Write([]byte("abcdef"))
		b.Write([]byte("ghi"))
		got := b.String()
		if !strings.HasPrefix(got, "abcd") {
			t.Errorf("got %q", got)
		}
		if !strings.HasSuffix(got, truncationMarker) {
			t.Errorf("missing marker: %q", got)
		}
		if strings.Count(got, "[output truncated]") != 1 {
			t.Errorf("marker must appear once: %q", got)
		}
		if !b.Truncated() {
			t.Error("Truncated() = false")
		}
	})

	t.Run("writes never error", func(t *testing.T) {
		b := newCappedBuffer(1)
		n, err := b.Write([]byte("xyz"))
		if err != nil || n != 3 {
			t.Errorf("Write = (%d, %v), exec.Cmd requires full-write semantics", n, err)
		}
	})
}
