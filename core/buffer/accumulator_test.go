package buffer_test

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/momentics/linerelay/api"
	"github.com/momentics/linerelay/core/buffer"
	"github.com/momentics/linerelay/fake"
	"github.com/momentics/linerelay/pool"
)

// drain reads from s until it would block or closes.
func drain(t *testing.T, acc *buffer.Accumulator, s *fake.Socket) error {
	t.Helper()
	for {
		if _, err := acc.AppendFrom(s); err != nil {
			return err
		}
	}
}

func TestAccumulatorChunkBoundaryTransparency(t *testing.T) {
	msg := append(bytes.Repeat([]byte("0123456789"), 100), '\n')
	for _, size := range []int{1, 3, 7, 64, 512} {
		cp := pool.NewChunkPool(size)
		acc := buffer.NewAccumulator(cp)
		s := fake.NewSocket(3, "peer")
		s.Feed(msg)

		if err := drain(t, acc, s); !errors.Is(err, api.ErrWouldBlock) {
			t.Fatalf("C=%d: drain ended with %v, want ErrWouldBlock", size, err)
		}
		if acc.Len() != len(msg) {
			t.Fatalf("C=%d: Len() = %d, want %d", size, acc.Len(), len(msg))
		}
		p := acc.Take()
		if want := (len(msg) + size - 1) / size; p.Chunks() != want {
			t.Errorf("C=%d: payload holds %d chunks, want %d", size, p.Chunks(), want)
		}
		if !bytes.Equal(p.Bytes(), msg) {
			t.Errorf("C=%d: payload differs from input", size)
		}
		if acc.Len() != 0 || acc.Chunks() != 0 {
			t.Errorf("C=%d: accumulator not empty after Take", size)
		}
	}
}

func TestAccumulatorAllocatesLazily(t *testing.T) {
	acc := buffer.NewAccumulator(pool.NewChunkPool(4))
	s := fake.NewSocket(3, "peer")

	steps := []struct {
		feed   string
		chunks int
	}{
		{"ab", 1},
		{"cd", 1},
		{"e", 2},
	}
	for _, st := range steps {
		s.Feed([]byte(st.feed))
		if _, err := acc.AppendFrom(s); err != nil {
			t.Fatalf("AppendFrom(%q): %v", st.feed, err)
		}
		if acc.Chunks() != st.chunks {
			t.Errorf("after %q: %d chunks, want %d", st.feed, acc.Chunks(), st.chunks)
		}
	}
}

func TestAccumulatorSingleReadPerCall(t *testing.T) {
	acc := buffer.NewAccumulator(pool.NewChunkPool(4))
	s := fake.NewSocket(3, "peer")
	s.Feed([]byte("abcdefgh"))

	n, err := acc.AppendFrom(s)
	if err != nil || n != 4 {
		t.Fatalf("AppendFrom = (%d, %v), want (4, nil)", n, err)
	}
	if acc.Len() != 4 {
		t.Errorf("Len() = %d, want 4", acc.Len())
	}
}

func TestAccumulatorOutcomes(t *testing.T) {
	t.Run("would block", func(t *testing.T) {
		acc := buffer.NewAccumulator(pool.NewChunkPool(8))
		n, err := acc.AppendFrom(fake.NewSocket(3, "peer"))
		if n != 0 || !api.IsTransient(err) {
			t.Errorf("AppendFrom = (%d, %v), want transient error", n, err)
		}
	})
	t.Run("peer closed", func(t *testing.T) {
		acc := buffer.NewAccumulator(pool.NewChunkPool(8))
		s := fake.NewSocket(3, "peer")
		s.Hangup()
		n, err := acc.AppendFrom(s)
		if n != 0 || err != io.EOF {
			t.Errorf("AppendFrom = (%d, %v), want (0, io.EOF)", n, err)
		}
	})
	t.Run("reset", func(t *testing.T) {
		acc := buffer.NewAccumulator(pool.NewChunkPool(8))
		s := fake.NewSocket(3, "peer")
		s.SetReadError(errors.New("connection reset"))
		n, err := acc.AppendFrom(s)
		if n != 0 || err == nil || api.IsTransient(err) {
			t.Errorf("AppendFrom = (%d, %v), want fatal error", n, err)
		}
	})
}

func TestAccumulatorContains(t *testing.T) {
	acc := buffer.NewAccumulator(pool.NewChunkPool(4))
	acc.Write([]byte("abcdefg"))
	if acc.Contains('\n') {
		t.Fatal("Contains reported a terminator that was never written")
	}
	if !acc.Contains('a') || !acc.Contains('g') {
		t.Error("Contains missed bytes in the first or last chunk")
	}
	if acc.Contains(0) {
		t.Error("Contains looked past the valid region of the tail chunk")
	}
	acc.Write([]byte("\n"))
	if !acc.Contains('\n') {
		t.Error("Contains missed the terminator")
	}
}

func TestAccumulatorIndexResumes(t *testing.T) {
	acc := buffer.NewAccumulator(pool.NewChunkPool(3))
	for _, part := range []string{"ab", "cdef", "g"} {
		acc.Write([]byte(part))
		if i := acc.Index('\n'); i != -1 {
			t.Fatalf("Index = %d before any terminator", i)
		}
	}
	acc.Write([]byte("h\nij\n"))
	if i := acc.Index('\n'); i != 8 {
		t.Fatalf("Index = %d, want 8", i)
	}
	if i := acc.Index('i'); i != 9 {
		t.Errorf("Index for a different byte = %d, want 9", i)
	}
	if _, ok := acc.TakeThrough('\n'); !ok {
		t.Fatal("TakeThrough found no terminator")
	}
	if i := acc.Index('\n'); i != 2 {
		t.Errorf("Index after TakeThrough = %d, want 2", i)
	}
}

func TestAccumulatorTakeThrough(t *testing.T) {
	tests := []struct {
		name  string
		size  int
		input string
		first string
		rest  string
	}{
		{"exact", 4, "hi\n", "hi\n", ""},
		{"remainder in same chunk", 8, "hi\nthere", "hi\n", "there"},
		{"remainder spans chunks", 2, "hi\nthere", "hi\n", "there"},
		{"terminator at chunk end", 3, "hi\nyo", "hi\n", "yo"},
		{"two lines", 4, "a\nbb\ncc", "a\n", "bb\ncc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acc := buffer.NewAccumulator(pool.NewChunkPool(tt.size))
			acc.Write([]byte(tt.input))
			p, ok := acc.TakeThrough('\n')
			if !ok {
				t.Fatal("TakeThrough found no terminator")
			}
			if got := string(p.Bytes()); got != tt.first {
				t.Errorf("frozen = %q, want %q", got, tt.first)
			}
			rest := buffer.NewMessage("", acc.Take()).Bytes()
			if string(rest) != tt.rest {
				t.Errorf("remainder = %q, want %q", rest, tt.rest)
			}
		})
	}
}

func TestAccumulatorTakeThroughKeepsFrozenBytes(t *testing.T) {
	acc := buffer.NewAccumulator(pool.NewChunkPool(8))
	acc.Write([]byte("ab\ncd"))
	p, _ := acc.TakeThrough('\n')
	acc.Write([]byte("XYZXYZXYZ\n"))
	if got := string(p.Bytes()); got != "ab\n" {
		t.Errorf("frozen payload mutated to %q", got)
	}
}

func TestAccumulatorTakeThroughMissing(t *testing.T) {
	acc := buffer.NewAccumulator(pool.NewChunkPool(4))
	acc.Write([]byte("no terminator"))
	if _, ok := acc.TakeThrough('\n'); ok {
		t.Fatal("TakeThrough reported a terminator")
	}
	if acc.Len() != len("no terminator") {
		t.Errorf("accumulator modified: Len() = %d", acc.Len())
	}
	acc.Write([]byte("\n"))
	p, ok := acc.TakeThrough('\n')
	if !ok || string(p.Bytes()) != "no terminator\n" {
		t.Errorf("TakeThrough after resume = %q, %v", p.Bytes(), ok)
	}
}

func TestAccumulatorTakeReleasesIdleTail(t *testing.T) {
	cp := pool.NewChunkPool(4)
	acc := buffer.NewAccumulator(cp)
	s := fake.NewSocket(3, "peer")
	s.Feed([]byte("abcd"))
	acc.AppendFrom(s)
	// The next read allocates a fresh tail and then would block.
	if _, err := acc.AppendFrom(s); !api.IsTransient(err) {
		t.Fatalf("expected would-block, got %v", err)
	}
	if acc.Chunks() != 2 {
		t.Fatalf("Chunks() = %d, want 2", acc.Chunks())
	}
	p := acc.Take()
	if p.Chunks() != 1 {
		t.Errorf("payload holds %d chunks, want 1", p.Chunks())
	}
	if st := cp.Stats(); st.InUse != 1 {
		t.Errorf("pool InUse = %d, want 1", st.InUse)
	}
}
