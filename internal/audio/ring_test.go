package audio

import (
	"testing"
)

func TestRingCapacityRounding(t *testing.T) {
	tests := []struct {
		requested int
		expected  int
	}{
		{1, 2},
		{2, 2},
		{3, 4},
		{1000, 1024},
		{32768, 32768},
	}

	for _, tt := range tests {
		r := NewRing(tt.requested)
		if r.Cap() != tt.expected {
			t.Errorf("NewRing(%d).Cap() = %d, want %d", tt.requested, r.Cap(), tt.expected)
		}
	}
}

func TestRingFIFOOrder(t *testing.T) {
	r := NewRing(8)

	for i := 0; i < 5; i++ {
		if !r.Push(float32(i)) {
			t.Fatalf("Push(%d) failed on non-full ring", i)
		}
	}
	if r.Len() != 5 {
		t.Errorf("Len() = %d, want 5", r.Len())
	}

	dst := make([]float32, 8)
	n := r.Pop(dst)
	if n != 5 {
		t.Fatalf("Pop returned %d, want 5", n)
	}
	for i := 0; i < 5; i++ {
		if dst[i] != float32(i) {
			t.Errorf("dst[%d] = %v, want %v", i, dst[i], float32(i))
		}
	}
}

func TestRingPushFullDrops(t *testing.T) {
	r := NewRing(4)

	for i := 0; i < 4; i++ {
		if !r.Push(float32(i)) {
			t.Fatalf("Push failed before capacity was reached")
		}
	}
	if r.Push(99) {
		t.Error("Push succeeded on a full ring")
	}
	if r.Len() != 4 {
		t.Errorf("Len() = %d after rejected push, want 4", r.Len())
	}
}

func TestRingPushSlicePartial(t *testing.T) {
	r := NewRing(4)

	src := []float32{1, 2, 3, 4, 5, 6}
	n := r.PushSlice(src)
	if n != 4 {
		t.Fatalf("PushSlice accepted %d samples, want 4", n)
	}

	dst := make([]float32, 6)
	got := r.Pop(dst)
	if got != 4 {
		t.Fatalf("Pop returned %d, want 4", got)
	}
	for i := 0; i < 4; i++ {
		if dst[i] != src[i] {
			t.Errorf("dst[%d] = %v, want %v", i, dst[i], src[i])
		}
	}
}

func TestRingWraparound(t *testing.T) {
	r := NewRing(4)

	// Fill, drain, refill so indices wrap past the buffer end.
	dst := make([]float32, 4)
	for round := 0; round < 10; round++ {
		base := float32(round * 10)
		if n := r.PushSlice([]float32{base, base + 1, base + 2}); n != 3 {
			t.Fatalf("round %d: PushSlice accepted %d, want 3", round, n)
		}
		if n := r.Pop(dst); n != 3 {
			t.Fatalf("round %d: Pop returned %d, want 3", round, n)
		}
		for i := 0; i < 3; i++ {
			if dst[i] != base+float32(i) {
				t.Errorf("round %d: dst[%d] = %v, want %v", round, i, dst[i], base+float32(i))
			}
		}
	}
}

func TestRingPopEmpty(t *testing.T) {
	r := NewRing(8)
	dst := make([]float32, 8)
	if n := r.Pop(dst); n != 0 {
		t.Errorf("Pop on empty ring returned %d, want 0", n)
	}
}

func TestRingConcurrentProducerConsumer(t *testing.T) {
	r := NewRing(64)
	const total = 100000

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < total; {
			if r.Push(float32(i)) {
				i++
			}
		}
	}()

	dst := make([]float32, 64)
	next := float32(0)
	received := 0
	for received < total {
		n := r.Pop(dst)
		for i := 0; i < n; i++ {
			if dst[i] != next {
				t.Fatalf("out of order: got %v, want %v", dst[i], next)
			}
			next++
		}
		received += n
	}
	<-done

	if r.Len() != 0 {
		t.Errorf("Len() = %d after full drain, want 0", r.Len())
	}
}
