package event

import (
	"sync"
	"testing"
)

func drainAll(q *Queue) []Event {
	var got []Event
	q.Drain(func(ev Event) {
		got = append(got, ev)
	})
	return got
}

func TestQueuePreservesOrder(t *testing.T) {
	for _, n := range []int{0, 1, 17, 256} {
		q := NewQueue(256)
		for i := 0; i < n; i++ {
			if !q.Enqueue(ControlChange(1, uint32(i))) {
				t.Fatalf("enqueue %d of %d rejected", i, n)
			}
		}
		got := drainAll(q)
		if len(got) != n {
			t.Fatalf("n=%d: drained %d events", n, len(got))
		}
		for i, ev := range got {
			if ev.Data2 != uint32(i) {
				t.Fatalf("n=%d: event %d has tag %d", n, i, ev.Data2)
			}
		}
		if q.Len() != 0 {
			t.Fatalf("n=%d: queue not empty after drain: %d", n, q.Len())
		}
	}
}

func TestQueueDropsNewestWhenFull(t *testing.T) {
	q := NewQueue(256)
	accepted := 0
	for i := 0; i < 300; i++ {
		if q.Enqueue(ControlChange(1, uint32(i))) {
			accepted++
		}
	}
	if accepted != 256 {
		t.Fatalf("accepted %d events, want 256", accepted)
	}
	got := drainAll(q)
	if len(got) != 256 {
		t.Fatalf("drained %d events, want 256", len(got))
	}
	for i, ev := range got {
		if ev.Data2 != uint32(i) {
			t.Fatalf("event %d has tag %d", i, ev.Data2)
		}
	}
}

func TestQueueWrapsAround(t *testing.T) {
	q := NewQueue(8)
	tag := uint32(0)
	want := uint32(0)
	for round := 0; round < 10; round++ {
		for i := 0; i < 5; i++ {
			q.Enqueue(PitchBend(tag))
			tag++
		}
		for _, ev := range drainAll(q) {
			if ev.Data2 != want {
				t.Fatalf("round %d: got tag %d want %d", round, ev.Data2, want)
			}
			want++
		}
	}
	if want != tag {
		t.Fatalf("delivered %d events, enqueued %d", want, tag)
	}
}

func TestQueueHandlerMayEnqueue(t *testing.T) {
	q := NewQueue(4)
	q.Enqueue(NoteOn(60, 1))
	n := q.Drain(func(ev Event) {
		q.Enqueue(NoteOff(ev.Data1))
	})
	if n != 1 {
		t.Fatalf("first drain returned %d", n)
	}
	got := drainAll(q)
	if len(got) != 1 || got[0].Kind != KindNoteOff || got[0].Data1 != 60 {
		t.Fatalf("unexpected follow-up events: %+v", got)
	}
}

func TestQueueDefaultCapacity(t *testing.T) {
	if c := NewQueue(0).Cap(); c != DefaultCapacity {
		t.Fatalf("cap = %d, want %d", c, DefaultCapacity)
	}
}

func TestQueueConcurrentProducers(t *testing.T) {
	const producers = 4
	const perProducer = 1000
	q := NewQueue(64)

	var wg sync.WaitGroup
	var accepted [producers]int
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				if q.Enqueue(ControlChange(uint8(p), uint32(i))) {
					accepted[p]++
				}
			}
		}(p)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	last := [producers]int{-1, -1, -1, -1}
	received := 0
	check := func(ev Event) {
		p := int(ev.Data1)
		if int(ev.Data2) <= last[p] {
			t.Errorf("producer %d out of order: %d after %d", p, ev.Data2, last[p])
		}
		last[p] = int(ev.Data2)
		received++
	}
	for {
		select {
		case <-done:
			q.Drain(check)
			total := 0
			for _, a := range accepted {
				total += a
			}
			if received != total {
				t.Fatalf("received %d events, producers stored %d", received, total)
			}
			return
		default:
			q.Drain(check)
		}
	}
}
