package mqtt

import "testing"

func TestOutboxTakeEmpty(t *testing.T) {
	o := newOutbox(4)
	if got := o.take(); got != nil {
		t.Errorf("expected nil from empty outbox, got %d messages", len(got))
	}
}

func TestOutboxKeepsOrder(t *testing.T) {
	o := newOutbox(8)
	for i := 0; i < 3; i++ {
		o.add(pendingMsg{topic: TopicEvents, payload: []byte{byte(i)}})
	}
	if o.len() != 3 {
		t.Fatalf("len: got %d, want 3", o.len())
	}

	got := o.take()
	for i, msg := range got {
		if msg.payload[0] != byte(i) {
			t.Errorf("message %d: payload %d, want %d", i, msg.payload[0], i)
		}
	}
	if o.len() != 0 || o.take() != nil {
		t.Error("outbox should be empty after take")
	}
}

func TestOutboxDiscardsOldest(t *testing.T) {
	o := newOutbox(3)
	for i := 0; i < 5; i++ {
		o.add(pendingMsg{payload: []byte{byte(i)}})
	}

	got := o.take()
	if len(got) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(got))
	}
	for i, want := range []byte{2, 3, 4} {
		if got[i].payload[0] != want {
			t.Errorf("message %d: payload %d, want %d", i, got[i].payload[0], want)
		}
	}
	if o.dropped != 0 {
		t.Errorf("dropped counter should reset on take, got %d", o.dropped)
	}
}

func TestOutboxReusableAfterTake(t *testing.T) {
	o := newOutbox(2)
	o.add(pendingMsg{payload: []byte("a")})
	o.take()
	o.add(pendingMsg{payload: []byte("b")})

	got := o.take()
	if len(got) != 1 || string(got[0].payload) != "b" {
		t.Errorf("got %v, want [b]", got)
	}
}

func TestOutboxWrapsInPlace(t *testing.T) {
	o := newOutbox(3)
	for i := 0; i < 7; i++ {
		o.add(pendingMsg{payload: []byte{byte(i)}})
	}
	if o.len() != 3 {
		t.Fatalf("len: got %d, want 3", o.len())
	}
	if len(o.buf) != 3 {
		t.Errorf("backing storage grew to %d, want 3", len(o.buf))
	}
	if o.dropped != 4 {
		t.Errorf("dropped: got %d, want 4", o.dropped)
	}

	got := o.take()
	for i, want := range []byte{4, 5, 6} {
		if got[i].payload[0] != want {
			t.Errorf("message %d: payload %d, want %d", i, got[i].payload[0], want)
		}
	}

	// A partially filled outbox after a wrapped one starts from the front.
	o.add(pendingMsg{payload: []byte{9}})
	if got := o.take(); len(got) != 1 || got[0].payload[0] != 9 {
		t.Errorf("after take: got %v, want [9]", got)
	}
}
