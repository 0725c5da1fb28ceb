package mqtt

import "log"

// pendingMsg is a serialized message held for replay after reconnection.
type pendingMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// outbox is a fixed-capacity FIFO of messages published while the broker is
// unreachable. When full the oldest message is overwritten.
// Not safe for concurrent use. Caller must synchronize.
type outbox struct {
	buf     []pendingMsg
	head    int // next write position
	count   int
	dropped int // overwritten since last take
}

func newOutbox(capacity int) *outbox {
	return &outbox{buf: make([]pendingMsg, capacity)}
}

func (o *outbox) add(msg pendingMsg) {
	capacity := len(o.buf)
	if o.count == capacity {
		if o.dropped == 0 {
			log.Printf("mqtt: outbox full (%d messages), discarding oldest", capacity)
		}
		o.dropped++
		// head already points at the oldest entry
		o.buf[o.head] = msg
		o.head = (o.head + 1) % capacity
		return
	}
	o.buf[o.head] = msg
	o.head = (o.head + 1) % capacity
	o.count++
}

// take returns every held message, oldest first, and empties the outbox.
func (o *outbox) take() []pendingMsg {
	if o.count == 0 {
		return nil
	}

	capacity := len(o.buf)
	out := make([]pendingMsg, o.count)
	start := (o.head - o.count + capacity) % capacity
	for i := range out {
		out[i] = o.buf[(start+i)%capacity]
		o.buf[(start+i)%capacity] = pendingMsg{}
	}

	if o.dropped > 0 {
		log.Printf("mqtt: %d messages were discarded while disconnected", o.dropped)
	}
	o.count = 0
	o.head = 0
	o.dropped = 0
	return out
}

func (o *outbox) len() int {
	return o.count
}
