package mqtt

// queued is a serialized message held for replay after reconnection.
type queued struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// backlog is a fixed-capacity FIFO of messages published while the broker
// was unreachable. When full the oldest message is overwritten.
// Not safe for concurrent use.
type backlog struct {
	slots   []queued
	next    int // next write position
	count   int
	dropped int // messages overwritten since the last drain
}

func newBacklog(capacity int) *backlog {
	if capacity < 1 {
		capacity = 1
	}
	return &backlog{slots: make([]queued, capacity)}
}

// push appends msg. It reports true the first time a message is dropped
// since the last drain.
func (b *backlog) push(msg queued) (firstDrop bool) {
	size := len(b.slots)
	b.slots[b.next] = msg
	b.next = (b.next + 1) % size
	if b.count < size {
		b.count++
		return false
	}
	b.dropped++
	return b.dropped == 1
}

// drain returns the queued messages oldest first and empties the backlog,
// along with how many were lost to overflow.
func (b *backlog) drain() (msgs []queued, dropped int) {
	dropped = b.dropped
	if b.count == 0 {
		b.dropped = 0
		return nil, dropped
	}
	size := len(b.slots)
	msgs = make([]queued, b.count)
	oldest := (b.next - b.count + size) % size
	for i := range msgs {
		msgs[i] = b.slots[(oldest+i)%size]
	}
	b.next, b.count, b.dropped = 0, 0, 0
	return msgs, dropped
}

func (b *backlog) len() int {
	return b.count
}
