package mqtt

import (
	"log"
	"slices"
)

// msgClass ranks buffered messages for eviction. Lower classes go first.
type msgClass int

const (
	classSystem msgClass = iota // heartbeats and lifecycle events
	classEvent                  // alarm, session and notification events
	classRecord                 // stored vitals records
)

func (c msgClass) String() string {
	switch c {
	case classSystem:
		return "system"
	case classEvent:
		return "event"
	default:
		return "record"
	}
}

// outboxMsg is a serialized message waiting for a broker connection.
type outboxMsg struct {
	class    msgClass
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// outbox holds messages while disconnected and replays them in publish
// order. When full it evicts the oldest message of the lowest class
// present, so a long outage sheds heartbeats before vitals records.
// Not safe for concurrent use; the caller must synchronize.
type outbox struct {
	msgs     []outboxMsg
	capacity int
	dropped  [classRecord + 1]int
}

func newOutbox(capacity int) *outbox {
	return &outbox{msgs: make([]outboxMsg, 0, capacity), capacity: capacity}
}

func (o *outbox) push(msg outboxMsg) {
	if len(o.msgs) < o.capacity {
		o.msgs = append(o.msgs, msg)
		return
	}
	victim := o.victim(msg.class)
	if victim < 0 {
		// Everything held outranks msg.
		o.drop(msg.class)
		return
	}
	o.drop(o.msgs[victim].class)
	o.msgs = append(slices.Delete(o.msgs, victim, victim+1), msg)
}

// victim returns the index of the oldest message in the lowest class not
// above incoming, or -1.
func (o *outbox) victim(incoming msgClass) int {
	best := -1
	for i, m := range o.msgs {
		if m.class > incoming {
			continue
		}
		if best < 0 || m.class < o.msgs[best].class {
			best = i
		}
	}
	return best
}

func (o *outbox) drop(c msgClass) {
	if o.total() == 0 {
		log.Printf("mqtt: outbox full (%d messages), shedding %s messages", o.capacity, c)
	}
	o.dropped[c]++
}

func (o *outbox) total() int {
	n := 0
	for _, d := range o.dropped {
		n += d
	}
	return n
}

// drainAll empties the outbox, oldest first, and reports what was shed
// since the previous drain.
func (o *outbox) drainAll() []outboxMsg {
	if n := o.total(); n > 0 {
		log.Printf("mqtt: outbox shed %d system, %d event, %d record messages",
			o.dropped[classSystem], o.dropped[classEvent], o.dropped[classRecord])
		o.dropped = [classRecord + 1]int{}
	}
	if len(o.msgs) == 0 {
		return nil
	}
	out := o.msgs
	o.msgs = make([]outboxMsg, 0, o.capacity)
	return out
}

func (o *outbox) len() int {
	return len(o.msgs)
}
