package mqtt

import (
	"testing"
)

func msg(c msgClass, id byte) outboxMsg {
	return outboxMsg{class: c, topic: TopicRecords, payload: []byte{id}, qos: 1}
}

func ids(msgs []outboxMsg) []byte {
	var out []byte
	for _, m := range msgs {
		out = append(out, m.payload[0])
	}
	return out
}

func countClass(o *outbox, c msgClass) int {
	n := 0
	for _, m := range o.msgs {
		if m.class == c {
			n++
		}
	}
	return n
}

func TestOutboxEmptyDrain(t *testing.T) {
	o := newOutbox(4)
	if got := o.drainAll(); got != nil {
		t.Errorf("expected nil from empty drain, got %d messages", len(got))
	}
}

func TestOutboxKeepsPublishOrder(t *testing.T) {
	o := newOutbox(8)
	o.push(msg(classRecord, 1))
	o.push(msg(classSystem, 2))
	o.push(msg(classEvent, 3))

	got := ids(o.drainAll())
	if string(got) != string([]byte{1, 2, 3}) {
		t.Errorf("replay order: got %v, want [1 2 3]", got)
	}
	if o.len() != 0 {
		t.Errorf("expected empty after drain, got %d", o.len())
	}
}

func TestOutboxShedsHeartbeatsBeforeRecords(t *testing.T) {
	o := newOutbox(4)
	o.push(msg(classRecord, 1))
	o.push(msg(classSystem, 2)) // heartbeat
	o.push(msg(classRecord, 3))
	o.push(msg(classSystem, 4)) // heartbeat

	o.push(msg(classRecord, 5))
	o.push(msg(classRecord, 6))

	if n := countClass(o, classSystem); n != 0 {
		t.Errorf("expected heartbeats shed first, %d remain", n)
	}
	got := ids(o.drainAll())
	if string(got) != string([]byte{1, 3, 5, 6}) {
		t.Errorf("got %v, want [1 3 5 6]", got)
	}
}

func TestOutboxShedsEventsBeforeRecords(t *testing.T) {
	o := newOutbox(3)
	o.push(msg(classEvent, 1))
	o.push(msg(classRecord, 2))
	o.push(msg(classEvent, 3))
	o.push(msg(classRecord, 4))

	got := ids(o.drainAll())
	if string(got) != string([]byte{2, 3, 4}) {
		t.Errorf("got %v, want [2 3 4]", got)
	}
}

func TestOutboxFullOfRecordsDropsOldestRecord(t *testing.T) {
	o := newOutbox(3)
	for i := byte(1); i <= 5; i++ {
		o.push(msg(classRecord, i))
	}
	got := ids(o.drainAll())
	if string(got) != string([]byte{3, 4, 5}) {
		t.Errorf("got %v, want [3 4 5]", got)
	}
}

func TestOutboxDropsIncomingHeartbeatWhenRecordsFill(t *testing.T) {
	o := newOutbox(2)
	o.push(msg(classRecord, 1))
	o.push(msg(classRecord, 2))
	o.push(msg(classSystem, 3))

	if o.dropped[classSystem] != 1 {
		t.Errorf("expected the incoming heartbeat counted as shed, got %v", o.dropped)
	}
	got := ids(o.drainAll())
	if string(got) != string([]byte{1, 2}) {
		t.Errorf("got %v, want [1 2]", got)
	}
}

func TestOutboxDrainResetsShedCounts(t *testing.T) {
	o := newOutbox(1)
	o.push(msg(classEvent, 1))
	o.push(msg(classEvent, 2))
	if o.total() != 1 {
		t.Fatalf("expected 1 shed, got %d", o.total())
	}
	o.drainAll()
	if o.total() != 0 {
		t.Errorf("shed counts survive drain: %v", o.dropped)
	}

	o.push(msg(classRecord, 3))
	if got := ids(o.drainAll()); string(got) != string([]byte{3}) {
		t.Errorf("reuse after drain: got %v", got)
	}
}

func TestOutboxPreservesFields(t *testing.T) {
	o := newOutbox(2)
	o.push(outboxMsg{class: classSystem, topic: TopicSystem, payload: []byte(`{"event":"STARTUP"}`), qos: 1, retained: true})

	got := o.drainAll()
	if len(got) != 1 {
		t.Fatalf("expected 1 message, got %d", len(got))
	}
	m := got[0]
	if m.topic != TopicSystem || string(m.payload) != `{"event":"STARTUP"}` || m.qos != 1 || !m.retained {
		t.Errorf("fields not preserved: %+v", m)
	}
}
