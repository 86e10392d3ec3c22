// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package mqtt

import "github.com/absmach/edgeio/mqtt/packets"

// DeliveryState is the QoS handshake sub-state of one in-flight packet
// identifier. The Send states demand a packet be written, the Pending
// states await one from the peer, StatePublishDone terminates the
// exchange and frees the tracker slot.
//
//	QoS1 outbound: StatePublishSend -> StatePubAckPending -> StatePublishDone
//	QoS2 outbound: StatePublishSend -> StatePubRecPending -> StatePubRelSend
//	               -> StatePubCompPending -> StatePublishDone
//	QoS1 inbound:  StatePubAckSend -> StatePublishDone
//	QoS2 inbound:  StatePubRecSend -> StatePubRelPending -> StatePubCompSend
//	               -> StatePublishDone
type DeliveryState uint8

const (
	StatePublishSend DeliveryState = iota + 1
	StatePubAckSend
	StatePubRecSend
	StatePubRelSend
	StatePubCompSend
	StatePubAckPending
	StatePubRecPending
	StatePubRelPending
	StatePubCompPending
	StatePublishDone
)

// String returns the state name.
func (s DeliveryState) String() string {
	switch s {
	case StatePublishSend:
		return "publish-send"
	case StatePubAckSend:
		return "puback-send"
	case StatePubRecSend:
		return "pubrec-send"
	case StatePubRelSend:
		return "pubrel-send"
	case StatePubCompSend:
		return "pubcomp-send"
	case StatePubAckPending:
		return "puback-pending"
	case StatePubRecPending:
		return "pubrec-pending"
	case StatePubRelPending:
		return "pubrel-pending"
	case StatePubCompPending:
		return "pubcomp-pending"
	case StatePublishDone:
		return "publish-done"
	default:
		return "unknown"
	}
}

// deliveryRecord tracks one in-flight QoS>0 exchange. At most one record
// exists per packet identifier.
type deliveryRecord struct {
	packetID uint16
	qos      byte
	outbound bool
	state    DeliveryState
}

// deliveryTracker is a fixed-capacity in-flight table. Lookup is O(n);
// capacity is small and bounded for embedded use, and never grows.
type deliveryTracker struct {
	records []deliveryRecord
}

func newDeliveryTracker(capacity int) deliveryTracker {
	return deliveryTracker{records: make([]deliveryRecord, 0, capacity)}
}

func (t *deliveryTracker) lookup(packetID uint16) int {
	for i := range t.records {
		if t.records[i].packetID == packetID {
			return i
		}
	}
	return -1
}

func (t *deliveryTracker) add(rec deliveryRecord) error {
	if t.lookup(rec.packetID) >= 0 {
		return ErrIllegalState
	}
	if len(t.records) == cap(t.records) {
		return ErrInsufficientMemory
	}
	t.records = append(t.records, rec)
	return nil
}

func (t *deliveryTracker) remove(i int) {
	t.records[i] = t.records[len(t.records)-1]
	t.records = t.records[:len(t.records)-1]
}

// reserve creates the record for an outbound QoS>0 publish before it is
// written to the wire.
func (t *deliveryTracker) reserve(packetID uint16, qos byte) error {
	if packetID == 0 || qos == packets.QoS0 || qos > packets.QoS2 {
		return ErrBadParameter
	}
	return t.add(deliveryRecord{
		packetID: packetID,
		qos:      qos,
		outbound: true,
		state:    StatePublishSend,
	})
}

// updatePublish advances the state of a packet identifier on a PUBLISH
// event. received=true records an inbound publish and creates the record;
// received=false advances an outbound record past its wire write.
func (t *deliveryTracker) updatePublish(packetID uint16, qos byte, received bool) (DeliveryState, error) {
	if packetID == 0 || qos == packets.QoS0 || qos > packets.QoS2 {
		return 0, ErrBadParameter
	}

	if received {
		state := StatePubAckSend
		if qos == packets.QoS2 {
			state = StatePubRecSend
		}
		err := t.add(deliveryRecord{packetID: packetID, qos: qos, state: state})
		if err != nil {
			return 0, err
		}
		return state, nil
	}

	i := t.lookup(packetID)
	if i < 0 || !t.records[i].outbound || t.records[i].state != StatePublishSend {
		return 0, ErrIllegalState
	}
	next := StatePubAckPending
	if qos == packets.QoS2 {
		next = StatePubRecPending
	}
	t.records[i].state = next
	return next, nil
}

// updateAck advances the state of a packet identifier on an ack event and
// returns the new state. Transitions not defined for the recorded state
// fail with ErrIllegalState. Reaching StatePublishDone frees the slot.
func (t *deliveryTracker) updateAck(packetID uint16, ackType byte, received bool) (DeliveryState, error) {
	i := t.lookup(packetID)
	if i < 0 {
		return 0, ErrIllegalState
	}

	next := nextAckState(t.records[i].state, ackType, received)
	if next == 0 {
		return 0, ErrIllegalState
	}
	if next == StatePublishDone {
		t.remove(i)
	} else {
		t.records[i].state = next
	}
	return next, nil
}

// nextAckState is the ack transition table. It returns zero when the
// transition is undefined.
func nextAckState(current DeliveryState, ackType byte, received bool) DeliveryState {
	switch ackType {
	case packets.PubAckType:
		if received && current == StatePubAckPending {
			return StatePublishDone
		}
		if !received && current == StatePubAckSend {
			return StatePublishDone
		}
	case packets.PubRecType:
		if received && current == StatePubRecPending {
			return StatePubRelSend
		}
		if !received && current == StatePubRecSend {
			return StatePubRelPending
		}
	case packets.PubRelType:
		if received && current == StatePubRelPending {
			return StatePubCompSend
		}
		if !received && current == StatePubRelSend {
			return StatePubCompPending
		}
	case packets.PubCompType:
		if received && current == StatePubCompPending {
			return StatePublishDone
		}
		if !received && current == StatePubCompSend {
			return StatePublishDone
		}
	}
	return 0
}

// inflight returns the number of occupied tracker slots.
func (t *deliveryTracker) inflight() int {
	return len(t.records)
}
