package ports

// Sender writes one fully-formed protocol line to the connection. The parts
// are joined with single spaces; the transport appends line termination.
//
// Delivery is best effort on an ordered stream: a send that returns nil may
// still be lost if the connection drops afterwards, and recovery from a drop
// is a full reconnect, not retransmission.
type Sender interface {
	Send(parts ...string) error
}
