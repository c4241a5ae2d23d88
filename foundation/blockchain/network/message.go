// Package network implements the peer protocol: the wire messages, the
// client used to talk to peers and the server answering them.
package network

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/yeetcoin/blockchain/foundation/blockchain/peer"
)

// MessageType defines the kind of message exchanged between nodes.
type MessageType string

// Set of message types understood by every node.
const (
	TypePing            MessageType = "ping"
	TypeAck             MessageType = "ack"
	TypeNewBlock        MessageType = "new-block"
	TypeNewTransaction  MessageType = "new-transaction"
	TypeChainInfo       MessageType = "chain-info"
	TypeGetChain        MessageType = "get-chain"
	TypeChain           MessageType = "chain"
	TypeGetPeers        MessageType = "get-peers"
	TypePeers           MessageType = "peers"
	TypeGetTransactions MessageType = "get-transactions"
	TypeTransactions    MessageType = "transactions"
	TypeError           MessageType = "error"
)

// Valid reports whether the type is part of the protocol.
func (mt MessageType) Valid() bool {
	switch mt {
	case TypePing, TypeAck, TypeNewBlock, TypeNewTransaction, TypeChainInfo,
		TypeGetChain, TypeChain, TypeGetPeers, TypePeers, TypeGetTransactions,
		TypeTransactions, TypeError:
		return true
	}

	return false
}

// MaxFrameSize is the largest message accepted off the wire.
const MaxFrameSize = 64 << 20

// Set of errors for reading and writing messages.
var (
	ErrUnknownType   = errors.New("unknown message type")
	ErrFrameTooLarge = errors.New("message frame too large")
)

// =============================================================================

// Message is the tagged envelope exchanged between nodes.
type Message struct {
	Type MessageType     `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// NewMessage constructs a message carrying the encoded data. A nil data
// value produces a message without a payload.
func NewMessage(typ MessageType, data any) (Message, error) {
	if data == nil {
		return Message{Type: typ}, nil
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return Message{}, fmt.Errorf("encode %s: %w", typ, err)
	}

	return Message{Type: typ, Data: raw}, nil
}

// mustMessage constructs a message for data that always encodes.
func mustMessage(typ MessageType, data any) Message {
	msg, err := NewMessage(typ, data)
	if err != nil {
		return errorMessage(err)
	}
	return msg
}

// errorMessage constructs the reply describing a failure.
func errorMessage(err error) Message {
	raw, _ := json.Marshal(err.Error())
	return Message{Type: TypeError, Data: raw}
}

// Decode unmarshals the payload into the provided value.
func (m Message) Decode(v any) error {
	if len(m.Data) == 0 {
		return fmt.Errorf("%s: message has no data", m.Type)
	}

	if err := json.Unmarshal(m.Data, v); err != nil {
		return fmt.Errorf("decode %s: %w", m.Type, err)
	}

	return nil
}

// Err returns the error carried by an error message, nil for other types.
func (m Message) Err() error {
	if m.Type != TypeError {
		return nil
	}

	var reason string
	if err := json.Unmarshal(m.Data, &reason); err != nil {
		reason = "unknown error"
	}

	return &RemoteError{Reason: reason}
}

// RemoteError is a failure reported by a peer.
type RemoteError struct {
	Reason string
}

// Error implements the error interface.
func (re *RemoteError) Error() string {
	return "peer: " + re.Reason
}

// =============================================================================

// PeersRequest is the payload of a get-peers message. The caller announces
// itself and the peers it knows about.
type PeersRequest struct {
	Self  peer.Peer   `json:"self"`
	Known []peer.Peer `json:"known,omitempty"`
}

// =============================================================================

// WriteMessage writes the message as a 4 byte big endian length followed by
// the JSON encoded envelope.
func WriteMessage(w io.Writer, msg Message) error {
	if !msg.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownType, msg.Type)
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}

	if len(data) > MaxFrameSize {
		return ErrFrameTooLarge
	}

	frame := make([]byte, 4+len(data))
	binary.BigEndian.PutUint32(frame, uint32(len(data)))
	copy(frame[4:], data)

	if _, err := w.Write(frame); err != nil {
		return fmt.Errorf("write message: %w", err)
	}

	return nil
}

// ReadMessage reads one framed message. Messages of an unknown type are
// rejected.
func ReadMessage(r io.Reader) (Message, error) {
	var size [4]byte
	if _, err := io.ReadFull(r, size[:]); err != nil {
		return Message{}, err
	}

	n := binary.BigEndian.Uint32(size[:])
	if n > MaxFrameSize {
		return Message{}, ErrFrameTooLarge
	}

	data := make([]byte, n)
	if _, err := io.ReadFull(r, data); err != nil {
		return Message{}, fmt.Errorf("read message: %w", err)
	}

	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return Message{}, fmt.Errorf("decode message: %w", err)
	}

	if !msg.Type.Valid() {
		return Message{}, fmt.Errorf("%w: %q", ErrUnknownType, msg.Type)
	}

	return msg, nil
}
