package network

import (
	"fmt"
	"net"

	"github.com/yeetcoin/blockchain/foundation/blockchain/database"
	"github.com/yeetcoin/blockchain/foundation/blockchain/peer"
)

// Node is the behavior the protocol needs from a node to answer its peers.
type Node interface {
	ProcessProposedBlock(block database.Block) error
	UpsertNodeTransaction(tx database.Tx) error
	ChainInfo() database.ChainInfo
	Chain() []database.Block
	Pending() []database.Tx
	MergePeers(self peer.Peer, known []peer.Peer) []peer.Peer
}

// NodeHandler returns the handler answering requests for the node.
func NodeHandler(node Node) Handler {
	return func(_ net.Addr, msg Message) (Message, error) {
		switch msg.Type {
		case TypePing:
			return Message{Type: TypeAck}, nil

		case TypeNewBlock:
			var block database.Block
			if err := msg.Decode(&block); err != nil {
				return Message{}, err
			}

			if err := node.ProcessProposedBlock(block); err != nil {
				return Message{}, err
			}

			return Message{Type: TypeAck}, nil

		case TypeNewTransaction:
			var tx database.Tx
			if err := msg.Decode(&tx); err != nil {
				return Message{}, err
			}

			if err := node.UpsertNodeTransaction(tx); err != nil {
				return Message{}, err
			}

			return Message{Type: TypeAck}, nil

		case TypeChainInfo:
			return mustMessage(TypeChainInfo, node.ChainInfo()), nil

		case TypeGetChain:
			return mustMessage(TypeChain, node.Chain()), nil

		case TypeGetPeers:
			var req PeersRequest
			if err := msg.Decode(&req); err != nil {
				return Message{}, err
			}

			return mustMessage(TypePeers, node.MergePeers(req.Self, req.Known)), nil

		case TypeGetTransactions:
			return mustMessage(TypeTransactions, node.Pending()), nil

		case TypeAck, TypeChain, TypePeers, TypeTransactions, TypeError:
			return Message{}, fmt.Errorf("%s is a reply, not a request", msg.Type)
		}

		return Message{}, fmt.Errorf("%w: %q", ErrUnknownType, msg.Type)
	}
}
