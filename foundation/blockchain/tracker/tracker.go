// Package tracker implements the rendezvous point nodes use to discover
// each other.
package tracker

import (
	"fmt"
	"net"

	"github.com/yeetcoin/blockchain/foundation/blockchain/network"
	"github.com/yeetcoin/blockchain/foundation/blockchain/peer"
)

// Tracker keeps the set of nodes that registered with it.
type Tracker struct {
	peers     *peer.PeerSet
	client    *network.Client
	evHandler func(v string, args ...any)
}

// New constructs a tracker using the client to ping registered nodes.
func New(client *network.Client, evHandler func(v string, args ...any)) *Tracker {
	if evHandler == nil {
		evHandler = func(string, ...any) {}
	}

	return &Tracker{
		peers:     peer.NewPeerSet(),
		client:    client,
		evHandler: evHandler,
	}
}

// Register pings the registered nodes, forgets the ones that no longer
// answer and returns the live ones. The caller is registered afterwards so
// it never receives itself.
func (t *Tracker) Register(self peer.Peer) []peer.Peer {
	known := t.peers.Copy(self)

	live := t.client.Alive(known)
	if len(live) != len(known) {
		alive := make(map[peer.Peer]bool, len(live))
		for _, p := range live {
			alive[p] = true
		}

		for _, p := range known {
			if !alive[p] {
				t.evHandler("tracker: Register: peer[%s]: pruned", p)
				t.peers.Remove(p)
			}
		}
	}

	if t.peers.Add(self) {
		t.evHandler("tracker: Register: peer[%s]: registered", self)
	}

	if live == nil {
		live = []peer.Peer{}
	}

	return live
}

// Peers returns the registered nodes.
func (t *Tracker) Peers() []peer.Peer {
	return t.peers.Copy(peer.Peer{})
}

// Handler returns the protocol handler for the tracker. The tracker answers
// ping and get-peers only.
func (t *Tracker) Handler() network.Handler {
	return func(_ net.Addr, msg network.Message) (network.Message, error) {
		switch msg.Type {
		case network.TypePing:
			return network.Message{Type: network.TypeAck}, nil

		case network.TypeGetPeers:
			var req network.PeersRequest
			if err := msg.Decode(&req); err != nil {
				return network.Message{}, err
			}

			if req.Self.Host == "" || req.Self.Port <= 0 {
				return network.Message{}, fmt.Errorf("invalid peer %q", req.Self)
			}

			return network.NewMessage(network.TypePeers, t.Register(req.Self))
		}

		return network.Message{}, fmt.Errorf("tracker does not serve %s", msg.Type)
	}
}
