// Package peer maintains the peer related information such as the set
// of known peers.
package peer

import (
	"fmt"
	"net"
	"sort"
	"strconv"
	"sync"
)

// Peer represents information about a node in the network.
type Peer struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// New constructs a peer value.
func New(host string, port int) Peer {
	return Peer{
		Host: host,
		Port: port,
	}
}

// Parse constructs a peer from a host:port string.
func Parse(addr string) (Peer, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return Peer{}, fmt.Errorf("parse peer %q: %w", addr, err)
	}

	p, err := strconv.Atoi(port)
	if err != nil || p <= 0 || p > 65535 {
		return Peer{}, fmt.Errorf("parse peer %q: invalid port", addr)
	}

	return New(host, p), nil
}

// Addr returns the host:port form used to dial the peer.
func (p Peer) Addr() string {
	return net.JoinHostPort(p.Host, strconv.Itoa(p.Port))
}

// Match validates if the specified peer matches this node.
func (p Peer) Match(other Peer) bool {
	return p == other
}

// String implements the fmt.Stringer interface.
func (p Peer) String() string {
	return p.Addr()
}

// =============================================================================

// PeerSet represents the data representation to maintain a set of known peers.
type PeerSet struct {
	mu  sync.RWMutex
	set map[Peer]struct{}
}

// NewPeerSet constructs a new info set to manage node peer information.
func NewPeerSet() *PeerSet {
	return &PeerSet{
		set: make(map[Peer]struct{}),
	}
}

// Add adds a new node to the set.
func (ps *PeerSet) Add(peer Peer) bool {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	_, exists := ps.set[peer]
	if !exists {
		ps.set[peer] = struct{}{}
		return true
	}

	return false
}

// Merge adds every peer but the excluded one. It returns the number of peers
// that were new to the set.
func (ps *PeerSet) Merge(peers []Peer, exclude Peer) int {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	var added int
	for _, peer := range peers {
		if peer.Match(exclude) {
			continue
		}
		if _, exists := ps.set[peer]; !exists {
			ps.set[peer] = struct{}{}
			added++
		}
	}

	return added
}

// Remove removes a node from the set.
func (ps *PeerSet) Remove(peer Peer) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	delete(ps.set, peer)
}

// Len returns the number of known peers.
func (ps *PeerSet) Len() int {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	return len(ps.set)
}

// Copy returns a list of the known peers without the excluded one, sorted
// by address.
func (ps *PeerSet) Copy(exclude Peer) []Peer {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	peers := make([]Peer, 0, len(ps.set))
	for peer := range ps.set {
		if !peer.Match(exclude) {
			peers = append(peers, peer)
		}
	}

	sort.Slice(peers, func(i, j int) bool {
		return peers[i].Addr() < peers[j].Addr()
	})

	return peers
}
