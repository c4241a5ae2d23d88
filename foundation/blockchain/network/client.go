package network

import (
	"errors"
	"fmt"
	"net"
	"sort"
	"sync"
	"time"

	"github.com/yeetcoin/blockchain/foundation/blockchain/database"
	"github.com/yeetcoin/blockchain/foundation/blockchain/peer"
)

// DefaultTimeout is the idle timeout applied to every connection.
const DefaultTimeout = 30 * time.Second

// BroadcastWorkers is the number of peers contacted at the same time.
const BroadcastWorkers = 10

// ErrUnexpectedReply is returned when a peer answers with the wrong type.
var ErrUnexpectedReply = errors.New("unexpected reply")

// Client sends requests to peers. Each request uses its own connection.
type Client struct {
	timeout   time.Duration
	workers   int
	evHandler func(v string, args ...any)
}

// NewClient constructs a client. A zero timeout uses DefaultTimeout.
func NewClient(timeout time.Duration, evHandler func(v string, args ...any)) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if evHandler == nil {
		evHandler = func(string, ...any) {}
	}

	return &Client{
		timeout:   timeout,
		workers:   BroadcastWorkers,
		evHandler: evHandler,
	}
}

// Send opens a connection to the peer, writes the message and reads the
// reply. An error message from the peer is returned as a *RemoteError.
func (c *Client) Send(p peer.Peer, msg Message) (Message, error) {
	conn, err := net.DialTimeout("tcp", p.Addr(), c.timeout)
	if err != nil {
		return Message{}, fmt.Errorf("dial %s: %w", p, err)
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(c.timeout)); err != nil {
		return Message{}, err
	}

	if err := WriteMessage(conn, msg); err != nil {
		return Message{}, fmt.Errorf("send %s to %s: %w", msg.Type, p, err)
	}

	resp, err := ReadMessage(conn)
	if err != nil {
		return Message{}, fmt.Errorf("reply %s from %s: %w", msg.Type, p, err)
	}

	if err := resp.Err(); err != nil {
		return resp, err
	}

	return resp, nil
}

// Ping reports whether the peer answers a liveness check.
func (c *Client) Ping(p peer.Peer) bool {
	resp, err := c.Send(p, Message{Type: TypePing})
	return err == nil && resp.Type == TypeAck
}

// =============================================================================

// Response is the outcome of sending a message to one peer.
type Response struct {
	Peer    peer.Peer
	Message Message
	Err     error
}

// Broadcast sends the message to every peer using a bounded pool of
// workers. Each peer is pinged first and unreachable peers are skipped. The
// responses are returned in the order of the peers.
func (c *Client) Broadcast(peers []peer.Peer, msg Message) []Response {
	results := make([]*Response, len(peers))

	c.forEach(peers, func(i int, p peer.Peer) {
		if !c.Ping(p) {
			c.evHandler("network: Broadcast: peer[%s] unreachable: skipped", p)
			return
		}

		resp, err := c.Send(p, msg)
		if err != nil {
			c.evHandler("network: Broadcast: peer[%s]: %s: ERROR: %s", p, msg.Type, err)
		}
		results[i] = &Response{Peer: p, Message: resp, Err: err}
	})

	var responses []Response
	for _, resp := range results {
		if resp != nil {
			responses = append(responses, *resp)
		}
	}

	return responses
}

// Alive returns the peers answering a liveness check, in the order of the
// peers.
func (c *Client) Alive(peers []peer.Peer) []peer.Peer {
	alive := make([]bool, len(peers))

	c.forEach(peers, func(i int, p peer.Peer) {
		alive[i] = c.Ping(p)
	})

	var live []peer.Peer
	for i, p := range peers {
		if alive[i] {
			live = append(live, p)
		}
	}

	return live
}

// forEach calls fn for every peer from the pool of workers and returns
// once every call is done.
func (c *Client) forEach(peers []peer.Peer, fn func(i int, p peer.Peer)) {
	work := make(chan int)

	var wg sync.WaitGroup
	workers := min(c.workers, len(peers))
	wg.Add(workers)

	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range work {
				fn(i, peers[i])
			}
		}()
	}

	for i := range peers {
		work <- i
	}
	close(work)

	wg.Wait()
}

// =============================================================================

// GetLongestChain asks every peer for its chain summary and fetches the
// chain of the tallest peer that is strictly taller than the local chain.
// A nil chain means no peer is ahead.
func (c *Client) GetLongestChain(peers []peer.Peer, local database.ChainInfo) ([]database.Block, peer.Peer, error) {
	type candidate struct {
		peer peer.Peer
		info database.ChainInfo
	}

	var candidates []candidate
	for _, resp := range c.Broadcast(peers, Message{Type: TypeChainInfo}) {
		if resp.Err != nil || resp.Message.Type != TypeChainInfo {
			continue
		}

		var info database.ChainInfo
		if err := resp.Message.Decode(&info); err != nil {
			c.evHandler("network: GetLongestChain: peer[%s]: ERROR: %s", resp.Peer, err)
			continue
		}

		if info.Height > local.Height {
			candidates = append(candidates, candidate{peer: resp.Peer, info: info})
		}
	}

	if len(candidates) == 0 {
		return nil, peer.Peer{}, nil
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].info.Height > candidates[j].info.Height
	})

	var errs []error
	for _, cand := range candidates {
		c.evHandler("network: GetLongestChain: peer[%s]: height[%d]: requesting chain", cand.peer, cand.info.Height)

		blocks, err := c.GetChain(cand.peer)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		if uint64(len(blocks)) <= local.Height {
			errs = append(errs, fmt.Errorf("peer %s sent a chain of %d blocks", cand.peer, len(blocks)))
			continue
		}

		return blocks, cand.peer, nil
	}

	return nil, peer.Peer{}, errors.Join(errs...)
}

// GetChain requests the full chain held by the peer.
func (c *Client) GetChain(p peer.Peer) ([]database.Block, error) {
	resp, err := c.Send(p, Message{Type: TypeGetChain})
	if err != nil {
		return nil, err
	}

	if resp.Type != TypeChain {
		return nil, fmt.Errorf("%w: %s", ErrUnexpectedReply, resp.Type)
	}

	var blocks []database.Block
	if err := resp.Decode(&blocks); err != nil {
		return nil, err
	}

	return blocks, nil
}

// GetPeers announces the node to the peer and returns the peers it knows.
func (c *Client) GetPeers(p peer.Peer, req PeersRequest) ([]peer.Peer, error) {
	msg, err := NewMessage(TypeGetPeers, req)
	if err != nil {
		return nil, err
	}

	resp, err := c.Send(p, msg)
	if err != nil {
		return nil, err
	}

	if resp.Type != TypePeers {
		return nil, fmt.Errorf("%w: %s", ErrUnexpectedReply, resp.Type)
	}

	var peers []peer.Peer
	if len(resp.Data) == 0 {
		return peers, nil
	}

	if err := resp.Decode(&peers); err != nil {
		return nil, err
	}

	return peers, nil
}

// GetTransactions requests the pending pool held by the peer.
func (c *Client) GetTransactions(p peer.Peer) ([]database.Tx, error) {
	resp, err := c.Send(p, Message{Type: TypeGetTransactions})
	if err != nil {
		return nil, err
	}

	if resp.Type != TypeTransactions {
		return nil, fmt.Errorf("%w: %s", ErrUnexpectedReply, resp.Type)
	}

	var txs []database.Tx
	if len(resp.Data) == 0 {
		return txs, nil
	}

	if err := resp.Decode(&txs); err != nil {
		return nil, err
	}

	return txs, nil
}
