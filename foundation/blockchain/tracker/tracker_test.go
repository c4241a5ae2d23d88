package tracker_test

import (
	"net"
	"testing"
	"time"

	"github.com/yeetcoin/blockchain/foundation/blockchain/network"
	"github.com/yeetcoin/blockchain/foundation/blockchain/peer"
	"github.com/yeetcoin/blockchain/foundation/blockchain/tracker"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_Register(t *testing.T) {
	client := network.NewClient(5*time.Second, nil)
	trk := tracker.New(client, nil)

	trkPeer, _ := serve(t, trk.Handler())

	ack := func(net.Addr, network.Message) (network.Message, error) {
		return network.Message{Type: network.TypeAck}, nil
	}

	nodeA, stopA := serve(t, ack)
	nodeB, _ := serve(t, ack)
	nodeC, _ := serve(t, ack)

	t.Log("Given the need to discover peers through the tracker.")
	{
		peers, err := client.GetPeers(trkPeer, network.PeersRequest{Self: nodeA})
		if err != nil || len(peers) != 0 {
			t.Fatalf("\t%s\tShould get no peers for the first node: %v %v", failed, peers, err)
		}
		t.Logf("\t%s\tShould get no peers for the first node.", success)

		peers, err = client.GetPeers(trkPeer, network.PeersRequest{Self: nodeB})
		if err != nil || len(peers) != 1 || peers[0] != nodeA {
			t.Fatalf("\t%s\tShould get the first node for the second node: %v %v", failed, peers, err)
		}
		t.Logf("\t%s\tShould get the first node for the second node.", success)

		peers, err = client.GetPeers(trkPeer, network.PeersRequest{Self: nodeB})
		if err != nil || len(peers) != 1 {
			t.Fatalf("\t%s\tShould never return the caller to itself: %v %v", failed, peers, err)
		}
		t.Logf("\t%s\tShould never return the caller to itself.", success)

		stopA()

		peers, err = client.GetPeers(trkPeer, network.PeersRequest{Self: nodeC})
		if err != nil || len(peers) != 1 || peers[0] != nodeB {
			t.Fatalf("\t%s\tShould only return the live nodes: %v %v", failed, peers, err)
		}
		t.Logf("\t%s\tShould only return the live nodes.", success)

		if registered := trk.Peers(); len(registered) != 2 {
			t.Fatalf("\t%s\tShould forget the dead node, got %v.", failed, registered)
		}
		t.Logf("\t%s\tShould forget the dead node.", success)

		if _, err := client.GetPeers(trkPeer, network.PeersRequest{}); err == nil {
			t.Fatalf("\t%s\tShould refuse a request without the caller.", failed)
		}
		t.Logf("\t%s\tShould refuse a request without the caller.", success)
	}
}

// serve runs a server for the handler on a free local port.
func serve(t *testing.T, handler network.Handler) (peer.Peer, func()) {
	t.Helper()

	srv := network.NewServer(handler, 5*time.Second, nil)
	if err := srv.Listen("127.0.0.1:0"); err != nil {
		t.Fatalf("Should be able to listen: %s", err)
	}

	go srv.Serve()
	t.Cleanup(func() { srv.Shutdown() })

	addr := srv.Addr().(*net.TCPAddr)
	return peer.New("127.0.0.1", addr.Port), func() { srv.Shutdown() }
}
