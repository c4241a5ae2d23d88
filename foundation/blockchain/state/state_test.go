package state_test

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/yeetcoin/blockchain/foundation/blockchain/database"
	"github.com/yeetcoin/blockchain/foundation/blockchain/database/storage"
	"github.com/yeetcoin/blockchain/foundation/blockchain/genesis"
	"github.com/yeetcoin/blockchain/foundation/blockchain/network"
	"github.com/yeetcoin/blockchain/foundation/blockchain/peer"
	"github.com/yeetcoin/blockchain/foundation/blockchain/signature"
	"github.com/yeetcoin/blockchain/foundation/blockchain/state"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

const (
	keyA     = "0000000000000000000000000000000000000000000000000000000000000001"
	keyB     = "0000000000000000000000000000000000000000000000000000000000000002"
	keyMiner = "0000000000000000000000000000000000000000000000000000000000000003"
)

// =============================================================================

func Test_SendAndMine(t *testing.T) {
	pkA := loadKey(t, keyA)
	addrB := address(t, keyB)
	miner := address(t, keyMiner)

	gen := testGenesis(t)
	st := newState(t, gen, miner, storage.NewMemory(), nil)

	t.Log("Given the need to send coins and mine them into a block.")
	{
		tx, err := st.Send(pkA, addrB, 50, 1, nil)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to send 50 from A to B: %v", failed, err)
		}
		t.Logf("\t%s\tShould be able to send 50 from A to B.", success)

		if pending := st.Pending(); len(pending) != 1 || pending[0].Signature != tx.Signature {
			t.Fatalf("\t%s\tShould hold the transaction in the pending pool: %v", failed, pending)
		}
		t.Logf("\t%s\tShould hold the transaction in the pending pool.", success)

		if err := st.UpsertWalletTransaction(tx); !errors.Is(err, state.ErrDuplicatePending) {
			t.Fatalf("\t%s\tShould refuse the same transaction twice: %v", failed, err)
		}
		t.Logf("\t%s\tShould refuse the same transaction twice.", success)

		if _, err := st.Send(pkA, addrB, 100, 1, nil); !errors.Is(err, database.ErrInsufficientFunds) {
			t.Fatalf("\t%s\tShould refuse a transaction the sender can't pay for: %v", failed, err)
		}
		t.Logf("\t%s\tShould refuse a transaction the sender can't pay for.", success)

		block, err := st.Mine(context.Background())
		if err != nil {
			t.Fatalf("\t%s\tShould be able to mine a block: %v", failed, err)
		}
		t.Logf("\t%s\tShould be able to mine a block.", success)

		reward := int64(gen.CalcReward(1)) + 1
		if len(block.Transactions) != 2 || !block.Transactions[0].IsCoinbase() || block.Transactions[0].Amount != reward {
			t.Fatalf("\t%s\tShould pay the miner the reward plus the fee: %v", failed, block.Transactions)
		}
		if block.Transactions[1].Signature != tx.Signature {
			t.Fatalf("\t%s\tShould include the sent transaction: %v", failed, block.Transactions)
		}
		t.Logf("\t%s\tShould hold the coinbase and the sent transaction.", success)

		addrA := signature.PublicKeyToAddress(pkA.PublicKey)
		balances := map[string]int64{
			addrA: 49,
			addrB: 50,
			miner: reward,
		}
		for addr, exp := range balances {
			if got := st.Balance(addr); got != exp {
				t.Fatalf("\t%s\tShould have balance %d for %.10s, got %d.", failed, exp, addr, got)
			}
		}
		t.Logf("\t%s\tShould have updated the balances.", success)

		if info := st.ChainInfo(); info.Height != 2 || info.TipHash != block.Hash() {
			t.Fatalf("\t%s\tShould have appended the block: %+v", failed, info)
		}
		if len(st.Pending()) != 0 {
			t.Fatalf("\t%s\tShould have emptied the pending pool.", failed)
		}
		t.Logf("\t%s\tShould have appended the block and emptied the pool.", success)

		if hist := st.History(addrB); len(hist) != 1 || hist[0].Signature != tx.Signature {
			t.Fatalf("\t%s\tShould list the transaction in the history of B: %v", failed, hist)
		}
		t.Logf("\t%s\tShould list the transaction in the history of B.", success)

		if err := st.UpsertNodeTransaction(tx); !errors.Is(err, database.ErrDuplicateTx) {
			t.Fatalf("\t%s\tShould refuse a replay of a mined transaction: %v", failed, err)
		}
		t.Logf("\t%s\tShould refuse a replay of a mined transaction.", success)

		if _, err := st.Mine(context.Background()); !errors.Is(err, state.ErrNothingToMine) {
			t.Fatalf("\t%s\tShould have nothing to mine: %v", failed, err)
		}
		t.Logf("\t%s\tShould have nothing to mine.", success)
	}
}

func Test_MineCancel(t *testing.T) {
	pkA := loadKey(t, keyA)

	gen := testGenesis(t)
	gen.Difficulty = 12

	st := newState(t, gen, address(t, keyMiner), storage.NewMemory(), nil)

	t.Log("Given the need to abandon mining.")
	{
		if _, err := st.Send(pkA, address(t, keyB), 1, 1, nil); err != nil {
			t.Fatalf("\t%s\tShould be able to send: %v", failed, err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()

		if _, err := st.Mine(ctx); !errors.Is(err, state.ErrNotMined) {
			t.Fatalf("\t%s\tShould stop mining once the context is done: %v", failed, err)
		}
		t.Logf("\t%s\tShould stop mining once the context is done.", success)

		if st.ChainInfo().Height != 1 || len(st.Pending()) != 1 {
			t.Fatalf("\t%s\tShould leave the chain and pool untouched.", failed)
		}
		t.Logf("\t%s\tShould leave the chain and pool untouched.", success)
	}
}

func Test_ProposedBlock(t *testing.T) {
	pkA := loadKey(t, keyA)
	gen := testGenesis(t)

	miner := newState(t, gen, address(t, keyMiner), storage.NewMemory(), nil)
	node := newState(t, gen, address(t, keyB), storage.NewMemory(), nil)
	worker := &fakeWorker{}
	node.Worker = worker

	p := startNode(t, node)
	client := network.NewClient(5*time.Second, nil)

	t.Log("Given the need to accept blocks from the peers.")
	{
		block := mine(t, miner, pkA)

		bad := block.Copy()
		for database.IsHashSolved(bad.Header.Difficulty, bad.Header.Hash) {
			bad.Header.Nonce++
			bad.Header.Seal()
		}

		msg, _ := network.NewMessage(network.TypeNewBlock, bad)
		if _, err := client.Send(p, msg); err == nil {
			t.Fatalf("\t%s\tShould reject a block with an unsolved hash.", failed)
		}
		if node.ChainInfo().Height != 1 {
			t.Fatalf("\t%s\tShould leave the chain height unchanged, got %d.", failed, node.ChainInfo().Height)
		}
		t.Logf("\t%s\tShould reject a block with an unsolved hash.", success)

		msg, _ = network.NewMessage(network.TypeNewBlock, block)
		if _, err := client.Send(p, msg); err != nil {
			t.Fatalf("\t%s\tShould accept a valid block: %v", failed, err)
		}
		if node.ChainInfo() != miner.ChainInfo() {
			t.Fatalf("\t%s\tShould have the same chain as the miner: %+v", failed, node.ChainInfo())
		}
		t.Logf("\t%s\tShould accept a valid block.", success)

		mine(t, miner, pkA)
		ahead := mine(t, miner, pkA)

		if err := node.ProcessProposedBlock(ahead); !errors.Is(err, database.ErrChainForked) {
			t.Fatalf("\t%s\tShould report a block too far ahead: %v", failed, err)
		}
		if worker.syncs() != 1 {
			t.Fatalf("\t%s\tShould signal a resync, got %d.", failed, worker.syncs())
		}
		t.Logf("\t%s\tShould signal a resync for a block too far ahead.", success)
	}
}

func Test_UpdateBlockchain(t *testing.T) {
	pkA := loadKey(t, keyA)
	gen := testGenesis(t)

	long := newState(t, gen, address(t, keyMiner), storage.NewMemory(), nil)
	for i := 0; i < 7; i++ {
		mine(t, long, pkA)
	}
	longPeer := startNode(t, long)

	knownPeers := peer.NewPeerSet()
	knownPeers.Add(longPeer)

	short := newState(t, gen, address(t, keyB), storage.NewMemory(), knownPeers)
	for i := 0; i < 4; i++ {
		mine(t, short, pkA)
	}

	t.Log("Given the need to adopt the longest chain of the network.")
	{
		if long.ChainInfo().Height != 8 || short.ChainInfo().Height != 5 {
			t.Fatalf("\t%s\tShould start with 8 and 5 blocks: %d %d", failed, long.ChainInfo().Height, short.ChainInfo().Height)
		}

		bad := long.Chain()
		bad[3].Header.Nonce++
		if replaced, err := short.ReplaceChain(bad, longPeer); replaced || !errors.Is(err, database.ErrIntegrity) {
			t.Fatalf("\t%s\tShould refuse a tampered chain: %v %v", failed, replaced, err)
		}
		if short.ChainInfo().Height != 5 {
			t.Fatalf("\t%s\tShould keep the local chain.", failed)
		}
		t.Logf("\t%s\tShould refuse a tampered chain and keep the local one.", success)

		replaced, err := short.UpdateBlockchain()
		if err != nil || !replaced {
			t.Fatalf("\t%s\tShould replace the local chain: %v %v", failed, replaced, err)
		}
		if short.ChainInfo() != long.ChainInfo() {
			t.Fatalf("\t%s\tShould hold the longest chain: %+v", failed, short.ChainInfo())
		}
		t.Logf("\t%s\tShould replace the local chain with the longest one.", success)

		if n := len(short.Pending()); n != 4 {
			t.Fatalf("\t%s\tShould return the orphaned transactions to the pool, got %d.", failed, n)
		}
		t.Logf("\t%s\tShould return the orphaned transactions to the pool.", success)

		if replaced, err := short.UpdateBlockchain(); replaced || err != nil {
			t.Fatalf("\t%s\tShould keep a chain as long as the peers': %v %v", failed, replaced, err)
		}
		t.Logf("\t%s\tShould keep a chain as long as the peers'.", success)
	}
}

func Test_MergePeers(t *testing.T) {
	gen := testGenesis(t)
	self := peer.New("127.0.0.1", 9080)

	st, err := state.New(state.Config{
		MinerAddress: address(t, keyMiner),
		Self:         self,
		Genesis:      gen,
		Storage:      storage.NewMemory(),
	})
	if err != nil {
		t.Fatalf("Should be able to create the state: %s", err)
	}

	t.Log("Given the need to exchange peer lists.")
	{
		a := peer.New("127.0.0.1", 9081)
		b := peer.New("127.0.0.1", 9082)

		if got := st.MergePeers(a, []peer.Peer{self, b}); len(got) != 0 {
			t.Fatalf("\t%s\tShould answer the first caller with no peers: %v", failed, got)
		}
		t.Logf("\t%s\tShould answer the first caller with no peers.", success)

		known := st.KnownPeers()
		if len(known) != 2 {
			t.Fatalf("\t%s\tShould learn the caller and its peers but not itself: %v", failed, known)
		}
		t.Logf("\t%s\tShould learn the caller and its peers but not itself.", success)

		got := st.MergePeers(b, nil)
		if len(got) != 1 || !got[0].Match(a) {
			t.Fatalf("\t%s\tShould answer the caller without itself: %v", failed, got)
		}
		t.Logf("\t%s\tShould answer the caller without itself.", success)
	}
}

func Test_SelectStrategy(t *testing.T) {
	gen := testGenesis(t)

	t.Log("Given the need to choose how the pending pool is ordered.")
	{
		for _, strategy := range []string{"", "fifo", "fee"} {
			_, err := state.New(state.Config{
				MinerAddress:   address(t, keyMiner),
				Genesis:        gen,
				Storage:        storage.NewMemory(),
				SelectStrategy: strategy,
			})
			if err != nil {
				t.Fatalf("\t%s\tShould accept the %q strategy: %v", failed, strategy, err)
			}
		}
		t.Logf("\t%s\tShould accept the known strategies.", success)

		_, err := state.New(state.Config{
			MinerAddress:   address(t, keyMiner),
			Genesis:        gen,
			Storage:        storage.NewMemory(),
			SelectStrategy: "nonce",
		})
		if err == nil {
			t.Fatalf("\t%s\tShould reject an unknown strategy.", failed)
		}
		t.Logf("\t%s\tShould reject an unknown strategy.", success)
	}
}

func Test_Persist(t *testing.T) {
	pkA := loadKey(t, keyA)
	gen := testGenesis(t)
	path := t.TempDir()

	disk, err := storage.NewDisk(path)
	if err != nil {
		t.Fatalf("Should be able to open the storage: %s", err)
	}
	st := newState(t, gen, address(t, keyMiner), disk, nil)

	t.Log("Given the need to keep the chain across restarts.")
	{
		mine(t, st, pkA)
		info := st.ChainInfo()

		if err := st.Shutdown(); err != nil {
			t.Fatalf("\t%s\tShould be able to shutdown: %v", failed, err)
		}
		t.Logf("\t%s\tShould be able to shutdown.", success)

		disk, err := storage.NewDisk(path)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to reopen the storage: %v", failed, err)
		}

		reopened := newState(t, gen, address(t, keyMiner), disk, nil)
		if reopened.ChainInfo() != info {
			t.Fatalf("\t%s\tShould load the saved chain: %+v", failed, reopened.ChainInfo())
		}
		t.Logf("\t%s\tShould load the saved chain.", success)
	}
}

// =============================================================================

// fakeWorker records the signals sent by the state.
type fakeWorker struct {
	mu   sync.Mutex
	sync int
}

func (w *fakeWorker) Shutdown()                 {}
func (w *fakeWorker) Sync()                     {}
func (w *fakeWorker) SignalShareTx(database.Tx) {}
func (w *fakeWorker) StartMining() bool         { return false }
func (w *fakeWorker) StopMining() bool          { return false }
func (w *fakeWorker) IsMining() bool            { return false }

func (w *fakeWorker) SignalSync() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.sync++
}

func (w *fakeWorker) syncs() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.sync
}

// testGenesis credits A with 100 coins and mines a block per transaction.
func testGenesis(t *testing.T) genesis.Genesis {
	gen := genesis.Default()
	gen.Recipient = address(t, keyA)
	gen.InitialSupply = 100
	gen.TransPerBlock = 1
	return gen
}

func newState(t *testing.T, gen genesis.Genesis, miner string, strg database.Storage, knownPeers *peer.PeerSet) *state.State {
	t.Helper()

	st, err := state.New(state.Config{
		MinerAddress: miner,
		Genesis:      gen,
		Storage:      strg,
		KnownPeers:   knownPeers,
		Client:       network.NewClient(5*time.Second, nil),
	})
	if err != nil {
		t.Fatalf("Should be able to create the state: %s", err)
	}

	return st
}

// mine sends a coin to B and mines the transaction into a block.
func mine(t *testing.T, st *state.State, pk *ecdsa.PrivateKey) database.Block {
	t.Helper()

	if _, err := st.Send(pk, address(t, keyB), 1, 1, nil); err != nil {
		t.Fatalf("Should be able to send: %s", err)
	}

	block, err := st.Mine(context.Background())
	if err != nil {
		t.Fatalf("Should be able to mine: %s", err)
	}

	return block
}

// startNode serves the node's protocol on a free local port.
func startNode(t *testing.T, st *state.State) peer.Peer {
	t.Helper()

	srv := network.NewServer(network.NodeHandler(st), 5*time.Second, nil)
	if err := srv.Listen("127.0.0.1:0"); err != nil {
		t.Fatalf("Should be able to listen: %s", err)
	}

	go srv.Serve()
	t.Cleanup(func() { srv.Shutdown() })

	return peer.New("127.0.0.1", srv.Addr().(*net.TCPAddr).Port)
}

func loadKey(t *testing.T, hexKey string) *ecdsa.PrivateKey {
	t.Helper()

	pk, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		t.Fatalf("Should be able to load the key: %s", err)
	}
	return pk
}

func address(t *testing.T, hexKey string) string {
	return signature.PublicKeyToAddress(loadKey(t, hexKey).PublicKey)
}
