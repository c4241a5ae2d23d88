package pow_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/yeetcoin/blockchain/foundation/blockchain/database"
	"github.com/yeetcoin/blockchain/foundation/blockchain/genesis"
	"github.com/yeetcoin/blockchain/foundation/blockchain/pow"
	"github.com/yeetcoin/blockchain/foundation/blockchain/signature"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_ProofOfWork(t *testing.T) {
	gen := genesis.Default()
	genBlock := database.GenesisBlock(gen)

	t.Log("Given the need to mine blocks.")
	{
		for _, difficulty := range []uint{1, 2, 3} {
			block := database.NewBlock(genBlock.Hash(), gen.Recipient, difficulty, 1, nil)

			if err := pow.ProofOfWork(context.Background(), &block.Header, nil, nil); err != nil {
				t.Fatalf("\t%s\tShould solve difficulty %d: %v", failed, difficulty, err)
			}

			if !database.IsHashSolved(difficulty, block.Header.Hash) {
				t.Fatalf("\t%s\tShould produce a solved hash for difficulty %d: %s", failed, difficulty, block.Header.Hash)
			}

			if block.Header.Hash != block.Header.ComputeHash() {
				t.Fatalf("\t%s\tShould leave the hash matching the header.", failed)
			}
			t.Logf("\t%s\tShould solve difficulty %d.", success, difficulty)
		}

		// The search is sequential from zero so mining the same header twice
		// finds the same nonce.
		a := database.NewBlock(genBlock.Hash(), gen.Recipient, 2, 1, nil)
		b := a.Copy()
		pow.ProofOfWork(context.Background(), &a.Header, nil, nil)
		pow.ProofOfWork(context.Background(), &b.Header, nil, nil)
		if a.Header.Nonce != b.Header.Nonce {
			t.Fatalf("\t%s\tShould find the same nonce for the same header.", failed)
		}
		t.Logf("\t%s\tShould find the same nonce for the same header.", success)
	}
}

func Test_Abort(t *testing.T) {
	gen := genesis.Default()
	genBlock := database.GenesisBlock(gen)

	t.Log("Given the need to abort mining.")
	{
		block := database.NewBlock(genBlock.Hash(), gen.Recipient, 64, 1, nil)

		var checks int
		cancel := func() bool {
			checks++
			return true
		}

		err := pow.ProofOfWork(context.Background(), &block.Header, cancel, nil)
		if !errors.Is(err, pow.ErrMiningAborted) {
			t.Fatalf("\t%s\tShould abort when the predicate starts true: %v", failed, err)
		}

		if block.Header.Hash != "" || checks != 1 {
			t.Fatalf("\t%s\tShould abort before computing a hash: hash[%s] checks[%d]", failed, block.Header.Hash, checks)
		}
		t.Logf("\t%s\tShould abort before computing a hash.", success)

		var hashes int
		cancel = func() bool {
			hashes++
			return hashes > 5
		}

		if err := pow.ProofOfWork(context.Background(), &block.Header, cancel, nil); !errors.Is(err, pow.ErrMiningAborted) {
			t.Fatalf("\t%s\tShould abort once the predicate turns true: %v", failed, err)
		}

		if block.Header.Nonce != 4 {
			t.Fatalf("\t%s\tShould check the predicate before every hash, last nonce %d.", failed, block.Header.Nonce)
		}
		t.Logf("\t%s\tShould check the predicate before every hash.", success)

		ctx, cancelCtx := context.WithCancel(context.Background())
		cancelCtx()

		if err := pow.ProofOfWork(ctx, &block.Header, nil, nil); !errors.Is(err, context.Canceled) {
			t.Fatalf("\t%s\tShould stop when the context is cancelled: %v", failed, err)
		}
		t.Logf("\t%s\tShould stop when the context is cancelled.", success)
	}
}

func Test_CalculateDifficulty(t *testing.T) {
	type table struct {
		name   string
		height uint64
		prev   uint
		peers  int
		exp    uint
	}

	tt := []table{
		{name: "keep", height: 4, prev: 3, peers: 1000, exp: 3},
		{name: "recompute", height: 9, prev: 3, peers: 1000, exp: 10},
		{name: "round", height: 19, prev: 3, peers: 250, exp: 3},
		{name: "floor", height: 29, prev: 3, peers: 10, exp: 1},
		{name: "none", height: 39, prev: 3, peers: 0, exp: 1},
	}

	for _, tst := range tt {
		f := func(t *testing.T) {
			latest := database.Block{Header: database.BlockHeader{Height: tst.height, Difficulty: tst.prev}}

			got := pow.CalculateDifficulty(latest, genesis.DifficultyInterval, tst.peers)
			if got != tst.exp {
				t.Fatalf("Test %s:\tShould get difficulty %d, got %d.", tst.name, tst.exp, got)
			}
		}

		t.Run(tst.name, f)
	}
}

func Test_Reward(t *testing.T) {
	pkA, err := crypto.HexToECDSA("0000000000000000000000000000000000000000000000000000000000000001")
	if err != nil {
		t.Fatalf("Should be able to load private key: %s", err)
	}
	pkB, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("Should be able to generate a key: %s", err)
	}
	miner, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("Should be able to generate a key: %s", err)
	}

	addrA := signature.PublicKeyToAddress(pkA.PublicKey)
	addrB := signature.PublicKeyToAddress(pkB.PublicKey)
	addrMiner := signature.PublicKeyToAddress(miner.PublicKey)

	gen := genesis.Default()
	gen.Recipient = addrA
	gen.InitialSupply = 100

	genBlock := database.GenesisBlock(gen)

	tx, err := database.NewTx(addrA, addrB, 50, 1, nil)
	if err != nil {
		t.Fatalf("Should be able to construct a transaction: %s", err)
	}
	tx, err = tx.Sign(pkA)
	if err != nil {
		t.Fatalf("Should be able to sign a transaction: %s", err)
	}

	block := database.NewBlock(genBlock.Hash(), addrMiner, pow.CalculateDifficulty(genBlock, gen.DifficultyInterval, 0), 1, []database.Tx{tx})
	if err := pow.ProofOfWork(context.Background(), &block.Header, nil, nil); err != nil {
		t.Fatalf("Should solve the block: %s", err)
	}

	if err := pow.Reward(&block, gen.CalcReward(1)); err != nil {
		t.Fatalf("Should be able to reward the block: %s", err)
	}

	if len(block.Transactions) != 2 || !block.Transactions[0].IsCoinbase() {
		t.Fatalf("Should prepend the coinbase transaction.")
	}

	if exp := int64(gen.CalcReward(1)) + 1; block.Transactions[0].Amount != exp {
		t.Fatalf("Should pay the reward plus the fees, got %d, exp %d.", block.Transactions[0].Amount, exp)
	}

	ledger, err := database.ValidateBlock(gen, genBlock, block, database.NewLedger([]database.Block{genBlock}), nil)
	if err != nil {
		t.Fatalf("Should produce a valid block: %s", err)
	}

	if ledger.Balance(addrA) != 49 || ledger.Balance(addrB) != 50 || ledger.Balance(addrMiner) != 51 {
		t.Fatalf("Should move the amounts and pay the miner: %v", ledger)
	}
}
