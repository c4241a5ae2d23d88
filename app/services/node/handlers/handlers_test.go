package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/yeetcoin/blockchain/app/services/node/handlers"
	"github.com/yeetcoin/blockchain/foundation/blockchain/database/storage"
	"github.com/yeetcoin/blockchain/foundation/blockchain/genesis"
	"github.com/yeetcoin/blockchain/foundation/blockchain/network"
	"github.com/yeetcoin/blockchain/foundation/blockchain/signature"
	"github.com/yeetcoin/blockchain/foundation/blockchain/state"
	"github.com/yeetcoin/blockchain/foundation/blockchain/wallet"
	"github.com/yeetcoin/blockchain/foundation/blockchain/worker"
	"github.com/yeetcoin/blockchain/foundation/events"
	"github.com/yeetcoin/blockchain/foundation/nameservice"
	"go.uber.org/zap"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

const (
	keyA = "0000000000000000000000000000000000000000000000000000000000000001"
	keyB = "0000000000000000000000000000000000000000000000000000000000000002"
)

type result struct {
	Sent    bool   `json:"sent"`
	Mined   bool   `json:"mined"`
	Mining  bool   `json:"mining"`
	Changed bool   `json:"changed"`
	Reason  string `json:"reason"`
	Balance int64  `json:"balance"`
	Name    string `json:"name"`
	Error   string `json:"error"`
}

func Test_PublicAPI(t *testing.T) {
	root := t.TempDir()

	pkA, _ := crypto.HexToECDSA(keyA)
	pkB, _ := crypto.HexToECDSA(keyB)
	crypto.SaveECDSA(filepath.Join(root, "alice.ecdsa"), pkA)
	crypto.SaveECDSA(filepath.Join(root, "bob.ecdsa"), pkB)
	addrA := signature.PublicKeyToAddress(pkA.PublicKey)
	addrB := signature.PublicKeyToAddress(pkB.PublicKey)

	w, err := wallet.Load(filepath.Join(root, "alice.ecdsa"))
	if err != nil {
		t.Fatalf("Should be able to load the wallet: %s", err)
	}

	ns, err := nameservice.New(root)
	if err != nil {
		t.Fatalf("Should be able to load the name service: %s", err)
	}

	gen := genesis.Default()
	gen.Recipient = addrA
	gen.InitialSupply = 100
	gen.TransPerBlock = 1

	st, err := state.New(state.Config{
		MinerAddress: addrA,
		Genesis:      gen,
		Storage:      storage.NewMemory(),
		Client:       network.NewClient(time.Second, nil),
	})
	if err != nil {
		t.Fatalf("Should be able to create the state: %s", err)
	}
	worker.Run(st, nil)
	t.Cleanup(func() { st.Shutdown() })

	mux := handlers.PublicMux(handlers.MuxConfig{
		Log:    zap.NewNop().Sugar(),
		State:  st,
		NS:     ns,
		Wallet: w,
		Evts:   events.New(),
	})

	call := func(method string, path string, body any) (int, result) {
		var buf bytes.Buffer
		if body != nil {
			json.NewEncoder(&buf).Encode(body)
		}

		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(method, path, &buf))

		var res result
		json.Unmarshal(rec.Body.Bytes(), &res)
		return rec.Code, res
	}

	t.Log("Given the need to drive the node through its API.")
	{
		if code, res := call(http.MethodGet, "/v1/balance", nil); code != http.StatusOK || res.Balance != 100 || res.Name != "alice" {
			t.Fatalf("\t%s\tShould report the node account balance: %d %+v", failed, code, res)
		}
		t.Logf("\t%s\tShould report the node account balance.", success)

		send := map[string]any{"recipient": addrB, "amount": 50, "fee": 1}
		if code, res := call(http.MethodPost, "/v1/send", send); code != http.StatusOK || !res.Sent {
			t.Fatalf("\t%s\tShould send coins: %d %+v", failed, code, res)
		}
		t.Logf("\t%s\tShould send coins.", success)

		overspend := map[string]any{"recipient": addrB, "amount": 1000, "fee": 1}
		if code, res := call(http.MethodPost, "/v1/send", overspend); code != http.StatusBadRequest || res.Sent || res.Reason == "" {
			t.Fatalf("\t%s\tShould refuse to overspend with a reason: %d %+v", failed, code, res)
		}
		t.Logf("\t%s\tShould refuse to overspend with a reason.", success)

		invalid := map[string]any{"recipient": "0x12", "amount": 1}
		if code, res := call(http.MethodPost, "/v1/send", invalid); code != http.StatusBadRequest || res.Error != "data validation error" {
			t.Fatalf("\t%s\tShould refuse an invalid recipient: %d %+v", failed, code, res)
		}
		t.Logf("\t%s\tShould refuse an invalid recipient.", success)

		if code, res := call(http.MethodPost, "/v1/mine/once", nil); code != http.StatusOK || !res.Mined {
			t.Fatalf("\t%s\tShould mine the pending transaction: %d %+v", failed, code, res)
		}
		t.Logf("\t%s\tShould mine the pending transaction.", success)

		if code, res := call(http.MethodGet, "/v1/balance/"+addrB, nil); code != http.StatusOK || res.Balance != 50 || res.Name != "bob" {
			t.Fatalf("\t%s\tShould credit the recipient: %d %+v", failed, code, res)
		}
		t.Logf("\t%s\tShould credit the recipient.", success)

		if code, res := call(http.MethodPost, "/v1/mine/once", nil); code != http.StatusOK || res.Mined || res.Reason == "" {
			t.Fatalf("\t%s\tShould report there is nothing to mine: %d %+v", failed, code, res)
		}
		t.Logf("\t%s\tShould report there is nothing to mine.", success)

		if code, res := call(http.MethodGet, "/v1/balance/nope", nil); code != http.StatusBadRequest {
			t.Fatalf("\t%s\tShould refuse an invalid address: %d %+v", failed, code, res)
		}
		t.Logf("\t%s\tShould refuse an invalid address.", success)

		if code, res := call(http.MethodPost, "/v1/mine", map[string]any{"mine": true}); code != http.StatusOK || !res.Mining || !res.Changed {
			t.Fatalf("\t%s\tShould start mining: %d %+v", failed, code, res)
		}
		if code, res := call(http.MethodPost, "/v1/mine", map[string]any{"mine": false}); code != http.StatusOK || res.Mining || !res.Changed {
			t.Fatalf("\t%s\tShould stop mining: %d %+v", failed, code, res)
		}
		t.Logf("\t%s\tShould start and stop mining.", success)

		if code, _ := call(http.MethodPost, "/v1/mine", map[string]any{}); code != http.StatusBadRequest {
			t.Fatalf("\t%s\tShould require the mine flag, got %d.", failed, code)
		}
		t.Logf("\t%s\tShould require the mine flag.", success)
	}
}
