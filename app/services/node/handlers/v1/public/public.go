// Package public maintains the group of handlers for public access.
package public

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/yeetcoin/blockchain/business/web/errs"
	"github.com/yeetcoin/blockchain/foundation/blockchain/database"
	"github.com/yeetcoin/blockchain/foundation/blockchain/signature"
	"github.com/yeetcoin/blockchain/foundation/blockchain/state"
	"github.com/yeetcoin/blockchain/foundation/blockchain/wallet"
	"github.com/yeetcoin/blockchain/foundation/events"
	"github.com/yeetcoin/blockchain/foundation/nameservice"
	"github.com/yeetcoin/blockchain/foundation/web"
	"go.uber.org/zap"
)

// Handlers manages the set of node endpoints.
type Handlers struct {
	Log    *zap.SugaredLogger
	State  *state.State
	NS     *nameservice.NameService
	Wallet *wallet.Wallet
	WS     websocket.Upgrader
	Evts   *events.Events
}

// Events handles a web socket to provide events to a client.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	ch := h.Evts.Acquire(v.TraceID)
	defer h.Evts.Release(v.TraceID)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, wd := <-ch:
			if !wd {
				return nil
			}

			if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return err
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}

// Status returns a summary of the node.
func (h Handlers) Status(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	info := h.State.ChainInfo()

	st := status{
		Self:    h.State.Self().String(),
		Miner:   h.State.MinerAddress(),
		Height:  info.Height,
		TipHash: info.TipHash,
		Pending: len(h.State.Pending()),
		Peers:   len(h.State.KnownPeers()),
		Mining:  h.State.IsMining(),
	}

	return web.Respond(ctx, w, st, http.StatusOK)
}

// Genesis returns the genesis information.
func (h Handlers) Genesis(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.Genesis(), http.StatusOK)
}

// Balance returns the balance of the specified address or of this node's
// account when none is specified.
func (h Handlers) Balance(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	address, err := h.address(r)
	if err != nil {
		return err
	}

	bal := balance{
		Address: address,
		Name:    h.NS.Lookup(address),
		Balance: h.State.Balance(address),
	}

	return web.Respond(ctx, w, bal, http.StatusOK)
}

// Balances returns the balance of every account of the chain.
func (h Handlers) Balances(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	all := h.State.Balances()

	bals := make([]balance, 0, len(all))
	for address, amount := range all {
		bals = append(bals, balance{
			Address: address,
			Name:    h.NS.Lookup(address),
			Balance: amount,
		})
	}

	resp := balances{
		LatestBlock: h.State.LatestBlock().Hash(),
		Pending:     len(h.State.Pending()),
		Balances:    bals,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// History returns the confirmed transactions of the specified address or of
// this node's account when none is specified.
func (h Handlers) History(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	address, err := h.address(r)
	if err != nil {
		return err
	}

	return web.Respond(ctx, w, h.toTxs(h.State.History(address)), http.StatusOK)
}

// Chain returns the full chain.
func (h Handlers) Chain(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.Chain(), http.StatusOK)
}

// ChainInfo returns the height and tip hash of the chain.
func (h Handlers) ChainInfo(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.ChainInfo(), http.StatusOK)
}

// Block returns the block at the specified height.
func (h Handlers) Block(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	height, err := strconv.ParseUint(web.Param(r, "height"), 10, 64)
	if err != nil {
		return errs.NewTrusted(fmt.Errorf("invalid height: %w", err), http.StatusBadRequest)
	}

	block, err := h.State.Block(height)
	if err != nil {
		return errs.NewTrusted(err, http.StatusNotFound)
	}

	return web.Respond(ctx, w, block, http.StatusOK)
}

// Pending returns the transactions waiting to be mined.
func (h Handlers) Pending(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.toTxs(h.State.Pending()), http.StatusOK)
}

// Peers returns the peers known by this node.
func (h Handlers) Peers(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.KnownPeers(), http.StatusOK)
}

// Send signs a transaction from this node's account and adds it to the
// pending pool. A transaction the account can't pay for is reported as not
// sent along with the reason.
func (h Handlers) Send(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var req sendRequest
	if err := web.Decode(r, &req); err != nil {
		return errs.NewTrusted(fmt.Errorf("unable to decode payload: %w", err), http.StatusBadRequest)
	}

	var data []byte
	if req.Data != "" {
		data = []byte(req.Data)
	}

	h.Log.Infow("send", "traceid", web.GetTraceID(ctx), "recipient", req.Recipient, "amount", req.Amount, "fee", req.Fee)

	tran, err := h.State.Send(h.Wallet.PrivateKey(), req.Recipient, req.Amount, req.Fee, data)
	if err != nil {
		if isRejected(err) {
			return web.Respond(ctx, w, sendResult{Reason: err.Error()}, http.StatusBadRequest)
		}
		return err
	}

	out := h.toTx(tran)
	return web.Respond(ctx, w, sendResult{Sent: true, Tx: &out}, http.StatusOK)
}

// SubmitTransaction adds a transaction signed by a wallet to the pending pool.
func (h Handlers) SubmitTransaction(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var tran database.Tx
	if err := web.Decode(r, &tran); err != nil {
		return errs.NewTrusted(fmt.Errorf("unable to decode payload: %w", err), http.StatusBadRequest)
	}

	h.Log.Infow("submit tx", "traceid", web.GetTraceID(ctx), "tx", tran)

	if err := h.State.UpsertWalletTransaction(tran); err != nil {
		if isRejected(err) {
			return web.Respond(ctx, w, sendResult{Reason: err.Error()}, http.StatusBadRequest)
		}
		return err
	}

	out := h.toTx(tran)
	return web.Respond(ctx, w, sendResult{Sent: true, Tx: &out}, http.StatusOK)
}

// Mine starts or stops the mining loop.
func (h Handlers) Mine(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var req mineRequest
	if err := web.Decode(r, &req); err != nil {
		return errs.NewTrusted(fmt.Errorf("unable to decode payload: %w", err), http.StatusBadRequest)
	}

	var changed bool
	if *req.Mine {
		changed = h.State.StartMining()
	} else {
		changed = h.State.StopMining()
	}

	resp := miningStatus{
		Mining:  h.State.IsMining(),
		Changed: changed,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// MineOnce mines a single block from the pending pool. Having nothing to
// mine or losing the race to a peer is reported as not mined.
func (h Handlers) MineOnce(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	block, err := h.State.Mine(ctx)
	if err != nil {
		if errors.Is(err, state.ErrNothingToMine) || errors.Is(err, state.ErrNotMined) {
			return web.Respond(ctx, w, mineResult{Reason: err.Error()}, http.StatusOK)
		}
		return err
	}

	return web.Respond(ctx, w, mineResult{Mined: true, Block: &block}, http.StatusOK)
}

// =============================================================================

// address returns the address parameter of the request, defaulting to this
// node's account.
func (h Handlers) address(r *http.Request) (string, error) {
	address := web.Param(r, "address")
	if address == "" {
		return h.Wallet.Address(), nil
	}

	if !signature.IsAddress(address) {
		return "", errs.NewTrusted(fmt.Errorf("invalid address %q", address), http.StatusBadRequest)
	}

	return address, nil
}

func (h Handlers) toTx(tran database.Tx) tx {
	return tx{
		Sender:        tran.Sender,
		SenderName:    h.NS.Lookup(tran.Sender),
		Recipient:     tran.Recipient,
		RecipientName: h.NS.Lookup(tran.Recipient),
		Amount:        tran.Amount,
		Fee:           tran.Fee,
		Timestamp:     tran.Timestamp,
		Data:          string(tran.Data),
		Signature:     tran.Signature,
	}
}

func (h Handlers) toTxs(trans []database.Tx) []tx {
	out := make([]tx, len(trans))
	for i, tran := range trans {
		out[i] = h.toTx(tran)
	}
	return out
}

// isRejected reports whether the error is a transaction failing validation.
func isRejected(err error) bool {
	switch {
	case errors.Is(err, database.ErrNegativeAmount),
		errors.Is(err, database.ErrNegativeFee),
		errors.Is(err, database.ErrUnexpectedCoinbase),
		errors.Is(err, database.ErrInvalidSignature),
		errors.Is(err, database.ErrInsufficientFunds),
		errors.Is(err, database.ErrDuplicateTx),
		errors.Is(err, signature.ErrInvalidAddress),
		errors.Is(err, state.ErrDuplicatePending):
		return true
	}
	return false
}
