// Package v1 contains the full set of handler functions and routes
// supported by the v1 web api.
package v1

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/yeetcoin/blockchain/app/services/node/handlers/v1/public"
	"github.com/yeetcoin/blockchain/foundation/blockchain/state"
	"github.com/yeetcoin/blockchain/foundation/blockchain/wallet"
	"github.com/yeetcoin/blockchain/foundation/events"
	"github.com/yeetcoin/blockchain/foundation/nameservice"
	"github.com/yeetcoin/blockchain/foundation/web"
	"go.uber.org/zap"
)

const version = "v1"

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Log    *zap.SugaredLogger
	State  *state.State
	NS     *nameservice.NameService
	Wallet *wallet.Wallet
	Evts   *events.Events
}

// PublicRoutes binds all the version 1 public routes.
func PublicRoutes(app *web.App, cfg Config) {
	pbl := public.Handlers{
		Log:    cfg.Log,
		State:  cfg.State,
		NS:     cfg.NS,
		Wallet: cfg.Wallet,
		WS:     websocket.Upgrader{},
		Evts:   cfg.Evts,
	}

	app.Handle(http.MethodGet, version, "/events", pbl.Events)
	app.Handle(http.MethodGet, version, "/status", pbl.Status)
	app.Handle(http.MethodGet, version, "/genesis", pbl.Genesis)
	app.Handle(http.MethodGet, version, "/balance", pbl.Balance)
	app.Handle(http.MethodGet, version, "/balance/:address", pbl.Balance)
	app.Handle(http.MethodGet, version, "/balances", pbl.Balances)
	app.Handle(http.MethodGet, version, "/history", pbl.History)
	app.Handle(http.MethodGet, version, "/history/:address", pbl.History)
	app.Handle(http.MethodGet, version, "/chain", pbl.Chain)
	app.Handle(http.MethodGet, version, "/chain/info", pbl.ChainInfo)
	app.Handle(http.MethodGet, version, "/chain/block/:height", pbl.Block)
	app.Handle(http.MethodGet, version, "/tx/pending", pbl.Pending)
	app.Handle(http.MethodGet, version, "/peers", pbl.Peers)
	app.Handle(http.MethodPost, version, "/send", pbl.Send)
	app.Handle(http.MethodPost, version, "/tx/submit", pbl.SubmitTransaction)
	app.Handle(http.MethodPost, version, "/mine", pbl.Mine)
	app.Handle(http.MethodPost, version, "/mine/once", pbl.MineOnce)
}
