package public

import (
	"github.com/yeetcoin/blockchain/business/sys/validate"
	"github.com/yeetcoin/blockchain/foundation/blockchain/database"
)

type sendRequest struct {
	Recipient string `json:"recipient" validate:"required,address"`
	Amount    int64  `json:"amount" validate:"gte=0"`
	Fee       int64  `json:"fee" validate:"gte=0"`
	Data      string `json:"data"`
}

// Validate checks the data in the model is considered clean.
func (r sendRequest) Validate() error {
	return validate.Check(r)
}

type mineRequest struct {
	Mine *bool `json:"mine" validate:"required"`
}

// Validate checks the data in the model is considered clean.
func (r mineRequest) Validate() error {
	return validate.Check(r)
}

// =============================================================================

type balance struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Balance int64  `json:"balance"`
}

type balances struct {
	LatestBlock string    `json:"latest_block"`
	Pending     int       `json:"pending"`
	Balances    []balance `json:"balances"`
}

type tx struct {
	Sender        string `json:"sender"`
	SenderName    string `json:"sender_name"`
	Recipient     string `json:"recipient"`
	RecipientName string `json:"recipient_name"`
	Amount        int64  `json:"amount"`
	Fee           int64  `json:"fee"`
	Timestamp     int64  `json:"timestamp"`
	Data          string `json:"data,omitempty"`
	Signature     string `json:"signature,omitempty"`
}

type sendResult struct {
	Sent   bool   `json:"sent"`
	Reason string `json:"reason,omitempty"`
	Tx     *tx    `json:"tx,omitempty"`
}

type mineResult struct {
	Mined  bool            `json:"mined"`
	Reason string          `json:"reason,omitempty"`
	Block  *database.Block `json:"block,omitempty"`
}

type miningStatus struct {
	Mining  bool `json:"mining"`
	Changed bool `json:"changed"`
}

type status struct {
	Self    string `json:"self"`
	Miner   string `json:"miner"`
	Height  uint64 `json:"height"`
	TipHash string `json:"tip_hash"`
	Pending int    `json:"pending"`
	Peers   int    `json:"peers"`
	Mining  bool   `json:"mining"`
}
