package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"github.com/yeetcoin/blockchain/foundation/blockchain/database"
	"github.com/yeetcoin/blockchain/foundation/blockchain/wallet"
)

var (
	to    string
	value int64
	fee   int64
	data  string
)

type sendResult struct {
	Sent   bool   `json:"sent"`
	Reason string `json:"reason,omitempty"`
	Tx     *tx    `json:"tx,omitempty"`
}

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Sign a transaction and submit it to the node",
	Run:   sendRun,
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVarP(&to, "to", "t", "", "Address of the recipient.")
	sendCmd.Flags().Int64VarP(&value, "value", "v", 0, "Value to send.")
	sendCmd.Flags().Int64VarP(&fee, "fee", "f", 0, "Fee paid to the miner.")
	sendCmd.Flags().StringVarP(&data, "data", "d", "", "Data to send.")
	sendCmd.MarkFlagRequired("to")
}

func sendRun(cmd *cobra.Command, args []string) {
	w, err := wallet.Load(getPrivateKeyPath())
	if err != nil {
		log.Fatal(err)
	}

	var payload []byte
	if data != "" {
		payload = []byte(data)
	}

	tran, err := database.NewTx(w.Address(), to, value, fee, payload)
	if err != nil {
		log.Fatal(err)
	}

	signed, err := tran.Sign(w.PrivateKey())
	if err != nil {
		log.Fatal(err)
	}

	var res sendResult
	if err := post("/v1/tx/submit", signed, &res); err != nil {
		log.Fatal(err)
	}

	if !res.Sent {
		log.Fatalf("transaction rejected: %s", res.Reason)
	}

	fmt.Println("Sent:", res.Tx.Signature)
}
