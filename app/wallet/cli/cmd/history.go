package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
)

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

var historyCmd = &cobra.Command{
	Use:   "history [address]",
	Short: "Print the confirmed transactions of the wallet or of an address",
	Args:  cobra.MaximumNArgs(1),
	Run:   historyRun,
}

func init() {
	rootCmd.AddCommand(historyCmd)
}

func historyRun(cmd *cobra.Command, args []string) {
	address, err := addressArg(args)
	if err != nil {
		log.Fatal(err)
	}

	var txs []tx
	if err := get("/v1/history/"+address, &txs); err != nil {
		log.Fatal(err)
	}

	for _, t := range txs {
		fmt.Printf("%d  %s -> %s  amount:%d fee:%d\n", t.Timestamp, name(t.Sender, t.SenderName), name(t.Recipient, t.RecipientName), t.Amount, t.Fee)
	}
}

func name(address string, name string) string {
	if name == "" || name == address {
		return address
	}
	return name
}
