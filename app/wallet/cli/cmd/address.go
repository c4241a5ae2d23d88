package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"github.com/yeetcoin/blockchain/foundation/blockchain/wallet"
)

var addressCmd = &cobra.Command{
	Use:   "address",
	Short: "Print the address of the wallet",
	Run:   addressRun,
}

func init() {
	rootCmd.AddCommand(addressCmd)
}

func addressRun(cmd *cobra.Command, args []string) {
	w, err := wallet.Load(getPrivateKeyPath())
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(w.Address())
}
