package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"github.com/yeetcoin/blockchain/foundation/blockchain/wallet"
)

type balance struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Balance int64  `json:"balance"`
}

var balanceCmd = &cobra.Command{
	Use:   "balance [address]",
	Short: "Print the balance of the wallet or of an address",
	Args:  cobra.MaximumNArgs(1),
	Run:   balanceRun,
}

func init() {
	rootCmd.AddCommand(balanceCmd)
}

func balanceRun(cmd *cobra.Command, args []string) {
	address, err := addressArg(args)
	if err != nil {
		log.Fatal(err)
	}

	var bal balance
	if err := get("/v1/balance/"+address, &bal); err != nil {
		log.Fatal(err)
	}

	fmt.Println("For Account:", bal.Address, bal.Name)
	fmt.Println(bal.Balance)
}

// addressArg returns the address passed on the command line or the address
// of the wallet.
func addressArg(args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}

	w, err := wallet.Load(getPrivateKeyPath())
	if err != nil {
		return "", err
	}

	return w.Address(), nil
}
