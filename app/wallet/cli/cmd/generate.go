package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"github.com/yeetcoin/blockchain/foundation/blockchain/wallet"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a new key pair, keeping an existing one",
	Run:   generateRun,
}

func init() {
	rootCmd.AddCommand(generateCmd)
}

func generateRun(cmd *cobra.Command, args []string) {
	w, generated, err := wallet.LoadOrGenerate(getPrivateKeyPath())
	if err != nil {
		log.Fatal(err)
	}

	if !generated {
		fmt.Println("Key already exists:", w.Path())
	}
	fmt.Println(w.Address())
}
