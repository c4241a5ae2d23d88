package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"github.com/yeetcoin/blockchain/foundation/blockchain/database"
)

var (
	stop bool
	once bool
)

type mineResult struct {
	Mined  bool            `json:"mined"`
	Reason string          `json:"reason,omitempty"`
	Block  *database.Block `json:"block,omitempty"`
}

type miningStatus struct {
	Mining  bool `json:"mining"`
	Changed bool `json:"changed"`
}

var mineCmd = &cobra.Command{
	Use:   "mine",
	Short: "Start or stop the mining loop of the node, or mine a single block",
	Run:   mineRun,
}

func init() {
	rootCmd.AddCommand(mineCmd)
	mineCmd.Flags().BoolVarP(&stop, "stop", "s", false, "Stop the mining loop.")
	mineCmd.Flags().BoolVarP(&once, "once", "o", false, "Mine a single block from the pending transactions.")
	mineCmd.MarkFlagsMutuallyExclusive("stop", "once")
}

func mineRun(cmd *cobra.Command, args []string) {
	if once {
		var res mineResult
		if err := post("/v1/mine/once", struct{}{}, &res); err != nil {
			log.Fatal(err)
		}

		if !res.Mined {
			fmt.Println("Not mined:", res.Reason)
			return
		}

		fmt.Printf("Mined block %d: %s\n", res.Block.Header.Height, res.Block.Hash())
		return
	}

	req := struct {
		Mine bool `json:"mine"`
	}{
		Mine: !stop,
	}

	var res miningStatus
	if err := post("/v1/mine", req, &res); err != nil {
		log.Fatal(err)
	}

	fmt.Printf("mining:%t changed:%t\n", res.Mining, res.Changed)
}
