package main

import "github.com/yeetcoin/blockchain/app/wallet/cli/cmd"

func main() {
	cmd.Execute()
}
