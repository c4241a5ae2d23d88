package commands_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/yeetcoin/blockchain/app/tooling/admin/commands"
	"github.com/yeetcoin/blockchain/foundation/blockchain/database"
	"github.com/yeetcoin/blockchain/foundation/blockchain/database/storage"
	"github.com/yeetcoin/blockchain/foundation/blockchain/genesis"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_Commands(t *testing.T) {
	gen := genesis.Default()

	db, err := database.New(gen, storage.NewMemory(), nil)
	if err != nil {
		t.Fatalf("Should be able to create the database: %s", err)
	}
	defer db.Close()

	t.Log("Given the need to inspect a stored chain.")
	{
		var buf bytes.Buffer

		if err := commands.Balances(&buf, []string{"admin", "bals"}, db); err != nil {
			t.Fatalf("\t%s\tShould be able to print the balances: %s", failed, err)
		}
		if !strings.Contains(buf.String(), gen.Recipient+"  Balance: 1000000") {
			t.Fatalf("\t%s\tShould print the initial supply:\n%s", failed, buf.String())
		}
		t.Logf("\t%s\tShould print the initial supply.", success)

		buf.Reset()
		if err := commands.Transactions(&buf, []string{"admin", "trans", gen.Recipient}, db); err != nil {
			t.Fatalf("\t%s\tShould be able to print the transactions: %s", failed, err)
		}
		if !strings.Contains(buf.String(), "Block: 0") {
			t.Fatalf("\t%s\tShould print the genesis coinbase:\n%s", failed, buf.String())
		}
		t.Logf("\t%s\tShould print the genesis coinbase.", success)

		buf.Reset()
		if err := commands.Chain(&buf, db); err != nil {
			t.Fatalf("\t%s\tShould be able to print the chain: %s", failed, err)
		}
		if strings.Count(buf.String(), "\n") != 1 {
			t.Fatalf("\t%s\tShould print a single block:\n%s", failed, buf.String())
		}
		t.Logf("\t%s\tShould print a single block.", success)

		buf.Reset()
		if err := commands.Verify(&buf, db); err != nil {
			t.Fatalf("\t%s\tShould verify the chain: %s", failed, err)
		}
		t.Logf("\t%s\tShould verify the chain.", success)
	}
}
