// This program performs administrative tasks against the chain a node
// stored on disk. The node should be stopped while it runs.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/yeetcoin/blockchain/app/tooling/admin/commands"
	"github.com/yeetcoin/blockchain/foundation/blockchain/database"
	"github.com/yeetcoin/blockchain/foundation/blockchain/database/storage"
	"github.com/yeetcoin/blockchain/foundation/blockchain/genesis"
	"github.com/yeetcoin/blockchain/foundation/logger"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

const (
	dbPath      = "zblock/blocks"
	genesisPath = "zblock/genesis.json"
)

func main() {

	// Construct the application logger.
	log, err := logger.New("ADMIN")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log); err != nil {
		log.Errorw("startup", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {
	if len(os.Args) < 2 {
		return errors.New("usage: admin bals|trans|chain|verify [address]")
	}

	log.Infow("startup", "version", build, "db", dbPath, "genesis", genesisPath)

	gen, err := genesis.Load(genesisPath)
	if err != nil {
		return err
	}

	strg, err := storage.NewDisk(dbPath)
	if err != nil {
		return err
	}

	ev := func(v string, args ...any) {
		log.Debugw(fmt.Sprintf(v, args...))
	}

	db, err := database.New(gen, strg, ev)
	if err != nil {
		return err
	}
	defer db.Close()

	return processCommands(os.Stdout, os.Args, db)
}

// processCommands handles the execution of the commands specified on
// the command line.
func processCommands(w io.Writer, args []string, db *database.Database) error {
	switch args[1] {
	case "bals":
		if err := commands.Balances(w, args, db); err != nil {
			return fmt.Errorf("getting balances: %w", err)
		}
	case "trans":
		if err := commands.Transactions(w, args, db); err != nil {
			return fmt.Errorf("getting transactions: %w", err)
		}
	case "chain":
		if err := commands.Chain(w, db); err != nil {
			return fmt.Errorf("getting chain: %w", err)
		}
	case "verify":
		if err := commands.Verify(w, db); err != nil {
			return fmt.Errorf("verifying chain: %w", err)
		}
	default:
		return fmt.Errorf("unknown command %q", args[1])
	}

	return nil
}
