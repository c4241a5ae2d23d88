// Package storage implements the ability to read and write blocks to disk
// and to memory.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strconv"

	"github.com/yeetcoin/blockchain/foundation/blockchain/database"
)

// Disk represents the serialization implementation for reading and storing
// blocks in their own separate files on disk. This implements the
// database.Storage interface.
type Disk struct {
	dbPath string
}

// Suffixes of the sibling folders used while the chain is replaced.
const (
	nextSuffix = ".next"
	prevSuffix = ".prev"
)

// NewDisk constructs a Disk value for use. A replacement interrupted by a
// crash is rolled back or finished here.
func NewDisk(dbPath string) (*Disk, error) {
	if err := recoverReplace(dbPath); err != nil {
		return nil, fmt.Errorf("recover: %w", err)
	}

	if err := os.MkdirAll(dbPath, 0755); err != nil {
		return nil, err
	}

	return &Disk{dbPath: dbPath}, nil
}

// recoverReplace puts the folders back in a consistent state. The previous
// chain only exists without the current one when the crash happened between
// the two renames.
func recoverReplace(dbPath string) error {
	prev := dbPath + prevSuffix

	if _, err := os.Stat(prev); err == nil {
		if _, err := os.Stat(dbPath); errors.Is(err, fs.ErrNotExist) {
			if err := os.Rename(prev, dbPath); err != nil {
				return err
			}
		}
	}

	if err := os.RemoveAll(prev); err != nil {
		return err
	}

	return os.RemoveAll(dbPath + nextSuffix)
}

// Close in this implementation has nothing to do since a new file is
// written to disk for each block and then immediately closed.
func (d *Disk) Close() error {
	return nil
}

// Write takes the specified block and stores it on disk in a file labeled
// with the block height.
func (d *Disk) Write(block database.Block) error {
	return writeBlock(d.dbPath, block)
}

// writeBlock stores the block in its own file inside the specified folder.
// The file is synced so a later rename never exposes a partial block.
func writeBlock(dir string, block database.Block) error {

	// Marshal the block for writing to disk in a more human readable format.
	data, err := json.MarshalIndent(block, "", "  ")
	if err != nil {
		return err
	}

	// Create a new file for this block and name it based on the block height.
	f, err := os.OpenFile(blockPath(dir, block.Header.Height), os.O_CREATE|os.O_TRUNC|os.O_RDWR, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	// Write the new block to disk.
	if _, err := f.Write(data); err != nil {
		return err
	}

	return f.Sync()
}

// GetBlock searches the blockchain on disk to locate and return the
// contents of the specified block by height.
func (d *Disk) GetBlock(height uint64) (database.Block, error) {

	// Open the block file for the specified height.
	f, err := os.OpenFile(d.getPath(height), os.O_RDONLY, 0600)
	if err != nil {
		return database.Block{}, err
	}
	defer f.Close()

	// Decode the contents of the block.
	var block database.Block
	if err := json.NewDecoder(f).Decode(&block); err != nil {
		return database.Block{}, fmt.Errorf("decode block %d: %w", height, err)
	}

	return block, nil
}

// ForEach returns an iterator to walk through all the blocks
// starting with the genesis block.
func (d *Disk) ForEach() database.Iterator {
	return &DiskIterator{disk: d}
}

// Replace swaps the blockchain on disk for the specified blocks. The blocks
// are written to a sibling folder first and then renamed into place, so a
// crash leaves either the old chain or the new one.
func (d *Disk) Replace(blocks []database.Block) error {
	next := d.dbPath + nextSuffix
	prev := d.dbPath + prevSuffix

	if err := os.RemoveAll(next); err != nil {
		return err
	}

	if err := os.MkdirAll(next, 0755); err != nil {
		return err
	}

	for _, block := range blocks {
		if err := writeBlock(next, block); err != nil {
			os.RemoveAll(next)
			return fmt.Errorf("write block %d: %w", block.Header.Height, err)
		}
	}

	if err := os.RemoveAll(prev); err != nil {
		return err
	}

	if err := os.Rename(d.dbPath, prev); err != nil {
		return err
	}

	if err := os.Rename(next, d.dbPath); err != nil {
		return err
	}

	return os.RemoveAll(prev)
}

// getPath forms the path to the specified block.
func (d *Disk) getPath(height uint64) string {
	return blockPath(d.dbPath, height)
}

// blockPath forms the path to the specified block inside a folder.
func blockPath(dir string, height uint64) string {
	name := strconv.FormatUint(height, 10)
	return path.Join(dir, fmt.Sprintf("%s.json", name))
}

// =============================================================================

// DiskIterator represents the iteration implementation for walking
// through and reading blocks on disk. This implements the database
// Iterator interface.
type DiskIterator struct {
	disk    *Disk  // Access to the disk storage API.
	current uint64 // Current block height being iterated over.
	eoc     bool   // Represents the iterator is at the end of the chain.
}

// Next retrieves the next block from disk.
func (di *DiskIterator) Next() (database.Block, error) {
	if di.eoc {
		return database.Block{}, errors.New("end of chain")
	}

	block, err := di.disk.GetBlock(di.current)
	if errors.Is(err, fs.ErrNotExist) {
		di.eoc = true
	}
	di.current++

	return block, err
}

// Done returns the end of chain value.
func (di *DiskIterator) Done() bool {
	return di.eoc
}
