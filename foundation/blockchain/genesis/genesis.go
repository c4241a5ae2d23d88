// Package genesis maintains access to the genesis file and the monetary
// parameters every node on the network must agree on.
package genesis

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"
)

// Reference values for the network parameters.
const (
	TotalSupply        = 17179869183
	MaxReward          = 50
	TransPerBlock      = 16
	DifficultyInterval = 10
	InitialSupply      = 1_000_000
	Difficulty         = 1
)

// founder is the public key of the well known development account created
// from the private key 0x01. It receives the initial supply.
const founder = "0x0479be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798483ada7726a3c4655da4fbfc0e1108a8fd17b448a68554199c47d08ffb10d4b8"

// Genesis represents the genesis file.
type Genesis struct {
	Date               time.Time `json:"date"`
	Recipient          string    `json:"recipient"`           // Account credited with the initial supply.
	InitialSupply      int64     `json:"initial_supply"`      // Amount paid by the genesis coinbase.
	TotalSupply        uint64    `json:"total_supply"`        // Numerator of the block reward curve.
	MaxReward          uint64    `json:"max_reward"`          // Ceiling of the block reward.
	TransPerBlock      int       `json:"trans_per_block"`     // Pending transactions required before mining.
	DifficultyInterval uint64    `json:"difficulty_interval"` // Number of blocks between difficulty changes.
	Difficulty         uint      `json:"difficulty"`          // Difficulty recorded in the genesis header.
}

// Default returns the reference network parameters.
func Default() Genesis {
	return Genesis{
		Date:               time.Date(2022, time.March, 1, 0, 0, 0, 0, time.UTC),
		Recipient:          founder,
		InitialSupply:      InitialSupply,
		TotalSupply:        TotalSupply,
		MaxReward:          MaxReward,
		TransPerBlock:      TransPerBlock,
		DifficultyInterval: DifficultyInterval,
		Difficulty:         Difficulty,
	}
}

// =============================================================================

// Load opens and consumes the genesis file. Fields missing from the file
// keep their reference value. A missing file yields the reference values.
func Load(path string) (Genesis, error) {
	gen := Default()

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return gen, nil
		}
		return Genesis{}, err
	}

	if err := json.Unmarshal(content, &gen); err != nil {
		return Genesis{}, fmt.Errorf("decoding genesis: %w", err)
	}

	if gen.TransPerBlock < 1 {
		return Genesis{}, errors.New("trans_per_block must be at least 1")
	}

	if gen.DifficultyInterval == 0 {
		return Genesis{}, errors.New("difficulty_interval must be at least 1")
	}

	return gen, nil
}

// CalcReward returns the mining reward for a block at the specified height.
// The reward follows TotalSupply / height^2 and never exceeds MaxReward.
func (g Genesis) CalcReward(height uint64) uint64 {
	if height == 0 {
		return g.MaxReward
	}

	// Past this height height^2 overflows and the reward is already zero.
	if height > 1<<32-1 {
		return 0
	}

	reward := g.TotalSupply / (height * height)
	if reward > g.MaxReward {
		return g.MaxReward
	}

	return reward
}
