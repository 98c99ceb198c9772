package ledger

import (
	"strings"
	"time"

	"github.com/PolarWolf314/kaitiaki/internal/miner"
)

// GenesisHash is the previous hash of the first block in a chain.
var GenesisHash = strings.Repeat("0", 64)

// TimestampFormat is the layout of Block.Timestamp. The string is hashed
// verbatim, so it must never be reformatted after mining.
const TimestampFormat = time.RFC3339Nano

// Block is a sealed ledger entry.
type Block struct {
	Height       int64      `json:"height"`
	Timestamp    string     `json:"timestamp"`
	ProductHash  string     `json:"product_details_hash"`
	Salt         string     `json:"salt"`
	Signature    string     `json:"signature"`
	PreviousHash string     `json:"previous_block_hash"`
	Nonce        uint64     `json:"nonce"`
	Hash         string     `json:"current_block_hash"`
	IsVerified   bool       `json:"is_verified"`
	VerifiedAt   *time.Time `json:"verified_at,omitempty"`
}

// Content returns the fields covered by the block's proof of work.
func (b *Block) Content() miner.Content {
	return miner.Content{
		Timestamp:    b.Timestamp,
		ProductHash:  b.ProductHash,
		Salt:         b.Salt,
		Signature:    b.Signature,
		PreviousHash: b.PreviousHash,
	}
}

// clone returns a deep copy so stores never hand out shared state.
func (b *Block) clone() *Block {
	c := *b
	if b.VerifiedAt != nil {
		t := *b.VerifiedAt
		c.VerifiedAt = &t
	}
	return &c
}
