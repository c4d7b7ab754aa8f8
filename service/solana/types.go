package solana

import (
	"github.com/gagliardetto/solana-go"
)

// TokenAccount is a parsed SPL token account owned by the inspected wallet.
// This is our domain model, independent of the RPC response format.
type TokenAccount struct {
	Address solana.PublicKey
	Mint    solana.PublicKey
	Amount  uint64
}

// Blockhash carries a recent block reference for transaction assembly.
type Blockhash struct {
	Hash                 solana.Hash
	LastValidBlockHeight uint64
}
