package indexer

import (
	"context"

	"github.com/Ethernal-Tech/iroha-explorer/iroha"
)

type Closable interface {
	Close() error
}

type Service interface {
	Closable
	Start()
}

// BlockSource is the remote ledger node.
type BlockSource interface {
	// CheckAccount fails with ErrAuthentication if the node rejects the operator account or key.
	CheckAccount(ctx context.Context) error
	// GetBlock returns ErrBlockNotFound for heights above the chain tip.
	GetBlock(ctx context.Context, height uint64) (*iroha.Block, error)
	// FetchCommits subscribes to blocks committed from now on.
	FetchCommits(ctx context.Context) (BlockStream, error)
}

type BlockStream interface {
	// Recv returns io.EOF when the node ends the stream.
	Recv() (*iroha.Block, error)
}

// BlockHandler is the single mutation point of the index.
type BlockHandler interface {
	AddBlock(block *iroha.Block) error
	Height() uint64
}

// BlockCache is the locally persisted chain.
type BlockCache interface {
	Height() uint64
	BlockHash(height uint64) (iroha.Hash, bool)
	Drop() error
}

// BlockPoster hands fetched blocks over to the mutation context.
type BlockPoster interface {
	// PostBlock returns false once the receiver has stopped.
	PostBlock(block *iroha.Block) bool
	// EndHistory marks that every historical block has been posted.
	EndHistory() bool
}

type BlockSyncer interface {
	Closable
	Sync() error
	ErrorCh() <-chan error
}
