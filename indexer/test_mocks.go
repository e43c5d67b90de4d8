package indexer

import (
	"context"
	"sync"

	"github.com/Ethernal-Tech/iroha-explorer/iroha"
	"github.com/stretchr/testify/mock"
)

type BlockSourceMock struct {
	mock.Mock
	CheckAccountFn func(ctx context.Context) error
	GetBlockFn     func(ctx context.Context, height uint64) (*iroha.Block, error)
	FetchCommitsFn func(ctx context.Context) (BlockStream, error)
}

// CheckAccount implements BlockSource.
func (m *BlockSourceMock) CheckAccount(ctx context.Context) error {
	if m.CheckAccountFn != nil {
		return m.CheckAccountFn(ctx)
	}

	args := m.Called(ctx)

	return args.Error(0)
}

// GetBlock implements BlockSource.
func (m *BlockSourceMock) GetBlock(ctx context.Context, height uint64) (*iroha.Block, error) {
	if m.GetBlockFn != nil {
		return m.GetBlockFn(ctx, height)
	}

	args := m.Called(ctx, height)

	block, _ := args.Get(0).(*iroha.Block)

	return block, args.Error(1)
}

// FetchCommits implements BlockSource.
func (m *BlockSourceMock) FetchCommits(ctx context.Context) (BlockStream, error) {
	if m.FetchCommitsFn != nil {
		return m.FetchCommitsFn(ctx)
	}

	args := m.Called(ctx)

	stream, _ := args.Get(0).(BlockStream)

	return stream, args.Error(1)
}

var _ BlockSource = (*BlockSourceMock)(nil)

// BlockStreamMock replays Blocks and then returns Err, or blocks until Ctx is done when Err is nil.
type BlockStreamMock struct {
	Ctx    context.Context
	Blocks []*iroha.Block
	Err    error

	pos int
}

// Recv implements BlockStream.
func (m *BlockStreamMock) Recv() (*iroha.Block, error) {
	if m.pos < len(m.Blocks) {
		m.pos++

		return m.Blocks[m.pos-1], nil
	}

	if m.Err != nil {
		return nil, m.Err
	}

	<-m.Ctx.Done()

	return nil, m.Ctx.Err()
}

var _ BlockStream = (*BlockStreamMock)(nil)

type BlockHandlerMock struct {
	mock.Mock
	AddBlockFn func(block *iroha.Block) error

	lock    sync.Mutex
	heights []uint64
	height  uint64
}

// AddBlock implements BlockHandler.
func (m *BlockHandlerMock) AddBlock(block *iroha.Block) error {
	if m.AddBlockFn != nil {
		if err := m.AddBlockFn(block); err != nil {
			return err
		}
	}

	m.lock.Lock()
	defer m.lock.Unlock()

	m.heights = append(m.heights, block.Height)
	m.height = block.Height

	return nil
}

// Height implements BlockHandler.
func (m *BlockHandlerMock) Height() uint64 {
	m.lock.Lock()
	defer m.lock.Unlock()

	return m.height
}

// Heights returns the heights of all added blocks in order.
func (m *BlockHandlerMock) Heights() []uint64 {
	m.lock.Lock()
	defer m.lock.Unlock()

	return append([]uint64(nil), m.heights...)
}

var _ BlockHandler = (*BlockHandlerMock)(nil)

type BlockCacheMock struct {
	mock.Mock
	HeightFn func() uint64
}

// Height implements BlockCache.
func (m *BlockCacheMock) Height() uint64 {
	if m.HeightFn != nil {
		return m.HeightFn()
	}

	args := m.Called()

	return args.Get(0).(uint64) //nolint:forcetypeassert
}

// BlockHash implements BlockCache.
func (m *BlockCacheMock) BlockHash(height uint64) (iroha.Hash, bool) {
	args := m.Called(height)

	return args.Get(0).(iroha.Hash), args.Bool(1) //nolint:forcetypeassert
}

// Drop implements BlockCache.
func (m *BlockCacheMock) Drop() error {
	args := m.Called()

	return args.Error(0)
}

var _ BlockCache = (*BlockCacheMock)(nil)

// BlockPosterMock records posted blocks. It stops accepting once Stopped is set.
type BlockPosterMock struct {
	lock       sync.Mutex
	blocks     []*iroha.Block
	endHistory int
	Stopped    bool
	PostedCh   chan *iroha.Block
}

// PostBlock implements BlockPoster.
func (m *BlockPosterMock) PostBlock(block *iroha.Block) bool {
	m.lock.Lock()

	if m.Stopped {
		m.lock.Unlock()

		return false
	}

	m.blocks = append(m.blocks, block)
	m.lock.Unlock()

	if m.PostedCh != nil {
		m.PostedCh <- block
	}

	return true
}

// EndHistory implements BlockPoster.
func (m *BlockPosterMock) EndHistory() bool {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.endHistory++

	return !m.Stopped
}

func (m *BlockPosterMock) Blocks() []*iroha.Block {
	m.lock.Lock()
	defer m.lock.Unlock()

	return append([]*iroha.Block(nil), m.blocks...)
}

func (m *BlockPosterMock) EndHistoryCount() int {
	m.lock.Lock()
	defer m.lock.Unlock()

	return m.endHistory
}

var _ BlockPoster = (*BlockPosterMock)(nil)
