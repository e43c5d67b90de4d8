package indexer

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/Ethernal-Tech/iroha-explorer/common"
	"github.com/Ethernal-Tech/iroha-explorer/iroha"
	"github.com/hashicorp/go-hclog"
)

var ErrHeightGap = errors.New("block height gap")

const defaultRunnerQueueSize = 64

type blockIndexerRunnerQueueItem struct {
	Block      *iroha.Block
	EndHistory bool
}

func (qi blockIndexerRunnerQueueItem) String() string {
	if qi.EndHistory {
		return "end of history"
	}

	return fmt.Sprintf("block (%d, %s)", qi.Block.Height, qi.Block.Hash)
}

type BlockIndexerRunnerConfig struct {
	QueueSize int `json:"queueSize"`
}

// BlockIndexerRunner is the mutation context of the index. Blocks posted from
// any goroutine are reordered by height and applied one at a time, strictly in
// ascending order, by a single loop goroutine.
type BlockIndexerRunner struct {
	blockHandler   BlockHandler
	queue          *common.SafeCircularQueue[blockIndexerRunnerQueueItem]
	pending        common.Heap[*iroha.Block]
	nextHeight     uint64
	live           bool
	isClosed       uint32
	errorCh        chan error
	loopFinishedCh chan struct{}
	logger         hclog.Logger
}

var (
	_ BlockPoster = (*BlockIndexerRunner)(nil)
	_ Service     = (*BlockIndexerRunner)(nil)
)

func NewBlockIndexerRunner(
	blockHandler BlockHandler, config *BlockIndexerRunnerConfig, logger hclog.Logger,
) *BlockIndexerRunner {
	queueSize := config.QueueSize
	if queueSize <= 0 {
		queueSize = defaultRunnerQueueSize
	}

	return &BlockIndexerRunner{
		blockHandler: blockHandler,
		queue:        common.NewSafeCircularQueue[blockIndexerRunnerQueueItem](queueSize),
		pending: common.NewHeap(func(a, b *iroha.Block) bool {
			return a.Height < b.Height
		}),
		errorCh:        make(chan error, 1),
		loopFinishedCh: make(chan struct{}),
		logger:         logger,
	}
}

func (br *BlockIndexerRunner) Start() {
	go br.runMainLoop()
}

// Close stops accepting blocks. Blocks already queued are still applied.
func (br *BlockIndexerRunner) Close() error {
	if atomic.CompareAndSwapUint32(&br.isClosed, 0, 1) {
		br.logger.Info("Closing block indexer runner")

		br.queue.Close()
	}

	return nil
}

func (br *BlockIndexerRunner) PostBlock(block *iroha.Block) bool {
	return br.queue.Push(blockIndexerRunnerQueueItem{Block: block})
}

// EndHistory switches the runner to live mode once every block posted before
// has been handled. Blocks still waiting for a lower height stay buffered. From
// then on a block above the next expected height is a gap.
func (br *BlockIndexerRunner) EndHistory() bool {
	return br.queue.Push(blockIndexerRunnerQueueItem{EndHistory: true})
}

func (br *BlockIndexerRunner) ErrorCh() <-chan error {
	return br.errorCh
}

// Done is closed when the main loop has finished.
func (br *BlockIndexerRunner) Done() <-chan struct{} {
	return br.loopFinishedCh
}

func (br *BlockIndexerRunner) runMainLoop() {
	br.nextHeight = br.blockHandler.Height() + 1

	br.logger.Info("Block indexer runner has been started", "next", br.nextHeight)

	defer func() {
		// producers blocked on a full queue must not wait for a stopped loop
		br.queue.Close()
		br.logger.Info("Block indexer runner has been stopped")
		close(br.loopFinishedCh)
	}()

	for {
		item, active := br.queue.Pop()
		if !active {
			return
		}

		if err := br.execute(item); err != nil {
			br.logger.Error("Runner failed", "item", item, "err", err)

			if !errors.Is(err, ErrBlockIndexerFatal) {
				err = errors.Join(ErrBlockIndexerFatal, err)
			}

			br.errorCh <- err

			return
		}
	}
}

func (br *BlockIndexerRunner) execute(item blockIndexerRunnerQueueItem) error {
	if item.EndHistory {
		br.live = true

		// blocks fetched above the tip stay buffered until the stream delivers the missing heights
		if br.pending.Len() > 0 {
			br.logger.Info("Sync wait for new blocks", "next", br.nextHeight,
				"pending", br.pending.Len(), "pendingFrom", br.pending.Peek().Height)
		} else {
			br.logger.Info("Sync wait for new blocks", "next", br.nextHeight)
		}

		return nil
	}

	block := item.Block

	switch {
	case block.Height < br.nextHeight:
		br.logger.Debug("Skip block", "height", block.Height, "next", br.nextHeight)

		return nil
	case br.live && block.Height > br.nextHeight:
		// the buffer is drained up to nextHeight, so nothing pending can close this gap
		return fmt.Errorf("%w: expected %d, got %d", ErrHeightGap, br.nextHeight, block.Height)
	}

	br.pending.Push(block)

	for br.pending.Len() > 0 && br.pending.Peek().Height <= br.nextHeight {
		next := br.pending.Pop()
		if next.Height < br.nextHeight {
			continue // duplicate
		}

		if err := br.blockHandler.AddBlock(next); err != nil {
			return err
		}

		br.logger.Debug("Sync block", "height", next.Height)

		br.nextHeight++
	}

	return nil
}
