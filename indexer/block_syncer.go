package indexer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"
	"sync/atomic"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/errgroup"
)

var (
	ErrBlockNotFound   = errors.New("block not found")
	ErrAuthentication  = errors.New("authentication failed")
	ErrCacheMismatch   = errors.New("last cached block differs")
	errReceiverStopped = errors.New("block receiver stopped")
)

const (
	defaultFetchWorkers = 10
	defaultFetchWindow  = 30
)

type BlockSyncerConfig struct {
	// FetchWorkers is the number of concurrent historical block requests.
	FetchWorkers int `json:"fetchWorkers"`
	// FetchWindow is the number of heights requested ahead, including the ones in flight.
	FetchWindow int `json:"fetchWindow"`
}

// BlockSyncerImpl catches up with the remote chain by fetching historical
// blocks concurrently and then follows the live commit stream.
type BlockSyncerImpl struct {
	source      BlockSource
	cache       BlockCache
	blockPoster BlockPoster
	config      *BlockSyncerConfig
	logger      hclog.Logger

	errorCh  chan error
	cancel   context.CancelFunc
	finished chan struct{}
	lock     sync.Mutex
}

var _ BlockSyncer = (*BlockSyncerImpl)(nil)

func NewBlockSyncer(
	config *BlockSyncerConfig, source BlockSource, cache BlockCache, blockPoster BlockPoster, logger hclog.Logger,
) *BlockSyncerImpl {
	return &BlockSyncerImpl{
		source:      source,
		cache:       cache,
		blockPoster: blockPoster,
		config:      config,
		logger:      logger,
		errorCh:     make(chan error, 1),
	}
}

// Sync checks the account and the block cache against the node, subscribes to
// new commits and starts syncing in the background. Errors of the background
// sync are reported on ErrorCh.
func (bs *BlockSyncerImpl) Sync() error {
	bs.lock.Lock()
	defer bs.lock.Unlock()

	if bs.cancel != nil {
		return errors.New("syncer already started")
	}

	ctx, cancel := context.WithCancel(context.Background())

	stream, err := bs.start(ctx)
	if err != nil {
		cancel()

		return err
	}

	bs.cancel = cancel
	bs.finished = make(chan struct{})

	go func() {
		defer close(bs.finished)

		if err := bs.run(ctx, stream); err != nil && ctx.Err() == nil {
			bs.logger.Error("Error happened during synchronization", "err", err)
			bs.errorCh <- err
		}
	}()

	return nil
}

func (bs *BlockSyncerImpl) Close() error {
	bs.lock.Lock()
	defer bs.lock.Unlock()

	if bs.cancel == nil {
		return nil
	}

	bs.cancel()
	<-bs.finished

	return nil
}

func (bs *BlockSyncerImpl) ErrorCh() <-chan error {
	return bs.errorCh
}

func (bs *BlockSyncerImpl) start(ctx context.Context) (BlockStream, error) {
	if err := bs.source.CheckAccount(ctx); err != nil {
		return nil, errors.Join(ErrBlockIndexerFatal, err)
	}

	if err := bs.verifyCache(ctx); err != nil {
		return nil, err
	}

	// subscribe first, so no block committed during the history fetch is missed
	stream, err := bs.source.FetchCommits(ctx)
	if err != nil {
		return nil, errors.Join(ErrBlockIndexerFatal, err)
	}

	return stream, nil
}

// verifyCache compares the last cached block with the node's block at the same height.
func (bs *BlockSyncerImpl) verifyCache(ctx context.Context) error {
	height := bs.cache.Height()
	if height == 0 {
		return nil
	}

	cached, _ := bs.cache.BlockHash(height)

	block, err := bs.source.GetBlock(ctx, height)
	if err != nil && !errors.Is(err, ErrBlockNotFound) {
		return errors.Join(ErrBlockIndexerFatal, err)
	}

	if err == nil && block.Hash == cached {
		return nil
	}

	bs.logger.Error("Last cached block differs, invalidating block cache", "height", height, "cached", cached)

	if dropErr := bs.cache.Drop(); dropErr != nil {
		bs.logger.Error("Failed to drop block cache", "err", dropErr)
	}

	return errors.Join(ErrBlockIndexerFatal, fmt.Errorf("%w: height %d", ErrCacheMismatch, height))
}

func (bs *BlockSyncerImpl) run(ctx context.Context, stream BlockStream) error {
	from := bs.cache.Height() + 1

	bs.logger.Info("Sync start", "from", from)

	if err := bs.fetchHistory(ctx, from); err != nil {
		if errors.Is(err, errReceiverStopped) {
			return nil
		}

		return errors.Join(ErrBlockIndexerFatal, err)
	}

	if !bs.blockPoster.EndHistory() {
		return nil
	}

	for {
		block, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			bs.logger.Info("Sync stop")

			return nil
		} else if err != nil {
			return errors.Join(ErrBlockIndexerFatal, err)
		}

		bs.logger.Debug("New block", "height", block.Height, "hash", block.Hash)

		if !bs.blockPoster.PostBlock(block) {
			return nil
		}
	}
}

// fetchHistory requests heights from onwards until the node reports a height
// as not found. Blocks are posted in completion order.
func (bs *BlockSyncerImpl) fetchHistory(ctx context.Context, from uint64) error {
	workers, window := bs.config.FetchWorkers, bs.config.FetchWindow
	if workers <= 0 {
		workers = defaultFetchWorkers
	}

	if window < workers {
		window = max(workers, defaultFetchWindow)
	}

	var tip atomic.Uint64

	tip.Store(math.MaxUint64)

	g, gctx := errgroup.WithContext(ctx)
	heights := make(chan uint64)
	slots := make(chan struct{}, window)

	g.Go(func() error {
		defer close(heights)

		for height := from; height < tip.Load(); height++ {
			select {
			case slots <- struct{}{}:
			case <-gctx.Done():
				return nil
			}

			select {
			case heights <- height:
			case <-gctx.Done():
				return nil
			}
		}

		return nil
	})

	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for height := range heights {
				if err := bs.fetchBlock(gctx, height, &tip); err != nil {
					return err
				}

				<-slots
			}

			return nil
		})
	}

	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}

	if err == nil {
		bs.logger.Info("History synced", "tip", tip.Load()-1)
	}

	return err
}

func (bs *BlockSyncerImpl) fetchBlock(ctx context.Context, height uint64, tip *atomic.Uint64) error {
	if height >= tip.Load() {
		return nil
	}

	block, err := bs.source.GetBlock(ctx, height)
	if errors.Is(err, ErrBlockNotFound) {
		for current := tip.Load(); height < current && !tip.CompareAndSwap(current, height); {
			current = tip.Load()
		}

		return nil
	} else if err != nil {
		return fmt.Errorf("failed to fetch block %d: %w", height, err)
	}

	if block.Height != height {
		return fmt.Errorf("%w: requested %d, got %d", ErrUnexpectedHeight, height, block.Height)
	}

	// heights at or above the tip arrive through the commit stream
	if height >= tip.Load() {
		return nil
	}

	if !bs.blockPoster.PostBlock(block) {
		return errReceiverStopped
	}

	return nil
}
