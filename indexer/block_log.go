package indexer

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/Ethernal-Tech/iroha-explorer/ds"
	"github.com/Ethernal-Tech/iroha-explorer/iroha"
	"github.com/Ethernal-Tech/iroha-explorer/pbscan"
	"github.com/hashicorp/go-hclog"
)

const (
	BlockLogFileName = "block.cache"

	blockLogPerms fs.FileMode = 0o660
)

// BlockLog is the append-only file of serialized blocks with its in-memory
// mirror. Record i is the block at height i+1.
type BlockLog struct {
	path   string
	file   *os.File
	blocks ds.Arena
	logger hclog.Logger
}

func NewBlockLog(dataDir string, logger hclog.Logger) *BlockLog {
	return &BlockLog{
		path:   filepath.Join(dataDir, BlockLogFileName),
		logger: logger,
	}
}

func (l *BlockLog) Path() string {
	return l.path
}

// Open reads the file into memory and opens it for appending. An incomplete or
// corrupt tail is cut off both in memory and on disk.
func (l *BlockLog) Open() error {
	if l.file != nil {
		return errors.New("block log is already open")
	}

	buf, err := os.ReadFile(l.path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to read block log: %w", err)
	}

	var sizes []int

	valid := pbscan.Split(buf, iroha.BlockRecordField, func(n int) {
		sizes = append(sizes, n)
	})

	if err := l.blocks.Reset(buf, sizes); err != nil {
		return err
	}

	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR|os.O_APPEND, blockLogPerms)
	if err != nil {
		return fmt.Errorf("failed to open block log: %w", err)
	}

	l.file = file

	if valid < len(buf) {
		l.logger.Warn("Block log has a corrupt tail, truncating",
			"path", l.path, "blocks", len(sizes), "valid", valid, "size", len(buf))

		if err := l.file.Truncate(int64(valid)); err != nil {
			return fmt.Errorf("failed to truncate block log: %w", err)
		}
	}

	return nil
}

func (l *BlockLog) Len() int {
	return l.blocks.Len()
}

func (l *BlockLog) SizeBytes() int {
	return l.blocks.SizeBytes()
}

// Get returns the serialized block at index i. The slice must not be modified.
func (l *BlockLog) Get(i int) []byte {
	return l.blocks.Get(i)
}

// Append writes raw to the file and syncs it before adding it to memory.
func (l *BlockLog) Append(raw []byte) error {
	if l.file == nil {
		return errors.New("block log is not open")
	}

	if _, err := l.file.Write(raw); err != nil {
		return fmt.Errorf("failed to write block log: %w", err)
	}

	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync block log: %w", err)
	}

	l.blocks.Push(raw)

	return nil
}

// Truncate keeps the first n blocks, in memory and on disk.
func (l *BlockLog) Truncate(n int) error {
	if err := l.blocks.Truncate(n); err != nil {
		return err
	}

	if l.file == nil {
		return nil
	}

	if err := l.file.Truncate(int64(l.blocks.SizeBytes())); err != nil {
		return fmt.Errorf("failed to truncate block log: %w", err)
	}

	return nil
}

// Drop closes and deletes the file. The records stay in memory, since indices
// built from them may still be read, but nothing can be appended any more.
func (l *BlockLog) Drop() error {
	if err := l.Close(); err != nil {
		l.logger.Warn("Failed to close block log", "err", err)
	}

	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete block log: %w", err)
	}

	return nil
}

func (l *BlockLog) Close() error {
	if l.file == nil {
		return nil
	}

	err := l.file.Close()
	l.file = nil

	return err
}
