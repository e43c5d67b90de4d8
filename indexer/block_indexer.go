package indexer

import (
	"errors"
	"fmt"
	"time"

	"github.com/Ethernal-Tech/iroha-explorer/ds"
	"github.com/Ethernal-Tech/iroha-explorer/iroha"
	"github.com/hashicorp/go-hclog"
)

var (
	ErrBlockIndexerFatal = errors.New("block indexer fatal error")
	ErrUnexpectedHeight  = errors.New("unexpected block height")
)

// BlockIndexer applies blocks to the Store, persisting the ones the block log
// does not contain yet. It must be called from a single goroutine.
type BlockIndexer struct {
	store  *Store
	log    *BlockLog
	logger hclog.Logger
}

var (
	_ BlockHandler = (*BlockIndexer)(nil)
	_ BlockCache   = (*BlockIndexer)(nil)
)

func NewBlockIndexer(log *BlockLog, logger hclog.Logger) *BlockIndexer {
	return &BlockIndexer{
		store:  NewStore(log, logger),
		log:    log,
		logger: logger,
	}
}

// Store returns the read side of the index.
func (bi *BlockIndexer) Store() *Store {
	return bi.store
}

// Load opens the block log and rebuilds every index from it. A cached block
// that cannot be decoded cuts the log at that block.
func (bi *BlockIndexer) Load() error {
	start := time.Now()

	if err := bi.log.Open(); err != nil {
		return err
	}

	for i := 0; i < bi.log.Len(); i++ {
		block, err := iroha.DecodeBlock(bi.log.Get(i))
		if err != nil {
			bi.logger.Warn("Cached block is corrupt, truncating block log", "height", i+1, "err", err)

			if err := bi.log.Truncate(i); err != nil {
				return err
			}

			break
		}

		if err := bi.AddBlock(block); err != nil {
			return err
		}
	}

	bi.logger.Info("Loaded blocks",
		"blocks", bi.store.BlockCount(), "txs", bi.store.TxCount(), "elapsed", time.Since(start))

	return nil
}

// Height returns the height of the last indexed block.
func (bi *BlockIndexer) Height() uint64 {
	return uint64(bi.store.BlockCount()) //nolint:gosec
}

func (bi *BlockIndexer) BlockHash(height uint64) (iroha.Hash, bool) {
	bi.store.mutex.RLock()
	defer bi.store.mutex.RUnlock()

	if height == 0 || height > uint64(bi.store.blockHash.Len()) {
		return iroha.Hash{}, false
	}

	return bi.store.blockHash.At(int(height - 1)), true //nolint:gosec
}

// Drop deletes the block log. The in-memory index stays readable, further
// blocks fail to persist.
func (bi *BlockIndexer) Drop() error {
	bi.store.mutex.Lock()
	defer bi.store.mutex.Unlock()

	bi.logger.Warn("Dropping block log", "path", bi.log.Path())

	return bi.log.Drop()
}

// AddBlock indexes block, which must be the block right after the last indexed one.
func (bi *BlockIndexer) AddBlock(block *iroha.Block) error {
	s := bi.store

	s.mutex.Lock()
	defer s.mutex.Unlock()

	expected := uint64(len(s.blockTime)) + 1
	if block.Height != expected {
		return errors.Join(ErrBlockIndexerFatal,
			fmt.Errorf("%w: expected %d, got %d", ErrUnexpectedHeight, expected, block.Height))
	}

	if block.Height > uint64(bi.log.Len()) {
		if err := bi.log.Append(block.Raw); err != nil {
			return errors.Join(ErrBlockIndexerFatal, err)
		}
	}

	s.blockHash.Push(block.Hash)
	s.blockTime = append(s.blockTime, block.CreatedTime)
	s.blockTxCount.Push(len(block.Transactions))

	for i := range block.Transactions {
		bi.addTx(&block.Transactions[i])
	}

	bi.logger.Debug("Block indexed", "height", block.Height, "hash", block.Hash, "txs", len(block.Transactions))

	return nil
}

func (bi *BlockIndexer) addTx(tx *iroha.Transaction) {
	s := bi.store
	txIndex := s.txHash.Push(tx.Hash)

	s.txTime = append(s.txTime, tx.CreatedTime)
	s.txCmds = append(s.txCmds, tx.Commands)

	for _, signer := range tx.Signers {
		key, err := iroha.DecodePublicKey(signer)
		if err != nil {
			bi.logger.Warn("Invalid signatory", "tx", tx.Hash, "key", signer, "err", err)

			continue
		}

		s.txPubs.Add(txIndex, s.allPub.Intern(key))
	}

	for _, cmd := range tx.CommandList {
		bi.applyCommand(tx, cmd)
	}

	creator, found := s.accountID.Find([]byte(tx.CreatorAccountID))
	if !found {
		creator = noIndex
	} else if domain, found := s.domainID.Find([]byte(iroha.AccountDomain(tx.CreatorAccountID))); found {
		s.domainTxCount[domain]++
	}

	s.txCreator = append(s.txCreator, creator)
}

func (bi *BlockIndexer) applyCommand(tx *iroha.Transaction, cmd iroha.Command) {
	s := bi.store

	switch v := cmd.Value.(type) {
	case iroha.CreateAccount:
		domain, ok := bi.find(s.domainID, v.DomainID, "domain", cmd)
		if !ok {
			return
		}

		id := v.AccountID()
		if _, exists := s.accountID.Find([]byte(id)); exists {
			bi.logger.Warn("Account already exists", "account", id)

			return
		}

		account := s.accountID.Push([]byte(id))
		s.accountQuorum = append(s.accountQuorum, 1)
		s.accountRoles.Add(account, s.domainRole[domain])
	case iroha.AppendRole:
		account, ok := bi.find(s.accountID, v.AccountID, "account", cmd)
		if !ok {
			return
		}

		role, ok := bi.find(s.roleName, v.RoleName, "role", cmd)
		if !ok {
			return
		}

		s.accountRoles.Add(account, role)
	case iroha.SetAccountQuorum:
		account, ok := bi.find(s.accountID, v.AccountID, "account", cmd)
		if !ok {
			return
		}

		s.accountQuorum[account] = v.Quorum
	case iroha.GrantPermission:
		grantor, ok := bi.find(s.accountID, tx.CreatorAccountID, "account", cmd)
		if !ok {
			return
		}

		grantee, ok := bi.find(s.accountID, v.AccountID, "account", cmd)
		if !ok {
			return
		}

		if int(v.Permission) >= ds.BitsetWidth || v.Permission < 0 {
			bi.logger.Warn("Unknown grantable permission", "permission", int(v.Permission))

			return
		}

		s.accountGrant.Grant(grantor, grantee, int(v.Permission))
	case iroha.AddPeer:
		key, err := iroha.DecodePublicKey(v.PeerKey)
		if err != nil {
			bi.logger.Warn("Invalid peer key", "address", v.Address, "key", v.PeerKey, "err", err)

			return
		}

		s.peerAddress.PushString(v.Address)
		s.peerPub.Push(key)
	case iroha.CreateRole:
		if _, exists := s.roleName.Find([]byte(v.RoleName)); exists {
			bi.logger.Warn("Role already exists", "role", v.RoleName)

			return
		}

		var perms ds.Bitset
		for _, p := range v.Permissions {
			perms = perms.Set(int(p))
		}

		s.roleName.Push([]byte(v.RoleName))
		s.rolePerms = append(s.rolePerms, perms)
	case iroha.CreateDomain:
		role, ok := bi.find(s.roleName, v.DefaultRole, "role", cmd)
		if !ok {
			return
		}

		if _, exists := s.domainID.Find([]byte(v.DomainID)); exists {
			bi.logger.Warn("Domain already exists", "domain", v.DomainID)

			return
		}

		s.domainID.Push([]byte(v.DomainID))
		s.domainRole = append(s.domainRole, role)
		s.domainTxCount = append(s.domainTxCount, 0)
	}
}

func (bi *BlockIndexer) find(in *ds.Interned[[]byte], key, kind string, cmd iroha.Command) (int, bool) {
	i, found := in.Find([]byte(key))
	if !found {
		bi.logger.Warn("Command references an unknown entity", "command", cmd.Kind, kind, key)
	}

	return i, found
}
