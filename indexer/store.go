package indexer

import (
	"encoding/hex"
	"sort"
	"sync"
	"time"

	"github.com/Ethernal-Tech/iroha-explorer/ds"
	"github.com/Ethernal-Tech/iroha-explorer/iroha"
	"github.com/Ethernal-Tech/iroha-explorer/pbscan"
	"github.com/hashicorp/go-hclog"
)

// noIndex marks a missing reference, e.g. a transaction creator that is not a known account.
const noIndex = -1

// Store holds every index derived from the block log. BlockIndexer is its
// only writer; the exported methods are safe for concurrent readers.
type Store struct {
	mutex sync.RWMutex
	log   *BlockLog

	blockHash    ds.Keys[iroha.Hash]
	blockTime    []uint64
	blockTxCount ds.Offsets

	txHash    *ds.Interned[iroha.Hash]
	txTime    []uint64
	txCreator []int
	txPubs    ds.Linked[int]
	txCmds    []pbscan.Range

	allPub *ds.Interned[[]byte]

	accountID     *ds.Interned[[]byte]
	accountQuorum []uint32
	accountRoles  ds.Linked[int]
	accountGrant  ds.Relation

	peerAddress ds.Arena
	peerPub     *ds.Interned[[]byte]

	roleName  *ds.Interned[[]byte]
	rolePerms []ds.Bitset

	domainID      *ds.Interned[[]byte]
	domainRole    []int
	domainTxCount []int

	logger hclog.Logger
}

func NewStore(log *BlockLog, logger hclog.Logger) *Store {
	return &Store{
		log:       log,
		txHash:    ds.NewInternedArray[iroha.Hash](),
		allPub:    ds.NewInternedBytes(),
		accountID: ds.NewInternedBytes(),
		peerPub:   ds.NewInternedBytes(),
		roleName:  ds.NewInternedBytes(),
		domainID:  ds.NewInternedBytes(),
		logger:    logger,
	}
}

func (s *Store) BlockCount() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return len(s.blockTime)
}

func (s *Store) TxCount() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return len(s.txTime)
}

func (s *Store) AccountCount() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return s.accountID.Len()
}

func (s *Store) PeerCount() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return s.peerAddress.Len()
}

func (s *Store) RoleCount() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return s.roleName.Len()
}

func (s *Store) DomainCount() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return s.domainID.Len()
}

func (s *Store) BlockByHeight(height uint64) (BlockInfo, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if height == 0 || height > uint64(len(s.blockTime)) {
		return BlockInfo{}, false
	}

	return s.blockInfo(int(height - 1)), true //nolint:gosec
}

// BlockTransactions returns the transactions of the block at height in block order.
func (s *Store) BlockTransactions(height uint64) ([]TxInfo, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if height == 0 || height > uint64(len(s.blockTime)) {
		return nil, false
	}

	i := int(height - 1) //nolint:gosec
	start, end := s.blockTxCount.Offset(i), s.blockTxCount.Offset(i+1)
	txs := make([]TxInfo, 0, end-start)

	for j := start; j < end; j++ {
		txs = append(txs, s.txInfo(j))
	}

	return txs, true
}

func (s *Store) TxByHash(hash string) (TxInfo, bool) {
	h, ok := iroha.NewHashFromHex(hash)
	if !ok {
		return TxInfo{}, false
	}

	s.mutex.RLock()
	defer s.mutex.RUnlock()

	i, found := s.txHash.Find(h)
	if !found {
		return TxInfo{}, false
	}

	return s.txInfo(i), true
}

func (s *Store) AccountByID(id string) (AccountInfo, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	i, found := s.accountID.Find([]byte(id))
	if !found {
		return AccountInfo{}, false
	}

	return s.accountInfo(i), true
}

func (s *Store) PeerByPublicKey(publicKey string) (PeerInfo, bool) {
	key, err := hex.DecodeString(publicKey)
	if err != nil {
		return PeerInfo{}, false
	}

	s.mutex.RLock()
	defer s.mutex.RUnlock()

	i, found := s.peerPub.Find(key)
	if !found {
		return PeerInfo{}, false
	}

	return s.peerInfo(i), true
}

func (s *Store) RoleByName(name string) (RoleInfo, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	i, found := s.roleName.Find([]byte(name))
	if !found {
		return RoleInfo{}, false
	}

	return s.roleInfo(i), true
}

func (s *Store) DomainByID(id string) (DomainInfo, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	i, found := s.domainID.Find([]byte(id))
	if !found {
		return DomainInfo{}, false
	}

	return s.domainInfo(i), true
}

// BlockList pages through blocks by height. TimeAfter is inclusive, TimeBefore exclusive.
func (s *Store) BlockList(q ListQuery) Page[BlockInfo] {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return collectPage(timeRange(s.blockTime, q), q.Count, s.blockInfo)
}

// TxList pages through transactions in ledger order.
func (s *Store) TxList(q ListQuery) Page[TxInfo] {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return collectPage(timeRange(s.txTime, q), q.Count, s.txInfo)
}

func (s *Store) AccountList(after *int, count int) Page[AccountInfo] {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return collectPage(positions(after, s.accountID.Len()), count, s.accountInfo)
}

func (s *Store) PeerList(after *int, count int) Page[PeerInfo] {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return collectPage(positions(after, s.peerAddress.Len()), count, s.peerInfo)
}

func (s *Store) RoleList(after *int, count int) Page[RoleInfo] {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return collectPage(positions(after, s.roleName.Len()), count, s.roleInfo)
}

func (s *Store) DomainList(after *int, count int) Page[DomainInfo] {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return collectPage(positions(after, s.domainID.Len()), count, s.domainInfo)
}

// TxCountPerTime counts transactions per step long bucket. The last of the
// buckets starts at now truncated to step.
func (s *Store) TxCountPerTime(step time.Duration, buckets int, now time.Time) []int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return countPerTime(s.txTime, step, buckets, now)
}

func (s *Store) BlockCountPerTime(step time.Duration, buckets int, now time.Time) []int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return countPerTime(s.blockTime, step, buckets, now)
}

func (s *Store) TxCountPerDomain() []DomainTxCount {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	result := make([]DomainTxCount, s.domainID.Len())
	for i := range result {
		result[i] = DomainTxCount{
			Domain: string(s.domainID.At(i)),
			Count:  s.domainTxCount[i],
		}
	}

	return result
}

func (s *Store) blockInfo(i int) BlockInfo {
	prev := noPreviousBlockHash
	if i > 0 {
		prev = s.blockHash.At(i - 1).String()
	}

	return BlockInfo{
		Height:            uint64(i) + 1, //nolint:gosec
		Hash:              s.blockHash.At(i).String(),
		PreviousBlockHash: prev,
		Time:              timeFromMillis(s.blockTime[i]),
		TransactionCount:  s.blockTxCount.Size(i),
	}
}

func (s *Store) txInfo(i int) TxInfo {
	block := s.blockTxCount.Index(i)
	info := TxInfo{
		Hash:        s.txHash.At(i).String(),
		Time:        timeFromMillis(s.txTime[i]),
		BlockHeight: uint64(block) + 1, //nolint:gosec
		Signatories: []string{},
	}

	if creator := s.txCreator[i]; creator != noIndex {
		info.CreatedBy = string(s.accountID.At(creator))
	}

	for pub := range s.txPubs.Range(i) {
		info.Signatories = append(info.Signatories, hex.EncodeToString(s.allPub.At(pub)))
	}

	commands, err := iroha.CommandsJSON(s.txCmds[i].Of(s.log.Get(block)))
	if err != nil {
		s.logger.Warn("Failed to render transaction commands", "hash", info.Hash, "err", err)
	}

	info.CommandsJSON = commands

	return info
}

func (s *Store) accountInfo(i int) AccountInfo {
	var perms ds.Bitset

	info := AccountInfo{
		ID:        string(s.accountID.At(i)),
		Quorum:    s.accountQuorum[i],
		Roles:     []string{},
		GrantedBy: s.permissionsGranted(s.accountGrant.ByLeft(i)),
		GrantedTo: s.permissionsGranted(s.accountGrant.ByRight(i)),
	}

	for role := range s.accountRoles.Range(i) {
		info.Roles = append(info.Roles, string(s.roleName.At(role)))
		perms = perms.Or(s.rolePerms[role])
	}

	info.Permissions = iroha.RolePermissionNames(perms)

	return info
}

// permissionsGranted expands every edge into one entry per granted permission.
func (s *Store) permissionsGranted(edges []ds.Edge) []PermissionGranted {
	result := []PermissionGranted{}

	for _, edge := range edges {
		for bit := range edge.Bits.Bits() {
			result = append(result, PermissionGranted{
				By:         string(s.accountID.At(edge.Left)),
				To:         string(s.accountID.At(edge.Right)),
				Permission: iroha.GrantablePermission(bit).String(),
			})
		}
	}

	return result
}

func (s *Store) peerInfo(i int) PeerInfo {
	return PeerInfo{
		Address:   s.peerAddress.String(i),
		PublicKey: hex.EncodeToString(s.peerPub.At(i)),
	}
}

func (s *Store) roleInfo(i int) RoleInfo {
	return RoleInfo{
		Name:        string(s.roleName.At(i)),
		Permissions: iroha.RolePermissionNames(s.rolePerms[i]),
	}
}

func (s *Store) domainInfo(i int) DomainInfo {
	return DomainInfo{
		ID:               string(s.domainID.At(i)),
		DefaultRole:      string(s.roleName.At(s.domainRole[i])),
		TransactionCount: s.domainTxCount[i],
	}
}

// positionRange walks positions from from towards to (exclusive) by step.
type positionRange struct {
	from, to, step int
}

func (r positionRange) contains(i int) bool {
	if r.step > 0 {
		return i >= r.from && i < r.to
	}

	return i <= r.from && i > r.to
}

func positions(after *int, total int) positionRange {
	from := 0
	if after != nil {
		from = max(0, *after+1)
	}

	return positionRange{from: from, to: total, step: 1}
}

// timeRange narrows the positions of a monotonic time column with binary search.
func timeRange(times []uint64, q ListQuery) positionRange {
	total := len(times)

	if q.Reverse {
		from := total - 1
		if q.After != nil {
			from = min(from, *q.After-1)
		}

		if q.TimeBefore != nil {
			before := millisFromTime(*q.TimeBefore)
			from = min(from, sort.Search(total, func(i int) bool { return times[i] >= before })-1)
		}

		to := -1
		if q.TimeAfter != nil {
			after := millisFromTime(*q.TimeAfter)
			to = sort.Search(total, func(i int) bool { return times[i] >= after }) - 1
		}

		return positionRange{from: from, to: to, step: -1}
	}

	from := 0
	if q.After != nil {
		from = max(0, *q.After+1)
	}

	if q.TimeAfter != nil {
		after := millisFromTime(*q.TimeAfter)
		from = max(from, sort.Search(total, func(i int) bool { return times[i] >= after }))
	}

	to := total
	if q.TimeBefore != nil {
		before := millisFromTime(*q.TimeBefore)
		to = sort.Search(total, func(i int) bool { return times[i] >= before })
	}

	return positionRange{from: from, to: to, step: 1}
}

func collectPage[T any](r positionRange, count int, item func(int) T) Page[T] {
	page := Page[T]{Items: []T{}}

	i := r.from
	for ; r.contains(i) && len(page.Items) < count; i += r.step {
		page.Items = append(page.Items, item(i))
	}

	if len(page.Items) > 0 && r.contains(i) {
		last := i - r.step
		page.NextAfter = &last
	}

	return page
}

func countPerTime(times []uint64, step time.Duration, buckets int, now time.Time) []int {
	if buckets <= 0 || step <= 0 {
		return []int{}
	}

	result := make([]int, buckets)
	cut := millisFromTime(now.Truncate(step))
	stepMs := uint64(step.Milliseconds()) //nolint:gosec
	bucket := buckets - 1

	for i := len(times) - 1; i >= 0 && bucket >= 0; {
		if times[i] >= cut {
			result[bucket]++
			i--

			continue
		}

		bucket--

		if cut < stepMs {
			cut = 0
		} else {
			cut -= stepMs
		}
	}

	return result
}
