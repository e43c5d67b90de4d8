package indexer

import (
	"time"
)

const noPreviousBlockHash = "-"

type BlockInfo struct {
	Height            uint64    `json:"height"`
	Hash              string    `json:"hash"`
	PreviousBlockHash string    `json:"previousBlockHash"`
	Time              time.Time `json:"time"`
	TransactionCount  int       `json:"transactionCount"`
}

type TxInfo struct {
	Hash        string    `json:"hash"`
	CreatedBy   string    `json:"createdBy,omitempty"`
	Time        time.Time `json:"time"`
	BlockHeight uint64    `json:"blockHeight"`
	// Signatories are hex public keys, the last signature first.
	Signatories  []string `json:"signatories"`
	CommandsJSON string   `json:"commandsJson"`
}

type PermissionGranted struct {
	By         string `json:"by"`
	To         string `json:"to"`
	Permission string `json:"permission"`
}

type AccountInfo struct {
	ID     string `json:"id"`
	Quorum uint32 `json:"quorum"`
	// Roles are ordered from the most recently appended one.
	Roles       []string            `json:"roles"`
	Permissions []string            `json:"permissions"`
	GrantedBy   []PermissionGranted `json:"permissionsGrantedBy"`
	GrantedTo   []PermissionGranted `json:"permissionsGrantedTo"`
}

type PeerInfo struct {
	Address   string `json:"address"`
	PublicKey string `json:"publicKey"`
}

type RoleInfo struct {
	Name        string   `json:"name"`
	Permissions []string `json:"permissions"`
}

type DomainInfo struct {
	ID               string `json:"id"`
	DefaultRole      string `json:"defaultRole"`
	TransactionCount int    `json:"transactionCount"`
}

type DomainTxCount struct {
	Domain string `json:"domain"`
	Count  int    `json:"count"`
}

// Page is one page of a list. NextAfter is the cursor of the following page
// and is nil when the list is exhausted.
type Page[T any] struct {
	Items     []T  `json:"items"`
	NextAfter *int `json:"nextAfter,omitempty"`
}

// ListQuery selects a page of items by position. After is the position of the
// last item of the previous page; nil starts at the beginning (or at the end
// when Reverse is set).
type ListQuery struct {
	After      *int
	Count      int
	Reverse    bool
	TimeAfter  *time.Time
	TimeBefore *time.Time
}

func timeFromMillis(ms uint64) time.Time {
	return time.UnixMilli(int64(ms)).UTC() //nolint:gosec
}

func millisFromTime(t time.Time) uint64 {
	ms := t.UnixMilli()
	if ms < 0 {
		return 0
	}

	return uint64(ms)
}
