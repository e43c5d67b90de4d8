// Package irohatest encodes Iroha protocol messages for tests.
package irohatest

import (
	"encoding/hex"

	"google.golang.org/protobuf/encoding/protowire"
)

type Tx struct {
	Creator     string
	CreatedTime uint64
	Quorum      uint32
	Signers     []string
	Commands    [][]byte
}

type Block struct {
	Height      uint64
	CreatedTime uint64
	PrevHash    string
	Txs         []Tx
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)

	return protowire.AppendString(b, s)
}

func appendMessage(b []byte, num protowire.Number, msg []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)

	return protowire.AppendBytes(b, msg)
}

func appendUint(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)

	return protowire.AppendVarint(b, v)
}

func command(kind protowire.Number, body []byte) []byte {
	return appendMessage(nil, kind, body)
}

func strings2(a, b string) []byte {
	return appendString(appendString(nil, 1, a), 2, b)
}

func CreateDomain(domainID, defaultRole string) []byte {
	return command(7, strings2(domainID, defaultRole))
}

func CreateAccount(name, domainID, publicKey string) []byte {
	body := appendString(strings2(name, domainID), 3, publicKey)

	return command(5, body)
}

func AppendRole(accountID, role string) []byte {
	return command(4, strings2(accountID, role))
}

func SetAccountQuorum(accountID string, quorum uint32) []byte {
	return command(14, appendUint(appendString(nil, 1, accountID), 2, uint64(quorum)))
}

func GrantPermission(accountID string, permission int) []byte {
	return command(10, appendUint(appendString(nil, 1, accountID), 2, uint64(permission))) //nolint:gosec
}

func AddPeer(address, peerKey string) []byte {
	return command(2, appendMessage(nil, 1, strings2(address, peerKey)))
}

// CreateRole encodes the permissions packed, like protobuf serializers do for proto3.
func CreateRole(name string, permissions ...int) []byte {
	var packed []byte
	for _, p := range permissions {
		packed = protowire.AppendVarint(packed, uint64(p)) //nolint:gosec
	}

	return command(8, appendMessage(appendString(nil, 1, name), 2, packed))
}

func TransferAsset(src, dest, assetID, description, amount string) []byte {
	body := appendString(strings2(src, dest), 3, assetID)
	body = appendString(body, 4, description)
	body = appendString(body, 5, amount)

	return command(16, body)
}

// TxPayload encodes the Transaction.Payload, the hashed part of a transaction.
func TxPayload(tx Tx) []byte {
	var reduced []byte
	for _, cmd := range tx.Commands {
		reduced = appendMessage(reduced, 1, cmd)
	}

	reduced = appendString(reduced, 2, tx.Creator)
	reduced = appendUint(reduced, 3, tx.CreatedTime)
	reduced = appendUint(reduced, 4, uint64(tx.Quorum))

	return appendMessage(nil, 1, reduced)
}

func EncodeTx(tx Tx) []byte {
	b := appendMessage(nil, 1, TxPayload(tx))

	for i, signer := range tx.Signers {
		b = appendMessage(b, 2, strings2(signer, hex.EncodeToString([]byte{byte(i)})))
	}

	return b
}

// BlockPayload encodes the Block_v1.Payload, the hashed part of a block.
func BlockPayload(block Block) []byte {
	var payload []byte
	for _, tx := range block.Txs {
		payload = appendMessage(payload, 1, EncodeTx(tx))
	}

	payload = appendUint(payload, 2, uint64(len(block.Txs)))
	payload = appendUint(payload, 3, block.Height)
	payload = appendString(payload, 4, block.PrevHash)
	payload = appendUint(payload, 5, block.CreatedTime)

	return payload
}

// EncodeBlock encodes a serialized iroha.protocol.Block.
func EncodeBlock(block Block) []byte {
	v1 := appendMessage(nil, 1, BlockPayload(block))

	return appendMessage(nil, 1, v1)
}

// Chain encodes blocks 1..n, one second apart starting at start milliseconds.
// Every block holds a single transaction of creator without commands.
func Chain(n int, start uint64, creator string) [][]byte {
	blocks := make([][]byte, n)
	for i := range blocks {
		height := uint64(i + 1) //nolint:gosec
		blocks[i] = EncodeBlock(Block{
			Height:      height,
			CreatedTime: start + uint64(i)*1000, //nolint:gosec
			Txs:         []Tx{{Creator: creator, CreatedTime: start + uint64(i)*1000, Quorum: 1}}, //nolint:gosec
		})
	}

	return blocks
}

func QueryBlockResponse(block []byte) []byte {
	return appendMessage(nil, 14, appendMessage(nil, 1, block))
}

func QueryErrorResponse(reason, code uint32, message string) []byte {
	body := appendUint(nil, 1, uint64(reason))
	body = appendString(body, 2, message)
	body = appendUint(body, 3, uint64(code))

	return appendMessage(nil, 4, body)
}

func BlockQueryResponse(block []byte) []byte {
	return appendMessage(nil, 1, appendMessage(nil, 1, block))
}

func BlockQueryErrorResponse(message string) []byte {
	return appendMessage(nil, 2, appendString(nil, 1, message))
}
