package iroha

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/Ethernal-Tech/iroha-explorer/pbscan"
	"golang.org/x/crypto/sha3"
	"google.golang.org/protobuf/encoding/protowire"
)

// iroha.protocol field numbers
const (
	fieldBlockV1 protowire.Number = 1

	fieldBlockPayload    protowire.Number = 1
	fieldBlockTxs        protowire.Number = 1
	fieldBlockHeight     protowire.Number = 3
	fieldBlockPrevHash   protowire.Number = 4
	fieldBlockCreateTime protowire.Number = 5

	fieldTxPayload       protowire.Number = 1
	fieldTxSignatures    protowire.Number = 2
	fieldTxReduced       protowire.Number = 1
	fieldReducedCommands protowire.Number = 1
	fieldReducedCreator  protowire.Number = 2
	fieldReducedTime     protowire.Number = 3
	fieldReducedQuorum   protowire.Number = 4

	fieldSignaturePublicKey protowire.Number = 1
	fieldSignatureValue     protowire.Number = 2
)

// BlockRecordField is the top-level field every serialized Block starts with.
// Concatenated blocks are split on it.
const BlockRecordField = fieldBlockV1

var ErrInvalidBlock = errors.New("invalid block")

type Hash [32]byte

// HashOf returns the content hash of a serialized payload.
func HashOf(payload []byte) Hash {
	return sha3.Sum256(payload)
}

func NewHashFromHex(s string) (Hash, bool) {
	var h Hash

	if len(s) != hex.EncodedLen(len(h)) {
		return h, false
	}

	if _, err := hex.Decode(h[:], []byte(s)); err != nil {
		return h, false
	}

	return h, true
}

func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// Block is a decoded view over a serialized iroha.protocol.Block. Ranges in the
// block and its transactions point into Raw.
type Block struct {
	Raw           []byte
	Hash          Hash
	Height        uint64
	CreatedTime   uint64
	PrevBlockHash string
	Payload       pbscan.Range
	Transactions  []Transaction
}

type Transaction struct {
	Hash             Hash
	CreatorAccountID string
	CreatedTime      uint64
	Quorum           uint32
	// Signers are the public keys of the transaction signatures, hex encoded.
	Signers []string
	// Commands spans the serialized command records of the reduced payload.
	Commands    pbscan.Range
	CommandList []Command
}

// DecodeBlock decodes the fields the explorer indexes. raw is retained, not copied.
func DecodeBlock(raw []byte) (*Block, error) {
	v1, found, err := pbscan.Find(raw, pbscan.Whole(raw), fieldBlockV1)
	if err != nil {
		return nil, errors.Join(ErrInvalidBlock, err)
	} else if !found {
		return nil, fmt.Errorf("%w: block_v1 is missing", ErrInvalidBlock)
	}

	payload, found, err := pbscan.Find(raw, v1, fieldBlockPayload)
	if err != nil {
		return nil, errors.Join(ErrInvalidBlock, err)
	} else if !found {
		return nil, fmt.Errorf("%w: payload is missing", ErrInvalidBlock)
	}

	block := &Block{
		Raw:     raw,
		Hash:    HashOf(payload.Of(raw)),
		Payload: payload,
	}

	if block.Height, err = pbscan.Uint(raw, payload, fieldBlockHeight); err != nil {
		return nil, errors.Join(ErrInvalidBlock, err)
	}

	if block.CreatedTime, err = pbscan.Uint(raw, payload, fieldBlockCreateTime); err != nil {
		return nil, errors.Join(ErrInvalidBlock, err)
	}

	if block.PrevBlockHash, err = pbscan.String(raw, payload, fieldBlockPrevHash); err != nil {
		return nil, errors.Join(ErrInvalidBlock, err)
	}

	err = pbscan.Repeated(raw, payload, fieldBlockTxs, func(r pbscan.Range) error {
		tx, err := decodeTransaction(raw, r)
		if err != nil {
			return err
		}

		block.Transactions = append(block.Transactions, tx)

		return nil
	})
	if err != nil {
		return nil, errors.Join(ErrInvalidBlock, err)
	}

	return block, nil
}

func decodeTransaction(raw []byte, r pbscan.Range) (tx Transaction, err error) {
	payload, found, err := pbscan.Find(raw, r, fieldTxPayload)
	if err != nil {
		return tx, err
	} else if !found {
		return tx, errors.New("transaction payload is missing")
	}

	tx.Hash = HashOf(payload.Of(raw))

	reduced, found, err := pbscan.Find(raw, payload, fieldTxReduced)
	if err != nil {
		return tx, err
	} else if !found {
		return tx, errors.New("transaction reduced payload is missing")
	}

	if tx.CreatorAccountID, err = pbscan.String(raw, reduced, fieldReducedCreator); err != nil {
		return tx, err
	}

	if tx.CreatedTime, err = pbscan.Uint(raw, reduced, fieldReducedTime); err != nil {
		return tx, err
	}

	quorum, err := pbscan.Uint(raw, reduced, fieldReducedQuorum)
	if err != nil {
		return tx, err
	}

	tx.Quorum = uint32(quorum) //nolint:gosec

	tx.Commands = pbscan.Range{Start: reduced.Start, End: reduced.Start}

	err = pbscan.Each(raw, reduced, func(f pbscan.Field) error {
		if f.Num != fieldReducedCommands {
			return nil
		}

		if len(tx.CommandList) == 0 {
			tx.Commands.Start = f.Record.Start
		}

		tx.Commands.End = f.Record.End

		cmd, err := decodeCommand(raw, f.Value)
		if err != nil {
			return err
		}

		tx.CommandList = append(tx.CommandList, cmd)

		return nil
	})
	if err != nil {
		return tx, err
	}

	err = pbscan.Repeated(raw, r, fieldTxSignatures, func(sig pbscan.Range) error {
		pub, err := pbscan.String(raw, sig, fieldSignaturePublicKey)
		if err != nil {
			return err
		}

		tx.Signers = append(tx.Signers, strings.ToLower(pub))

		return nil
	})

	return tx, err
}

// AccountDomain returns the domain part of an account id (name@domain).
func AccountDomain(accountID string) string {
	if i := strings.LastIndexByte(accountID, '@'); i >= 0 {
		return accountID[i+1:]
	}

	return ""
}

// DecodePublicKey decodes a hex public key as used in signatures and peers.
func DecodePublicKey(s string) ([]byte, error) {
	if s == "" {
		return nil, errors.New("empty public key")
	}

	return hex.DecodeString(s)
}
