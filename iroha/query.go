package iroha

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/Ethernal-Tech/iroha-explorer/pbscan"
	"google.golang.org/protobuf/encoding/protowire"
)

const (
	fieldQueryPayload   protowire.Number = 1
	fieldQuerySignature protowire.Number = 2

	fieldQueryPayloadMeta     protowire.Number = 1
	fieldQueryPayloadGetBlock protowire.Number = 14
	fieldGetBlockHeight       protowire.Number = 1

	fieldMetaCreatedTime  protowire.Number = 1
	fieldMetaCreator      protowire.Number = 2
	fieldMetaQueryCounter protowire.Number = 3

	fieldBlocksQueryMeta      protowire.Number = 1
	fieldBlocksQuerySignature protowire.Number = 2

	fieldQueryResponseError protowire.Number = 4
	fieldQueryResponseBlock protowire.Number = 14
	fieldBlockResponseBlock protowire.Number = 1

	fieldErrorReason  protowire.Number = 1
	fieldErrorMessage protowire.Number = 2
	fieldErrorCode    protowire.Number = 3

	fieldBlockQueryBlock protowire.Number = 1
	fieldBlockQueryError protowire.Number = 2
	fieldBlockErrorMsg   protowire.Number = 1
)

// Error codes of a stateful query validation failure.
const (
	ErrorCodeNoPermission   uint32 = 2
	ErrorCodeInvalidAccount uint32 = 3
)

var ErrUnexpectedResponse = errors.New("unexpected response")

type QueryMeta struct {
	CreatorAccountID string
	CreatedTime      uint64
	QueryCounter     uint64
}

func (m QueryMeta) appendTo(b []byte) []byte {
	b = protowire.AppendTag(b, fieldMetaCreatedTime, protowire.VarintType)
	b = protowire.AppendVarint(b, m.CreatedTime)
	b = protowire.AppendTag(b, fieldMetaCreator, protowire.BytesType)
	b = protowire.AppendString(b, m.CreatorAccountID)
	b = protowire.AppendTag(b, fieldMetaQueryCounter, protowire.VarintType)

	return protowire.AppendVarint(b, m.QueryCounter)
}

func appendSignature(b []byte, num protowire.Number, key *Keypair, payload []byte) []byte {
	var sig []byte
	sig = protowire.AppendTag(sig, fieldSignaturePublicKey, protowire.BytesType)
	sig = protowire.AppendString(sig, key.PublicKeyHex())
	sig = protowire.AppendTag(sig, fieldSignatureValue, protowire.BytesType)
	sig = protowire.AppendString(sig, hex.EncodeToString(key.Sign(payload)))

	b = protowire.AppendTag(b, num, protowire.BytesType)

	return protowire.AppendBytes(b, sig)
}

// EncodeGetBlockQuery builds a signed Query for the block at height.
func EncodeGetBlockQuery(meta QueryMeta, height uint64, key *Keypair) []byte {
	var getBlock []byte
	getBlock = protowire.AppendTag(getBlock, fieldGetBlockHeight, protowire.VarintType)
	getBlock = protowire.AppendVarint(getBlock, height)

	var payload []byte
	payload = protowire.AppendTag(payload, fieldQueryPayloadMeta, protowire.BytesType)
	payload = protowire.AppendBytes(payload, meta.appendTo(nil))
	payload = protowire.AppendTag(payload, fieldQueryPayloadGetBlock, protowire.BytesType)
	payload = protowire.AppendBytes(payload, getBlock)

	var query []byte
	query = protowire.AppendTag(query, fieldQueryPayload, protowire.BytesType)
	query = protowire.AppendBytes(query, payload)

	return appendSignature(query, fieldQuerySignature, key, payload)
}

// EncodeBlocksQuery builds a signed BlocksQuery subscribing to new commits.
func EncodeBlocksQuery(meta QueryMeta, key *Keypair) []byte {
	encodedMeta := meta.appendTo(nil)

	var query []byte
	query = protowire.AppendTag(query, fieldBlocksQueryMeta, protowire.BytesType)
	query = protowire.AppendBytes(query, encodedMeta)

	return appendSignature(query, fieldBlocksQuerySignature, key, encodedMeta)
}

// DecodeGetBlockQuery returns the meta and the requested height of a get block Query.
func DecodeGetBlockQuery(raw []byte) (meta QueryMeta, height uint64, err error) {
	payload, found, err := pbscan.Find(raw, pbscan.Whole(raw), fieldQueryPayload)
	if err != nil {
		return meta, 0, err
	} else if !found {
		return meta, 0, fmt.Errorf("%w: query payload is missing", ErrUnexpectedResponse)
	}

	if meta, err = decodeQueryMeta(raw, payload, fieldQueryPayloadMeta); err != nil {
		return meta, 0, err
	}

	getBlock, found, err := pbscan.Find(raw, payload, fieldQueryPayloadGetBlock)
	if err != nil {
		return meta, 0, err
	} else if !found {
		return meta, 0, fmt.Errorf("%w: not a get block query", ErrUnexpectedResponse)
	}

	height, err = pbscan.Uint(raw, getBlock, fieldGetBlockHeight)

	return meta, height, err
}

func decodeQueryMeta(raw []byte, r pbscan.Range, num protowire.Number) (meta QueryMeta, err error) {
	metaRange, found, err := pbscan.Find(raw, r, num)
	if err != nil || !found {
		return meta, err
	}

	if meta.CreatedTime, err = pbscan.Uint(raw, metaRange, fieldMetaCreatedTime); err != nil {
		return meta, err
	}

	if meta.CreatorAccountID, err = pbscan.String(raw, metaRange, fieldMetaCreator); err != nil {
		return meta, err
	}

	meta.QueryCounter, err = pbscan.Uint(raw, metaRange, fieldMetaQueryCounter)

	return meta, err
}

// ErrorResponse is the error_response of a QueryResponse.
type ErrorResponse struct {
	Reason  uint32
	Message string
	Code    uint32
}

func (e *ErrorResponse) Error() string {
	return fmt.Sprintf("query error: reason = %d, code = %d, message = %s", e.Reason, e.Code, e.Message)
}

// BlockErrorResponse is the block_error_response of a BlockQueryResponse.
type BlockErrorResponse struct {
	Message string
}

func (e *BlockErrorResponse) Error() string {
	return "fetch commits error: " + e.Message
}

// DecodeQueryResponse returns the block of a block_response. An error_response
// is returned as *ErrorResponse.
func DecodeQueryResponse(raw []byte) (*Block, error) {
	whole := pbscan.Whole(raw)

	errRange, found, err := pbscan.Find(raw, whole, fieldQueryResponseError)
	if err != nil {
		return nil, err
	} else if found {
		var (
			resp         ErrorResponse
			reason, code uint64
		)

		if reason, err = pbscan.Uint(raw, errRange, fieldErrorReason); err != nil {
			return nil, err
		}

		if resp.Message, err = pbscan.String(raw, errRange, fieldErrorMessage); err != nil {
			return nil, err
		}

		if code, err = pbscan.Uint(raw, errRange, fieldErrorCode); err != nil {
			return nil, err
		}

		resp.Reason, resp.Code = uint32(reason), uint32(code) //nolint:gosec

		return nil, &resp
	}

	block, found, err := pbscan.Find(raw, whole, fieldQueryResponseBlock, fieldBlockResponseBlock)
	if err != nil {
		return nil, err
	} else if !found {
		return nil, fmt.Errorf("%w: neither block nor error response", ErrUnexpectedResponse)
	}

	return DecodeBlock(block.Of(raw))
}

// DecodeBlockQueryResponse returns the block of a FetchCommits stream message.
// A block_error_response is returned as *BlockErrorResponse.
func DecodeBlockQueryResponse(raw []byte) (*Block, error) {
	whole := pbscan.Whole(raw)

	errRange, found, err := pbscan.Find(raw, whole, fieldBlockQueryError)
	if err != nil {
		return nil, err
	} else if found {
		msg, err := pbscan.String(raw, errRange, fieldBlockErrorMsg)
		if err != nil {
			return nil, err
		}

		return nil, &BlockErrorResponse{Message: msg}
	}

	block, found, err := pbscan.Find(raw, whole, fieldBlockQueryBlock, fieldBlockResponseBlock)
	if err != nil {
		return nil, err
	} else if !found {
		return nil, fmt.Errorf("%w: neither block nor error response", ErrUnexpectedResponse)
	}

	return DecodeBlock(block.Of(raw))
}
