// Package irohagrpc implements indexer.BlockSource on top of the query service
// of an Iroha node.
package irohagrpc

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/Ethernal-Tech/iroha-explorer/indexer"
	"github.com/Ethernal-Tech/iroha-explorer/iroha"
	"github.com/hashicorp/go-hclog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const (
	QueryServiceName   = "iroha.protocol.QueryService_v1"
	findMethod         = "/" + QueryServiceName + "/Find"
	fetchCommitsMethod = "/" + QueryServiceName + "/FetchCommits"
)

var fetchCommitsDesc = &grpc.StreamDesc{
	StreamName:    "FetchCommits",
	ServerStreams: true,
}

// Client signs block queries as accountID and sends them to a single node.
type Client struct {
	conn         *grpc.ClientConn
	accountID    string
	key          *iroha.Keypair
	queryCounter atomic.Uint64
	logger       hclog.Logger
}

var _ indexer.BlockSource = (*Client)(nil)

// NewClient connects to host without transport security unless opts say otherwise.
func NewClient(
	host, accountID string, key *iroha.Keypair, logger hclog.Logger, opts ...grpc.DialOption,
) (*Client, error) {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(rawCodec{})),
	}, opts...)

	conn, err := grpc.Dial(host, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", host, err)
	}

	return &Client{
		conn:      conn,
		accountID: accountID,
		key:       key,
		logger:    logger,
	}, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

// CheckAccount fails with indexer.ErrAuthentication when the node rejects
// block queries of the configured account.
func (c *Client) CheckAccount(ctx context.Context) error {
	_, err := c.find(ctx, 1)

	var resp *iroha.ErrorResponse
	if errors.As(err, &resp) {
		switch resp.Code {
		case iroha.ErrorCodeInvalidAccount, iroha.ErrorCodeNoPermission:
			return fmt.Errorf("%w: account %s: %w", indexer.ErrAuthentication, c.accountID, err)
		default:
			return nil
		}
	}

	return err
}

// GetBlock returns the block at height. Any error response of the node is
// reported as indexer.ErrBlockNotFound.
func (c *Client) GetBlock(ctx context.Context, height uint64) (*iroha.Block, error) {
	block, err := c.find(ctx, height)

	var resp *iroha.ErrorResponse
	if errors.As(err, &resp) {
		return nil, fmt.Errorf("%w: height %d: %w", indexer.ErrBlockNotFound, height, err)
	} else if err != nil {
		return nil, err
	}

	return block, nil
}

// FetchCommits subscribes to blocks committed from now on.
func (c *Client) FetchCommits(ctx context.Context) (indexer.BlockStream, error) {
	stream, err := c.conn.NewStream(ctx, fetchCommitsDesc, fetchCommitsMethod)
	if err != nil {
		return nil, fmt.Errorf("failed to open commit stream: %w", err)
	}

	query := iroha.EncodeBlocksQuery(c.meta(), c.key)

	if err := stream.SendMsg(&query); err != nil {
		return nil, fmt.Errorf("failed to send blocks query: %w", err)
	}

	if err := stream.CloseSend(); err != nil {
		return nil, fmt.Errorf("failed to send blocks query: %w", err)
	}

	c.logger.Debug("Subscribed to commits", "account", c.accountID)

	return &commitStream{stream: stream}, nil
}

func (c *Client) find(ctx context.Context, height uint64) (*iroha.Block, error) {
	query := iroha.EncodeGetBlockQuery(c.meta(), height, c.key)

	var resp []byte
	if err := c.conn.Invoke(ctx, findMethod, &query, &resp); err != nil {
		return nil, fmt.Errorf("get block %d: %w", height, err)
	}

	block, err := iroha.DecodeQueryResponse(resp)
	if err != nil {
		return nil, err
	}

	c.logger.Trace("Block received", "height", block.Height, "hash", block.Hash)

	return block, nil
}

func (c *Client) meta() iroha.QueryMeta {
	return iroha.QueryMeta{
		CreatorAccountID: c.accountID,
		CreatedTime:      uint64(time.Now().UnixMilli()), //nolint:gosec
		QueryCounter:     c.queryCounter.Add(1),
	}
}

type commitStream struct {
	stream grpc.ClientStream
}

// Recv returns io.EOF once the node ends the stream with an OK status.
func (s *commitStream) Recv() (*iroha.Block, error) {
	var resp []byte
	if err := s.stream.RecvMsg(&resp); err != nil {
		return nil, err
	}

	return iroha.DecodeBlockQueryResponse(resp)
}
