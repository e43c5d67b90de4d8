package irohagrpc

import (
	"context"
	"io"
	"net"
	"sync"
	"testing"

	"github.com/Ethernal-Tech/iroha-explorer/indexer"
	"github.com/Ethernal-Tech/iroha-explorer/iroha"
	"github.com/Ethernal-Tech/iroha-explorer/iroha/irohatest"
	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

const testAccount = "explorer@test"

// fakeNode answers GetBlock queries from blocks and replays commits on FetchCommits.
type fakeNode struct {
	lock      sync.Mutex
	blocks    [][]byte
	errorCode uint32
	commits   [][]byte
	endStatus error
	queries   []iroha.QueryMeta
}

func (n *fakeNode) find(query []byte) ([]byte, error) {
	meta, height, err := iroha.DecodeGetBlockQuery(query)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	n.lock.Lock()
	defer n.lock.Unlock()

	n.queries = append(n.queries, meta)

	switch {
	case n.errorCode != 0:
		return irohatest.QueryErrorResponse(1, n.errorCode, "stateful validation failed"), nil
	case height == 0 || height > uint64(len(n.blocks)):
		return irohatest.QueryErrorResponse(1, 1, "block not found"), nil
	default:
		return irohatest.QueryBlockResponse(n.blocks[height-1]), nil
	}
}

var testServiceDesc = grpc.ServiceDesc{
	ServiceName: QueryServiceName,
	HandlerType: (*any)(nil),
	Methods: []grpc.MethodDesc{{
		MethodName: "Find",
		Handler: func(srv any, _ context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
			var query []byte
			if err := dec(&query); err != nil {
				return nil, err
			}

			resp, err := srv.(*fakeNode).find(query) //nolint:forcetypeassert
			if err != nil {
				return nil, err
			}

			return &resp, nil
		},
	}},
	Streams: []grpc.StreamDesc{{
		StreamName:    "FetchCommits",
		ServerStreams: true,
		Handler: func(srv any, stream grpc.ServerStream) error {
			node := srv.(*fakeNode) //nolint:forcetypeassert

			var query []byte
			if err := stream.RecvMsg(&query); err != nil {
				return err
			}

			for _, msg := range node.commits {
				if err := stream.SendMsg(&msg); err != nil {
					return err
				}
			}

			return node.endStatus
		},
	}},
}

func newTestClient(t *testing.T, node *fakeNode) *Client {
	t.Helper()

	listener := bufconn.Listen(1 << 20)
	server := grpc.NewServer(grpc.ForceServerCodec(rawCodec{}))
	server.RegisterService(&testServiceDesc, node)

	go func() {
		_ = server.Serve(listener)
	}()

	key, err := iroha.NewKeypair(make([]byte, 32))
	require.NoError(t, err)

	client, err := NewClient("bufnet", testAccount, key, hclog.NewNullLogger(),
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return listener.DialContext(ctx)
		}))
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = client.Close()

		server.Stop()
	})

	return client
}

func TestClient_GetBlock(t *testing.T) {
	t.Parallel()

	node := &fakeNode{blocks: irohatest.Chain(2, 1_700_000_000_000, "admin@test")}
	client := newTestClient(t, node)

	block, err := client.GetBlock(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), block.Height)
	assert.Equal(t, node.blocks[1], block.Raw)

	_, err = client.GetBlock(context.Background(), 3)
	require.ErrorIs(t, err, indexer.ErrBlockNotFound)

	var resp *iroha.ErrorResponse
	require.ErrorAs(t, err, &resp)
	assert.Equal(t, uint32(1), resp.Code)

	node.lock.Lock()
	defer node.lock.Unlock()

	require.Len(t, node.queries, 2)
	assert.Equal(t, testAccount, node.queries[0].CreatorAccountID)
	assert.Equal(t, uint64(1), node.queries[0].QueryCounter)
	assert.Equal(t, uint64(2), node.queries[1].QueryCounter)
	assert.NotZero(t, node.queries[0].CreatedTime)
}

func TestClient_CheckAccount(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		code    uint32
		blocks  int
		wantErr bool
	}{
		{name: "ok", blocks: 1},
		{name: "empty chain", blocks: 0},
		{name: "invalid account", code: iroha.ErrorCodeInvalidAccount, wantErr: true},
		{name: "no permission", code: iroha.ErrorCodeNoPermission, wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			node := &fakeNode{
				blocks:    irohatest.Chain(tc.blocks, 1_700_000_000_000, "admin@test"),
				errorCode: tc.code,
			}
			client := newTestClient(t, node)

			err := client.CheckAccount(context.Background())
			if tc.wantErr {
				require.ErrorIs(t, err, indexer.ErrAuthentication)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestClient_FetchCommits(t *testing.T) {
	t.Parallel()

	chain := irohatest.Chain(3, 1_700_000_000_000, "admin@test")

	t.Run("end of stream", func(t *testing.T) {
		t.Parallel()

		client := newTestClient(t, &fakeNode{commits: [][]byte{
			irohatest.BlockQueryResponse(chain[1]),
			irohatest.BlockQueryResponse(chain[2]),
		}})

		stream, err := client.FetchCommits(context.Background())
		require.NoError(t, err)

		for _, height := range []uint64{2, 3} {
			block, err := stream.Recv()
			require.NoError(t, err)
			assert.Equal(t, height, block.Height)
		}

		_, err = stream.Recv()
		require.ErrorIs(t, err, io.EOF)
	})

	t.Run("error status", func(t *testing.T) {
		t.Parallel()

		client := newTestClient(t, &fakeNode{endStatus: status.Error(codes.Unavailable, "shutting down")})

		stream, err := client.FetchCommits(context.Background())
		require.NoError(t, err)

		_, err = stream.Recv()
		require.Error(t, err)
		assert.Equal(t, codes.Unavailable, status.Code(err))
	})

	t.Run("block error response", func(t *testing.T) {
		t.Parallel()

		client := newTestClient(t, &fakeNode{commits: [][]byte{
			irohatest.BlockQueryErrorResponse("no permission"),
		}})

		stream, err := client.FetchCommits(context.Background())
		require.NoError(t, err)

		_, err = stream.Recv()

		var resp *iroha.BlockErrorResponse
		require.ErrorAs(t, err, &resp)
		assert.Equal(t, "no permission", resp.Message)
	})
}

func TestRawCodec(t *testing.T) {
	t.Parallel()

	codec := rawCodec{}
	msg := []byte{1, 2, 3}

	data, err := codec.Marshal(&msg)
	require.NoError(t, err)
	assert.Equal(t, msg, data)

	_, err = codec.Marshal("text")
	require.Error(t, err)

	var out []byte
	require.NoError(t, codec.Unmarshal(data, &out))
	assert.Equal(t, msg, out)

	data[0] = 9
	assert.Equal(t, byte(1), out[0])

	require.Error(t, codec.Unmarshal(data, out))
}
