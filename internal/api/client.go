package api

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/miradorstack/vmtest/internal/models"
)

// Client calls a remote fingerprint service and decodes its replies.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps an existing connection.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Dial opens a plaintext connection to addr.
func Dial(addr string, opts ...grpc.DialOption) (*grpc.ClientConn, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return conn, nil
}

// Run asks the service to fingerprint its host.
func (c *Client) Run(ctx context.Context, req models.RunRequest, opts ...grpc.CallOption) (models.Fingerprint, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, runMethod, ToStructRunRequest(req), out, opts...); err != nil {
		return models.Fingerprint{}, err
	}
	return FromStructFingerprint(out)
}

// Latest returns the most recent fingerprint held by the service.
func (c *Client) Latest(ctx context.Context, opts ...grpc.CallOption) (models.Fingerprint, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, latestMethod, &emptypb.Empty{}, out, opts...); err != nil {
		return models.Fingerprint{}, err
	}
	return FromStructFingerprint(out)
}

// Consensus returns the service's multi-run consensus.
func (c *Client) Consensus(ctx context.Context, opts ...grpc.CallOption) (models.ConsensusReport, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, consensusMethod, &emptypb.Empty{}, out, opts...); err != nil {
		return models.ConsensusReport{}, err
	}
	return FromStructConsensus(out)
}
