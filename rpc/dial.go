package rpc

import (
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Dial opens a client connection to addr configured to use gobCodec on
// every call, the insecure transport matching the plant-network trust
// model spec §6's services run under (no TLS material is named in the
// wire surface).
func Dial(addr string, opts ...grpc.DialOption) (*grpc.ClientConn, error) {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(gobCodec{})),
	}, opts...)
	return grpc.NewClient(addr, opts...)
}

// NewServer creates a *grpc.Server configured to use gobCodec.
func NewServer(opts ...grpc.ServerOption) *grpc.Server {
	opts = append([]grpc.ServerOption{grpc.ForceServerCodec(gobCodec{})}, opts...)
	return grpc.NewServer(opts...)
}
