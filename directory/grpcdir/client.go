// Package grpcdir implements directory.Resolver against a remote service
// directory reachable over gRPC.
package grpcdir

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
)

// resolveMethod is the fully-qualified gRPC method the remote directory
// exposes for resolving a service name to a dial target.
const resolveMethod = "/runa.directory.v1.Directory/Resolve"

// Client resolves service names by calling a remote directory over gRPC.
// Requests and responses use a generic structpb.Struct payload rather than
// a generated client stub, since the directory's proto package is owned and
// versioned by whichever team runs the remote directory service.
type Client struct {
	conn *grpc.ClientConn
}

// Dial opens a connection to a remote directory service at addr. Uses
// insecure (plaintext) transport; wrap with grpc.WithTransportCredentials
// via opts for deployments crossing a network boundary.
func Dial(addr string, opts ...grpc.DialOption) (*Client, error) {
	dialOpts := append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("grpcdir: dial %s: %w", addr, err)
	}
	return &Client{conn: conn}, nil
}

// Resolve implements directory.Resolver.
func (c *Client) Resolve(ctx context.Context, service string) (string, error) {
	req, err := structpb.NewStruct(map[string]any{"service": service})
	if err != nil {
		return "", fmt.Errorf("grpcdir: building request: %w", err)
	}

	resp := &structpb.Struct{}
	if err := c.conn.Invoke(ctx, resolveMethod, req, resp); err != nil {
		return "", fmt.Errorf("grpcdir: resolve %s: %w", service, err)
	}

	endpoint, ok := resp.Fields["endpoint"]
	if !ok {
		return "", fmt.Errorf("grpcdir: resolve %s: response missing endpoint field", service)
	}
	return endpoint.GetStringValue(), nil
}

// Close releases the gRPC connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
