package bus

import (
	"context"

	"github.com/Individual-1/notifier/internal/common"
	"github.com/Individual-1/notifier/internal/logging"
	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
)

// Client sends envelopes to the background over gRPC.
type Client struct {
	conn   *grpc.ClientConn
	token  string
	logger logging.Logger
}

// NewClient prepares a connection to addr; nothing is dialed until the first call.
func NewClient(addr, sessionToken string, l logging.Logger, opts ...grpc.DialOption) (*Client, error) {
	c := &Client{token: sessionToken, logger: l.With("module", "bus_client")}

	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(c.metadataInterceptor),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(codecName)),
	}, opts...)

	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	return c, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) metadataInterceptor(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
	ctx = metadata.AppendToOutgoingContext(ctx,
		common.SessionTokenHeaderName, c.token,
		common.RequestIDHeaderName, uuid.NewString(),
	)
	return invoker(ctx, method, req, reply, cc, opts...)
}

// Call performs one raw round trip.
func (c *Client) Call(ctx context.Context, env *Envelope) (*Reply, error) {
	reply := new(Reply)
	if err := c.conn.Invoke(ctx, DispatchMethod, env, reply); err != nil {
		return nil, err
	}
	return reply, nil
}

// Send encodes payload for action and returns the decoded result. It returns
// nil for every failure: a mismatched payload (nothing is sent), a transport
// error, or a Null reply.
func (c *Client) Send(ctx context.Context, action Action, typ DataType, payload any) any {
	env, err := Encode(action, typ, payload)
	if err != nil {
		c.logger.Debug(ctx, "not sent", "action", action.String(), "error", err)
		return nil
	}

	reply, err := c.Call(ctx, env)
	if err != nil {
		c.logger.Debug(ctx, "call failed", "action", action.String(), "error", err)
		return nil
	}

	result, err := DecodeReply(action, reply)
	if err != nil {
		c.logger.Debug(ctx, "bad reply", "action", action.String(), "error", err)
		return nil
	}
	return result
}
