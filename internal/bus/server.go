package bus

import (
	"context"
	"net"

	"github.com/Individual-1/notifier/internal/common"
	"github.com/Individual-1/notifier/internal/logging"
	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const (
	serviceName    = "notifier.bus.Bus"
	DispatchMethod = "/" + serviceName + "/Dispatch"
)

// Handler answers envelopes; *Dispatcher implements it.
type Handler interface {
	Dispatch(ctx context.Context, env *Envelope) *Reply
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*Handler)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Dispatch", Handler: dispatchHandler},
	},
	Metadata: "bus",
}

func dispatchHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(Envelope)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(Handler).Dispatch(ctx, in), nil
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: DispatchMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(Handler).Dispatch(ctx, req.(*Envelope)), nil
	}
	return interceptor(ctx, in, info, handler)
}

type Server struct {
	address  string
	handler  Handler
	sessions *Sessions
	logger   logging.Logger
}

func NewServer(address string, h Handler, sessions *Sessions, l logging.Logger) *Server {
	return &Server{
		address:  address,
		handler:  h,
		sessions: sessions,
		logger:   l.With("module", "bus_server"),
	}
}

func (s *Server) newGRPCServer() *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.requestIDInterceptor, s.sessionTokenInterceptor))
	srv.RegisterService(&serviceDesc, s.handler)
	return srv
}

// Run listens on the configured address until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis and stops gracefully when ctx is done.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	srv := s.newGRPCServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping bus server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting bus server", "address", lis.Addr().String())

	if err := srv.Serve(lis); err != nil {
		return err
	}
	return nil
}

func firstValue(ctx context.Context, key string) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(key); len(values) > 0 {
			return values[0]
		}
	}
	return ""
}

func (s *Server) requestIDInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	id := firstValue(ctx, common.RequestIDHeaderName)
	if id == "" {
		id = uuid.NewString()
	}
	if env, ok := req.(*Envelope); ok {
		s.logger.Debug(ctx, "envelope", "request_id", id, "action", env.Action.String())
	}
	return handler(WithRequestID(ctx, id), req)
}

type requestIDKey struct{}

// WithRequestID returns ctx carrying the envelope's correlation id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the correlation id carried by ctx, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func (s *Server) sessionTokenInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	token := firstValue(ctx, common.SessionTokenHeaderName)
	if token == "" {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}
	if err := s.sessions.Verify(token); err != nil {
		s.logger.Warn(ctx, "rejected session token", "error", err)
		return nil, status.Error(codes.Unauthenticated, "invalid token")
	}
	return handler(ctx, req)
}
