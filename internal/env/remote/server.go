package remote

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/danielpatrickdp/safe-marl/go-trainer/internal/env"
	"github.com/danielpatrickdp/safe-marl/go-trainer/internal/marl"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// #region service
// handler is the server-side contract the service descriptor dispatches to.
type handler interface {
	handle(ctx context.Context, method string, in *structpb.Struct) (*structpb.Struct, error)
}

// service serialises access to one environment. gRPC may call it concurrently,
// the environment itself is single-stream.
type service struct {
	mu  sync.Mutex
	env env.Environment
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*handler)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: methodReset, Handler: unary(methodReset)},
		{MethodName: methodStep, Handler: unary(methodStep)},
		{MethodName: methodParams, Handler: unary(methodParams)},
		{MethodName: methodClose, Handler: unary(methodClose)},
	},
	Metadata: "safemarl/environment",
}

// Register exposes e on s under the safemarl.Environment service.
func Register(s *grpc.Server, e env.Environment) {
	s.RegisterService(&serviceDesc, &service{env: e})
}

func unary(method string) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		h := srv.(handler)
		if interceptor == nil {
			return h.handle(ctx, method, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(method)}
		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			return h.handle(ctx, method, req.(*structpb.Struct))
		})
	}
}

// #endregion service

// #region handle
func (s *service) handle(ctx context.Context, method string, in *structpb.Struct) (*structpb.Struct, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch method {
	case methodParams:
		return encodeParams(s.env.Params()), nil

	case methodReset:
		st, err := s.env.Reset(ctx)
		if err != nil {
			return nil, toStatus(err)
		}
		return &structpb.Struct{Fields: map[string]*structpb.Value{
			"state":  encodeMatrix(st),
			"agents": encodeAgents(s.env.Agents()),
		}}, nil

	case methodStep:
		v, err := field(in, "action")
		if err != nil {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		action, err := decodeMatrix(v)
		if err != nil {
			return nil, status.Error(codes.InvalidArgument, fmt.Sprintf("action: %v", err))
		}
		res, err := s.env.Step(ctx, action)
		if err != nil {
			return nil, toStatus(err)
		}
		out, err := encodeStep(res, s.env.Agents())
		if err != nil {
			return nil, status.Error(codes.Internal, err.Error())
		}
		return out, nil

	case methodClose:
		if err := s.env.Close(); err != nil {
			return nil, toStatus(err)
		}
		log.Printf("[ENV] remote client closed environment")
		return &structpb.Struct{}, nil
	}
	return nil, status.Errorf(codes.Unimplemented, "unknown method %s", method)
}

func toStatus(err error) error {
	if errors.Is(err, marl.ErrShapeMismatch) {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}

// #endregion handle
