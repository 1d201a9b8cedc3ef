package object

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/tethergo-dev/tethergo/proto"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
)

// Connections are cached per worker address. Every handle and future
// pointing at one worker shares a single gRPC client connection.
var conns = struct {
	mu sync.Mutex
	m  map[string]*grpc.ClientConn
}{m: make(map[string]*grpc.ClientConn)}

func dial(addr string) (proto.ObjectServiceClient, error) {
	conns.mu.Lock()
	defer conns.mu.Unlock()

	if cc, ok := conns.m[addr]; ok {
		return proto.NewObjectServiceClient(cc), nil
	}

	cc, err := grpc.NewClient(addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(
			grpc.CallContentSubtype(proto.CodecName),
			grpc.MaxCallRecvMsgSize(proto.DefaultMaxMessageSize),
			grpc.MaxCallSendMsgSize(proto.DefaultMaxMessageSize),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrConnection, addr, err)
	}

	conns.m[addr] = cc
	return proto.NewObjectServiceClient(cc), nil
}

// fromStatus maps a transport error back onto the client-side error
// taxonomy. The worker encodes the taxonomy as gRPC status codes; anything
// transport-level becomes ErrConnection.
func fromStatus(err error, op string) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return fmt.Errorf("%w: %s: %v", ErrConnection, op, err)
	}

	switch st.Code() {
	case codes.NotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, op)
	case codes.FailedPrecondition:
		return fmt.Errorf("%w: %s", ErrUnregisteredClass, op)
	case codes.Unimplemented:
		return fmt.Errorf("%w: %s", ErrUnknownMethod, op)
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %s: %s", ErrSerialization, op, st.Message())
	case codes.Unavailable, codes.DeadlineExceeded, codes.Canceled:
		return fmt.Errorf("%w: %s: %s", ErrConnection, op, st.Message())
	default:
		return &RemoteError{Method: op, Message: st.Message()}
	}
}
