package grpcx

import (
	"context"
	"encoding/json"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"github.com/cwrk-planet/chat-service/internal/domain"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
)

const (
	mdAuthorization = "authorization"
	mdRequestID     = "x-request-id"

	healthPrefix = "/grpc.health.v1.Health/"
)

type ctxKey string

const (
	ctxKeyRequestID ctxKey = "req_id"
	ctxKeyIdentity  ctxKey = "identity"
)

type IdentityResolver interface {
	Resolve(ctx context.Context, token string) (domain.Identity, error)
}

// recovery + deadline guard (если у вызова нет deadline)
func recoveryUnaryInterceptor(timeout time.Duration) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (resp any, err error) {
		if _, ok := ctx.Deadline(); !ok {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		defer func() {
			if r := recover(); r != nil {
				slog.ErrorContext(ctx, "grpc unary panic",
					"method", info.FullMethod,
					"panic", r,
					"stack", string(debug.Stack()))
				err = status.Error(codes.Internal, "internal error")
			}
		}()

		return handler(ctx, req)
	}
}

// requestIDInterceptor берёт x-request-id из метаданных или выдаёт новый и возвращает его в заголовке ответа.
func requestIDInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		md, _ := metadata.FromIncomingContext(ctx)
		reqID := first(md.Get(mdRequestID))
		if reqID == "" {
			reqID = uuid.NewString()
		}
		_ = grpc.SetHeader(ctx, metadata.Pairs(mdRequestID, reqID))

		return handler(context.WithValue(ctx, ctxKeyRequestID, reqID), req)
	}
}

func loggingUnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (resp any, err error) {
		start := time.Now()
		reqID, _ := RequestIDFromContext(ctx)

		resp, err = handler(ctx, req)
		code := status.Code(err)

		fields := []any{
			"req_id", reqID,
			"method", info.FullMethod,
			"code", code.String(),
			"dur_ms", time.Since(start).Milliseconds(),
			"req", clip(marshalProto(req), 1024),
		}
		switch {
		case err == nil:
			slog.InfoContext(ctx, "grpc unary", fields...)
		case code == codes.Internal || code == codes.Unknown:
			slog.ErrorContext(ctx, "grpc unary", append(fields, slog.Any("err", err))...)
		default:
			slog.WarnContext(ctx, "grpc unary", append(fields, slog.Any("err", err))...)
		}
		return resp, err
	}
}

// authUnaryInterceptor требует authorization: Bearer <access token>. health открыт.
func authUnaryInterceptor(resolver IdentityResolver) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		if strings.HasPrefix(info.FullMethod, healthPrefix) {
			return handler(ctx, req)
		}

		token, err := tokenFromMD(ctx)
		if err != nil {
			return nil, err
		}
		id, err := resolver.Resolve(ctx, token)
		if err != nil {
			return nil, mapErr(err)
		}
		return handler(context.WithValue(ctx, ctxKeyIdentity, id), req)
	}
}

func RequestIDFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ctxKeyRequestID).(string)
	return v, ok
}

func IdentityFromContext(ctx context.Context) (domain.Identity, bool) {
	v, ok := ctx.Value(ctxKeyIdentity).(domain.Identity)
	return v, ok
}

// -------- helpers --------

func tokenFromMD(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", status.Error(codes.Unauthenticated, "missing metadata")
	}
	// Authorization: Bearer <access_token>
	auth := first(md.Get(mdAuthorization))
	if auth == "" {
		return "", status.Error(codes.Unauthenticated, "missing authorization")
	}
	if len(auth) <= 7 || !strings.EqualFold(auth[:7], "bearer ") {
		return "", status.Error(codes.Unauthenticated, "invalid authorization")
	}
	return strings.TrimSpace(auth[7:]), nil
}

func first(ss []string) string {
	if len(ss) == 0 {
		return ""
	}
	return ss[0]
}

func marshalProto(v any) string {
	if v == nil {
		return ""
	}
	if m, ok := v.(proto.Message); ok {
		b, err := protojson.MarshalOptions{UseProtoNames: true}.Marshal(m)
		if err == nil {
			return string(b)
		}
	}
	if b, err := json.Marshal(v); err == nil {
		return string(b)
	}
	return "<unmarshallable>"
}

func clip(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	return s[:n] + "...(truncated)"
}
