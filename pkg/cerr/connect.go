package cerr

import (
	"context"

	"connectrpc.com/connect"
)

// NewConvertConnectErrorInterceptor turns *Error values returned by unary
// handlers into connect errors and records the underlying cause on the
// request log. Every RPC in this module is unary, so streams pass through.
func NewConvertConnectErrorInterceptor() connect.Interceptor {
	return connect.UnaryInterceptorFunc(func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			resp, err := next(ctx, req)
			if err != nil {
				return nil, ExtractConnectError(ctx, err)
			}
			return resp, nil
		}
	})
}
