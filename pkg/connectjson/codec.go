// Package connectjson lets connect handlers exchange plain Go structs as JSON.
package connectjson

import (
	"context"
	"encoding/json"
	"net/http"

	"connectrpc.com/connect"
)

type codec struct{}

func (codec) Name() string { return "json" }

func (codec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (codec) Unmarshal(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

// Codec replaces connect's protobuf-only JSON codec.
func Codec() connect.Codec {
	return codec{}
}

// Route is a procedure path and its handler, ready for http.ServeMux.Handle.
type Route struct {
	Procedure string
	Handler   http.Handler
}

// Unary builds a connect unary handler over plain request and response types.
func Unary[Req, Res any](procedure string, fn func(context.Context, *Req) (*Res, error), opts ...connect.HandlerOption) Route {
	opts = append([]connect.HandlerOption{connect.WithCodec(codec{})}, opts...)
	h := connect.NewUnaryHandler(procedure, func(ctx context.Context, req *connect.Request[Req]) (*connect.Response[Res], error) {
		res, err := fn(ctx, req.Msg)
		if err != nil {
			return nil, err
		}
		return connect.NewResponse(res), nil
	}, opts...)
	return Route{Procedure: procedure, Handler: h}
}

// Mount registers routes on mux.
func Mount(mux *http.ServeMux, routes ...Route) {
	for _, r := range routes {
		mux.Handle(r.Procedure, r.Handler)
	}
}

// NewClient builds a unary client for the same plain types, used by the CLI
// and tests.
func NewClient[Req, Res any](httpClient connect.HTTPClient, baseURL, procedure string, opts ...connect.ClientOption) *connect.Client[Req, Res] {
	opts = append([]connect.ClientOption{connect.WithCodec(codec{})}, opts...)
	return connect.NewClient[Req, Res](httpClient, baseURL+procedure, opts...)
}
