// Package rpc holds the connect contracts shared by the services: message
// types, procedure names, handler constructors and clients. Messages are
// plain Go structs encoded with JSONCodec.
package rpc

import (
	"encoding/json"
	"net/http"

	"connectrpc.com/connect"
)

// JSONCodec encodes connect messages with encoding/json. It is registered
// under the "json" name so any Connect-protocol JSON client can call the services.
type JSONCodec struct{}

var _ connect.Codec = JSONCodec{}

func (JSONCodec) Name() string { return "json" }

func (JSONCodec) Marshal(msg any) ([]byte, error) {
	return json.Marshal(msg)
}

func (JSONCodec) Unmarshal(data []byte, msg any) error {
	return json.Unmarshal(data, msg)
}

func handlerOptions(opts []connect.HandlerOption) []connect.HandlerOption {
	return append([]connect.HandlerOption{connect.WithCodec(JSONCodec{})}, opts...)
}

func clientOptions(opts []connect.ClientOption) []connect.ClientOption {
	return append([]connect.ClientOption{connect.WithCodec(JSONCodec{})}, opts...)
}

// serviceMux routes a service's procedures under their shared path prefix.
func serviceMux(prefix string, handlers map[string]http.Handler) (string, http.Handler) {
	return prefix, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h, ok := handlers[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		h.ServeHTTP(w, r)
	})
}
