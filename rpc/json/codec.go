package json

import (
	"net/http"

	gorillarpc "github.com/gorilla/rpc/v2"
	"github.com/gorilla/rpc/v2/json2"
)

// MapperCodec is a JSON-RPC 2.0 codec that resolves short method aliases
// (e.g. "execute") to their service methods (e.g. "fastlane.Execute").
type MapperCodec struct {
	aliases map[string]string
	codec   *json2.Codec
}

// NewMapperCodec returns a codec resolving the given aliases.
func NewMapperCodec(aliases map[string]string) *MapperCodec {
	return &MapperCodec{
		aliases: aliases,
		codec:   json2.NewCodec(),
	}
}

// NewRequest implements gorillarpc.Codec.
func (m *MapperCodec) NewRequest(request *http.Request) gorillarpc.CodecRequest {
	return &MapperCodecRequest{
		CodecRequest: m.codec.NewRequest(request),
		aliases:      m.aliases,
	}
}

// MapperCodecRequest resolves aliases before method lookup.
type MapperCodecRequest struct {
	gorillarpc.CodecRequest
	aliases map[string]string
}

// Method returns the service method the request names, resolving aliases.
func (m *MapperCodecRequest) Method() (string, error) {
	raw, err := m.CodecRequest.Method()
	if err != nil {
		return "", err
	}

	alias, ok := m.aliases[raw]
	if ok {
		return alias, nil
	}
	return raw, nil
}
