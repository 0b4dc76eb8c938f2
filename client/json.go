package client

import (
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"

	"httpwire/message"
	"httpwire/request"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// JSONBody marshals v into the builder's body and sets the Content-Type.
func JSONBody(b *request.Builder, v any) (*request.Builder, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "marshaling body")
	}
	return b.Header("Content-Type", "application/json").Body(body), nil
}

// DecodeJSON unmarshals the response body into v.
func DecodeJSON(res *message.Response, v any) error {
	return errors.Wrap(json.Unmarshal(res.Body, v), "unmarshaling body")
}
