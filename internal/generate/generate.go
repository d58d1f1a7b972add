package generate

import (
	"context"
	"errors"
)

// ErrNoImage indicates the generator answered without an image payload.
var ErrNoImage = errors.New("generate: no image data returned")

// Field is one side-channel key/value returned by the generator alongside
// the image. Order matters: it is the order the upstream emitted them in.
type Field struct {
	Key   string
	Value any
}

type Request struct {
	Prompt string
}

// Response carries the base64 image payload and the remaining prediction
// fields (everything except the image bytes themselves).
type Response struct {
	ImageBase64 string
	Fields      []Field
}

// Invoker is a single outbound call to a generative-image service.
type Invoker interface {
	Invoke(ctx context.Context, req Request) (*Response, error)
}
