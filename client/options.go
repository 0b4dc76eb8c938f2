package client

import (
	"time"

	"httpwire/message"
)

type Options struct {
	Receive ReceiveOptions
	Timeout TimeoutOptions

	// Decompress applies Content-Encoding decoding to response bodies.
	Decompress bool
}

type ReceiveOptions struct {
	// MaxHeaderSize bounds the buffered header section.
	MaxHeaderSize int
	// ReadBufferSize is the size of each read from the connection.
	ReadBufferSize int

	// UseReceivedReasonPhrase keeps the reason phrase as sent by the
	// server. If false, it is replaced with the conventional phrase for
	// the status code.
	// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-4-9
	UseReceivedReasonPhrase bool
}

type TimeoutOptions struct {
	// ReadTimeout is the deadline applied to each read from the
	// connection. Zero disables it.
	ReadTimeout time.Duration
}

func DefaultOptions() Options {
	return Options{
		Receive: ReceiveOptions{
			MaxHeaderSize:  message.DefaultMaxHeaderSize,
			ReadBufferSize: 4096,
		},
		Timeout: TimeoutOptions{
			ReadTimeout: 30 * time.Second,
		},
		Decompress: true,
	}
}
