package object

import (
	"context"
	"io"
)

// Store defines the contract for saving and retrieving binary objects by key.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}
