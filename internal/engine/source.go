package engine

import "context"

// Source produces the bytes of one job input, such as the binary list.
type Source interface {
	Named
	Read(ctx context.Context) ([]byte, error)
}
