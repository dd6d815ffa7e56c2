// Package application holds the use cases; this file declares the shape event-driven
// workers depend on.
package application

import "context"

// UseCase runs one command. Transports and workers depend on this rather than on concrete use cases.
type UseCase[C any, R any] interface {
	Execute(ctx context.Context, cmd C) (R, error)
}
