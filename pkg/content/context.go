package content

import (
	"context"
	"fmt"
)

type contextFor[T any] struct{}

type contextKey[T any] struct{}

func (contextFor[T]) Inject(ctx context.Context, v T) context.Context {
	return context.WithValue(ctx, contextKey[T]{}, v)
}

func (contextFor[T]) MayFrom(ctx context.Context) (T, bool) {
	v, ok := ctx.Value(contextKey[T]{}).(T)
	return v, ok
}

func (c contextFor[T]) From(ctx context.Context) T {
	v, ok := c.MayFrom(ctx)
	if !ok {
		panic(fmt.Sprintf("%T not found in context", v))
	}
	return v
}
