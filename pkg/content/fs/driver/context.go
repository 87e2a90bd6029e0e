package driver

import (
	"context"
)

type driverContextKey struct{}

func InjectContext(ctx context.Context, d Driver) context.Context {
	return context.WithValue(ctx, driverContextKey{}, d)
}

func FromContext(ctx context.Context) (Driver, bool) {
	d, ok := ctx.Value(driverContextKey{}).(Driver)
	return d, ok
}
