package resilience

import "context"

// Wrap returns fn guarded by the breaker, preserving its result type. The
// zero value is returned on rejection or failure.
func Wrap[T any](b *CircuitBreaker, fn func(context.Context) (T, error)) func(context.Context) (T, error) {
	return func(ctx context.Context) (T, error) {
		var out T
		err := b.Execute(ctx, func(ctx context.Context) error {
			v, err := fn(ctx)
			if err != nil {
				return err
			}
			out = v
			return nil
		})
		return out, err
	}
}
