// Package uniq produces codes that do not collide with existing rows.
package uniq

import (
	"context"
	"fmt"
	"time"
)

const MaxAttempts = 10

// Generate calls gen until exists reports the code as free, at most
// MaxAttempts times. When every attempt collides the last generated code is
// suffixed with the current unix milliseconds.
func Generate(ctx context.Context, gen func() string, exists func(ctx context.Context, code string) (bool, error)) (string, error) {
	return generate(ctx, gen, exists, time.Now)
}

func generate(ctx context.Context, gen func() string, exists func(context.Context, string) (bool, error), now func() time.Time) (string, error) {
	var code string
	for i := 0; i < MaxAttempts; i++ {
		code = gen()
		taken, err := exists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("check code %q: %w", code, err)
		}
		if !taken {
			return code, nil
		}
	}
	return fmt.Sprintf("%s-%d", code, now().UnixMilli()), nil
}
