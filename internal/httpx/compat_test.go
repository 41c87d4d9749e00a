package httpx

import (
	"context"
	"testing"
)

// testContext mirrors testing.T.Context (Go 1.24+): canceled when the test ends.
func testContext(t testing.TB) context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}
