package groutine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGoNamesGoroutine(t *testing.T) {
	got := make(chan string, 1)
	Go(nil, "att-reader", func(ctx context.Context) {
		got <- Name(ctx)
	})
	assert.Equal(t, "att-reader", <-got)
}

func TestGoInheritsParent(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	Go(parent, "dial", func(ctx context.Context) {
		<-ctx.Done()
		done <- ctx.Err()
	})
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestNameWithoutLabel(t *testing.T) {
	assert.Equal(t, "", Name(context.Background()))
	assert.Equal(t, "", Name(nil))
}
