package embedding

import (
	"context"
	"errors"
	"testing"
)

func TestCached(t *testing.T) {
	p := &flakyProvider{}
	c := NewCached(p, 0)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := c.Embed(ctx, "attention"); err != nil {
			t.Fatalf("Embed() error = %v", err)
		}
	}
	if p.calls != 1 {
		t.Errorf("provider calls = %d, want 1", p.calls)
	}

	c.Embed(ctx, "transformer")
	if c.Len() != 2 {
		t.Errorf("Len() = %d, want 2", c.Len())
	}
	if c.ModelName() != "flaky" || c.Dimensions() != 2 {
		t.Error("Cached should report the wrapped provider's model")
	}
}

func TestCached_ErrorsNotCached(t *testing.T) {
	p := &flakyProvider{failures: 1, err: errors.New("down")}
	c := NewCached(p, 0)
	ctx := context.Background()

	if _, err := c.Embed(ctx, "attention"); err == nil {
		t.Fatal("expected first call to fail")
	}
	if _, err := c.Embed(ctx, "attention"); err != nil {
		t.Fatalf("second call should reach the provider again: %v", err)
	}
	if p.calls != 2 {
		t.Errorf("provider calls = %d, want 2", p.calls)
	}
}
