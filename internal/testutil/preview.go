package testutil

import (
	"context"
	"fmt"
	"sync"

	"catalog-admin/internal/asset"
)

// GatedPreviewGenerator blocks each preview until the test releases it, so
// tests can choose the order in which previews complete.
type GatedPreviewGenerator struct {
	mu      sync.Mutex
	gates   map[string]chan struct{}
	fail    map[string]error
	started chan string
}

// NewGatedPreviewGenerator creates a generator whose previews all wait for Release.
func NewGatedPreviewGenerator() *GatedPreviewGenerator {
	return &GatedPreviewGenerator{
		gates:   make(map[string]chan struct{}),
		fail:    make(map[string]error),
		started: make(chan string, 64),
	}
}

func (g *GatedPreviewGenerator) gate(name string) chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch, ok := g.gates[name]
	if !ok {
		ch = make(chan struct{})
		g.gates[name] = ch
	}
	return ch
}

// Release lets the preview for name complete.
func (g *GatedPreviewGenerator) Release(name string) {
	close(g.gate(name))
}

// Fail makes the preview for name fail with err once released.
func (g *GatedPreviewGenerator) Fail(name string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.fail[name] = err
}

// Started receives the name of each file whose preview has begun.
func (g *GatedPreviewGenerator) Started() <-chan string {
	return g.started
}

func (g *GatedPreviewGenerator) Generate(ctx context.Context, c asset.Candidate) (string, error) {
	g.started <- c.Name
	select {
	case <-g.gate(c.Name):
	case <-ctx.Done():
		return "", ctx.Err()
	}

	g.mu.Lock()
	err := g.fail[c.Name]
	g.mu.Unlock()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("preview:%s", c.Name), nil
}

// InstantPreviewGenerator resolves every preview immediately.
type InstantPreviewGenerator struct{}

func (InstantPreviewGenerator) Generate(_ context.Context, c asset.Candidate) (string, error) {
	return fmt.Sprintf("preview:%s", c.Name), nil
}

// Image returns an in-memory PNG candidate of the given size.
func Image(name string, size int) asset.Candidate {
	return asset.FromBytes(name, "image/png", make([]byte, size))
}
