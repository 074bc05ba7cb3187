package apischema

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hashicorp/go-hclog"
)

// LoadFunc fetches and parses a fresh schema document.
type LoadFunc func(ctx context.Context) (*Document, error)

// Provider holds the process-wide schema document and swaps it atomically
// when a reload signal names an identifier other than the loaded one.
// Readers take one snapshot at the start of a request and use it for the
// whole pipeline.
type Provider struct {
	load    LoadFunc
	logger  hclog.Logger
	current atomic.Pointer[Document]
}

// NewProvider creates a schema provider. The initial load happens on the
// first Snapshot call (or an explicit Reload).
func NewProvider(load LoadFunc, logger hclog.Logger) *Provider {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Provider{
		load:   load,
		logger: logger.Named("apischema-provider"),
	}
}

// Snapshot returns the schema document to use for one request. A non-empty
// reloadSignal differing from the loaded document's reload id forces a
// re-fetch before the request proceeds.
func (p *Provider) Snapshot(ctx context.Context, reloadSignal string) (*Document, error) {
	doc := p.current.Load()
	if doc != nil && (reloadSignal == "" || reloadSignal == doc.ReloadID()) {
		return doc, nil
	}

	if doc != nil {
		p.logger.Info("schema reload signal received",
			"loaded_reload_id", doc.ReloadID(),
			"signal", reloadSignal,
		)
	}
	return p.Reload(ctx)
}

// Reload fetches a fresh schema document, retrying transient failures with
// exponential backoff, and installs it as the current snapshot.
func (p *Provider) Reload(ctx context.Context) (*Document, error) {
	var doc *Document
	operation := func() error {
		var err error
		doc, err = p.load(ctx)
		return err
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 30 * time.Second
	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		return nil, fmt.Errorf("failed to load api schema: %w", err)
	}

	p.current.Store(doc)
	p.logger.Info("api schema loaded", "reload_id", doc.ReloadID())
	return doc, nil
}
