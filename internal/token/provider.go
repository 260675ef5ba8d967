package token

import "sync/atomic"

// Provider owns the current registry. Refresh rebuilds from configuration and
// swaps the whole value behind an atomic pointer; readers holding the old
// registry keep a consistent view.
type Provider struct {
	build func() (*Registry, error)
	cur   atomic.Pointer[Registry]
}

// NewProvider builds the initial registry eagerly so startup fails fast on
// bad configuration.
func NewProvider(build func() (*Registry, error)) (*Provider, error) {
	reg, err := build()
	if err != nil {
		return nil, err
	}
	p := &Provider{build: build}
	p.cur.Store(reg)
	return p, nil
}

func (p *Provider) Current() *Registry { return p.cur.Load() }

// Refresh rebuilds the registry. On failure the previous registry stays in
// place.
func (p *Provider) Refresh() error {
	reg, err := p.build()
	if err != nil {
		return err
	}
	p.cur.Store(reg)
	return nil
}
