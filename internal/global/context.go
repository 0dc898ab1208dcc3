// Package global carries the process-wide context pattern used throughout
// the teacher repo: a context.Context embedding that also exposes
// Bootstrap and a Crate of long-lived services, so any function handed a
// global.Context can reach the whole dependency graph without a
// parameter explosion.
package global

import (
	"context"
	"time"

	"github.com/kestrelmedia/archivist/internal/config"
)

// Metadata is static process identification, unrelated to request data.
type Metadata struct {
	Version   string
	StartedAt time.Time
}

// Context is the process-wide context interface.
type Context interface {
	context.Context
	Metadata() Metadata
	Bootstrap() *config.Bootstrap
	Crate() *Crate
}

type gCtx struct {
	context.Context
	metadata  Metadata
	bootstrap *config.Bootstrap
	crate     *Crate
}

func (g *gCtx) Metadata() Metadata           { return g.metadata }
func (g *gCtx) Bootstrap() *config.Bootstrap { return g.bootstrap }
func (g *gCtx) Crate() *Crate                { return g.crate }

// New creates the root global.Context. The Crate starts empty; main fills
// it in once its services are constructed.
func New(ctx context.Context, bootstrap *config.Bootstrap, version string) Context {
	return &gCtx{
		Context:   ctx,
		bootstrap: bootstrap,
		metadata:  Metadata{Version: version, StartedAt: time.Now()},
		crate:     &Crate{},
	}
}

func WithCancel(ctx Context) (Context, context.CancelFunc) {
	c, cancel := context.WithCancel(ctx)
	return &gCtx{Context: c, metadata: ctx.Metadata(), bootstrap: ctx.Bootstrap(), crate: ctx.Crate()}, cancel
}

func WithDeadline(ctx Context, deadline time.Time) (Context, context.CancelFunc) {
	c, cancel := context.WithDeadline(ctx, deadline)
	return &gCtx{Context: c, metadata: ctx.Metadata(), bootstrap: ctx.Bootstrap(), crate: ctx.Crate()}, cancel
}

func WithTimeout(ctx Context, timeout time.Duration) (Context, context.CancelFunc) {
	c, cancel := context.WithTimeout(ctx, timeout)
	return &gCtx{Context: c, metadata: ctx.Metadata(), bootstrap: ctx.Bootstrap(), crate: ctx.Crate()}, cancel
}

func WithValue(ctx Context, key, value interface{}) Context {
	return &gCtx{
		Context:   context.WithValue(ctx, key, value),
		metadata:  ctx.Metadata(),
		bootstrap: ctx.Bootstrap(),
		crate:     ctx.Crate(),
	}
}
