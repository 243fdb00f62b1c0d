// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package runctx runs servers together until a signal is received or one of them exits.
package runctx

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"
)

// DefaultNotifySignals specifies signals that would cause the context to be canceled.
var DefaultNotifySignals = []os.Signal{ //nolint:gochecknoglobals // default value
	syscall.SIGINT,
	syscall.SIGTERM,
	syscall.SIGQUIT,
}

// Group is a collection of functions that are run concurrently.
// The context passed to each function is canceled when any of the signals in NotifySignals is received,
// or when any of the functions returns.
type Group struct {
	NotifySignals []os.Signal
	funcs         []func(ctx context.Context) error
}

func NewGroup(fn ...func(ctx context.Context) error) *Group {
	return &Group{
		funcs: fn,
	}
}

func (g *Group) Add(fn func(ctx context.Context) error) {
	g.funcs = append(g.funcs, fn)
}

func (g *Group) Run() error {
	return g.RunContext(context.Background())
}

// RunContext runs all functions and waits for them to return.
// It returns the first error that is not caused by the context cancellation.
func (g *Group) RunContext(ctx context.Context) error {
	sigs := g.NotifySignals
	if len(sigs) == 0 {
		sigs = DefaultNotifySignals
	}
	ctx, stop := signal.NotifyContext(ctx, sigs...)
	defer stop()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	eg, ctx := errgroup.WithContext(ctx)
	for _, fn := range g.funcs {
		fn := fn
		eg.Go(func() error {
			defer cancel()

			err := fn(ctx)
			if err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()) {
				return nil
			}
			return err
		})
	}

	return eg.Wait()
}
