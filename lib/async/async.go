// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package async runs tasks on bounded worker pools with scoped,
// fail-fast task groups.
//
// A [Pool] limits how many tasks run on their own goroutine at once.
// A [Group] collects tasks started from one scope: [Group.Run] hands a
// task to a free pool slot, or runs it inline when the pool is full,
// so a task may start nested groups on the same pool without
// deadlocking. [Group.Wait] returns the first error, and that error
// cancels the context every later task in the group receives.
package async

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Pool bounds the number of concurrently running pooled tasks.
type Pool struct {
	slots *semaphore.Weighted
	size  int
}

// NewPool returns a pool with size slots. A size below one means
// runtime.NumCPU().
func NewPool(size int) *Pool {
	if size < 1 {
		size = runtime.NumCPU()
	}
	return &Pool{slots: semaphore.NewWeighted(int64(size)), size: size}
}

// Size returns the number of slots.
func (p *Pool) Size() int { return p.size }

// Group is a set of tasks whose completion is awaited together.
type Group struct {
	pool  *Pool
	group *errgroup.Group
	ctx   context.Context
}

// Group starts a task group. The returned context is cancelled when
// any task fails or when Wait returns.
func (p *Pool) Group(ctx context.Context) (*Group, context.Context) {
	group, groupCtx := errgroup.WithContext(ctx)
	return &Group{pool: p, group: group, ctx: groupCtx}, groupCtx
}

// Run starts task. Once the group has failed, further tasks are not
// started.
func (g *Group) Run(task func(ctx context.Context) error) {
	if g.ctx.Err() != nil {
		return
	}
	if g.pool.slots.TryAcquire(1) {
		g.group.Go(func() error {
			defer g.pool.slots.Release(1)
			return task(g.ctx)
		})
		return
	}
	if err := task(g.ctx); err != nil {
		g.group.Go(func() error { return err })
	}
}

// Wait blocks until every started task has returned and reports the
// first error.
func (g *Group) Wait() error {
	return g.group.Wait()
}
