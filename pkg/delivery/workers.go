// Copyright (c) 2025 The centralised-logging Authors
//
// This file is part of centralised-logging.
//
// centralised-logging is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact the centralised-logging maintainers for commercial licensing options.

package delivery

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/jtp-saini-harmit/centralised-logging/pkg/adapters"
	"github.com/jtp-saini-harmit/centralised-logging/pkg/notification"
	"github.com/jtp-saini-harmit/centralised-logging/pkg/rename"
)

// ErrPoolShuttingDown is returned by Submit after Shutdown.
var ErrPoolShuttingDown = errors.New("worker pool is shutting down")

// WorkItem is one object of a batch, tagged with its position.
type WorkItem struct {
	Index int
	Ref   notification.ObjectRef
}

// WorkResult carries the outcome for the item at Index.
type WorkResult struct {
	Index   int
	Outcome rename.Outcome
}

// WorkerPool runs rename work on a fixed number of goroutines.
type WorkerPool struct {
	workerCount int
	workQueue   chan WorkItem
	resultQueue chan WorkResult
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	logger      adapters.Logger

	shuttingDown atomic.Bool
}

// WorkerPoolConfig contains configuration for the worker pool.
type WorkerPoolConfig struct {
	WorkerCount int
	QueueSize   int
	Logger      adapters.Logger
}

// NewWorkerPool creates a pool whose workers stop when parent is cancelled.
func NewWorkerPool(parent context.Context, config WorkerPoolConfig) *WorkerPool {
	if config.WorkerCount <= 0 {
		config.WorkerCount = DefaultConcurrency
	}
	if config.QueueSize <= 0 {
		config.QueueSize = 100
	}
	if config.Logger == nil {
		config.Logger = adapters.NewNoOpLogger()
	}

	ctx, cancel := context.WithCancel(parent)

	return &WorkerPool{
		workerCount: config.WorkerCount,
		workQueue:   make(chan WorkItem, config.QueueSize),
		resultQueue: make(chan WorkResult, config.QueueSize),
		ctx:         ctx,
		cancel:      cancel,
		logger:      config.Logger,
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(processor func(context.Context, WorkItem) WorkResult) {
	for i := 0; i < wp.workerCount; i++ {
		wp.wg.Add(1)
		go wp.worker(i, processor)
	}
}

func (wp *WorkerPool) worker(id int, processor func(context.Context, WorkItem) WorkResult) {
	defer wp.wg.Done()

	for {
		select {
		case <-wp.ctx.Done():
			wp.logger.Debug(wp.ctx, "worker stopping on cancellation",
				adapters.Field{Key: "worker_id", Value: id})
			return

		case item, ok := <-wp.workQueue:
			if !ok {
				return
			}

			result := processor(wp.ctx, item)

			// A finished result is kept even when cancellation races the send.
			select {
			case wp.resultQueue <- result:
				continue
			default:
			}
			select {
			case wp.resultQueue <- result:
			case <-wp.ctx.Done():
				return
			}
		}
	}
}

// Submit adds a work item to the queue.
func (wp *WorkerPool) Submit(item WorkItem) error {
	if wp.shuttingDown.Load() {
		return ErrPoolShuttingDown
	}

	select {
	case <-wp.ctx.Done():
		return wp.ctx.Err()
	case wp.workQueue <- item:
		return nil
	}
}

// Results returns the result channel. It is closed by Shutdown.
func (wp *WorkerPool) Results() <-chan WorkResult {
	return wp.resultQueue
}

// Shutdown closes the work queue, waits for queued items to finish and
// closes the result channel. Results already produced stay readable.
func (wp *WorkerPool) Shutdown() {
	wp.shuttingDown.Store(true)
	close(wp.workQueue)
	wp.wg.Wait()
	close(wp.resultQueue)
	wp.cancel()
}
