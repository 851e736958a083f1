// Package engine implements the cooperative scheduling core shared by all
// component instances.
//
// ARCHITECTURE:
//
// Single-Goroutine Loop:
// Every watcher run, host completion and deferred continuation executes on
// one goroutine, so instance state needs no locking. This ensures:
// - No parallel execution inside one instance
// - Reproducible ordering for golden traces
// - Simple reasoning about which flush a continuation observes
//
// Tick Flow:
// 1. Queued watchers run in id order (user watchers before render watchers)
// 2. The job FIFO drains, including jobs posted while draining
// 3. Watchers queued by those jobs wait for the next tick
//
// Host completion callbacks are the only entry from other goroutines; they
// post back onto the loop.
//
// Components:
//   - Loop: the shared queue (Post, QueueWatcher, Tick, Drain, DrainWithin, Run)
//   - Watcher: coalescing unit of reactive work
//   - RenderTask: single-producer future released exactly once
//   - AsyncLock: per-instance FIFO serializer for the updated hook
//   - Scheduler: single-flight task tracking and host call accounting
//   - Clock: monotonic ids; FlushIDGenerator: journal ids
//   - TickQuota: bounds a drain so a recursive update cannot spin forever
package engine
