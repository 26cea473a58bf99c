// Package analyzer implements the disassembly driver: a worklist of
// decode/function-split/string-detect tasks fanned out over a bounded
// worker pool, propagating through branches and calls by walking each
// instruction's semantic IR for assignments into the PC register.
//
// The worker pool follows the teacher's preference for explicit,
// context-cancellable concurrency (internal/vm's goroutine-per-device
// model) but is built on golang.org/x/sync/errgroup rather than hand-rolled
// WaitGroups, since errgroup suits a dynamically growing, self-resubmitting
// worklist and propagates the first error and cancellation. The cap is a
// semaphore channel acquired inside each goroutine, not errgroup's SetLimit,
// so a running item can submit follow-up items without blocking.
package analyzer

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/medusa-project/medusa/internal/addr"
	"github.com/medusa-project/medusa/internal/arch"
	"github.com/medusa-project/medusa/internal/doc"
	"github.com/medusa-project/medusa/internal/errs"
	"github.com/medusa-project/medusa/internal/log"
)

// minStringChars is the Analyzer's own threshold for deciding whether a
// printable run is worth promoting to a String multi-cell; doc.MakeString
// has no minimum of its own (see internal/doc/string.go).
const minStringChars = 4

// DefaultWorkers mirrors the source's min(4, hw_threads) default.
func DefaultWorkers() int {
	return min(4, runtime.NumCPU())
}

// Analyzer drives disassembly of a Document under one Architecture.
type Analyzer struct {
	Doc     *doc.Document
	Arch    arch.Architecture
	Workers int
	Logger  *log.Logger

	mu      sync.Mutex
	visited map[string]bool
}

// New creates an Analyzer. If workers <= 0, DefaultWorkers() is used.
func New(d *doc.Document, a arch.Architecture, workers int) *Analyzer {
	if workers <= 0 {
		workers = DefaultWorkers()
	}

	return &Analyzer{
		Doc:     d,
		Arch:    a,
		Workers: workers,
		Logger:  log.DefaultLogger(),
		visited: make(map[string]bool),
	}
}

// markVisited reports whether (kind, key) was already visited, marking it
// visited as a side effect; each work item kind has its own namespace so a
// DisasmBB and a MakeFunc can both target the same address.
func (a *Analyzer) markVisited(key addr.Address, kind string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	full := fmt.Sprintf("%s:%s", kind, key)

	if a.visited[full] {
		return true
	}

	a.visited[full] = true

	return false
}

// Run disassembles starting at entry under mode, blocking until the
// worklist drains or ctx is canceled. It returns the first error
// encountered by any work item, or nil.
func (a *Analyzer) Run(ctx context.Context, entry addr.Address, mode arch.Mode) error {
	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, a.Workers)

	var submit func(item workItem)

	submit = func(item workItem) {
		g.Go(func() error {
			sem <- struct{}{}
			defer func() { <-sem }()

			if err := gctx.Err(); err != nil {
				return errs.Wrap("analyzer.Run", errs.Canceled, item.addr(), err)
			}

			return a.process(gctx, item, submit)
		})
	}

	submit(disasmBB{Addr: entry, Mode: mode})

	return g.Wait()
}

type workItem interface {
	addr() addr.Address
}

type disasmBB struct {
	Addr addr.Address
	Mode arch.Mode
}

func (w disasmBB) addr() addr.Address { return w.Addr }

type makeFunc struct{ Addr addr.Address }

func (w makeFunc) addr() addr.Address { return w.Addr }

type makeStringItem struct {
	Addr addr.Address
	Enc  doc.Encoding
}

func (w makeStringItem) addr() addr.Address { return w.Addr }

func (a *Analyzer) process(ctx context.Context, item workItem, submit func(workItem)) error {
	switch w := item.(type) {
	case disasmBB:
		return a.disasmBB(w, submit)
	case makeFunc:
		return a.makeFunc(w)
	case makeStringItem:
		return a.makeStringItem(w)
	default:
		return fmt.Errorf("analyzer: unknown work item %T", item)
	}
}
