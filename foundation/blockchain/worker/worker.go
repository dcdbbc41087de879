// Package worker implements mining and scheduled conflict resolution for
// the blockchain.
package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ardanlabs/slowchain/foundation/blockchain/database"
	"github.com/ardanlabs/slowchain/foundation/blockchain/state"
)

// DefaultResolveInterval represents the interval of asking the known peers
// for their chains and adopting a longer valid one.
const DefaultResolveInterval = time.Minute

// ErrShutdown is returned for mining requests made after shutdown started.
var ErrShutdown = errors.New("worker is shutting down")

// =============================================================================

type mineResult struct {
	block database.Block
	err   error
}

type mineRequest struct {
	ctx         context.Context
	beneficiary string
	result      chan mineResult
}

// Worker manages the mining and resolve workflows for the blockchain.
type Worker struct {
	state     *state.State
	wg        sync.WaitGroup
	once      sync.Once
	ticker    *time.Ticker
	shut      chan struct{}
	ctx       context.Context
	cancel    context.CancelFunc
	mining    chan mineRequest
	resolve   chan bool
	evHandler state.EventHandler
}

// Run creates a worker, registers the worker with the state package, and
// starts up all the background processes. A resolveInterval of zero turns
// off the scheduled resolve rounds and a negative one selects
// DefaultResolveInterval.
func Run(st *state.State, resolveInterval time.Duration, evHandler state.EventHandler) *Worker {
	ctx, cancel := context.WithCancel(context.Background())

	w := Worker{
		state:     st,
		shut:      make(chan struct{}),
		ctx:       ctx,
		cancel:    cancel,
		mining:    make(chan mineRequest),
		resolve:   make(chan bool, 1),
		evHandler: evHandler,
	}

	if w.evHandler == nil {
		w.evHandler = func(v string, args ...any) {}
	}

	if resolveInterval < 0 {
		resolveInterval = DefaultResolveInterval
	}

	if resolveInterval > 0 {
		w.ticker = time.NewTicker(resolveInterval)
	}

	// Register this worker with the state package.
	st.Worker = &w

	// Update this node before starting any support G's.
	w.runResolveOperation()

	// Load the set of operations we need to run.
	operations := []func(){
		w.miningOperations,
		w.resolveOperations,
	}

	// Set waitgroup to match the number of G's we need for the set
	// of operations we have.
	g := len(operations)
	w.wg.Add(g)

	// We don't want to return until we know all the G's are up and running.
	hasStarted := make(chan bool)

	// Start all the operational G's.
	for _, op := range operations {
		go func(op func()) {
			defer w.wg.Done()
			hasStarted <- true
			op()
		}(op)
	}

	// Wait for the G's to report they are running.
	for i := 0; i < g; i++ {
		<-hasStarted
	}

	return &w
}

// =============================================================================
// These methods implement the state.Worker interface.

// Shutdown terminates the goroutines performing work. A mining operation in
// flight is cancelled. Calling Shutdown more than once is safe.
func (w *Worker) Shutdown() {
	w.once.Do(func() {
		w.evHandler("worker: shutdown: started")
		defer w.evHandler("worker: shutdown: completed")

		if w.ticker != nil {
			w.evHandler("worker: shutdown: stop ticker")
			w.ticker.Stop()
		}

		w.evHandler("worker: shutdown: signal cancel mining")
		w.cancel()

		w.evHandler("worker: shutdown: terminate goroutines")
		close(w.shut)
		w.wg.Wait()
	})
}

// Mine queues a mining operation and waits for the mined block. Mining
// requests are served one at a time in the order received.
func (w *Worker) Mine(ctx context.Context, beneficiary string) (database.Block, error) {
	req := mineRequest{
		ctx:         ctx,
		beneficiary: beneficiary,
		result:      make(chan mineResult, 1),
	}

	select {
	case w.mining <- req:
		w.evHandler("worker: Mine: mining signaled")
	case <-ctx.Done():
		return database.Block{}, ctx.Err()
	case <-w.shut:
		return database.Block{}, ErrShutdown
	}

	// The mining G always answers a request it took, even on shutdown.
	res := <-req.result
	return res.block, res.err
}

// SignalResolve starts a resolve round. If there is already a signal
// pending in the channel, just return since a round will start.
func (w *Worker) SignalResolve() {
	select {
	case w.resolve <- true:
	default:
	}
	w.evHandler("worker: SignalResolve: resolve signaled")
}

// =============================================================================

// isShutdown is used to test if a shutdown has been signaled.
func (w *Worker) isShutdown() bool {
	select {
	case <-w.shut:
		return true
	default:
		return false
	}
}
