package worker

import (
	"context"
	"time"
)

// miningOperations handles mining.
func (w *Worker) miningOperations() {
	w.evHandler("worker: miningOperations: G started")
	defer w.evHandler("worker: miningOperations: G completed")

	for {
		select {
		case req := <-w.mining:
			w.runMiningOperation(req)
		case <-w.shut:
			w.evHandler("worker: miningOperations: received shut signal")
			return
		}
	}
}

// runMiningOperation mines a new block for the request. The search stops
// when the requester goes away or the worker is shut down.
func (w *Worker) runMiningOperation(req mineRequest) {
	w.evHandler("worker: runMiningOperation: MINING: started")
	defer w.evHandler("worker: runMiningOperation: MINING: completed")

	ctx, cancel := context.WithCancel(req.ctx)
	defer cancel()

	// Cancel the search if the worker is shut down.
	stop := context.AfterFunc(w.ctx, cancel)
	defer stop()

	if w.isShutdown() {
		req.result <- mineResult{err: ErrShutdown}
		return
	}

	t := time.Now()
	block, err := w.state.MineNewBlock(ctx, req.beneficiary)
	duration := time.Since(t)

	w.evHandler("worker: runMiningOperation: MINING: mining duration[%v]", duration)

	switch {
	case err != nil && w.ctx.Err() != nil:
		w.evHandler("worker: runMiningOperation: MINING: CANCEL: shutdown")
		err = ErrShutdown
	case err != nil:
		w.evHandler("worker: runMiningOperation: MINING: ERROR: %s", err)
	}

	req.result <- mineResult{block: block, err: err}
}
