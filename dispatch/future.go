// Package dispatch turns transaction submissions into futures that are collected
// into result sets, so callers can keep sending while earlier submissions are in
// flight and still inspect every outcome at the end.
package dispatch

import (
	"context"
	"fmt"

	ethcmn "github.com/ethereum/go-ethereum/common"
)

// Result is the outcome of one submission. Err is nil when the node accepted it.
type Result struct {
	Index int
	Label string
	Nonce uint64
	Hash  ethcmn.Hash
	Err   error
}

func (r Result) OK() bool {
	return r.Err == nil
}

func (r Result) String() string {
	if r.Err != nil {
		return fmt.Sprintf("%s nonce=%d err=%v", r.Label, r.Nonce, r.Err)
	}
	return fmt.Sprintf("%s nonce=%d hash=%s", r.Label, r.Nonce, r.Hash.Hex())
}

// Task is one submission. Send returns the nonce it used and the tx hash.
type Task struct {
	Label string
	Send  func(ctx context.Context) (uint64, ethcmn.Hash, error)
}

// Future is a submission that may still be in flight.
type Future struct {
	done chan struct{}
	res  Result
}

func start(ctx context.Context, index int, task Task, onDone func(Result)) *Future {
	f := &Future{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		n, hash, err := task.Send(ctx)
		f.res = Result{Index: index, Label: task.Label, Nonce: n, Hash: hash, Err: err}
		if onDone != nil {
			onDone(f.res)
		}
	}()
	return f
}

func resolved(res Result) *Future {
	f := &Future{done: make(chan struct{}), res: res}
	close(f.done)
	return f
}

// Done is closed once the submission finished.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the submission finished or ctx is done.
func (f *Future) Wait(ctx context.Context) (Result, error) {
	select {
	case <-f.done:
		return f.res, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// FirstSuccess returns the first result to complete without error. When every
// future fails it returns the last failure.
func FirstSuccess(ctx context.Context, futures []*Future) (Result, error) {
	if len(futures) == 0 {
		return Result{}, fmt.Errorf("no futures")
	}

	ch := make(chan Result, len(futures))
	for _, f := range futures {
		go func(f *Future) {
			select {
			case <-f.done:
				ch <- f.res
			case <-ctx.Done():
			}
		}(f)
	}

	var last Result
	for range futures {
		select {
		case res := <-ch:
			if res.OK() {
				return res, nil
			}
			last = res
		case <-ctx.Done():
			return Result{}, ctx.Err()
		}
	}
	return last, nil
}
