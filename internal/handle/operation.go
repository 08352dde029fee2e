package handle

import "context"

// Operation is the completion signal of an asynchronous connect or close.
// Its payload is the status the handle settled in and the failure, if any.
type Operation struct {
	done   chan struct{}
	status Status
	err    error
}

func newOperation() *Operation {
	return &Operation{done: make(chan struct{})}
}

func (o *Operation) finish(status Status, err error) {
	o.status = status
	o.err = err
	close(o.done)
}

// Done is closed once the operation has completed
func (o *Operation) Done() <-chan struct{} {
	return o.done
}

// Wait blocks until the operation completes or ctx ends.
// If ctx ends first the handle is still busy and ctx.Err() is returned.
func (o *Operation) Wait(ctx context.Context) (Status, error) {
	select {
	case <-o.done:
		return o.status, o.err
	case <-ctx.Done():
		return StatusBusy, ctx.Err()
	}
}
