package rpc

import (
	"encoding/json"
	"sync"
)

// Responder carries exactly one outcome back to the caller. The first call
// to End wins; later calls are dropped.
type Responder struct {
	mu    sync.Mutex
	ended bool
	done  chan struct{}
	resp  Response
}

func NewResponder(id json.RawMessage) *Responder {
	return &Responder{
		done: make(chan struct{}),
		resp: Response{ID: id},
	}
}

// End finishes the request. A nil err is a success with a null result.
// It returns false if the request had already ended.
func (r *Responder) End(err error) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ended {
		return false
	}
	r.ended = true

	if err != nil {
		r.resp.Error = AsError(err)
	}
	close(r.done)
	return true
}

// Done is closed once End has been called.
func (r *Responder) Done() <-chan struct{} {
	return r.done
}

// Response returns the terminal response and whether it has been set.
func (r *Responder) Response() (Response, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resp, r.ended
}
