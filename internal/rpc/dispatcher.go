package rpc

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// MethodFunc implements a single RPC method. A nil error means success.
type MethodFunc func(ctx context.Context, origin string, req *Request) error

// Dispatcher routes requests to registered methods.
type Dispatcher struct {
	logger  *logrus.Logger
	mu      sync.RWMutex
	methods map[string]MethodFunc
}

func NewDispatcher(logger *logrus.Logger) *Dispatcher {
	return &Dispatcher{
		logger:  logger,
		methods: make(map[string]MethodFunc),
	}
}

func (d *Dispatcher) Register(method string, fn MethodFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.methods[method] = fn
}

func (d *Dispatcher) Methods() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	names := make([]string, 0, len(d.methods))
	for name := range d.methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dispatch runs req and returns its single response.
func (d *Dispatcher) Dispatch(ctx context.Context, origin string, req *Request) Response {
	res := NewResponder(req.ID)
	start := time.Now()

	d.serve(ctx, origin, req, res)

	resp, _ := res.Response()
	fields := logrus.Fields{
		"method":   req.Method,
		"origin":   origin,
		"duration": time.Since(start).String(),
	}
	if resp.Error != nil {
		fields["code"] = resp.Error.Code
		d.logger.WithFields(fields).Warnf("RPC request failed: %s", resp.Error.Message)
	} else {
		d.logger.WithFields(fields).Info("RPC request succeeded")
	}
	return resp
}

func (d *Dispatcher) serve(ctx context.Context, origin string, req *Request, res *Responder) {
	if req.JSONRPC != "" && req.JSONRPC != Version {
		res.End(InvalidRequest(fmt.Sprintf("unsupported jsonrpc version %q", req.JSONRPC)))
		return
	}
	if req.Method == "" {
		res.End(InvalidRequest("missing method"))
		return
	}

	d.mu.RLock()
	fn, ok := d.methods[req.Method]
	d.mu.RUnlock()
	if !ok {
		res.End(MethodNotFound(req.Method))
		return
	}

	defer func() {
		if p := recover(); p != nil {
			d.logger.WithField("method", req.Method).Errorf("RPC method panicked: %v", p)
			res.End(Internal("internal error"))
		}
	}()

	res.End(fn(ctx, origin, req))
}
