// Package fetch provides HTTP fetch functions bounded by a timeout.
package fetch

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"
)

var ErrInvalidTimeout = errors.New("must specify positive integer timeout")

// Func performs req and returns its response. The timeout covers the wait
// for the response headers; the body can be read after that.
type Func func(req *http.Request) (*http.Response, error)

var (
	fetchers = cache.New(cache.NoExpiration, 0)
	client   = http.DefaultClient
)

// GetFetchWithTimeout returns the fetch function for timeoutMS
// milliseconds. Functions are shared per timeout value.
func GetFetchWithTimeout(timeoutMS int) (Func, error) {
	if timeoutMS < 1 {
		return nil, ErrInvalidTimeout
	}

	key := strconv.Itoa(timeoutMS)
	if f, found := fetchers.Get(key); found {
		return f.(Func), nil
	}

	f := newFetch(client, time.Duration(timeoutMS)*time.Millisecond)
	if err := fetchers.Add(key, f, cache.NoExpiration); err != nil {
		// Another caller stored one first.
		if existing, found := fetchers.Get(key); found {
			return existing.(Func), nil
		}
	}
	return f, nil
}

func newFetch(c *http.Client, timeout time.Duration) Func {
	return func(req *http.Request) (*http.Response, error) {
		ctx, cancel := context.WithCancel(req.Context())
		timer := time.AfterFunc(timeout, cancel)

		resp, err := c.Do(req.WithContext(ctx))
		timer.Stop()
		if err != nil {
			cancel()
			return nil, err
		}

		resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
		return resp, nil
	}
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelOnClose) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}
