// Package poller checks the stored networks in the background. Each RPC
// endpoint is asked for eth_chainId and the answer is compared with the
// chain ID it was registered under.
package poller

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/0xPuncker/chain-gatekeeper/internal/fetch"
	"github.com/0xPuncker/chain-gatekeeper/pkg/types"
	"github.com/sirupsen/logrus"
)

const (
	StatusHealthy     = "healthy"
	StatusUnreachable = "unreachable"
	StatusMismatch    = "chain_id_mismatch"
)

// Health is the last check result for one network.
type Health struct {
	ChainID     string    `json:"chainId"`
	RPCURL      string    `json:"rpcUrl"`
	NetworkName string    `json:"networkName"`
	Status      string    `json:"status"`
	Reported    string    `json:"reportedChainId,omitempty"`
	Error       string    `json:"error,omitempty"`
	CheckedAt   time.Time `json:"checkedAt"`
}

type Poller struct {
	networks  types.NetworkRegistry
	logger    *logrus.Logger
	interval  time.Duration
	timeoutMS int
	wg        sync.WaitGroup

	lifeMu sync.Mutex
	cancel context.CancelFunc

	mu      sync.RWMutex
	results map[string]Health
}

func New(networks types.NetworkRegistry, logger *logrus.Logger, interval time.Duration, timeoutMS int) *Poller {
	return &Poller{
		networks:  networks,
		logger:    logger,
		interval:  interval,
		timeoutMS: timeoutMS,
		results:   make(map[string]Health),
	}
}

// Start launches the poll loop and returns immediately. The loop checks
// once, then on every interval until ctx is done or Stop is called.
func (p *Poller) Start(ctx context.Context) {
	p.lifeMu.Lock()
	defer p.lifeMu.Unlock()
	if p.cancel != nil {
		return
	}

	ctx, p.cancel = context.WithCancel(ctx)
	p.wg.Add(1)
	go p.run(ctx)
}

func (p *Poller) run(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.update(ctx)

	for {
		select {
		case <-ticker.C:
			p.update(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Stop cancels the running cycle, including any request in flight, and
// waits for the loop to exit.
func (p *Poller) Stop() {
	p.lifeMu.Lock()
	if p.cancel != nil {
		p.cancel()
	}
	p.lifeMu.Unlock()
	p.wg.Wait()
}

// Results returns the latest check results sorted by network name.
func (p *Poller) Results() []Health {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]Health, 0, len(p.results))
	for _, h := range p.results {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].NetworkName != out[j].NetworkName {
			return out[i].NetworkName < out[j].NetworkName
		}
		return out[i].RPCURL < out[j].RPCURL
	})
	return out
}

func (p *Poller) update(ctx context.Context) {
	networks := p.networks.List()
	p.logger.Debugf("Checking %d networks", len(networks))

	doFetch, err := fetch.GetFetchWithTimeout(p.timeoutMS)
	if err != nil {
		p.logger.Errorf("Failed to create fetch: %v", err)
		return
	}

	seen := make(map[string]bool, len(networks))
	for _, network := range networks {
		if ctx.Err() != nil {
			p.logger.Debug("Health check cycle cancelled")
			return
		}
		health := p.check(ctx, doFetch, network)
		if ctx.Err() != nil {
			return
		}
		seen[network.Key()] = true

		p.mu.Lock()
		p.results[network.Key()] = health
		p.mu.Unlock()

		fields := logrus.Fields{
			"network":  network.NetworkName,
			"chain_id": network.ChainID,
			"rpc_url":  network.RPCURL,
		}
		switch health.Status {
		case StatusHealthy:
			p.logger.WithFields(fields).Debug("Network healthy")
		case StatusMismatch:
			p.logger.WithFields(fields).Warnf("Endpoint reports chain ID %s", health.Reported)
		default:
			p.logger.WithFields(fields).Warnf("Endpoint unreachable: %s", health.Error)
		}
	}

	p.mu.Lock()
	for key := range p.results {
		if !seen[key] {
			delete(p.results, key)
		}
	}
	p.mu.Unlock()
}

type chainIDResponse struct {
	Result string `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (p *Poller) check(ctx context.Context, doFetch fetch.Func, network types.ChainParams) Health {
	health := Health{
		ChainID:     network.ChainID,
		RPCURL:      network.RPCURL,
		NetworkName: network.NetworkName,
		CheckedAt:   time.Now(),
	}

	reported, err := queryChainID(ctx, doFetch, network.RPCURL)
	if err != nil {
		health.Status = StatusUnreachable
		health.Error = err.Error()
		return health
	}

	health.Reported = reported
	if strings.EqualFold(reported, network.ChainID) {
		health.Status = StatusHealthy
	} else {
		health.Status = StatusMismatch
	}
	return health
}

func queryChainID(ctx context.Context, doFetch fetch.Func, rpcURL string) (string, error) {
	body := []byte(`{"jsonrpc":"2.0","id":1,"method":"eth_chainId","params":[]}`)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rpcURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := doFetch(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var decoded chainIDResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if decoded.Error != nil {
		return "", fmt.Errorf("rpc error %d: %s", decoded.Error.Code, decoded.Error.Message)
	}
	if decoded.Result == "" {
		return "", fmt.Errorf("empty eth_chainId result")
	}
	return decoded.Result, nil
}
