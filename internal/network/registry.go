package network

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/0xPuncker/chain-gatekeeper/internal/rpc"
	"github.com/0xPuncker/chain-gatekeeper/pkg/types"
	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Notifier is told about every network added through AddCustomRPC.
type Notifier interface {
	NotifyNetworkAdded(chain types.ChainParams) error
}

// Registry keeps the custom network list, keyed by (rpcUrl, chainId).
type Registry struct {
	cache     *cache.Cache
	logger    *logrus.Logger
	notifiers []Notifier
	mu        sync.Mutex
}

type snapshot struct {
	Networks []types.ChainParams `yaml:"networks"`
}

func NewRegistry(logger *logrus.Logger) *Registry {
	return &Registry{
		cache:  cache.New(cache.NoExpiration, 0),
		logger: logger,
	}
}

// AddNotifier registers n for added networks. Call before serving.
func (r *Registry) AddNotifier(n Notifier) {
	r.notifiers = append(r.notifiers, n)
}

// CustomRPCExistsWith reports whether a network with this RPC URL and
// chain ID is registered.
func (r *Registry) CustomRPCExistsWith(rpcURL, chainID string) bool {
	_, found := r.cache.Get(types.NetworkKey(rpcURL, chainID))
	return found
}

// AddCustomRPC inserts chain unless the (rpcUrl, chainId) pair is taken.
// The insert is atomic, so of two concurrent requests for the same network
// only one succeeds.
func (r *Registry) AddCustomRPC(ctx context.Context, chain types.ChainParams) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	chain.ChainID = strings.ToLower(chain.ChainID)
	if err := r.cache.Add(chain.Key(), chain, cache.NoExpiration); err != nil {
		return rpc.Conflict(
			"Ethereum chain with the given RPC URL and chain ID already exists.",
			map[string]string{"rpcUrl": chain.RPCURL, "chainId": chain.ChainID},
		)
	}

	r.logger.WithFields(logrus.Fields{
		"chain_id":     chain.ChainID,
		"rpc_url":      chain.RPCURL,
		"network_name": chain.NetworkName,
	}).Info("Custom network added")

	for _, n := range r.notifiers {
		if err := n.NotifyNetworkAdded(chain); err != nil {
			r.logger.Warnf("Failed to send network notification: %v", err)
		}
	}
	return nil
}

// Remove deletes a network. Removing an unknown network is a no-op.
func (r *Registry) Remove(rpcURL, chainID string) bool {
	key := types.NetworkKey(rpcURL, chainID)
	if _, found := r.cache.Get(key); !found {
		return false
	}
	r.cache.Delete(key)
	return true
}

// List returns all networks ordered by name, then chain ID.
func (r *Registry) List() []types.ChainParams {
	items := r.cache.Items()
	networks := make([]types.ChainParams, 0, len(items))
	for _, item := range items {
		networks = append(networks, item.Object.(types.ChainParams))
	}

	sort.Slice(networks, func(i, j int) bool {
		if networks[i].NetworkName == networks[j].NetworkName {
			return networks[i].Key() < networks[j].Key()
		}
		return networks[i].NetworkName < networks[j].NetworkName
	})
	return networks
}

func (r *Registry) Count() int {
	return r.cache.ItemCount()
}

// Seed preloads networks, skipping ones already present. It returns how
// many were added.
func (r *Registry) Seed(networks []types.ChainParams) int {
	added := 0
	for _, n := range networks {
		n.ChainID = strings.ToLower(n.ChainID)
		if err := r.cache.Add(n.Key(), n, cache.NoExpiration); err != nil {
			r.logger.Debugf("Skipping duplicate network %s (%s)", n.NetworkName, n.ChainID)
			continue
		}
		added++
	}
	return added
}

// SaveSnapshot writes the network list to path as YAML.
func (r *Registry) SaveSnapshot(path string) error {
	if path == "" {
		return fmt.Errorf("snapshot path cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := yaml.Marshal(snapshot{Networks: r.List()})
	if err != nil {
		return fmt.Errorf("failed to marshal networks: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".networks-*.yaml")
	if err != nil {
		return fmt.Errorf("failed to create snapshot file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close snapshot: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot seeds the registry from a snapshot written by SaveSnapshot.
// A missing file is not an error.
func (r *Registry) LoadSnapshot(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var s snapshot
	if err := yaml.Unmarshal(data, &s); err != nil {
		return 0, fmt.Errorf("failed to parse snapshot: %w", err)
	}
	return r.Seed(s.Networks), nil
}
