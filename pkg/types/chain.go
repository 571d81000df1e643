package types

import "strings"

// NetworkRegistry is the read side of the custom network store.
type NetworkRegistry interface {
	List() []ChainParams
	Count() int
	CustomRPCExistsWith(rpcURL, chainID string) bool
}

// ChainParams is a normalized custom network definition. It is the only
// form handed to approval and storage.
type ChainParams struct {
	ChainID          string  `json:"chainId" yaml:"chain_id"`
	RPCURL           string  `json:"rpcUrl" yaml:"rpc_url"`
	NetworkName      string  `json:"networkName" yaml:"network_name"`
	Ticker           string  `json:"ticker" yaml:"ticker"`
	BlockExplorerURL *string `json:"blockExplorerUrl" yaml:"block_explorer_url,omitempty"`
}

// Key identifies a network by its RPC endpoint and chain ID.
func (c ChainParams) Key() string {
	return NetworkKey(c.RPCURL, c.ChainID)
}

// Explorer returns the block explorer URL or an empty string.
func (c ChainParams) Explorer() string {
	if c.BlockExplorerURL == nil {
		return ""
	}
	return *c.BlockExplorerURL
}

// NetworkKey builds the storage key for an (rpcUrl, chainId) pair.
func NetworkKey(rpcURL, chainID string) string {
	return strings.ToLower(chainID) + "|" + rpcURL
}
