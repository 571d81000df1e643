// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"encoding/json"
	"io"

	"github.com/0xPuncker/chain-gatekeeper/pkg/types"
	"github.com/sirupsen/logrus"
)

// Logger returns a logger that discards its output.
func Logger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// Chain builds normalized params for a test network with an explorer URL
// derived from name.
func Chain(name, chainID, rpcURL string) types.ChainParams {
	explorer := "https://explorer." + name + ".example"
	return types.ChainParams{
		ChainID:          chainID,
		RPCURL:           rpcURL,
		NetworkName:      name,
		Ticker:           "TST",
		BlockExplorerURL: &explorer,
	}
}

// AddChainParams encodes fields as the single positional parameter of a
// wallet_addEthereumChain call.
func AddChainParams(fields map[string]interface{}) []json.RawMessage {
	raw, err := json.Marshal(fields)
	if err != nil {
		panic(err)
	}
	return []json.RawMessage{raw}
}

// AddChainRequest is a complete JSON-RPC wallet_addEthereumChain body.
func AddChainRequest(id int, fields map[string]interface{}) string {
	body, err := json.Marshal(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      id,
		"method":  types.MessageTypeAddEthereumChain,
		"params":  AddChainParams(fields),
	})
	if err != nil {
		panic(err)
	}
	return string(body)
}

// FantomFields are valid wallet_addEthereumChain fields with the given
// chain ID.
func FantomFields(chainID string) map[string]interface{} {
	return map[string]interface{}{
		"chainId":          chainID,
		"rpcUrl":           "https://rpc.ankr.com/fantom",
		"networkName":      "Fantom Opera",
		"ticker":           "FTM",
		"blockExplorerUrl": nil,
	}
}
