package addchain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/0xPuncker/chain-gatekeeper/internal/rpc"
	"github.com/0xPuncker/chain-gatekeeper/pkg/types"
	"github.com/0xPuncker/chain-gatekeeper/pkg/utils"
)

const (
	MaxNetworkNameLength = 100
	MinTickerLength      = 2
	MaxTickerLength      = 12
)

// Validate checks the positional params of an add-chain request in a fixed
// order and returns the normalized chain on success. The first failing
// check decides the error.
func Validate(params []json.RawMessage) (types.ChainParams, error) {
	chain, _, err := validate(params)
	return chain, err
}

// validate also returns the chain ID as the caller sent it.
func validate(params []json.RawMessage) (types.ChainParams, string, error) {
	fields, ok := singleObject(params)
	if !ok {
		return types.ChainParams{}, "", rpc.InvalidParams(fmt.Sprintf(
			"Expected single, object parameter. Received:\n%s", describeParams(params)))
	}

	rpcURL, ok := stringField(fields, "rpcUrl")
	if !ok || !utils.IsHTTPSURI(rpcURL) {
		return types.ChainParams{}, "", rpc.InvalidParams(fmt.Sprintf(
			"Expected valid string HTTPS URL 'rpcUrl'. Received:\n%s", received(fields, "rpcUrl")))
	}

	rawChainID, ok := stringField(fields, "chainId")
	chainID := strings.ToLower(rawChainID)
	if !ok || !utils.IsPrefixedFormattedHexString(chainID) {
		return types.ChainParams{}, "", rpc.InvalidParams(fmt.Sprintf(
			"Expected 0x-prefixed, unpadded, non-zero hexadecimal string 'chainId'. Received:\n%s", received(fields, "chainId")))
	}

	networkName, ok := stringField(fields, "networkName")
	if !ok || networkName == "" {
		return types.ChainParams{}, "", rpc.InvalidParams(fmt.Sprintf(
			"Expected non-empty string 'networkName'. Received:\n%s", received(fields, "networkName")))
	}
	networkName = truncate(networkName, MaxNetworkNameLength)

	ticker, ok := stringField(fields, "ticker")
	if n := len([]rune(ticker)); !ok || n < MinTickerLength || n > MaxTickerLength {
		return types.ChainParams{}, "", rpc.InvalidParams(fmt.Sprintf(
			"Expected %d-%d character string 'ticker'. Received:\n%s", MinTickerLength, MaxTickerLength, received(fields, "ticker")))
	}

	var explorer *string
	if !isAbsent(fields, "blockExplorerUrl") {
		u, ok := stringField(fields, "blockExplorerUrl")
		if !ok || !utils.IsHTTPSURI(u) {
			return types.ChainParams{}, "", rpc.InvalidParams(fmt.Sprintf(
				"Expected null or valid string HTTPS URL 'blockExplorerUrl'. Received: %s", received(fields, "blockExplorerUrl")))
		}
		explorer = &u
	}

	return types.ChainParams{
		ChainID:          chainID,
		RPCURL:           rpcURL,
		NetworkName:      networkName,
		Ticker:           ticker,
		BlockExplorerURL: explorer,
	}, rawChainID, nil
}

func singleObject(params []json.RawMessage) (map[string]json.RawMessage, bool) {
	if len(params) != 1 {
		return nil, false
	}

	raw := bytes.TrimSpace(params[0])
	if len(raw) == 0 || raw[0] != '{' {
		return nil, false
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return nil, false
	}
	return fields, true
}

func stringField(fields map[string]json.RawMessage, name string) (string, bool) {
	raw, ok := fields[name]
	if !ok {
		return "", false
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '"' {
		return "", false
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

func isAbsent(fields map[string]json.RawMessage, name string) bool {
	raw, ok := fields[name]
	return !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// received renders a field value for error messages: strings unquoted,
// other JSON as sent, missing fields as undefined.
func received(fields map[string]json.RawMessage, name string) string {
	if s, ok := stringField(fields, name); ok {
		return s
	}
	raw, ok := fields[name]
	if !ok {
		return "undefined"
	}
	return string(bytes.TrimSpace(raw))
}

func describeParams(params []json.RawMessage) string {
	if params == nil {
		return "undefined"
	}
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = string(bytes.TrimSpace(p))
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// truncate keeps the first max characters of s.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
