package rpc

import (
	"bytes"
	"encoding/json"
)

const Version = "2.0"

// Request is an incoming JSON-RPC call.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// PositionalParams splits params into its array elements. Anything other
// than a JSON array yields no positional parameters.
func (r *Request) PositionalParams() []json.RawMessage {
	trimmed := bytes.TrimSpace(r.Params)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil
	}

	var params []json.RawMessage
	if err := json.Unmarshal(trimmed, &params); err != nil {
		return nil
	}
	return params
}

// Response is the single reply to a Request.
type Response struct {
	ID     json.RawMessage
	Result any
	Error  *Error
}

type successEnvelope struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result"`
}

type errorEnvelope struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Error   *Error          `json:"error"`
}

// MarshalJSON writes result on success and error on failure, never both.
func (r Response) MarshalJSON() ([]byte, error) {
	id := r.ID
	if len(id) == 0 {
		id = json.RawMessage("null")
	}

	if r.Error != nil {
		return json.Marshal(errorEnvelope{JSONRPC: Version, ID: id, Error: r.Error})
	}
	return json.Marshal(successEnvelope{JSONRPC: Version, ID: id, Result: r.Result})
}
