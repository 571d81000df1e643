package types

// MessageTypeAddEthereumChain is both the RPC method name and the approval
// type for custom network requests.
const MessageTypeAddEthereumChain = "wallet_addEthereumChain"

// ApprovalRequest is what gets shown to the user before a network is added.
type ApprovalRequest struct {
	Origin      string      `json:"origin"`
	Type        string      `json:"type"`
	RequestData ChainParams `json:"requestData"`
}
