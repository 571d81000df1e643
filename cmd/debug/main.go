package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/0xPuncker/chain-gatekeeper/internal/fetch"
	"github.com/0xPuncker/chain-gatekeeper/pkg/types"
)

func main() {
	serverURL := flag.String("server", "http://localhost:8080", "chain-gatekeeper base URL")
	origin := flag.String("origin", "https://debug.local", "Origin header sent with the request")
	chainID := flag.String("chain-id", "0xfa", "hex chain ID")
	rpcURL := flag.String("rpc-url", "https://rpc.ankr.com/fantom", "network RPC URL")
	name := flag.String("name", "Fantom Opera", "network name")
	ticker := flag.String("ticker", "FTM", "native currency ticker")
	explorer := flag.String("explorer", "", "block explorer URL")
	timeoutMS := flag.Int("timeout-ms", 600000, "request timeout in milliseconds")
	flag.Parse()

	params := map[string]interface{}{
		"chainId":     *chainID,
		"rpcUrl":      *rpcURL,
		"networkName": *name,
		"ticker":      *ticker,
	}
	if *explorer != "" {
		params["blockExplorerUrl"] = *explorer
	}

	body, err := json.Marshal(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  types.MessageTypeAddEthereumChain,
		"params":  []interface{}{params},
	})
	if err != nil {
		fmt.Printf("Encode error: %v\n", err)
		os.Exit(1)
	}

	doFetch, err := fetch.GetFetchWithTimeout(*timeoutMS)
	if err != nil {
		fmt.Printf("Fetch setup error: %v\n", err)
		os.Exit(1)
	}

	req, err := http.NewRequest(http.MethodPost, *serverURL+"/rpc", bytes.NewReader(body))
	if err != nil {
		fmt.Printf("Request error: %v\n", err)
		os.Exit(1)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", *origin)

	fmt.Printf("\nSending %s to %s\n", types.MessageTypeAddEthereumChain, req.URL)
	fmt.Printf("Approve it with POST %s/api/v1/approvals/{id}/approve\n", *serverURL)

	resp, err := doFetch(req)
	if err != nil {
		fmt.Printf("POST error: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	fmt.Printf("Status: %d\n", resp.StatusCode)
	out, err := io.ReadAll(resp.Body)
	if err != nil {
		fmt.Printf("Read body error: %v\n", err)
		os.Exit(1)
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, out, "", "  "); err != nil {
		fmt.Printf("Response body: %s\n", out)
		return
	}
	fmt.Println(pretty.String())
}
