package rpc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cfg := DefaultClientConfig(srv.URL)
	cfg.InitialBackoff = time.Millisecond
	cfg.MaxBackoff = 2 * time.Millisecond
	return NewHTTPClient(cfg)
}

func rpcResult(w http.ResponseWriter, result string) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":` + result + `}`))
}

func TestSendRawTransaction(t *testing.T) {
	wantHash := "0x1111111111111111111111111111111111111111111111111111111111111111"
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req jsonRPCRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("bad request body: %v", err)
		}
		if req.Method != "eth_sendRawTransaction" {
			t.Errorf("method = %q", req.Method)
		}
		if req.Params[0] != "0xdead" {
			t.Errorf("params[0] = %v, want 0xdead", req.Params[0])
		}
		rpcResult(w, `"`+wantHash+`"`)
	})

	hash, err := client.SendRawTransaction(context.Background(), []byte{0xde, 0xad})
	if err != nil {
		t.Fatalf("SendRawTransaction() error = %v", err)
	}
	if hash != common.HexToHash(wantHash) {
		t.Errorf("hash = %s, want %s", hash.Hex(), wantHash)
	}
}

func TestCallRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int64
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		rpcResult(w, `"0x10"`)
	})

	n, err := client.GetBlockNumber(context.Background())
	if err != nil {
		t.Fatalf("GetBlockNumber() error = %v", err)
	}
	if n != 16 {
		t.Errorf("block number = %d, want 16", n)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("server saw %d calls, want 3", got)
	}
}

func TestCallDoesNotRetryRPCErrors(t *testing.T) {
	var calls atomic.Int64
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"error":{"code":-32000,"message":"nonce too low"}}`))
	})

	_, err := client.SendRawTransaction(context.Background(), []byte{0x01})
	if err == nil {
		t.Fatal("expected error from rejected transaction")
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("server saw %d calls, want 1 (no retry on rpc error)", got)
	}
}

func TestGetTransactionReceipt(t *testing.T) {
	contractAddr := common.HexToAddress("0x2222222222222222222222222222222222222222")

	t.Run("mined deployment", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			rpcResult(w, `{"status":"0x1","blockNumber":"0x2a","gasUsed":"0x5208","contractAddress":"`+contractAddr.Hex()+`"}`)
		})
		receipt, err := client.GetTransactionReceipt(context.Background(), common.Hash{0x01})
		if err != nil {
			t.Fatalf("GetTransactionReceipt() error = %v", err)
		}
		if receipt == nil {
			t.Fatal("receipt is nil")
		}
		if receipt.Status != 1 || receipt.BlockNumber != 42 {
			t.Errorf("receipt = %+v", receipt)
		}
		if receipt.ContractAddress == nil || *receipt.ContractAddress != contractAddr {
			t.Errorf("contract address = %v, want %s", receipt.ContractAddress, contractAddr.Hex())
		}
	})

	t.Run("pending", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			rpcResult(w, "null")
		})
		receipt, err := client.GetTransactionReceipt(context.Background(), common.Hash{0x01})
		if err != nil {
			t.Fatalf("GetTransactionReceipt() error = %v", err)
		}
		if receipt != nil {
			t.Errorf("pending receipt = %+v, want nil", receipt)
		}
	})
}

func TestGetNonceAndGasPrice(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req jsonRPCRequest
		json.NewDecoder(r.Body).Decode(&req)
		switch req.Method {
		case "eth_getTransactionCount":
			rpcResult(w, `"0x7"`)
		case "eth_gasPrice":
			rpcResult(w, `"0x3b9aca00"`)
		default:
			t.Errorf("unexpected method %q", req.Method)
		}
	})

	nonce, err := client.GetNonce(context.Background(), "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	if err != nil {
		t.Fatalf("GetNonce() error = %v", err)
	}
	if nonce != 7 {
		t.Errorf("nonce = %d, want 7", nonce)
	}

	price, err := client.GetGasPrice(context.Background())
	if err != nil {
		t.Fatalf("GetGasPrice() error = %v", err)
	}
	if price != 1000000000 {
		t.Errorf("gas price = %d, want 1000000000", price)
	}
}
