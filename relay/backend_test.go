package relay

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

type rpcRequest struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
	ID     int             `json:"id"`
}

func rpcServer(t *testing.T, handler func(req rpcRequest) (any, map[string]any)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		result, rpcErr := handler(req)
		resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
		if rpcErr != nil {
			resp["error"] = rpcErr
		} else {
			resp["result"] = result
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func TestJSONRPCSendBackend(t *testing.T) {
	ctx := context.Background()

	t.Run("send transaction", func(t *testing.T) {
		srv := rpcServer(t, func(req rpcRequest) (any, map[string]any) {
			require.Equal(t, "sendTransaction", req.Method)
			var params []json.RawMessage
			require.NoError(t, json.Unmarshal(req.Params, &params))
			require.Len(t, params, 2)

			var opts sendTransactionOpts
			require.NoError(t, json.Unmarshal(params[1], &opts))
			require.Equal(t, "base64", opts.Encoding)
			require.True(t, opts.SkipPreflight)
			return "sig-123", nil
		})
		defer srv.Close()

		backend := NewJSONRPCSendBackend(srv.URL)
		sig, err := backend.SendTransaction(ctx, "dHg=", SendOpts{SkipPreflight: true})
		require.NoError(t, err)
		require.Equal(t, "sig-123", sig)
	})

	t.Run("semantic rejection", func(t *testing.T) {
		srv := rpcServer(t, func(rpcRequest) (any, map[string]any) {
			return nil, map[string]any{"code": -32002, "message": "Transaction simulation failed"}
		})
		defer srv.Close()

		backend := NewJSONRPCSendBackend(srv.URL)
		_, err := backend.SendTransaction(ctx, "dHg=", SendOpts{})
		var semErr *SemanticError
		require.ErrorAs(t, err, &semErr)
		require.Equal(t, -32002, semErr.Code)
		require.Contains(t, semErr.Message, "simulation failed")
	})

	t.Run("transport failure is not semantic", func(t *testing.T) {
		backend := NewJSONRPCSendBackend("http://127.0.0.1:1")
		_, err := backend.SendTransaction(ctx, "dHg=", SendOpts{})
		require.Error(t, err)
		var semErr *SemanticError
		require.False(t, errors.As(err, &semErr))
	})

	t.Run("signature status", func(t *testing.T) {
		srv := rpcServer(t, func(req rpcRequest) (any, map[string]any) {
			require.Equal(t, "getSignatureStatuses", req.Method)
			return map[string]any{"value": []any{map[string]any{"confirmationStatus": "confirmed"}}}, nil
		})
		defer srv.Close()

		backend := NewJSONRPCSendBackend(srv.URL)
		status, err := backend.SignatureStatus(ctx, "sig-123")
		require.NoError(t, err)
		require.Equal(t, ConfirmationConfirmed, status)
	})

	t.Run("unknown signature", func(t *testing.T) {
		srv := rpcServer(t, func(rpcRequest) (any, map[string]any) {
			return map[string]any{"value": []any{nil}}, nil
		})
		defer srv.Close()

		backend := NewJSONRPCSendBackend(srv.URL)
		status, err := backend.SignatureStatus(ctx, "sig-123")
		require.NoError(t, err)
		require.Equal(t, ConfirmationUnknown, status)
	})

	t.Run("failed transaction status", func(t *testing.T) {
		srv := rpcServer(t, func(rpcRequest) (any, map[string]any) {
			return map[string]any{"value": []any{map[string]any{
				"confirmationStatus": "confirmed",
				"err":                map[string]any{"InstructionError": []any{0, "Custom"}},
			}}}, nil
		})
		defer srv.Close()

		backend := NewJSONRPCSendBackend(srv.URL)
		_, err := backend.SignatureStatus(ctx, "sig-123")
		var semErr *SemanticError
		require.ErrorAs(t, err, &semErr)
	})
}
