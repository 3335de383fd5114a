package geth_test

import (
	"context"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethpandaops/eip3074-protection/pkg/ethereum/execution"
	"github.com/ethpandaops/eip3074-protection/pkg/ethereum/execution/geth"
)

type web3API struct{}

func (web3API) ClientVersion() string {
	return "anvil/v0.2.0"
}

type ethAPI struct {
	chainID int64
}

func (e ethAPI) ChainId() hexutil.Big {
	return hexutil.Big(*big.NewInt(e.chainID))
}

func newTestRPCServer(t *testing.T, headers *atomic.Value) *httptest.Server {
	t.Helper()

	srv := rpc.NewServer()
	require.NoError(t, srv.RegisterName("web3", web3API{}))
	require.NoError(t, srv.RegisterName("eth", ethAPI{chainID: 31337}))

	httpSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if headers != nil {
			headers.Store(r.Header.Get("X-Api-Key"))
		}

		srv.ServeHTTP(w, r)
	}))

	t.Cleanup(func() {
		httpSrv.Close()
		srv.Stop()
	})

	return httpSrv
}

func testKey(t *testing.T) string {
	t.Helper()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	return hexutil.Encode(crypto.FromECDSA(key))
}

func TestRPCNode_BecomesReady(t *testing.T) {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	var headers atomic.Value

	srv := newTestRPCServer(t, &headers)

	node := geth.NewRPCNode(log, &execution.Config{
		Name:        "anvil",
		Type:        execution.NodeTypeRPC,
		NodeAddress: srv.URL,
		NodeHeaders: map[string]string{"X-Api-Key": "secret"},
		PrivateKey:  testKey(t),
	})

	ready := make(chan struct{})

	node.OnReady(context.Background(), func(_ context.Context) error {
		close(ready)

		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	require.NoError(t, node.Start(ctx))

	defer func() {
		assert.NoError(t, node.Stop(context.Background()))
	}()

	select {
	case <-ready:
	case <-ctx.Done():
		t.Fatal("node never became ready")
	}

	assert.Equal(t, big.NewInt(31337), node.ChainID())
	assert.Equal(t, "anvil/v0.2.0", node.ClientType())
	assert.Equal(t, "anvil", node.Name())
	assert.NotNil(t, node.Account())
	assert.NotNil(t, node.Backend())
	assert.Equal(t, "secret", headers.Load())
}

func TestRPCNode_InvalidKey(t *testing.T) {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	node := geth.NewRPCNode(log, &execution.Config{
		Name:        "anvil",
		Type:        execution.NodeTypeRPC,
		NodeAddress: "http://localhost:8545",
		PrivateKey:  "not-a-key",
	})

	assert.Error(t, node.Start(context.Background()))
}
