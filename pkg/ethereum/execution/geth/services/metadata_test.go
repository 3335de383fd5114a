package services_test

import (
	"context"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethpandaops/eip3074-protection/pkg/ethereum/execution/geth/services"
)

type web3API struct{}

func (web3API) ClientVersion() string {
	return "Geth/v1.14.12-stable"
}

// ethAPI reports chain ID 0 until it is given a real one.
type ethAPI struct {
	chainID *atomic.Int64
}

func (e ethAPI) ChainId() hexutil.Big {
	return hexutil.Big(*big.NewInt(e.chainID.Load()))
}

func newMetadataService(t *testing.T, chainID *atomic.Int64, requests *atomic.Int64) *services.MetadataService {
	t.Helper()

	srv := rpc.NewServer()
	require.NoError(t, srv.RegisterName("web3", web3API{}))
	require.NoError(t, srv.RegisterName("eth", ethAPI{chainID: chainID}))

	httpSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		srv.ServeHTTP(w, r)
	}))

	client, err := rpc.DialContext(context.Background(), httpSrv.URL)
	require.NoError(t, err)

	t.Cleanup(func() {
		client.Close()
		httpSrv.Close()
		srv.Stop()
	})

	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	return services.NewMetadataService(log, client)
}

func TestMetadataService_Ready(t *testing.T) {
	var chainID, requests atomic.Int64

	chainID.Store(1337)

	m := newMetadataService(t, &chainID, &requests)

	ready := make(chan struct{})

	m.OnReady(context.Background(), func(context.Context) error {
		close(ready)

		return nil
	})

	require.NoError(t, m.Start(context.Background()))

	select {
	case <-ready:
	case <-time.After(10 * time.Second):
		t.Fatal("metadata service never became ready")
	}

	assert.Equal(t, big.NewInt(1337), m.ChainID())
	assert.Equal(t, string(services.ClientGeth), m.Client(context.Background()))
	assert.NoError(t, m.Stop(context.Background()))
}

func TestMetadataService_StopWaitsForRetryLoop(t *testing.T) {
	var chainID, requests atomic.Int64

	m := newMetadataService(t, &chainID, &requests)

	var readyCalled atomic.Bool

	m.OnReady(context.Background(), func(context.Context) error {
		readyCalled.Store(true)

		return nil
	})

	require.NoError(t, m.Start(context.Background()))

	// Chain ID 0 keeps the service retrying.
	require.Eventually(t, func() bool {
		return requests.Load() >= 2
	}, 5*time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, m.Stop(ctx))

	// Once Stop returns the loop is gone: the node turning ready is never seen.
	seen := requests.Load()

	chainID.Store(1337)
	time.Sleep(time.Second)

	assert.Equal(t, seen, requests.Load())
	assert.False(t, readyCalled.Load())
}

func TestMetadataService_StopWithoutStart(t *testing.T) {
	var chainID, requests atomic.Int64

	m := newMetadataService(t, &chainID, &requests)

	assert.NoError(t, m.Stop(context.Background()))
}
