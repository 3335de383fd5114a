package ethereum_test

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/creasty/defaults"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/core/vm"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethpandaops/eip3074-protection/pkg/contracts"
	"github.com/ethpandaops/eip3074-protection/pkg/ethereum"
)

func newTestSession(t *testing.T, mutate func(*ethereum.Config)) *ethereum.Session {
	t.Helper()

	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	config := &ethereum.Config{}
	require.NoError(t, defaults.Set(config))

	if mutate != nil {
		mutate(config)
	}

	session, err := ethereum.NewSession(log, "test", config)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	require.NoError(t, session.Start(ctx))

	t.Cleanup(func() {
		assert.NoError(t, session.Stop(context.Background()))
	})

	return session
}

func TestSession_DeployAndTransact(t *testing.T) {
	session := newTestSession(t, nil)
	ctx := context.Background()

	artifact, err := contracts.OnlyEOAs()
	require.NoError(t, err)

	contract, receipt, err := session.Deploy(ctx, artifact)
	require.NoError(t, err)
	assert.Equal(t, receipt.ContractAddress, contract.Address)
	assert.Equal(t, contracts.OnlyEOAsName, contract.Name)

	for _, method := range []string{contracts.MethodDoSomething, contracts.MethodDoSomethingElse} {
		receipt, err := session.Transact(ctx, contract, method)
		require.NoError(t, err, method)

		var event contracts.GasInfoEvent

		require.NoError(t, contract.DecodeEvent(receipt, contracts.EventGasInfo, &event))
		assert.Equal(t, big.NewInt(12_000_000), event.Gaslimit, method)
		assert.True(t, event.Txgas.Sign() > 0, method)
		assert.True(t, event.Txgas.Cmp(event.Gaslimit) < 0, method)
	}
}

func TestSession_TransactionUsesConfiguredGasLimit(t *testing.T) {
	session := newTestSession(t, func(c *ethereum.Config) {
		c.GasLimit = 8_000_000
	})

	opts, err := session.Transactor(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(8_000_000), opts.GasLimit)
	assert.Nil(t, opts.GasPrice)

	header, err := session.Node().Backend().HeaderByNumber(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(8_000_000), header.GasLimit)
}

func TestSession_LegacyGasPrice(t *testing.T) {
	price := uint64(10_000_000_000)

	session := newTestSession(t, func(c *ethereum.Config) {
		c.GasPrice = price
	})
	ctx := context.Background()

	artifact, err := contracts.OnlyEOAs()
	require.NoError(t, err)

	_, receipt, err := session.Deploy(ctx, artifact)
	require.NoError(t, err)
	assert.Equal(t, uint8(types.LegacyTxType), receipt.Type)
	assert.Equal(t, new(big.Int).SetUint64(price), receipt.EffectiveGasPrice)
}

func TestSession_RevertedTransaction(t *testing.T) {
	session := newTestSession(t, nil)
	ctx := context.Background()

	builtin, err := contracts.OnlyEOAs()
	require.NoError(t, err)

	// Same code, plus an ABI method the dispatcher does not know.
	artifact, err := contracts.ParseArtifact(contracts.OnlyEOAsName,
		`[{"type":"function","name":"missing","inputs":[],"outputs":[],"stateMutability":"nonpayable"}]`, "0x00")
	require.NoError(t, err)

	artifact.Bytecode = builtin.Bytecode

	contract, _, err := session.Deploy(ctx, artifact)
	require.NoError(t, err)

	receipt, err := session.Transact(ctx, contract, "missing")
	require.ErrorIs(t, err, ethereum.ErrTransactionReverted)
	require.NotNil(t, receipt)
	assert.Equal(t, types.ReceiptStatusFailed, receipt.Status)
}

func TestSession_RevertedDeployment(t *testing.T) {
	session := newTestSession(t, nil)

	initcode, err := contracts.NewAssembly().Revert().Bytecode()
	require.NoError(t, err)

	artifact, err := contracts.ParseArtifact("Reverter", `[]`, "0x00")
	require.NoError(t, err)

	artifact.Bytecode = initcode

	_, _, err = session.Deploy(context.Background(), artifact)
	require.ErrorIs(t, err, ethereum.ErrTransactionReverted)
}

func TestSession_CodeMismatch(t *testing.T) {
	session := newTestSession(t, nil)

	artifact, err := contracts.OnlyEOAs()
	require.NoError(t, err)

	artifact.Runtime = []byte{byte(vm.STOP)}

	_, _, err = session.Deploy(context.Background(), artifact)
	require.ErrorIs(t, err, ethereum.ErrCodeMismatch)
}

func TestSession_Network(t *testing.T) {
	session := newTestSession(t, nil)
	assert.Equal(t, "dev", session.Network().Name)

	name := "eip3074-devnet"
	override := newTestSession(t, func(c *ethereum.Config) {
		c.OverrideNetworkName = &name
	})
	assert.Equal(t, name, override.Network().Name)
}

func TestSession_NotReady(t *testing.T) {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	config := &ethereum.Config{}
	require.NoError(t, defaults.Set(config))

	session, err := ethereum.NewSession(log, "test", config)
	require.NoError(t, err)

	_, err = session.Transactor(context.Background())
	require.ErrorIs(t, err, ethereum.ErrNodeNotReady)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	require.ErrorIs(t, session.WaitForReady(ctx), ethereum.ErrNodeNotReady)
}
