// Package runner drives the gas ratio scenario: deploy OnlyEOAs, measure the
// gas left inside its two methods, then call the EOA-only method from a
// contract.
package runner

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"

	pcommon "github.com/ethpandaops/eip3074-protection/pkg/common"
	"github.com/ethpandaops/eip3074-protection/pkg/contracts"
	"github.com/ethpandaops/eip3074-protection/pkg/ethereum"
	"github.com/ethpandaops/eip3074-protection/pkg/gasratio"
)

// Steps of a run, used to annotate errors.
const (
	StepDeployOnlyEOAs       = "deploy OnlyEOAs"
	StepDoSomething          = "doSomething"
	StepDoSomethingElse      = "doSomethingElse"
	StepDeployProtectionTest = "deploy EIP3074ProtectionTest"
	StepTryCallingProtected  = "tryCallingProtected"
)

// Recorder receives every successful run result.
type Recorder interface {
	Save(ctx context.Context, result *Result) error
}

// Runner deploys the contracts through one session and reports gas ratios.
type Runner struct {
	log       logrus.FieldLogger
	session   *ethereum.Session
	contracts *contracts.Set
	out       io.Writer

	recorders []Recorder

	mu sync.Mutex
}

// New creates a runner printing gas ratios to out.
func New(log logrus.FieldLogger, session *ethereum.Session, set *contracts.Set, out io.Writer) *Runner {
	return &Runner{
		log:       log.WithField("component", "runner"),
		session:   session,
		contracts: set,
		out:       out,
	}
}

// AddRecorder registers a recorder for run results.
func (r *Runner) AddRecorder(recorder Recorder) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.recorders = append(r.recorders, recorder)
}

// Run executes the scenario once. Steps run strictly in order and the first
// failure aborts the run; nothing is retried. Concurrent calls are serialised.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	network := r.session.Network()
	started := time.Now()

	result := &Result{
		ID:        strconv.FormatInt(started.UnixNano(), 10),
		Network:   network.Name,
		ChainID:   network.ID,
		StartedAt: started.UTC(),
	}

	log := r.log.WithField("network", network.Name)
	log.Info("Starting run")

	if err := r.run(ctx, network.Name, result); err != nil {
		pcommon.RunsTotal.WithLabelValues(network.Name, "failure").Inc()

		log.WithError(err).Error("Run failed")

		return nil, err
	}

	result.Duration = time.Since(started)

	pcommon.RunsTotal.WithLabelValues(network.Name, "success").Inc()
	pcommon.RunDuration.WithLabelValues(network.Name).Observe(result.Duration.Seconds())

	log.WithFields(logrus.Fields{
		"duration":     result.Duration,
		"measurements": len(result.Measurements),
	}).Info("Run completed")

	for _, recorder := range r.recorders {
		if err := recorder.Save(ctx, result); err != nil {
			pcommon.ResultsStored.WithLabelValues(network.Name, "failure").Inc()

			log.WithError(err).Warn("Failed to record run result")

			continue
		}

		pcommon.ResultsStored.WithLabelValues(network.Name, "success").Inc()
	}

	return result, nil
}

func (r *Runner) run(ctx context.Context, network string, result *Result) error {
	onlyEOAs, _, err := r.session.Deploy(ctx, r.contracts.OnlyEOAs)
	if err != nil {
		return fmt.Errorf("%s: %w", StepDeployOnlyEOAs, err)
	}

	result.OnlyEOAs = onlyEOAs.Address

	for _, step := range []struct {
		name   string
		method string
	}{
		{StepDoSomething, contracts.MethodDoSomething},
		{StepDoSomethingElse, contracts.MethodDoSomethingElse},
	} {
		measurement, err := r.measure(ctx, network, onlyEOAs, step.method)
		if err != nil {
			return fmt.Errorf("%s: %w", step.name, err)
		}

		result.Measurements = append(result.Measurements, *measurement)
	}

	protection, _, err := r.session.Deploy(ctx, r.contracts.ProtectionTest)
	if err != nil {
		return fmt.Errorf("%s: %w", StepDeployProtectionTest, err)
	}

	result.ProtectionTest = protection.Address

	call, err := r.tryCallingProtected(ctx, network, protection, onlyEOAs)
	if err != nil {
		return fmt.Errorf("%s: %w", StepTryCallingProtected, err)
	}

	result.ProtectedCall = call

	return nil
}

// measure sends method, decodes its GasInfo event and prints the ratio.
func (r *Runner) measure(ctx context.Context, network string, contract *ethereum.Contract, method string) (*Measurement, error) {
	receipt, err := r.session.Transact(ctx, contract, method)
	if err != nil {
		return nil, err
	}

	observeGasUsed(network, contract.Name, method, receipt)

	var event contracts.GasInfoEvent

	if err := contract.DecodeEvent(receipt, contracts.EventGasInfo, &event); err != nil {
		return nil, err
	}

	info, err := gasratio.NewGasInfo(event.Txgas, event.Gaslimit)
	if err != nil {
		return nil, err
	}

	ratio, err := info.Ratio()
	if err != nil {
		return nil, err
	}

	if _, err := fmt.Fprintf(r.out, "Gas ratio: %s\n", gasratio.Format(ratio)); err != nil {
		return nil, fmt.Errorf("failed to write output: %w", err)
	}

	pcommon.GasRatio.WithLabelValues(network, contract.Name, method).Set(ratio)
	pcommon.GasRemaining.WithLabelValues(network, contract.Name, method).Set(float64(info.Remaining))

	r.log.WithFields(logrus.Fields{
		"contract": contract.Name,
		"method":   method,
		"txgas":    info.Remaining,
		"gaslimit": info.Limit,
		"ratio":    ratio,
	}).Debug("Measured gas ratio")

	return &Measurement{
		Contract: contract.Name,
		Method:   method,
		TxHash:   receipt.TxHash,
		GasUsed:  receipt.GasUsed,
		GasInfo:  info,
		Ratio:    ratio,
	}, nil
}

func (r *Runner) tryCallingProtected(ctx context.Context, network string, protection, target *ethereum.Contract) (*ProtectedCall, error) {
	receipt, err := r.session.Transact(ctx, protection, contracts.MethodTryCallingProtected, target.Address)
	if err != nil {
		return nil, err
	}

	observeGasUsed(network, protection.Name, contracts.MethodTryCallingProtected, receipt)

	call := &ProtectedCall{
		TxHash:  receipt.TxHash,
		GasUsed: receipt.GasUsed,
		Target:  target.Address,
	}

	// Build artifacts are not required to report the outcome.
	if _, ok := protection.ABI.Events[contracts.EventProtectedCallResult]; !ok {
		return call, nil
	}

	var event contracts.ProtectedCallResultEvent

	if err := protection.DecodeEvent(receipt, contracts.EventProtectedCallResult, &event); err != nil {
		return nil, err
	}

	call.Success = &event.Success

	pcommon.ProtectedCallResults.WithLabelValues(network, strconv.FormatBool(event.Success)).Inc()

	r.log.WithFields(logrus.Fields{
		"target":  event.Target.Hex(),
		"success": event.Success,
	}).Info("Called EOA-only method from a contract")

	return call, nil
}

func observeGasUsed(network, contract, method string, receipt *types.Receipt) {
	pcommon.TransactionGasUsed.WithLabelValues(network, contract, method).Observe(float64(receipt.GasUsed))
}
