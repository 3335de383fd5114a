// Package contracts provides the contract artifacts deployed by the runner,
// either read from build output or assembled in-process.
package contracts

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

const (
	OnlyEOAsName              = "OnlyEOAs"
	EIP3074ProtectionTestName = "EIP3074ProtectionTest"
)

// Artifact is a deployable contract: its interface and creation bytecode.
type Artifact struct {
	Name     string
	ABI      abi.ABI
	Bytecode []byte
	// Runtime is the expected deployed code, when known.
	Runtime []byte
}

// buildArtifact mirrors the subset of a brownie/hardhat build file the runner reads.
type buildArtifact struct {
	ContractName string          `json:"contractName"`
	ABI          json.RawMessage `json:"abi"`
	Bytecode     string          `json:"bytecode"`
}

// ParseArtifact builds an Artifact from a JSON ABI and hex creation bytecode.
func ParseArtifact(name, abiJSON, bytecodeHex string) (*Artifact, error) {
	parsed, err := abi.JSON(strings.NewReader(abiJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s abi: %w", name, err)
	}

	bytecodeHex = strings.TrimSpace(bytecodeHex)
	if bytecodeHex == "" || bytecodeHex == "0x" {
		return nil, fmt.Errorf("%s: %w", name, ErrEmptyBytecode)
	}

	if !strings.HasPrefix(bytecodeHex, "0x") {
		bytecodeHex = "0x" + bytecodeHex
	}

	bytecode, err := hexutil.Decode(bytecodeHex)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s bytecode: %w", name, err)
	}

	return &Artifact{Name: name, ABI: parsed, Bytecode: bytecode}, nil
}

// LoadArtifact reads a build artifact file.
func LoadArtifact(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var build buildArtifact

	if err := json.Unmarshal(data, &build); err != nil {
		return nil, fmt.Errorf("failed to decode artifact %s: %w", path, err)
	}

	name := build.ContractName
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	return ParseArtifact(name, string(build.ABI), build.Bytecode)
}

// Require checks the ABI declares the given methods and events.
func (a *Artifact) Require(methods, events []string) error {
	for _, m := range methods {
		if _, ok := a.ABI.Methods[m]; !ok {
			return fmt.Errorf("%s: %w: method %s", a.Name, ErrMissingMember, m)
		}
	}

	for _, e := range events {
		if _, ok := a.ABI.Events[e]; !ok {
			return fmt.Errorf("%s: %w: event %s", a.Name, ErrMissingMember, e)
		}
	}

	return nil
}
