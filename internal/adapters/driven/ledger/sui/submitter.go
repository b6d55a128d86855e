package sui

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"

	"github.com/anynomousfriend/Fathom-0x/internal/core/domain"
	"github.com/anynomousfriend/Fathom-0x/internal/core/ports/driven"
)

// Ensure Submitter implements the interface.
var _ driven.LedgerSubmitter = (*Submitter)(nil)

// Move call defaults.
const (
	DefaultModule         = "fathom"
	DefaultGasBudget      = 10_000_000
	submitAnswerFunc      = "submit_answer"
	clockObjectID         = "0x6"
	waitForLocalExecution = "WaitForLocalExecution"
)

var (
	errEmptyTxBytes = errors.New("empty transaction bytes")
	errEmptyDigest  = errors.New("execute transaction: empty digest")
)

// SubmitterConfig identifies the on-chain package and shared config object.
type SubmitterConfig struct {
	PackageID      string
	ConfigObjectID string
	Module         string
	GasBudget      uint64
}

// Submitter sends submit_answer transactions signed by the oracle key.
type Submitter struct {
	client    *Client
	keypair   *Keypair
	packageID string
	configID  string
	module    string
	gasBudget uint64
}

type moveCallResult struct {
	TxBytes string `json:"txBytes"`
}

type executeResult struct {
	Digest  string `json:"digest"`
	Effects *struct {
		Status struct {
			Status string `json:"status"`
			Error  string `json:"error"`
		} `json:"status"`
	} `json:"effects"`
}

// NewSubmitter creates a submitter. PackageID and ConfigObjectID are required.
func NewSubmitter(client *Client, keypair *Keypair, cfg SubmitterConfig) (*Submitter, error) {
	if cfg.PackageID == "" {
		return nil, &domain.ConfigError{Field: "sui.package_id", Reason: "required"}
	}
	if cfg.ConfigObjectID == "" {
		return nil, &domain.ConfigError{Field: "sui.config_object_id", Reason: "required"}
	}
	if keypair == nil {
		return nil, &domain.ConfigError{Field: "oracle.private_key", Reason: "required"}
	}
	if cfg.Module == "" {
		cfg.Module = DefaultModule
	}
	if cfg.GasBudget == 0 {
		cfg.GasBudget = DefaultGasBudget
	}

	return &Submitter{
		client:    client,
		keypair:   keypair,
		packageID: cfg.PackageID,
		configID:  cfg.ConfigObjectID,
		module:    cfg.Module,
		gasBudget: cfg.GasBudget,
	}, nil
}

// Submit builds, signs and executes one submit_answer transaction and
// returns its digest.
func (s *Submitter) Submit(ctx context.Context, queryID, answerText string, att domain.Attestation) (string, error) {
	var built moveCallResult
	err := s.client.Call(ctx, "unsafe_moveCall", []any{
		s.keypair.Address(),
		s.packageID,
		s.module,
		submitAnswerFunc,
		[]string{},
		[]any{s.configID, queryID, answerText, byteVector(att.Signature), clockObjectID},
		nil,
		strconv.FormatUint(s.gasBudget, 10),
	}, &built)
	if err != nil {
		return "", submissionError(queryID, fmt.Errorf("build transaction: %w", err))
	}

	txBytes, err := base64.StdEncoding.DecodeString(built.TxBytes)
	if err == nil && len(txBytes) == 0 {
		err = errEmptyTxBytes
	}
	if err != nil {
		return "", &domain.SubmissionError{
			Kind:    domain.SubmitTransport,
			QueryID: queryID,
			Err:     fmt.Errorf("decode transaction bytes: %w", err),
		}
	}

	var executed executeResult
	err = s.client.Call(ctx, "sui_executeTransactionBlock", []any{
		built.TxBytes,
		[]string{s.keypair.SignTransaction(txBytes)},
		map[string]bool{"showEffects": true},
		waitForLocalExecution,
	}, &executed)
	if err != nil {
		return "", submissionError(queryID, fmt.Errorf("execute transaction: %w", err))
	}

	if executed.Effects != nil && executed.Effects.Status.Status != "success" {
		return "", &domain.SubmissionError{
			Kind:    domain.SubmitRejected,
			QueryID: queryID,
			Err:     fmt.Errorf("transaction %s failed: %s", executed.Digest, executed.Effects.Status.Error),
		}
	}
	if executed.Digest == "" {
		return "", &domain.SubmissionError{
			Kind:    domain.SubmitTransport,
			QueryID: queryID,
			Err:     errEmptyDigest,
		}
	}
	return executed.Digest, nil
}

// ChainIdentifier returns the network's chain id. Used as a health check.
func (s *Submitter) ChainIdentifier(ctx context.Context) (string, error) {
	var id string
	if err := s.client.Call(ctx, "sui_getChainIdentifier", []any{}, &id); err != nil {
		return "", err
	}
	return id, nil
}

// Signer returns the oracle address.
func (s *Submitter) Signer() string {
	return s.keypair.Address()
}

func submissionError(queryID string, err error) error {
	kind := domain.SubmitTransport
	switch {
	case IsTimeout(err):
		kind = domain.SubmitTimeout
	case IsRPCError(err):
		kind = domain.SubmitRejected
	}
	return &domain.SubmissionError{Kind: kind, QueryID: queryID, Err: err}
}

// byteVector renders bytes as a JSON number array, the form the fullnode
// expects for vector<u8> arguments.
func byteVector(b []byte) []int {
	out := make([]int, len(b))
	for i, v := range b {
		out[i] = int(v)
	}
	return out
}
