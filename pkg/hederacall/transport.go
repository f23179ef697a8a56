package hederacall

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hashgraph-online/dip721-sdk-go/pkg/ledger"
	"github.com/hashgraph-online/dip721-sdk-go/pkg/shared"
	hedera "github.com/hashgraph/hedera-sdk-go/v2"
)

const (
	DispatchFunction = "dispatch"
	DefaultGas       = 500000
)

type Config struct {
	Network            string
	OperatorAccountID  string
	OperatorPrivateKey string
	Gas                uint64
	Logger             *slog.Logger
}

type backend interface {
	call(contract hedera.ContractID, gas uint64, params *hedera.ContractFunctionParameters) (hedera.ContractFunctionResult, error)
	execute(contract hedera.ContractID, gas uint64, params *hedera.ContractFunctionParameters) (hedera.ContractFunctionResult, string, error)
}

type Transport struct {
	backend  backend
	gas      uint64
	network  string
	logger   *slog.Logger
	operator hedera.AccountID
}

// NewTransport creates a new Transport.
func NewTransport(config Config) (*Transport, error) {
	network, err := shared.NormalizeNetwork(config.Network)
	if err != nil {
		return nil, err
	}
	operator := shared.HederaOperator{
		AccountID:  config.OperatorAccountID,
		PrivateKey: config.OperatorPrivateKey,
		Network:    network,
	}
	if err := operator.Validate(); err != nil {
		return nil, err
	}

	accountID, err := hedera.AccountIDFromString(strings.TrimSpace(config.OperatorAccountID))
	if err != nil {
		return nil, fmt.Errorf("invalid operator account ID: %w", err)
	}
	privateKey, err := shared.ParsePrivateKey(config.OperatorPrivateKey)
	if err != nil {
		return nil, err
	}

	hederaClient, err := shared.NewHederaClient(network)
	if err != nil {
		return nil, err
	}
	hederaClient.SetOperator(accountID, privateKey)

	transport := newTransport(&sdkBackend{client: hederaClient}, config.Gas, config.Logger)
	transport.network = network
	transport.operator = accountID
	return transport, nil
}

func newTransport(backend backend, gas uint64, logger *slog.Logger) *Transport {
	if gas == 0 {
		gas = DefaultGas
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Transport{
		backend: backend,
		gas:     gas,
		logger:  logger.With("component", "hederacall"),
	}
}

// Network returns the normalized Hedera network name.
func (t *Transport) Network() string {
	return t.network
}

// Query runs a read-only dispatch against the gateway contract.
func (t *Transport) Query(ctx context.Context, target string, method string, arg []byte) ([]byte, error) {
	contract, params, err := t.prepare(ctx, target, method, arg)
	if err != nil {
		return nil, err
	}
	t.logger.Debug("calling contract", "contract", contract.String(), "method", method)
	result, err := t.backend.call(contract, t.gas, params)
	if err != nil {
		return nil, asRejection(err)
	}
	return decodeBytesResult(result.ContractCallResult)
}

// UpdateAndWait executes dispatch as a transaction and waits for its record.
func (t *Transport) UpdateAndWait(ctx context.Context, target string, method string, arg []byte) ([]byte, error) {
	contract, params, err := t.prepare(ctx, target, method, arg)
	if err != nil {
		return nil, err
	}
	t.logger.Debug("executing contract", "contract", contract.String(), "method", method, "gas", t.gas)
	result, transactionID, err := t.backend.execute(contract, t.gas, params)
	if err != nil {
		return nil, asRejection(err)
	}
	t.logger.Debug("contract executed", "contract", contract.String(), "transaction_id", transactionID)
	if result.ErrorMessage != "" {
		return nil, &ledger.Rejection{Code: ledger.RejectCanisterReject, Message: result.ErrorMessage}
	}
	return decodeBytesResult(result.ContractCallResult)
}

func (t *Transport) prepare(
	ctx context.Context,
	target string,
	method string,
	arg []byte,
) (hedera.ContractID, *hedera.ContractFunctionParameters, error) {
	if err := ctx.Err(); err != nil {
		return hedera.ContractID{}, nil, err
	}
	if strings.TrimSpace(target) == "" {
		return hedera.ContractID{}, nil, fmt.Errorf("contract ID is required")
	}
	if strings.TrimSpace(method) == "" {
		return hedera.ContractID{}, nil, fmt.Errorf("method name is required")
	}
	contract, err := hedera.ContractIDFromString(strings.TrimSpace(target))
	if err != nil {
		return hedera.ContractID{}, nil, fmt.Errorf("invalid contract ID %q: %w", target, err)
	}
	params := hedera.NewContractFunctionParameters().AddString(method).AddBytes(arg)
	return contract, params, nil
}

// asRejection converts Hedera status errors into rejections. Other errors are
// returned unchanged.
func asRejection(err error) error {
	var precheck hedera.ErrHederaPreCheckStatus
	if errors.As(err, &precheck) {
		status := precheck.Status.String()
		return &ledger.Rejection{Code: rejectCodeForStatus(status), Message: err.Error(), ErrorCode: status}
	}
	var receipt hedera.ErrHederaReceiptStatus
	if errors.As(err, &receipt) {
		status := receipt.Status.String()
		return &ledger.Rejection{Code: rejectCodeForStatus(status), Message: err.Error(), ErrorCode: status}
	}
	var statusErr *statusError
	if errors.As(err, &statusErr) {
		return &ledger.Rejection{Code: rejectCodeForStatus(statusErr.status), Message: err.Error(), ErrorCode: statusErr.status}
	}
	return err
}

func rejectCodeForStatus(status string) ledger.RejectCode {
	switch status {
	case "INVALID_CONTRACT_ID", "CONTRACT_DELETED", "INVALID_SOLIDITY_ADDRESS":
		return ledger.RejectDestinationInvalid
	case "CONTRACT_REVERT_EXECUTED":
		return ledger.RejectCanisterReject
	case "INSUFFICIENT_GAS", "INSUFFICIENT_PAYER_BALANCE", "INSUFFICIENT_TX_FEE", "MAX_GAS_LIMIT_EXCEEDED", "CONTRACT_EXECUTION_EXCEPTION":
		return ledger.RejectCanisterError
	case "BUSY", "PLATFORM_TRANSACTION_NOT_CREATED", "PLATFORM_NOT_ACTIVE":
		return ledger.RejectSysTransient
	default:
		return ledger.RejectSysFatal
	}
}

type statusError struct {
	status string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("contract transaction failed with status %s", e.status)
}

type sdkBackend struct {
	client *hedera.Client
}

func (b *sdkBackend) call(
	contract hedera.ContractID,
	gas uint64,
	params *hedera.ContractFunctionParameters,
) (hedera.ContractFunctionResult, error) {
	result, err := hedera.NewContractCallQuery().
		SetContractID(contract).
		SetGas(gas).
		SetFunction(DispatchFunction, params).
		Execute(b.client)
	if err != nil {
		return hedera.ContractFunctionResult{}, fmt.Errorf("failed to call contract: %w", err)
	}
	return result, nil
}

func (b *sdkBackend) execute(
	contract hedera.ContractID,
	gas uint64,
	params *hedera.ContractFunctionParameters,
) (hedera.ContractFunctionResult, string, error) {
	response, err := hedera.NewContractExecuteTransaction().
		SetContractID(contract).
		SetGas(gas).
		SetFunction(DispatchFunction, params).
		Execute(b.client)
	if err != nil {
		return hedera.ContractFunctionResult{}, "", fmt.Errorf("failed to execute contract transaction: %w", err)
	}
	transactionID := response.TransactionID.String()

	receipt, err := response.GetReceipt(b.client)
	if err != nil {
		return hedera.ContractFunctionResult{}, transactionID, fmt.Errorf("failed to retrieve contract receipt: %w", err)
	}
	if receipt.Status.String() != "SUCCESS" {
		return hedera.ContractFunctionResult{}, transactionID, &statusError{status: receipt.Status.String()}
	}

	record, err := response.GetRecord(b.client)
	if err != nil {
		return hedera.ContractFunctionResult{}, transactionID, fmt.Errorf("failed to retrieve contract record: %w", err)
	}
	result, err := record.GetContractExecuteResult()
	if err != nil {
		return hedera.ContractFunctionResult{}, transactionID, fmt.Errorf("failed to read contract result: %w", err)
	}
	return result, transactionID, nil
}
