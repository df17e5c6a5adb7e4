package agent

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"syscall"

	"github.com/bdlandchain/landchain-cli/internal/domain"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	gethrpc "github.com/ethereum/go-ethereum/rpc"
)

// EIP-1193 provider error codes and the JSON-RPC code used for reverted execution.
const (
	CodeUserRejected      = 4001
	CodeUnauthorized      = 4100
	CodeUnsupportedMethod = 4200
	CodeDisconnected      = 4900
	CodeChainDisconnected = 4901
	CodeUnrecognizedChain = 4902
	CodeExecutionReverted = 3
)

const revertPrefix = "execution reverted"

// MapError translates an agent or node error into the domain taxonomy. Errors it does not
// recognise are returned unchanged.
func MapError(err error) error {
	if err == nil {
		return nil
	}

	var rpcErr gethrpc.Error
	if errors.As(err, &rpcErr) {
		switch rpcErr.ErrorCode() {
		case CodeUserRejected, CodeUnauthorized:
			return fmt.Errorf("%w: %s", domain.ErrUserRejected, rpcErr.Error())
		case CodeUnrecognizedChain:
			return fmt.Errorf("%w: %s", domain.ErrUnrecognizedChain, rpcErr.Error())
		case CodeDisconnected, CodeChainDisconnected, CodeUnsupportedMethod:
			return fmt.Errorf("%w: %s", domain.ErrNoAgent, rpcErr.Error())
		}
	}

	if revertErr := revertFromError(err); revertErr != nil {
		return revertErr
	}

	if unreachable(err) {
		return fmt.Errorf("%w: %w", domain.ErrNoAgent, err)
	}

	return err
}

// RevertFromData decodes Error(string) and Panic(uint256) payloads. Unknown payloads yield
// an empty reason.
func RevertFromData(data []byte) *domain.RevertError {
	reason, err := abi.UnpackRevert(data)
	if err != nil {
		return &domain.RevertError{}
	}

	return &domain.RevertError{Reason: reason}
}

func revertFromError(err error) *domain.RevertError {
	var dataErr gethrpc.DataError
	if errors.As(err, &dataErr) {
		if data, ok := revertData(dataErr.ErrorData()); ok {
			return RevertFromData(data)
		}
	}

	message := err.Error()
	idx := strings.Index(message, revertPrefix)
	if idx < 0 {
		return nil
	}

	reason := strings.TrimSpace(message[idx+len(revertPrefix):])
	reason = strings.TrimSpace(strings.TrimPrefix(reason, ":"))

	return &domain.RevertError{Reason: reason}
}

func revertData(raw any) ([]byte, bool) {
	switch v := raw.(type) {
	case string:
		data, err := hexutil.Decode(v)
		if err != nil || len(data) == 0 {
			return nil, false
		}
		return data, true
	case map[string]any:
		// some agents nest the node error under data
		if nested, ok := v["data"]; ok {
			return revertData(nested)
		}
	}

	return nil, false
}

func unreachable(err error) bool {
	if errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	var urlErr *url.Error
	return errors.As(err, &urlErr) && !urlErr.Timeout()
}
