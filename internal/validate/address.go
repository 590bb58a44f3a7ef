package validate

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// evmAddressRegex matches a well-formed EVM hex address (0x + 40 hex chars).
var evmAddressRegex = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// Address validates that addr is a well-formed EVM address. All-lower and
// all-upper hex are accepted as-is; mixed case must carry a valid EIP-55 checksum.
func Address(addr string) error {
	slog.Debug("validating address", "address", addr)

	if !evmAddressRegex.MatchString(addr) {
		return fmt.Errorf("invalid address %q: must match 0x + 40 hex characters", addr)
	}

	body := addr[2:]
	if body == strings.ToLower(body) || body == strings.ToUpper(body) {
		return nil
	}

	if common.HexToAddress(addr).Hex() != addr {
		return fmt.Errorf("invalid address %q: EIP-55 checksum mismatch", addr)
	}
	return nil
}

// Checksum returns the EIP-55 representation of a valid hex address.
func Checksum(addr string) string {
	return common.HexToAddress(addr).Hex()
}
