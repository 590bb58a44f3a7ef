package validate

import (
	"encoding/base32"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
)

const (
	multihashSHA256     = 0x12
	multihashSHA256Size = 0x20
	cidV0Length         = 46
	cidV1Version        = 0x01
)

var cidV1Encoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// MetadataHash validates an IPFS content identifier. CIDv0 (base58btc
// sha2-256 multihash, "Qm...") and lowercase base32 CIDv1 ("b...") are accepted.
func MetadataHash(hash string) error {
	switch {
	case hash == "":
		return fmt.Errorf("invalid metadata hash: empty")
	case strings.HasPrefix(hash, "Qm"):
		return validateCIDv0(hash)
	case strings.HasPrefix(hash, "b"):
		return validateCIDv1(hash)
	default:
		return fmt.Errorf("invalid metadata hash %q: unsupported multibase prefix", hash)
	}
}

// validateCIDv0 decodes the base58 multihash and checks it is a 32-byte sha2-256 digest.
func validateCIDv0(hash string) error {
	if len(hash) != cidV0Length {
		return fmt.Errorf("invalid metadata hash %q: CIDv0 must be %d characters, got %d", hash, cidV0Length, len(hash))
	}
	decoded, err := base58.Decode(hash)
	if err != nil {
		return fmt.Errorf("invalid metadata hash %q: base58 decode failed: %w", hash, err)
	}
	if len(decoded) != 2+multihashSHA256Size || decoded[0] != multihashSHA256 || decoded[1] != multihashSHA256Size {
		return fmt.Errorf("invalid metadata hash %q: not a sha2-256 multihash", hash)
	}
	return nil
}

func validateCIDv1(hash string) error {
	body := hash[1:]
	if body != strings.ToLower(body) {
		return fmt.Errorf("invalid metadata hash %q: base32 CIDv1 must be lowercase", hash)
	}
	decoded, err := cidV1Encoding.DecodeString(strings.ToUpper(body))
	if err != nil {
		return fmt.Errorf("invalid metadata hash %q: base32 decode failed: %w", hash, err)
	}
	if len(decoded) < 4 || decoded[0] != cidV1Version {
		return fmt.Errorf("invalid metadata hash %q: not a version 1 CID", hash)
	}
	return nil
}
