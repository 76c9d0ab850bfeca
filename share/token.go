package share

import (
	"fmt"
	"strings"

	"github.com/btcsuite/btcutil/base58"

	"github.com/privycredit/privycredit/utils"
)

const (
	tokenVer    = 0x01
	tokenPrefix = "pc"
	tokenBytes  = 16
)

// NewToken mints an opaque share token: random bytes, check-encoded with a
// version byte so typos fail decoding instead of resolving to nothing.
func NewToken() string {
	return tokenPrefix + base58.CheckEncode(utils.RandBytes(tokenBytes), tokenVer)
}

func DecodeToken(tok string) ([]byte, error) {
	if !strings.HasPrefix(tok, tokenPrefix) {
		return nil, fmt.Errorf("wrong prefix: got(%s)", tok)
	}
	bz, _ver, err := base58.CheckDecode(tok[len(tokenPrefix):])
	if err != nil {
		return nil, err
	}
	if _ver != tokenVer {
		return nil, fmt.Errorf("wrong version: expected(%d), got(%d)", tokenVer, _ver)
	}
	return bz, nil
}

// IsToken reports whether s is a well-formed share token as opposed to a raw
// proof id.
func IsToken(s string) bool {
	_, err := DecodeToken(s)
	return err == nil
}
