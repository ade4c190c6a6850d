// (c) 2019-2020, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package protocol

import (
	"errors"
	"fmt"

	"github.com/ava-labs/ledgervm/state"
)

const (
	ProtocolSpace       uint8 = 1
	ImplementationSpace uint8 = 2

	// Precision is the number of base units in one whole core token.
	Precision uint64 = 100000
	// MaxShareSupply bounds the supply of every asset.
	MaxShareSupply uint64 = 1000000000000000000

	MinAccountNameLength = 5
	MaxAccountNameLength = 63
	MinAssetSymbolLength = 3
	MaxAssetSymbolLength = 16
	MaxAssetPrecision    = 12
	MaxURLLength         = 127
	MinFileNameLength    = 3
	MaxFileNameLength    = 20
	MaxMemoLength        = 2048
)

var (
	AccountClass         = state.Class{Space: ProtocolSpace, Type: 2}
	AssetClass           = state.Class{Space: ProtocolSpace, Type: 3}
	CommitteeMemberClass = state.Class{Space: ProtocolSpace, Type: 5}
	WitnessClass         = state.Class{Space: ProtocolSpace, Type: 6}
	FileClass            = state.Class{Space: ProtocolSpace, Type: 9}
	NHAssetClass         = state.Class{Space: ProtocolSpace, Type: 10}

	GlobalPropertiesClass        = state.Class{Space: ImplementationSpace, Type: 0}
	DynamicGlobalPropertiesClass = state.Class{Space: ImplementationSpace, Type: 1}
	BalanceClass                 = state.Class{Space: ImplementationSpace, Type: 5}
	TransactionRecordClass       = state.Class{Space: ImplementationSpace, Type: 7}

	// Reserved accounts, created at genesis in this order.
	CommitteeAccount        = AccountClass.ID(0)
	RelaxedCommitteeAccount = AccountClass.ID(1)
	WitnessAccount          = AccountClass.ID(2)
	NullAccount             = AccountClass.ID(3)
	TempAccount             = AccountClass.ID(4)

	// CoreAsset pays every fee.
	CoreAsset = AssetClass.ID(0)

	// ErrInvalidOperation marks syntactic failures found without reading state.
	ErrInvalidOperation = errors.New("invalid operation")
)

// Asset is an amount of one asset.
type Asset struct {
	Amount  uint64         `serialize:"true" json:"amount"`
	AssetID state.ObjectID `serialize:"true" json:"assetID"`
}

func (a Asset) String() string { return fmt.Sprintf("%d %s", a.Amount, a.AssetID) }

func invalidf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidOperation, fmt.Sprintf(format, args...))
}

func checkClass(id state.ObjectID, c state.Class, field string) error {
	if id.Class() != c {
		return invalidf("%s %s is not a %s id", field, id, c)
	}
	return nil
}

// IsValidAccountName reports whether [name] is made of dot separated labels
// of at least MinAccountNameLength lowercase letters, digits or dashes, each
// starting with a letter and ending with a letter or digit.
func IsValidAccountName(name string) bool {
	if len(name) < MinAccountNameLength || len(name) > MaxAccountNameLength {
		return false
	}
	begin := 0
	for begin <= len(name) {
		end := begin
		for end < len(name) && name[end] != '.' {
			end++
		}
		if end-begin < MinAccountNameLength {
			return false
		}
		if !isLower(name[begin]) {
			return false
		}
		if last := name[end-1]; !isLower(last) && !isDigit(last) {
			return false
		}
		for i := begin + 1; i < end-1; i++ {
			if c := name[i]; !isLower(c) && !isDigit(c) && c != '-' {
				return false
			}
		}
		begin = end + 1
	}
	return true
}

// IsCheapName reports whether [name] qualifies for the basic account fee:
// it contains a digit, dash or dot, or has no vowels.
func IsCheapName(name string) bool {
	vowel := false
	for i := 0; i < len(name); i++ {
		switch c := name[i]; {
		case isDigit(c), c == '-', c == '.':
			return true
		case c == 'a', c == 'e', c == 'i', c == 'o', c == 'u', c == 'y':
			vowel = true
		}
	}
	return !vowel
}

// IsValidSymbol reports whether [symbol] is an uppercase asset symbol with
// at most one dot, starting and ending with a letter.
func IsValidSymbol(symbol string) bool {
	if len(symbol) < MinAssetSymbolLength || len(symbol) > MaxAssetSymbolLength {
		return false
	}
	if symbol[:3] == "BIT" {
		return false
	}
	if !isUpper(symbol[0]) || !isUpper(symbol[len(symbol)-1]) {
		return false
	}
	dot := false
	for i := 0; i < len(symbol); i++ {
		c := symbol[i]
		switch {
		case isUpper(c), isDigit(c):
		case c == '.' && !dot:
			dot = true
		default:
			return false
		}
	}
	return true
}

// IsValidFileName reports whether [name] has an acceptable length and does
// not start with a digit.
func IsValidFileName(name string) bool {
	if len(name) < MinFileNameLength || len(name) > MaxFileNameLength {
		return false
	}
	return !isDigit(name[0])
}

func isLower(c byte) bool { return c >= 'a' && c <= 'z' }
func isUpper(c byte) bool { return c >= 'A' && c <= 'Z' }
func isDigit(c byte) bool { return c >= '0' && c <= '9' }
