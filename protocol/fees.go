// (c) 2019-2020, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package protocol

import (
	"fmt"

	safemath "github.com/ava-labs/avalanchego/utils/math"
)

// FeeParameters prices an operation as Fee plus PricePerKByte per kilobyte
// of its payload.
type FeeParameters struct {
	Fee           uint64 `serialize:"true" json:"fee"`
	PricePerKByte uint64 `serialize:"true" json:"pricePerKByte"`
}

type AccountCreateFeeParameters struct {
	BasicFee      uint64 `serialize:"true" json:"basicFee"`
	PremiumFee    uint64 `serialize:"true" json:"premiumFee"`
	PricePerKByte uint64 `serialize:"true" json:"pricePerKByte"`
}

type AssetCreateFeeParameters struct {
	Symbol3       uint64 `serialize:"true" json:"symbol3"`
	Symbol4       uint64 `serialize:"true" json:"symbol4"`
	LongSymbol    uint64 `serialize:"true" json:"longSymbol"`
	PricePerKByte uint64 `serialize:"true" json:"pricePerKByte"`
}

type FileAddRelatedFeeParameters struct {
	Fee                    uint64 `serialize:"true" json:"fee"`
	PricePerRelatedAccount uint64 `serialize:"true" json:"pricePerRelatedAccount"`
}

// FeeSchedule holds one fee parameter record per operation.
type FeeSchedule struct {
	Transfer               FeeParameters               `serialize:"true" json:"transfer"`
	AccountCreate          AccountCreateFeeParameters  `serialize:"true" json:"accountCreate"`
	AccountUpdate          FeeParameters               `serialize:"true" json:"accountUpdate"`
	AssetCreate            AssetCreateFeeParameters    `serialize:"true" json:"assetCreate"`
	AssetIssue             FeeParameters               `serialize:"true" json:"assetIssue"`
	WitnessCreate          FeeParameters               `serialize:"true" json:"witnessCreate"`
	WitnessUpdate          FeeParameters               `serialize:"true" json:"witnessUpdate"`
	CommitteeMemberCreate  FeeParameters               `serialize:"true" json:"committeeMemberCreate"`
	FileCreate             FeeParameters               `serialize:"true" json:"fileCreate"`
	FileAddRelatedAccounts FileAddRelatedFeeParameters `serialize:"true" json:"fileAddRelatedAccounts"`
	FileSign               FeeParameters               `serialize:"true" json:"fileSign"`
	FileRelateParent       FeeParameters               `serialize:"true" json:"fileRelateParent"`
	NHAssetCreate          FeeParameters               `serialize:"true" json:"nhAssetCreate"`
	NHAssetTransfer        FeeParameters               `serialize:"true" json:"nhAssetTransfer"`
	NHAssetDelete          FeeParameters               `serialize:"true" json:"nhAssetDelete"`
}

// DefaultFeeSchedule returns the schedule used when genesis sets none.
func DefaultFeeSchedule() FeeSchedule {
	standard := FeeParameters{Fee: Precision, PricePerKByte: Precision}
	return FeeSchedule{
		Transfer: FeeParameters{Fee: 20 * Precision / 100, PricePerKByte: Precision},
		AccountCreate: AccountCreateFeeParameters{
			BasicFee:      5 * Precision,
			PremiumFee:    200 * Precision,
			PricePerKByte: Precision,
		},
		AccountUpdate: FeeParameters{Fee: 20 * Precision / 100, PricePerKByte: Precision},
		AssetCreate: AssetCreateFeeParameters{
			Symbol3:       5000 * Precision,
			Symbol4:       3000 * Precision,
			LongSymbol:    500 * Precision,
			PricePerKByte: 10 * Precision,
		},
		AssetIssue:            standard,
		WitnessCreate:         FeeParameters{Fee: 5000 * Precision},
		WitnessUpdate:         FeeParameters{Fee: 20 * Precision / 100},
		CommitteeMemberCreate: FeeParameters{Fee: 5000 * Precision},
		FileCreate:            standard,
		FileAddRelatedAccounts: FileAddRelatedFeeParameters{
			Fee:                    Precision,
			PricePerRelatedAccount: Precision,
		},
		FileSign:         standard,
		FileRelateParent: FeeParameters{Fee: Precision},
		NHAssetCreate:    standard,
		NHAssetTransfer:  FeeParameters{Fee: Precision},
		NHAssetDelete:    FeeParameters{Fee: Precision},
	}
}

// DataFee prices [size] bytes at [pricePerKByte].
func DataFee(size, pricePerKByte uint64) (uint64, error) {
	fee, err := safemath.Mul64(size, pricePerKByte)
	if err != nil {
		return 0, fmt.Errorf("%w: data fee of %d bytes overflows", ErrInvalidOperation, size)
	}
	return fee / 1024, nil
}

// CalculateFee returns the core asset fee of [op] under [schedule]. The fee
// only grows with the size of the payload it is charged for.
func CalculateFee(op Operation, schedule *FeeSchedule) (uint64, error) {
	switch op := op.(type) {
	case *Transfer:
		return withDataFee(schedule.Transfer.Fee, uint64(len(op.Memo)), schedule.Transfer.PricePerKByte)
	case *AccountCreate:
		base := schedule.AccountCreate.BasicFee
		if !IsCheapName(op.Name) {
			base = schedule.AccountCreate.PremiumFee
		}
		size, err := EncodedSize(op)
		if err != nil {
			return 0, err
		}
		return withDataFee(base, size, schedule.AccountCreate.PricePerKByte)
	case *AccountUpdate:
		if !op.UpdateOptions {
			return schedule.AccountUpdate.Fee, nil
		}
		size, err := EncodedSize(op)
		if err != nil {
			return 0, err
		}
		return withDataFee(schedule.AccountUpdate.Fee, size, schedule.AccountUpdate.PricePerKByte)
	case *AssetCreate:
		var base uint64
		switch len(op.Symbol) {
		case 3:
			base = schedule.AssetCreate.Symbol3
		case 4:
			base = schedule.AssetCreate.Symbol4
		default:
			base = schedule.AssetCreate.LongSymbol
		}
		size, err := EncodedSize(op)
		if err != nil {
			return 0, err
		}
		return withDataFee(base, size, schedule.AssetCreate.PricePerKByte)
	case *AssetIssue:
		return withDataFee(schedule.AssetIssue.Fee, uint64(len(op.Memo)), schedule.AssetIssue.PricePerKByte)
	case *WitnessCreate:
		return schedule.WitnessCreate.Fee, nil
	case *WitnessUpdate:
		return schedule.WitnessUpdate.Fee, nil
	case *CommitteeMemberCreate:
		return schedule.CommitteeMemberCreate.Fee, nil
	case *FileCreate:
		return withDataFee(schedule.FileCreate.Fee, uint64(len(op.Content)), schedule.FileCreate.PricePerKByte)
	case *FileAddRelatedAccounts:
		perAccount, err := safemath.Mul64(uint64(len(op.Related)), schedule.FileAddRelatedAccounts.PricePerRelatedAccount)
		if err != nil {
			return 0, fmt.Errorf("%w: related account fee overflows", ErrInvalidOperation)
		}
		return add(schedule.FileAddRelatedAccounts.Fee, perAccount)
	case *FileSign:
		return withDataFee(schedule.FileSign.Fee, uint64(len(op.Signature)), schedule.FileSign.PricePerKByte)
	case *FileRelateParent:
		return schedule.FileRelateParent.Fee, nil
	case *NHAssetCreate:
		return withDataFee(schedule.NHAssetCreate.Fee, uint64(len(op.BaseDescribe)), schedule.NHAssetCreate.PricePerKByte)
	case *NHAssetTransfer:
		return schedule.NHAssetTransfer.Fee, nil
	case *NHAssetDelete:
		return schedule.NHAssetDelete.Fee, nil
	default:
		return 0, fmt.Errorf("%w: unknown operation %T", ErrInvalidOperation, op)
	}
}

func withDataFee(base, size, pricePerKByte uint64) (uint64, error) {
	data, err := DataFee(size, pricePerKByte)
	if err != nil {
		return 0, err
	}
	return add(base, data)
}

func add(a, b uint64) (uint64, error) {
	sum, err := safemath.Add64(a, b)
	if err != nil {
		return 0, fmt.Errorf("%w: fee overflows", ErrInvalidOperation)
	}
	return sum, nil
}
