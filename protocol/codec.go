// (c) 2019-2020, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package protocol

import (
	"github.com/ava-labs/avalanchego/codec"
	"github.com/ava-labs/avalanchego/codec/linearcodec"
	"github.com/ava-labs/avalanchego/utils/wrappers"
)

const (
	// CodecVersion is the current default codec version
	CodecVersion = 0
)

// Codecs do serialization and deserialization
var (
	Codec codec.Manager
)

func init() {
	c := linearcodec.NewDefault()
	Codec = codec.NewDefaultManager()

	errs := wrappers.Errs{}

	// The registration order fixes each operation's wire tag. Append only.
	errs.Add(
		c.RegisterType(&Transfer{}),
		c.RegisterType(&AccountCreate{}),
		c.RegisterType(&AccountUpdate{}),
		c.RegisterType(&AssetCreate{}),
		c.RegisterType(&AssetIssue{}),
		c.RegisterType(&WitnessCreate{}),
		c.RegisterType(&WitnessUpdate{}),
		c.RegisterType(&CommitteeMemberCreate{}),
		c.RegisterType(&FileCreate{}),
		c.RegisterType(&FileAddRelatedAccounts{}),
		c.RegisterType(&FileSign{}),
		c.RegisterType(&FileRelateParent{}),
		c.RegisterType(&NHAssetCreate{}),
		c.RegisterType(&NHAssetTransfer{}),
		c.RegisterType(&NHAssetDelete{}),
	)

	errs.Add(
		Codec.RegisterCodec(CodecVersion, c),
	)
	if errs.Errored() {
		panic(errs.Err)
	}
}

// EncodedSize returns the number of bytes [v] occupies on the wire.
func EncodedSize(v interface{}) (uint64, error) {
	bytes, err := Codec.Marshal(CodecVersion, v)
	if err != nil {
		return 0, err
	}
	return uint64(len(bytes)), nil
}
