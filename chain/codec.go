// (c) 2019-2020, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"github.com/ava-labs/avalanchego/codec"
	"github.com/ava-labs/avalanchego/codec/linearcodec"
	"github.com/ava-labs/avalanchego/utils/wrappers"
)

const (
	// CodecVersion is the current default codec version
	CodecVersion = 0
)

// Codec encodes the ledger objects held by the object store.
var Codec codec.Manager

func init() {
	c := linearcodec.NewDefault()
	Codec = codec.NewDefaultManager()

	errs := wrappers.Errs{}
	errs.Add(
		c.RegisterType(&Account{}),
		c.RegisterType(&Asset{}),
		c.RegisterType(&Balance{}),
		c.RegisterType(&Witness{}),
		c.RegisterType(&CommitteeMember{}),
		c.RegisterType(&File{}),
		c.RegisterType(&NHAsset{}),
		c.RegisterType(&TransactionRecord{}),
		c.RegisterType(&GlobalProperties{}),
		c.RegisterType(&DynamicGlobalProperties{}),
		Codec.RegisterCodec(CodecVersion, c),
	)
	if errs.Errored() {
		panic(errs.Err)
	}
}
