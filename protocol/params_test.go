// (c) 2019-2020, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package protocol

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChainParametersValidate(t *testing.T) {
	defaults := DefaultChainParameters()
	assert.NoError(t, defaults.Validate())

	tests := []struct {
		name   string
		modify func(*ChainParameters)
	}{
		{name: "no authority depth", modify: func(p *ChainParameters) { p.MaxAuthorityDepth = 0 }},
		{name: "no transaction size", modify: func(p *ChainParameters) { p.MaxTransactionSize = 0 }},
		{name: "no operations", modify: func(p *ChainParameters) { p.MaxOperations = 0 }},
		{name: "no block interval", modify: func(p *ChainParameters) { p.BlockInterval = 0 }},
		{name: "short maintenance interval", modify: func(p *ChainParameters) { p.MaintenanceInterval = p.BlockInterval - 1 }},
		{name: "too many witnesses", modify: func(p *ChainParameters) { p.WitnessCount = MaxWitnessCount + 1 }},
		{name: "huge witness count", modify: func(p *ChainParameters) { p.WitnessCount = math.MaxUint16 }},
		{name: "too many committee members", modify: func(p *ChainParameters) { p.CommitteeCount = MaxCommitteeCount + 1 }},
		{name: "huge committee count", modify: func(p *ChainParameters) { p.CommitteeCount = math.MaxUint16 }},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			p := DefaultChainParameters()
			test.modify(&p)
			assert.ErrorIs(t, p.Validate(), errInvalidParameters)
		})
	}

	p := DefaultChainParameters()
	p.WitnessCount = MaxWitnessCount
	p.CommitteeCount = MaxCommitteeCount
	assert.NoError(t, p.Validate())
}
