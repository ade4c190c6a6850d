// (c) 2019-2020, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"os"

	"github.com/spf13/viper"

	"github.com/ava-labs/ledgervm/config"
)

// getViper returns the viper environment for the ledgervm binary
func getViper() (*viper.Viper, error) {
	return config.BuildViper(config.BuildFlagSet(), os.Args[1:])
}
