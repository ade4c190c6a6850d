// (c) 2019-2020, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/viper"

	"github.com/ava-labs/avalanchego/database/memdb"

	log "github.com/inconshreveable/log15"

	"github.com/ava-labs/ledgervm/chain"
	"github.com/ava-labs/ledgervm/config"
)

const (
	Name    = "ledgervm"
	Version = "v0.1.0"

	// metricsEndpoint serves the prometheus metrics of the engine.
	metricsEndpoint = "/ext/metrics"

	shutdownTimeout = 5 * time.Second
)

func main() {
	v, err := getViper()
	if err != nil {
		fmt.Printf("couldn't get config: %s\n", err)
		os.Exit(1)
	}
	// Print version and exit
	if v.GetBool(config.VersionKey) {
		fmt.Printf("%s@%s\n", Name, Version)
		os.Exit(0)
	}

	handler, err := config.Handler(v)
	if err != nil {
		fmt.Printf("couldn't get config: %s\n", err)
		os.Exit(1)
	}
	log.Root().SetHandler(handler)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, v); err != nil {
		log.Error("ledgervm exited with an error", "error", err)
		os.Exit(1)
	}
}

// run serves the ledger until [ctx] is cancelled.
func run(ctx context.Context, v *viper.Viper) error {
	chainConfig, err := config.Chain(v)
	if err != nil {
		return err
	}
	genesis, err := config.Genesis(v)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	engine, err := chain.New(memdb.New(), genesis, chainConfig, log.New("module", "chain"), registry)
	if err != nil {
		return err
	}
	defer engine.Close()

	service, err := chain.NewHandler(engine)
	if err != nil {
		return err
	}
	mux := http.NewServeMux()
	mux.Handle(chain.Endpoint, service)
	mux.Handle(metricsEndpoint, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	server := &http.Server{
		Addr:              v.GetString(config.HTTPAddressKey),
		Handler:           mux,
		ReadHeaderTimeout: shutdownTimeout,
	}
	errs := make(chan error, 1)
	go func() {
		log.Info("serving ledger", "version", Version, "address", server.Addr, "endpoint", chain.Endpoint)
		errs <- server.ListenAndServe()
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
