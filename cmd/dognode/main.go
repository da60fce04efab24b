// Command dognode runs a single dog protocol node. It is a thin manual-test
// harness, not the benchmark harness the distilled spec excludes from
// scope: no TOML configuration, no JSON result dumps, just enough flags to
// bring up a node and watch it gossip. Adapted from cmd/hop/cli/commit.go's
// ffcli command shape in the myelnet teacher repo.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/informalsystems/libp2p-dog/dog"
	"github.com/informalsystems/libp2p-dog/transport"
	"github.com/peterbourgon/ff/v3/ffcli"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("dognode", flag.ExitOnError)
	var (
		listen           = fs.String("listen", "/ip4/0.0.0.0/tcp/0", "multiaddr to listen on")
		bootstrap        = fs.String("bootstrap", "", "comma-separated bootstrap peer multiaddrs")
		targetRedundancy = fs.Float64("target-redundancy", dog.DefaultConfig().TargetRedundancy, "target duplicate/first-time ratio per link")
		verbose          = fs.Bool("v", false, "debug logging")
	)

	root := &ffcli.Command{
		Name:       "dognode",
		ShortUsage: "dognode [flags]",
		ShortHelp:  "Run a dog transaction dissemination node",
		FlagSet:    fs,
		Exec: func(ctx context.Context, _ []string) error {
			return runNode(ctx, *listen, *bootstrap, *targetRedundancy, *verbose)
		},
	}

	return root.ParseAndRun(context.Background(), args)
}

func runNode(ctx context.Context, listen, bootstrap string, targetRedundancy float64, verbose bool) error {
	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	var bootstrapPeers []string
	if bootstrap != "" {
		bootstrapPeers = strings.Split(bootstrap, ",")
	}

	h, err := transport.NewHost(ctx, transport.Options{
		ListenAddrs:    []string{listen},
		BootstrapPeers: bootstrapPeers,
		EnableDHT:      len(bootstrapPeers) > 0,
		LowWater:       transport.DefaultOptions().LowWater,
		HighWater:      transport.DefaultOptions().HighWater,
		GracePeriod:    transport.DefaultOptions().GracePeriod,
	})
	if err != nil {
		return fmt.Errorf("starting host: %w", err)
	}
	defer h.Close()

	log.Info().Str("peer", h.ID().String()).Interface("addrs", h.Addrs()).Msg("dognode: listening")

	cfg, err := dog.NewConfig(dog.WithTargetRedundancy(targetRedundancy))
	if err != nil {
		return err
	}

	metrics := dog.NewPrometheusMetrics(prometheus.DefaultRegisterer)
	behaviour := dog.New(h, cfg, dog.WithMetrics(metrics), dog.WithLogger(log.Logger))
	defer behaviour.Close()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)

	go func() {
		for ev := range behaviour.Events() {
			switch ev.Kind {
			case dog.EventTransaction:
				log.Info().
					Str("from", ev.Transaction.From.String()).
					Uint64("seqno", ev.Transaction.Seqno).
					Str("tx_id", ev.TransactionId.String()).
					Msg("dognode: received transaction")
			case dog.EventRoutingUpdated:
				log.Info().
					Str("source", ev.Route.Source.String()).
					Str("target", ev.Route.Target.String()).
					Bool("disabled", ev.Disabled).
					Msg("dognode: routing updated")
			}
		}
	}()

	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			line := scanner.Text()
			if line == "" {
				continue
			}
			if err := behaviour.Publish([]byte(line)); err != nil {
				log.Error().Err(err).Msg("dognode: publish failed")
			}
		}
	}()

	<-sigCh
	return nil
}
