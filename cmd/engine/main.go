package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	pyroscope "github.com/grafana/pyroscope-go"
	"github.com/yanun0323/logs"

	"main/internal/codec"
	"main/internal/engine"
	"main/internal/ingest"
	"main/internal/ingest/binance"
	"main/internal/ingest/btcc"
	"main/internal/mdg"
	"main/internal/obs"
	"main/internal/oms"
	delegator "main/internal/oms/delegator/btcc"
	"main/internal/ops"
	"main/internal/position"
	"main/internal/recorder"
	"main/internal/ring"
	"main/internal/schema"
	"main/pkg/conn"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("engine: %v", err)
	}
}

func run() error {
	configPath := flag.String("config", "", "Path to JSON config")
	devMode := flag.Bool("dev", false, "Use venue UAT endpoints")
	snapshotPath := flag.String("snapshot-path", "", "Write a balance snapshot here on shutdown")

	replayDir := flag.String("replay-dir", "", "Replay a recorded WAL instead of connecting to venues")
	replayPrefix := flag.String("replay-prefix", "", "WAL file prefix (default: wal)")
	replaySpeed := flag.Float64("replay-speed", 0, "Playback speed (1=real-time, 0=no pacing)")
	replayNoChecksum := flag.Bool("replay-no-checksum", false, "Disable checksum validation")
	flag.Parse()

	if *configPath == "" {
		return fmt.Errorf("missing config; use -config")
	}
	loaded, err := ops.Load(*configPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if loaded.Profiling.Enabled {
		profiler, err := pyroscope.Start(pyroscope.Config{
			ApplicationName: loaded.Profiling.Application,
			ServerAddress:   loaded.Profiling.ServerAddress,
			ProfileTypes: []pyroscope.ProfileType{
				pyroscope.ProfileCPU,
				pyroscope.ProfileAllocObjects,
				pyroscope.ProfileAllocSpace,
				pyroscope.ProfileInuseObjects,
				pyroscope.ProfileInuseSpace,
			},
		})
		if err != nil {
			return fmt.Errorf("pyroscope start failed: %w", err)
		}
		defer func() {
			_ = profiler.Stop()
		}()
	}

	if loaded.Database != nil {
		client, err := conn.New(*loaded.Database)
		if err != nil {
			return fmt.Errorf("connect account store: %w", err)
		}
		defer client.Close()
		if err := client.Ping(ctx); err != nil {
			return fmt.Errorf("ping account store: %w", err)
		}

		store := position.NewAccountStore(client)
		if err := store.ResolveAccounts(ctx, loaded.Registry); err != nil {
			return fmt.Errorf("resolve accounts: %w", err)
		}
	}

	if *replayDir != "" {
		return runReplay(ctx, loaded, recorder.PlaybackConfig{
			Dir:             *replayDir,
			FilePrefix:      *replayPrefix,
			Speed:           *replaySpeed,
			DisableChecksum: *replayNoChecksum,
		}, *snapshotPath)
	}
	return runLive(ctx, loaded, *devMode, *snapshotPath)
}

func runLive(ctx context.Context, loaded ops.Loaded, devMode bool, snapshotPath string) error {
	metrics := obs.NewMetrics()
	r := ring.New(loaded.RingCapacity)
	pub := ingest.NewPublisher(r, metrics)

	transport, err := buildTransport(loaded, pub, devMode)
	if err != nil {
		return err
	}
	gateway := oms.NewAsyncGateway(transport, loaded.Gateway.Workers, loaded.Gateway.QueueCap)
	gateway.Run(ctx)

	var writer *recorder.Writer
	if loaded.Recorder != nil {
		var err error
		writer, err = recorder.NewWriter(*loaded.Recorder)
		if err != nil {
			return err
		}
		if err := writer.Start(ctx); err != nil {
			return err
		}
		defer writer.Close()
	}

	e, err := engine.New(loaded, gateway, metrics, writer)
	if err != nil {
		return err
	}

	connectors, err := buildConnectors(ctx, loaded.Registry, pub, devMode)
	if err != nil {
		return err
	}
	for _, c := range connectors {
		if err := c.Start(ctx); err != nil {
			return fmt.Errorf("start connector venue=%d: %w", c.Venue(), err)
		}
		defer c.Close()
	}

	logs.Infof("engine up, %d connectors, ring capacity %d", len(connectors), loaded.RingCapacity)
	e.Dispatcher().Run(ctx, r)
	e.Wait()

	if snapshotPath != "" {
		if err := position.WriteSnapshot(snapshotPath, e.Balances.Snapshot()); err != nil {
			return fmt.Errorf("write balance snapshot: %w", err)
		}
		logs.Infof("balance snapshot written to %s", snapshotPath)
	}
	return nil
}

// runReplay feeds a recorded WAL through the full pipeline with no venue
// connections and no strategy, then optionally verifies the rebuilt balances
// against a snapshot taken at record time.
func runReplay(ctx context.Context, loaded ops.Loaded, cfg recorder.PlaybackConfig, snapshotPath string) error {
	loaded.Quotes = nil
	e, err := engine.New(loaded, engine.NopGateway{}, obs.NewMetrics(), nil)
	if err != nil {
		return err
	}

	playback, err := recorder.NewPlayback(cfg)
	if err != nil {
		return err
	}

	d := e.Dispatcher()
	rec := &schema.EventRecord{}
	var count int
	start := time.Now()
	err = playback.Run(ctx, func(meta schema.EventMeta, payload []byte) error {
		rec.Reset()
		if !codec.DecodePayload(meta.Kind, payload, rec) {
			return fmt.Errorf("decode payload kind=%d seq=%d", meta.Kind, meta.Seq)
		}
		rec.Meta = meta
		d.Handle(ctx, rec)
		count++
		return nil
	})
	if err != nil {
		return fmt.Errorf("replay: %w", err)
	}
	logs.Infof("replayed %d events in %s", count, time.Since(start).Round(time.Millisecond))

	if snapshotPath != "" {
		expected, err := position.ReadSnapshot(snapshotPath)
		if err != nil {
			return fmt.Errorf("read snapshot: %w", err)
		}
		if err := position.CompareSnapshots(expected, e.Balances.Snapshot()); err != nil {
			return fmt.Errorf("snapshot mismatch: %w", err)
		}
		logs.Info("balances match the recorded snapshot")
	}
	return nil
}

// buildTransport selects where order flow goes: the local paper acker or a
// venue REST delegator.
func buildTransport(loaded ops.Loaded, pub *ingest.Publisher, devMode bool) (oms.Transport, error) {
	switch strings.ToLower(loaded.Gateway.Mode) {
	case "", "paper":
		return &paperTransport{pub: pub}, nil
	case "btcc":
		if loaded.Gateway.AccessID == "" || loaded.Gateway.Secret == "" {
			return nil, fmt.Errorf("gateway mode btcc needs accessId and secret")
		}
		return delegator.NewDelegator(http.DefaultClient, loaded.Registry,
			loaded.Gateway.AccessID, loaded.Gateway.Secret, devMode), nil
	default:
		return nil, fmt.Errorf("unknown gateway mode %q", loaded.Gateway.Mode)
	}
}

// buildConnectors picks a feed per registered venue by name.
func buildConnectors(ctx context.Context, reg *schema.Registry, pub *ingest.Publisher, devMode bool) ([]ingest.Connector, error) {
	var connectors []ingest.Connector
	for id := schema.VenueID(1); ; id++ {
		venue, ok := reg.Venue(id)
		if !ok {
			break
		}
		switch strings.ToLower(venue.Name) {
		case "binance":
			connectors = append(connectors, binance.NewFeed(ctx, id, reg, pub))
		case "btcc":
			connectors = append(connectors, btcc.NewFeed(ctx, id, reg, pub, devMode))
		case "synthetic":
			feed, err := mdg.NewFeed(id, reg, pub, mdg.Config{})
			if err != nil {
				return nil, fmt.Errorf("synthetic feed venue=%d: %w", id, err)
			}
			connectors = append(connectors, feed)
		default:
			return nil, fmt.Errorf("no connector for venue %q", venue.Name)
		}
	}
	return connectors, nil
}

// paperTransport acks order commands locally instead of sending them to a
// venue: a paper session for strategy and pipeline shakeout. New orders come
// back acked, cancels come back canceled.
type paperTransport struct {
	pub *ingest.Publisher
}

func (t *paperTransport) Execute(ctx context.Context, cmd oms.OrderCommand) error {
	status := schema.OrderStatusNew
	if cmd.IsCancel() {
		status = schema.OrderStatusCanceled
	}

	t.pub.Publish(func(rec *schema.EventRecord) {
		rec.Meta = schema.EventMeta{
			Kind:    schema.EventExecution,
			Venue:   cmd.Venue,
			Symbol:  cmd.Symbol,
			Account: cmd.Account,
			TsRecv:  time.Now().UnixNano(),
		}
		rec.Exec = schema.ExecPayload{
			ClientHash: oms.HashClientID(cmd.ClientID),
			Side:       cmd.Side,
			Type:       cmd.Type,
			Status:     status,
		}
	})
	return nil
}

func (t *paperTransport) ExecuteTransfer(ctx context.Context, cmd oms.TransferCommand) error {
	t.pub.Publish(func(rec *schema.EventRecord) {
		rec.Meta = schema.EventMeta{
			Kind:    schema.EventTransfer,
			Account: cmd.To,
			TsRecv:  time.Now().UnixNano(),
		}
		rec.Transfer = schema.TransferPayload{
			Asset:     cmd.Asset,
			Amount:    cmd.Amount,
			Direction: schema.TransferCredit,
		}
	})
	return nil
}
