package main

import (
	"context"
	"flag"
	"os"

	"github.com/yanun0323/logs"

	"main/internal/chaos"
	"main/internal/recorder"
	"main/internal/schema"
)

// Reads a recorded event stream, injects drops, duplicates, reorders and
// receive delays, and writes the result as a new stream. Replaying the output
// exercises the book's gap detection and rebuild path.
func main() {
	inputDir := flag.String("input-dir", "testdata/wal", "input segment directory")
	inputPrefix := flag.String("input-prefix", "", "input segment file prefix (default: wal)")
	outputDir := flag.String("output-dir", "testdata/wal_chaos", "output segment directory")
	outputPrefix := flag.String("output-prefix", "chaos", "output segment file prefix")
	seed := flag.Int64("seed", 0, "rng seed (0=now)")
	dropRate := flag.Float64("drop-rate", 0, "drop probability [0-1]")
	dupRate := flag.Float64("dup-rate", 0, "duplicate probability [0-1]")
	reorderWindow := flag.Int("reorder-window", 1, "reorder window (>=1)")
	maxDelay := flag.Duration("max-delay", 0, "max receive delay")
	noChecksum := flag.Bool("no-checksum", false, "disable checksum validation")
	maxPayload := flag.Int("max-payload", 0, "max payload size in bytes (0=unlimited)")
	flag.Parse()

	if err := run(
		recorder.PlaybackConfig{
			Dir:             *inputDir,
			FilePrefix:      *inputPrefix,
			DisableChecksum: *noChecksum,
			MaxPayloadSize:  *maxPayload,
		},
		chaos.Config{
			Seed:          *seed,
			DropRate:      *dropRate,
			DuplicateRate: *dupRate,
			ReorderWindow: *reorderWindow,
			MaxDelay:      *maxDelay,
		},
		*outputDir, *outputPrefix,
	); err != nil {
		logs.Errorf("chaos rewrite failed, err: %+v", err)
		os.Exit(1)
	}
}

func run(in recorder.PlaybackConfig, faults chaos.Config, outDir, outPrefix string) error {
	pb, err := recorder.NewPlayback(in)
	if err != nil {
		return err
	}

	engine, err := chaos.NewEngine(faults)
	if err != nil {
		return err
	}

	outCfg := recorder.DefaultConfig(outDir)
	outCfg.FilePrefix = outPrefix
	outCfg.CopyPayload = true
	writer, err := recorder.NewWriter(outCfg)
	if err != nil {
		return err
	}

	ctx := context.Background()
	if err := writer.Start(ctx); err != nil {
		return err
	}

	appendAll := func(events []chaos.Event) error {
		for _, out := range events {
			if err := writer.TryAppend(out.Meta, out.Payload); err != nil {
				return err
			}
		}
		return nil
	}

	err = pb.Run(ctx, func(meta schema.EventMeta, payload []byte) error {
		return appendAll(engine.Process(chaos.Event{Meta: meta, Payload: clone(payload)}))
	})
	if err != nil {
		return err
	}
	if err := appendAll(engine.Flush()); err != nil {
		return err
	}
	return writer.Close()
}

// clone detaches the payload from the playback read buffer; events can sit in
// the reorder window across reads.
func clone(payload []byte) []byte {
	if len(payload) == 0 {
		return nil
	}
	cp := make([]byte, len(payload))
	copy(cp, payload)
	return cp
}
