package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/route-beacon/isis-ingester/internal/capture"
	"github.com/route-beacon/isis-ingester/internal/isis"
	"github.com/twmb/franz-go/pkg/kgo"
)

// Reads a capture topic from the beginning and prints one summary per record.
func main() {
	broker := "localhost:29092"
	topic := "isis.pdus"
	if len(os.Args) > 1 {
		broker = os.Args[1]
	}
	if len(os.Args) > 2 {
		topic = os.Args[2]
	}

	cl, err := kgo.NewClient(
		kgo.SeedBrokers(broker),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
		kgo.ConsumerGroup(fmt.Sprintf("isis-decode-%d", time.Now().UnixNano())),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "kafka client: %v\n", err)
		os.Exit(1)
	}
	defer cl.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var total, failed, mismatched int
	for {
		fetches := cl.PollRecords(ctx, 100)
		if fetches.IsClientClosed() || ctx.Err() != nil {
			break
		}

		fetches.EachRecord(func(rec *kgo.Record) {
			total++
			fmt.Printf("=== msg %d (partition=%d offset=%d collector=%s, %d bytes) ===\n",
				total, rec.Partition, rec.Offset, capture.CollectorFromKey(rec.Key), len(rec.Value))
			switch analyze(rec.Value) {
			case resultFailed:
				failed++
			case resultMismatch:
				mismatched++
			}
			fmt.Println()
		})

		if total > 0 && len(fetches.Records()) == 0 {
			break
		}
	}

	fmt.Printf("Total: %d, decode failures: %d, roundtrip mismatches: %d\n", total, failed, mismatched)
}

type result int

const (
	resultOK result = iota
	resultFailed
	resultMismatch
)

func analyze(data []byte) result {
	frame, err := capture.DecodeFrame(data, 0)
	if err != nil {
		fmt.Printf("  frame error: %v\n", err)
		return resultFailed
	}
	pkt, _, err := isis.Parse(frame.PDU)
	if err != nil {
		fmt.Printf("  parse error (%s): %v\n", capture.ErrorReason(err), err)
		return resultFailed
	}

	out, _ := json.MarshalIndent(capture.Summarize(pkt), "  ", "  ")
	fmt.Printf("  %s\n", out)

	if err := capture.VerifyRoundTrip(pkt, frame.PDU); err != nil {
		fmt.Printf("  roundtrip: %v\n", err)
		return resultMismatch
	}
	fmt.Println("  roundtrip: ok")
	return resultOK
}
