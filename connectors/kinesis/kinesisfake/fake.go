// Package kinesisfake is an in-memory Kinesis endpoint for tests. It supports
// the operations the kinesis sink uses.
package kinesisfake

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
)

func StartFake() (*httptest.Server, *Fake) {
	fk := &Fake{streams: make(map[string]*stream)}
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		route(fk, w, r)
	})

	return httptest.NewServer(mux), fk
}

func route(f *Fake, w http.ResponseWriter, r *http.Request) {
	target := strings.Split(r.Header.Get("x-amz-target"), ".")
	operation := target[len(target)-1]
	w.Header().Set("Content-Type", "application/x-amz-json-1.1")

	body, err := io.ReadAll(r.Body)
	if err != nil {
		handleError(w, err)
		return
	}
	slog.Debug("kinesisfake request", "op", operation)

	f.mu.Lock()
	defer f.mu.Unlock()

	var resp any
	switch operation {
	case "CreateStream":
		resp, err = f.createStream(body)
	case "DescribeStream":
		resp, err = f.describeStream(body)
	case "DeleteStream":
		resp, err = f.deleteStream(body)
	case "PutRecords":
		resp, err = f.putRecords(body)
	default:
		err = &UnsupportedOperationError{Operation: operation}
	}

	if err != nil {
		handleError(w, err)
		return
	}

	json.NewEncoder(w).Encode(resp)
}

// Record is a record stored by the fake.
type Record struct {
	Data           []byte
	PartitionKey   string
	SequenceNumber string
	ShardID        string
}

type stream struct {
	shards []*shard
	// Records in arrival order across all shards
	records []Record
}

type shard struct {
	id           string
	hashKeyRange hashKeyRange
	seq          int
}

type hashKeyRange struct {
	startingHashKey *big.Int
	endingHashKey   *big.Int
}

func (r hashKeyRange) includes(key *big.Int) bool {
	return r.startingHashKey.Cmp(key) <= 0 && r.endingHashKey.Cmp(key) >= 0
}

type Fake struct {
	mu      sync.Mutex
	streams map[string]*stream
	// Number of upcoming PutRecords entries to reject as throttled
	throttleEntries int
}

// Records returns the records written to a stream in arrival order.
func (f *Fake) Records(streamName string) []Record {
	f.mu.Lock()
	defer f.mu.Unlock()

	s := f.streams[streamName]
	if s == nil {
		return nil
	}
	return slices.Clone(s.records)
}

// ThrottleEntries makes the next n PutRecords entries fail with
// ProvisionedThroughputExceededException.
func (f *Fake) ThrottleEntries(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.throttleEntries = n
}

func arnFromStreamName(streamName string) string {
	return fmt.Sprintf("arn:aws:kinesis:region:123456789012:stream/%s", streamName)
}

func streamNameFromARN(arn string) string {
	parts := strings.Split(arn, "/")
	return parts[len(parts)-1]
}
