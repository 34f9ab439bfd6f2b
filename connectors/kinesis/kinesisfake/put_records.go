package kinesisfake

import (
	"crypto/md5"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
)

type PutRecordsRequest struct {
	Records    []*PutRecordsRequestEntry
	StreamARN  string
	StreamName string
}

type PutRecordsRequestEntry struct {
	Data         string
	PartitionKey string
}

type PutRecordsResponseEntry struct {
	ErrorCode      *string `json:",omitempty"`
	ErrorMessage   *string `json:",omitempty"`
	ShardId        string  `json:",omitempty"`
	SequenceNumber string  `json:",omitempty"`
}

type PutRecordsResponse struct {
	FailedRecordCount int
	Records           []*PutRecordsResponseEntry
}

const throttledCode = "ProvisionedThroughputExceededException"

func (f *Fake) putRecords(body []byte) (*PutRecordsResponse, error) {
	var request PutRecordsRequest
	if err := json.Unmarshal(body, &request); err != nil {
		return nil, fmt.Errorf("decode PutRecordsRequest: %w", err)
	}

	streamName := request.StreamName
	if request.StreamARN != "" {
		streamName = streamNameFromARN(request.StreamARN)
	}
	stream := f.streams[streamName]
	if stream == nil {
		return nil, &ResourceNotFoundException{
			message: fmt.Sprintf("Stream %s under account %s not found.", streamName, "123456789012"),
		}
	}

	resp := &PutRecordsResponse{Records: make([]*PutRecordsResponseEntry, len(request.Records))}
	for i, r := range request.Records {
		if f.throttleEntries > 0 {
			f.throttleEntries--
			code, msg := throttledCode, "Rate exceeded for shard"
			resp.Records[i] = &PutRecordsResponseEntry{ErrorCode: &code, ErrorMessage: &msg}
			resp.FailedRecordCount++
			continue
		}

		data, err := base64.StdEncoding.DecodeString(r.Data)
		if err != nil {
			return nil, &InvalidArgumentException{message: fmt.Sprintf("record %d: %v", i, err)}
		}

		shard := pickShard(r.PartitionKey, stream.shards)
		shard.seq++
		seq := strconv.Itoa(shard.seq)
		stream.records = append(stream.records, Record{
			Data:           data,
			PartitionKey:   r.PartitionKey,
			SequenceNumber: seq,
			ShardID:        shard.id,
		})
		resp.Records[i] = &PutRecordsResponseEntry{ShardId: shard.id, SequenceNumber: seq}
	}

	return resp, nil
}

func pickShard(partitionKey string, shards []*shard) *shard {
	hash := md5.Sum([]byte(partitionKey))
	rangeKey := new(big.Int).SetBytes(hash[:])

	for _, s := range shards {
		if s.hashKeyRange.includes(rangeKey) {
			return s
		}
	}
	return shards[0]
}
