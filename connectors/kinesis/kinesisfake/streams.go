package kinesisfake

import (
	"encoding/json"
	"fmt"
	"math/big"
)

type CreateStreamRequest struct {
	ShardCount int64
	StreamName string
}

type CreateStreamResponse struct{}

func (f *Fake) createStream(body []byte) (*CreateStreamResponse, error) {
	var request CreateStreamRequest
	if err := json.Unmarshal(body, &request); err != nil {
		return nil, err
	}
	if _, ok := f.streams[request.StreamName]; ok {
		return nil, &ResourceInUseException{message: fmt.Sprintf("Stream %s already exists", request.StreamName)}
	}
	if request.ShardCount <= 0 {
		request.ShardCount = 1
	}

	f.streams[request.StreamName] = &stream{shards: createShards(request.ShardCount)}
	return &CreateStreamResponse{}, nil
}

// createShards divides the 128-bit hash key space evenly between count shards.
func createShards(count int64) []*shard {
	shards := make([]*shard, count)
	keySpace := new(big.Int).Exp(big.NewInt(2), big.NewInt(128), nil)
	keySpace.Sub(keySpace, big.NewInt(1))
	shardRange := new(big.Int).Div(keySpace, big.NewInt(count))

	for i := range int(count) {
		start := new(big.Int).Mul(shardRange, big.NewInt(int64(i)))
		end := new(big.Int).Sub(new(big.Int).Add(start, shardRange), big.NewInt(1))
		if i == int(count)-1 {
			end = keySpace
		}
		shards[i] = &shard{
			id:           fmt.Sprintf("shardId-%012d", i),
			hashKeyRange: hashKeyRange{startingHashKey: start, endingHashKey: end},
		}
	}
	return shards
}

type DescribeStreamRequest struct {
	StreamName string
}

type DescribeStreamResponse struct {
	StreamDescription StreamDescription
}

type HashKeyRange struct {
	StartingHashKey string
	EndingHashKey   string
}

type Shard struct {
	HashKeyRange HashKeyRange
	ShardId      string
}

type StreamDescription struct {
	HasMoreShards bool
	Shards        []Shard
	StreamARN     string
	StreamName    string
	StreamStatus  string
}

func (f *Fake) describeStream(body []byte) (*DescribeStreamResponse, error) {
	var request DescribeStreamRequest
	if err := json.Unmarshal(body, &request); err != nil {
		return nil, err
	}

	stream := f.streams[request.StreamName]
	if stream == nil {
		return nil, &ResourceNotFoundException{}
	}

	shards := make([]Shard, len(stream.shards))
	for i, s := range stream.shards {
		shards[i] = Shard{
			ShardId: s.id,
			HashKeyRange: HashKeyRange{
				StartingHashKey: s.hashKeyRange.startingHashKey.String(),
				EndingHashKey:   s.hashKeyRange.endingHashKey.String(),
			},
		}
	}
	return &DescribeStreamResponse{
		StreamDescription: StreamDescription{
			Shards:       shards,
			StreamName:   request.StreamName,
			StreamStatus: "ACTIVE",
			StreamARN:    arnFromStreamName(request.StreamName),
		},
	}, nil
}

type DeleteStreamRequest struct {
	StreamName string
}

type DeleteStreamResponse struct{}

func (f *Fake) deleteStream(body []byte) (*DeleteStreamResponse, error) {
	var request DeleteStreamRequest
	if err := json.Unmarshal(body, &request); err != nil {
		return nil, err
	}
	if _, ok := f.streams[request.StreamName]; !ok {
		return nil, &ResourceNotFoundException{}
	}

	delete(f.streams, request.StreamName)
	return &DeleteStreamResponse{}, nil
}
