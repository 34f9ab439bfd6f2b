// Package kinesis writes formatted records to an AWS Kinesis data stream.
package kinesis

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/kinesis"
	"github.com/aws/aws-sdk-go-v2/service/kinesis/types"
	"reduction.dev/lineingest/util/httpu"
)

type Client struct {
	svc *kinesis.Client
}

type NewClientParams struct {
	// The kinesis endpoint to use. Normally left blank but used for testing
	// against fake.
	Endpoint string
	Region   string
	// The AWS credentials profile name to use instead of default when credentials
	// falls back to credentials config file.
	Profile     string
	Credentials aws.CredentialsProvider
}

func NewClient(params *NewClientParams) (*Client, error) {
	cfg, err := config.LoadDefaultConfig(context.Background(),
		func(lo *config.LoadOptions) error {
			if params.Region != "" {
				lo.Region = params.Region
			}
			if params.Profile != "" {
				lo.SharedConfigProfile = params.Profile
			}
			if params.Credentials != nil {
				lo.Credentials = params.Credentials
			}
			lo.HTTPClient = httpu.NewClient("kinesis")
			return nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("kinesis load config: %w", err)
	}

	svc := kinesis.NewFromConfig(cfg, func(opts *kinesis.Options) {
		if params.Endpoint != "" {
			opts.BaseEndpoint = aws.String(params.Endpoint)
		}
	})

	return &Client{svc: svc}, nil
}

type Record struct {
	Key  string
	Data []byte
}

// PutRecordBatch writes records to the stream and returns the records
// Kinesis rejected individually, such as throttled entries.
func (c *Client) PutRecordBatch(ctx context.Context, streamARN string, records []Record) ([]Record, error) {
	entries := make([]types.PutRecordsRequestEntry, len(records))
	for i, e := range records {
		entries[i] = types.PutRecordsRequestEntry{Data: e.Data, PartitionKey: aws.String(e.Key)}
	}

	out, err := c.svc.PutRecords(ctx, &kinesis.PutRecordsInput{
		Records:   entries,
		StreamARN: aws.String(streamARN),
	})
	if err != nil {
		return nil, fmt.Errorf("put records: %w", err)
	}

	if aws.ToInt32(out.FailedRecordCount) == 0 {
		return nil, nil
	}
	var failed []Record
	for i, entry := range out.Records {
		if entry.ErrorCode != nil && i < len(records) {
			failed = append(failed, records[i])
		}
	}
	return failed, nil
}

type CreateStreamParams struct {
	StreamName      string
	ShardCount      int
	MaxWaitDuration time.Duration
}

// CreateStream creates a stream, waits for it to become active and returns
// its ARN.
func (c *Client) CreateStream(ctx context.Context, params *CreateStreamParams) (string, error) {
	if _, err := c.svc.CreateStream(ctx, &kinesis.CreateStreamInput{
		StreamName: aws.String(params.StreamName),
		ShardCount: aws.Int32(int32(params.ShardCount)),
	}); err != nil {
		return "", fmt.Errorf("create stream: %w", err)
	}

	describeInput := &kinesis.DescribeStreamInput{StreamName: aws.String(params.StreamName)}
	w := kinesis.NewStreamExistsWaiter(c.svc)
	if err := w.Wait(ctx, describeInput, params.MaxWaitDuration); err != nil {
		return "", fmt.Errorf("create stream waiting: %w", err)
	}

	out, err := c.svc.DescribeStream(ctx, describeInput)
	if err != nil {
		return "", fmt.Errorf("create stream describe stream: %w", err)
	}

	if out.StreamDescription == nil || out.StreamDescription.StreamARN == nil {
		return "", fmt.Errorf("invalid stream description output: %+v", out.StreamDescription)
	}

	return *out.StreamDescription.StreamARN, nil
}

type DeleteStreamParams struct {
	StreamName      string
	MaxWaitDuration time.Duration
}

func (c *Client) DeleteStream(ctx context.Context, params *DeleteStreamParams) error {
	input := &kinesis.DeleteStreamInput{StreamName: aws.String(params.StreamName)}
	if _, err := c.svc.DeleteStream(ctx, input); err != nil {
		return fmt.Errorf("delete stream: %w", err)
	}

	w := kinesis.NewStreamNotExistsWaiter(c.svc)
	if err := w.Wait(
		ctx,
		&kinesis.DescribeStreamInput{StreamName: aws.String(params.StreamName)},
		params.MaxWaitDuration,
		func(o *kinesis.StreamNotExistsWaiterOptions) {
			o.MinDelay = 1 * time.Millisecond
		}); err != nil {
		return fmt.Errorf("delete stream waiting: %w", err)
	}

	return nil
}
