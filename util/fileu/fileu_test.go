package fileu_test

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"reduction.dev/lineingest/util/fileu"
)

type fakeS3 struct {
	objects map[string]string
}

func (f fakeS3) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	body, ok := f.objects[aws.ToString(params.Bucket)+"/"+aws.ToString(params.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewBufferString(body))}, nil
}

func TestReadObject(t *testing.T) {
	client := fakeS3{objects: map[string]string{"configs/ingest/prod.json": `{"listener": {}}`}}

	data, err := fileu.ReadObject(context.Background(), client, "s3://configs/ingest/prod.json")
	require.NoError(t, err)
	assert.Equal(t, `{"listener": {}}`, string(data))

	_, err = fileu.ReadObject(context.Background(), client, "s3://configs/missing.json")
	assert.ErrorContains(t, err, "s3://configs/missing.json")
}

func TestParseS3URL(t *testing.T) {
	bucket, key, err := fileu.ParseS3URL("s3://bucket/a/b.json")
	require.NoError(t, err)
	assert.Equal(t, "bucket", bucket)
	assert.Equal(t, "a/b.json", key)

	for _, bad := range []string{"s3://bucket", "s3:///key", "http://bucket/key"} {
		_, _, err := fileu.ParseS3URL(bad)
		assert.Error(t, err, bad)
	}
}

func TestReadFile_LocalPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))

	data, err := fileu.ReadFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))
}
