package records_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
	"reduction.dev/lineingest/records"
	"reduction.dev/lineingest/tokenizer"
)

func tokenize(t *testing.T, params tokenizer.Params, maxSize int, input string) []records.Record {
	var out []records.Record
	asm := records.NewAssembler("conn-1", maxSize, func(r records.Record) {
		out = append(out, r)
	})
	tok := tokenizer.New(asm.Handle, params)
	require.NoError(t, tok.Push([]byte(input), len(input), len(input)))
	tok.Process(0, true)
	return out
}

func TestAssemblerRebasesHintsAcrossPieces(t *testing.T) {
	recs := tokenize(t, tokenizer.Params{Features: tokenizer.AllFeatures, MaxRecordSize: 6},
		1024, "a=1,bb=2,$Fcat\n")

	require.Len(t, recs, 1)
	r := recs[0]
	assert.Equal(t, "a=1,bb=2,$Fcat", string(r.Data))
	assert.Equal(t, "conn-1", r.Source)
	for _, off := range r.KV {
		assert.Contains(t, "=,", string(r.Data[off]))
	}
	assert.Equal(t, "$F", string(r.Data[r.Marker-1:r.Marker+1]))
	assert.Equal(t, "cat", r.Category())
	assert.False(t, r.Truncated)
}

func TestAssemblerTruncates(t *testing.T) {
	recs := tokenize(t, tokenizer.Params{Features: tokenizer.AllFeatures, MaxRecordSize: 4},
		6, "k=123456,z=1\nok\n")

	require.Len(t, recs, 2)
	assert.Equal(t, "k=1234", string(recs[0].Data))
	assert.True(t, recs[0].Truncated)
	assert.Equal(t, []int{1}, recs[0].KV)
	assert.Equal(t, "ok", string(recs[1].Data))
	assert.False(t, recs[1].Truncated)
}

func TestAssemblerReset(t *testing.T) {
	var out []records.Record
	asm := records.NewAssembler("", 0, func(r records.Record) { out = append(out, r) })
	tok := tokenizer.New(asm.Handle, tokenizer.Params{MaxRecordSize: 2})
	require.NoError(t, tok.Push([]byte("abc"), 3, 3))
	tok.Process(0, false)
	assert.True(t, asm.Pending())

	asm.Reset()
	tok.Erase()
	assert.False(t, asm.Pending())
	assert.Empty(t, out)
}

func TestPairsWithAndWithoutHints(t *testing.T) {
	data := []byte(`date=2024-01-01,devname="fw,1", msg='a=b',level=warn`)
	want := []records.Pair{
		{Key: "date", Value: "2024-01-01"},
		{Key: "devname", Value: "fw,1"},
		{Key: "msg", Value: "a=b"},
		{Key: "level", Value: "warn"},
	}

	recs := tokenize(t, tokenizer.Params{Features: tokenizer.AllFeatures}, 0, string(data)+"\n")
	require.Len(t, recs, 1)
	require.NotNil(t, recs[0].KV)
	assert.Equal(t, want, recs[0].Pairs())

	unhinted := records.Record{Data: data}
	assert.Equal(t, want, unhinted.Pairs())
}

func TestCategoryWithoutMarker(t *testing.T) {
	assert.Equal(t, "", records.Record{Data: []byte("$Fx")}.Category())
	assert.Equal(t, "x", records.Record{Data: []byte("$Fx y"), Marker: 1}.Category())
}

func TestJSONFormatter(t *testing.T) {
	f, err := records.NewFormatter("json")
	require.NoError(t, err)

	out, err := f.Format(records.Record{
		Source: "conn-1",
		Data:   []byte("$Ftraffic src=1.2.3.4,dst=5.6.7.8"),
		Marker: 1,
		KV:     []int{13, 21, 25},
	})
	require.NoError(t, err)

	var doc structpb.Struct
	require.NoError(t, protojson.Unmarshal(out, &doc))
	m := doc.AsMap()
	assert.Equal(t, "traffic", m["category"])
	assert.Equal(t, "conn-1", m["source"])
	assert.Equal(t, map[string]any{"src": "1.2.3.4", "dst": "5.6.7.8"}, m["fields"])
	assert.True(t, strings.HasPrefix(m["raw"].(string), "$Ftraffic"))
}

func TestRawFormatterAndUnknownFormat(t *testing.T) {
	f, err := records.NewFormatter("raw")
	require.NoError(t, err)
	out, err := f.Format(records.Record{Data: []byte("x")})
	require.NoError(t, err)
	assert.Equal(t, "x", string(out))

	_, err = records.NewFormatter("xml")
	assert.Error(t, err)
}
