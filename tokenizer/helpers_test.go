package tokenizer_test

import (
	"strings"

	"reduction.dev/lineingest/tokenizer"
)

// emission is an owned copy of a tokenizer.Record.
type emission struct {
	data   string
	kv     []int
	marker int
	more   bool
}

type collector struct {
	emissions []emission
}

func (c *collector) handle(r tokenizer.Record) {
	e := emission{data: string(r.Bytes()), marker: r.Marker, more: r.More}
	if r.KV != nil {
		e.kv = r.KV.Ints()
	}
	c.emissions = append(c.emissions, e)
}

// records joins the emissions of each record.
func (c *collector) records() []string {
	var ret []string
	var sb strings.Builder
	for _, e := range c.emissions {
		sb.WriteString(e.data)
		if !e.more {
			ret = append(ret, sb.String())
			sb.Reset()
		}
	}
	return ret
}

func (c *collector) data() []string {
	ret := make([]string, len(c.emissions))
	for i, e := range c.emissions {
		ret[i] = e.data
	}
	return ret
}

func newTokenizer(params tokenizer.Params) (*tokenizer.Tokenizer, *collector) {
	c := &collector{}
	return tokenizer.New(c.handle, params), c
}

func pushString(tok *tokenizer.Tokenizer, s string) error {
	return tok.Push([]byte(s), len(s), tokenizer.CountChars([]byte(s)))
}
