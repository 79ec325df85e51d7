package source

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCorpusWriter(t *testing.T) {
	for _, pretty := range []bool{false, true} {
		var buf bytes.Buffer
		cw := NewCorpusWriter(&buf, pretty)
		require.NoError(t, cw.Write("doc_00000000", []string{"a", "b", "a"}))
		require.NoError(t, cw.Write("doc_00000001", nil))
		require.NoError(t, cw.Write("<tag>", []string{"naïve", "c&d"}))
		require.NoError(t, cw.Close())
		require.NoError(t, cw.Close())

		var decoded map[string][]string
		require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
		assert.Equal(t, map[string][]string{
			"doc_00000000": {"a", "b", "a"},
			"doc_00000001": {},
			"<tag>":        {"naïve", "c&d"},
		}, decoded)
		assert.Contains(t, buf.String(), "<tag>")
		assert.Contains(t, buf.String(), "c&d")

		// the streaming reader yields entries in written order
		docs := drain(t, NewJSON(bytes.NewReader(buf.Bytes())))
		require.Len(t, docs, 3)
		assert.Equal(t, "doc_00000000", docs[0].Key)
		assert.Equal(t, "<tag>", docs[2].Key)

		assert.Equal(t, CorpusStats{
			Documents:    3,
			TotalTokens:  5,
			UniqueTokens: 4,
			AvgLength:    5.0 / 3.0,
			MinLength:    0,
			MaxLength:    3,
		}, cw.Stats())

		assert.Error(t, cw.Write("late", []string{"x"}))
	}
}

func TestCorpusWriter_Empty(t *testing.T) {
	var buf bytes.Buffer
	cw := NewCorpusWriter(&buf, true)
	require.NoError(t, cw.Close())
	assert.Equal(t, "{}\n", buf.String())
	assert.Equal(t, CorpusStats{}, cw.Stats())
}
