package segment

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/bm25comp/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/bm25comp/pkg/errors"
)

func buildIndex(docs ...[]string) *index.Index {
	m := index.NewMemoryIndex()
	for i, tokens := range docs {
		m.AddDocument(fmt.Sprintf("doc%d", i+1), tokens)
	}
	return m.Finalize(index.DefaultK1, index.DefaultB)
}

func encode(t *testing.T, ix *index.Index) []byte {
	t.Helper()
	var buf bytes.Buffer
	n, err := Encode(&buf, ix)
	require.NoError(t, err)
	require.Equal(t, int64(buf.Len()), n)
	return buf.Bytes()
}

func TestEncode_ExactLayout(t *testing.T) {
	m := index.NewMemoryIndex()
	m.AddDocument("a", []string{"x"})
	ix := m.Finalize(1.5, 0.75)

	u32 := func(v uint32) []byte { return binary.BigEndian.AppendUint32(nil, v) }
	var want []byte
	for _, part := range [][]byte{
		u32(0x424D3235), u32(1),
		u32(0x3FC00000), u32(0x3F400000), u32(0x3F800000), // 1.5, 0.75, 1.0
		u32(1), u32(1),
		u32(1), u32(0), u32(1), []byte("a"),
		u32(1), u32(0), u32(1),
		u32(1), []byte("x"), u32(1), u32(0), u32(1),
	} {
		want = append(want, part...)
	}

	assert.Equal(t, want, encode(t, ix))
}

func TestEncode_IsDeterministic(t *testing.T) {
	docs := [][]string{
		{"machine", "learning", "algorithms"},
		{"deep", "learning", "neural", "networks"},
		{"machine", "vision", "systems"},
	}
	first := encode(t, buildIndex(docs...))
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, encode(t, buildIndex(docs...)))
	}
}

func TestDecode_RoundTrip(t *testing.T) {
	ix := buildIndex(
		[]string{"the", "quick", "brown", "fox"},
		[]string{"the", "lazy", "dog"},
		nil,
		[]string{"ünïcödé", "the", "the"},
	)
	got, err := Decode(bytes.NewReader(encode(t, ix)))
	require.NoError(t, err)

	assert.Equal(t, ix.NumDocs, got.NumDocs)
	assert.Equal(t, ix.Keys, got.Keys)
	assert.Equal(t, ix.DocLengths, got.DocLengths)
	assert.Equal(t, ix.Postings, got.Postings)
	assert.Equal(t, float64(float32(ix.K1)), got.K1)
	assert.Equal(t, float64(float32(ix.B)), got.B)
	assert.Equal(t, float64(float32(ix.AvgDocLength)), got.AvgDocLength)
}

func TestDecode_RejectsEveryTruncation(t *testing.T) {
	data := encode(t, buildIndex([]string{"hello", "world"}, []string{"world", "peace"}))
	for n := 0; n < len(data); n++ {
		_, err := Decode(bytes.NewReader(data[:n]))
		require.Error(t, err, "prefix of %d bytes", n)
		assert.True(t, errors.Is(err, apperrors.ErrFormat), "prefix %d: %v", n, err)
	}
}

func TestDecode_RejectsMalformedInput(t *testing.T) {
	valid := encode(t, buildIndex([]string{"a", "b"}, []string{"b"}))

	patch := func(offset int, v uint32) []byte {
		out := bytes.Clone(valid)
		binary.BigEndian.PutUint32(out[offset:], v)
		return out
	}

	tests := []struct {
		name string
		data []byte
		msg  string
	}{
		{"bad magic", patch(0, 0xDEADBEEF), "magic"},
		{"bad version", patch(4, 2), "version 2"},
		{"trailing bytes", append(bytes.Clone(valid), 0), "trailing"},
		{"extra term declared", patch(24, 3), "truncated"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(bytes.NewReader(tt.data))
			require.ErrorIs(t, err, apperrors.ErrFormat)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestDecode_RejectsInvalidUTF8AndUnsortedPostings(t *testing.T) {
	bad := &index.Index{
		Keys:       map[uint32]string{0: "\xff\xfe"},
		DocLengths: map[uint32]uint32{0: 1},
		Postings:   map[string]index.PostingList{"x": {{DocID: 0, Frequency: 1}}},
		NumDocs:    1,
	}
	_, err := Decode(bytes.NewReader(encode(t, bad)))
	require.ErrorIs(t, err, apperrors.ErrFormat)
	assert.Contains(t, err.Error(), "UTF-8")

	unsorted := &index.Index{
		Keys:       map[uint32]string{0: "a", 1: "b"},
		DocLengths: map[uint32]uint32{0: 1, 1: 1},
		Postings:   map[string]index.PostingList{"x": {{DocID: 1, Frequency: 1}, {DocID: 0, Frequency: 1}}},
		NumDocs:    2,
	}
	_, err = Decode(bytes.NewReader(encode(t, unsorted)))
	require.ErrorIs(t, err, apperrors.ErrFormat)
	assert.Contains(t, err.Error(), "ascending")
}

func TestDecode_RejectsPostingsForUnknownDocs(t *testing.T) {
	orphan := &index.Index{
		Keys:       map[uint32]string{0: "a"},
		DocLengths: map[uint32]uint32{0: 1, 1: 1},
		Postings:   map[string]index.PostingList{"x": {{DocID: 0, Frequency: 1}, {DocID: 1, Frequency: 1}}},
		NumDocs:    2,
	}
	_, err := Decode(bytes.NewReader(encode(t, orphan)))
	require.ErrorIs(t, err, apperrors.ErrFormat)
	assert.Contains(t, err.Error(), "unknown doc 1")
}

func TestWriter_WriteAndReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "corpus.bm25")
	ix := buildIndex([]string{"alpha", "beta"}, []string{"beta"})

	info, err := NewWriter().Write(path, ix)
	require.NoError(t, err)
	assert.Equal(t, path, info.Path)
	assert.Len(t, info.Checksum, 64)

	stat, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, stat.Size(), info.Bytes)

	got, readInfo, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, info, readInfo)
	assert.Equal(t, ix.Postings, got.Postings)

	// rewriting identical content yields the identical checksum
	again, err := NewWriter().Write(path, ix)
	require.NoError(t, err)
	assert.Equal(t, info.Checksum, again.Checksum)
}

func TestWriter_RefusesConcurrentWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.bm25")
	held := flock.New(path + ".lock")
	locked, err := held.TryLock()
	require.NoError(t, err)
	require.True(t, locked)
	defer held.Unlock()

	_, err = NewWriter().Write(path, buildIndex([]string{"x"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "another process")
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestReadFile_MissingFile(t *testing.T) {
	_, _, err := ReadFile(filepath.Join(t.TempDir(), "missing.bm25"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.False(t, errors.Is(err, apperrors.ErrFormat))
}
