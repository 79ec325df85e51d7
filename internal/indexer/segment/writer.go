package segment

import (
	"bufio"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/google/renameio"
	"github.com/zeebo/blake3"

	"github.com/Adithya-Monish-Kumar-K/bm25comp/internal/indexer/index"
)

// MagicBytes identifies a BM25 index file ("BM25" in ASCII).
const (
	MagicBytes    uint32 = 0x424D3235
	FormatVersion uint32 = 1
)

// Info describes a written or loaded index file.
type Info struct {
	Path     string `json:"path"`
	Bytes    int64  `json:"bytes"`
	Checksum string `json:"checksum"`
}

// Writer serialises finalized indexes into files.
type Writer struct{}

func NewWriter() *Writer {
	return &Writer{}
}

// Write atomically replaces path with the encoded index. A sibling .lock
// file keeps two processes from writing the same path at once.
func (w *Writer) Write(path string, ix *index.Index) (Info, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Info{}, fmt.Errorf("creating index directory: %w", err)
	}

	lock := flock.New(path + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return Info{}, fmt.Errorf("locking index file: %w", err)
	}
	if !locked {
		return Info{}, fmt.Errorf("index file %s is being written by another process", path)
	}
	defer lock.Unlock()

	pf, err := renameio.TempFile(dir, path)
	if err != nil {
		return Info{}, fmt.Errorf("creating temp index file: %w", err)
	}
	defer pf.Cleanup()

	hasher := blake3.New()
	n, err := Encode(io.MultiWriter(pf, hasher), ix)
	if err != nil {
		return Info{}, err
	}
	if err := pf.CloseAtomicallyReplace(); err != nil {
		return Info{}, fmt.Errorf("replacing index file: %w", err)
	}
	return Info{
		Path:     path,
		Bytes:    n,
		Checksum: hex.EncodeToString(hasher.Sum(nil)),
	}, nil
}

// Encode writes ix in the version 1 layout. Keys and document lengths are
// written ascending by DocID and terms ascending by their bytes, so equal
// indexes always produce identical output.
func Encode(dst io.Writer, ix *index.Index) (int64, error) {
	cw := &countingWriter{w: dst}
	bw := bufio.NewWriterSize(cw, 64*1024)
	e := &encoder{w: bw}

	e.u32(MagicBytes)
	e.u32(FormatVersion)
	e.f32(ix.K1)
	e.f32(ix.B)
	e.f32(ix.AvgDocLength)
	e.u32(ix.NumDocs)
	e.u32(uint32(len(ix.Postings)))

	keys := ix.SortedKeys()
	e.u32(uint32(len(keys)))
	for _, k := range keys {
		e.u32(k.DocID)
		e.str(k.Key)
	}

	lengths := ix.SortedDocLengths()
	e.u32(uint32(len(lengths)))
	for _, dl := range lengths {
		e.u32(dl.DocID)
		e.u32(dl.Length)
	}

	for _, entry := range ix.Entries() {
		e.str(entry.Term)
		e.u32(uint32(len(entry.Postings)))
		for _, p := range entry.Postings {
			e.u32(p.DocID)
			e.u32(p.Frequency)
		}
	}

	if e.err != nil {
		return cw.n, fmt.Errorf("writing index: %w", e.err)
	}
	if err := bw.Flush(); err != nil {
		return cw.n, fmt.Errorf("flushing index: %w", err)
	}
	return cw.n, nil
}

// encoder keeps the first write error and turns later writes into no-ops.
type encoder struct {
	w   *bufio.Writer
	buf [4]byte
	err error
}

func (e *encoder) u32(v uint32) {
	if e.err != nil {
		return
	}
	binary.BigEndian.PutUint32(e.buf[:], v)
	_, e.err = e.w.Write(e.buf[:])
}

func (e *encoder) f32(v float64) {
	e.u32(math.Float32bits(float32(v)))
}

func (e *encoder) str(s string) {
	e.u32(uint32(len(s)))
	if e.err != nil {
		return
	}
	_, e.err = e.w.WriteString(s)
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
