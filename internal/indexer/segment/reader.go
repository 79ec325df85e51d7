package segment

import (
	"bufio"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"unicode/utf8"

	"github.com/zeebo/blake3"

	"github.com/Adithya-Monish-Kumar-K/bm25comp/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/bm25comp/pkg/errors"
)

// maxPrealloc bounds slice capacity taken from untrusted length fields.
const maxPrealloc = 1 << 16

// ReadFile decodes the index stored at path and returns it with the file's
// size and blake3 checksum.
func ReadFile(path string) (*index.Index, Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Info{}, fmt.Errorf("opening index file: %w", err)
	}
	defer f.Close()

	ix, info, err := Read(f)
	if err != nil {
		return nil, Info{}, err
	}
	info.Path = path
	return ix, info, nil
}

// Read decodes an index from src, hashing the bytes as they are consumed.
func Read(src io.Reader) (*index.Index, Info, error) {
	hasher := blake3.New()
	cr := &countingReader{r: io.TeeReader(src, hasher)}
	ix, err := Decode(cr)
	if err != nil {
		return nil, Info{}, err
	}
	return ix, Info{
		Bytes:    cr.n,
		Checksum: hex.EncodeToString(hasher.Sum(nil)),
	}, nil
}

// Decode parses a version 1 index. The magic number and version are checked
// before any other field is trusted. Running out of input anywhere, trailing
// bytes, invalid UTF-8, unsorted posting lists and postings for doc ids
// missing from the key table are reported as
// errors.ErrFormat; other read failures are returned wrapped.
func Decode(src io.Reader) (*index.Index, error) {
	d := &decoder{r: bufio.NewReaderSize(src, 64*1024)}

	magic, err := d.u32("magic")
	if err != nil {
		return nil, err
	}
	if magic != MagicBytes {
		return nil, apperrors.Format("bad magic number %#08x", magic)
	}
	version, err := d.u32("version")
	if err != nil {
		return nil, err
	}
	if version != FormatVersion {
		return nil, apperrors.Format("unsupported version %d", version)
	}

	ix := &index.Index{}
	if ix.K1, err = d.f32("k1"); err != nil {
		return nil, err
	}
	if ix.B, err = d.f32("b"); err != nil {
		return nil, err
	}
	if ix.AvgDocLength, err = d.f32("avgdl"); err != nil {
		return nil, err
	}
	if ix.NumDocs, err = d.u32("num_docs"); err != nil {
		return nil, err
	}
	numTerms, err := d.u32("num_terms")
	if err != nil {
		return nil, err
	}

	if err := d.readKeys(ix); err != nil {
		return nil, err
	}
	if err := d.readDocLengths(ix); err != nil {
		return nil, err
	}
	if err := d.readPostings(ix, numTerms); err != nil {
		return nil, err
	}

	if _, err := d.r.ReadByte(); err == nil {
		return nil, apperrors.Format("trailing data after last posting list")
	} else if !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("reading index: %w", err)
	}
	return ix, nil
}

func (d *decoder) readKeys(ix *index.Index) error {
	numKeys, err := d.u32("num_keys")
	if err != nil {
		return err
	}
	ix.Keys = make(map[uint32]string, min(numKeys, maxPrealloc))
	for i := uint32(0); i < numKeys; i++ {
		docID, err := d.u32("key doc_id")
		if err != nil {
			return err
		}
		key, err := d.str("key")
		if err != nil {
			return err
		}
		if _, dup := ix.Keys[docID]; dup {
			return apperrors.Format("duplicate key entry for doc %d", docID)
		}
		ix.Keys[docID] = key
	}
	return nil
}

func (d *decoder) readDocLengths(ix *index.Index) error {
	n, err := d.u32("num_doc_lengths")
	if err != nil {
		return err
	}
	ix.DocLengths = make(map[uint32]uint32, min(n, maxPrealloc))
	for i := uint32(0); i < n; i++ {
		docID, err := d.u32("length doc_id")
		if err != nil {
			return err
		}
		length, err := d.u32("length")
		if err != nil {
			return err
		}
		if _, dup := ix.DocLengths[docID]; dup {
			return apperrors.Format("duplicate length entry for doc %d", docID)
		}
		ix.DocLengths[docID] = length
	}
	return nil
}

func (d *decoder) readPostings(ix *index.Index, numTerms uint32) error {
	ix.Postings = make(map[string]index.PostingList, min(numTerms, maxPrealloc))
	for i := uint32(0); i < numTerms; i++ {
		term, err := d.str("term")
		if err != nil {
			return err
		}
		if _, dup := ix.Postings[term]; dup {
			return apperrors.Format("duplicate posting list for term %q", term)
		}
		n, err := d.u32("num_postings")
		if err != nil {
			return err
		}
		pl := make(index.PostingList, 0, min(n, maxPrealloc))
		for j := uint32(0); j < n; j++ {
			docID, err := d.u32("posting doc_id")
			if err != nil {
				return err
			}
			freq, err := d.u32("posting freq")
			if err != nil {
				return err
			}
			if _, ok := ix.Keys[docID]; !ok {
				return apperrors.Format("posting for term %q references unknown doc %d", term, docID)
			}
			if len(pl) > 0 && pl[len(pl)-1].DocID >= docID {
				return apperrors.Format("postings for term %q not ascending by doc id", term)
			}
			pl = append(pl, index.Posting{DocID: docID, Frequency: freq})
		}
		ix.Postings[term] = pl
	}
	return nil
}

type decoder struct {
	r   *bufio.Reader
	buf [4]byte
}

func (d *decoder) u32(field string) (uint32, error) {
	if _, err := io.ReadFull(d.r, d.buf[:]); err != nil {
		return 0, d.fail(field, err)
	}
	return binary.BigEndian.Uint32(d.buf[:]), nil
}

func (d *decoder) f32(field string) (float64, error) {
	bits, err := d.u32(field)
	if err != nil {
		return 0, err
	}
	return float64(math.Float32frombits(bits)), nil
}

// str reads a length-prefixed UTF-8 string. The body is read incrementally
// so a corrupt length cannot force a huge allocation up front.
func (d *decoder) str(field string) (string, error) {
	n, err := d.u32(field + " length")
	if err != nil {
		return "", err
	}
	b, err := io.ReadAll(io.LimitReader(d.r, int64(n)))
	if err != nil {
		return "", d.fail(field, err)
	}
	if uint32(len(b)) != n {
		return "", apperrors.Format("truncated reading %s", field)
	}
	if !utf8.Valid(b) {
		return "", apperrors.Format("%s is not valid UTF-8", field)
	}
	return string(b), nil
}

func (d *decoder) fail(field string, err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return apperrors.Format("truncated reading %s", field)
	}
	return fmt.Errorf("reading %s: %w", field, err)
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
