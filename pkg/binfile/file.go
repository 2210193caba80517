package binfile

import (
	"errors"
	"fmt"
	"io"
	"math/big"
	"sync"

	"github.com/samcharles93/r1cs/internal/pagedfile"
)

// Channel is the random-access byte channel a container is read from or
// written to. *os.File and *pagedfile.File both satisfy it.
type Channel interface {
	io.Reader
	io.Writer
	io.Seeker
	io.Closer
}

// Options configures the paged channel used by Open and Create.
type Options struct {
	PageSize   int
	CachePages int
	NoMmap     bool
}

func (o Options) paged() pagedfile.Options {
	return pagedfile.Options{
		PageSize:   o.PageSize,
		CachePages: o.CachePages,
		NoMmap:     o.NoMmap,
	}
}

type state uint8

const (
	stateClosed state = iota
	stateIdle
	stateWriting
	stateReading
)

func (s state) String() string {
	switch s {
	case stateClosed:
		return "closed"
	case stateIdle:
		return "idle"
	case stateWriting:
		return "writing"
	case stateReading:
		return "reading"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// File is an open container handle. At most one section is open at a time.
//
// Handles are safe to call from several goroutines in the sense that state is
// guarded, but operations must still be issued in program order; share a
// directory through Reopen to decode sections concurrently.
type File struct {
	mu sync.Mutex

	ch       Channel
	path     string
	opts     Options
	writable bool

	magic   string
	version uint32
	dir     *Directory

	state   state
	section Entry
	written uint32

	pos     int64
	size    int64
	scratch [8]byte
}

// Open opens the container at path through a paged channel and scans its
// section table.
func Open(path, magic string, maxVersion uint32, opts Options) (*File, error) {
	ch, err := pagedfile.Open(path, opts.paged())
	if err != nil {
		return nil, err
	}
	f, err := NewReader(ch, magic, maxVersion)
	if err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	f.path = path
	f.opts = opts
	return f, nil
}

// NewReader validates the preamble read from ch and scans the section table.
// Payloads are skipped, not read.
func NewReader(ch Channel, magic string, maxVersion uint32) (*File, error) {
	if len(magic) != MagicSize {
		return nil, fmt.Errorf("binfile: magic %q is not %d bytes", magic, MagicSize)
	}
	size, err := ch.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, err
	}
	if _, err := ch.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	f := &File{ch: ch, size: size, state: stateIdle}
	if size < preambleSize {
		return nil, fmt.Errorf("%w: file is %d bytes", ErrBadMagic, size)
	}

	var pre [preambleSize]byte
	if err := f.readFull(pre[:]); err != nil {
		return nil, err
	}
	if got := string(pre[:MagicSize]); got != magic {
		return nil, fmt.Errorf("%w: got %q want %q", ErrBadMagic, got, magic)
	}
	f.magic = magic
	f.version = leU32(pre[MagicSize:])
	if f.version > maxVersion {
		return nil, fmt.Errorf("%w: %d > %d", ErrUnsupportedVersion, f.version, maxVersion)
	}

	count := leU32(pre[sectionCountOffset:])
	entries := make([]Entry, 0, min(count, 1024))
	for i := uint32(0); i < count; i++ {
		if f.size-f.pos < sectionHeaderSize {
			return nil, fmt.Errorf("%w: section table truncated at entry %d", ErrSizeMismatch, i)
		}
		var hdr [sectionHeaderSize]byte
		if err := f.readFull(hdr[:]); err != nil {
			return nil, err
		}
		e := Entry{
			ID:     leU32(hdr[:4]),
			Offset: f.pos,
			Size:   leU64(hdr[4:]),
		}
		if e.Size > uint64(f.size-f.pos) {
			return nil, fmt.Errorf("%w: section %d (id %d) declares %d bytes, %d remain",
				ErrSizeMismatch, i, e.ID, e.Size, f.size-f.pos)
		}
		entries = append(entries, e)
		if err := f.seek(e.End()); err != nil {
			return nil, err
		}
	}
	f.dir = newDirectory(entries)
	return f, nil
}

// Create creates (or truncates) path and writes the container preamble.
func Create(path, magic string, version uint32, opts Options) (*File, error) {
	ch, err := pagedfile.Create(path, opts.paged())
	if err != nil {
		return nil, err
	}
	f, err := NewWriter(ch, magic, version)
	if err != nil {
		_ = ch.Close()
		return nil, err
	}
	f.path = path
	f.opts = opts
	return f, nil
}

// NewWriter writes the preamble to ch. The section count is written as a
// placeholder and patched by Close.
func NewWriter(ch Channel, magic string, version uint32) (*File, error) {
	if len(magic) != MagicSize {
		return nil, fmt.Errorf("binfile: magic %q is not %d bytes", magic, MagicSize)
	}
	if _, err := ch.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	f := &File{
		ch:       ch,
		writable: true,
		magic:    magic,
		version:  version,
		state:    stateIdle,
	}
	var pre [preambleSize]byte
	copy(pre[:], magic)
	putU32(pre[MagicSize:], version)
	if err := f.writeFull(pre[:]); err != nil {
		return nil, err
	}
	return f, nil
}

// Reopen opens an independent read handle on the same path that shares this
// handle's directory instead of scanning the section table again.
func (f *File) Reopen() (*File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state == stateClosed {
		return nil, ErrClosed
	}
	if f.writable || f.path == "" || f.dir == nil {
		return nil, errors.New("binfile: only path-backed read handles can be reopened")
	}
	ch, err := pagedfile.Open(f.path, f.opts.paged())
	if err != nil {
		return nil, err
	}
	return &File{
		ch:      ch,
		path:    f.path,
		opts:    f.opts,
		magic:   f.magic,
		version: f.version,
		dir:     f.dir,
		state:   stateIdle,
		size:    ch.Size(),
	}, nil
}

func (f *File) Path() string    { return f.path }
func (f *File) Magic() string   { return f.magic }
func (f *File) Version() uint32 { return f.version }

// Directory returns the scanned section table; nil for write handles.
func (f *File) Directory() *Directory { return f.dir }

// Pos returns the current channel position.
func (f *File) Pos() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pos
}

// StartReadUnique positions the handle at the payload of the only section
// with the given id.
func (f *File) StartReadUnique(id uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.checkIdle(); err != nil {
		return err
	}
	if f.dir == nil {
		return ErrNotOpen
	}
	e, err := f.dir.Unique(id)
	if err != nil {
		return err
	}
	return f.startRead(e)
}

// StartRead positions the handle at the payload of an arbitrary directory
// entry, for section ids that may repeat.
func (f *File) StartRead(e Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.checkIdle(); err != nil {
		return err
	}
	if e.Offset < preambleSize || e.End() > f.size {
		return fmt.Errorf("%w: entry %+v outside file", ErrSizeMismatch, e)
	}
	return f.startRead(e)
}

func (f *File) startRead(e Entry) error {
	if err := f.seek(e.Offset); err != nil {
		return err
	}
	f.section = e
	f.state = stateReading
	return nil
}

// Section returns the entry currently open for reading.
func (f *File) Section() (Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != stateReading {
		return Entry{}, ErrNotOpen
	}
	return f.section, nil
}

// Remaining returns the unread payload bytes of the section being read.
func (f *File) Remaining() (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != stateReading {
		return 0, ErrNotOpen
	}
	return f.section.End() - f.pos, nil
}

// EndRead closes the section being read. With checked set, the bytes consumed
// must equal the declared section length. Readers that stop early pass false.
func (f *File) EndRead(checked bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != stateReading {
		return ErrNotOpen
	}
	consumed := f.pos - f.section.Offset
	e := f.section
	f.section = Entry{}
	f.state = stateIdle
	if checked && consumed != int64(e.Size) {
		return fmt.Errorf("%w: section %d consumed %d bytes, declared %d", ErrSizeMismatch, e.ID, consumed, e.Size)
	}
	return nil
}

// StartWrite begins a section: it writes the id and a zero length that
// EndWrite patches.
func (f *File) StartWrite(id uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.checkIdle(); err != nil {
		return err
	}
	if !f.writable {
		return ErrReadOnly
	}
	var hdr [sectionHeaderSize]byte
	putU32(hdr[:4], id)
	placeholder := f.pos + 4
	if err := f.writeFull(hdr[:]); err != nil {
		return err
	}
	f.section = Entry{ID: id, Offset: placeholder}
	f.state = stateWriting
	return nil
}

// EndWrite patches the length placeholder of the open section with the number
// of payload bytes written and restores the position.
func (f *File) EndWrite() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != stateWriting {
		return ErrNotOpen
	}
	end := f.pos
	size := end - f.section.Offset - 8
	if err := f.seek(f.section.Offset); err != nil {
		return err
	}
	putU64(f.scratch[:8], uint64(size))
	if err := f.writeFull(f.scratch[:8]); err != nil {
		return err
	}
	if err := f.seek(end); err != nil {
		return err
	}
	f.section = Entry{}
	f.state = stateIdle
	f.written++
	return nil
}

// Close finalises and releases the handle. For writers the section count is
// patched into the preamble. Closing with a section open still releases the
// channel but reports ErrSectionOpen, and a writer's count is left unpatched.
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state == stateClosed {
		return ErrClosed
	}
	prev, id := f.state, f.section.ID
	f.state = stateClosed

	var errs []error
	switch {
	case prev != stateIdle:
		errs = append(errs, fmt.Errorf("%w: %s section %d", ErrSectionOpen, prev, id))
	case f.writable:
		if err := f.seek(sectionCountOffset); err != nil {
			errs = append(errs, err)
			break
		}
		putU32(f.scratch[:4], f.written)
		if err := f.writeFull(f.scratch[:4]); err != nil {
			errs = append(errs, err)
		}
	}
	if err := f.ch.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ReadFull fills p from the open section.
func (f *File) ReadFull(p []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.checkRead(len(p)); err != nil {
		return err
	}
	return f.readFull(p)
}

// ReadU32 reads a little-endian u32 from the open section.
func (f *File) ReadU32() (uint32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.checkRead(4); err != nil {
		return 0, err
	}
	if err := f.readFull(f.scratch[:4]); err != nil {
		return 0, err
	}
	return leU32(f.scratch[:4]), nil
}

// ReadU64 reads a little-endian u64 from the open section.
func (f *File) ReadU64() (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.checkRead(8); err != nil {
		return 0, err
	}
	if err := f.readFull(f.scratch[:8]); err != nil {
		return 0, err
	}
	return leU64(f.scratch[:8]), nil
}

// ReadField reads an n8-byte little-endian field element.
func (f *File) ReadField(n8 uint32) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.checkRead(int(n8)); err != nil {
		return nil, err
	}
	buf := make([]byte, n8)
	if err := f.readFull(buf); err != nil {
		return nil, err
	}
	return DecodeField(buf), nil
}

// Skip advances n bytes within the open section.
func (f *File) Skip(n int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if n < 0 {
		return fmt.Errorf("binfile: negative skip %d", n)
	}
	if err := f.checkRead(int(n)); err != nil {
		return err
	}
	return f.seek(f.pos + n)
}

// Write appends p to the open section.
func (f *File) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.checkWrite(); err != nil {
		return 0, err
	}
	if err := f.writeFull(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (f *File) WriteU32(v uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.checkWrite(); err != nil {
		return err
	}
	putU32(f.scratch[:4], v)
	return f.writeFull(f.scratch[:4])
}

func (f *File) WriteU64(v uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.checkWrite(); err != nil {
		return err
	}
	putU64(f.scratch[:8], v)
	return f.writeFull(f.scratch[:8])
}

// WriteField writes v as an n8-byte little-endian field element.
func (f *File) WriteField(v *big.Int, n8 uint32) error {
	buf := make([]byte, n8)
	if err := EncodeField(buf, v); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.checkWrite(); err != nil {
		return err
	}
	return f.writeFull(buf)
}

func (f *File) checkIdle() error {
	switch f.state {
	case stateClosed:
		return ErrClosed
	case stateIdle:
		return nil
	default:
		return fmt.Errorf("%w: %s section %d", ErrAlreadyOpen, f.state, f.section.ID)
	}
}

// checkRead rejects reads outside an open section and reads that would run
// past the declared section end.
func (f *File) checkRead(n int) error {
	switch f.state {
	case stateClosed:
		return ErrClosed
	case stateReading:
	default:
		return ErrNotOpen
	}
	if n < 0 || f.pos+int64(n) > f.section.End() {
		return fmt.Errorf("%w: section %d overrun: %d bytes at offset %d, section ends at %d",
			ErrSizeMismatch, f.section.ID, n, f.pos, f.section.End())
	}
	return nil
}

func (f *File) checkWrite() error {
	switch f.state {
	case stateClosed:
		return ErrClosed
	case stateWriting:
		return nil
	default:
		return ErrNotOpen
	}
}

func (f *File) readFull(p []byte) error {
	n, err := io.ReadFull(f.ch, p)
	f.pos += int64(n)
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: unexpected end of file at offset %d", ErrSizeMismatch, f.pos)
	}
	return err
}

func (f *File) writeFull(p []byte) error {
	for len(p) > 0 {
		n, err := f.ch.Write(p)
		f.pos += int64(n)
		if err != nil {
			return err
		}
		p = p[n:]
	}
	return nil
}

func (f *File) seek(pos int64) error {
	if _, err := f.ch.Seek(pos, io.SeekStart); err != nil {
		return err
	}
	f.pos = pos
	return nil
}

func fmtSection(err error, id uint32) error {
	return fmt.Errorf("%w: id %d", err, id)
}
