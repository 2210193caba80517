package binfile

// Entry locates one section payload inside a container.
type Entry struct {
	ID     uint32
	Offset int64
	Size   uint64
}

// End returns the offset one past the last payload byte.
func (e Entry) End() int64 {
	return e.Offset + int64(e.Size)
}

// Directory is the section table of an opened container. It is immutable once
// built and may be shared between handles and goroutines.
type Directory struct {
	entries []Entry
	byID    map[uint32][]int
}

func newDirectory(entries []Entry) *Directory {
	d := &Directory{
		entries: entries,
		byID:    make(map[uint32][]int),
	}
	for i, e := range entries {
		d.byID[e.ID] = append(d.byID[e.ID], i)
	}
	return d
}

// Len returns the number of sections in on-disk order.
func (d *Directory) Len() int { return len(d.entries) }

// Entries returns a copy of the section table in on-disk order.
func (d *Directory) Entries() []Entry {
	out := make([]Entry, len(d.entries))
	copy(out, d.entries)
	return out
}

// Lookup returns every entry with the given id, in first-seen order.
func (d *Directory) Lookup(id uint32) []Entry {
	idx := d.byID[id]
	if len(idx) == 0 {
		return nil
	}
	out := make([]Entry, len(idx))
	for i, j := range idx {
		out[i] = d.entries[j]
	}
	return out
}

// Unique returns the single entry for id.
func (d *Directory) Unique(id uint32) (Entry, error) {
	idx := d.byID[id]
	switch len(idx) {
	case 0:
		return Entry{}, fmtSection(ErrMissingSection, id)
	case 1:
		return d.entries[idx[0]], nil
	default:
		return Entry{}, fmtSection(ErrDuplicateSection, id)
	}
}
