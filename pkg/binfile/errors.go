package binfile

import (
	"errors"
	"fmt"
)

var (
	ErrBadMagic           = errors.New("binfile: bad magic")
	ErrUnsupportedVersion = errors.New("binfile: unsupported version")
	ErrMissingSection     = errors.New("binfile: missing section")
	ErrDuplicateSection   = errors.New("binfile: duplicate section")
	ErrSizeMismatch       = errors.New("binfile: section size mismatch")
	ErrOverflow           = errors.New("binfile: field element does not fit width")
	ErrClosed             = errors.New("binfile: file closed")
	ErrReadOnly           = errors.New("binfile: file opened read-only")

	// ErrState is the class of section bracketing misuse.
	ErrState = errors.New("binfile: invalid section state")

	ErrAlreadyOpen = fmt.Errorf("%w: a section is already open", ErrState)
	ErrNotOpen     = fmt.Errorf("%w: no section open", ErrState)
	ErrSectionOpen = fmt.Errorf("%w: section still open at close", ErrState)
)
