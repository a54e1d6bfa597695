package migration

import (
	"encoding/hex"
	"fmt"
	"io/fs"
	"sort"

	"golang.org/x/crypto/blake2b"
)

// Catalog maps sequence numbers to their redo/undo pair. It is built fresh
// from a directory scan and is not persisted anywhere else.
type Catalog struct {
	dir     string
	pairs   map[int]*Pair
	max     int
	foreign []string
}

func newCatalog(dir string) *Catalog {
	return &Catalog{
		dir:   dir,
		pairs: make(map[int]*Pair),
		max:   -1,
	}
}

// NewCatalog returns an empty catalog for dir.
func NewCatalog(dir string) *Catalog {
	return newCatalog(dir)
}

// Dir returns the scanned directory.
func (c *Catalog) Dir() string {
	return c.dir
}

// Max returns the highest sequence number observed, or -1 for an empty catalog.
func (c *Catalog) Max() int {
	return c.max
}

// Next returns the sequence number the next migration pair should use.
func (c *Catalog) Next() int {
	return c.max + 1
}

// Len returns the number of distinct sequence numbers.
func (c *Catalog) Len() int {
	return len(c.pairs)
}

// Pair returns the pair stored under sequence.
func (c *Catalog) Pair(sequence int) (*Pair, bool) {
	p, ok := c.pairs[sequence]
	return p, ok
}

// Pairs returns all pairs in ascending sequence order.
func (c *Catalog) Pairs() []*Pair {
	pairs := make([]*Pair, 0, len(c.pairs))
	for _, p := range c.pairs {
		pairs = append(pairs, p)
	}
	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].Sequence < pairs[j].Sequence
	})
	return pairs
}

// Foreign returns the names that were ignored during the scan.
func (c *Catalog) Foreign() []string {
	out := append([]string(nil), c.foreign...)
	sort.Strings(out)
	return out
}

// add places d into its pair. A filled slot is a conflict unless overwrite
// is set, in which case the later descriptor wins.
func (c *Catalog) add(d Descriptor, overwrite bool) error {
	p, ok := c.pairs[d.Sequence]
	if !ok {
		p = &Pair{Sequence: d.Sequence}
		c.pairs[d.Sequence] = p
	}

	slot := p.slot(d.Role)
	if existing := *slot; existing != nil && !overwrite {
		return NewMigrationError(d.Sequence, d.Path, "group",
			fmt.Errorf("%w: %s and %s are both %s scripts", ErrSlotConflict, existing.Name, d.Name, d.Role))
	}
	desc := d
	*slot = &desc

	if d.Sequence > c.max {
		c.max = d.Sequence
	}
	return nil
}

// Record appends the pair created by a generator run. It fails if the
// sequence is already present.
func (c *Catalog) Record(res *Result) error {
	if res == nil || res.DryRun {
		return nil
	}
	if _, exists := c.pairs[res.Sequence]; exists {
		return NewMigrationError(res.Sequence, res.RedoName, "record",
			fmt.Errorf("%w: sequence already catalogued", ErrSlotConflict))
	}
	for _, name := range []string{res.RedoName, res.UndoName} {
		d, err := ParseName(name, c.dir)
		if err != nil {
			return NewMigrationError(res.Sequence, name, "record", err)
		}
		if err := c.add(d, false); err != nil {
			return err
		}
	}
	return nil
}

// Fingerprint hashes the names and contents of every catalogued script in
// sequence order. Two catalogs with the same fingerprint describe the same
// migration history.
func (c *Catalog) Fingerprint(fsys fs.FS) (string, error) {
	h, err := blake2b.New256(nil)
	if err != nil {
		return "", fmt.Errorf("init fingerprint hash: %w", err)
	}
	for _, p := range c.Pairs() {
		for _, d := range []*Descriptor{p.Redo, p.Undo} {
			if d == nil {
				continue
			}
			content, err := fs.ReadFile(fsys, d.Path)
			if err != nil {
				return "", NewFileSystemError(d.Path, "read file", err)
			}
			h.Write([]byte(d.Name))
			h.Write([]byte{0})
			h.Write(content)
			h.Write([]byte{0})
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
