package migration

// Role tells whether a script applies or reverts a change.
type Role int

const (
	// RoleRedo is the forward change.
	RoleRedo Role = iota
	// RoleUndo is the exact inverse of the redo script with the same sequence.
	RoleUndo
)

func (r Role) String() string {
	if r == RoleUndo {
		return "undo"
	}
	return "redo"
}

// Kind tells whether a migration alters structure or content. It is
// orthogonal to Role.
type Kind int

const (
	KindSchema Kind = iota
	KindData
)

func (k Kind) String() string {
	if k == KindData {
		return "data"
	}
	return "schema"
}

// Descriptor identifies one migration file on disk. It does not own the
// file's contents.
type Descriptor struct {
	Sequence int    // Sequence number shared by the redo and undo of a pair
	Role     Role   // Redo or undo
	Kind     Kind   // Schema or data
	Name     string // Original file name, kept for diagnostics
	Path     string // Slash separated path relative to the scanned filesystem
}

// Pair is the unit of catalog state. Either slot may be nil when the
// corresponding file was never created.
type Pair struct {
	Sequence int
	Redo     *Descriptor
	Undo     *Descriptor
}

// Complete reports whether both slots are filled.
func (p *Pair) Complete() bool {
	return p != nil && p.Redo != nil && p.Undo != nil
}

// slot returns a pointer to the slot that a descriptor with the given role
// occupies.
func (p *Pair) slot(role Role) **Descriptor {
	if role == RoleUndo {
		return &p.Undo
	}
	return &p.Redo
}
