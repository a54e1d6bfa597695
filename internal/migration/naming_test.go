package migration

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderName(t *testing.T) {
	tests := []struct {
		sequence int
		kind     Kind
		role     Role
		expected string
	}{
		{0, KindSchema, RoleRedo, "000.sql"},
		{0, KindSchema, RoleUndo, "000.undo.sql"},
		{0, KindData, RoleRedo, "000.data.sql"},
		{0, KindData, RoleUndo, "000.data.undo.sql"},
		{6, KindSchema, RoleRedo, "006.sql"},
		{42, KindData, RoleUndo, "042.data.undo.sql"},
		{999, KindSchema, RoleRedo, "999.sql"},
		{1000, KindSchema, RoleUndo, "1000.undo.sql"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, RenderName(tt.sequence, tt.kind, tt.role))
		})
	}
}

func TestParseName_RoundTrip(t *testing.T) {
	for _, sequence := range []int{0, 1, 7, 42, 100, 999, 1000, 12345} {
		for _, kind := range []Kind{KindSchema, KindData} {
			for _, role := range []Role{RoleRedo, RoleUndo} {
				name := RenderName(sequence, kind, role)
				d, err := ParseName(name, "migrations")
				require.NoError(t, err, name)
				assert.Equal(t, sequence, d.Sequence, name)
				assert.Equal(t, kind, d.Kind, name)
				assert.Equal(t, role, d.Role, name)
				assert.Equal(t, name, d.Name)
				assert.Equal(t, "migrations/"+name, d.Path)
			}
		}
	}
}

func TestParseName(t *testing.T) {
	tests := []struct {
		name        string
		expectError bool
		sequence    int
		kind        Kind
		role        Role
	}{
		{name: "001.sql", sequence: 1, kind: KindSchema, role: RoleRedo},
		{name: "1.sql", sequence: 1, kind: KindSchema, role: RoleRedo},
		{name: "012.data.undo.sql", sequence: 12, kind: KindData, role: RoleUndo},
		{name: "003.add_users.undo.sql", sequence: 3, kind: KindSchema, role: RoleUndo},
		{name: "004.backfill_data.sql", sequence: 4, kind: KindData, role: RoleRedo},
		{name: "001_add_users.sql", expectError: true},
		{name: "schema.sql", expectError: true},
		{name: "001.sql.bak", expectError: true},
		{name: "001.txt", expectError: true},
		{name: "99999999999999999999999.sql", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := ParseName(tt.name, "")
			if tt.expectError {
				require.ErrorIs(t, err, ErrMalformedName)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.sequence, d.Sequence)
			assert.Equal(t, tt.kind, d.Kind)
			assert.Equal(t, tt.role, d.Role)
			assert.Equal(t, tt.name, d.Path)
		})
	}
}

func TestClassifyName(t *testing.T) {
	assert.Equal(t, nameMigration, classifyName("001.sql"))
	assert.Equal(t, nameMigration, classifyName("001.data.undo.sql"))
	assert.Equal(t, nameAmbiguous, classifyName("001_add_users.sql"))
	assert.Equal(t, nameAmbiguous, classifyName("001sql.sql"))
	assert.Equal(t, nameForeign, classifyName("README.md"))
	assert.Equal(t, nameForeign, classifyName("schema.sql"))
	assert.Equal(t, nameForeign, classifyName("001.sql.orig"))
	assert.Equal(t, nameForeign, classifyName(".001.sql.swp"))
	assert.Equal(t, nameForeign, classifyName(""))
}

func TestRoleAndKindString(t *testing.T) {
	assert.Equal(t, "redo", RoleRedo.String())
	assert.Equal(t, "undo", RoleUndo.String())
	assert.Equal(t, "schema", KindSchema.String())
	assert.Equal(t, "data", KindData.String())
}
