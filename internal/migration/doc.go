// Package migration scaffolds and indexes reversible migration scripts.
//
// Every unit of change is a numbered pair of files: a redo script that applies
// the change and an undo script that reverts it. File names follow the
// convention:
//
//	{sequence:03d}[.data].sql       redo
//	{sequence:03d}[.data].undo.sql  undo
//
// where the optional ".data" infix marks a data migration rather than a schema
// migration. The package provides:
//
//   - A Scanner that builds a Catalog from one snapshot of a migrations directory
//   - A Generator that plans and creates the next pair without colliding with
//     existing files, optionally registering a settings-schema entry
//   - A checker that reports incomplete pairs, numbering gaps and settings
//     schemas that do not compile
//
// The filesystem is the catalog's only source of truth. Nothing in this package
// executes migrations.
//
// Example usage:
//
//	catalog, err := NewScanner(ScanOptions{}).Scan(os.DirFS("."), "migrations")
//	if err != nil {
//		return err
//	}
//	plan, err := NewPlan(catalog, Request{Kind: KindData}, DefaultLayout())
//	if err != nil {
//		return err
//	}
//	result, err := NewGenerator(".", GeneratorOptions{}).Apply(plan, false)
package migration
