package migration

import (
	"fmt"
	"strings"
)

const (
	// SettingsTable holds one JSON schema document per settings identifier.
	SettingsTable = "settings_json_schema"

	// EmptySettingsValue is the document a new settings entry starts with.
	EmptySettingsValue = "{}"

	settingsExtension = ".json"
)

// UpsertSettingsSQL returns the statement registering id with value.
func UpsertSettingsSQL(id, value string) string {
	return fmt.Sprintf("INSERT OR REPLACE INTO %s(id, value) VALUES('%s', '%s');",
		SettingsTable, quoteLiteral(id), quoteLiteral(value))
}

// DeleteSettingsSQL returns the statement removing the entry for id.
func DeleteSettingsSQL(id string) string {
	return fmt.Sprintf("DELETE FROM %s WHERE id = '%s';", SettingsTable, quoteLiteral(id))
}

// SettingsFileName returns the seed document name for id.
func SettingsFileName(id string) string {
	return strings.ToLower(id) + settingsExtension
}

func quoteLiteral(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

// validateSettingsName checks that name can serve both as a table key and as
// a file name inside the settings directory.
func validateSettingsName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", &UsageError{Field: "name", Err: ErrNameRequired}
	}
	if strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		return "", &UsageError{Field: "name", Err: fmt.Errorf("%w: %q", ErrInvalidName, name)}
	}
	for _, r := range name {
		if r < 0x20 || r == 0x7f {
			return "", &UsageError{Field: "name", Err: fmt.Errorf("%w: %q contains control characters", ErrInvalidName, name)}
		}
	}
	return name, nil
}
