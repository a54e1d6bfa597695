// Command settings-schema prints the JSON schema of the ArchivedAtLink
// message filter settings. Its output is meant to be committed into the
// settings schema directory next to a migration that registers it.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/google/jsonschema-go/jsonschema"
)

const draft07 = "http://json-schema.org/draft-07/schema"

// ArchivedAtLinkSettings holds the settings for the ArchivedAtLink message
// filter.
type ArchivedAtLinkSettings struct {
	Template       string `json:"template"`
	PreserveCarets bool   `json:"preserve_carets,omitempty"`
}

const templateDescription = "Template for `Archived-At` header value, as described in RFC 5064 \"The Archived-At " +
	"Message Header Field\". The template receives only one string variable with the value of the mailing " +
	"list post `Message-ID` header.\n\n" +
	"For example, if:\n\n" +
	"- the template is `http://www.example.com/mid/{msg-id}`\n" +
	"- the `Message-ID` is `<0C2U00F01DFGCR@mailsj-v3.example.com>`\n\n" +
	"The full header will be generated as:\n\n" +
	"`Archived-At: <http://www.example.com/mid/0C2U00F01DFGCR@mailsj-v3.example.com>\n\n" +
	"Note: Surrounding carets in the `Message-ID` value are not required. If you wish to preserve them " +
	"in the URL, set option `preserve-carets` to true."

func main() {
	if err := run(os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(out io.Writer) error {
	schema, err := build()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("encode schema: %w", err)
	}
	_, err = fmt.Fprintf(out, "%s\n", data)
	return err
}

// build infers the settings schema and wraps it in a draft-07 document that
// references it from $defs.
func build() (*jsonschema.Schema, error) {
	def, err := jsonschema.For[ArchivedAtLinkSettings](nil)
	if err != nil {
		return nil, fmt.Errorf("infer settings schema: %w", err)
	}
	def.Title = "ArchivedAtLinkSettings"
	def.Description = "Settings for ArchivedAtLink message filter"

	template, ok := def.Properties["template"]
	if !ok {
		return nil, fmt.Errorf("infer settings schema: template property missing")
	}
	template.Title = "Jinja template for header value"
	template.Description = templateDescription
	template.Pattern = ".+[{]msg-id[}].*"
	template.Examples = []any{
		"https://www.example.com/{msg-id}",
		"https://www.example.com/{msg-id}.html",
	}

	carets, ok := def.Properties["preserve_carets"]
	if !ok {
		return nil, fmt.Errorf("infer settings schema: preserve_carets property missing")
	}
	carets.Title = "Preserve carets of `Message-ID` in generated value"
	carets.Default = json.RawMessage("false")

	return &jsonschema.Schema{
		Schema: draft07,
		Ref:    "#/$defs/ArchivedAtLinkSettings",
		Defs:   map[string]*jsonschema.Schema{"ArchivedAtLinkSettings": def},
	}, nil
}
