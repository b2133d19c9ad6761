package replay

import (
	"bytes"
	_ "embed"
	"sync"

	"github.com/go-faster/errors"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema.json
var schemaJSON []byte

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("replay.json", bytes.NewReader(schemaJSON)); err != nil {
			schemaErr = errors.Wrap(err, "invalid replay schema")
			return
		}
		schema, schemaErr = compiler.Compile("replay.json")
	})
	return schema, schemaErr
}

// validateDocument checks a normalized (lower-cased keys) document.
func validateDocument(doc map[string]interface{}) error {
	s, err := compiledSchema()
	if err != nil {
		return err
	}
	if err := s.Validate(doc); err != nil {
		var verr *jsonschema.ValidationError
		if errors.As(err, &verr) {
			return errors.Errorf("schema validation failed: %s", describe(verr))
		}
		return err
	}
	return nil
}

// describe flattens the innermost causes into one line.
func describe(verr *jsonschema.ValidationError) string {
	if len(verr.Causes) == 0 {
		loc := verr.InstanceLocation
		if loc == "" {
			loc = "/"
		}
		return loc + ": " + verr.Message
	}
	var buf bytes.Buffer
	for i, c := range verr.Causes {
		if i > 0 {
			buf.WriteString("; ")
		}
		buf.WriteString(describe(c))
	}
	return buf.String()
}
