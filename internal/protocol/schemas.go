package protocol

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.schema.json
var schemaFS embed.FS

var (
	schemasOnce sync.Once
	schemas     map[string]*jsonschema.Schema
	schemasErr  error
)

func loadSchemas() {
	schemas = map[string]*jsonschema.Schema{}
	for _, typ := range []string{TypeHello, TypeConvert, TypePlace, TypePromote} {
		name := strings.ToLower(typ) + ".schema.json"
		b, err := schemaFS.ReadFile("schemas/" + name)
		if err != nil {
			schemasErr = err
			return
		}
		s, err := jsonschema.CompileString(name, string(b))
		if err != nil {
			schemasErr = fmt.Errorf("%s: %w", name, err)
			return
		}
		schemas[typ] = s
	}
}

// Validate checks a raw client message against the schema of its type.
// Types without a schema are accepted as is.
func Validate(typ string, raw []byte) error {
	schemasOnce.Do(loadSchemas)
	if schemasErr != nil {
		return schemasErr
	}
	s, ok := schemas[typ]
	if !ok {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return err
	}
	return s.Validate(doc)
}
