package catalog

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	cueyaml "cuelang.org/go/encoding/yaml"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaSource string

// Item is one product entry.
type Item struct {
	Title       string `yaml:"title"`
	Price       string `yaml:"price"`
	Description string `yaml:"description"`
	Image       string `yaml:"image"`
}

// Catalog is a parsed seed file.
type Catalog struct {
	Owner    string `yaml:"owner"`
	Products []Item `yaml:"products"`

	// Dir resolves relative image paths.
	Dir string `yaml:"-"`
}

// ImagePath returns the filesystem path of item's image.
func (c *Catalog) ImagePath(item Item) string {
	if filepath.IsAbs(item.Image) {
		return item.Image
	}
	return filepath.Join(c.Dir, item.Image)
}

// SchemaError is a catalog that does not satisfy the schema.
type SchemaError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *SchemaError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Load reads and parses the catalog at path.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	c, err := Parse(path, data)
	if err != nil {
		return nil, err
	}
	c.Dir = filepath.Dir(path)
	return c, nil
}

// Parse validates data against the schema and decodes it. Unknown keys
// are rejected. name is used in error positions.
func Parse(name string, data []byte) (*Catalog, error) {
	if err := check(name, data); err != nil {
		return nil, err
	}

	var c Catalog
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("decode catalog %s: %w", name, err)
	}
	return &c, nil
}

// check unifies the document with #Catalog and requires a concrete result.
func check(name string, data []byte) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile catalog schema: %w", err)
	}

	file, err := cueyaml.Extract(name, data)
	if err != nil {
		return formatCUEError(err)
	}
	doc := ctx.BuildFile(file)
	if err := doc.Err(); err != nil {
		return formatCUEError(err)
	}

	v := schema.LookupPath(cue.ParsePath("#Catalog")).Unify(doc)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return formatCUEError(err)
	}
	return nil
}

// formatCUEError reports the first CUE error with its source position.
func formatCUEError(err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	se := &SchemaError{Field: "catalog", Message: first.Error()}
	if path := first.Path(); len(path) > 0 {
		se.Field = strings.Join(path, ".")
		format, args := first.Msg()
		se.Message = fmt.Sprintf(format, args...)
	}
	for _, p := range cueerrors.Positions(first) {
		if p.Filename() != "schema.cue" {
			se.Pos = p
			break
		}
	}
	return se
}

// IsSchemaError reports whether err is a schema violation.
func IsSchemaError(err error) bool {
	var se *SchemaError
	return errors.As(err, &se)
}
