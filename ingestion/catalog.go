package ingestion

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/poiesic/clinroute/core"
	"gopkg.in/yaml.v3"
)

// Catalog is the contents of a seed file.
type Catalog struct {
	Tools         []core.ToolRecord `yaml:"tools"`
	Organizations []core.OrgRecord  `yaml:"organizations"`
}

// Len returns the total number of records.
func (c *Catalog) Len() int {
	return len(c.Tools) + len(c.Organizations)
}

// LoadCatalogFile reads and validates the catalog at path.
func LoadCatalogFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return LoadCatalog(bytes.NewReader(data))
}

// LoadCatalog decodes and validates a YAML catalog. Unknown fields are
// rejected so typos in field names don't silently drop data.
func LoadCatalog(r io.Reader) (*Catalog, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var c Catalog
	if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCatalog, err)
	}
	c.normalize()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	c.assignIDs()
	return &c, nil
}

// Validate reports every invalid record and every name repeated within
// its kind.
func (c *Catalog) Validate() error {
	var errs []error
	errs = append(errs, validateRecords("tools", c.Tools, core.ValidateToolRecord)...)
	errs = append(errs, validateRecords("organizations", c.Organizations, core.ValidateOrgRecord)...)
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidCatalog, errors.Join(errs...))
	}
	return nil
}

func validateRecords[T core.Record[T]](kind string, records []T, validate func(*T) error) []error {
	var errs []error
	seen := make(map[string]int, len(records))
	for i := range records {
		if err := validate(&records[i]); err != nil {
			errs = append(errs, fmt.Errorf("%s[%d]: %w", kind, i, err))
			continue
		}
		name := records[i].RecordName()
		key := strings.ToLower(name)
		if first, dup := seen[key]; dup {
			errs = append(errs, fmt.Errorf("%s[%d]: duplicate name %q (first at %d)", kind, i, name, first))
			continue
		}
		seen[key] = i
	}
	return errs
}

func (c *Catalog) normalize() {
	for i := range c.Tools {
		c.Tools[i].Name = strings.TrimSpace(c.Tools[i].Name)
	}
	for i := range c.Organizations {
		c.Organizations[i].Name = strings.TrimSpace(c.Organizations[i].Name)
	}
}

func (c *Catalog) assignIDs() {
	for i, t := range c.Tools {
		if t.ID == 0 {
			c.Tools[i].ID = ToolID(t.Name)
		}
	}
	for i, o := range c.Organizations {
		if o.ID == 0 {
			c.Organizations[i].ID = OrgID(o.Name)
		}
	}
}

// ToolID derives the stable ID of a tool from its name.
func ToolID(name string) core.ID {
	return core.IDFromContent("tool:" + strings.ToLower(name))
}

// OrgID derives the stable ID of an organization from its name.
func OrgID(name string) core.ID {
	return core.IDFromContent("org:" + strings.ToLower(name))
}
