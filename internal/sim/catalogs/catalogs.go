package catalogs

import (
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"voxelpile.ai/internal/sim/pile"
)

// DefaultDomain is implied by block codes without a "domain:" part.
const DefaultDomain = "game"

// AirCode is always palette id 0.
const AirCode = "game:air"

const (
	KindPit  = "PIT"
	KindFuel = "FUEL"
)

//go:embed blocks.schema.json
var blocksSchemaJSON string

type Catalogs struct {
	Blocks BlockCatalog
}

type BlockCatalog struct {
	Palette       []string
	Index         map[string]uint16
	Defs          map[string]BlockDef
	PaletteDigest string
	DefsDigest    string

	descs []pile.Block
}

type BlockDef struct {
	ID    string `json:"id"`
	Solid bool   `json:"solid"`
	Kind  string `json:"kind,omitempty"` // "PIT","FUEL" or empty
}

func Load(configDir string) (*Catalogs, error) {
	var c Catalogs
	if err := loadBlocks(filepath.Join(configDir, "blocks.json"), &c.Blocks); err != nil {
		return nil, err
	}
	return &c, nil
}

// NormalizeCode lowercases a code and adds the default domain when missing.
func NormalizeCode(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return ""
	}
	if !strings.Contains(code, ":") {
		return DefaultDomain + ":" + code
	}
	return code
}

func splitCode(code string) (domain, path string) {
	i := strings.IndexByte(code, ':')
	if i < 0 {
		return DefaultDomain, code
	}
	return code[:i], code[i+1:]
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func loadBlocks(path string, out *BlockCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return ParseBlocks(raw, out)
}

// ParseBlocks validates raw blocks.json content and builds the palette.
func ParseBlocks(raw []byte, out *BlockCatalog) error {
	schema, err := jsonschema.CompileString("blocks.schema.json", blocksSchemaJSON)
	if err != nil {
		return fmt.Errorf("blocks.schema.json: %w", err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("blocks.json: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("blocks.json: %w", err)
	}
	out.DefsDigest = sha256Hex(raw)

	var defs []BlockDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("blocks.json: %w", err)
	}
	out.Defs = map[string]BlockDef{}
	for _, d := range defs {
		d.ID = NormalizeCode(d.ID)
		if d.ID == "" {
			return fmt.Errorf("blocks.json: empty id")
		}
		if _, dup := out.Defs[d.ID]; dup {
			return fmt.Errorf("blocks.json: duplicate id %s", d.ID)
		}
		out.Defs[d.ID] = d
	}

	ids := make([]string, 0, len(out.Defs))
	for id := range out.Defs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	// Ensure AIR exists and is palette id 0.
	if _, ok := out.Defs[AirCode]; !ok {
		return fmt.Errorf("blocks.json: missing %s", AirCode)
	}
	ids = append([]string{AirCode}, filterOut(ids, AirCode)...)
	if len(ids) > 1<<16 {
		return fmt.Errorf("blocks.json: %d blocks exceed palette size", len(ids))
	}

	out.Palette = ids
	out.Index = make(map[string]uint16, len(ids))
	out.descs = make([]pile.Block, len(ids))
	for i, id := range ids {
		out.Index[id] = uint16(i)
		domain, p := splitCode(id)
		out.descs[i] = pile.Block{ID: uint16(i), Domain: domain, Path: p}
	}
	palJSON, _ := json.Marshal(ids)
	out.PaletteDigest = sha256Hex(palJSON)
	return nil
}

// Lookup implements pile.CatalogLookup.
func (c *BlockCatalog) Lookup(code string) (pile.Block, bool) {
	id, ok := c.Index[NormalizeCode(code)]
	if !ok {
		return pile.Block{}, false
	}
	return c.descs[id], true
}

// Describe returns the descriptor of a palette id. Unknown ids read as air.
func (c *BlockCatalog) Describe(id uint16) pile.Block {
	if int(id) >= len(c.descs) {
		return c.descs[0]
	}
	return c.descs[id]
}

func (c *BlockCatalog) Name(id uint16) string {
	if int(id) >= len(c.Palette) {
		return ""
	}
	return c.Palette[id]
}

func (c *BlockCatalog) Kind(id uint16) string {
	return c.Defs[c.Name(id)].Kind
}

func filterOut(in []string, remove string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == remove {
			continue
		}
		out = append(out, s)
	}
	return out
}
