// Package pile promotes connected pile blocks to a single canonical variant.
//
// A pit conversion leaves behind a region of face-connected pile blocks with
// mixed tiers. The promoter resolves which tiers exist in the block catalog,
// picks the target variant, and rewrites every connected member block to it.
//
// Nothing in this package owns world state. The grid and the catalog are
// collaborators supplied by the caller, and a single Promote call assumes
// exclusive access to the grid until it returns.
package pile

import "strings"

// Air is the palette id of the empty block.
const Air uint16 = 0

// Vec3i identifies a grid cell. It is comparable and used directly as a map key.
type Vec3i struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

func (v Vec3i) Add(o Vec3i) Vec3i {
	return Vec3i{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z}
}

// Faces lists the 6 axis-aligned neighbor offsets in a fixed order
// (north, east, south, west, up, down).
var Faces = [6]Vec3i{
	{X: 0, Y: 0, Z: -1},
	{X: 1, Y: 0, Z: 0},
	{X: 0, Y: 0, Z: 1},
	{X: -1, Y: 0, Z: 0},
	{X: 0, Y: 1, Z: 0},
	{X: 0, Y: -1, Z: 0},
}

// Block describes a concrete block variant. Domain and Path come from the
// block code "domain:path".
type Block struct {
	ID     uint16
	Domain string
	Path   string
}

func (b Block) Code() string {
	if b.Domain == "" {
		return b.Path
	}
	return b.Domain + ":" + b.Path
}

// CatalogLookup resolves a block code to its descriptor.
type CatalogLookup interface {
	Lookup(code string) (Block, bool)
}

// Grid is read and written by the promoter. Reads never fail; an empty or
// unloaded cell reads as air.
type Grid interface {
	Get(pos Vec3i) Block
	Set(pos Vec3i, id uint16)
}

// Predicate reports whether a block qualifies. It must be pure.
type Predicate func(b Block) bool

// Family names a pile family: blocks whose path starts with Prefix+"-",
// published under the trusted Domain.
type Family struct {
	Domain string
	Prefix string
}

// IsMember matches any block whose path belongs to the family, regardless of
// domain. Lookalikes from other domains are members for traversal but are
// never rewritten (see Trusted).
func (f Family) IsMember(b Block) bool {
	if b.Path == "" || f.Prefix == "" {
		return false
	}
	return strings.HasPrefix(b.Path, f.Prefix+"-")
}

// Trusted reports whether b is published under the family's domain.
// An empty family domain trusts everything.
func (f Family) Trusted(b Block) bool {
	if f.Domain == "" {
		return true
	}
	return b.Domain == f.Domain
}

// QualifiedPrefix is the prefix used for catalog probes.
func (f Family) QualifiedPrefix() string {
	if f.Domain == "" {
		return f.Prefix
	}
	return f.Domain + ":" + f.Prefix
}
