package store

import (
	"crypto/sha256"
	"encoding/binary"
)

// ChunkSize is the edge length of a cubic chunk.
const ChunkSize = 16

const chunkVolume = ChunkSize * ChunkSize * ChunkSize

type ChunkKey struct {
	CX int
	CY int
	CZ int
}

type Chunk struct {
	CX, CY, CZ int
	Blocks     []uint16 // len = 16*16*16

	dirty    bool
	hash     [32]byte
	nonEmpty int
}

func (c *Chunk) index(x, y, z int) int {
	// x fastest, then z, then y
	return x + z*ChunkSize + y*ChunkSize*ChunkSize
}

func (c *Chunk) Get(x, y, z int) uint16 {
	return c.Blocks[c.index(x, y, z)]
}

func (c *Chunk) Set(x, y, z int, b uint16) {
	i := c.index(x, y, z)
	old := c.Blocks[i]
	if old == b {
		return
	}
	switch {
	case old == 0:
		c.nonEmpty++
	case b == 0:
		c.nonEmpty--
	}
	c.Blocks[i] = b
	c.dirty = true
}

// Empty reports whether every cell is air.
func (c *Chunk) Empty() bool { return c.nonEmpty == 0 }

func (c *Chunk) recount() {
	c.nonEmpty = 0
	for _, v := range c.Blocks {
		if v != 0 {
			c.nonEmpty++
		}
	}
}

func (c *Chunk) Digest() [32]byte {
	if c.dirty || c.hash == ([32]byte{}) {
		h := sha256.New()
		var tmp [2]byte
		for _, v := range c.Blocks {
			binary.LittleEndian.PutUint16(tmp[:], v)
			h.Write(tmp[:])
		}
		copy(c.hash[:], h.Sum(nil))
		c.dirty = false
	}
	return c.hash
}

// Bounds limits the addressable world. Zero values disable a limit.
type Bounds struct {
	BoundaryR int // |x|,|z| <= BoundaryR
	Height    int // 0 <= y < Height
}

// ChunkStore is a sparse voxel grid. Cells in chunks that were never written
// read as air. Accessed only from the world loop goroutine.
type ChunkStore struct {
	Bounds Bounds
	Chunks map[ChunkKey]*Chunk
}

func NewChunkStore(b Bounds) *ChunkStore {
	return &ChunkStore{
		Bounds: b,
		Chunks: map[ChunkKey]*Chunk{},
	}
}
