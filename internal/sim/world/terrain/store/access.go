package store

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"sort"

	"voxelpile.ai/internal/sim/world/logic/mathx"
)

func (s *ChunkStore) InBounds(x, y, z int) bool {
	if s.Bounds.Height > 0 && (y < 0 || y >= s.Bounds.Height) {
		return false
	}
	if s.Bounds.BoundaryR > 0 {
		if x < -s.Bounds.BoundaryR || x > s.Bounds.BoundaryR || z < -s.Bounds.BoundaryR || z > s.Bounds.BoundaryR {
			return false
		}
	}
	return true
}

func (s *ChunkStore) LoadedChunkKeys() []ChunkKey {
	keys := make([]ChunkKey, 0, len(s.Chunks))
	for k := range s.Chunks {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].CX != keys[j].CX {
			return keys[i].CX < keys[j].CX
		}
		if keys[i].CY != keys[j].CY {
			return keys[i].CY < keys[j].CY
		}
		return keys[i].CZ < keys[j].CZ
	})
	return keys
}

func split(v int) (c, l int) {
	return mathx.FloorDiv(v, ChunkSize), mathx.Mod(v, ChunkSize)
}

func (s *ChunkStore) GetBlock(x, y, z int) uint16 {
	if !s.InBounds(x, y, z) {
		return 0
	}
	cx, lx := split(x)
	cy, ly := split(y)
	cz, lz := split(z)
	ch, ok := s.Chunks[ChunkKey{CX: cx, CY: cy, CZ: cz}]
	if !ok {
		return 0
	}
	return ch.Get(lx, ly, lz)
}

// SetBlock writes a cell and reports whether it changed. Out-of-bounds writes
// are dropped. Chunks are allocated lazily and freed when they become empty.
func (s *ChunkStore) SetBlock(x, y, z int, b uint16) bool {
	if !s.InBounds(x, y, z) {
		return false
	}
	cx, lx := split(x)
	cy, ly := split(y)
	cz, lz := split(z)
	k := ChunkKey{CX: cx, CY: cy, CZ: cz}
	ch, ok := s.Chunks[k]
	if !ok {
		if b == 0 {
			return false
		}
		ch = &Chunk{CX: cx, CY: cy, CZ: cz, Blocks: make([]uint16, chunkVolume)}
		s.Chunks[k] = ch
	}
	if ch.Get(lx, ly, lz) == b {
		return false
	}
	ch.Set(lx, ly, lz, b)
	if ch.Empty() {
		delete(s.Chunks, k)
	}
	return true
}

// Digest hashes every loaded chunk in key order.
func (s *ChunkStore) Digest() string {
	h := sha256.New()
	var tmp [8]byte
	for _, k := range s.LoadedChunkKeys() {
		for _, v := range []int{k.CX, k.CY, k.CZ} {
			binary.LittleEndian.PutUint64(tmp[:], uint64(int64(v)))
			h.Write(tmp[:])
		}
		d := s.Chunks[k].Digest()
		h.Write(d[:])
	}
	return hex.EncodeToString(h.Sum(nil))
}

// CountBlocks returns the number of non-air cells.
func (s *ChunkStore) CountBlocks() int {
	n := 0
	for _, ch := range s.Chunks {
		n += ch.nonEmpty
	}
	return n
}
