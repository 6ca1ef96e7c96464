package store

import (
	"fmt"

	snapv1 "voxelpile.ai/internal/persistence/snapshot"
)

// ExportLoadedChunks converts loaded chunk data into snapshot chunks.
func ExportLoadedChunks(chunks map[ChunkKey]*Chunk, keys []ChunkKey) []snapv1.ChunkV1 {
	out := make([]snapv1.ChunkV1, 0, len(keys))
	for _, k := range keys {
		ch := chunks[k]
		if ch == nil || ch.Empty() {
			continue
		}
		blocks := make([]uint16, len(ch.Blocks))
		copy(blocks, ch.Blocks)
		out = append(out, snapv1.ChunkV1{
			CX:     k.CX,
			CY:     k.CY,
			CZ:     k.CZ,
			Size:   ChunkSize,
			Blocks: blocks,
		})
	}
	return out
}

// ImportChunks rebuilds a chunk store from snapshot chunks.
func ImportChunks(b Bounds, chunks []snapv1.ChunkV1) (*ChunkStore, error) {
	store := NewChunkStore(b)
	for _, ch := range chunks {
		if ch.Size != ChunkSize {
			return nil, fmt.Errorf("snapshot chunk size mismatch: got %d want %d", ch.Size, ChunkSize)
		}
		if len(ch.Blocks) != chunkVolume {
			return nil, fmt.Errorf("snapshot chunk blocks length mismatch: got %d want %d", len(ch.Blocks), chunkVolume)
		}
		k := ChunkKey{CX: ch.CX, CY: ch.CY, CZ: ch.CZ}
		if _, dup := store.Chunks[k]; dup {
			return nil, fmt.Errorf("snapshot chunk %d,%d,%d duplicated", k.CX, k.CY, k.CZ)
		}
		blocks := make([]uint16, len(ch.Blocks))
		copy(blocks, ch.Blocks)
		c := &Chunk{
			CX:     ch.CX,
			CY:     ch.CY,
			CZ:     ch.CZ,
			Blocks: blocks,
		}
		c.recount()
		if c.Empty() {
			continue
		}
		_ = c.Digest()
		store.Chunks[k] = c
	}
	return store, nil
}
