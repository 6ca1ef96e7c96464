package pile

import "strings"

type memCatalog struct {
	byCode map[string]Block
	probes []string
}

func newMemCatalog(codes ...string) *memCatalog {
	c := &memCatalog{byCode: map[string]Block{}}
	for i, code := range codes {
		c.add(code, uint16(i+1))
	}
	return c
}

func (c *memCatalog) add(code string, id uint16) Block {
	domain, path := "game", code
	if i := strings.IndexByte(code, ':'); i >= 0 {
		domain, path = code[:i], code[i+1:]
	}
	b := Block{ID: id, Domain: domain, Path: path}
	c.byCode[b.Code()] = b
	return b
}

func (c *memCatalog) Lookup(code string) (Block, bool) {
	c.probes = append(c.probes, code)
	if !strings.Contains(code, ":") {
		code = "game:" + code
	}
	b, ok := c.byCode[code]
	return b, ok
}

func (c *memCatalog) byID(id uint16) Block {
	for _, b := range c.byCode {
		if b.ID == id {
			return b
		}
	}
	return Block{ID: Air, Domain: "game", Path: "air"}
}

type memGrid struct {
	cat    *memCatalog
	cells  map[Vec3i]uint16
	reads  int
	writes []Vec3i
}

func newMemGrid(cat *memCatalog) *memGrid {
	return &memGrid{cat: cat, cells: map[Vec3i]uint16{}}
}

func (g *memGrid) Get(p Vec3i) Block {
	g.reads++
	return g.cat.byID(g.cells[p])
}

func (g *memGrid) Set(p Vec3i, id uint16) {
	g.writes = append(g.writes, p)
	if id == Air {
		delete(g.cells, p)
		return
	}
	g.cells[p] = id
}

func (g *memGrid) put(p Vec3i, code string) {
	b, ok := g.cat.Lookup(code)
	if !ok {
		panic("unknown code " + code)
	}
	g.cells[p] = b.ID
}

func (g *memGrid) snapshot() map[Vec3i]uint16 {
	out := make(map[Vec3i]uint16, len(g.cells))
	for k, v := range g.cells {
		out[k] = v
	}
	return out
}

func charcoal() Family { return Family{Domain: "game", Prefix: "charcoalpile"} }
