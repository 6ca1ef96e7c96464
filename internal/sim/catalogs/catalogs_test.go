package catalogs

import (
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

func TestLoad_RepoConfigs(t *testing.T) {
	cats, err := Load(filepath.Join("..", "..", "..", "configs"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	b := &cats.Blocks
	if b.Palette[0] != AirCode || b.Index[AirCode] != 0 {
		t.Fatalf("air must be palette id 0, palette=%v", b.Palette[:3])
	}
	if b.PaletteDigest == "" || b.DefsDigest == "" {
		t.Fatalf("missing digests")
	}
	for h := 1; h <= 8; h++ {
		code := "charcoalpile-" + strconv.Itoa(h)
		if _, ok := b.Lookup(code); !ok {
			t.Fatalf("missing %s", code)
		}
	}
	if _, ok := b.Lookup("charcoalpile-9"); ok {
		t.Fatalf("charcoalpile-9 should not exist")
	}
}

func TestLookup_DomainHandling(t *testing.T) {
	var b BlockCatalog
	err := ParseBlocks([]byte(`[
		{"id":"game:air"},
		{"id":"charcoalpile-4"},
		{"id":"coalmod:charcoalpile-4"}
	]`), &b)
	if err != nil {
		t.Fatalf("ParseBlocks: %v", err)
	}

	vanilla, ok := b.Lookup("charcoalpile-4")
	if !ok || vanilla.Domain != "game" || vanilla.Path != "charcoalpile-4" {
		t.Fatalf("unexpected vanilla lookup: %+v ok=%v", vanilla, ok)
	}
	if same, _ := b.Lookup("GAME:charcoalpile-4"); same != vanilla {
		t.Fatalf("codes should be case-insensitive: %+v", same)
	}
	modded, ok := b.Lookup("coalmod:charcoalpile-4")
	if !ok || modded.Domain != "coalmod" || modded.ID == vanilla.ID {
		t.Fatalf("unexpected modded lookup: %+v ok=%v", modded, ok)
	}
	if got := b.Describe(modded.ID); got != modded {
		t.Fatalf("Describe(%d) = %+v", modded.ID, got)
	}
	if got := b.Describe(999); got.ID != 0 || got.Path != "air" {
		t.Fatalf("unknown ids should read as air, got %+v", got)
	}
}

func TestParseBlocks_Rejects(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want string
	}{
		{name: "missing air", raw: `[{"id":"game:stone"}]`, want: "missing game:air"},
		{name: "bad kind", raw: `[{"id":"game:air"},{"id":"game:pit","kind":"OVEN"}]`, want: "blocks.json"},
		{name: "unknown field", raw: `[{"id":"game:air","color":"red"}]`, want: "blocks.json"},
		{name: "duplicate", raw: `[{"id":"game:air"},{"id":"stone"},{"id":"game:stone"}]`, want: "duplicate id game:stone"},
		{name: "not json", raw: `[{`, want: "blocks.json"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var b BlockCatalog
			err := ParseBlocks([]byte(tc.raw), &b)
			if err == nil {
				t.Fatalf("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestKinds(t *testing.T) {
	var b BlockCatalog
	if err := ParseBlocks([]byte(`[{"id":"game:air"},{"id":"game:charcoalpit","kind":"PIT"},{"id":"game:firewood","kind":"FUEL"}]`), &b); err != nil {
		t.Fatalf("ParseBlocks: %v", err)
	}
	if got := b.Kind(b.Index["game:charcoalpit"]); got != KindPit {
		t.Fatalf("pit kind = %q", got)
	}
	if got := b.Kind(b.Index["game:firewood"]); got != KindFuel {
		t.Fatalf("fuel kind = %q", got)
	}
	if got := b.Kind(0); got != "" {
		t.Fatalf("air kind = %q", got)
	}
}
