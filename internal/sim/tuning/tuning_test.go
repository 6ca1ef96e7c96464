package tuning

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func writeTuning(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return p
}

func TestLoad_RepoConfig(t *testing.T) {
	got, err := Load(filepath.Join("..", "..", "..", "configs", "tuning.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff(Defaults(), got); diff != "" {
		t.Fatalf("repo tuning drifted from defaults (-want +got):\n%s", diff)
	}
}

func TestLoad_PartialKeepsDefaults(t *testing.T) {
	got, err := Load(writeTuning(t, "promotion:\n  ideal_tier: 999\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := Defaults()
	want.Promotion.IdealTier = 999
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_Errors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); !os.IsNotExist(err) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
	if _, err := Load(writeTuning(t, "promotion: [1,2")); err == nil {
		t.Fatalf("expected yaml error")
	}
	if _, err := Load(writeTuning(t, "promotion:\n  max_visits: -1\n")); err == nil {
		t.Fatalf("expected max_visits error")
	}
}

func TestPromotion_PileConfig(t *testing.T) {
	p := Defaults().Promotion
	p.MaxVisits = 64
	cfg := p.PileConfig()
	if cfg.IdealTier != 8 || cfg.Family.Prefix != "charcoalpile" || cfg.Family.Domain != "game" || cfg.MaxVisits != 64 {
		t.Fatalf("unexpected pile config %+v", cfg)
	}
}
