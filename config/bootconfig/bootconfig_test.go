package bootconfig

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "jaeos.cfg")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("writeConfig: %v", err)
	}
	return path
}

func TestLoadParsesAllDirectives(t *testing.T) {
	path := writeConfig(t, `
# boot parameters
nprocs 2
ramtop 64k
debug
proc 1 /images/p1.img
proc 2 /images/p2.img
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.NumProcs != 2 {
		t.Errorf("NumProcs = %d, want 2", cfg.NumProcs)
	}
	if cfg.RAMTop != 64*1024 {
		t.Errorf("RAMTop = %d, want %d", cfg.RAMTop, 64*1024)
	}
	if !cfg.Debug {
		t.Error("Debug = false, want true")
	}
	if len(cfg.Images) != 2 || cfg.Images[0] != "/images/p1.img" || cfg.Images[1] != "/images/p2.img" {
		t.Errorf("Images = %v, want [/images/p1.img /images/p2.img]", cfg.Images)
	}
}

func TestLoadIgnoresCommentsAndBlankLines(t *testing.T) {
	path := writeConfig(t, "\n# just a comment\n\nnprocs 1\nproc 1 img  # trailing comment\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.NumProcs != 1 || cfg.Images[0] != "img" {
		t.Errorf("cfg = %+v, want NumProcs=1 Images=[img]", cfg)
	}
}

func TestLoadRejectsUnknownDirective(t *testing.T) {
	path := writeConfig(t, "bogus 1\n")
	if _, err := Load(path); err == nil {
		t.Fatal("Load should reject an unrecognized directive")
	}
}

func TestLoadRejectsMissingProcLine(t *testing.T) {
	path := writeConfig(t, "nprocs 2\nproc 1 img\n")
	if _, err := Load(path); err == nil {
		t.Fatal("Load should reject nprocs exceeding the number of proc lines given")
	}
}

func TestLoadRejectsMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.cfg")); err == nil {
		t.Fatal("Load should fail for a missing file")
	}
}

func TestParseSizeSuffixes(t *testing.T) {
	cases := map[string]uint32{
		"10": 10,
		"1k": 1024,
		"1K": 1024,
		"2m": 2 * 1024 * 1024,
		"2M": 2 * 1024 * 1024,
	}
	for in, want := range cases {
		got, err := parseSize(in)
		if err != nil {
			t.Fatalf("parseSize(%q): %v", in, err)
		}
		if got != want {
			t.Errorf("parseSize(%q) = %d, want %d", in, got, want)
		}
	}
}
