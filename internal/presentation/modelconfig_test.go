package presentation

import (
	"strings"
	"testing"
	"testing/fstest"

	"gameworld/internal/logging"
)

var modelFS = fstest.MapFS{
	"models/players/grunt.mcfg": {Data: []byte(`// grunt animations
death1 0 30 25
idle   30 40 15   // loops

run 70 12
walk 82 x 20
`)},
}

// TestModelConfigRegister checks a model's config is parsed and bad lines are skipped
func TestModelConfigRegister(t *testing.T) {
	rec := &logging.Recorder{}
	r := NewModelConfigRegistry(modelFS, rec)

	r.Register(5, "models/players/grunt.md3")

	anims := r.Animations(5)
	if len(anims) != 2 {
		t.Fatalf("Expected 2 animations, got %+v", anims)
	}
	idle, ok := r.Animation(5, "idle")
	if !ok || idle.FirstFrame != 30 || idle.NumFrames != 40 || idle.FPS != 15 {
		t.Errorf("Expected idle 30+40 at 15 fps, got %+v", idle)
	}
	if got := rec.Count("warn", "skipping model config line"); got != 2 {
		t.Errorf("Expected 2 skipped lines, got %d", got)
	}
}

// TestModelConfigRejectsBadInput checks empty names and out-of-range ids warn and do nothing
func TestModelConfigRejectsBadInput(t *testing.T) {
	rec := &logging.Recorder{}
	r := NewModelConfigRegistry(modelFS, rec)

	r.Register(1, "")
	r.Register(-1, "models/players/grunt.md3")
	r.Register(MaxModels, "models/players/grunt.md3")

	if got := rec.Count("warn", "without a model name"); got != 1 {
		t.Errorf("Expected 1 empty-name warning, got %d", got)
	}
	if got := rec.Count("warn", "out of range"); got != 2 {
		t.Errorf("Expected 2 range warnings, got %d", got)
	}
	if r.Animations(-1) != nil || r.Animations(1) != nil {
		t.Error("Expected nothing registered")
	}
}

// TestModelConfigMissingFileIsSilent checks a model without a config logs nothing
func TestModelConfigMissingFileIsSilent(t *testing.T) {
	rec := &logging.Recorder{}
	r := NewModelConfigRegistry(modelFS, rec)

	r.Register(3, "models/items/armor.md3")

	if len(rec.Entries()) != 0 {
		t.Errorf("Expected no log output, got %v", rec.Entries())
	}
	if r.Animations(3) != nil {
		t.Error("Expected no animations")
	}
}

// TestModelConfigPath checks the extension is swapped for .mcfg
func TestModelConfigPath(t *testing.T) {
	tests := []struct {
		model string
		want  string
	}{
		{"models/players/grunt.md3", "models/players/grunt.mcfg"},
		{"models/box", "models/box.mcfg"},
		{"models/v1.2/gun.iqm", "models/v1.2/gun.mcfg"},
	}
	for _, tt := range tests {
		if got := ModelConfigPath(tt.model); got != tt.want {
			t.Errorf("ModelConfigPath(%q) = %q, want %q", tt.model, got, tt.want)
		}
	}
}

// TestParseModelConfigRejectsEmptyRanges checks non-positive counts are malformed
func TestParseModelConfigRejectsEmptyRanges(t *testing.T) {
	var bad []int
	anims, err := ParseModelConfig(strings.NewReader("a 0 0 10\nb 0 5 0\nc 1 2 3\n"), func(line int, err error) {
		bad = append(bad, line)
	})
	if err != nil {
		t.Fatalf("ParseModelConfig failed: %v", err)
	}
	if len(anims) != 1 || anims[0].Name != "c" {
		t.Errorf("Expected only c, got %+v", anims)
	}
	if len(bad) != 2 || bad[0] != 1 || bad[1] != 2 {
		t.Errorf("Expected lines 1 and 2 rejected, got %v", bad)
	}
}
