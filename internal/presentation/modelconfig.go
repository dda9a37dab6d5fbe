package presentation

import (
	"bufio"
	"io"
	"io/fs"
	"path"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"gameworld/internal/logging"
)

// MaxModels bounds model ids.
const MaxModels = 256

// ModelAnimation is one named frame range of a model.
type ModelAnimation struct {
	Name       string
	FirstFrame int
	NumFrames  int
	FPS        float64
}

// ModelConfigRegistry loads per-model animation tables from ".mcfg" files
// next to the model.
type ModelConfigRegistry struct {
	fsys  fs.FS
	log   logging.Logger
	anims [MaxModels][]ModelAnimation
}

// NewModelConfigRegistry reads configs from fsys. A nil fsys means no
// model has a config.
func NewModelConfigRegistry(fsys fs.FS, log logging.Logger) *ModelConfigRegistry {
	if log == nil {
		log = logging.Nop{}
	}
	return &ModelConfigRegistry{fsys: fsys, log: log}
}

// ModelConfigPath returns the config file that belongs to modelName.
func ModelConfigPath(modelName string) string {
	return strings.TrimSuffix(modelName, path.Ext(modelName)) + ".mcfg"
}

// Register loads the animations of model id. An empty name or an id out of
// range is logged and ignored; a model without a config file is skipped
// silently. Malformed lines are logged and skipped.
func (r *ModelConfigRegistry) Register(id int, modelName string) {
	if modelName == "" {
		r.log.Warn("model config registration without a model name", "id", id)
		return
	}
	if id < 0 || id >= MaxModels {
		r.log.Warn("model id out of range", "id", id, "model", modelName)
		return
	}
	if r.fsys == nil {
		return
	}

	cfgPath := ModelConfigPath(modelName)
	f, err := r.fsys.Open(cfgPath)
	if err != nil {
		return
	}
	defer f.Close()

	anims, err := ParseModelConfig(f, func(line int, err error) {
		r.log.Warn("skipping model config line", "file", cfgPath, "line", line, "error", err)
	})
	if err != nil {
		r.log.Warn("reading model config failed", "file", cfgPath, "error", err)
		return
	}
	r.anims[id] = anims
}

// Animations returns the animations registered for id, or nil.
func (r *ModelConfigRegistry) Animations(id int) []ModelAnimation {
	if id < 0 || id >= MaxModels {
		return nil
	}
	return r.anims[id]
}

// Animation looks an animation of model id up by name.
func (r *ModelConfigRegistry) Animation(id int, name string) (ModelAnimation, bool) {
	for _, a := range r.Animations(id) {
		if a.Name == name {
			return a, true
		}
	}
	return ModelAnimation{}, false
}

// Clear forgets every registered model.
func (r *ModelConfigRegistry) Clear() {
	r.anims = [MaxModels][]ModelAnimation{}
}

// ParseModelConfig reads "name firstFrame numFrames fps" lines. Blank
// lines and "//" comments are ignored. A malformed line is reported
// through bad (when non-nil) and skipped.
func ParseModelConfig(rd io.Reader, bad func(line int, err error)) ([]ModelAnimation, error) {
	var out []ModelAnimation
	sc := bufio.NewScanner(rd)
	for n := 1; sc.Scan(); n++ {
		line := sc.Text()
		if i := strings.Index(line, "//"); i >= 0 {
			line = line[:i]
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		a, err := parseAnimationLine(fields)
		if err != nil {
			if bad != nil {
				bad(n, err)
			}
			continue
		}
		out = append(out, a)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, "scan model config")
	}
	return out, nil
}

func parseAnimationLine(fields []string) (ModelAnimation, error) {
	if len(fields) != 4 {
		return ModelAnimation{}, errors.Errorf("expected 4 fields, got %d", len(fields))
	}
	first, err := strconv.Atoi(fields[1])
	if err != nil {
		return ModelAnimation{}, errors.Wrap(err, "first frame")
	}
	num, err := strconv.Atoi(fields[2])
	if err != nil {
		return ModelAnimation{}, errors.Wrap(err, "frame count")
	}
	fps, err := strconv.ParseFloat(fields[3], 64)
	if err != nil {
		return ModelAnimation{}, errors.Wrap(err, "fps")
	}
	if first < 0 || num <= 0 || fps <= 0 {
		return ModelAnimation{}, errors.Errorf("invalid range %d+%d at %g fps", first, num, fps)
	}
	return ModelAnimation{Name: fields[0], FirstFrame: first, NumFrames: num, FPS: fps}, nil
}
