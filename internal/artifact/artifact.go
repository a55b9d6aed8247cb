// Package artifact loads the trained classifier, the categorical encoding maps
// and the feature-name list as one consistent bundle.
package artifact

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/jmehdipour/churn-predictor/internal/encoder"
	"github.com/jmehdipour/churn-predictor/internal/forest"
	"github.com/jmehdipour/churn-predictor/internal/model"
)

const (
	ModelFile    = "model.json"
	EncodersFile = "encoders.json"
	FeaturesFile = "feature_names.json"
)

var (
	ErrMissingArtifact = errors.New("missing model artifact")
	ErrVersionMismatch = errors.New("model artifacts have different versions")
)

// Bundle is the process-wide read-only inference state.
type Bundle struct {
	Version   string
	Forest    *forest.Forest
	Encoder   *encoder.Encoder
	Assembler *encoder.Assembler
}

// LoadDir loads the three artifacts from a directory.
func LoadDir(dir string) (*Bundle, error) {
	return Load(os.DirFS(dir))
}

// Load reads all three artifacts or fails; a partial bundle is never returned.
func Load(fsys fs.FS) (*Bundle, error) {
	var missing []string
	for _, name := range []string{ModelFile, EncodersFile, FeaturesFile} {
		if _, err := fs.Stat(fsys, name); err != nil {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingArtifact, strings.Join(missing, ", "))
	}

	mf, err := fsys.Open(ModelFile)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", ModelFile, err)
	}
	defer mf.Close()
	f, err := forest.Load(mf)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ModelFile, err)
	}

	ef, err := fsys.Open(EncodersFile)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", EncodersFile, err)
	}
	defer ef.Close()
	enc, err := encoder.Load(ef)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", EncodersFile, err)
	}

	ff, err := fsys.Open(FeaturesFile)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", FeaturesFile, err)
	}
	defer ff.Close()
	fl, err := encoder.LoadFeatureList(ff)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", FeaturesFile, err)
	}

	return NewBundle(f, enc, fl)
}

// NewBundle cross-checks the three artifacts: same version, feature list
// matching the encoder, and vector width matching the forest.
func NewBundle(f *forest.Forest, enc *encoder.Encoder, fl encoder.FeatureList) (*Bundle, error) {
	if f.Version != enc.Version() || f.Version != fl.Version {
		return nil, fmt.Errorf("%w: model=%q encoders=%q features=%q",
			ErrVersionMismatch, f.Version, enc.Version(), fl.Version)
	}

	asm, err := encoder.NewAssembler(fl.Features, enc)
	if err != nil {
		return nil, err
	}
	if asm.Width() != f.Width {
		return nil, fmt.Errorf("%w: feature list has %d columns, model expects %d",
			model.ErrShapeMismatch, asm.Width(), f.Width)
	}

	return &Bundle{Version: f.Version, Forest: f, Encoder: enc, Assembler: asm}, nil
}
