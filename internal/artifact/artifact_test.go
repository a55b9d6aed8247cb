package artifact_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmehdipour/churn-predictor/internal/artifact"
	"github.com/jmehdipour/churn-predictor/internal/encoder"
	"github.com/jmehdipour/churn-predictor/internal/forest"
	"github.com/jmehdipour/churn-predictor/internal/model"
	"github.com/jmehdipour/churn-predictor/internal/testutil"
)

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteArtifacts(t, dir)

	b, err := artifact.LoadDir(dir)
	require.NoError(t, err)
	assert.Equal(t, testutil.Version, b.Version)
	assert.Equal(t, 19, b.Assembler.Width())
	assert.Equal(t, b.Forest.Width, b.Assembler.Width())
}

func TestLoadDir_ShippedBundle(t *testing.T) {
	b, err := artifact.LoadDir(filepath.Join("..", "..", "artifacts"))
	require.NoError(t, err)
	assert.Equal(t, "2024.1", b.Version)
	assert.Equal(t, testutil.Features(), b.Assembler.Features())
	assert.Equal(t, testutil.Forest().Trees, b.Forest.Trees)
}

func TestLoadDir_MissingArtifact(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteArtifacts(t, dir)
	require.NoError(t, os.Remove(filepath.Join(dir, artifact.FeaturesFile)))

	b, err := artifact.LoadDir(dir)
	require.Error(t, err)
	assert.Nil(t, b)
	assert.True(t, errors.Is(err, artifact.ErrMissingArtifact))
	assert.Contains(t, err.Error(), artifact.FeaturesFile)
}

func TestLoadDir_CorruptArtifact(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteArtifacts(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, artifact.EncodersFile), []byte("{"), 0o644))

	_, err := artifact.LoadDir(dir)
	assert.Error(t, err)
}

func TestNewBundle_VersionMismatch(t *testing.T) {
	f := testutil.Forest()
	f.Version = "other"

	_, err := artifact.NewBundle(f, testutil.Encoder(t),
		encoder.FeatureList{Version: testutil.Version, Features: testutil.Features()})
	require.Error(t, err)
	assert.True(t, errors.Is(err, artifact.ErrVersionMismatch))
}

func TestNewBundle_FeatureMismatch(t *testing.T) {
	_, err := artifact.NewBundle(testutil.Forest(), testutil.Encoder(t),
		encoder.FeatureList{Version: testutil.Version, Features: testutil.Features()[:10]})
	require.Error(t, err)
	assert.True(t, errors.Is(err, encoder.ErrFeatureMismatch))
}

func TestNewBundle_WidthMismatch(t *testing.T) {
	f := &forest.Forest{Version: testutil.Version, Width: 5, Trees: []forest.Tree{{Leaves: []float64{0.5}}}}

	_, err := artifact.NewBundle(f, testutil.Encoder(t),
		encoder.FeatureList{Version: testutil.Version, Features: testutil.Features()})
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrShapeMismatch))
}
