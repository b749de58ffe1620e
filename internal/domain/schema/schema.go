// Package schema loads the trained artifact: the scoring model, the ordered
// feature column list it was trained on, and the skill vocabulary.
package schema

import (
	"context"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/okian/coachfit/internal/domain/scoring"
)

// TrainedSchema is immutable after construction and safe to share.
type TrainedSchema struct {
	scorer  scoring.Scorer
	model   string
	columns []string
	skills  []string
}

// New assembles a schema from parts that are already loaded.
func New(scorer scoring.Scorer, columns, skills []string) (*TrainedSchema, error) {
	if scorer == nil {
		return nil, fmt.Errorf("%w: no scorer", ErrArtifactLoad)
	}
	if err := checkColumns(columns); err != nil {
		return nil, err
	}
	if skills == nil {
		return nil, fmt.Errorf("%w: skill_list is missing", ErrArtifactLoad)
	}
	return &TrainedSchema{
		scorer:  scorer,
		model:   scorer.Name(),
		columns: append([]string(nil), columns...),
		skills:  append([]string(nil), skills...),
	}, nil
}

// Scorer returns the trained classifier.
func (s *TrainedSchema) Scorer() scoring.Scorer { return s.scorer }

// ModelType names the classifier kind, e.g. "logistic".
func (s *TrainedSchema) ModelType() string { return s.model }

// FeatureColumns returns a copy of the ordered column list.
func (s *TrainedSchema) FeatureColumns() []string { return append([]string(nil), s.columns...) }

// SkillList returns a copy of the skill vocabulary.
func (s *TrainedSchema) SkillList() []string { return append([]string(nil), s.skills...) }

// NumColumns is the width of every feature row.
func (s *TrainedSchema) NumColumns() int { return len(s.columns) }

// Column returns the i-th column name.
func (s *TrainedSchema) Column(i int) string { return s.columns[i] }

type options struct {
	scorerOpts []scoring.RPCOption
}

// Option configures Load.
type Option func(*options)

// WithScorerOptions forwards options to a remote scorer, if the artifact
// declares one.
func WithScorerOptions(opts ...scoring.RPCOption) Option {
	return func(o *options) {
		o.scorerOpts = append(o.scorerOpts, opts...)
	}
}

// artifact mirrors the on-disk document. Pointer and nil-able fields tell an
// absent key apart from an empty one.
type artifact struct {
	Model          *modelSection `yaml:"model"`
	FeatureColumns []string      `yaml:"feature_columns"`
	SkillList      []string      `yaml:"skill_list"`
}

type modelSection struct {
	Type     string             `yaml:"type"`
	Bias     *float64           `yaml:"bias"`
	Weights  map[string]float64 `yaml:"weights"`
	Endpoint string             `yaml:"endpoint"`
	Timeout  string             `yaml:"timeout"`
}

// Load reads the artifact at path. JSON artifacts are accepted as YAML.
func Load(ctx context.Context, path string, opts ...Option) (*TrainedSchema, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty path", ErrArtifactLoad)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrArtifactLoad, err)
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrArtifactLoad, path, err)
	}

	var a artifact
	if err := yaml.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %w", ErrArtifactLoad, path, err)
	}

	switch {
	case a.Model == nil:
		return nil, fmt.Errorf("%w: model is missing", ErrArtifactLoad)
	case a.FeatureColumns == nil:
		return nil, fmt.Errorf("%w: feature_columns is missing", ErrArtifactLoad)
	case a.SkillList == nil:
		return nil, fmt.Errorf("%w: skill_list is missing", ErrArtifactLoad)
	}
	if err := checkColumns(a.FeatureColumns); err != nil {
		return nil, err
	}

	spec := scoring.Spec{
		Type:     a.Model.Type,
		Bias:     a.Model.Bias,
		Weights:  a.Model.Weights,
		Endpoint: a.Model.Endpoint,
	}
	if a.Model.Timeout != "" {
		spec.Timeout, err = time.ParseDuration(a.Model.Timeout)
		if err != nil {
			return nil, fmt.Errorf("%w: model.timeout: %w", ErrArtifactLoad, err)
		}
	}

	scorer, err := scoring.New(spec, a.FeatureColumns, o.scorerOpts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrArtifactLoad, err)
	}
	return New(scorer, a.FeatureColumns, a.SkillList)
}

func checkColumns(columns []string) error {
	if len(columns) == 0 {
		return fmt.Errorf("%w: feature_columns is empty", ErrArtifactLoad)
	}
	seen := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		if c == "" {
			return fmt.Errorf("%w: blank feature column", ErrArtifactLoad)
		}
		if _, dup := seen[c]; dup {
			return fmt.Errorf("%w: duplicate feature column %q", ErrArtifactLoad, c)
		}
		seen[c] = struct{}{}
	}
	return nil
}
