// Package jobs describes pipeline runs as YAML documents.
package jobs

import (
	"bytes"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"gotidy/adapters/source"
	"gotidy/internal/cleaning"
	"gotidy/internal/errors"
	"gotidy/internal/filtering"
	"gotidy/ports"
)

// Aggregation kinds
const (
	KindGroupSum        = "group_sum"
	KindGroupPercentage = "group_percentage"
)

// Job is one load -> clean -> filter -> aggregate -> top-N -> emit run
type Job struct {
	Name        string               `yaml:"name" validate:"required"`
	Description string               `yaml:"description,omitempty"`
	Source      source.Source        `yaml:"source"`
	Clean       cleaning.Options     `yaml:"clean,omitempty"`
	Filter      *filtering.YearRange `yaml:"filter,omitempty"`
	Aggregate   *AggregateSpec       `yaml:"aggregate,omitempty"`
	TopN        *int                 `yaml:"top_n,omitempty" validate:"omitempty,gte=0"`
	Describe    bool                 `yaml:"describe,omitempty"`
	Correlate   bool                 `yaml:"correlate,omitempty"`
	Chart       *ports.ChartSpec     `yaml:"chart,omitempty"`
	Outputs     Outputs              `yaml:"outputs,omitempty"`
}

// AggregateSpec selects the reduction
type AggregateSpec struct {
	Kind     string   `yaml:"kind" validate:"required,oneof=group_sum group_percentage"`
	Keys     []string `yaml:"keys" validate:"required,min=1,max=2,dive,required"`
	Measure  string   `yaml:"measure" validate:"required"`
	Decimals *int     `yaml:"decimals,omitempty" validate:"omitempty,gte=0,lte=10"`
}

// Outputs selects which intermediate tables are written besides the result
type Outputs struct {
	Cleaned  bool `yaml:"cleaned,omitempty"`
	Filtered bool `yaml:"filtered,omitempty"`
	Report   bool `yaml:"report,omitempty"`
}

var validate = validator.New()

// Validate checks field constraints and the combinations a run depends on
func (j *Job) Validate() error {
	if err := validate.Struct(j); err != nil {
		return errors.WithCode(errors.CodeInvalidInput, errors.Wrapf(err, "job %q is invalid", j.Name))
	}
	if j.Aggregate != nil && j.Aggregate.Kind == KindGroupPercentage && len(j.Aggregate.Keys) != 1 {
		return errors.InvalidInputf("job %q: group_percentage takes exactly one key", j.Name)
	}
	if j.Chart != nil {
		switch {
		case j.Chart.Kind == ports.ChartBar && j.Aggregate == nil:
			return errors.InvalidInputf("job %q: bar charts need an aggregate", j.Name)
		case j.Aggregate == nil && (j.Chart.X == "" || j.Chart.Y == ""):
			return errors.InvalidInputf("job %q: table scatter charts need x and y fields", j.Name)
		}
	}
	if j.Aggregate == nil && !j.Describe && !j.Correlate && j.Chart == nil && !j.Outputs.Cleaned {
		return errors.InvalidInputf("job %q produces nothing", j.Name)
	}
	return nil
}

// Parse decodes and validates a YAML job. Unknown keys are rejected.
func Parse(data []byte) (*Job, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var job Job
	if err := dec.Decode(&job); err != nil {
		return nil, errors.WithCode(errors.CodeInvalidInput, errors.Wrap(err, "failed to parse job"))
	}
	if err := job.Validate(); err != nil {
		return nil, err
	}
	return &job, nil
}

// LoadFile reads a job from a YAML file
func LoadFile(path string) (*Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.LoadErrorf("failed to read job file %s: %v", path, err)
	}
	return Parse(data)
}

// Marshal encodes a job as YAML
func Marshal(j *Job) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(j); err != nil {
		return nil, errors.Wrap(err, "failed to encode job")
	}
	if err := enc.Close(); err != nil {
		return nil, errors.Wrap(err, "failed to encode job")
	}
	return buf.Bytes(), nil
}
