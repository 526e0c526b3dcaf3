package release

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/waabox/shipwatch/internal/domain"
)

// ErrIncompleteInput is returned when the release file lacks a package name or version.
var ErrIncompleteInput = errors.New("release input is incomplete")

// Input describes the release being shipped, as produced by the versioning step.
type Input struct {
	PackageName string                   `yaml:"package_name"`
	Version     string                   `yaml:"version"`
	Commit      domain.Commit            `yaml:"commit"`
	Releases    []domain.ReleaseArtifact `yaml:"releases"`
}

// LoadInput reads a release input file.
func LoadInput(path string) (Input, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Input{}, fmt.Errorf("reading release input: %w", err)
	}
	var in Input
	if err := yaml.Unmarshal(data, &in); err != nil {
		return Input{}, fmt.Errorf("parsing release input %s: %w", path, err)
	}
	if in.PackageName == "" || in.Version == "" {
		return Input{}, fmt.Errorf("%s: %w", path, ErrIncompleteInput)
	}
	return in, nil
}

// Info combines the input with the CI run it belongs to.
func (in Input) Info(ci domain.CIContext) domain.ReleaseInfo {
	return domain.ReleaseInfo{
		PackageName: in.PackageName,
		Version:     in.Version,
		CommitTitle: in.Commit.Title,
		Releases:    append([]domain.ReleaseArtifact(nil), in.Releases...),
		CI:          ci,
	}
}
