// Package config loads pipeline definitions: the stage catalog, transition
// rules, and optional fixture candidates.
package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/hirezen/stageflow/pkg/models"
	"github.com/hirezen/stageflow/pkg/persistence"
	"gopkg.in/yaml.v3"
)

// Pipeline is the structure of a pipeline YAML file.
type Pipeline struct {
	Stages     []models.Stage           `yaml:"stages"     validate:"dive"`
	Rules      []*models.TransitionRule `yaml:"rules"      validate:"dive"`
	Candidates []*models.Candidate      `yaml:"candidates" validate:"dive"`
}

// Catalog returns the pipeline's stages, or the default catalog when it declares none.
func (p *Pipeline) Catalog() models.StageCatalog {
	if len(p.Stages) == 0 {
		return models.DefaultStageCatalog()
	}

	return models.StageCatalog{Stages: p.Stages}
}

// LoadPipeline reads and validates a pipeline file.
func LoadPipeline(path string) (*Pipeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pipeline file %s: %w", path, err)
	}

	return ParsePipeline(data)
}

// ParsePipeline decodes and validates pipeline YAML.
func ParsePipeline(data []byte) (*Pipeline, error) {
	var pipeline Pipeline

	err := yaml.Unmarshal(data, &pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to parse pipeline YAML: %w", err)
	}

	err = ValidatePipeline(&pipeline)
	if err != nil {
		return nil, err
	}

	return &pipeline, nil
}

// LoadStageCatalogOrDefault loads the stage catalog from path, falling back to
// the default catalog when path is empty or the file does not exist.
func LoadStageCatalogOrDefault(path string) (models.StageCatalog, error) {
	if path == "" {
		return models.DefaultStageCatalog(), nil
	}

	pipeline, err := LoadPipeline(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return models.DefaultStageCatalog(), nil
		}

		return models.StageCatalog{}, err
	}

	return pipeline.Catalog(), nil
}

// ValidatePipeline checks field constraints and that every stage a rule or
// candidate references is declared, when the pipeline declares stages.
func ValidatePipeline(p *Pipeline) error {
	err := validator.New(validator.WithRequiredStructEnabled()).Struct(p)
	if err != nil {
		return fmt.Errorf("invalid pipeline: %w", err)
	}

	if len(p.Stages) == 0 {
		return nil
	}

	known := make(map[string]bool, len(p.Stages))
	for _, stage := range p.Stages {
		known[stage.ID] = true
	}

	var errs []error

	for i, rule := range p.Rules {
		if !known[rule.FromStage] {
			errs = append(errs, fmt.Errorf("rules[%d]: unknown from_stage %q", i, rule.FromStage))
		}

		if !known[rule.ToStage] {
			errs = append(errs, fmt.Errorf("rules[%d]: unknown to_stage %q", i, rule.ToStage))
		}
	}

	for i, candidate := range p.Candidates {
		if !known[candidate.Status] {
			errs = append(errs, fmt.Errorf("candidates[%d]: unknown status %q", i, candidate.Status))
		}
	}

	return errors.Join(errs...)
}

// Apply saves the pipeline's rules and candidates into store.
func Apply(ctx context.Context, store persistence.Persistence, p *Pipeline) error {
	for _, rule := range p.Rules {
		err := store.RuleRepository().Save(ctx, rule)
		if err != nil {
			return fmt.Errorf("failed to save rule %s: %w", rule.ID, err)
		}
	}

	for _, candidate := range p.Candidates {
		err := store.CandidateRepository().Save(ctx, candidate)
		if err != nil {
			return fmt.Errorf("failed to save candidate %s: %w", candidate.ID, err)
		}
	}

	return nil
}
