package service

import (
	"context"
	"fmt"
	"io"
	"os"

	"scada_quote_backend/internal/catalog/repository"

	"gopkg.in/yaml.v3"
)

type seedDocument struct {
	Entries []repository.Entry `yaml:"entries"`
}

// ParseSeed decodes a YAML catalog seed and checks it assembles into a valid
// catalog. Entries default to active.
func ParseSeed(r io.Reader) ([]repository.Entry, error) {
	var doc seedDocument
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode catalog seed: %w", err)
	}

	entries := make([]repository.Entry, 0, len(doc.Entries))
	for i, e := range doc.Entries {
		if e.ID == "" || e.Label == "" {
			return nil, fmt.Errorf("catalog seed entry %d: id and label are required", i)
		}
		if e.UnitPrice < 0 || e.AdditionalUnitPrice < 0 {
			return nil, fmt.Errorf("catalog seed entry %s: prices must not be negative", e.ID)
		}
		e.Active = true
		if e.SortOrder == 0 {
			e.SortOrder = i + 1
		}
		entries = append(entries, e)
	}

	if _, err := Assemble(entries); err != nil {
		return nil, fmt.Errorf("catalog seed: %w", err)
	}
	return entries, nil
}

// Seed loads the YAML file at path into an empty catalog table.
// A populated table is left untouched.
func (s *Service) Seed(ctx context.Context, path string) (int, error) {
	count, err := s.repo.Count(ctx)
	if err != nil {
		return 0, err
	}
	if count > 0 || path == "" {
		return 0, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open catalog seed: %w", err)
	}
	defer f.Close()

	entries, err := ParseSeed(f)
	if err != nil {
		return 0, err
	}
	if err := s.repo.InsertMany(ctx, entries); err != nil {
		return 0, err
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.log.WithContext(ctx).Warn("catalog cache invalidation failed", "error", err)
	}

	s.log.WithContext(ctx).Info("catalog seeded", "entries", len(entries), "path", path)
	return len(entries), nil
}
