package patient

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinic/clinic/internal/platform/webhook"
)

var validGenders = map[string]bool{
	"male": true, "female": true, "other": true, "unknown": true,
}

type Service struct {
	repo      Repository
	hooks     *webhook.Client
	searchURL string
	logger    zerolog.Logger
}

// NewService wires the registry. searchURL may be empty: lookups then run
// against the local registry only.
func NewService(repo Repository, hooks *webhook.Client, searchURL string, logger zerolog.Logger) *Service {
	return &Service{repo: repo, hooks: hooks, searchURL: searchURL, logger: logger}
}

func (s *Service) Create(ctx context.Context, p *Patient) error {
	if strings.TrimSpace(p.FamilyName) == "" && strings.TrimSpace(p.GivenName) == "" {
		return fmt.Errorf("a name is required")
	}
	if p.Gender != nil && !validGenders[*p.Gender] {
		return fmt.Errorf("invalid gender: %s", *p.Gender)
	}
	p.Active = true
	return s.repo.Create(ctx, p)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Update(ctx context.Context, p *Patient) error {
	if strings.TrimSpace(p.FamilyName) == "" && strings.TrimSpace(p.GivenName) == "" {
		return fmt.Errorf("a name is required")
	}
	if p.Gender != nil && !validGenders[*p.Gender] {
		return fmt.Errorf("invalid gender: %s", *p.Gender)
	}
	return s.repo.Update(ctx, p)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	return s.repo.List(ctx, limit, offset)
}

// DirectoryHit is one match from the external patient directory.
type DirectoryHit struct {
	ExternalID      string `json:"external_id"`
	Name            string `json:"name"`
	BirthDate       string `json:"birth_date,omitempty"`
	InsuranceNumber string `json:"insurance_number,omitempty"`
}

// SearchResult combines local registry matches with directory hits.
type SearchResult struct {
	Local     []*Patient     `json:"local"`
	Directory []DirectoryHit `json:"directory,omitempty"`
}

// Search queries the local registry and, when a directory endpoint is
// configured, the external directory as well. A directory failure degrades
// to local-only results rather than failing the whole lookup.
func (s *Service) Search(ctx context.Context, query string, limit, offset int) (*SearchResult, int, error) {
	local, total, err := s.repo.Search(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	result := &SearchResult{Local: local}

	if s.searchURL == "" {
		return result, total, nil
	}

	body, _, err := s.hooks.SearchPatients(ctx, s.searchURL, query)
	if err != nil {
		s.logger.Warn().Err(err).Msg("patient directory lookup failed")
		return result, total, nil
	}
	var hits []DirectoryHit
	if err := json.Unmarshal(body, &hits); err != nil {
		s.logger.Warn().Err(err).Msg("patient directory returned an undecodable response")
		return result, total, nil
	}
	result.Directory = hits
	return result, total, nil
}
