package document

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinic/clinic/internal/domain/patient"
	"github.com/clinic/clinic/internal/platform/webhook"
)

// PatientLookup resolves the patient a document is generated for.
// *patient.Service satisfies it.
type PatientLookup interface {
	Get(ctx context.Context, id uuid.UUID) (*patient.Patient, error)
}

type Service struct {
	templates TemplateRepository
	documents DocumentRepository
	patients  PatientLookup
	hooks     *webhook.Client
	genURL    string
	promptURL string
	logger    zerolog.Logger
}

func NewService(templates TemplateRepository, documents DocumentRepository, patients PatientLookup,
	hooks *webhook.Client, genURL, promptURL string, logger zerolog.Logger) *Service {
	return &Service{
		templates: templates,
		documents: documents,
		patients:  patients,
		hooks:     hooks,
		genURL:    genURL,
		promptURL: promptURL,
		logger:    logger,
	}
}

// -- Templates --

func (s *Service) CreateTemplate(ctx context.Context, t *Template) error {
	if strings.TrimSpace(t.Kind) == "" {
		return fmt.Errorf("kind is required")
	}
	if strings.TrimSpace(t.Body) == "" {
		return fmt.Errorf("body is required")
	}
	return s.templates.Create(ctx, t)
}

func (s *Service) UpdateTemplate(ctx context.Context, t *Template) error {
	if strings.TrimSpace(t.Body) == "" {
		return fmt.Errorf("body is required")
	}
	return s.templates.Update(ctx, t)
}

func (s *Service) DeleteTemplate(ctx context.Context, id uuid.UUID) error {
	return s.templates.Delete(ctx, id)
}

func (s *Service) ListTemplates(ctx context.Context) ([]*Template, error) {
	return s.templates.List(ctx)
}

// -- Documents --

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Document, error) {
	return s.documents.GetByID(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.documents.Delete(ctx, id)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Document, int, error) {
	return s.documents.ListByPatient(ctx, patientID, limit, offset)
}

// Generate produces a clinical document for a patient: resolve the prompt
// for the kind, fill in the patient placeholders, delegate generation to
// the remote endpoint, and store the normalized text.
func (s *Service) Generate(ctx context.Context, patientID uuid.UUID, kind string) (*Document, error) {
	if kind == "" {
		return nil, fmt.Errorf("kind is required")
	}
	if s.genURL == "" {
		return nil, fmt.Errorf("no generation endpoint configured")
	}

	p, err := s.patients.Get(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("patient not found")
	}

	prompt, err := s.resolvePrompt(ctx, kind)
	if err != nil {
		return nil, err
	}
	prompt = fillPlaceholders(prompt, p, kind)

	content, delivery, err := s.hooks.GenerateDocument(ctx, s.genURL, prompt)
	if err != nil {
		s.logger.Error().Err(err).Str("kind", kind).Int("attempts", delivery.Attempts).Msg("document generation failed")
		return nil, fmt.Errorf("generation failed: %w", err)
	}
	if content == "" {
		return nil, fmt.Errorf("generation endpoint returned an empty document")
	}

	doc := &Document{
		PatientID:   patientID,
		Kind:        kind,
		Content:     content,
		GeneratedAt: time.Now().UTC(),
	}
	if err := s.documents.Create(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// resolvePrompt prefers the locally stored template; when none exists and a
// prompt endpoint is configured, the remote template is used.
func (s *Service) resolvePrompt(ctx context.Context, kind string) (string, error) {
	if t, err := s.templates.GetByKind(ctx, kind); err == nil {
		return t.Body, nil
	}
	if s.promptURL == "" {
		return "", fmt.Errorf("no prompt template for kind %s", kind)
	}
	prompt, _, err := s.hooks.FetchPrompt(ctx, s.promptURL, kind)
	if err != nil {
		return "", fmt.Errorf("fetch prompt: %w", err)
	}
	if prompt == "" {
		return "", fmt.Errorf("no prompt template for kind %s", kind)
	}
	return prompt, nil
}

func fillPlaceholders(prompt string, p *patient.Patient, kind string) string {
	birth := ""
	if p.BirthDate != nil {
		birth = p.BirthDate.Format("2006-01-02")
	}
	r := strings.NewReplacer(
		"{{patient_name}}", p.DisplayName(),
		"{{birth_date}}", birth,
		"{{kind}}", kind,
	)
	return r.Replace(prompt)
}
