package document

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinic/clinic/internal/domain/patient"
	"github.com/clinic/clinic/internal/platform/webhook"
)

// -- Mock Repositories --

type mockTemplateRepo struct {
	templates map[string]*Template
}

func newMockTemplateRepo() *mockTemplateRepo {
	return &mockTemplateRepo{templates: make(map[string]*Template)}
}

func (m *mockTemplateRepo) Create(_ context.Context, t *Template) error {
	t.ID = uuid.New()
	m.templates[t.Kind] = t
	return nil
}

func (m *mockTemplateRepo) GetByKind(_ context.Context, kind string) (*Template, error) {
	t, ok := m.templates[kind]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return t, nil
}

func (m *mockTemplateRepo) Update(_ context.Context, t *Template) error {
	m.templates[t.Kind] = t
	return nil
}

func (m *mockTemplateRepo) Delete(_ context.Context, id uuid.UUID) error {
	for kind, t := range m.templates {
		if t.ID == id {
			delete(m.templates, kind)
		}
	}
	return nil
}

func (m *mockTemplateRepo) List(_ context.Context) ([]*Template, error) {
	var result []*Template
	for _, t := range m.templates {
		result = append(result, t)
	}
	return result, nil
}

type mockDocumentRepo struct {
	docs map[uuid.UUID]*Document
}

func newMockDocumentRepo() *mockDocumentRepo {
	return &mockDocumentRepo{docs: make(map[uuid.UUID]*Document)}
}

func (m *mockDocumentRepo) Create(_ context.Context, d *Document) error {
	d.ID = uuid.New()
	d.CreatedAt = time.Now()
	m.docs[d.ID] = d
	return nil
}

func (m *mockDocumentRepo) GetByID(_ context.Context, id uuid.UUID) (*Document, error) {
	d, ok := m.docs[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return d, nil
}

func (m *mockDocumentRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.docs, id)
	return nil
}

func (m *mockDocumentRepo) ListByPatient(_ context.Context, patientID uuid.UUID, limit, offset int) ([]*Document, int, error) {
	var result []*Document
	for _, d := range m.docs {
		if d.PatientID == patientID {
			result = append(result, d)
		}
	}
	return result, len(result), nil
}

type mockPatients struct {
	patients map[uuid.UUID]*patient.Patient
}

func (m *mockPatients) Get(_ context.Context, id uuid.UUID) (*patient.Patient, error) {
	p, ok := m.patients[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return p, nil
}

type fixture struct {
	svc       *Service
	templates *mockTemplateRepo
	docs      *mockDocumentRepo
	patientID uuid.UUID
}

func newFixture(t *testing.T, genURL, promptURL string) *fixture {
	t.Helper()
	pid := uuid.New()
	birth := time.Date(1974, 5, 2, 0, 0, 0, 0, time.UTC)
	patients := &mockPatients{patients: map[uuid.UUID]*patient.Patient{
		pid: {ID: pid, FamilyName: "Okafor", GivenName: "Amara", BirthDate: &birth},
	}}
	logger := zerolog.New(nil).Level(zerolog.Disabled)
	templates := newMockTemplateRepo()
	docs := newMockDocumentRepo()
	svc := NewService(templates, docs, patients, webhook.NewClient("secret", logger), genURL, promptURL, logger)
	return &fixture{svc: svc, templates: templates, docs: docs, patientID: pid}
}

// -- Tests --

func TestGenerate_FillsPlaceholdersAndStores(t *testing.T) {
	var gotPrompt string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		buf, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(buf, &req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		gotPrompt = req["prompt"]
		w.Write([]byte(`{"text":"Discharge summary for the patient."}`))
	}))
	defer srv.Close()

	f := newFixture(t, srv.URL, "")
	f.svc.CreateTemplate(context.Background(), &Template{
		Kind: "discharge",
		Body: "Write a {{kind}} letter for {{patient_name}}, born {{birth_date}}.",
	})

	doc, err := f.svc.Generate(context.Background(), f.patientID, "discharge")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPrompt != "Write a discharge letter for Okafor, Amara, born 1974-05-02." {
		t.Errorf("unexpected prompt %q", gotPrompt)
	}
	if doc.Content != "Discharge summary for the patient." {
		t.Errorf("unexpected content %q", doc.Content)
	}
	if _, err := f.docs.GetByID(context.Background(), doc.ID); err != nil {
		t.Error("generated document must be stored")
	}
}

func TestGenerate_UnwrapsHTMLResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body>Ward transfer note.</body></html>"))
	}))
	defer srv.Close()

	f := newFixture(t, srv.URL, "")
	f.svc.CreateTemplate(context.Background(), &Template{Kind: "transfer", Body: "note for {{patient_name}}"})

	doc, err := f.svc.Generate(context.Background(), f.patientID, "transfer")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Content != "Ward transfer note." {
		t.Errorf("expected unwrapped text, got %q", doc.Content)
	}
}

func TestGenerate_FallsBackToRemotePrompt(t *testing.T) {
	promptSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"text":"Remote template for {{patient_name}}"}`))
	}))
	defer promptSrv.Close()

	var gotPrompt string
	genSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		buf, _ := io.ReadAll(r.Body)
		json.Unmarshal(buf, &req)
		gotPrompt = req["prompt"]
		w.Write([]byte("done"))
	}))
	defer genSrv.Close()

	f := newFixture(t, genSrv.URL, promptSrv.URL)

	if _, err := f.svc.Generate(context.Background(), f.patientID, "referral"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(gotPrompt, "Okafor, Amara") {
		t.Errorf("remote prompt must still get placeholders filled, got %q", gotPrompt)
	}
}

func TestGenerate_NoTemplateAnywhere(t *testing.T) {
	f := newFixture(t, "http://unused.invalid", "")

	if _, err := f.svc.Generate(context.Background(), f.patientID, "unknown"); err == nil {
		t.Error("expected error when no template exists")
	}
}

func TestGenerate_EndpointFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	f := newFixture(t, srv.URL, "")
	f.svc.CreateTemplate(context.Background(), &Template{Kind: "discharge", Body: "x"})

	if _, err := f.svc.Generate(context.Background(), f.patientID, "discharge"); err == nil {
		t.Error("expected error on endpoint failure")
	}
	docs, _, _ := f.docs.ListByPatient(context.Background(), f.patientID, 20, 0)
	if len(docs) != 0 {
		t.Error("failed generation must not store a document")
	}
}

func TestGenerate_UnknownPatient(t *testing.T) {
	f := newFixture(t, "http://unused.invalid", "")
	f.svc.CreateTemplate(context.Background(), &Template{Kind: "discharge", Body: "x"})

	if _, err := f.svc.Generate(context.Background(), uuid.New(), "discharge"); err == nil {
		t.Error("expected error for unknown patient")
	}
}

func TestCreateTemplate_Validation(t *testing.T) {
	f := newFixture(t, "", "")

	if err := f.svc.CreateTemplate(context.Background(), &Template{Body: "x"}); err == nil {
		t.Error("expected error for missing kind")
	}
	if err := f.svc.CreateTemplate(context.Background(), &Template{Kind: "discharge"}); err == nil {
		t.Error("expected error for missing body")
	}
}
