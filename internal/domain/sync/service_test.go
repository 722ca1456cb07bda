package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/teleclinic/teleclinic/internal/domain/audit"
	"github.com/teleclinic/teleclinic/internal/domain/consultation"
	"github.com/teleclinic/teleclinic/internal/domain/patient"
)

type stubPatients struct {
	patient *patient.Patient
	err     error
}

func (s *stubPatients) EnsureForUser(ctx context.Context, userID string) (*patient.Patient, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.patient, nil
}

type stubResolver struct {
	bySpecialty map[string]int64
}

func (s *stubResolver) Resolve(ctx context.Context, explicitID *int64, hint string) (*int64, error) {
	if explicitID != nil {
		return explicitID, nil
	}
	if hint == "" {
		return nil, nil
	}
	if id, ok := s.bySpecialty[hint]; ok {
		return &id, nil
	}
	return nil, nil
}

type stubRepo struct {
	rows        map[int64]*consultation.Consultation
	byClientID  map[string]int64
	nextID      int64
	createCalls int
	// failCreateOn makes the Nth Create call fail (1-based); 0 disables.
	failCreateOn int
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		rows:       make(map[int64]*consultation.Consultation),
		byClientID: make(map[string]int64),
		nextID:     1,
	}
}

func (m *stubRepo) seed(c *consultation.Consultation) *consultation.Consultation {
	if c.ID == 0 {
		c.ID = m.nextID
		m.nextID++
	} else if c.ID >= m.nextID {
		m.nextID = c.ID + 1
	}
	m.rows[c.ID] = c
	if c.ClientID != nil {
		m.byClientID[*c.ClientID] = c.ID
	}
	return c
}

func (m *stubRepo) Create(ctx context.Context, c *consultation.Consultation) error {
	m.createCalls++
	if m.failCreateOn != 0 && m.createCalls == m.failCreateOn {
		return errors.New("storage unavailable")
	}
	c.ID = m.nextID
	m.nextID++
	now := time.Now()
	c.CreatedAt = now
	c.UpdatedAt = now
	cp := *c
	m.rows[c.ID] = &cp
	if c.ClientID != nil {
		m.byClientID[*c.ClientID] = c.ID
	}
	return nil
}

func (m *stubRepo) GetByID(ctx context.Context, id int64) (*consultation.Consultation, error) {
	c, ok := m.rows[id]
	if !ok {
		return nil, consultation.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *stubRepo) GetByClientID(ctx context.Context, clientID string) (*consultation.Consultation, error) {
	id, ok := m.byClientID[clientID]
	if !ok {
		return nil, consultation.ErrNotFound
	}
	return m.GetByID(ctx, id)
}

func (m *stubRepo) UpdateSyncFields(ctx context.Context, c *consultation.Consultation) error {
	stored, ok := m.rows[c.ID]
	if !ok {
		return consultation.ErrNotFound
	}
	stored.ScheduledAt = c.ScheduledAt
	stored.Symptoms = c.Symptoms
	stored.ProviderID = c.ProviderID
	stored.UpdatedAt = time.Now()
	c.UpdatedAt = stored.UpdatedAt
	return nil
}

func (m *stubRepo) UpdateClinical(ctx context.Context, c *consultation.Consultation) error {
	return errors.New("not used by sync")
}

func (m *stubRepo) ListByPatient(ctx context.Context, patientID int64, limit, offset int) ([]*consultation.Consultation, int, error) {
	return nil, 0, errors.New("not used by sync")
}

type stubAudit struct {
	events []*audit.Event
}

func (s *stubAudit) Record(ctx context.Context, e *audit.Event) {
	s.events = append(s.events, e)
}

func newTestEngine(repo *stubRepo, resolver *stubResolver) (*Engine, *stubAudit) {
	owner := &patient.Patient{ID: 3, UserID: "auth0|u1"}
	sink := &stubAudit{}
	if resolver == nil {
		resolver = &stubResolver{}
	}
	eng := NewEngine(&stubPatients{patient: owner}, resolver, repo, sink, zerolog.Nop())
	return eng, sink
}

func str(s string) *string { return &s }
func i64(n int64) *int64   { return &n }

func TestIdempotentCreate(t *testing.T) {
	repo := newStubRepo()
	eng, _ := newTestEngine(repo, nil)
	ctx := context.Background()

	item := Item{ClientID: str("local-1"), Symptoms: str("cough")}

	first, err := eng.Reconcile(ctx, "auth0|u1", []Item{item})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if first[0].Status != StatusCreated {
		t.Fatalf("first status = %q, want created", first[0].Status)
	}
	if first[0].ServerID == nil {
		t.Fatal("first result has no server id")
	}

	second, err := eng.Reconcile(ctx, "auth0|u1", []Item{item})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if second[0].Status != StatusDuplicate {
		t.Errorf("second status = %q, want duplicate", second[0].Status)
	}
	if second[0].ServerID == nil || *second[0].ServerID != *first[0].ServerID {
		t.Errorf("duplicate server id = %v, want %d", second[0].ServerID, *first[0].ServerID)
	}
	if len(repo.rows) != 1 {
		t.Errorf("stored rows = %d, want 1", len(repo.rows))
	}
}

func TestLastWriteWins(t *testing.T) {
	repo := newStubRepo()
	eng, _ := newTestEngine(repo, nil)
	ctx := context.Background()

	serverTime := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	existing := repo.seed(&consultation.Consultation{
		PatientID: 3,
		Symptoms:  str("original"),
		Status:    consultation.StatusScheduled,
		UpdatedAt: serverTime,
	})

	stale := serverTime.Add(-time.Second).Format(time.RFC3339)
	results, err := eng.Reconcile(ctx, "auth0|u1", []Item{{
		ServerID:        &existing.ID,
		ClientUpdatedAt: &stale,
		Symptoms:        str("stale edit"),
	}})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if results[0].Status != StatusSkippedNewerServer {
		t.Errorf("stale update status = %q, want skipped_newer_server", results[0].Status)
	}
	if got := repo.rows[existing.ID].Symptoms; got == nil || *got != "original" {
		t.Errorf("symptoms = %v, stale update must not overwrite", got)
	}

	fresh := serverTime.Add(time.Second).Format(time.RFC3339)
	results, err = eng.Reconcile(ctx, "auth0|u1", []Item{{
		ServerID:        &existing.ID,
		ClientUpdatedAt: &fresh,
		Symptoms:        str("fresh edit"),
	}})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if results[0].Status != StatusUpdated {
		t.Errorf("fresh update status = %q, want updated", results[0].Status)
	}
	if got := repo.rows[existing.ID].Symptoms; got == nil || *got != "fresh edit" {
		t.Errorf("symptoms = %v, want fresh edit applied", got)
	}
	if !repo.rows[existing.ID].UpdatedAt.After(serverTime) {
		t.Error("updated_at must advance on apply")
	}
}

func TestOwnershipEnforcement(t *testing.T) {
	repo := newStubRepo()
	eng, _ := newTestEngine(repo, nil)
	ctx := context.Background()

	foreign := repo.seed(&consultation.Consultation{
		PatientID: 4,
		Symptoms:  str("someone else's"),
		UpdatedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	})

	fresh := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC).Format(time.RFC3339)
	results, err := eng.Reconcile(ctx, "auth0|u1", []Item{{
		ServerID:        &foreign.ID,
		ClientUpdatedAt: &fresh,
		Symptoms:        str("hijack"),
	}})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if results[0].Status != StatusError || results[0].Reason != ReasonNotFoundOrForbidden {
		t.Errorf("result = %+v, want error/%s", results[0], ReasonNotFoundOrForbidden)
	}
	if got := repo.rows[foreign.ID].Symptoms; got == nil || *got != "someone else's" {
		t.Errorf("foreign record mutated: %v", got)
	}

	// A server id that does not exist gets the same opaque outcome.
	results, err = eng.Reconcile(ctx, "auth0|u1", []Item{{ServerID: i64(999)}})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if results[0].Status != StatusError || results[0].Reason != ReasonNotFoundOrForbidden {
		t.Errorf("result = %+v, want error/%s", results[0], ReasonNotFoundOrForbidden)
	}
}

func TestProviderFallback(t *testing.T) {
	repo := newStubRepo()
	resolver := &stubResolver{bySpecialty: map[string]int64{"cardio": 7}}
	eng, _ := newTestEngine(repo, resolver)
	ctx := context.Background()

	results, err := eng.Reconcile(ctx, "auth0|u1", []Item{
		{ClientID: str("c1"), Specialty: str("cardio")},
		{ClientID: str("c2"), Specialty: str("dermatology")},
	})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}

	if results[0].Status != StatusCreated {
		t.Fatalf("matched hint status = %q, want created", results[0].Status)
	}
	matched := repo.rows[*results[0].ServerID]
	if matched.ProviderID == nil || *matched.ProviderID != 7 {
		t.Errorf("provider id = %v, want 7", matched.ProviderID)
	}

	if results[1].Status != StatusCreated {
		t.Fatalf("unmatched hint status = %q, want created", results[1].Status)
	}
	unmatched := repo.rows[*results[1].ServerID]
	if unmatched.ProviderID != nil {
		t.Errorf("provider id = %v, want unset for no match", unmatched.ProviderID)
	}
}

func TestBatchIndependence(t *testing.T) {
	repo := newStubRepo()
	repo.failCreateOn = 2
	eng, _ := newTestEngine(repo, nil)

	results, err := eng.Reconcile(context.Background(), "auth0|u1", []Item{
		{ClientID: str("c1")},
		{ClientID: str("c2")},
		{ClientID: str("c3")},
	})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}

	want := []string{StatusCreated, StatusError, StatusCreated}
	for i, w := range want {
		if results[i].Status != w {
			t.Errorf("item %d status = %q, want %q", i, results[i].Status, w)
		}
	}
	if results[1].Reason == "" {
		t.Error("failed item must carry a diagnostic reason")
	}
	if len(repo.rows) != 2 {
		t.Errorf("stored rows = %d, want 2", len(repo.rows))
	}
}

func TestMalformedTimestampTolerance(t *testing.T) {
	repo := newStubRepo()
	eng, _ := newTestEngine(repo, nil)

	bad := "next tuesday-ish"
	results, err := eng.Reconcile(context.Background(), "auth0|u1", []Item{{
		ClientID:    str("c1"),
		ScheduledAt: &bad,
	}})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if results[0].Status != StatusCreated {
		t.Fatalf("status = %q, want created despite bad timestamp", results[0].Status)
	}
	if repo.rows[*results[0].ServerID].ScheduledAt != nil {
		t.Error("schedule must be left unset for unparsable input")
	}
}

func TestCreateAuditsAndDefaults(t *testing.T) {
	repo := newStubRepo()
	resolver := &stubResolver{bySpecialty: map[string]int64{"cardio": 7}}
	eng, sink := newTestEngine(repo, resolver)

	results, err := eng.Reconcile(context.Background(), "auth0|u1", []Item{{
		ClientID:  str("a1"),
		Specialty: str("cardio"),
		Symptoms:  str("chest pain"),
	}})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}

	res := results[0]
	if res.Status != StatusCreated || res.ServerID == nil {
		t.Fatalf("result = %+v, want created with server id", res)
	}
	if res.ClientID == nil || *res.ClientID != "a1" {
		t.Errorf("client id = %v, want a1 echoed back", res.ClientID)
	}

	created := repo.rows[*res.ServerID]
	if created.Status != consultation.StatusScheduled {
		t.Errorf("status = %q, want %q", created.Status, consultation.StatusScheduled)
	}
	if created.PatientID != 3 {
		t.Errorf("patient id = %d, want 3", created.PatientID)
	}
	if created.ProviderID == nil || *created.ProviderID != 7 {
		t.Errorf("provider id = %v, want 7", created.ProviderID)
	}

	if len(sink.events) != 1 {
		t.Fatalf("audit events = %d, want 1", len(sink.events))
	}
	ev := sink.events[0]
	if ev.Action != audit.ActionConsultationCreated || ev.ResourceID != *res.ServerID {
		t.Errorf("audit event = %+v", ev)
	}
}

func TestUpdateRecordsAudit(t *testing.T) {
	repo := newStubRepo()
	eng, sink := newTestEngine(repo, nil)

	existing := repo.seed(&consultation.Consultation{
		PatientID: 3,
		UpdatedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	})

	results, err := eng.Reconcile(context.Background(), "auth0|u1", []Item{{
		ServerID: &existing.ID,
		Symptoms: str("worse at night"),
	}})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if results[0].Status != StatusUpdated {
		t.Fatalf("status = %q, want updated", results[0].Status)
	}

	if len(sink.events) != 1 {
		t.Fatalf("audit events = %d, want 1", len(sink.events))
	}
	ev := sink.events[0]
	if ev.Action != audit.ActionConsultationUpdated || ev.ResourceID != existing.ID {
		t.Errorf("audit event = %+v, want consultation_updated for %d", ev, existing.ID)
	}
	if ev.ActorID != "auth0|u1" {
		t.Errorf("actor = %q, want auth0|u1", ev.ActorID)
	}
}

func TestUpdateWithoutFreshnessClaim(t *testing.T) {
	repo := newStubRepo()
	eng, _ := newTestEngine(repo, nil)

	existing := repo.seed(&consultation.Consultation{
		PatientID: 3,
		UpdatedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	})

	results, err := eng.Reconcile(context.Background(), "auth0|u1", []Item{{
		ServerID: &existing.ID,
		Symptoms: str("no timestamp"),
	}})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if results[0].Status != StatusUpdated {
		t.Errorf("status = %q, want updated when client makes no claim", results[0].Status)
	}
}

func TestReconcileRequiresIdentity(t *testing.T) {
	eng, _ := newTestEngine(newStubRepo(), nil)
	if _, err := eng.Reconcile(context.Background(), "", nil); err == nil {
		t.Error("expected batch-level error for missing identity")
	}
}

func TestReconcileEmptyBatch(t *testing.T) {
	eng, _ := newTestEngine(newStubRepo(), nil)
	results, err := eng.Reconcile(context.Background(), "auth0|u1", nil)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("results = %d, want 0", len(results))
	}
}
