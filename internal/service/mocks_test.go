package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/healthpass/healthpass/internal/config"
	"github.com/healthpass/healthpass/internal/domain/audit"
	"github.com/healthpass/healthpass/internal/domain/patient"
	"github.com/healthpass/healthpass/internal/domain/prescription"
	"github.com/healthpass/healthpass/internal/notify"
)

// --- in-memory patient repository ---

var _ patient.Repository = (*memPatientRepo)(nil)

type memPatientRepo struct {
	mu   sync.Mutex
	byID map[uuid.UUID]*patient.Patient
}

func newMemPatientRepo() *memPatientRepo {
	return &memPatientRepo{byID: map[uuid.UUID]*patient.Patient{}}
}

func (r *memPatientRepo) Create(ctx context.Context, p *patient.Patient) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	cp := *p
	r.byID[p.ID] = &cp
	return nil
}

func (r *memPatientRepo) GetByID(ctx context.Context, id uuid.UUID) (*patient.Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok {
		return nil, patient.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *memPatientRepo) GetByHealthCardRef(ctx context.Context, ref string) (*patient.Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.byID {
		if p.HealthCardRef == ref {
			cp := *p
			return &cp, nil
		}
	}
	return nil, patient.ErrNotFound
}

func (r *memPatientRepo) UpdateContact(ctx context.Context, id uuid.UUID, cmd *patient.UpdateContactCommand) (*patient.Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok {
		return nil, patient.ErrNotFound
	}
	if cmd.Phone != nil {
		p.Phone = *cmd.Phone
	}
	if cmd.Email != nil {
		p.Email = *cmd.Email
	}
	cp := *p
	return &cp, nil
}

func (r *memPatientRepo) ExistsByHealthCardRef(ctx context.Context, ref string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.byID {
		if p.HealthCardRef == ref {
			return true, nil
		}
	}
	return false, nil
}

// --- in-memory prescription repository ---

// memRxRepo copies entities on the way in and out so that, like a real
// database, in-memory mutation without Update is not persisted.
var _ prescription.Repository = (*memRxRepo)(nil)

type memRxRepo struct {
	mu   sync.Mutex
	byID map[uuid.UUID]*prescription.Prescription

	// Optional overrides for failure-path tests.
	codeInUseFunc func(code string) (bool, error)
	updateFunc    func(p *prescription.Prescription) error
}

func newMemRxRepo() *memRxRepo {
	return &memRxRepo{byID: map[uuid.UUID]*prescription.Prescription{}}
}

func (r *memRxRepo) Create(ctx context.Context, p *prescription.Prescription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	cp := clone(p)
	r.byID[p.ID] = cp
	return nil
}

func (r *memRxRepo) GetByID(ctx context.Context, id uuid.UUID) (*prescription.Prescription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok {
		return nil, prescription.ErrNotFound
	}
	return clone(p), nil
}

func (r *memRxRepo) Update(ctx context.Context, p *prescription.Prescription) error {
	if r.updateFunc != nil {
		if err := r.updateFunc(p); err != nil {
			return err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[p.ID]; !ok {
		return prescription.ErrNotFound
	}
	r.byID[p.ID] = clone(p)
	return nil
}

func (r *memRxRepo) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*prescription.Prescription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*prescription.Prescription
	for _, p := range r.byID {
		if p.PatientID == patientID {
			out = append(out, clone(p))
		}
	}
	return out, nil
}

func (r *memRxRepo) ListByStatus(ctx context.Context, status prescription.Status) ([]*prescription.Prescription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*prescription.Prescription
	for _, p := range r.byID {
		if p.Status == status {
			out = append(out, clone(p))
		}
	}
	return out, nil
}

func (r *memRxRepo) CodeInUse(ctx context.Context, code string) (bool, error) {
	if r.codeInUseFunc != nil {
		return r.codeInUseFunc(code)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.byID {
		if p.PickupCode != nil && *p.PickupCode == code &&
			(p.Status == prescription.StatusCodeIssued || p.Status == prescription.StatusNotified) {
			return true, nil
		}
	}
	return false, nil
}

func (r *memRxRepo) ListActiveExpiredBefore(ctx context.Context, cutoff time.Time) ([]*prescription.Prescription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*prescription.Prescription
	for _, p := range r.byID {
		if !p.Status.IsTerminal() && p.ExpiresAt.Before(cutoff) {
			out = append(out, clone(p))
		}
	}
	return out, nil
}

func clone(p *prescription.Prescription) *prescription.Prescription {
	cp := *p
	if p.PickupCode != nil {
		code := *p.PickupCode
		cp.PickupCode = &code
	}
	if p.DispensedAt != nil {
		at := *p.DispensedAt
		cp.DispensedAt = &at
	}
	if p.DispensedBy != nil {
		by := *p.DispensedBy
		cp.DispensedBy = &by
	}
	return &cp
}

// --- audit capture ---

var _ audit.Repository = (*captureAuditRepo)(nil)

type captureAuditRepo struct {
	mu      sync.Mutex
	entries []*audit.Entry
}

func (r *captureAuditRepo) Create(ctx context.Context, e *audit.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *e
	r.entries = append(r.entries, &cp)
	return nil
}

func (r *captureAuditRepo) ListByAction(ctx context.Context, action audit.Action) ([]*audit.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*audit.Entry
	for _, e := range r.entries {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *captureAuditRepo) ListBySubject(ctx context.Context, subjectType, subjectID string) ([]*audit.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*audit.Entry
	for _, e := range r.entries {
		if e.SubjectType == subjectType && e.SubjectID == subjectID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *captureAuditRepo) byOutcome(action audit.Action, outcome audit.Outcome) []*audit.Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*audit.Entry
	for _, e := range r.entries {
		if e.Action == action && e.Outcome == outcome {
			out = append(out, e)
		}
	}
	return out
}

// --- QR provider stub ---

type stubProvider struct {
	mu       sync.Mutex
	payloads []string
	renderFn func(ctx context.Context, payload string) ([]byte, error)
}

func (p *stubProvider) Render(ctx context.Context, payload string) ([]byte, error) {
	p.mu.Lock()
	p.payloads = append(p.payloads, payload)
	p.mu.Unlock()
	if p.renderFn != nil {
		return p.renderFn(ctx, payload)
	}
	return []byte("png-bytes"), nil
}

// --- notifier stub ---

type sentMessage struct {
	To  string
	Msg notify.Message
}

type stubNotifier struct {
	mu      sync.Mutex
	channel config.NotifyChannel
	sent    []sentMessage
	sendErr error
}

func (n *stubNotifier) Channel() config.NotifyChannel {
	if n.channel == "" {
		return config.ChannelEmail
	}
	return n.channel
}

func (n *stubNotifier) Send(ctx context.Context, to string, msg notify.Message) error {
	if n.sendErr != nil {
		return n.sendErr
	}
	n.mu.Lock()
	n.sent = append(n.sent, sentMessage{To: to, Msg: msg})
	n.mu.Unlock()
	return nil
}

var errSendBoom = errors.New("send failed")
