package usecase

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/xavierca1/lead-followup/internal/entity"
	"github.com/xavierca1/lead-followup/internal/infra/queue"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// MockWhatsApp
type MockWhatsApp struct {
	mock.Mock
}

func (m *MockWhatsApp) Send(ctx context.Context, phone string, msg entity.Outbound) (entity.Delivery, error) {
	args := m.Called(ctx, phone, msg)
	return args.Get(0).(entity.Delivery), args.Error(1)
}

func (m *MockWhatsApp) LastMessage(ctx context.Context, providerContactID string) (*entity.ProviderMessage, error) {
	args := m.Called(ctx, providerContactID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.ProviderMessage), args.Error(1)
}

// MockEmail
type MockEmail struct {
	mock.Mock
}

func (m *MockEmail) Send(ctx context.Context, to, recipientName string, msg entity.Outbound) (string, error) {
	args := m.Called(ctx, to, recipientName, msg)
	return args.String(0), args.Error(1)
}

// MockPublisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishDeliveryCheck(ctx context.Context, payload queue.DeliveryCheckPayload) error {
	args := m.Called(ctx, payload)
	return args.Error(0)
}

type fakeContacts struct {
	byID map[int64]*entity.Contact
}

func newFakeContacts(contacts ...*entity.Contact) *fakeContacts {
	f := &fakeContacts{byID: map[int64]*entity.Contact{}}
	for _, c := range contacts {
		f.byID[c.ID] = c
	}
	return f
}

func (f *fakeContacts) FindByID(_ context.Context, id int64) (*entity.Contact, error) {
	if c, ok := f.byID[id]; ok {
		return c, nil
	}
	return nil, entity.ErrContactNotFound
}

func (f *fakeContacts) FindByPhone(_ context.Context, phone string) (*entity.Contact, error) {
	for _, c := range f.byID {
		if c.Phone != "" && entity.NormalizePhone(c.Phone) == entity.NormalizePhone(phone) {
			return c, nil
		}
	}
	return nil, entity.ErrContactNotFound
}

func (f *fakeContacts) FindByEmail(_ context.Context, email string) (*entity.Contact, error) {
	for _, c := range f.byID {
		if c.Email != "" && c.Email == email {
			return c, nil
		}
	}
	return nil, entity.ErrContactNotFound
}

type fakeSellers map[int64][]entity.Seller

func (f fakeSellers) ListForContact(_ context.Context, contactID int64) ([]entity.Seller, error) {
	return f[contactID], nil
}

type fakeResponses struct {
	mu    sync.Mutex
	saved []*entity.Response
}

func (f *fakeResponses) Save(_ context.Context, r *entity.Response) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r.ID = int64(len(f.saved) + 1)
	f.saved = append(f.saved, r)
	return nil
}

func (f *fakeResponses) byStage(stage string) []*entity.Response {
	var out []*entity.Response
	for _, r := range f.saved {
		if r.Stage == stage {
			out = append(out, r)
		}
	}
	return out
}

type attemptKey struct {
	contactID int64
	prefix    string
	attempt   int
}

// fakeMessages keeps rows in memory and enforces the attempt uniqueness the
// database index provides.
type fakeMessages struct {
	mu       sync.Mutex
	rows     []*entity.Message
	attempts map[attemptKey]int64
	first    []entity.FollowUpCandidate
	retries  []entity.FollowUpCandidate
	nextID   int64
	now      func() time.Time
}

func newFakeMessages() *fakeMessages {
	return &fakeMessages{attempts: map[attemptKey]int64{}, now: time.Now}
}

func (f *fakeMessages) Save(_ context.Context, m *entity.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.insert(m)
	return nil
}

func (f *fakeMessages) insert(m *entity.Message) {
	f.nextID++
	m.ID = f.nextID
	if m.CreatedAt.IsZero() {
		m.CreatedAt = f.now()
	}
	f.rows = append(f.rows, m)
}

func (f *fakeMessages) Reserve(_ context.Context, m *entity.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := attemptKey{m.ContactID, m.StagePrefix, m.Attempt}
	if _, taken := f.attempts[k]; taken {
		return entity.ErrAttemptTaken
	}
	f.insert(m)
	f.attempts[k] = m.ID
	return nil
}

func (f *fakeMessages) Release(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, m := range f.rows {
		if m.ID == id && m.Status == entity.MessageStatusPending {
			delete(f.attempts, attemptKey{m.ContactID, m.StagePrefix, m.Attempt})
			f.rows = append(f.rows[:i], f.rows[i+1:]...)
			return nil
		}
	}
	return nil
}

func (f *fakeMessages) Confirm(_ context.Context, id int64, d entity.Delivery) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.rows {
		if m.ID == id {
			m.Channel = d.Channel
			m.Body = d.Body
			m.Status = d.Status
		}
	}
	return nil
}

func (f *fakeMessages) UpdateStatus(_ context.Context, id int64, status entity.MessageStatus, description string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.rows {
		if m.ID == id {
			m.Status = status
			m.StatusDescription = description
		}
	}
	return nil
}

func (f *fakeMessages) ListByContact(_ context.Context, contactID int64) ([]entity.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []entity.Message
	for _, m := range f.rows {
		if m.ContactID == contactID {
			out = append(out, *m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (f *fakeMessages) LatestByStages(_ context.Context, contactID int64, stages []string) (*entity.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	allowed := map[string]bool{}
	for _, s := range stages {
		allowed[s] = true
	}
	for i := len(f.rows) - 1; i >= 0; i-- {
		if m := f.rows[i]; m.ContactID == contactID && allowed[m.Stage] {
			return m, nil
		}
	}
	return nil, entity.ErrNoMessages
}

func (f *fakeMessages) LatestAttempt(_ context.Context, contactID int64, prefix string) (*entity.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var (
		latest *entity.Message
		count  int
	)
	for _, m := range f.rows {
		if m.ContactID != contactID || !strings.HasPrefix(m.Stage, prefix) {
			continue
		}
		count++
		if latest == nil || !m.CreatedAt.Before(latest.CreatedAt) {
			latest = m
		}
	}
	if latest == nil {
		return nil, entity.ErrNoMessages
	}
	out := *latest
	out.Attempt = count
	return &out, nil
}

func (f *fakeMessages) FindFirstFollowUpDue(context.Context, time.Time) ([]entity.FollowUpCandidate, error) {
	return f.first, nil
}

func (f *fakeMessages) FindRetryDue(context.Context, time.Time, int) ([]entity.FollowUpCandidate, error) {
	return f.retries, nil
}

func (f *fakeMessages) stages(contactID int64) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, m := range f.rows {
		if m.ContactID == contactID {
			out = append(out, m.Stage)
		}
	}
	return out
}

type fakeLocker struct {
	mu     sync.Mutex
	held   map[string]bool
	denied bool
}

func (l *fakeLocker) Acquire(_ context.Context, key string) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held == nil {
		l.held = map[string]bool{}
	}
	if l.denied || l.held[key] {
		return func() {}, false, nil
	}
	l.held[key] = true
	return func() {
		l.mu.Lock()
		delete(l.held, key)
		l.mu.Unlock()
	}, true, nil
}

func waDelivery() entity.Delivery {
	return entity.Delivery{
		ProviderMessageID: "sp-msg-1",
		ProviderContactID: "sp-contact-1",
		Status:            entity.MessageStatusSent,
	}
}
