package services

import (
	"context"
	"sync"
	"time"

	"github.com/BradenHooton/folio/internal/models"
	"github.com/google/uuid"
)

// MockUserRepository implements UserRepository for testing
type MockUserRepository struct {
	GetByIDFunc      func(ctx context.Context, id string) (*models.User, error)
	GetByEmailFunc   func(ctx context.Context, email string) (*models.User, error)
	CreateFunc       func(ctx context.Context, user *models.User) (*models.User, error)
	SetMFASecretFunc func(ctx context.Context, id string, secret, nonce []byte) error
	EnableMFAFunc    func(ctx context.Context, id string) error
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, user)
	}
	return nil, models.ErrInternalServer
}

func (m *MockUserRepository) SetMFASecret(ctx context.Context, id string, secret, nonce []byte) error {
	if m.SetMFASecretFunc != nil {
		return m.SetMFASecretFunc(ctx, id, secret, nonce)
	}
	return nil
}

func (m *MockUserRepository) EnableMFA(ctx context.Context, id string) error {
	if m.EnableMFAFunc != nil {
		return m.EnableMFAFunc(ctx, id)
	}
	return nil
}

// MockAuditLogRepository implements AuditLogRepository for testing and keeps what it was given
type MockAuditLogRepository struct {
	CreateFunc     func(ctx context.Context, log *models.AuditLog) (*models.AuditLog, error)
	ListRecentFunc func(ctx context.Context, severity string, limit, offset int) ([]*models.AuditLog, error)

	mu      sync.Mutex
	Created []*models.AuditLog
}

func (m *MockAuditLogRepository) Create(ctx context.Context, log *models.AuditLog) (*models.AuditLog, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, log)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	log.ID = uuid.New()
	m.Created = append(m.Created, log)
	return log, nil
}

func (m *MockAuditLogRepository) ListRecent(ctx context.Context, severity string, limit, offset int) ([]*models.AuditLog, error) {
	if m.ListRecentFunc != nil {
		return m.ListRecentFunc(ctx, severity, limit, offset)
	}
	return []*models.AuditLog{}, nil
}

// MockNotifier implements Notifier for testing
type MockNotifier struct {
	SendLockoutNoticeFunc func(ctx context.Context, email string, until time.Time) error

	mu   sync.Mutex
	Sent []string
}

func (m *MockNotifier) SendLockoutNotice(ctx context.Context, email string, until time.Time) error {
	m.mu.Lock()
	m.Sent = append(m.Sent, email)
	m.mu.Unlock()
	if m.SendLockoutNoticeFunc != nil {
		return m.SendLockoutNoticeFunc(ctx, email, until)
	}
	return nil
}

// MockAttemptStore implements AttemptStore for failure-path tests; nil funcs behave as an empty store
type MockAttemptStore struct {
	InsertFunc              func(ctx context.Context, record *models.AttemptRecord) error
	CountSinceFunc          func(ctx context.Context, identifier, endpoint string, since time.Time) (int, error)
	LatestSinceFunc         func(ctx context.Context, identifier, endpoint string, since time.Time) (*time.Time, error)
	DeleteByIdentifierFunc  func(ctx context.Context, identifier, endpoint string) (int64, error)
	ListSinceFunc           func(ctx context.Context, endpoint string, since time.Time) ([]*models.AttemptRecord, error)
	DeleteCreatedBeforeFunc func(ctx context.Context, endpoint string, before time.Time) (int64, error)
}

func (m *MockAttemptStore) Insert(ctx context.Context, record *models.AttemptRecord) error {
	if m.InsertFunc != nil {
		return m.InsertFunc(ctx, record)
	}
	return nil
}

func (m *MockAttemptStore) CountSince(ctx context.Context, identifier, endpoint string, since time.Time) (int, error) {
	if m.CountSinceFunc != nil {
		return m.CountSinceFunc(ctx, identifier, endpoint, since)
	}
	return 0, nil
}

func (m *MockAttemptStore) LatestSince(ctx context.Context, identifier, endpoint string, since time.Time) (*time.Time, error) {
	if m.LatestSinceFunc != nil {
		return m.LatestSinceFunc(ctx, identifier, endpoint, since)
	}
	return nil, nil
}

func (m *MockAttemptStore) DeleteByIdentifier(ctx context.Context, identifier, endpoint string) (int64, error) {
	if m.DeleteByIdentifierFunc != nil {
		return m.DeleteByIdentifierFunc(ctx, identifier, endpoint)
	}
	return 0, nil
}

func (m *MockAttemptStore) ListSince(ctx context.Context, endpoint string, since time.Time) ([]*models.AttemptRecord, error) {
	if m.ListSinceFunc != nil {
		return m.ListSinceFunc(ctx, endpoint, since)
	}
	return []*models.AttemptRecord{}, nil
}

func (m *MockAttemptStore) DeleteCreatedBefore(ctx context.Context, endpoint string, before time.Time) (int64, error) {
	if m.DeleteCreatedBeforeFunc != nil {
		return m.DeleteCreatedBeforeFunc(ctx, endpoint, before)
	}
	return 0, nil
}

// TestClock is a settable time source for lockout tests
type TestClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewTestClock(start time.Time) *TestClock {
	return &TestClock{now: start}
}

func (c *TestClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *TestClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// NewTestUser builds an active user
func NewTestUser(id, email, name string) *models.User {
	now := time.Now()
	return &models.User{
		ID:        id,
		Email:     email,
		Name:      name,
		Status:    "active",
		Role:      models.RoleUser,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewTestUserWithPassword creates a user with hashed password
func NewTestUserWithPassword(id, email, name, passwordHash string) *models.User {
	user := NewTestUser(id, email, name)
	user.PasswordHash = passwordHash
	return user
}

// NewTestUserWithStatus creates a user with specified status
func NewTestUserWithStatus(id, email, name, status string) *models.User {
	user := NewTestUser(id, email, name)
	user.Status = status
	return user
}
