package mocks

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/iho/fxledger/internal/domain"
)

// MockIDGenerator is a mock implementation of IDGenerator.
type MockIDGenerator struct {
	GenerateFunc func() string
	Prefix       string
	counter      int
	mu           sync.Mutex
}

func NewMockIDGenerator() *MockIDGenerator {
	return &MockIDGenerator{Prefix: "mock-id-"}
}

func (m *MockIDGenerator) Generate() string {
	if m.GenerateFunc != nil {
		return m.GenerateFunc()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counter++
	return m.Prefix + strconv.Itoa(m.counter)
}

// MockClock is a mock implementation of Clock. Each call to Now advances
// the clock by Step.
type MockClock struct {
	mu      sync.Mutex
	Current time.Time
	Step    time.Duration
}

func NewMockClock(start time.Time) *MockClock {
	return &MockClock{Current: start}
}

func (m *MockClock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.Current
	m.Current = m.Current.Add(m.Step)
	return now
}

// Set moves the clock to t.
func (m *MockClock) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Current = t
}

// MockPermissionChecker is a mock implementation of PermissionChecker.
// Without a func it grants whatever Role allows.
type MockPermissionChecker struct {
	HasPermissionFunc func(ctx context.Context, category, action string) bool
	Role              domain.Role
}

func NewMockPermissionChecker(role domain.Role) *MockPermissionChecker {
	return &MockPermissionChecker{Role: role}
}

func (m *MockPermissionChecker) HasPermission(ctx context.Context, category, action string) bool {
	if m.HasPermissionFunc != nil {
		return m.HasPermissionFunc(ctx, category, action)
	}
	return m.Role.Can(category, action)
}

// MockBackupStore is a mock implementation of BackupStore.
type MockBackupStore struct {
	mu      sync.Mutex
	names   []string
	backups map[string][]byte

	SaveFunc   func(ctx context.Context, name string, payload []byte) error
	LatestFunc func(ctx context.Context) ([]byte, error)
}

func NewMockBackupStore() *MockBackupStore {
	return &MockBackupStore{backups: make(map[string][]byte)}
}

func (m *MockBackupStore) Save(ctx context.Context, name string, payload []byte) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, name, payload)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.names = append(m.names, name)
	m.backups[name] = payload
	return nil
}

func (m *MockBackupStore) Latest(ctx context.Context) ([]byte, error) {
	if m.LatestFunc != nil {
		return m.LatestFunc(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.names) == 0 {
		return nil, nil
	}
	return m.backups[m.names[len(m.names)-1]], nil
}

// Names returns saved backup names in save order.
func (m *MockBackupStore) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.names...)
}

// MockRetrier is a mock implementation of Retrier. It calls the operation
// up to Attempts times (default 1) and counts the calls.
type MockRetrier struct {
	Attempts int
	Calls    int
}

func (m *MockRetrier) Retry(ctx context.Context, operation func() error) error {
	attempts := m.Attempts
	if attempts <= 0 {
		attempts = 1
	}
	var err error
	for range attempts {
		m.Calls++
		if err = operation(); err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return err
}

// MockIdempotencyStore is a mock implementation of IdempotencyStore.
type MockIdempotencyStore struct {
	mu   sync.RWMutex
	data map[string][]byte

	CheckAndSetFunc func(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	UpdateFunc      func(ctx context.Context, key string, response []byte, ttl time.Duration) error
}

func NewMockIdempotencyStore() *MockIdempotencyStore {
	return &MockIdempotencyStore{
		data: make(map[string][]byte),
	}
}

func (m *MockIdempotencyStore) CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error) {
	if m.CheckAndSetFunc != nil {
		return m.CheckAndSetFunc(ctx, key, response, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.data[key]; ok {
		return true, existing, nil
	}
	if response != nil {
		m.data[key] = response
	} else {
		m.data[key] = []byte("processing")
	}
	return false, nil, nil
}

func (m *MockIdempotencyStore) Update(ctx context.Context, key string, response []byte, ttl time.Duration) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, key, response, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = response
	return nil
}

func (m *MockIdempotencyStore) Release(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// Stored returns the value held for key.
func (m *MockIdempotencyStore) Stored(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok
}
