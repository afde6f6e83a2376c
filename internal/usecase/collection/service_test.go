package collection

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/vecshard/internal/domain"
)

// --- Mocks ---

type mockStore struct {
	created       domain.Collection
	describeCalls int
	describeRes   domain.Collection
	listRes       []string

	createErr   error
	dropErr     error
	describeErr error
	hasRes      bool
	hasErr      error
	countRes    int64
	countErr    error
	indexErr    error
}

func (m *mockStore) CreateCollection(_ context.Context, col domain.Collection) error {
	m.created = col
	return m.createErr
}

func (m *mockStore) DropCollection(context.Context, string) error { return m.dropErr }

func (m *mockStore) HasCollection(context.Context, string) (bool, error) {
	return m.hasRes, m.hasErr
}

func (m *mockStore) DescribeCollection(context.Context, string) (domain.Collection, error) {
	m.describeCalls++
	return m.describeRes, m.describeErr
}

func (m *mockStore) ListCollections(context.Context) ([]string, error) { return m.listRes, nil }

func (m *mockStore) CountPoints(context.Context, string) (int64, error) {
	return m.countRes, m.countErr
}

func (m *mockStore) CreateFieldIndex(context.Context, string, string, string) error {
	return m.indexErr
}

func (m *mockStore) DropFieldIndex(context.Context, string, string) error { return m.indexErr }

// --- Tests ---

func TestCreate_Success(t *testing.T) {
	store := &mockStore{}
	svc := New(store)

	col, err := svc.Create(context.Background(), "movies", 128, domain.MetricL2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if col.Name != "movies" || col.Dim != 128 {
		t.Errorf("unexpected collection %+v", col)
	}
	if store.created.Name != "movies" {
		t.Errorf("store did not receive the collection: %+v", store.created)
	}
}

func TestCreate_InvalidName(t *testing.T) {
	svc := New(&mockStore{})

	_, err := svc.Create(context.Background(), "", 128, domain.MetricL2)
	if !errors.Is(err, domain.ErrInvalidSchema) {
		t.Errorf("expected ErrInvalidSchema, got %v", err)
	}

	_, err = svc.Create(context.Background(), "9starts-with-digit", 128, domain.MetricL2)
	if !errors.Is(err, domain.ErrInvalidSchema) {
		t.Errorf("expected ErrInvalidSchema, got %v", err)
	}
}

func TestCreate_InvalidDim(t *testing.T) {
	svc := New(&mockStore{})

	for _, dim := range []int{0, -1, 70000} {
		if _, err := svc.Create(context.Background(), "movies", dim, domain.MetricL2); !errors.Is(err, domain.ErrInvalidSchema) {
			t.Errorf("dim %d: expected ErrInvalidSchema, got %v", dim, err)
		}
	}
}

func TestCreate_AlreadyExists(t *testing.T) {
	store := &mockStore{createErr: domain.ErrAlreadyExists}
	svc := New(store)

	_, err := svc.Create(context.Background(), "movies", 128, domain.MetricL2)
	if !errors.Is(err, domain.ErrAlreadyExists) {
		t.Errorf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestDescribe_Cached(t *testing.T) {
	store := &mockStore{describeRes: domain.Collection{Name: "movies", Dim: 128, Metric: domain.MetricIP}}
	svc := New(store)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		col, err := svc.Describe(ctx, "movies")
		if err != nil {
			t.Fatalf("Describe: %v", err)
		}
		if col.Metric != domain.MetricIP {
			t.Errorf("unexpected metric %q", col.Metric)
		}
	}
	if store.describeCalls != 1 {
		t.Errorf("expected 1 writer describe, got %d", store.describeCalls)
	}
}

func TestDrop_InvalidatesCache(t *testing.T) {
	store := &mockStore{describeRes: domain.Collection{Name: "movies", Dim: 128, Metric: domain.MetricL2}}
	svc := New(store)
	ctx := context.Background()

	if _, err := svc.Describe(ctx, "movies"); err != nil {
		t.Fatalf("Describe: %v", err)
	}
	if err := svc.Drop(ctx, "movies"); err != nil {
		t.Fatalf("Drop: %v", err)
	}
	if _, err := svc.Describe(ctx, "movies"); err != nil {
		t.Fatalf("Describe: %v", err)
	}
	if store.describeCalls != 2 {
		t.Errorf("expected cache miss after drop, describe calls = %d", store.describeCalls)
	}
}

func TestDescribe_NotFound(t *testing.T) {
	store := &mockStore{describeErr: domain.ErrNotFound}
	svc := New(store)

	_, err := svc.Describe(context.Background(), "absent")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if store.describeCalls != 1 {
		t.Errorf("errors must not be cached, calls = %d", store.describeCalls)
	}
}

func TestCreateFieldIndex_EmptyField(t *testing.T) {
	svc := New(&mockStore{})

	err := svc.CreateFieldIndex(context.Background(), "movies", "", "keyword")
	if !errors.Is(err, domain.ErrInvalidSchema) {
		t.Errorf("expected ErrInvalidSchema, got %v", err)
	}
}

func TestCount(t *testing.T) {
	store := &mockStore{countRes: 42}
	svc := New(store)

	n, err := svc.Count(context.Background(), "movies")
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 42 {
		t.Errorf("Count = %d, want 42", n)
	}
}
