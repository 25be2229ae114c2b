package entities

import (
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	store, err := NewStore(db)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return store
}

func TestSaveCompanyUpserts(t *testing.T) {
	s := newTestStore(t)

	if err := s.SaveCompany("Cardless", map[string]any{"company": "Cardless", "sector": "fintech"}); err != nil {
		t.Fatalf("SaveCompany: %v", err)
	}
	if err := s.SaveCompany("Cardless", map[string]any{"company": "Cardless", "sector": "payments"}); err != nil {
		t.Fatalf("SaveCompany update: %v", err)
	}

	got, err := s.Company("Cardless")
	if err != nil {
		t.Fatalf("Company: %v", err)
	}
	if got["sector"] != "payments" {
		t.Errorf("expected latest record to win, got %v", got)
	}

	names, err := s.CompanyNames()
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 1 {
		t.Errorf("upsert created duplicate rows: %v", names)
	}
}

func TestCompanyMissing(t *testing.T) {
	s := newTestStore(t)
	got, err := s.Company("nobody")
	if err != nil {
		t.Fatalf("Company: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for missing company, got %v", got)
	}
}

func TestSavePerson(t *testing.T) {
	s := newTestStore(t)
	if err := s.SavePerson("Michael Spelfell", map[string]any{"person": "Michael Spelfell", "role": "co-founder"}); err != nil {
		t.Fatalf("SavePerson: %v", err)
	}
	got, err := s.Person("Michael Spelfell")
	if err != nil {
		t.Fatal(err)
	}
	if got["role"] != "co-founder" {
		t.Errorf("unexpected person record: %v", got)
	}
}

func TestSaveEventsAppends(t *testing.T) {
	s := newTestStore(t)

	batch1 := []map[string]any{{"summary": "Sync"}, {"summary": "Deep dive"}}
	batch2 := []map[string]any{{"summary": "Follow-up"}}
	if err := s.SaveEvents(batch1); err != nil {
		t.Fatalf("SaveEvents: %v", err)
	}
	if err := s.SaveEvents(batch2); err != nil {
		t.Fatalf("SaveEvents: %v", err)
	}

	events, err := s.Events()
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	if events[0]["summary"] != "Sync" {
		t.Errorf("expected insertion order, got %v", events)
	}
}
