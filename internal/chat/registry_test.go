package chat

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/GiuBuonafina/llm-data-analyzer-challenge/internal/resource"
)

func TestRegistryEnforcesOwnership(t *testing.T) {
	registry := NewRegistry()
	session := registry.Create("alice", SessionContext{Schema: "s"}, true)
	if session.ID == "" || session.Owner != "alice" {
		t.Fatalf("session = %+v", session)
	}
	if session.History.Len() != 1 {
		t.Fatalf("expected greeting turn, history len = %d", session.History.Len())
	}

	err := registry.With(context.Background(), session.ID, "bob", func(*Session) error { return nil })
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("With() as other owner error = %v", err)
	}
	if err := registry.Delete(session.ID, "bob"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("Delete() as other owner error = %v", err)
	}

	var seen string
	if err := registry.With(context.Background(), session.ID, "alice", func(s *Session) error {
		seen = s.Context.Schema
		return nil
	}); err != nil {
		t.Fatalf("With() error = %v", err)
	}
	if seen != "s" {
		t.Fatalf("schema = %q", seen)
	}

	if err := registry.Delete(session.ID, "alice"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if registry.Len() != 0 {
		t.Fatalf("Len() = %d", registry.Len())
	}
}

func TestRegistrySerializesSessionAccess(t *testing.T) {
	registry := NewRegistry()
	session := registry.Create("alice", SessionContext{}, false)

	var wg sync.WaitGroup
	counter := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = registry.With(context.Background(), session.ID, "alice", func(*Session) error {
				counter++
				return nil
			})
		}()
	}
	wg.Wait()
	if counter != 50 {
		t.Fatalf("counter = %d", counter)
	}
}

func TestRegistryRespectsCanceledContext(t *testing.T) {
	registry := NewRegistry()
	session := registry.Create("alice", SessionContext{}, false)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := registry.With(ctx, session.ID, "alice", func(*Session) error {
		t.Fatal("fn must not run")
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("With() error = %v", err)
	}
}

type stubDescriber struct {
	schema string
	err    error
}

func (s stubDescriber) DescribeSchema(context.Context, string) (string, error) {
	return s.schema, s.err
}

func TestRegistryExpiresIdleSessions(t *testing.T) {
	registry := NewRegistry()
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	registry.now = func() time.Time { return clock }

	stale := registry.Create("alice", SessionContext{}, false)
	clock = clock.Add(20 * time.Minute)
	fresh := registry.Create("alice", SessionContext{}, false)

	clock = clock.Add(15 * time.Minute)
	if err := registry.With(context.Background(), fresh.ID, "alice", func(*Session) error { return nil }); err != nil {
		t.Fatalf("With() error = %v", err)
	}

	expired := registry.Expire(clock.Add(-30 * time.Minute))
	if len(expired) != 1 || expired[0].ID != stale.ID {
		t.Fatalf("expired = %+v", expired)
	}
	if registry.Len() != 1 {
		t.Fatalf("Len() = %d", registry.Len())
	}
	if err := registry.With(context.Background(), stale.ID, "alice", func(*Session) error { return nil }); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expired session still reachable: %v", err)
	}
}

func TestRegistryExpireSkipsBusySessions(t *testing.T) {
	registry := NewRegistry()
	session := registry.Create("alice", SessionContext{}, false)

	err := registry.With(context.Background(), session.ID, "alice", func(*Session) error {
		if expired := registry.Expire(time.Now().Add(time.Hour)); len(expired) != 0 {
			t.Errorf("busy session expired: %+v", expired)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("With() error = %v", err)
	}
	if expired := registry.Expire(time.Now().Add(time.Hour)); len(expired) != 1 {
		t.Fatalf("expired = %d", len(expired))
	}
}

func TestRegistryOwnsIsPassive(t *testing.T) {
	registry := NewRegistry()
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	registry.now = func() time.Time { return clock }
	session := registry.Create("alice", SessionContext{}, false)

	err := registry.With(context.Background(), session.ID, "alice", func(*Session) error {
		if !registry.Owns(session.ID, "alice") {
			t.Error("Owns() = false while a turn is running")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("With() error = %v", err)
	}
	if registry.Owns(session.ID, "bob") || registry.Owns("missing", "alice") {
		t.Fatal("Owns() should reject other subjects and unknown sessions")
	}

	clock = clock.Add(time.Hour)
	if !registry.Owns(session.ID, "alice") {
		t.Fatal("Owns() = false")
	}
	if expired := registry.Expire(clock.Add(-30 * time.Minute)); len(expired) != 1 {
		t.Fatalf("ownership checks must not keep the session alive, expired = %d", len(expired))
	}
}

func TestBootstrapLoadsSessionContext(t *testing.T) {
	dir := t.TempDir()
	syntax := filepath.Join(dir, "sintax.txt")
	dictionary := filepath.Join(dir, "dictionary.txt")
	if err := os.WriteFile(syntax, []byte("use LIMIT"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(dictionary, []byte("uf: state"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	bootstrap := Bootstrap{
		Describer:          stubDescriber{schema: "Table clients: uf (TEXT)\n"},
		Resources:          resource.NewLoader(nil),
		SchemaName:         "main",
		SyntaxPath:         syntax,
		DataDictionaryPath: dictionary,
	}
	sc, err := bootstrap.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if sc.Schema != "Table clients: uf (TEXT)\n" || sc.SyntaxRules != "use LIMIT" || sc.DataDictionary != "uf: state" {
		t.Fatalf("context = %+v", sc)
	}

	bootstrap.Describer = stubDescriber{err: errors.New("down")}
	if _, err := bootstrap.Load(context.Background()); err == nil {
		t.Fatal("expected describe error")
	}
}
