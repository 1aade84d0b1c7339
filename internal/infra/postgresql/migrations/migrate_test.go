package migrations

import (
	"sort"
	"testing"
)

func TestMigrationsOrderedAndUnique(t *testing.T) {
	t.Parallel()

	migrations := all()
	if len(migrations) == 0 {
		t.Fatal("no migrations registered")
	}

	ids := make([]string, 0, len(migrations))
	seen := make(map[string]struct{}, len(migrations))
	for _, m := range migrations {
		if m.ID == "" || m.Migrate == nil || m.Rollback == nil {
			t.Fatalf("migration %q is incomplete", m.ID)
		}
		if _, ok := seen[m.ID]; ok {
			t.Fatalf("duplicate migration id %q", m.ID)
		}
		seen[m.ID] = struct{}{}
		ids = append(ids, m.ID)
	}

	if !sort.StringsAreSorted(ids) {
		t.Fatalf("migration ids = %v, want ascending", ids)
	}
}
