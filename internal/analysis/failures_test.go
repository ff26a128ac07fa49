package analysis

import "testing"

func TestFailureLogKeepsOldest(t *testing.T) {
	log := NewFailureLog(2)
	for _, id := range []string{"a", "b", "c"} {
		log.Add(Failure{ID: id})
	}
	entries := log.Entries()
	if len(entries) != 2 || entries[0].ID != "a" || entries[1].ID != "b" {
		t.Fatalf("unexpected entries %+v", entries)
	}
	if log.Total() != 3 {
		t.Fatalf("expected total 3, got %d", log.Total())
	}
}
