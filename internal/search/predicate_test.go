package search

import "testing"

func TestMatchesNameField(t *testing.T) {
	names := []string{"Ana Martínez", "Carlos Gómez"}
	var matched []string
	for _, name := range names {
		if Matches("an", name) {
			matched = append(matched, name)
		}
	}
	if len(matched) != 1 || matched[0] != "Ana Martínez" {
		t.Fatalf("expected only Ana Martínez, got %v", matched)
	}
}

func TestMatchesIsCaseInsensitive(t *testing.T) {
	if !Matches("MART", "Ana Martínez") {
		t.Fatalf("expected case-insensitive match")
	}
	if !Matches("ana", "Ana Martínez") {
		t.Fatalf("expected lowercase query to match")
	}
}

func TestMatchesAnyField(t *testing.T) {
	if !Matches("7264", "Carlos Gómez", "72643918") {
		t.Fatalf("expected document field to match")
	}
	if Matches("zz", "Carlos Gómez", "72643918") {
		t.Fatalf("expected no match")
	}
}

func TestMatchesEmptyQuery(t *testing.T) {
	if !Matches("", "Carlos Gómez") {
		t.Fatalf("expected empty query to match everything")
	}
	if !Matches("   ", "Carlos Gómez") {
		t.Fatalf("expected blank query to match everything")
	}
}
