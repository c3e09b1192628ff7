package domain

import "testing"

func TestBuildTitle(t *testing.T) {
	cases := []struct {
		name     string
		typ      string
		subType  string
		expected string
	}{
		{"both present", "Cleanliness", "Platform", "Cleanliness: Platform"},
		{"missing type", "", "Platform", "General: Platform"},
		{"missing subtype", "Cleanliness", "", "Cleanliness: Complaint"},
		{"both missing", "", "", "General: Complaint"},
		{"whitespace only", "  ", "\t", "General: Complaint"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := BuildTitle(tc.typ, tc.subType); got != tc.expected {
				t.Fatalf("expected title %q, got %q", tc.expected, got)
			}
		})
	}
}

func TestCloneDoesNotAliasSlices(t *testing.T) {
	original := Complaint{
		ID:    "CMP-00001-AAAA",
		Media: []Media{{ID: "m1", Name: "photo.jpg"}},
		Analysis: &Analysis{
			ID:       "a1",
			Keywords: []string{"coach", "cleanliness"},
		},
		Details: AreaDetails{Train: &TrainDetails{PNR: "1234567890"}},
	}

	cloned := original.Clone()
	cloned.Media[0].Name = "changed.jpg"
	cloned.Analysis.Keywords[0] = "changed"
	cloned.Details.Train.PNR = "changed"

	if original.Media[0].Name != "photo.jpg" {
		t.Fatalf("expected media untouched, got %q", original.Media[0].Name)
	}
	if original.Analysis.Keywords[0] != "coach" {
		t.Fatalf("expected keywords untouched, got %q", original.Analysis.Keywords[0])
	}
	if original.Details.Train.PNR != "1234567890" {
		t.Fatalf("expected details untouched, got %q", original.Details.Train.PNR)
	}
}
