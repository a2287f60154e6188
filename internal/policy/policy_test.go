package policy_test

import (
	"errors"
	"reflect"
	"testing"

	"bidsify/internal/policy"
	"bidsify/internal/services"
)

func TestForMatchesByHashAndPredicate(t *testing.T) {
	set, err := policy.Compile([]policy.Policy{
		{Name: "legacy", StudyHash: " ABC ", AllowUnpairedPhase: true, ForceSession: "siemens1"},
		{Name: "haxby", When: `study_description startsWith "Haxby^"`, ForceSession: "other"},
		{Name: "both", StudyHash: "abc", When: `accession == "A1"`, AllowUnpairedPhase: false},
	})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	cases := []struct {
		name  string
		facts policy.Facts
		want  policy.Effective
	}{
		{
			name:  "no match",
			facts: policy.Facts{StudyHash: "zzz", StudyDescription: "PI^x"},
			want:  policy.Effective{},
		},
		{
			name:  "hash only",
			facts: policy.Facts{StudyHash: "abc", Accession: "A2"},
			want:  policy.Effective{AllowUnpairedPhase: true, ForceSession: "siemens1", Matched: []string{"legacy"}},
		},
		{
			name:  "hash and predicate",
			facts: policy.Facts{StudyHash: "abc", Accession: "A1", StudyDescription: "Haxby^Life"},
			want: policy.Effective{
				AllowUnpairedPhase: true,
				ForceSession:       "siemens1",
				Matched:            []string{"legacy", "haxby", "both"},
			},
		},
		{
			name:  "predicate only",
			facts: policy.Facts{StudyHash: "def", StudyDescription: "Haxby^Life"},
			want:  policy.Effective{ForceSession: "other", Matched: []string{"haxby"}},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := set.For(tc.facts)
			if err != nil {
				t.Fatalf("For: %v", err)
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("For = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestCompileRejectsInvalidPolicies(t *testing.T) {
	cases := []struct {
		name   string
		policy policy.Policy
	}{
		{"no selector", policy.Policy{Name: "empty"}},
		{"syntax error", policy.Policy{Name: "bad", When: "study_hash =="}},
		{"non boolean", policy.Policy{Name: "str", When: "study_hash"}},
		{"unknown variable", policy.Policy{Name: "var", When: `site == "x"`}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := policy.Compile([]policy.Policy{tc.policy})
			if err == nil {
				t.Fatal("expected compile error")
			}
			if !errors.Is(err, services.ErrConfiguration) {
				t.Fatalf("expected configuration marker, got %v", err)
			}
		})
	}
}

func TestNilSetMatchesNothing(t *testing.T) {
	var set *policy.Set
	eff, err := set.For(policy.Facts{StudyHash: "abc"})
	if err != nil {
		t.Fatalf("For: %v", err)
	}
	if eff.AllowUnpairedPhase || eff.ForceSession != "" || len(eff.Matched) != 0 {
		t.Fatalf("expected empty effective policy, got %+v", eff)
	}
	if set.Policies() != nil {
		t.Fatal("expected no policies")
	}
}

func TestPoliciesNormalized(t *testing.T) {
	set, err := policy.Compile([]policy.Policy{{StudyHash: "ABC"}})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	got := set.Policies()
	if len(got) != 1 || got[0].Name != "policy-1" || got[0].StudyHash != "abc" {
		t.Fatalf("unexpected normalized policies %+v", got)
	}
}
