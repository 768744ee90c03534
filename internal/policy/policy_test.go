package policy

import (
	"errors"
	"testing"
)

func TestClassify_BlockedBeatsHighRisk(t *testing.T) {
	t.Parallel()

	c, err := NewClassifier([]TargetPolicy{{
		Target:   "github",
		HighRisk: []string{"delete_repo"},
		Blocked:  []string{"delete_repo"},
	}})
	if err != nil {
		t.Fatalf("NewClassifier: %v", err)
	}

	got, err := c.Classify("github", "delete_repo")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if got != Blocked {
		t.Errorf("overlap: got %q, want %q", got, Blocked)
	}
}

func TestClassify_ImplicitAllow(t *testing.T) {
	t.Parallel()

	c, err := NewClassifier([]TargetPolicy{{
		Target:   "github",
		HighRisk: []string{"delete_repo"},
		Blocked:  []string{"admin"},
	}})
	if err != nil {
		t.Fatalf("NewClassifier: %v", err)
	}

	got, err := c.Classify("github", "read_file")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if got != Allowed {
		t.Errorf("unlisted action: got %q, want %q", got, Allowed)
	}
}

func TestClassify_Total(t *testing.T) {
	t.Parallel()

	c, err := NewClassifier([]TargetPolicy{{
		Target:   "crm",
		HighRisk: []string{"delete_user", "export_all"},
		Blocked:  []string{"system_admin"},
	}})
	if err != nil {
		t.Fatalf("NewClassifier: %v", err)
	}

	cases := map[string]Classification{
		"system_admin": Blocked,
		"delete_user":  HighRisk,
		"export_all":   HighRisk,
		"read_profile": Allowed,
		"":             Allowed,
	}
	for action, want := range cases {
		got, err := c.Classify("crm", action)
		if err != nil {
			t.Fatalf("Classify(%q): %v", action, err)
		}
		if got != want {
			t.Errorf("Classify(%q): got %q, want %q", action, got, want)
		}
	}
}

func TestClassify_UnknownTargetFailsClosed(t *testing.T) {
	t.Parallel()

	c, err := NewClassifier([]TargetPolicy{{Target: "github"}})
	if err != nil {
		t.Fatalf("NewClassifier: %v", err)
	}

	if _, err := c.Classify("gitlab", "read_file"); !errors.Is(err, ErrPolicyNotFound) {
		t.Errorf("unknown target: got %v, want ErrPolicyNotFound", err)
	}
}

func TestClassify_TrimsNames(t *testing.T) {
	t.Parallel()

	c, err := NewClassifier([]TargetPolicy{{
		Target:   " github ",
		HighRisk: []string{" delete_repo "},
	}})
	if err != nil {
		t.Fatalf("NewClassifier: %v", err)
	}

	got, err := c.Classify("github", "delete_repo")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if got != HighRisk {
		t.Errorf("trimmed names: got %q, want %q", got, HighRisk)
	}
}

func TestNewClassifier_DuplicateTarget(t *testing.T) {
	t.Parallel()

	_, err := NewClassifier([]TargetPolicy{
		{Target: "github"},
		{Target: "github"},
	})
	if !errors.Is(err, ErrDuplicateTarget) {
		t.Errorf("duplicate target: got %v, want ErrDuplicateTarget", err)
	}
}

func TestNewClassifier_EmptyTarget(t *testing.T) {
	t.Parallel()

	_, err := NewClassifier([]TargetPolicy{{Target: "  "}})
	if !errors.Is(err, ErrEmptyTargetName) {
		t.Errorf("empty target: got %v, want ErrEmptyTargetName", err)
	}
}

func TestHighRiskActions_Sorted(t *testing.T) {
	t.Parallel()

	c, err := NewClassifier([]TargetPolicy{{
		Target:   "github",
		HighRisk: []string{"merge_pr", "delete_repo", "force_push"},
	}})
	if err != nil {
		t.Fatalf("NewClassifier: %v", err)
	}

	got, err := c.HighRiskActions("github")
	if err != nil {
		t.Fatalf("HighRiskActions: %v", err)
	}
	want := []string{"delete_repo", "force_push", "merge_pr"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestHighRiskActions_UnknownTarget(t *testing.T) {
	t.Parallel()

	c, err := NewClassifier(nil)
	if err != nil {
		t.Fatalf("NewClassifier: %v", err)
	}

	if _, err := c.HighRiskActions("github"); !errors.Is(err, ErrPolicyNotFound) {
		t.Errorf("unknown target: got %v, want ErrPolicyNotFound", err)
	}
}
