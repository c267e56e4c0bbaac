package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/felixgeelhaar/lifecycle-go/domain/policy"
	"github.com/felixgeelhaar/lifecycle-go/domain/transition"
)

const sampleYAML = `
transitions:
  - from: DRAFT
    to: PENDING
    action: SUBMIT_FOR_APPROVAL
    allowed_roles: [creator, agent]
  - from: PENDING
    to: ACTIVE
    action: APPROVE
    allowed_roles: [approver]
  - from: ACTIVE
    to: SUSPENDED
    action: SUSPEND
    allowed_roles: [operator]
    requires_reason: true
`

const sampleJSON = `{
  "transitions": [
    {"from": "DRAFT", "to": "PENDING", "action": "SUBMIT_FOR_APPROVAL", "allowed_roles": ["creator"]},
    {"from": "PENDING", "to": "ACTIVE", "action": "APPROVE", "allowed_roles": ["approver"]}
  ]
}`

func TestLoader_LoadString_YAML(t *testing.T) {
	t.Parallel()

	table, err := NewLoader().LoadString(sampleYAML, FormatYAML)
	if err != nil {
		t.Fatalf("LoadString() error = %v", err)
	}

	if table.Len() != 3 {
		t.Errorf("Len() = %d, want 3", table.Len())
	}

	tr, ok := table.Find(policy.StatusActive, policy.ActionSuspend)
	if !ok {
		t.Fatal("Find(ACTIVE, SUSPEND) missing")
	}
	if !tr.RequiresReason {
		t.Error("SUSPEND should require a reason")
	}
	if len(tr.AllowedRoles) != 1 || tr.AllowedRoles[0] != "operator" {
		t.Errorf("AllowedRoles = %v, want [operator]", tr.AllowedRoles)
	}
}

func TestLoader_LoadString_JSON(t *testing.T) {
	t.Parallel()

	table, err := NewLoader().LoadString(sampleJSON, FormatJSON)
	if err != nil {
		t.Fatalf("LoadString() error = %v", err)
	}
	if table.Len() != 2 {
		t.Errorf("Len() = %d, want 2", table.Len())
	}
}

func TestLoader_LoadString_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		format  Format
		wantErr error
	}{
		{"malformed yaml", "transitions: [", FormatYAML, ErrInvalidFormat},
		{"unknown status", "transitions:\n  - {from: BOGUS, to: ACTIVE, action: APPROVE}", FormatYAML, ErrInvalidFormat},
		{"duplicate pair", `
transitions:
  - {from: DRAFT, to: PENDING, action: SUBMIT_FOR_APPROVAL}
  - {from: DRAFT, to: CANCELLED, action: SUBMIT_FOR_APPROVAL}
`, FormatYAML, ErrInvalidFormat},
		{"empty table", "transitions: []", FormatYAML, ErrInvalidFormat},
		{"unsupported format", sampleYAML, Format("toml"), ErrUnsupportedFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := NewLoader().LoadString(tt.content, tt.format)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("LoadString() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoader_LoadFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "transitions.yaml")
	if err := os.WriteFile(path, []byte(sampleYAML), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	table, err := NewLoader().LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if table.Len() != 3 {
		t.Errorf("Len() = %d, want 3", table.Len())
	}
}

func TestLoader_LoadFile_Errors(t *testing.T) {
	t.Parallel()

	t.Run("not found", func(t *testing.T) {
		t.Parallel()
		_, err := NewLoader().LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
		if !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("LoadFile() error = %v, want ErrConfigNotFound", err)
		}
	})

	t.Run("unsupported extension", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "transitions.toml")
		if err := os.WriteFile(path, []byte(sampleYAML), 0o600); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
		_, err := NewLoader().LoadFile(path)
		if !errors.Is(err, ErrUnsupportedFormat) {
			t.Errorf("LoadFile() error = %v, want ErrUnsupportedFormat", err)
		}
	})

	t.Run("directory", func(t *testing.T) {
		t.Parallel()
		_, err := NewLoader().LoadFile(t.TempDir())
		if !errors.Is(err, ErrInvalidFormat) {
			t.Errorf("LoadFile() error = %v, want ErrInvalidFormat", err)
		}
	})
}

func TestLoader_EnvExpansion(t *testing.T) {
	content := `
transitions:
  - from: DRAFT
    to: PENDING
    action: SUBMIT_FOR_APPROVAL
    allowed_roles: ["${LIFECYCLE_SUBMIT_ROLE}"]
`

	t.Setenv("LIFECYCLE_SUBMIT_ROLE", "underwriter")

	table, err := NewLoader().LoadString(content, FormatYAML)
	if err != nil {
		t.Fatalf("LoadString() error = %v", err)
	}

	tr, _ := table.Find(policy.StatusDraft, policy.ActionSubmitForApproval)
	if len(tr.AllowedRoles) != 1 || tr.AllowedRoles[0] != "underwriter" {
		t.Errorf("AllowedRoles = %v, want [underwriter]", tr.AllowedRoles)
	}
}

func TestLoader_StrictEnv(t *testing.T) {
	t.Parallel()

	content := `
transitions:
  - from: DRAFT
    to: PENDING
    action: SUBMIT_FOR_APPROVAL
    allowed_roles: ["${LIFECYCLE_UNSET_ROLE_VAR}"]
`

	_, err := NewLoaderWithOptions(WithStrictEnv(true)).LoadString(content, FormatYAML)
	if !errors.Is(err, ErrMissingEnvVar) {
		t.Errorf("LoadString() error = %v, want ErrMissingEnvVar", err)
	}
}

func TestLoader_EnvExpansionDisabled(t *testing.T) {
	t.Parallel()

	content := `
transitions:
  - from: DRAFT
    to: PENDING
    action: SUBMIT_FOR_APPROVAL
    allowed_roles: ["$ROLE"]
`

	table, err := NewLoaderWithOptions(WithEnvExpansion(false)).LoadString(content, FormatYAML)
	if err != nil {
		t.Fatalf("LoadString() error = %v", err)
	}

	tr, _ := table.Find(policy.StatusDraft, policy.ActionSubmitForApproval)
	if tr.AllowedRoles[0] != "$ROLE" {
		t.Errorf("AllowedRoles = %v, want the literal $ROLE", tr.AllowedRoles)
	}
}

func TestLoader_RoundTripDefaultTable(t *testing.T) {
	t.Parallel()

	// The default table expressed as YAML loads back equivalently.
	def := transition.DefaultTable()

	cfg := TableConfig{Transitions: def.All()}
	if len(cfg.Transitions) != def.Len() {
		t.Fatalf("All() = %d transitions, want %d", len(cfg.Transitions), def.Len())
	}

	rebuilt, err := transition.NewTable(cfg.Transitions)
	if err != nil {
		t.Fatalf("NewTable() error = %v", err)
	}
	if rebuilt.Len() != def.Len() {
		t.Errorf("rebuilt Len() = %d, want %d", rebuilt.Len(), def.Len())
	}
}
