package authorize

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Alijeyrad/simorq_screening/pkg/reqctx"
)

func newDefault(t *testing.T) IAuthorization {
	t.Helper()
	a, err := New(Config{}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return a
}

func TestDefaultPolicy(t *testing.T) {
	authz := newDefault(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		role   Role
		obj    Resource
		act    Action
		expect bool
	}{
		{"clinician creates order", RoleClinician, ResourceOrder, ActionCreate, true},
		{"clinician issues token", RoleClinician, ResourceToken, ActionCreate, true},
		{"clinician reads assessment", RoleClinician, ResourceAssessment, ActionRead, true},
		{"clinician reviews assessment", RoleClinician, ResourceAssessment, ActionReview, true},
		{"clinician cannot sweep", RoleClinician, ResourceSweep, ActionExecute, false},
		{"clinician cannot reseed", RoleClinician, ResourceCatalog, ActionExecute, false},
		{"admin inherits clinician", RoleAdmin, ResourceAssessment, ActionRead, true},
		{"admin reseeds catalog", RoleAdmin, ResourceCatalog, ActionExecute, true},
		{"system sweeps", RoleSystem, ResourceSweep, ActionExecute, true},
		{"system cannot read assessment", RoleSystem, ResourceAssessment, ActionRead, false},
		{"empty role", "", ResourceOrder, ActionRead, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := authz.Enforce(ctx, tt.role, tt.obj, tt.act)
			if err != nil {
				t.Fatalf("Enforce: %v", err)
			}
			if got != tt.expect {
				t.Fatalf("Enforce(%s, %s, %s) = %v, want %v", tt.role, tt.obj, tt.act, got, tt.expect)
			}
		})
	}
}

func TestEnforce_UnknownArgs(t *testing.T) {
	authz := newDefault(t)
	ctx := context.Background()

	if _, err := authz.Enforce(ctx, RoleClinician, "billing", ActionRead); !errors.Is(err, ErrInvalidArgs) {
		t.Fatalf("unknown resource err = %v", err)
	}
	if _, err := authz.Enforce(ctx, RoleClinician, ResourceOrder, "delete"); !errors.Is(err, ErrInvalidArgs) {
		t.Fatalf("unknown action err = %v", err)
	}
}

func TestMustEnforce(t *testing.T) {
	authz := newDefault(t)
	ctx := context.Background()

	if err := authz.MustEnforce(ctx, RoleClinician, ResourceOrder, ActionRead); err != nil {
		t.Fatalf("allowed: %v", err)
	}
	if err := authz.MustEnforce(ctx, RoleSystem, ResourceAssessment, ActionRead); !errors.Is(err, ErrForbidden) {
		t.Fatalf("denied err = %v, want ErrForbidden", err)
	}
}

func TestPolicyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.csv")
	policy := "p, role:clinician, order, read, allow\n" +
		"p, role:clinician, assessment, read, deny\n"
	if err := os.WriteFile(path, []byte(policy), 0o644); err != nil {
		t.Fatal(err)
	}

	authz, err := New(Config{PolicyPath: path}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()

	if ok, _ := authz.Enforce(ctx, RoleClinician, ResourceOrder, ActionRead); !ok {
		t.Error("file policy should allow order read")
	}
	if ok, _ := authz.Enforce(ctx, RoleClinician, ResourceAssessment, ActionRead); ok {
		t.Error("file policy denies assessment read")
	}
	if ok, _ := authz.Enforce(ctx, RoleClinician, ResourceOrder, ActionCreate); ok {
		t.Error("defaults must not be loaded alongside a policy file")
	}
}

func TestAuditedAuthorization_LogsDenials(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	authz, err := New(Config{EnableAudit: true}, logger)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := authz.(*AuditedAuthorization); !ok {
		t.Fatalf("got %T, want *AuditedAuthorization", authz)
	}

	_ = authz.MustEnforce(context.Background(), RoleSystem, ResourceAssessment, ActionRead)
	if !strings.Contains(buf.String(), `"allowed":false`) {
		t.Fatalf("denial not logged: %s", buf.String())
	}
}

func TestRoleFromContext(t *testing.T) {
	if _, err := RoleFromContext(context.Background()); !errors.Is(err, ErrNoSubjectInContext) {
		t.Fatalf("empty ctx err = %v", err)
	}

	ctx := reqctx.WithActor(context.Background(), reqctx.Actor{ID: "dr-1", Role: "clinician"})
	role, err := RoleFromContext(ctx)
	if err != nil || role != RoleClinician {
		t.Fatalf("RoleFromContext = %q, %v", role, err)
	}

	ctx = reqctx.WithActor(context.Background(), reqctx.Actor{ID: "x", Role: "superuser"})
	if role, _ := RoleFromContext(ctx); role != "" {
		t.Fatalf("unknown role mapped to %q", role)
	}
}
