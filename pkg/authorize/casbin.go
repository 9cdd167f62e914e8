package authorize

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"

	casbin "github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"
)

var (
	ErrForbidden   = errors.New("forbidden")
	ErrInvalidArgs = errors.New("invalid authorization arguments")
)

//go:embed model.conf
var defaultModel string

// IAuthorization is the only thing services/middleware should depend on.
type IAuthorization interface {
	// Enforce answers: "may role act on object?"
	Enforce(ctx context.Context, role Role, object Resource, action Action) (bool, error)

	// MustEnforce returns ErrForbidden if not allowed.
	MustEnforce(ctx context.Context, role Role, object Resource, action Action) error
}

// Authorization is a thin typed wrapper around casbin.SyncedEnforcer.
type Authorization struct {
	enforcer *casbin.SyncedEnforcer
}

// New builds the enforcer from cfg. The result is wrapped with decision
// logging when cfg.EnableAudit is set.
func New(cfg Config, logger *slog.Logger) (IAuthorization, error) {
	m, err := loadModel(cfg.ModelPath)
	if err != nil {
		return nil, err
	}

	var e *casbin.SyncedEnforcer
	if cfg.PolicyPath != "" {
		e, err = casbin.NewSyncedEnforcer(m, fileadapter.NewAdapter(cfg.PolicyPath))
	} else {
		e, err = casbin.NewSyncedEnforcer(m)
	}
	if err != nil {
		return nil, fmt.Errorf("casbin enforcer: %w", err)
	}

	if cfg.PolicyPath == "" {
		if err := loadDefaults(e); err != nil {
			return nil, err
		}
	}

	var authz IAuthorization = &Authorization{enforcer: e}
	if cfg.EnableAudit {
		authz = NewAuditedAuthorization(authz, logger)
	}
	return authz, nil
}

func loadModel(path string) (model.Model, error) {
	if path == "" {
		return model.NewModelFromString(defaultModel)
	}
	m, err := model.NewModelFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("casbin model %q: %w", path, err)
	}
	return m, nil
}

func loadDefaults(e *casbin.SyncedEnforcer) error {
	rows := make([][]string, 0, len(DefaultPermissions))
	for _, p := range DefaultPermissions {
		rows = append(rows, p.row())
	}
	if _, err := e.AddPolicies(rows); err != nil {
		return fmt.Errorf("load default policies: %w", err)
	}
	for _, g := range DefaultGroupings {
		if _, err := e.AddGroupingPolicy(string(g.Member), string(g.Parent)); err != nil {
			return fmt.Errorf("load default groupings: %w", err)
		}
	}
	return nil
}

func (a *Authorization) Enforce(ctx context.Context, role Role, object Resource, action Action) (bool, error) {
	_ = ctx

	if role == "" {
		return false, nil
	}
	if _, ok := KnownResources[object]; !ok {
		return false, fmt.Errorf("%w: unknown resource: %q", ErrInvalidArgs, object)
	}
	if _, ok := KnownActions[action]; !ok {
		return false, fmt.Errorf("%w: unknown action: %q", ErrInvalidArgs, action)
	}

	return a.enforcer.Enforce(string(role), string(object), string(action))
}

func (a *Authorization) MustEnforce(ctx context.Context, role Role, object Resource, action Action) error {
	return mustEnforce(ctx, a, role, object, action)
}

func mustEnforce(ctx context.Context, a IAuthorization, role Role, object Resource, action Action) error {
	ok, err := a.Enforce(ctx, role, object, action)
	if err != nil {
		return err
	}
	if !ok {
		return ErrForbidden
	}
	return nil
}
