package authorize

type Action string
type Resource string
type Role string

// ----------------------------
// Actions
// ----------------------------

const (
	ActionCreate Action = "create"
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionReview Action = "review"

	// Sweeps, reseeds and other maintenance runs.
	ActionExecute Action = "execute"

	WildcardAction Action = "*"
)

var KnownActions = map[Action]struct{}{
	ActionCreate: {}, ActionRead: {}, ActionUpdate: {}, ActionReview: {}, ActionExecute: {},
}

// ----------------------------
// Resources
// ----------------------------

const (
	WildcardResource Resource = "*"

	ResourceOrder      Resource = "order"
	ResourceToken      Resource = "token"
	ResourceAssessment Resource = "assessment"
	ResourceCatalog    Resource = "catalog"
	ResourceSweep      Resource = "sweep"
)

var KnownResources = map[Resource]struct{}{
	ResourceOrder: {}, ResourceToken: {}, ResourceAssessment: {}, ResourceCatalog: {}, ResourceSweep: {},
}

// ----------------------------
// Roles
// ----------------------------
//
// Actor roles arrive as bare names ("clinician") and are mapped to policy
// subjects with RoleFromName.

const (
	RoleClinician Role = "role:clinician"
	RoleAdmin     Role = "role:admin"
	RoleSystem    Role = "role:system"
)

var KnownRoles = map[Role]struct{}{
	RoleClinician: {},
	RoleAdmin:     {},
	RoleSystem:    {},
}

const rolePrefix = "role:"

// RoleFromName maps an actor role name to its policy subject. Unknown names
// map to an empty Role, which no policy matches.
func RoleFromName(name string) Role {
	r := Role(rolePrefix + name)
	if _, ok := KnownRoles[r]; !ok {
		return ""
	}
	return r
}

// ----------------------------
// Casbin tuple helpers
// ----------------------------

type PolicyEffect string

const (
	EffectAllow PolicyEffect = "allow"
	EffectDeny  PolicyEffect = "deny"
)

// Permission rows: p, role, resource, action, eft
type PermissionPolicy struct {
	Subject Role
	Object  Resource
	Action  Action
	Effect  PolicyEffect
}

func (p PermissionPolicy) row() []string {
	return []string{string(p.Subject), string(p.Object), string(p.Action), string(p.Effect)}
}

// Grouping rows: g, member, parent. The member inherits every permission of
// the parent role.
type GroupingPolicy struct {
	Member Role
	Parent Role
}

// DefaultPermissions is loaded when no policy file is configured.
var DefaultPermissions = []PermissionPolicy{
	{RoleClinician, ResourceOrder, ActionCreate, EffectAllow},
	{RoleClinician, ResourceOrder, ActionRead, EffectAllow},
	{RoleClinician, ResourceOrder, ActionUpdate, EffectAllow},
	{RoleClinician, ResourceToken, ActionCreate, EffectAllow},
	{RoleClinician, ResourceAssessment, ActionRead, EffectAllow},
	{RoleClinician, ResourceAssessment, ActionReview, EffectAllow},

	{RoleSystem, ResourceOrder, ActionUpdate, EffectAllow},
	{RoleSystem, ResourceSweep, ActionExecute, EffectAllow},
	{RoleSystem, ResourceCatalog, ActionExecute, EffectAllow},

	{RoleAdmin, ResourceCatalog, WildcardAction, EffectAllow},
	{RoleAdmin, ResourceSweep, ActionExecute, EffectAllow},
}

var DefaultGroupings = []GroupingPolicy{
	{Member: RoleAdmin, Parent: RoleClinician},
}
