package auth

import (
	"log/slog"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"gorm.io/gorm"

	blogmodel "bloghub.com/internal/model"
)

// rbacModel: role-based, keyMatch2 paths (/admin/*), regex methods, role inheritance via g.
const rbacModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && keyMatch2(r.obj, p.obj) && regexMatch(r.act, p.act)
`

// defaultPolicies 初始化的默认策略
var defaultPolicies = [][]string{
	{string(blogmodel.RoleUser), "/user/*", "^(GET|POST)$"},
	{string(blogmodel.RoleUser), "/auth/*", "^(GET|POST)$"},
	{string(blogmodel.RoleAdmin), "/admin/*", "^(GET|POST)$"},
}

// InitCasbin builds the RBAC enforcer with policies persisted through the gorm adapter
// (casbin_rule table). Default policies are written on first start only.
func InitCasbin(db *gorm.DB) (*casbin.Enforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}

	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		return nil, err
	}

	enforcer, err := casbin.NewEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}

	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}

	policies, err := enforcer.GetPolicy()
	if err != nil {
		return nil, err
	}
	if len(policies) == 0 {
		slog.Info("no casbin policies found, installing defaults", "component", "auth")
		if _, err := enforcer.AddPolicies(defaultPolicies); err != nil {
			return nil, err
		}
		// ADMIN 继承 USER 的全部权限
		if _, err := enforcer.AddGroupingPolicy(string(blogmodel.RoleAdmin), string(blogmodel.RoleUser)); err != nil {
			return nil, err
		}
	}

	return enforcer, nil
}
