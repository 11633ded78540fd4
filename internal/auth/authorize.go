package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"auth-gateway/internal/gateway"
	"auth-gateway/internal/rbac"
	apperrors "auth-gateway/pkg/errors"

	"github.com/labstack/echo/v4"
)

const GateAuthorization = "authorization"

// OwnerExtractor derives the owning user id of the resource a request
// targets. An empty id with a nil error counts as unresolvable.
type OwnerExtractor func(c echo.Context) (string, error)

// OwnerFromParam reads the owner id straight from a path parameter.
func OwnerFromParam(name string) OwnerExtractor {
	return func(c echo.Context) (string, error) {
		v := strings.TrimSpace(c.Param(name))
		if v == "" {
			return "", fmt.Errorf(msgOwnerParamMissingFmt, name)
		}
		return v, nil
	}
}

// OwnerLookup loads the owner of the resource identified by id.
type OwnerLookup func(ctx context.Context, id string) (string, error)

// OwnerFromLookup reads a resource id from a path parameter and resolves
// its owner through lookup, typically a repository query.
func OwnerFromLookup(param string, lookup OwnerLookup) OwnerExtractor {
	fromParam := OwnerFromParam(param)
	return func(c echo.Context) (string, error) {
		id, err := fromParam(c)
		if err != nil {
			return "", err
		}
		return lookup(c.Request().Context(), id)
	}
}

type permissionMode int

const (
	permissionNone permissionMode = iota
	permissionAny
	permissionAll
)

// Requirement is what a route declares about its callers. Build one with
// Permission, AnyPermission, AllPermissions, Ownership or
// PermissionAndOwnership.
type Requirement struct {
	mode        permissionMode
	permissions []rbac.Permission
	owner       OwnerExtractor
}

func Permission(p rbac.Permission) Requirement {
	return Requirement{mode: permissionAll, permissions: []rbac.Permission{p}}
}

// AnyPermission is satisfied by any one of perms. An empty set is never
// satisfied.
func AnyPermission(perms ...rbac.Permission) Requirement {
	return Requirement{mode: permissionAny, permissions: perms}
}

func AllPermissions(perms ...rbac.Permission) Requirement {
	return Requirement{mode: permissionAll, permissions: perms}
}

func Ownership(owner OwnerExtractor) Requirement {
	return Requirement{owner: owner}
}

func PermissionAndOwnership(p rbac.Permission, owner OwnerExtractor) Requirement {
	return Requirement{mode: permissionAll, permissions: []rbac.Permission{p}, owner: owner}
}

func (r Requirement) String() string {
	var parts []string
	switch r.mode {
	case permissionAny:
		parts = append(parts, "any("+joinPermissions(r.permissions)+")")
	case permissionAll:
		parts = append(parts, "all("+joinPermissions(r.permissions)+")")
	}
	if r.owner != nil {
		parts = append(parts, "owner")
	}
	if len(parts) == 0 {
		return "authenticated"
	}
	return strings.Join(parts, "+")
}

func joinPermissions(perms []rbac.Permission) string {
	s := make([]string, len(perms))
	for i, p := range perms {
		s[i] = string(p)
	}
	return strings.Join(s, ",")
}

// RouteRequirements maps a route pattern, as reported by echo's c.Path(),
// to the requirements declared for it.
type RouteRequirements struct {
	mu     sync.RWMutex
	routes map[string][]Requirement
}

func NewRouteRequirements() *RouteRequirements {
	return &RouteRequirements{routes: make(map[string][]Requirement)}
}

func routeKey(method, path string) string {
	return strings.ToUpper(method) + " " + path
}

// Declare appends reqs to the route. Declaring with no requirements still
// registers the route as authenticated-only.
func (r *RouteRequirements) Declare(method, path string, reqs ...Requirement) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := routeKey(method, path)
	if reqs == nil {
		reqs = []Requirement{}
	}
	r.routes[key] = append(r.routes[key], reqs...)
}

// Lookup returns the requirements of a route and whether it was declared.
func (r *RouteRequirements) Lookup(method, path string) ([]Requirement, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reqs, ok := r.routes[routeKey(method, path)]
	return reqs, ok
}

// Declare checks every permission named by reqs against the permission
// model before declaring the route.
func (a *Authorizer) Declare(method, path string, reqs ...Requirement) error {
	for _, req := range reqs {
		if req.mode == permissionNone {
			continue
		}
		if err := a.checker.ValidatePermissions(req.permissions); err != nil {
			return fmt.Errorf("route %s: %w", routeKey(method, path), err)
		}
	}
	a.routes.Declare(method, path, reqs...)
	return nil
}

// Authorizer evaluates route requirements against the request Principal.
type Authorizer struct {
	checker *rbac.Checker
	routes  *RouteRequirements
}

func NewAuthorizer(checker *rbac.Checker, routes *RouteRequirements) *Authorizer {
	if routes == nil {
		routes = NewRouteRequirements()
	}
	return &Authorizer{checker: checker, routes: routes}
}

func (a *Authorizer) Routes() *RouteRequirements {
	return a.routes
}

// Gate returns the pipeline gate. Routes without declared requirements are
// left to the authentication gate.
func (a *Authorizer) Gate() gateway.Gate {
	return gateway.NewGate(GateAuthorization, func(c echo.Context) gateway.Decision {
		reqs, ok := a.routes.Lookup(c.Request().Method, c.Path())
		if !ok {
			return gateway.Allow()
		}
		return a.Check(c, reqs...)
	})
}

// Require enforces reqs on a single route or group.
func (a *Authorizer) Require(reqs ...Requirement) echo.MiddlewareFunc {
	return gateway.New(gateway.NewGate(GateAuthorization, func(c echo.Context) gateway.Decision {
		return a.Check(c, reqs...)
	})).Middleware()
}

// Check authorizes the request. All permission checks run before any
// owner is resolved.
func (a *Authorizer) Check(c echo.Context, reqs ...Requirement) gateway.Decision {
	principal, ok := GetPrincipal(c)
	if !ok {
		return gateway.Deny(apperrors.ErrUnauthenticated, msgAuthenticationRequired)
	}

	for _, req := range reqs {
		if d := a.checkPermission(principal, req); !d.Allowed() {
			return d
		}
	}

	for _, req := range reqs {
		if req.owner == nil {
			continue
		}
		if d := a.checkOwner(c, principal, req.owner); !d.Allowed() {
			return d
		}
	}

	return gateway.Allow()
}

func (a *Authorizer) checkPermission(p *Principal, req Requirement) gateway.Decision {
	var err error
	switch req.mode {
	case permissionAny:
		err = a.checker.AuthorizeAny(p.Role, req.permissions...)
	case permissionAll:
		err = a.checker.AuthorizeAll(p.Role, req.permissions...)
	default:
		return gateway.Allow()
	}
	if err == nil {
		return gateway.Allow()
	}

	var required any = joinPermissions(req.permissions)
	if req.mode == permissionAll {
		required = firstMissing(a.checker, p.Role, req.permissions)
	}
	return gateway.Deny(
		fmt.Errorf("%w: %w", apperrors.ErrPermissionDenied, err),
		msgInsufficientPermissions,
	).With(jsonKeyRequiredPermission, required).With(jsonKeyRole, string(p.Role))
}

func firstMissing(checker *rbac.Checker, role rbac.Role, perms []rbac.Permission) string {
	for _, perm := range perms {
		if !checker.HasPermission(role, perm) {
			return string(perm)
		}
	}
	return joinPermissions(perms)
}

func (a *Authorizer) checkOwner(c echo.Context, p *Principal, extract OwnerExtractor) gateway.Decision {
	if a.checker.IsAdmin(p.Role) {
		return gateway.Allow()
	}

	ownerID, err := extract(c)
	if err == nil && ownerID == "" {
		err = errors.New(msgOwnerUnresolvable)
	}
	if err != nil {
		return gateway.Deny(fmt.Errorf("%w: %w", apperrors.ErrOwnerUnresolvable, err), msgOwnerUnresolvable)
	}

	if err := a.checker.AuthorizeOwner(p.Role, p.UserID, ownerID); err != nil {
		return gateway.Deny(fmt.Errorf("%w: %w", apperrors.ErrNotOwner, err), msgNotResourceOwner)
	}
	return gateway.Allow()
}
