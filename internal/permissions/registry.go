package permissions

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/mdnaeem95/halaltech/internal/models"
)

// Permission describes an action a role may be granted.
type Permission struct {
	ID          string
	Module      string
	DependsOn   []string
	Implies     []string
	Description string
}

var (
	// ErrUnknownPermission indicates a lookup for a permission that was never registered.
	ErrUnknownPermission = errors.New("permission: unknown permission")
	// ErrCircularDependency signals that a dependency graph contains a cycle.
	ErrCircularDependency = errors.New("permission: circular dependency detected")

	errNilPermission   = errors.New("permission: nil definition")
	errEmptyID         = errors.New("permission: id is required")
	errDuplicateID     = errors.New("permission: already registered")
	errSelfDependency  = errors.New("permission: cannot depend on itself")
	errSelfImplication = errors.New("permission: cannot imply itself")
	errUnknownRole     = errors.New("permission: unknown role")
)

// Registry holds permission definitions and the permissions granted to each
// profile role. Admins implicitly hold every permission.
type Registry struct {
	mu          sync.RWMutex
	permissions map[string]*Permission
	grants      map[string]map[string]struct{}
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		permissions: make(map[string]*Permission),
		grants:      make(map[string]map[string]struct{}),
	}
}

// Register adds a permission definition.
func (r *Registry) Register(perm *Permission) error {
	if perm == nil {
		return errNilPermission
	}
	id := strings.TrimSpace(perm.ID)
	if id == "" {
		return errEmptyID
	}

	def := clonePermission(perm)
	def.ID = id
	def.Module = strings.TrimSpace(def.Module)

	var err error
	if def.DependsOn, err = normaliseIDs(def.DependsOn, id, errSelfDependency); err != nil {
		return err
	}
	if def.Implies, err = normaliseIDs(def.Implies, id, errSelfImplication); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.permissions[id]; exists {
		return fmt.Errorf("%w: %s", errDuplicateID, id)
	}
	r.permissions[id] = def
	return nil
}

// Grant gives role the listed permissions. Every id must already be registered.
func (r *Registry) Grant(role string, ids ...string) error {
	if !models.ValidRole(role) {
		return fmt.Errorf("%w %q", errUnknownRole, role)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.grants[role]
	if !ok {
		set = make(map[string]struct{}, len(ids))
		r.grants[role] = set
	}
	for _, id := range ids {
		if _, known := r.permissions[id]; !known {
			return fmt.Errorf("%w %q", ErrUnknownPermission, id)
		}
		set[id] = struct{}{}
	}
	return nil
}

// Get returns a copy of the permission definition when registered.
func (r *Registry) Get(id string) (*Permission, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	perm, ok := r.permissions[id]
	if !ok {
		return nil, false
	}
	return clonePermission(perm), true
}

// IDs returns every registered permission id, sorted.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.permissions))
	for id := range r.permissions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// RolePermissions returns the effective permissions of role: its grants plus
// everything they imply, sorted.
func (r *Registry) RolePermissions(role string) ([]string, error) {
	if role == models.RoleAdmin {
		return r.IDs(), nil
	}
	effective, err := r.effective(role)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(effective))
	for id := range effective {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Allows reports whether role holds permissionID and all of its dependencies.
func (r *Registry) Allows(role, permissionID string) (bool, error) {
	if _, ok := r.Get(permissionID); !ok {
		return false, fmt.Errorf("%w %q", ErrUnknownPermission, permissionID)
	}
	if role == models.RoleAdmin {
		return true, nil
	}

	effective, err := r.effective(role)
	if err != nil {
		return false, err
	}
	if _, ok := effective[permissionID]; !ok {
		return false, nil
	}
	deps, err := r.ResolveDependencies(permissionID)
	if err != nil {
		return false, err
	}
	for _, dep := range deps {
		if _, ok := effective[dep]; !ok {
			return false, nil
		}
	}
	return true, nil
}

// Validate checks that every dependency and implication references a known permission.
func (r *Registry) Validate() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, perm := range r.permissions {
		for _, ref := range append(append([]string(nil), perm.DependsOn...), perm.Implies...) {
			if _, ok := r.permissions[ref]; !ok {
				return fmt.Errorf("permission: %s references unknown permission %s", perm.ID, ref)
			}
		}
	}
	return nil
}

func (r *Registry) effective(role string) (map[string]struct{}, error) {
	if !models.ValidRole(role) {
		return nil, fmt.Errorf("%w %q", errUnknownRole, role)
	}
	r.mu.RLock()
	granted := make([]string, 0, len(r.grants[role]))
	for id := range r.grants[role] {
		granted = append(granted, id)
	}
	r.mu.RUnlock()
	return r.expandImplied(granted)
}

func (r *Registry) expandImplied(ids []string) (map[string]struct{}, error) {
	perms := make(map[string]struct{})

	var visit func(string) error
	visit = func(id string) error {
		if _, exists := perms[id]; exists {
			return nil
		}
		def, ok := r.Get(id)
		if !ok {
			return fmt.Errorf("%w %q", ErrUnknownPermission, id)
		}
		perms[id] = struct{}{}
		for _, implied := range def.Implies {
			if err := visit(implied); err != nil {
				return err
			}
		}
		return nil
	}

	for _, id := range ids {
		if err := visit(id); err != nil {
			return nil, err
		}
	}
	return perms, nil
}

// ResolveDependencies returns the transitive dependencies of permissionID,
// excluding the permission itself.
func (r *Registry) ResolveDependencies(permissionID string) ([]string, error) {
	root, ok := r.Get(permissionID)
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownPermission, permissionID)
	}

	visited := make(map[string]bool)
	onStack := make(map[string]bool)
	var resolved []string

	var walk func(string) error
	walk = func(current string) error {
		perm, ok := r.Get(current)
		if !ok {
			return fmt.Errorf("%w %q", ErrUnknownPermission, current)
		}
		if onStack[current] {
			return fmt.Errorf("%w at %s", ErrCircularDependency, current)
		}
		if visited[current] {
			return nil
		}
		onStack[current] = true
		for _, dep := range perm.DependsOn {
			if err := walk(dep); err != nil {
				return err
			}
		}
		onStack[current] = false
		visited[current] = true
		if current != permissionID {
			resolved = append(resolved, current)
		}
		return nil
	}

	for _, dep := range root.DependsOn {
		if err := walk(dep); err != nil {
			return nil, err
		}
	}
	return resolved, nil
}

func clonePermission(perm *Permission) *Permission {
	cp := *perm
	cp.DependsOn = append([]string(nil), perm.DependsOn...)
	cp.Implies = append([]string(nil), perm.Implies...)
	return &cp
}

func normaliseIDs(values []string, self string, selfErr error) ([]string, error) {
	if len(values) == 0 {
		return nil, nil
	}
	seen := make(map[string]struct{}, len(values))
	var result []string
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		if value == self {
			return nil, selfErr
		}
		if _, exists := seen[value]; exists {
			continue
		}
		seen[value] = struct{}{}
		result = append(result, value)
	}
	return result, nil
}
