// Package permissions tracks the per-home permission toggles and building delegates.
package permissions

import "sort"

// Registry is not safe for concurrent use; the owning home serializes access.
type Registry struct {
	settings  map[byte]byte
	delegates map[int64]struct{}
}

func New() *Registry {
	return &Registry{settings: map[byte]byte{}, delegates: map[int64]struct{}{}}
}

// FromRecord rebuilds a registry from persisted fields.
func FromRecord(settings map[byte]byte, delegates []int64) *Registry {
	r := New()
	for k, v := range settings {
		r.settings[k] = v
	}
	for _, id := range delegates {
		r.delegates[id] = struct{}{}
	}
	return r
}

// Enable turns a permission on with a zero setting, or removes it when enabled is false.
// Enabling an already enabled permission keeps its setting.
func (r *Registry) Enable(kind byte, enabled bool) {
	if !enabled {
		delete(r.settings, kind)
		return
	}
	if _, ok := r.settings[kind]; !ok {
		r.settings[kind] = 0
	}
}

// Set changes the setting of an enabled permission. It reports false if the permission is off.
func (r *Registry) Set(kind, value byte) bool {
	if _, ok := r.settings[kind]; !ok {
		return false
	}
	r.settings[kind] = value
	return true
}

func (r *Registry) Get(kind byte) (byte, bool) {
	v, ok := r.settings[kind]
	return v, ok
}

// Grant adds account to the building delegates. It reports whether anything changed.
func (r *Registry) Grant(account int64) bool {
	if _, ok := r.delegates[account]; ok {
		return false
	}
	r.delegates[account] = struct{}{}
	return true
}

// Revoke removes account from the building delegates. It reports whether anything changed.
func (r *Registry) Revoke(account int64) bool {
	if _, ok := r.delegates[account]; !ok {
		return false
	}
	delete(r.delegates, account)
	return true
}

func (r *Registry) CanBuild(account int64) bool {
	_, ok := r.delegates[account]
	return ok
}

// Settings returns a copy of the enabled permissions.
func (r *Registry) Settings() map[byte]byte {
	out := make(map[byte]byte, len(r.settings))
	for k, v := range r.settings {
		out[k] = v
	}
	return out
}

// Delegates returns the delegate accounts in ascending order.
func (r *Registry) Delegates() []int64 {
	out := make([]int64, 0, len(r.delegates))
	for id := range r.delegates {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
