package registry

import (
	"fmt"
	"reflect"
	"slices"
	"sync/atomic"

	"github.com/junioryono/chaindi/internal/reflection"
	"github.com/puzpuzpuz/xsync/v3"
)

// Key identifies a registration by service type and name.
// The empty name is the default, unnamed registration. Names compare ordinally.
type Key struct {
	ServiceType reflect.Type
	Name        string
}

// String formats the key for diagnostics.
func (k Key) String() string {
	if k.Name == "" {
		return reflection.FormatType(k.ServiceType)
	}
	return fmt.Sprintf("%s[%s]", reflection.FormatType(k.ServiceType), k.Name)
}

// WithoutName returns the unnamed key of the same service type.
func (k Key) WithoutName() Key {
	return Key{ServiceType: k.ServiceType}
}

// openKey identifies an open generic registration.
type openKey struct {
	Family reflection.Family
	Name   string
}

type entry struct {
	reg Registration
	seq uint64
}

// Guard vets a key inside the per-key critical section of Add.
type Guard func(Key) error

// Registry is a concurrent key→registration map owned by one scope.
type Registry struct {
	entries *xsync.MapOf[Key, entry]
	open    *xsync.MapOf[openKey, entry]
	seq     atomic.Uint64
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		entries: xsync.NewMapOf[Key, entry](),
		open:    xsync.NewMapOf[openKey, entry](),
	}
}

// Add validates reg and stores it under its key, replacing any previous
// registration of that key. The guard runs atomically with the store and may
// veto it.
func (r *Registry) Add(reg Registration, guard Guard) error {
	if reg == nil {
		return InvalidRegistrationError{Cause: fmt.Errorf("registration cannot be nil")}
	}

	if err := reg.Validate(); err != nil {
		return err
	}

	if og, ok := reg.(*OpenGenericRegistration); ok {
		return r.addOpen(og, guard)
	}

	key := reg.Key()
	var guardErr error
	r.entries.Compute(key, func(old entry, loaded bool) (entry, bool) {
		if guard != nil {
			if guardErr = guard(key); guardErr != nil {
				return old, !loaded
			}
		}
		return entry{reg: reg, seq: r.seq.Add(1)}, false
	})

	return guardErr
}

// addOpen stores og in place of the open registration of its family and
// name. The closed registrations the replaced one produced are evicted so og
// serves them from now on; the guard runs for each of them and a veto keeps
// the replaced registration.
func (r *Registry) addOpen(og *OpenGenericRegistration, guard Guard) error {
	var guardErr error
	r.open.Compute(openKey{Family: og.serviceFamily, Name: og.Name()}, func(old entry, loaded bool) (entry, bool) {
		if loaded {
			if guardErr = r.evictInstantiations(old.reg.(*OpenGenericRegistration), guard); guardErr != nil {
				return old, false
			}
		}
		return entry{reg: og, seq: r.seq.Add(1)}, false
	})

	return guardErr
}

func (r *Registry) evictInstantiations(prev *OpenGenericRegistration, guard Guard) error {
	for _, closed := range prev.Instantiations() {
		key := closed.Key()

		var guardErr error
		r.entries.Compute(key, func(old entry, loaded bool) (entry, bool) {
			if !loaded || old.reg != Registration(closed) {
				return old, !loaded
			}
			if guard != nil {
				if guardErr = guard(key); guardErr != nil {
					return old, false
				}
			}
			return old, true
		})

		if guardErr != nil {
			return guardErr
		}
	}
	return nil
}

// AddImplicit stores reg unless its key is already taken and returns the
// registration that ends up stored.
func (r *Registry) AddImplicit(reg Registration) Registration {
	actual, _ := r.entries.LoadOrCompute(reg.Key(), func() entry {
		return entry{reg: reg, seq: r.seq.Add(1)}
	})
	return actual.reg
}

// Remove deletes reg if it is still the registration stored under its key.
func (r *Registry) Remove(reg Registration) {
	r.entries.Compute(reg.Key(), func(old entry, loaded bool) (entry, bool) {
		if loaded && old.reg == reg {
			return old, true
		}
		return old, !loaded
	})
}

// Get returns the registration stored under exactly key.
func (r *Registry) Get(key Key) (Registration, bool) {
	e, ok := r.entries.Load(key)
	if !ok {
		return nil, false
	}
	return e.reg, true
}

// Lookup returns the registration serving key. When no closed registration
// exists and an open generic registration covers the key's family, the open
// registration is closed over the key's type arguments and the result stored.
// A nil registration with a nil error means not found.
func (r *Registry) Lookup(key Key) (Registration, error) {
	if reg, ok := r.Get(key); ok {
		return reg, nil
	}

	family, _, ok := reflection.GenericFamily(key.ServiceType)
	if !ok {
		return nil, nil
	}

	e, ok := r.open.Load(openKey{Family: family, Name: key.Name})
	if !ok {
		return nil, nil
	}

	closed, err := e.reg.(*OpenGenericRegistration).Close(key.ServiceType)
	if err != nil {
		return nil, err
	}

	actual := r.AddImplicit(closed)
	if actual == Registration(closed) && !r.openIs(openKey{Family: family, Name: key.Name}, e.reg) {
		// The open registration was replaced while this one was being closed.
		r.Remove(closed)
		return r.Lookup(key)
	}
	return actual, nil
}

func (r *Registry) openIs(key openKey, reg Registration) bool {
	e, ok := r.open.Load(key)
	return ok && e.reg == reg
}

// Contains reports whether a registration, closed or open, serves key.
func (r *Registry) Contains(key Key) bool {
	if _, ok := r.entries.Load(key); ok {
		return true
	}

	family, _, ok := reflection.GenericFamily(key.ServiceType)
	if !ok {
		return false
	}

	_, ok = r.open.Load(openKey{Family: family, Name: key.Name})
	return ok
}

// IfCurrent runs fn if reg is the registration stored under its key. fn runs
// inside the key's critical section, so no Add of that key interleaves with
// it. fn must not call back into the registry.
func (r *Registry) IfCurrent(reg Registration, fn func()) bool {
	var current bool
	r.entries.Compute(reg.Key(), func(old entry, loaded bool) (entry, bool) {
		if loaded && old.reg == reg {
			current = true
			fn()
		}
		return old, !loaded
	})
	return current
}

// HasRegistration reports whether reg itself is stored in the registry.
func (r *Registry) HasRegistration(reg Registration) bool {
	e, ok := r.entries.Load(reg.Key())
	return ok && e.reg == reg
}

// GetAll returns the closed registrations of serviceType, or all closed
// registrations when serviceType is nil, in registration order.
func (r *Registry) GetAll(serviceType reflect.Type) []Registration {
	var entries []entry
	r.entries.Range(func(key Key, e entry) bool {
		if serviceType == nil || key.ServiceType == serviceType {
			entries = append(entries, e)
		}
		return true
	})

	slices.SortFunc(entries, func(a, b entry) int {
		switch {
		case a.seq < b.seq:
			return -1
		case a.seq > b.seq:
			return 1
		}
		return 0
	})

	regs := make([]Registration, len(entries))
	for i, e := range entries {
		regs[i] = e.reg
	}
	return regs
}

// Len returns the number of closed registrations.
func (r *Registry) Len() int {
	return r.entries.Size()
}
