// Package registry implements the optional named-container diagnostic
// registry: a list-shaped container of
// {name, container, id} entries that lets operator tooling enumerate
// and inspect live containers without the core object/container
// packages knowing the registry exists.
package registry

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/itbidhan/asterisk/container"
	"github.com/itbidhan/asterisk/internal/obslog"
	"github.com/itbidhan/asterisk/obj"
)

var (
	ErrNotFound     = errors.New("registry: not found")
	ErrAlreadyExist = errors.New("registry: name already registered")
)

// Checkable is the subset of container.Container[T]'s surface the
// registry needs without itself being generic over T: Count for
// stats, Check for the integrity-check command.
type Checkable interface {
	Count() int64
	Check() error
}

type entry struct {
	name string
	id   uuid.UUID
	c    Checkable
}

func sortByName(a, b *entry) int {
	return strings.Compare(strings.ToLower(a.name), strings.ToLower(b.name))
}

func matchByName(e *entry, arg, _ any) int {
	if strings.EqualFold(e.name, arg.(string)) {
		return container.CmpMatch | container.CmpStop
	}
	return 0
}

// Registry is a process-wide, case-insensitively-sorted list of named
// containers. Registration does not take ownership of the container's
// lifetime: callers remain responsible for releasing their own
// reference when done.
type Registry struct {
	entries *container.Container[entry]
	logger  obslog.Logger
}

// New constructs an empty Registry.
func New(logger obslog.Logger) (*Registry, error) {
	if logger == nil {
		logger = obslog.Nop()
	}
	c, err := container.NewList[entry](sortByName, matchByName, container.Options{Dups: container.DupsReject})
	if err != nil {
		return nil, err
	}
	return &Registry{entries: c, logger: logger}, nil
}

// Register adds name → c to the registry, returning the id assigned
// to the entry. Registering a name that already exists returns
// ErrAlreadyExist.
func (r *Registry) Register(name string, c Checkable) (uuid.UUID, error) {
	id := uuid.New()
	h, err := obj.Alloc(entry{name: name, id: id, c: c}, nil)
	if err != nil {
		return uuid.Nil, err
	}
	defer h.Release()
	if _, err := r.entries.Link(h, 0); err != nil {
		if errors.Is(err, container.ErrDuplicate) {
			return uuid.Nil, ErrAlreadyExist
		}
		return uuid.Nil, err
	}
	r.logger.Infof("registry: registered %q (%s)", name, id)
	return id, nil
}

// Unregister removes name from the registry.
func (r *Registry) Unregister(name string) error {
	h, err := r.entries.Callback(container.FlagUnlink, matchByName, name)
	if err != nil {
		return err
	}
	if h == nil {
		return ErrNotFound
	}
	h.Release()
	r.logger.Infof("registry: unregistered %q", name)
	return nil
}

// Lookup returns the container registered under name.
func (r *Registry) Lookup(name string) (Checkable, error) {
	h, err := r.entries.Find(0, name)
	if err != nil {
		return nil, err
	}
	if h == nil {
		return nil, ErrNotFound
	}
	defer h.Release()
	return h.Get().c, nil
}

// Complete returns every registered name with the given prefix, for
// shell-completion hooks (cmd/ao2ctl wires this into cobra's
// ValidArgsFunction).
func (r *Registry) Complete(prefix string) []string {
	var names []string
	matchPrefix := func(e *entry, arg, _ any) int {
		if strings.HasPrefix(strings.ToLower(e.name), strings.ToLower(arg.(string))) {
			return container.CmpMatch
		}
		return 0
	}
	it, err := r.entries.CallbackMultiple(0, matchPrefix, prefix)
	if err != nil || it == nil {
		return nil
	}
	defer it.Destroy()
	for h := it.Next(); h != nil; h = it.Next() {
		names = append(names, h.Get().name)
		h.Release()
	}
	return names
}

// ContainerStats is the result of Stats.
type ContainerStats struct {
	Name     string
	ID       uuid.UUID
	Elements int64
}

// Stats returns the element count for the named container.
func (r *Registry) Stats(name string) (ContainerStats, error) {
	h, err := r.entries.Find(0, name)
	if err != nil {
		return ContainerStats{}, err
	}
	if h == nil {
		return ContainerStats{}, ErrNotFound
	}
	defer h.Release()
	e := h.Get()
	return ContainerStats{Name: e.name, ID: e.id, Elements: e.c.Count()}, nil
}

// Check looks up name and invokes that container's own integrity
// check. The lookup's lock is released before the check runs.
func (r *Registry) Check(name string) error {
	c, err := r.Lookup(name)
	if err != nil {
		return err
	}
	return c.Check()
}

// Describe implements prometheus.Collector.
func (r *Registry) Describe(ch chan<- *prometheus.Desc) {
	ch <- containersDesc
	ch <- elementsDesc
}

var (
	containersDesc = prometheus.NewDesc(
		"ao2_registry_containers", "Number of containers currently registered.", nil, nil)
	elementsDesc = prometheus.NewDesc(
		"ao2_container_elements", "Element count of a registered container.", []string{"name"}, nil)
)

// Collect implements prometheus.Collector.
func (r *Registry) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(containersDesc, prometheus.GaugeValue, float64(r.entries.Count()))

	matchAll := func(*entry, any, any) int { return container.CmpMatch }
	it, err := r.entries.CallbackMultiple(0, matchAll, nil)
	if err != nil || it == nil {
		return
	}
	defer it.Destroy()
	for h := it.Next(); h != nil; h = it.Next() {
		e := h.Get()
		ch <- prometheus.MustNewConstMetric(elementsDesc, prometheus.GaugeValue, float64(e.c.Count()), e.name)
		h.Release()
	}
}
