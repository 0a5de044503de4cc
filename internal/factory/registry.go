package factory

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"tmregion/internal/backend"
	"tmregion/internal/backendid"
	"tmregion/internal/fault"
)

const (
	SupportedSchemaVersion = 1
	SupportedCodecVersion  = 1
)

var (
	ErrBackendExists   = errors.New("backend already registered")
	ErrBackendNotFound = fmt.Errorf("%w: unknown backend", fault.ErrConfiguration)
	ErrVersionMismatch = errors.New("backend version mismatch")
)

// BuildFunc maps a filtered argument bag onto one backend constructor.
type BuildFunc func(args backend.Args) (backend.Memory, error)

// WrapFunc optionally decorates a freshly built instance.
type WrapFunc func(inst backend.Instance, name string) (backend.Instance, error)

type Spec struct {
	Name          string
	Kind          backend.Kind
	Params        []string
	Build         BuildFunc
	Wrap          WrapFunc
	SchemaVersion int
	CodecVersion  int
}

type registeredBackend struct {
	kind          backend.Kind
	params        []string
	build         BuildFunc
	wrap          WrapFunc
	schemaVersion int
	codecVersion  int
}

// Factory is a registry of constructible backends keyed by canonical name.
type Factory struct {
	mu sync.RWMutex
	m  map[string]registeredBackend
}

// New returns an empty factory; use Default for the built-in backends.
func New() *Factory {
	return &Factory{m: make(map[string]registeredBackend)}
}

var defaultFactory = newDefaultFactory()

func newDefaultFactory() *Factory {
	f := New()
	registerBuiltIns(f)
	return f
}

// Default returns the process-wide factory holding the built-in backends.
func Default() *Factory {
	return defaultFactory
}

func (f *Factory) Register(spec Spec) error {
	if spec.Name == "" {
		return errors.New("backend name is required")
	}
	if spec.Build == nil {
		return errors.New("backend build function is required")
	}
	if spec.Kind != backend.KindBasic && spec.Kind != backend.KindExtended {
		return fmt.Errorf("backend %s: unsupported kind %s", spec.Name, spec.Kind)
	}
	if spec.SchemaVersion == 0 && spec.CodecVersion == 0 {
		spec.SchemaVersion, spec.CodecVersion = SupportedSchemaVersion, SupportedCodecVersion
	}
	if spec.SchemaVersion != SupportedSchemaVersion || spec.CodecVersion != SupportedCodecVersion {
		return fmt.Errorf("%w: schema=%d codec=%d", ErrVersionMismatch, spec.SchemaVersion, spec.CodecVersion)
	}

	name := backendid.Normalize(spec.Name)

	f.mu.Lock()
	defer f.mu.Unlock()

	if _, exists := f.m[name]; exists {
		return fmt.Errorf("%w: %s", ErrBackendExists, name)
	}
	f.m[name] = registeredBackend{
		kind:          spec.Kind,
		params:        append([]string(nil), spec.Params...),
		build:         spec.Build,
		wrap:          spec.Wrap,
		schemaVersion: spec.SchemaVersion,
		codecVersion:  spec.CodecVersion,
	}
	return nil
}

func (f *Factory) MustRegister(spec Spec) {
	if err := f.Register(spec); err != nil {
		panic(err)
	}
}

func (f *Factory) lookup(id string) (registeredBackend, string, error) {
	name := backendid.Normalize(id)
	f.mu.RLock()
	entry, ok := f.m[name]
	f.mu.RUnlock()
	if !ok {
		return registeredBackend{}, "", fmt.Errorf("%w: %q", ErrBackendNotFound, id)
	}
	if entry.schemaVersion != SupportedSchemaVersion || entry.codecVersion != SupportedCodecVersion {
		return registeredBackend{}, "", fmt.Errorf("%w: %s", ErrVersionMismatch, name)
	}
	return entry, name, nil
}

// AcceptedParameters returns the constructor parameter names the backend
// identified by id declares, sorted.
func (f *Factory) AcceptedParameters(id string) ([]string, error) {
	entry, _, err := f.lookup(id)
	if err != nil {
		return nil, err
	}
	params := append([]string(nil), entry.params...)
	sort.Strings(params)
	return params, nil
}

// KindOf reports the compute contract of the backend identified by id.
func (f *Factory) KindOf(id string) (backend.Kind, error) {
	entry, _, err := f.lookup(id)
	if err != nil {
		return 0, err
	}
	return entry.kind, nil
}

// Construct filters candidate down to the accepted parameters of id and
// builds the backend. Unrecognised candidate names are dropped silently.
func (f *Factory) Construct(id string, candidate backend.Args) (backend.Instance, error) {
	entry, name, err := f.lookup(id)
	if err != nil {
		return backend.Instance{}, err
	}
	mem, err := entry.build(candidate.Filter(entry.params))
	if err != nil {
		return backend.Instance{}, fmt.Errorf("construct %s: %w", name, err)
	}
	inst, err := backend.NewInstance(entry.kind, mem)
	if err != nil {
		return backend.Instance{}, fmt.Errorf("construct %s: %w", name, err)
	}
	if entry.wrap != nil {
		inst, err = entry.wrap(inst, name)
		if err != nil {
			return backend.Instance{}, fmt.Errorf("construct %s: %w", name, err)
		}
	}
	return inst, nil
}

func (f *Factory) List() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	names := make([]string, 0, len(f.m))
	for name := range f.m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AcceptedParameters resolves against the default factory.
func AcceptedParameters(id string) ([]string, error) {
	return defaultFactory.AcceptedParameters(id)
}

// Construct builds against the default factory.
func Construct(id string, candidate backend.Args) (backend.Instance, error) {
	return defaultFactory.Construct(id, candidate)
}

func List() []string {
	return defaultFactory.List()
}
