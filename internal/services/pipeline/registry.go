package pipeline

import (
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/prowl/internal/interfaces"
)

// Registry holds the explicit set of plugins available to an engine, in
// registration order. Registration happens once at startup; there is no
// dynamic discovery.
type Registry struct {
	plugins []interfaces.Plugin
	byName  map[string]interfaces.Plugin
	logger  arbor.ILogger
}

// NewRegistry creates an empty plugin registry
func NewRegistry(logger arbor.ILogger) *Registry {
	return &Registry{
		byName: make(map[string]interfaces.Plugin),
		logger: logger,
	}
}

// Register adds a plugin; duplicate names are rejected.
func (r *Registry) Register(plugin interfaces.Plugin) error {
	name := plugin.Name()
	if name == "" {
		return fmt.Errorf("plugin has empty name")
	}
	if _, exists := r.byName[name]; exists {
		return fmt.Errorf("plugin %s already registered", name)
	}

	r.plugins = append(r.plugins, plugin)
	r.byName[name] = plugin

	r.logger.Debug().Str("plugin", name).Msg("Plugin registered")
	return nil
}

// All returns every registered plugin in registration order
func (r *Registry) All() []interfaces.Plugin {
	return append([]interfaces.Plugin(nil), r.plugins...)
}

// Get returns a plugin by name
func (r *Registry) Get(name string) (interfaces.Plugin, bool) {
	plugin, ok := r.byName[name]
	return plugin, ok
}

// Select returns enabled plugins, restricted to names when names is
// non-empty. Unknown names are skipped with a warning, preserving
// registration order.
func (r *Registry) Select(names []string) []interfaces.Plugin {
	wanted := make(map[string]bool, len(names))
	for _, name := range names {
		if _, ok := r.byName[name]; !ok {
			r.logger.Warn().Str("plugin", name).Msg("Requested plugin not registered, skipping")
			continue
		}
		wanted[name] = true
	}

	var out []interfaces.Plugin
	for _, plugin := range r.plugins {
		if !plugin.Enabled() {
			continue
		}
		if len(names) > 0 && !wanted[plugin.Name()] {
			continue
		}
		out = append(out, plugin)
	}
	return out
}

// Initialize runs the Initialize hook of every plugin that has one.
// Called exactly once at startup; a failing plugin aborts startup.
func (r *Registry) Initialize() error {
	for _, plugin := range r.plugins {
		init, ok := plugin.(interfaces.Initializer)
		if !ok {
			continue
		}
		if err := init.Initialize(); err != nil {
			return fmt.Errorf("initialize plugin %s: %w", plugin.Name(), err)
		}
	}
	return nil
}

// Destroy runs the Destroy hook of every plugin that has one, logging
// failures instead of aborting shutdown.
func (r *Registry) Destroy() {
	for _, plugin := range r.plugins {
		destroy, ok := plugin.(interfaces.Destroyer)
		if !ok {
			continue
		}
		if err := destroy.Destroy(); err != nil {
			r.logger.Warn().Str("plugin", plugin.Name()).Err(err).Msg("Plugin destroy failed")
		}
	}
}
