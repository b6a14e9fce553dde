package rack

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/piwi3910/pcbdrill/internal/model"
)

// ConfigError aborts selection of a named rack. The manager degrades to a
// manual rack when it sees one.
type ConfigError struct {
	Rack   string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Rack == "" {
		return e.Reason
	}
	return fmt.Sprintf("rack %q: %s", e.Rack, e.Reason)
}

// ErrInvalidFile is returned by Save when the rack file on disk failed to
// load; it is left for the operator to fix.
var ErrInvalidFile = errors.New("rack file is invalid, not overwriting")

// Manager owns the rack registry and the rack in use for one run.
type Manager struct {
	settings model.Settings
	path     string
	logger   *slog.Logger

	registry Registry
	invalid  bool
	selected string
	rack     *Rack
	diag     model.Diagnostics
}

// NewManager loads the rack file at path (settings.RackFile when empty). A
// missing file is created from the template. An unusable file is logged and
// left alone, and the run proceeds with a manual rack.
func NewManager(settings model.Settings, path string, logger *slog.Logger) *Manager {
	if path == "" {
		path = settings.RackFile
	}
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		settings: settings,
		path:     path,
		logger:   logger,
		registry: Registry{Issue: 1, Racks: map[string][]ToolDef{}},
		rack:     NewManual(),
	}

	reg, err := ReadRegistry(path)
	var lerr *LoadError
	switch {
	case err == nil:
	case errors.As(err, &lerr) && lerr.Kind == LoadMissing:
		logger.Info("no rack file found, creating one", "path", path)
		if werr := WriteTemplate(path, time.Now()); werr != nil {
			logger.Error("failed to create rack file", "path", path, "err", werr)
			m.diag.Warn("Could not create the rack file "+path, "Check the permissions of the directory", "Using manual rack")
			return m
		}
		if reg, err = ReadRegistry(path); err != nil {
			logger.Error("rack template does not load", "path", path, "err", err)
			return m
		}
	default:
		m.invalid = true
		if lerr != nil {
			for _, p := range lerr.Problems {
				logger.Error("rack validation error", "path", path, "problem", p)
			}
		}
		logger.Error("failed to load rack file", "path", path, "err", err)
		m.diag.Warn("Bad rack configuration detected. Using manual rack.", err.Error(), "Fix "+path+" and run again")
		return m
	}

	m.registry = reg
	m.rack = New(reg.Size)
	if reg.Use != "" {
		_ = m.Select(reg.Use)
	}
	return m
}

// Path returns the rack file location.
func (m *Manager) Path() string { return m.path }

// Registry returns the loaded registry.
func (m *Manager) Registry() Registry { return m.registry }

// Selected returns the name of the rack in use, or "" for an unnamed rack.
func (m *Manager) Selected() string { return m.selected }

// Rack returns the rack in use. The caller must not modify it; take a Clone.
func (m *Manager) Rack() *Rack { return m.rack }

// Warnings returns the issues found while loading and selecting racks.
func (m *Manager) Warnings() []model.Warning { return m.diag.Entries() }

// Use replaces the rack in use, for example with one parsed from a rack
// string on the command line.
func (m *Manager) Use(r *Rack, warnings []model.Warning) {
	m.rack = r
	m.selected = ""
	m.diag.Append(warnings...)
}

// Select makes the named rack current. On a ConfigError the manager logs
// it, records a warning and falls back to an empty manual rack.
func (m *Manager) Select(name string) error {
	r, warnings, err := m.build(name)
	m.diag.Append(warnings...)
	if err != nil {
		m.logger.Error("rack selection failed", "rack", name, "err", err)
		m.diag.Warn("Bad rack configuration detected. Using manual rack.", err.Error())
		m.rack = NewManual()
		m.selected = ""
		return err
	}
	m.rack = r
	m.selected = name
	m.logger.Debug("rack selected", "rack", name, "slots", r.String())
	return nil
}

func (m *Manager) build(name string) (*Rack, []model.Warning, error) {
	tools, ok := m.registry.Racks[name]
	if !ok {
		return nil, nil, &ConfigError{Rack: name, Reason: "cannot find the rack named in the 'use' statement"}
	}
	if m.registry.Size == 0 {
		return nil, nil, &ConfigError{Rack: name, Reason: "the rack size must be set to a value other than 0"}
	}

	var diag model.Diagnostics
	r := New(m.registry.Size)
	for _, td := range tools {
		bit, err := td.bit()
		if err != nil {
			return nil, diag.Entries(), &ConfigError{Rack: name, Reason: err.Error()}
		}
		number := 0
		if td.Number != nil {
			number = *td.Number
		}

		if !m.settings.WithinAbsoluteRange(bit.Diameter) {
			return nil, diag.Entries(), &ConfigError{Rack: name, Reason: fmt.Sprintf("bit size %gmm is not supported", model.MM(bit.Diameter))}
		}
		if !m.settings.IsStandard(bit) {
			diag.Warn(fmt.Sprintf("T%d in the rack '%s' has a non standard diameter %s", number, name, bit))
		}

		slot, prev, err := r.AddBit(bit, number)
		switch {
		case errors.Is(err, ErrDuplicateBit):
			diag.Warn(fmt.Sprintf("Bit %smm in the rack '%s' is listed twice", bit, name), err.Error(), "This slot will not be used")
		case err != nil:
			return nil, diag.Entries(), &ConfigError{Rack: name, Reason: err.Error()}
		case prev != nil:
			diag.Warn(fmt.Sprintf("Slot T%02d in the rack '%s' was already occupied with %s", slot, name, prev), "Replaced with "+bit.String())
		}
	}
	return r, diag.Entries(), nil
}

func (td ToolDef) bit() (model.Bit, error) {
	switch {
	case td.Drill != nil && td.Router != nil:
		return model.Bit{}, errors.New("a tool cannot be both a drill and a router")
	case td.Drill != nil:
		return model.DrillBit(model.UM(*td.Drill)), nil
	case td.Router != nil:
		return model.RouterBit(model.UM(*td.Router)), nil
	default:
		return model.Bit{}, errors.New("a tool needs a drill or router diameter")
	}
}

// AddTool loads bit into the next free slot of the rack in use.
func (m *Manager) AddTool(bit model.Bit) (int, error) {
	slot, _, err := m.rack.AddBit(bit, 0)
	if errors.Is(err, ErrDuplicateBit) {
		m.diag.Warn(fmt.Sprintf("Bit %smm is already present in the rack", bit), err.Error())
	}
	return slot, err
}

// Save stores r under name in the rack file. A registry size of 0 is raised
// to the rack length so the saved rack can be selected again.
func (m *Manager) Save(name string, r *Rack) error {
	if m.invalid {
		return fmt.Errorf("%w: %s", ErrInvalidFile, m.path)
	}
	if name == "" {
		return errors.New("rack name is required")
	}

	tools := make([]ToolDef, 0, r.Loaded())
	for slot := 1; slot <= r.Len(); slot++ {
		bit, ok := r.Get(slot)
		if !ok {
			continue
		}
		n := slot
		mm := model.MM(bit.Diameter)
		td := ToolDef{Number: &n}
		if bit.Kind == model.Router {
			td.Router = &mm
		} else {
			td.Drill = &mm
		}
		tools = append(tools, td)
	}

	reg := m.registry
	if reg.Issue == 0 {
		reg.Issue = 1
	}
	racks := make(map[string][]ToolDef, len(reg.Racks)+1)
	for k, v := range reg.Racks {
		racks[k] = v
	}
	racks[name] = tools
	reg.Racks = racks

	if need := max(r.Size(), r.Len()); reg.Size < need {
		m.logger.Info("raising rack size to fit saved rack", "from", reg.Size, "to", need)
		reg.Size = need
	}

	if err := WriteRegistry(m.path, reg); err != nil {
		m.logger.Error("failed to save rack", "rack", name, "path", m.path, "err", err)
		return err
	}
	m.registry = reg
	m.logger.Info("rack saved", "rack", name, "path", m.path)
	return nil
}
