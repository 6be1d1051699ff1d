package resource

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kasuganosora/raidtable/game/battle"
	"github.com/kasuganosora/raidtable/game/skill"
)

// ErrPresetNotFound is returned for an unknown preset name.
var ErrPresetNotFound = errors.New("resource: preset not found")

// PlayerPreset is a ready-made player.
type PlayerPreset struct {
	Name     string       `yaml:"name" json:"name"`
	Role     string       `yaml:"role" json:"role"`
	Stats    battle.Stats `yaml:"stats" json:"stats"`
	Actives  []string     `yaml:"actives" json:"actives"`
	Ultimate string       `yaml:"ultimate" json:"ultimate"`
}

// MonsterPreset is a ready-made monster.
type MonsterPreset struct {
	Name    string          `yaml:"name" json:"name"`
	HP      int             `yaml:"hp" json:"hp"`
	Stats   battle.Stats    `yaml:"stats" json:"stats"`
	Pattern *battle.Pattern `yaml:"pattern,omitempty" json:"pattern,omitempty"`
}

// Preset is a named party and monster line-up seeded into a new encounter.
type Preset struct {
	Name        string          `yaml:"name" json:"name"`
	Description string          `yaml:"description" json:"description"`
	Players     []PlayerPreset  `yaml:"players" json:"players"`
	Monsters    []MonsterPreset `yaml:"monsters" json:"monsters"`
}

// PlayerSpecs converts the players to engine specs.
func (p *Preset) PlayerSpecs() []battle.PlayerSpec {
	out := make([]battle.PlayerSpec, 0, len(p.Players))
	for _, pp := range p.Players {
		actives := make([]skill.Key, len(pp.Actives))
		for i, a := range pp.Actives {
			actives[i] = skill.Key(a)
		}
		out = append(out, battle.PlayerSpec{
			Name:     pp.Name,
			Role:     skill.Role(pp.Role),
			Stats:    pp.Stats,
			Actives:  actives,
			Ultimate: skill.Key(pp.Ultimate),
		})
	}
	return out
}

// MonsterSpecs converts the monsters to engine specs.
func (p *Preset) MonsterSpecs() []battle.MonsterSpec {
	out := make([]battle.MonsterSpec, 0, len(p.Monsters))
	for _, m := range p.Monsters {
		spec := battle.MonsterSpec{Name: m.Name, HPBase: m.HP, Stats: m.Stats}
		if m.Pattern != nil {
			pat := *m.Pattern
			spec.Pattern = &pat
		}
		out = append(out, spec)
	}
	return out
}

// PresetTable is the lookup table of presets, keyed by lower-case name.
type PresetTable struct {
	presets map[string]*Preset
	order   []string
}

// Get returns the preset called name (case-insensitive).
func (t *PresetTable) Get(name string) (*Preset, error) {
	if t == nil {
		return nil, ErrPresetNotFound
	}
	p, ok := t.presets[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrPresetNotFound, name)
	}
	return p, nil
}

// All returns the presets sorted by name.
func (t *PresetTable) All() []*Preset {
	if t == nil {
		return nil
	}
	out := make([]*Preset, 0, len(t.order))
	for _, k := range t.order {
		out = append(out, t.presets[k])
	}
	return out
}

// Count returns the number of loaded presets.
func (t *PresetTable) Count() int {
	if t == nil {
		return 0
	}
	return len(t.presets)
}

// ---- YAML loading ----

type presetFile struct {
	Presets []Preset `yaml:"presets"`
}

// LoadPresetTable reads presets from a YAML file.
func LoadPresetTable(path string) (*PresetTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read presets: %w", err)
	}
	return ParsePresets(raw)
}

// ParsePresets decodes and checks a presets document.
func ParsePresets(raw []byte) (*PresetTable, error) {
	var f presetFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse presets yaml: %w", err)
	}
	t := &PresetTable{presets: make(map[string]*Preset, len(f.Presets))}
	for i := range f.Presets {
		p := &f.Presets[i]
		key := strings.ToLower(strings.TrimSpace(p.Name))
		if key == "" {
			return nil, fmt.Errorf("preset #%d: missing name", i+1)
		}
		if _, dup := t.presets[key]; dup {
			return nil, fmt.Errorf("preset %q: defined twice", p.Name)
		}
		if err := checkPreset(p); err != nil {
			return nil, fmt.Errorf("preset %q: %w", p.Name, err)
		}
		t.presets[key] = p
		t.order = append(t.order, key)
	}
	sort.Strings(t.order)
	return t, nil
}

// checkPreset catches typos in role and skill names at load time. Limits
// and the stat budget are left to the engine, which clamps and warns.
func checkPreset(p *Preset) error {
	for _, pp := range p.Players {
		role, ok := skill.ParseRole(pp.Role)
		if !ok {
			return fmt.Errorf("player %q: unknown role %q", pp.Name, pp.Role)
		}
		if len(pp.Actives) != 2 {
			return fmt.Errorf("player %q: needs 2 actives, has %d", pp.Name, len(pp.Actives))
		}
		for _, a := range pp.Actives {
			if !skill.IsActiveOf(role, skill.Key(a)) {
				return fmt.Errorf("player %q: %q is not a %s active", pp.Name, a, role)
			}
		}
		if !skill.IsUltimateOf(role, skill.Key(pp.Ultimate)) {
			return fmt.Errorf("player %q: %q is not a %s ultimate", pp.Name, pp.Ultimate, role)
		}
	}
	for _, m := range p.Monsters {
		if m.HP <= 0 {
			return fmt.Errorf("monster %q: hp must be positive", m.Name)
		}
	}
	return nil
}
