// Package skill holds the immutable skill catalog and the per-entity effect
// lists (debuffs, damage-over-time entries, shields) the rules mutate.
package skill

import "strings"

// Role is a player's combat role.
type Role string

const (
	RoleTank    Role = "TANK"
	RoleDPS     Role = "DPS"
	RoleSupport Role = "SUPPORT"
)

// Roles lists every role in display order.
var Roles = []Role{RoleTank, RoleDPS, RoleSupport}

// ParseRole accepts a role name in any case.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	switch r {
	case RoleTank, RoleDPS, RoleSupport:
		return r, true
	}
	return "", false
}

// TargetMode describes what a skill expects as targets.
type TargetMode string

const (
	TargetNone        TargetMode = "NONE"
	TargetOneAlly     TargetMode = "ONE_ALLY"
	TargetTwoAllies   TargetMode = "TWO_ALLIES"
	TargetAllAllies   TargetMode = "ALL_ALLIES"
	TargetOneAllyStat TargetMode = "ONE_ALLY_STAT"
	TargetOneEnemy    TargetMode = "ONE_ENEMY"
	TargetAllEnemies  TargetMode = "ALL_ENEMIES"
)

// Key identifies one skill. The set is closed.
type Key string

const (
	// Tank
	Guard          Key = "GUARD"
	Protect        Key = "PROTECT"
	Endure         Key = "ENDURE"
	FightingSpirit Key = "FIGHTING_SPIRIT"
	Unyielding     Key = "UNYIELDING"
	Devotion       Key = "DEVOTION"

	// DPS
	Madness    Key = "MADNESS"
	Obsession  Key = "OBSESSION"
	Bloodfight Key = "BLOODFIGHT"
	Massacre   Key = "MASSACRE"
	Mercy      Key = "MERCY"
	Charge     Key = "CHARGE"

	// Support
	Revive        Key = "REVIVE"
	Bless         Key = "BLESS"
	Encourage     Key = "ENCOURAGE"
	Penance       Key = "PENANCE"
	Purify        Key = "PURIFY"
	Reincarnation Key = "REINCARNATION"
	Rest          Key = "REST"
)

// Skill is immutable skill data.
type Skill struct {
	Key         Key        `json:"key"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Role        Role       `json:"role"`
	Ultimate    bool       `json:"ultimate"`
	Target      TargetMode `json:"target"`
}

var catalog = []Skill{
	{Guard, "Guard", "Shield two allies for floor(DEF x 1d6 x 0.8) until the round ends.", RoleTank, false, TargetTwoAllies},
	{Protect, "Protect", "Take every hit aimed at one ally this round; a flat floor(DEF x 1.3 x 1d6) soaks first.", RoleTank, false, TargetOneAlly},
	{Endure, "Endure", "Store damage taken for 3 rounds, then reflect half to a random monster. Draws aggro.", RoleTank, false, TargetNone},
	{FightingSpirit, "Fighting Spirit", "DEF -3 for 2 rounds and deal a fixed 50 damage ignoring defense.", RoleTank, false, TargetOneEnemy},
	{Unyielding, "Unyielding", "Take all ally damage this round; HP cannot fall below 1.", RoleTank, true, TargetNone},
	{Devotion, "Devotion", "Deal DEF x 1d6 x 2 to every monster, then fall.", RoleTank, true, TargetAllEnemies},

	{Madness, "Madness", "ATK +3 next round. Stacks.", RoleDPS, false, TargetNone},
	{Obsession, "Obsession", "Bleed one monster for floor(ATK x 1d6 x 0.8) over 3 rounds.", RoleDPS, false, TargetOneEnemy},
	{Bloodfight, "Bloodfight", "Pay 30% of current HP, then attack for double damage.", RoleDPS, false, TargetOneEnemy},
	{Massacre, "Massacre", "Deal floor(ATK x 1d6 x 1.5) to every monster.", RoleDPS, false, TargetAllEnemies},
	{Mercy, "Mercy", "Roll the attack die twice and multiply by 2.5.", RoleDPS, true, TargetOneEnemy},
	{Charge, "Charge", "Roll the attack die twice, multiply by 2 and ignore defense.", RoleDPS, true, TargetOneEnemy},

	{Revive, "Revive", "Heal one ally for floor(AGI x 1d6 x 1.5).", RoleSupport, false, TargetOneAlly},
	{Bless, "Bless", "Heal two allies for AGI x 1d6.", RoleSupport, false, TargetTwoAllies},
	{Encourage, "Encourage", "Give one ally +3 to a chosen stat next round.", RoleSupport, false, TargetOneAllyStat},
	{Penance, "Penance", "Reduce one monster's attacks this round by floor(AGI x 1d6 x 0.5). Does not stack.", RoleSupport, false, TargetOneEnemy},
	{Purify, "Purify", "Remove damage-over-time and harmful effects from two allies.", RoleSupport, false, TargetTwoAllies},
	{Reincarnation, "Reincarnation", "Let another ally use their ultimate again.", RoleSupport, true, TargetOneAlly},
	{Rest, "Rest", "Raise every ally to full HP and lift the active repeat lock.", RoleSupport, true, TargetAllAllies},
}

var byKey = func() map[Key]Skill {
	m := make(map[Key]Skill, len(catalog))
	for _, s := range catalog {
		m[s.Key] = s
	}
	return m
}()

// Lookup returns the skill for key.
func Lookup(key Key) (Skill, bool) {
	s, ok := byKey[Key(strings.ToUpper(string(key)))]
	return s, ok
}

// All returns a copy of the catalog.
func All() []Skill {
	out := make([]Skill, len(catalog))
	copy(out, catalog)
	return out
}

// Actives returns the active skills of role.
func Actives(role Role) []Skill { return filter(role, false) }

// Ultimates returns the ultimate skills of role.
func Ultimates(role Role) []Skill { return filter(role, true) }

func filter(role Role, ult bool) []Skill {
	var out []Skill
	for _, s := range catalog {
		if s.Role == role && s.Ultimate == ult {
			out = append(out, s)
		}
	}
	return out
}

// IsActiveOf reports whether key is an active skill of role.
func IsActiveOf(role Role, key Key) bool {
	s, ok := Lookup(key)
	return ok && s.Role == role && !s.Ultimate
}

// IsUltimateOf reports whether key is an ultimate skill of role.
func IsUltimateOf(role Role, key Key) bool {
	s, ok := Lookup(key)
	return ok && s.Role == role && s.Ultimate
}
