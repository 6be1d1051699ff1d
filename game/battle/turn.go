package battle

import (
	"sort"

	"github.com/kasuganosora/raidtable/game/skill"
)

// TurnManager orders the player actions of a round.
type TurnManager interface {
	// Order returns the players in the order their actions resolve. The
	// input slice is not modified.
	Order(players []*Player) []*Player
}

// RosterOrder resolves players in the order they joined.
type RosterOrder struct{}

func (RosterOrder) Order(players []*Player) []*Player {
	return append([]*Player(nil), players...)
}

// AgilityOrder resolves the highest effective agility first; ties keep
// roster order.
type AgilityOrder struct{}

func (AgilityOrder) Order(players []*Player) []*Player {
	out := append([]*Player(nil), players...)
	sort.SliceStable(out, func(i, j int) bool {
		return EffectiveStat(out[i], skill.StatAgi) > EffectiveStat(out[j], skill.StatAgi)
	})
	return out
}

// TurnManagerByName maps a config value to a TurnManager.
func TurnManagerByName(name string) TurnManager {
	if name == "agility" {
		return AgilityOrder{}
	}
	return RosterOrder{}
}
