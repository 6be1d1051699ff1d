// Package encounter keeps the live encounters of one server and fans their
// results out to the cache, the pub/sub bus and the round archive.
package encounter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gorm.io/datatypes"

	"github.com/kasuganosora/raidtable/cache"
	"github.com/kasuganosora/raidtable/game/battle"
	"github.com/kasuganosora/raidtable/model"
	"github.com/kasuganosora/raidtable/resource"
)

var (
	ErrEncounterNotFound = errors.New("encounter: not found")
	ErrTooManyEncounters = errors.New("encounter: too many active encounters")
	ErrNoLastRound       = errors.New("encounter: no resolved round stored")
)

const publishTimeout = 2 * time.Second

// Config wires a Manager. Cache, PubSub and Reports are optional.
type Config struct {
	Rules        battle.Rules
	TurnOrder    string
	MaxActive    int           // 0 = unlimited
	LastRoundTTL time.Duration // 0 = no expiry
	HistoryLen   int           // 0 = 20
	Seed         int64         // 0 = time seed per encounter

	Presets *resource.PresetTable
	Cache   cache.Cache
	PubSub  cache.PubSub
	Reports ReportStore
	Logger  *zap.Logger
	Now     func() time.Time
}

// CreateOptions configures one new encounter.
type CreateOptions struct {
	Preset string // optional preset name
	Seed   int64  // overrides Config.Seed when non-zero
}

// Summary is the registry's view of one encounter.
type Summary struct {
	ID          string       `json:"id"`
	Round       int          `json:"round"`
	Phase       battle.Phase `json:"phase"`
	Players     int          `json:"players"`
	Monsters    int          `json:"monsters"`
	Preset      string       `json:"preset,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	LastTouched time.Time    `json:"last_touched"`
}

type entry struct {
	mu      sync.Mutex
	enc     *battle.Encounter
	preset  string
	created time.Time
	touched time.Time
	pending []battle.LogEntry
}

// Manager is the registry of live encounters. Commands on one encounter are
// serialised; different encounters proceed in parallel.
type Manager struct {
	mu      sync.RWMutex
	entries map[string]*entry
	cfg     Config
	logger  *zap.Logger
	loads   singleflight.Group
}

// NewManager creates an empty Manager.
func NewManager(cfg Config) *Manager {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.HistoryLen <= 0 {
		cfg.HistoryLen = 20
	}
	return &Manager{
		entries: make(map[string]*entry),
		cfg:     cfg,
		logger:  cfg.Logger,
	}
}

// Create registers a new encounter, seeding it from a preset when one is
// named.
func (m *Manager) Create(ctx context.Context, opts CreateOptions) (Summary, error) {
	var preset *resource.Preset
	if opts.Preset != "" {
		p, err := m.cfg.Presets.Get(opts.Preset)
		if err != nil {
			return Summary{}, err
		}
		preset = p
	}
	seed := opts.Seed
	if seed == 0 {
		seed = m.cfg.Seed
	}

	id := uuid.NewString()
	now := m.cfg.Now()
	en := &entry{created: now, touched: now}
	en.enc = battle.New(battle.Config{
		ID:      id,
		Rules:   m.cfg.Rules,
		Seed:    seed,
		Logger:  m.logger,
		TurnMgr: battle.TurnManagerByName(m.cfg.TurnOrder),
		Sink:    func(l battle.LogEntry) { en.pending = append(en.pending, l) },
		Now:     m.cfg.Now,
	})

	en.mu.Lock()
	defer en.mu.Unlock()
	if preset != nil {
		en.preset = preset.Name
		for _, spec := range preset.PlayerSpecs() {
			en.enc.AddPlayer(spec)
		}
		for _, spec := range preset.MonsterSpecs() {
			en.enc.AddMonster(spec)
		}
	}

	m.mu.Lock()
	if m.cfg.MaxActive > 0 && len(m.entries) >= m.cfg.MaxActive {
		m.mu.Unlock()
		return Summary{}, ErrTooManyEncounters
	}
	m.entries[id] = en
	count := len(m.entries)
	m.mu.Unlock()

	m.flush(ctx, id, en)
	m.logger.Info("encounter created",
		zap.String("encounter", id),
		zap.String("preset", en.preset),
		zap.Int("active", count))
	return en.summary(), nil
}

func (en *entry) summary() Summary {
	v := en.enc.View()
	return Summary{
		ID:          en.enc.ID(),
		Round:       v.Round,
		Phase:       v.Phase,
		Players:     len(v.Players),
		Monsters:    len(v.Monsters),
		Preset:      en.preset,
		CreatedAt:   en.created,
		LastTouched: en.touched,
	}
}

func (m *Manager) lookup(id string) (*entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	en, ok := m.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrEncounterNotFound, id)
	}
	return en, nil
}

// Get returns the summary of one encounter.
func (m *Manager) Get(id string) (Summary, error) {
	en, err := m.lookup(id)
	if err != nil {
		return Summary{}, err
	}
	en.mu.Lock()
	defer en.mu.Unlock()
	return en.summary(), nil
}

// Do runs fn with exclusive access to the encounter. New log lines are
// published once fn returns; a resolved round is cached and archived.
func (m *Manager) Do(ctx context.Context, id string, fn func(*battle.Encounter) error) error {
	en, err := m.lookup(id)
	if err != nil {
		return err
	}
	en.mu.Lock()
	defer en.mu.Unlock()

	resolvesBefore := en.enc.Resolves()
	seqBefore := en.enc.LastSeq()
	err = fn(en.enc)
	en.touched = m.cfg.Now()

	// only the newest resolve of fn is stored
	if en.enc.Resolves() > resolvesBefore {
		m.afterResolve(ctx, en.enc, en.enc.LastResult(), en.enc.Log(seqBefore))
	}
	m.flush(ctx, id, en)
	return err
}

// View returns a copy of the encounter state.
func (m *Manager) View(ctx context.Context, id string) (battle.View, error) {
	var v battle.View
	err := m.Do(ctx, id, func(e *battle.Encounter) error {
		v = e.View()
		return nil
	})
	return v, err
}

// Remove drops an encounter from the registry. Cached results stay until
// their TTL runs out.
func (m *Manager) Remove(id string) bool {
	m.mu.Lock()
	_, ok := m.entries[id]
	delete(m.entries, id)
	m.mu.Unlock()
	if ok {
		m.logger.Info("encounter removed", zap.String("encounter", id))
	}
	return ok
}

// List returns every encounter, oldest first.
func (m *Manager) List() []Summary {
	m.mu.RLock()
	entries := make([]*entry, 0, len(m.entries))
	for _, en := range m.entries {
		entries = append(entries, en)
	}
	m.mu.RUnlock()

	out := make([]Summary, 0, len(entries))
	for _, en := range entries {
		en.mu.Lock()
		out = append(out, en.summary())
		en.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Count returns the number of live encounters.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// EvictIdle removes encounters untouched for longer than idle and returns
// how many went.
func (m *Manager) EvictIdle(idle time.Duration) int {
	cutoff := m.cfg.Now().Add(-idle)

	m.mu.RLock()
	entries := make(map[string]*entry, len(m.entries))
	for id, en := range m.entries {
		entries[id] = en
	}
	m.mu.RUnlock()

	var stale []string
	for id, en := range entries {
		en.mu.Lock()
		if en.touched.Before(cutoff) {
			stale = append(stale, id)
		}
		en.mu.Unlock()
	}

	n := 0
	for _, id := range stale {
		if m.Remove(id) {
			n++
		}
	}
	if n > 0 {
		m.logger.Info("idle encounters evicted", zap.Int("count", n), zap.Duration("idle", idle))
	}
	return n
}

// LastRound returns the stored state JSON of the most recently resolved
// round. Concurrent misses for the same encounter share one cache read.
func (m *Manager) LastRound(ctx context.Context, id string) (json.RawMessage, error) {
	if m.cfg.Cache == nil {
		return nil, ErrNoLastRound
	}
	v, err, _ := m.loads.Do(id, func() (interface{}, error) {
		raw, err := m.cfg.Cache.Get(ctx, lastRoundKey(id))
		if err != nil {
			if cache.IsNotFound(err) {
				return nil, ErrNoLastRound
			}
			return nil, err
		}
		return json.RawMessage(raw), nil
	})
	if err != nil {
		return nil, err
	}
	return v.(json.RawMessage), nil
}

// History returns the stored one-line round summaries, newest first.
func (m *Manager) History(ctx context.Context, id string) ([]string, error) {
	if m.cfg.Cache == nil {
		return nil, nil
	}
	lines, err := m.cfg.Cache.LRange(ctx, historyKey(id), 0, -1)
	if cache.IsNotFound(err) {
		return nil, nil
	}
	return lines, err
}

func (m *Manager) afterResolve(ctx context.Context, enc *battle.Encounter, res battle.RoundResult, lines []battle.LogEntry) {
	id := enc.ID()
	state, err := json.Marshal(enc.View())
	if err != nil {
		m.logger.Error("encode round state", zap.String("encounter", id), zap.Error(err))
		return
	}
	logJSON, err := json.Marshal(lines)
	if err != nil {
		m.logger.Error("encode round log", zap.String("encounter", id), zap.Error(err))
		return
	}

	if c := m.cfg.Cache; c != nil {
		if err := c.Set(ctx, lastRoundKey(id), string(state), m.cfg.LastRoundTTL); err != nil {
			m.logger.Warn("store last round", zap.String("encounter", id), zap.Error(err))
		}
		line := fmt.Sprintf("Round %d: %d damage to monsters, %d players active, %d monsters alive",
			res.Round, res.DamageToMonsters, res.ActivePlayers, res.LivingMonsters)
		if err := c.LPush(ctx, historyKey(id), line); err != nil {
			m.logger.Warn("push round history", zap.String("encounter", id), zap.Error(err))
		} else if err := c.LTrim(ctx, historyKey(id), 0, int64(m.cfg.HistoryLen-1)); err != nil {
			m.logger.Warn("trim round history", zap.String("encounter", id), zap.Error(err))
		} else if m.cfg.LastRoundTTL > 0 {
			// history lives as long as the last stored round
			if err := c.Expire(ctx, historyKey(id), m.cfg.LastRoundTTL); err != nil {
				m.logger.Warn("expire round history", zap.String("encounter", id), zap.Error(err))
			}
		}
	}

	if m.cfg.Reports != nil {
		report := &model.RoundReport{
			EncounterID:      id,
			Round:            res.Round,
			ActivePlayers:    res.ActivePlayers,
			LivingMonsters:   res.LivingMonsters,
			DamageToMonsters: res.DamageToMonsters,
			State:            datatypes.JSON(state),
			Log:              datatypes.JSON(logJSON),
		}
		if err := m.cfg.Reports.Create(ctx, report); err != nil {
			m.logger.Warn("archive round report", zap.String("encounter", id), zap.Int("round", res.Round), zap.Error(err))
		}
	}

	m.logger.Info("round resolved",
		zap.String("encounter", id),
		zap.Int("round", res.Round),
		zap.Int("damage", res.DamageToMonsters),
		zap.Int("active_players", res.ActivePlayers),
		zap.Int("living_monsters", res.LivingMonsters))
}

// flush publishes the log lines collected since the last flush. The caller
// holds en.mu, so lines of one encounter go out in order.
func (m *Manager) flush(ctx context.Context, id string, en *entry) {
	lines := en.pending
	en.pending = nil
	if m.cfg.PubSub == nil || len(lines) == 0 {
		return
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	ch := LogChannel(id)
	for _, l := range lines {
		data, err := json.Marshal(l)
		if err != nil {
			continue
		}
		if err := m.cfg.PubSub.Publish(pctx, ch, string(data)); err != nil {
			m.logger.Warn("publish log line", zap.String("encounter", id), zap.Error(err))
			return
		}
	}
}
