package bridge

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

// DefaultName is the bridge every blank or missing name collapses to.
const DefaultName = "default"

// maxNameLen caps bridge names, in runes.
const maxNameLen = 64

// NormalizeName trims a bridge name, collapses blank input to DefaultName and
// caps the result at 64 runes. The function is idempotent: normalizing an
// already-normalized name returns it unchanged.
func NormalizeName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return DefaultName
	}
	if runes := []rune(name); len(runes) > maxNameLen {
		name = strings.TrimSpace(string(runes[:maxNameLen]))
	}
	return name
}

// Membership is one bridge's channel sets, as persisted.
type Membership struct {
	DiscordChannels []int64 `json:"discord_channels"`
	TelegramChats   []int64 `json:"telegram_chats"`
}

type document struct {
	Bridges map[string]*Membership `json:"bridges"`
}

// Registry maps bridge names to their Discord channel and Telegram chat
// members. Mutations are serialized and persisted to the backing JSON file
// before they return; reads run against the in-memory state.
type Registry struct {
	path string
	log  zerolog.Logger

	mu   sync.RWMutex
	data document
}

func NewRegistry(path string, log zerolog.Logger) *Registry {
	return &Registry{
		path: path,
		log:  log.With().Str("component", "registry").Logger(),
		data: document{Bridges: map[string]*Membership{}},
	}
}

// Load reads the persisted document. A missing or malformed file leaves the
// registry empty rather than failing startup.
func (r *Registry) Load() error {
	raw, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil || doc.Bridges == nil {
		r.log.Warn().Err(err).Str("path", r.path).
			Msg("Bridge registry file is malformed, starting empty")
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for name, m := range doc.Bridges {
		if m == nil {
			delete(doc.Bridges, name)
			continue
		}
		m.DiscordChannels = sortedUnique(m.DiscordChannels)
		m.TelegramChats = sortedUnique(m.TelegramChats)
	}
	r.data = doc
	return nil
}

// save rewrites the whole document. Callers hold r.mu.
func (r *Registry) save() error {
	raw, err := json.MarshalIndent(r.data, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(r.path, append(raw, '\n'), 0o600)
}

// BridgesForDiscordChannel lists the bridges a Discord channel belongs to.
func (r *Registry) BridgesForDiscordChannel(channelID int64) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.bridgesWhere(func(m *Membership) bool {
		return lo.Contains(m.DiscordChannels, channelID)
	})
}

// BridgesForTelegramChat lists the bridges a Telegram chat belongs to.
func (r *Registry) BridgesForTelegramChat(chatID int64) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.bridgesWhere(func(m *Membership) bool {
		return lo.Contains(m.TelegramChats, chatID)
	})
}

func (r *Registry) bridgesWhere(match func(*Membership) bool) []string {
	var out []string
	for name, m := range r.data.Bridges {
		if match(m) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// DiscordChannels returns a copy of the bridge's Discord member set.
func (r *Registry) DiscordChannels(name string) []int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if m, ok := r.data.Bridges[NormalizeName(name)]; ok {
		return append([]int64(nil), m.DiscordChannels...)
	}
	return nil
}

// TelegramChats returns a copy of the bridge's Telegram member set.
func (r *Registry) TelegramChats(name string) []int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if m, ok := r.data.Bridges[NormalizeName(name)]; ok {
		return append([]int64(nil), m.TelegramChats...)
	}
	return nil
}

// List returns a snapshot of every bridge's membership.
func (r *Registry) List() map[string]Membership {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]Membership, len(r.data.Bridges))
	for name, m := range r.data.Bridges {
		out[name] = Membership{
			DiscordChannels: append([]int64(nil), m.DiscordChannels...),
			TelegramChats:   append([]int64(nil), m.TelegramChats...),
		}
	}
	return out
}

// AddDiscordChannel adds a channel to a bridge, creating the bridge if needed.
// Returns false when the channel was already a member.
func (r *Registry) AddDiscordChannel(name string, channelID int64) (bool, error) {
	return r.add(name, channelID, func(m *Membership) *[]int64 { return &m.DiscordChannels })
}

// AddTelegramChat adds a chat to a bridge, creating the bridge if needed.
// Returns false when the chat was already a member.
func (r *Registry) AddTelegramChat(name string, chatID int64) (bool, error) {
	return r.add(name, chatID, func(m *Membership) *[]int64 { return &m.TelegramChats })
}

// RemoveDiscordChannel removes a channel from a bridge. Returns false when the
// channel was not a member. A bridge left with no members at all is pruned.
func (r *Registry) RemoveDiscordChannel(name string, channelID int64) (bool, error) {
	return r.remove(name, channelID, func(m *Membership) *[]int64 { return &m.DiscordChannels })
}

// RemoveTelegramChat removes a chat from a bridge. Returns false when the chat
// was not a member. A bridge left with no members at all is pruned.
func (r *Registry) RemoveTelegramChat(name string, chatID int64) (bool, error) {
	return r.remove(name, chatID, func(m *Membership) *[]int64 { return &m.TelegramChats })
}

// add mutates in memory, persists, and rolls the mutation back when the
// persist fails, so acknowledged state and durable state never diverge.
func (r *Registry) add(name string, id int64, side func(*Membership) *[]int64) (bool, error) {
	name = NormalizeName(name)
	r.mu.Lock()
	defer r.mu.Unlock()

	m, existed := r.data.Bridges[name]
	if !existed {
		m = &Membership{}
		r.data.Bridges[name] = m
	}
	members := side(m)
	if lo.Contains(*members, id) {
		return false, nil
	}
	prev := *members
	*members = sortedUnique(append(*members, id))
	if err := r.save(); err != nil {
		*members = prev
		if !existed {
			delete(r.data.Bridges, name)
		}
		return false, err
	}
	return true, nil
}

func (r *Registry) remove(name string, id int64, side func(*Membership) *[]int64) (bool, error) {
	name = NormalizeName(name)
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.data.Bridges[name]
	if !ok {
		return false, nil
	}
	members := side(m)
	if !lo.Contains(*members, id) {
		return false, nil
	}
	prev := *members
	*members = lo.Filter(*members, func(v int64, _ int) bool { return v != id })
	pruned := len(m.DiscordChannels) == 0 && len(m.TelegramChats) == 0
	if pruned {
		delete(r.data.Bridges, name)
	}
	if err := r.save(); err != nil {
		*members = prev
		if pruned {
			r.data.Bridges[name] = m
		}
		return false, err
	}
	return true, nil
}

func sortedUnique(ids []int64) []int64 {
	out := lo.Uniq(ids)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
