package chathub

import "time"

// TypingKey identifies one ephemeral typing-state entry.
type TypingKey struct {
	RoomID string
	UserID string
}

type typingEntry struct {
	cancel CancelFunc
	gen    uint64
}

// TypingCoordinator owns the per-(room, user) debounced typing state.
// Each "typing started" signal arms (or re-arms) an expiry timer; the
// timer callback runs on a scheduler goroutine and must not touch the
// maps directly, so it only reports the expiry through onExpire and the
// hub loop calls Expire to apply it. Generations make a late-firing
// timer for a superseded signal harmless.
type TypingCoordinator struct {
	scheduler Scheduler
	timeout   time.Duration
	entries   map[TypingKey]*typingEntry
	gen       uint64

	// onExpire is invoked from a timer goroutine when an armed entry
	// times out. The hub routes it back into its own loop.
	onExpire func(key TypingKey, gen uint64)
}

// NewTypingCoordinator builds a coordinator with the given expiry window.
func NewTypingCoordinator(s Scheduler, timeout time.Duration, onExpire func(TypingKey, uint64)) *TypingCoordinator {
	return &TypingCoordinator{
		scheduler: s,
		timeout:   timeout,
		entries:   make(map[TypingKey]*typingEntry),
		onExpire:  onExpire,
	}
}

// Start transitions the entry to Typing and arms the expiry timer. A
// repeated Start before expiry resets the timer instead of stacking a
// second one.
func (t *TypingCoordinator) Start(key TypingKey) {
	if entry, ok := t.entries[key]; ok {
		entry.cancel()
	}
	t.gen++
	gen := t.gen
	t.entries[key] = &typingEntry{
		gen: gen,
		cancel: t.scheduler.AfterFunc(t.timeout, func() {
			t.onExpire(key, gen)
		}),
	}
}

// Stop cancels the pending expiry and clears the entry. Reports whether
// an entry existed.
func (t *TypingCoordinator) Stop(key TypingKey) bool {
	entry, ok := t.entries[key]
	if !ok {
		return false
	}
	entry.cancel()
	delete(t.entries, key)
	return true
}

// Expire applies a timer callback delivered to the hub loop. It clears
// the entry only when the generation still matches; a stale expiry for a
// signal that has since been re-armed or stopped reports false.
func (t *TypingCoordinator) Expire(key TypingKey, gen uint64) bool {
	entry, ok := t.entries[key]
	if !ok || entry.gen != gen {
		return false
	}
	delete(t.entries, key)
	return true
}

// Active reports whether the entry is currently in the Typing state.
func (t *TypingCoordinator) Active(key TypingKey) bool {
	_, ok := t.entries[key]
	return ok
}

// ClearUser cancels every entry of the user across all rooms and returns
// the affected room ids so the hub can broadcast the cleared state. Used
// on disconnect; must not leak timers.
func (t *TypingCoordinator) ClearUser(userID string) []string {
	var rooms []string
	for key, entry := range t.entries {
		if key.UserID != userID {
			continue
		}
		entry.cancel()
		delete(t.entries, key)
		rooms = append(rooms, key.RoomID)
	}
	return rooms
}
