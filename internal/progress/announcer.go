package progress

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Priority mirrors ARIA live-region politeness levels.
type Priority string

const (
	PriorityPolite    Priority = "polite"
	PriorityAssertive Priority = "assertive"
)

// Announcement is a short-lived message for assistive-technology rendering.
type Announcement struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	Priority  Priority  `json:"priority"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	DefaultAnnouncementLimit = 5
	DefaultAnnouncementTTL   = 10 * time.Second
)

// Announcer keeps a bounded newest-first list of announcements. Each entry
// schedules its own removal after the TTL; there is no sweep pass.
type Announcer struct {
	mu    sync.Mutex
	max   int
	ttl   time.Duration
	items []Announcement
}

// NewAnnouncer constructs an Announcer retaining at most max entries, each
// expiring after ttl.
func NewAnnouncer(max int, ttl time.Duration) *Announcer {
	if max <= 0 {
		max = DefaultAnnouncementLimit
	}
	if ttl <= 0 {
		ttl = DefaultAnnouncementTTL
	}
	return &Announcer{max: max, ttl: ttl}
}

// Announce records a message and schedules its expiry.
func (a *Announcer) Announce(message string, priority Priority) Announcement {
	if priority != PriorityAssertive {
		priority = PriorityPolite
	}
	ann := Announcement{
		ID:        uuid.NewString(),
		Message:   message,
		Priority:  priority,
		Timestamp: time.Now().UTC(),
	}

	a.mu.Lock()
	a.items = append([]Announcement{ann}, a.items...)
	if len(a.items) > a.max {
		a.items = a.items[:a.max]
	}
	a.mu.Unlock()

	time.AfterFunc(a.ttl, func() { a.remove(ann.ID) })
	return ann
}

// Announcements returns the current entries, newest first.
func (a *Announcer) Announcements() []Announcement {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Announcement, len(a.items))
	copy(out, a.items)
	return out
}

func (a *Announcer) remove(id string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i := range a.items {
		if a.items[i].ID == id {
			a.items = append(a.items[:i], a.items[i+1:]...)
			return
		}
	}
}
