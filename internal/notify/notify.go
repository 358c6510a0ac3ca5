// Package notify carries user-facing toasts for recoverable conditions and
// forwards enabled events to the desktop notification service.
package notify

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/regionkit/internal/logging"
	"github.com/example/regionkit/internal/platform"
)

// Event identifies a notification trigger.
type Event string

const (
	// EventFloodUnavailable is raised when colour flood fill cannot read the
	// frame's pixels and painting falls back to manual blocks.
	EventFloodUnavailable Event = "flood_unavailable"
	// EventSave is raised when labels are persisted.
	EventSave Event = "save"
	// EventCopy is raised when data is copied to the clipboard.
	EventCopy Event = "copy"
	// EventError is raised when an interaction fails and the draft is kept.
	EventError Event = "error"
)

// Events lists every known event in display order.
var Events = []Event{EventFloodUnavailable, EventSave, EventCopy, EventError}

// MaxToasts bounds the in-memory toast queue.
const MaxToasts = 32

// Toaster accepts out-of-band messages. Push returns the toast id.
type Toaster interface {
	Push(event Event, detail string) string
}

// Toast is a queued message.
type Toast struct {
	ID      string
	Event   Event
	Message string
	At      time.Time
}

// EventPreference describes formatting for a notification event.
type EventPreference struct {
	Template string
}

// Preferences describes notification behaviour loaded from configuration.
type Preferences struct {
	Title  string
	Events map[Event]EventPreference
}

// DefaultPreferences returns the default notification settings.
func DefaultPreferences() Preferences {
	return Preferences{
		Title: "regionkit",
		Events: map[Event]EventPreference{
			EventFloodUnavailable: {Template: "Flood fill unavailable for %s, painting manually"},
			EventSave:             {Template: "Saved %s"},
			EventCopy:             {Template: "Copied %s to clipboard"},
			EventError:            {Template: "%s"},
		},
	}
}

// LoadPreferences applies REGIONKIT_NOTIFY_* environment overrides to the
// defaults.
func LoadPreferences() Preferences {
	prefs := DefaultPreferences()
	if v := strings.TrimSpace(os.Getenv("REGIONKIT_NOTIFY_TITLE")); v != "" {
		prefs.Title = v
	}
	for _, event := range Events {
		key := "REGIONKIT_NOTIFY_" + strings.ToUpper(string(event)) + "_TEXT"
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			prefs.Events[event] = EventPreference{Template: v}
		}
	}
	return prefs
}

// platformNotify is replaced in tests.
var platformNotify = platform.Notify

// Notifier queues toasts and sends desktop notifications for enabled events.
type Notifier struct {
	mu      sync.Mutex
	prefs   Preferences
	enabled map[Event]bool
	toasts  []Toast
	now     func() time.Time
}

// New creates a Notifier using the provided preferences.
func New(prefs Preferences) *Notifier {
	cloned := Preferences{Title: prefs.Title, Events: make(map[Event]EventPreference, len(prefs.Events))}
	for k, v := range prefs.Events {
		cloned.Events[k] = v
	}
	return &Notifier{prefs: cloned, enabled: make(map[Event]bool), now: time.Now}
}

// Enable toggles desktop delivery for event. Toasts are queued either way.
func (n *Notifier) Enable(event Event, enabled bool) {
	if n == nil {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.enabled[event] = enabled
}

// Push formats detail with the event template, queues the toast and returns
// its id.
func (n *Notifier) Push(event Event, detail string) string {
	if n == nil {
		return ""
	}
	msg := n.format(event, detail)
	toast := Toast{ID: uuid.NewString(), Event: event, Message: msg, At: n.now()}

	n.mu.Lock()
	n.toasts = append(n.toasts, toast)
	if over := len(n.toasts) - MaxToasts; over > 0 {
		n.toasts = append([]Toast(nil), n.toasts[over:]...)
	}
	enabled := n.enabled[event]
	title := n.prefs.Title
	n.mu.Unlock()

	logging.Info("%s: %s", event, msg)
	if enabled && msg != "" {
		if err := platformNotify(title, msg, platform.Options{}); err != nil {
			logging.Warn("notification %s: %v", event, err)
		}
	}
	return toast.ID
}

// Save pushes a save toast naming the written file.
func (n *Notifier) Save(path string) string {
	detail := strings.TrimSpace(path)
	if abs, err := filepath.Abs(path); err == nil {
		detail = abs
	}
	return n.Push(EventSave, detail)
}

// Copy pushes a clipboard toast.
func (n *Notifier) Copy(detail string) string {
	if strings.TrimSpace(detail) == "" {
		detail = "image"
	}
	return n.Push(EventCopy, detail)
}

// Toasts returns the queued toasts, oldest first.
func (n *Notifier) Toasts() []Toast {
	if n == nil {
		return nil
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Toast(nil), n.toasts...)
}

// Dismiss removes the toast with id and reports whether it existed.
func (n *Notifier) Dismiss(id string) bool {
	if n == nil {
		return false
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	for i, t := range n.toasts {
		if t.ID == id {
			n.toasts = append(n.toasts[:i:i], n.toasts[i+1:]...)
			return true
		}
	}
	return false
}

func (n *Notifier) format(event Event, detail string) string {
	n.mu.Lock()
	pref, ok := n.prefs.Events[event]
	n.mu.Unlock()
	detail = strings.TrimSpace(detail)
	template := strings.TrimSpace(pref.Template)
	if !ok || template == "" {
		return detail
	}
	if !strings.Contains(template, "%") {
		return template
	}
	return strings.TrimSpace(fmt.Sprintf(template, detail))
}
