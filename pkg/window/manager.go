package window

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"confusion-engine-be/internal/constant"
	"confusion-engine-be/internal/entity"
	"confusion-engine-be/internal/pkg/logger"
)

const DefaultHorizon = 30 * time.Second

// Terminal is what a window leaves behind when the learner exits the segment.
type Terminal struct {
	Key         entity.WindowKey
	ContentType entity.ContentType
	DwellSpan   time.Duration
	RewindCount int
	ClosedAt    time.Time
}

type segmentWindow struct {
	mu          sync.Mutex
	contentType entity.ContentType
	enteredAt   int64
	rewinds     int // all rewinds since entry, not only those still in the window
	events      []entity.BehavioralEvent
	latest      atomic.Int64 // newest event timestamp seen, read by acquire under the index lock
	touchedAt   time.Time
	closed      bool
}

// Manager owns every segment window. Each window has its own lock, so writers
// on different (learner, segment) keys never contend on anything but the index.
type Manager struct {
	mu      sync.RWMutex
	windows map[entity.WindowKey]*segmentWindow
	active  map[string]string // learner -> segment currently open

	horizon time.Duration
	clock   func() time.Time
	logger  logger.ILogger
}

func NewManager(horizon time.Duration, log logger.ILogger) *Manager {
	if horizon <= 0 {
		horizon = DefaultHorizon
	}
	return &Manager{
		windows: make(map[entity.WindowKey]*segmentWindow),
		active:  make(map[string]string),
		horizon: horizon,
		clock:   time.Now,
		logger:  log,
	}
}

func (m *Manager) Horizon() time.Duration {
	return m.horizon
}

// Record appends the event to its window and evicts everything older than the
// horizon. When the learner was active on another segment that window is closed
// and its terminal metrics are returned. An event older than the newest event of
// the active segment is late: it is recorded but closes nothing.
func (m *Manager) Record(event entity.BehavioralEvent) (View, *Terminal) {
	key := event.Key()
	w, previous := m.acquire(key, event.ContentType, event.Timestamp)

	var left *Terminal
	if previous != "" {
		left = m.Close(entity.WindowKey{LearnerId: key.LearnerId, SegmentId: previous})
	}

	w.mu.Lock()
	for w.closed {
		// Lost a race with Close or Sweep; start over on a fresh window.
		w.mu.Unlock()
		w, _ = m.acquire(key, event.ContentType, event.Timestamp)
		w.mu.Lock()
	}
	defer w.mu.Unlock()

	if w.enteredAt == 0 || event.Timestamp < w.enteredAt {
		w.enteredAt = event.Timestamp
	}
	w.insert(event)
	if event.Timestamp > w.latest.Load() {
		w.latest.Store(event.Timestamp)
	}
	if event.Type == entity.EventRewind {
		w.rewinds++
	}
	w.evict(m.horizon)
	w.touchedAt = m.clock()

	return w.view(key), left
}

func (m *Manager) acquire(key entity.WindowKey, contentType entity.ContentType, ts int64) (*segmentWindow, string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	previous := ""
	if seg, ok := m.active[key.LearnerId]; ok && seg != key.SegmentId {
		if cur, ok := m.windows[entity.WindowKey{LearnerId: key.LearnerId, SegmentId: seg}]; ok && ts < cur.latest.Load() {
			// Late: keep the active segment open.
			w, ok := m.windows[key]
			if !ok || w.closed {
				w = &segmentWindow{contentType: contentType}
				m.windows[key] = w
			}
			return w, ""
		}
		previous = seg
	}
	m.active[key.LearnerId] = key.SegmentId

	w, ok := m.windows[key]
	if !ok || w.closed {
		w = &segmentWindow{contentType: contentType}
		m.windows[key] = w
	}
	return w, previous
}

// insert keeps events ordered; late events slot in by timestamp.
func (w *segmentWindow) insert(event entity.BehavioralEvent) {
	n := len(w.events)
	if n == 0 || w.events[n-1].Timestamp <= event.Timestamp {
		w.events = append(w.events, event)
		return
	}
	i := sort.Search(n, func(i int) bool { return w.events[i].Timestamp > event.Timestamp })
	w.events = append(w.events, entity.BehavioralEvent{})
	copy(w.events[i+1:], w.events[i:])
	w.events[i] = event
}

func (w *segmentWindow) evict(horizon time.Duration) {
	if len(w.events) == 0 {
		return
	}
	cutoff := w.events[len(w.events)-1].Timestamp - horizon.Milliseconds()
	i := 0
	for i < len(w.events) && w.events[i].Timestamp < cutoff {
		i++
	}
	if i > 0 {
		w.events = append(w.events[:0:0], w.events[i:]...)
	}
}

func (w *segmentWindow) view(key entity.WindowKey) View {
	events := make([]entity.BehavioralEvent, len(w.events))
	copy(events, w.events)
	return View{Key: key, EnteredAt: w.enteredAt, Events: events}
}

func (m *Manager) lookup(key entity.WindowKey) *segmentWindow {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.windows[key]
}

// Snapshot returns a copy of the window. ok is false when no window exists.
func (m *Manager) Snapshot(segmentID, learnerID string) (View, bool) {
	key := entity.WindowKey{LearnerId: learnerID, SegmentId: segmentID}
	w := m.lookup(key)
	if w == nil {
		return View{Key: key}, false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.view(key), true
}

func (m *Manager) RewindCount(segmentID, learnerID string, within time.Duration) int {
	v, _ := m.Snapshot(segmentID, learnerID)
	return v.RewindCount(within)
}

func (m *Manager) HasScrollReversal(segmentID, learnerID string, within time.Duration, minVelocity float64) bool {
	v, _ := m.Snapshot(segmentID, learnerID)
	return v.HasScrollReversal(within, minVelocity)
}

func (m *Manager) DwellSpan(segmentID, learnerID string) time.Duration {
	v, _ := m.Snapshot(segmentID, learnerID)
	return v.DwellSpan()
}

// Close removes the window and returns its terminal metrics, or nil when there was nothing to close.
func (m *Manager) Close(key entity.WindowKey) *Terminal {
	m.mu.Lock()
	w, ok := m.windows[key]
	if ok {
		delete(m.windows, key)
		if m.active[key.LearnerId] == key.SegmentId {
			delete(m.active, key.LearnerId)
		}
	}
	m.mu.Unlock()
	if !ok {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true

	v := w.view(key)
	return &Terminal{
		Key:         key,
		ContentType: w.contentType,
		DwellSpan:   v.DwellSpan(),
		RewindCount: w.rewinds,
		ClosedAt:    m.clock(),
	}
}

// Sweep closes every window untouched for longer than idle.
func (m *Manager) Sweep(idle time.Duration) []Terminal {
	cutoff := m.clock().Add(-idle)

	m.mu.RLock()
	var stale []entity.WindowKey
	for key, w := range m.windows {
		w.mu.Lock()
		if w.touchedAt.Before(cutoff) {
			stale = append(stale, key)
		}
		w.mu.Unlock()
	}
	m.mu.RUnlock()

	var out []Terminal
	for _, key := range stale {
		if t := m.Close(key); t != nil {
			out = append(out, *t)
		}
	}
	if len(out) > 0 {
		m.logger.Debug(constant.ModuleWindowManager, "Swept idle windows", map[string]interface{}{"count": len(out)})
	}
	return out
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.windows)
}
