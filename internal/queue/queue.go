package queue

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"ctarcade/Game-Arcade/internal/game"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("queue")

type Status string

const (
	StatusQueued    Status = "queued"
	StatusMatched   Status = "matched"
	StatusTimeout   Status = "timeout"
	StatusCancelled Status = "cancelled"
)

// Terminal entries stay observable this long, matching the redis mirror's
// TTL, then the expiry sweep drops them.
const terminalRetention = 10 * time.Minute

// Entry is one participant waiting (or recently finished waiting) for a
// match in one game kind.
type Entry struct {
	ID            string    `json:"id"`
	ParticipantID string    `json:"participant_id"`
	GameKind      game.Kind `json:"game_kind"`
	Rating        int       `json:"rating"`
	Status        Status    `json:"status"`
	QueuedAt      time.Time `json:"queued_at"`
	ExpiresAt     time.Time `json:"expires_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	MatchedRoomID string    `json:"matched_room_id,omitempty"`
}

// Pair is delivered on the matched channel when two entries are paired.
type Pair struct {
	Entries [2]Entry
}

// Queue holds waiting participants keyed by game kind and pairs the two
// closest ratings on each matching pass. All entry mutation happens under
// the queue mutex, so a pass cannot double-match an entry racing a
// leave or expiry.
type Queue struct {
	ttl          time.Duration
	scanInterval time.Duration

	mu      sync.Mutex
	buckets map[game.Kind][]*Entry
	latest  map[string]*Entry // participant+kind -> most recent entry
	matched chan Pair
	notify  func(Entry)
}

// Option configures a Queue.
type Option func(*Queue)

// WithNotify registers a hook invoked with a copy of every entry whose
// status changes. The hub uses it to push queue_status envelopes and mirror
// terminal states for the polling read path.
func WithNotify(fn func(Entry)) Option {
	return func(q *Queue) { q.notify = fn }
}

// New creates a queue whose entries expire after ttl and whose matching
// pass runs every scanInterval.
func New(ttl, scanInterval time.Duration, opts ...Option) *Queue {
	q := &Queue{
		ttl:          ttl,
		scanInterval: scanInterval,
		buckets:      make(map[game.Kind][]*Entry),
		latest:       make(map[string]*Entry),
		matched:      make(chan Pair, 16),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Matched returns the channel of paired entries. The consumer materializes
// a room for each pair and records it via SetMatchedRoom.
func (q *Queue) Matched() <-chan Pair {
	return q.matched
}

// Run drives expiry and the periodic matching pass until ctx is cancelled.
func (q *Queue) Run(ctx context.Context) {
	ticker := time.NewTicker(q.scanInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			q.expire(time.Now())
			q.matchPass(ctx)
		}
	}
}

func key(participantID string, kind game.Kind) string {
	return participantID + "|" + string(kind)
}

// Enqueue adds a participant to the bucket for kind. A prior active entry
// for the same participant and kind is replaced, keeping the at-most-one
// invariant.
func (q *Queue) Enqueue(ctx context.Context, participantID string, kind game.Kind, rating int) Entry {
	_, span := tracer.Start(ctx, "queue.Enqueue", trace.WithAttributes(
		attribute.String("participant.id", participantID),
		attribute.String("game.kind", string(kind)),
		attribute.Int("rating", rating),
	))
	defer span.End()

	q.mu.Lock()
	if prior, ok := q.latest[key(participantID, kind)]; ok && prior.Status == StatusQueued {
		q.removeFromBucketLocked(prior)
		prior.Status = StatusCancelled
		prior.UpdatedAt = time.Now()
		slog.Debug("replaced existing queue entry", "participant.id", participantID, "game.kind", kind)
	}

	now := time.Now()
	entry := &Entry{
		ID:            uuid.New().String(),
		ParticipantID: participantID,
		GameKind:      kind,
		Rating:        rating,
		Status:        StatusQueued,
		QueuedAt:      now,
		ExpiresAt:     now.Add(q.ttl),
		UpdatedAt:     now,
	}
	q.buckets[kind] = append(q.buckets[kind], entry)
	q.latest[key(participantID, kind)] = entry
	out := *entry
	q.mu.Unlock()

	q.emit(out)
	return out
}

// Leave cancels the participant's queued entry for kind. Repeated calls are
// no-ops.
func (q *Queue) Leave(ctx context.Context, participantID string, kind game.Kind) {
	_, span := tracer.Start(ctx, "queue.Leave", trace.WithAttributes(
		attribute.String("participant.id", participantID),
		attribute.String("game.kind", string(kind)),
	))
	defer span.End()

	q.mu.Lock()
	entry, ok := q.latest[key(participantID, kind)]
	if !ok || entry.Status != StatusQueued {
		q.mu.Unlock()
		return
	}
	q.removeFromBucketLocked(entry)
	entry.Status = StatusCancelled
	entry.UpdatedAt = time.Now()
	out := *entry
	q.mu.Unlock()

	q.emit(out)
}

// LeaveAll cancels every queued entry for the participant, across kinds.
// Used when a connection drops.
func (q *Queue) LeaveAll(ctx context.Context, participantID string) {
	q.mu.Lock()
	var changed []Entry
	for _, entry := range q.latest {
		if entry.ParticipantID == participantID && entry.Status == StatusQueued {
			q.removeFromBucketLocked(entry)
			entry.Status = StatusCancelled
			entry.UpdatedAt = time.Now()
			changed = append(changed, *entry)
		}
	}
	q.mu.Unlock()

	for _, e := range changed {
		q.emit(e)
	}
}

// Status returns the participant's most recent entry for kind. Terminal
// entries remain observable so polling and push report the same states.
func (q *Queue) Status(participantID string, kind game.Kind) (Entry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	entry, ok := q.latest[key(participantID, kind)]
	if !ok {
		return Entry{}, false
	}
	return *entry, true
}

// SetMatchedRoom records the room materialized for a matched entry.
func (q *Queue) SetMatchedRoom(entryID, roomID string) {
	q.mu.Lock()
	var out *Entry
	for _, entry := range q.latest {
		if entry.ID == entryID {
			entry.MatchedRoomID = roomID
			entry.UpdatedAt = time.Now()
			copied := *entry
			out = &copied
			break
		}
	}
	q.mu.Unlock()

	if out != nil {
		q.emit(*out)
	}
}

// expire times out entries past their deadline and drops terminal entries
// past their retention, so the latest map cannot grow unbounded.
func (q *Queue) expire(now time.Time) {
	q.mu.Lock()
	var expired []Entry
	for kind, bucket := range q.buckets {
		kept := bucket[:0]
		for _, entry := range bucket {
			if entry.Status == StatusQueued && now.After(entry.ExpiresAt) {
				entry.Status = StatusTimeout
				entry.UpdatedAt = now
				expired = append(expired, *entry)
				continue
			}
			kept = append(kept, entry)
		}
		q.buckets[kind] = kept
	}
	for k, entry := range q.latest {
		if entry.Status != StatusQueued && now.Sub(entry.UpdatedAt) > terminalRetention {
			delete(q.latest, k)
		}
	}
	q.mu.Unlock()

	for _, e := range expired {
		slog.Info("queue entry expired", "participant.id", e.ParticipantID, "game.kind", e.GameKind)
		q.emit(e)
	}
}

// matchPass pairs, per bucket, the two entries with the closest ratings
// while at least two are queued.
func (q *Queue) matchPass(ctx context.Context) {
	_, span := tracer.Start(ctx, "queue.matchPass")
	defer span.End()

	q.mu.Lock()
	var pairs []Pair
	for kind, bucket := range q.buckets {
		for len(bucket) >= 2 {
			sort.Slice(bucket, func(i, j int) bool { return bucket[i].Rating < bucket[j].Rating })
			best := 1
			for i := 2; i < len(bucket); i++ {
				if bucket[i].Rating-bucket[i-1].Rating < bucket[best].Rating-bucket[best-1].Rating {
					best = i
				}
			}
			a, b := bucket[best-1], bucket[best]
			bucket = append(bucket[:best-1], bucket[best+1:]...)
			a.Status = StatusMatched
			b.Status = StatusMatched
			a.UpdatedAt = time.Now()
			b.UpdatedAt = a.UpdatedAt
			pairs = append(pairs, Pair{Entries: [2]Entry{*a, *b}})
		}
		q.buckets[kind] = bucket
	}
	q.mu.Unlock()

	for _, pair := range pairs {
		span.AddEvent("pair matched")
		slog.Info("matched queue pair",
			"game.kind", pair.Entries[0].GameKind,
			"participant1.id", pair.Entries[0].ParticipantID,
			"participant2.id", pair.Entries[1].ParticipantID,
			"rating.gap", pair.Entries[1].Rating-pair.Entries[0].Rating,
		)
		q.emit(pair.Entries[0])
		q.emit(pair.Entries[1])
		q.matched <- pair
	}
}

// MatchNow runs one matching pass immediately. Exposed for the hub to react
// to enqueue bursts without waiting a full scan interval.
func (q *Queue) MatchNow(ctx context.Context) {
	q.expire(time.Now())
	q.matchPass(ctx)
}

func (q *Queue) removeFromBucketLocked(target *Entry) {
	bucket := q.buckets[target.GameKind]
	for i, entry := range bucket {
		if entry.ID == target.ID {
			q.buckets[target.GameKind] = append(bucket[:i], bucket[i+1:]...)
			return
		}
	}
}

func (q *Queue) emit(e Entry) {
	if q.notify != nil {
		q.notify(e)
	}
}
