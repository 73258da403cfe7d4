package queue

import (
	"context"
	"testing"
	"time"

	"ctarcade/Game-Arcade/internal/game"
)

func TestEnqueueReplacesPriorEntry(t *testing.T) {
	q := New(time.Minute, time.Second)

	first := q.Enqueue(context.Background(), "alice", game.KindGrid, 1200)
	second := q.Enqueue(context.Background(), "alice", game.KindGrid, 1250)

	if first.ID == second.ID {
		t.Fatal("re-enqueue returned the same entry")
	}
	if len(q.buckets[game.KindGrid]) != 1 {
		t.Fatalf("bucket size = %d, want exactly one active entry", len(q.buckets[game.KindGrid]))
	}
	status, ok := q.Status("alice", game.KindGrid)
	if !ok || status.ID != second.ID || status.Status != StatusQueued {
		t.Errorf("Status() = %+v, want the replacement entry queued", status)
	}
}

func TestSameParticipantDifferentKinds(t *testing.T) {
	q := New(time.Minute, time.Second)

	q.Enqueue(context.Background(), "alice", game.KindGrid, 1200)
	q.Enqueue(context.Background(), "alice", game.KindRPS, 1200)

	if len(q.buckets[game.KindGrid]) != 1 || len(q.buckets[game.KindRPS]) != 1 {
		t.Error("entries for different game kinds must not replace each other")
	}
}

func TestClosestRatingsPairFirst(t *testing.T) {
	q := New(time.Minute, time.Second)
	ctx := context.Background()

	q.Enqueue(ctx, "low", game.KindConnect, 1000)
	q.Enqueue(ctx, "mid1", game.KindConnect, 1500)
	q.Enqueue(ctx, "mid2", game.KindConnect, 1520)
	q.Enqueue(ctx, "high", game.KindConnect, 2000)

	q.MatchNow(ctx)

	pair1 := <-q.Matched()
	got := map[string]bool{
		pair1.Entries[0].ParticipantID: true,
		pair1.Entries[1].ParticipantID: true,
	}
	if !got["mid1"] || !got["mid2"] {
		t.Errorf("first pair = %v, want the two closest ratings (mid1, mid2)", got)
	}

	pair2 := <-q.Matched()
	got = map[string]bool{
		pair2.Entries[0].ParticipantID: true,
		pair2.Entries[1].ParticipantID: true,
	}
	if !got["low"] || !got["high"] {
		t.Errorf("second pair = %v, want the remaining entries", got)
	}

	for _, id := range []string{"low", "mid1", "mid2", "high"} {
		entry, ok := q.Status(id, game.KindConnect)
		if !ok || entry.Status != StatusMatched {
			t.Errorf("entry %s status = %v, want matched", id, entry.Status)
		}
	}
}

func TestEntryTimesOutAfterTTL(t *testing.T) {
	q := New(10*time.Millisecond, time.Second)
	ctx := context.Background()

	q.Enqueue(ctx, "alice", game.KindGrid, 1200)
	q.expire(time.Now().Add(time.Second))

	entry, ok := q.Status("alice", game.KindGrid)
	if !ok || entry.Status != StatusTimeout {
		t.Fatalf("entry status = %v, want timeout", entry.Status)
	}
	if len(q.buckets[game.KindGrid]) != 0 {
		t.Error("timed out entry still present in the bucket")
	}

	// A later pass with a fresh entry must not see the expired one.
	q.Enqueue(ctx, "bob", game.KindGrid, 1200)
	q.MatchNow(ctx)
	select {
	case pair := <-q.Matched():
		t.Errorf("expired entry was matched: %+v", pair)
	default:
	}
}

func TestLeaveIsIdempotent(t *testing.T) {
	q := New(time.Minute, time.Second)
	ctx := context.Background()

	q.Enqueue(ctx, "alice", game.KindDots, 1200)
	q.Leave(ctx, "alice", game.KindDots)
	q.Leave(ctx, "alice", game.KindDots)

	entry, ok := q.Status("alice", game.KindDots)
	if !ok || entry.Status != StatusCancelled {
		t.Errorf("entry status = %v, want cancelled", entry.Status)
	}
	if len(q.buckets[game.KindDots]) != 0 {
		t.Error("cancelled entry still present in the bucket")
	}
}

func TestTerminalEntriesEvictedAfterRetention(t *testing.T) {
	q := New(time.Minute, time.Second)
	ctx := context.Background()

	q.Enqueue(ctx, "alice", game.KindGrid, 1200)
	q.Leave(ctx, "alice", game.KindGrid)

	// Within the retention window the terminal entry stays observable.
	q.expire(time.Now().Add(terminalRetention / 2))
	if _, ok := q.Status("alice", game.KindGrid); !ok {
		t.Fatal("cancelled entry dropped before its retention elapsed")
	}

	q.expire(time.Now().Add(terminalRetention + time.Second))
	if _, ok := q.Status("alice", game.KindGrid); ok {
		t.Error("cancelled entry still observable after its retention elapsed")
	}
	if len(q.latest) != 0 {
		t.Errorf("latest map holds %d entries, want none", len(q.latest))
	}
}

func TestNotifyObservesTerminalStates(t *testing.T) {
	var seen []Status
	q := New(time.Minute, time.Second, WithNotify(func(e Entry) {
		seen = append(seen, e.Status)
	}))
	ctx := context.Background()

	q.Enqueue(ctx, "alice", game.KindGrid, 1200)
	q.Enqueue(ctx, "bob", game.KindGrid, 1300)
	q.MatchNow(ctx)
	<-q.Matched()

	want := []Status{StatusQueued, StatusQueued, StatusMatched, StatusMatched}
	if len(seen) != len(want) {
		t.Fatalf("notifications = %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("notification %d = %v, want %v", i, seen[i], want[i])
		}
	}
}
