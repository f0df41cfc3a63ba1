package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubDeliversToSessionSubscribers(t *testing.T) {
	h := NewHub()

	ch, cancel := h.Subscribe("sess-1")
	defer cancel()
	other, cancelOther := h.Subscribe("sess-2")
	defer cancelOther()

	h.Report("sess-1", Update{Stage: StageAnalysis, Progress: 40, Message: "analyzing kp-1"})

	select {
	case u := <-ch:
		assert.Equal(t, StageAnalysis, u.Stage)
		assert.Equal(t, 40, u.Progress)
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive update")
	}

	select {
	case u := <-other:
		t.Fatalf("unrelated session received update: %+v", u)
	default:
	}
}

func TestHubReportDoesNotBlockWithoutSubscribers(t *testing.T) {
	h := NewHub()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			h.Report("nobody-listening", Update{Stage: StageUpload, Progress: i})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Report blocked with no subscribers")
	}
}

func TestHubCancelStopsDelivery(t *testing.T) {
	h := NewHub()

	ch, cancel := h.Subscribe("sess-1")
	cancel()

	h.Report("sess-1", Update{Stage: StageDone, Progress: 100})

	select {
	case _, ok := <-ch:
		assert.False(t, ok, "channel should be closed after cancel")
	case <-time.After(time.Second):
		t.Fatal("channel not closed after cancel")
	}
}

func TestBusPublishReachesTopicSubscribers(t *testing.T) {
	b := NewBus()

	saved, cancelSaved := b.Subscribe(TopicAnalysisSaved)
	defer cancelSaved()
	uploads, cancelUploads := b.Subscribe(TopicUploadStarted)
	defer cancelUploads()

	b.Publish(TopicAnalysisSaved, map[string]any{"history_id": "h-1"})

	select {
	case ev := <-saved:
		require.Equal(t, TopicAnalysisSaved, ev.Topic)
		assert.Equal(t, "h-1", ev.Detail["history_id"])
		assert.False(t, ev.At.IsZero())
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive event")
	}

	select {
	case ev := <-uploads:
		t.Fatalf("subscriber of other topic received event: %+v", ev)
	default:
	}
}

func TestBusPublishWithoutSubscribersIsNoop(t *testing.T) {
	b := NewBus()
	b.Publish(TopicSynced, nil)
}

func TestAnnouncerKeepsNewestFirstBounded(t *testing.T) {
	a := NewAnnouncer(3, time.Minute)

	a.Announce("first", PriorityPolite)
	a.Announce("second", PriorityPolite)
	a.Announce("third", PriorityAssertive)
	a.Announce("fourth", PriorityPolite)

	got := a.Announcements()
	require.Len(t, got, 3)
	assert.Equal(t, "fourth", got[0].Message)
	assert.Equal(t, "third", got[1].Message)
	assert.Equal(t, "second", got[2].Message)
}

func TestAnnouncerExpiresAfterTTL(t *testing.T) {
	a := NewAnnouncer(5, 20*time.Millisecond)

	a.Announce("transient", PriorityPolite)
	require.Len(t, a.Announcements(), 1)

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if len(a.Announcements()) == 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("announcement did not expire")
}

func TestAnnouncerAssignsUniqueIDs(t *testing.T) {
	a := NewAnnouncer(5, time.Minute)

	first := a.Announce("one", PriorityPolite)
	second := a.Announce("two", PriorityPolite)

	assert.NotEmpty(t, first.ID)
	assert.NotEqual(t, first.ID, second.ID)
}
