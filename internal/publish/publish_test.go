package publish

import (
	"encoding/json"
	"errors"
	"image"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/ivlev/stagekeys/internal/playback"
	"github.com/ivlev/stagekeys/internal/session"
	"github.com/ivlev/stagekeys/internal/source"
)

type fakeToken struct {
	mqtt.Token
	err error
}

func (t fakeToken) Wait() bool   { return true }
func (t fakeToken) Error() error { return t.err }

type published struct {
	topic   string
	payload []byte
}

type fakeClient struct {
	mqtt.Client
	mu           sync.Mutex
	messages     []published
	disconnected bool
	err          error
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload any) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, published{topic, payload.([]byte)})
	return fakeToken{err: c.err}
}

func (c *fakeClient) Disconnect(quiesce uint) {
	c.disconnected = true
}

func TestPublishesSessionEvents(t *testing.T) {
	clock := playback.NewManualClock(time.Unix(0, 0))
	opts := session.DefaultOptions()
	opts.Clock = clock
	s := session.New(opts)
	defer s.Close()

	client := &fakeClient{}
	pub := New(client, "stage")
	s.Subscribe(pub.Observe)

	a := s.AddObject(source.NewStatic("a", image.NewRGBA(image.Rect(0, 0, 10, 10))))
	s.RecordKeyframe(100 * time.Millisecond)
	s.Move(a, 5, 5)
	s.RecordKeyframe(250 * time.Millisecond)
	s.Play()
	clock.Advance(100 * time.Millisecond)

	var frames []Message
	for _, m := range client.messages {
		if m.topic != "stage/frame_applied" {
			continue
		}
		var msg Message
		if err := json.Unmarshal(m.payload, &msg); err != nil {
			t.Fatalf("bad payload %s: %v", m.payload, err)
		}
		frames = append(frames, msg)
	}

	if len(frames) != 2 {
		t.Fatalf("expected 2 frame messages, got %d", len(frames))
	}
	if frames[1].Cursor != 1 || frames[1].TransitionMs != 250 {
		t.Errorf("frame message = %+v", frames[1])
	}
	if st, ok := frames[1].States[a]; !ok || st.X != 5 {
		t.Errorf("frame states = %+v", frames[1].States)
	}

	if client.messages[0].topic != "stage/object_added" {
		t.Errorf("first topic = %s", client.messages[0].topic)
	}

	pub.Close()
	if !client.disconnected {
		t.Error("Close did not disconnect")
	}
}

func TestPublishErrorIsNotFatal(t *testing.T) {
	client := &fakeClient{err: errors.New("broker gone")}
	pub := New(client, "stage")

	pub.Observe(session.Event{Kind: session.PlaybackStopped, Completed: true})

	if len(client.messages) != 1 || client.messages[0].topic != "stage/playback_stopped" {
		t.Errorf("messages = %+v", client.messages)
	}
}
