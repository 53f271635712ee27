package identity

import (
	"testing"
	"time"

	"github.com/candlelife/candle/internal/bus"
)

func TestSignInSignOut(t *testing.T) {
	p := NewProvider(nil)
	if _, ok := p.Current(); ok {
		t.Fatal("new provider should be signed out")
	}

	p.SignIn("user-1")
	if id, ok := p.Current(); !ok || id != "user-1" {
		t.Errorf("Current() = %q, %v; want user-1, true", id, ok)
	}

	p.SignOut()
	if id, ok := p.Current(); ok || id != "" {
		t.Errorf("Current() after SignOut = %q, %v; want empty, false", id, ok)
	}
}

func TestChangesPublished(t *testing.T) {
	b := bus.New()
	ch, unsub := b.Subscribe("identity.", 10)
	defer unsub()

	p := NewProvider(b)
	p.SignIn("user-1")
	p.SignIn("user-1")
	p.SignIn("user-2")
	p.SignOut()
	p.SignOut()

	want := []Change{
		{Previous: "", Current: "user-1"},
		{Previous: "user-1", Current: "user-2"},
		{Previous: "user-2", Current: ""},
	}
	for _, w := range want {
		select {
		case evt := <-ch:
			got, ok := evt.Payload.(Change)
			if !ok {
				t.Fatalf("payload type = %T, want Change", evt.Payload)
			}
			if got != w {
				t.Errorf("change = %+v, want %+v", got, w)
			}
		case <-time.After(time.Second):
			t.Fatalf("timeout waiting for %+v", w)
		}
	}

	select {
	case evt := <-ch:
		t.Errorf("unexpected event: %+v", evt.Payload)
	case <-time.After(50 * time.Millisecond):
	}
}
