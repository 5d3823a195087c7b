package supervisor

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ccheck-game/ccheck/pkg/game"
	"github.com/ccheck-game/ccheck/pkg/proto"
)

func TestSpawnMissingBinary(t *testing.T) {
	var s = New(zerolog.Nop())
	var _, err = s.Spawn(RoleEngine, "/no/such/binary")
	if !errors.Is(err, ErrSpawn) {
		t.Fatalf("err = %v, want ErrSpawn", err)
	}
}

func TestChildEchoAndShutdown(t *testing.T) {
	// cat echoes our protocol lines back, which exercises both pipe
	// directions without needing a real engine binary.
	var s = New(zerolog.Nop())
	var c, err = s.Spawn(RoleEngine, "cat")
	if err != nil {
		t.Skipf("cannot spawn cat: %v", err)
	}

	if err := c.Conn.WriteNotify(game.White, "a1-b2"); err != nil {
		t.Fatal(err)
	}
	var msg proto.Message
	msg, err = c.Conn.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	if msg.Kind != proto.KindNotify || msg.Side != game.White || msg.Text != "a1-b2" {
		t.Fatalf("echoed message = %+v", msg)
	}

	if c.Exited() {
		t.Fatal("child reported exited while running")
	}
	var start = time.Now()
	if err := s.Shutdown(c, 2*time.Second); err != nil {
		t.Fatal(err)
	}
	if !c.Exited() {
		t.Fatal("child still alive after shutdown")
	}
	if time.Since(start) > 4*time.Second {
		t.Fatalf("shutdown took %v", time.Since(start))
	}
}

func TestWakeDeliversSignal(t *testing.T) {
	var s = New(zerolog.Nop())
	var c, err = s.Spawn(RoleDisplay, "sleep", "30")
	if err != nil {
		t.Skipf("cannot spawn sleep: %v", err)
	}
	defer s.ShutdownAll(2 * time.Second)

	// sleep does not handle SIGHUP, so delivery terminates it.
	if err := c.Wake(); err != nil {
		t.Fatal(err)
	}
	var deadline = time.Now().Add(5 * time.Second)
	for !c.Exited() {
		if time.Now().After(deadline) {
			t.Fatal("signal never arrived")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestReapForgetsExitedChildren(t *testing.T) {
	var s = New(zerolog.Nop())
	var c, err = s.Spawn(RoleEngine, "true")
	if err != nil {
		t.Skipf("cannot spawn true: %v", err)
	}
	if !c.WaitExit(5 * time.Second) {
		t.Fatal("child never exited")
	}
	s.Reap()
	s.mu.Lock()
	var tracked = len(s.children)
	s.mu.Unlock()
	if tracked != 0 {
		t.Fatalf("%v children still tracked after reap", tracked)
	}
}
