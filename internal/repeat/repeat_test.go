package repeat

import "testing"

func TestSimulator_PressFiresOnce(t *testing.T) {
	s := New(DefaultDelayTicks)
	held := true
	fired := 0

	s.Start("left", func() bool { return held }, func() { fired++ })
	if fired != 1 {
		t.Fatalf("expected immediate fire, got %d", fired)
	}

	s.Tick()
	s.Tick()
	held = false
	s.Tick()

	if fired != 1 {
		t.Fatalf("expected no further fires after a short press, got %d", fired)
	}
	if s.Active() != 0 {
		t.Fatalf("expected task dropped after release, got %d", s.Active())
	}
}

func TestSimulator_HoldRepeatsFromSeventhTick(t *testing.T) {
	s := New(DefaultDelayTicks)
	held := true
	fired := 0
	s.Start("down", func() bool { return held }, func() { fired++ })

	for i := 1; i <= 6; i++ {
		s.Tick()
		if fired != 1 {
			t.Fatalf("tick %d: expected 1 fire, got %d", i, fired)
		}
	}
	s.Tick()
	if fired != 2 {
		t.Fatalf("tick 7: expected 2 fires, got %d", fired)
	}
	s.Tick()
	s.Tick()
	if fired != 4 {
		t.Fatalf("tick 9: expected 4 fires, got %d", fired)
	}

	held = false
	s.Tick()
	s.Tick()
	if fired != 4 {
		t.Fatalf("expected no fires after release, got %d", fired)
	}
}

func TestSimulator_RestartReplacesTask(t *testing.T) {
	s := New(2)
	fired := 0
	always := func() bool { return true }

	s.Start("up", always, func() { fired++ })
	s.Tick()
	s.Start("up", always, func() { fired++ })
	if s.Active() != 1 {
		t.Fatalf("expected one task, got %d", s.Active())
	}
	s.Tick()
	if fired != 2 {
		t.Fatalf("expected restart to reset the delay, got %d fires", fired)
	}
	s.Tick()
	if fired != 3 {
		t.Fatalf("expected repeat after delay, got %d fires", fired)
	}
}

func TestSimulator_StopAndCancel(t *testing.T) {
	s := New(1)
	fired := 0
	always := func() bool { return true }
	s.Start("a", always, func() { fired++ })
	s.Start("b", always, func() { fired++ })

	s.Cancel("a")
	s.Tick()
	if fired != 3 {
		t.Fatalf("expected only b to repeat, got %d fires", fired)
	}

	s.Stop()
	s.Tick()
	if fired != 3 || s.Active() != 0 {
		t.Fatalf("expected no tasks after Stop, got %d fires, %d active", fired, s.Active())
	}
}

func TestNew_DefaultsDelay(t *testing.T) {
	if s := New(0); s.delay != DefaultDelayTicks {
		t.Fatalf("expected delay %d, got %d", DefaultDelayTicks, s.delay)
	}
}
