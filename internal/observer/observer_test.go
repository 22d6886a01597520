package observer

import (
	"log/slog"
	"testing"
)

func TestList_NotifyInOrder(t *testing.T) {
	l := New[int]("test", slog.Default())

	var got []int
	l.Subscribe(func(v int) { got = append(got, v*10) })
	l.Subscribe(func(v int) { got = append(got, v*100) })

	l.Notify(2)

	if len(got) != 2 || got[0] != 20 || got[1] != 200 {
		t.Fatalf("expected [20 200], got %v", got)
	}
}

func TestList_PanickingListenerDoesNotStopOthers(t *testing.T) {
	l := New[string]("test", slog.Default())

	called := 0
	l.Subscribe(func(string) { called++ })
	l.Subscribe(func(string) { panic("boom") })
	l.Subscribe(func(string) { called++ })

	l.Notify("x")

	if called != 2 {
		t.Fatalf("expected 2 healthy listeners to run, got %d", called)
	}
}

func TestList_Unsubscribe(t *testing.T) {
	l := New[int]("test", nil)

	called := 0
	unsub := l.Subscribe(func(int) { called++ })
	l.Notify(1)
	unsub()
	unsub()
	l.Notify(1)

	if called != 1 {
		t.Fatalf("expected 1 call, got %d", called)
	}
	if l.Len() != 0 {
		t.Fatalf("expected empty list, got %d", l.Len())
	}
}

func TestList_UnsubscribeDuringNotify(t *testing.T) {
	l := New[int]("test", nil)

	var unsub func()
	first := 0
	second := 0
	unsub = l.Subscribe(func(int) {
		first++
		unsub()
	})
	l.Subscribe(func(int) { second++ })

	l.Notify(1)
	l.Notify(1)

	if first != 1 {
		t.Fatalf("expected self-removing listener to run once, got %d", first)
	}
	if second != 2 {
		t.Fatalf("expected second listener to run twice, got %d", second)
	}
}
