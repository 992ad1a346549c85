package ratelimit

import (
	"sync"
	"testing"
	"time"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestCheckConsumesBudget(t *testing.T) {
	l := NewWithClock(fixedClock(time.Unix(7200, 0)))

	for i := 0; i < 3; i++ {
		d := l.Check("group:g1", 3)
		if !d.Allowed {
			t.Fatalf("message %d denied within budget", i+1)
		}
		if d.Remaining != 3-(i+1) {
			t.Fatalf("remaining after %d = %d", i+1, d.Remaining)
		}
	}
	d := l.Check("group:g1", 3)
	if d.Allowed {
		t.Fatalf("fourth message admitted past the budget")
	}
	if d.Remaining != 0 {
		t.Fatalf("denied remaining = %d", d.Remaining)
	}
}

func TestDeniedCheckDoesNotAdvanceCounter(t *testing.T) {
	l := NewWithClock(fixedClock(time.Unix(7200, 0)))
	l.Check("g", 1)
	for i := 0; i < 5; i++ {
		l.Check("g", 1)
	}
	if got := l.Remaining("g", 1); got != 0 {
		t.Fatalf("remaining = %d", got)
	}
}

func TestBucketRollover(t *testing.T) {
	now := time.Unix(7200, 0)
	l := NewWithClock(func() time.Time { return now })

	if d := l.Check("g", 1); !d.Allowed {
		t.Fatalf("first message denied")
	}
	if d := l.Check("g", 1); d.Allowed {
		t.Fatalf("budget not exhausted")
	}

	// 59 minutes later, same bucket: still denied.
	now = time.Unix(7200+3540, 0)
	if d := l.Check("g", 1); d.Allowed {
		t.Fatalf("budget refreshed inside the bucket")
	}

	// Next hour bucket: the budget is whole again.
	now = time.Unix(7200+3600, 0)
	d := l.Check("g", 1)
	if !d.Allowed {
		t.Fatalf("budget not refreshed at bucket boundary")
	}
	if want := time.Unix(7200+7200, 0); !d.ResetAt.Equal(want) {
		t.Fatalf("ResetAt = %v, want %v", d.ResetAt, want)
	}
}

func TestUnlimitedScope(t *testing.T) {
	l := NewWithClock(fixedClock(time.Unix(7200, 0)))
	for _, limit := range []int{0, -1} {
		for i := 0; i < 100; i++ {
			d := l.Check("g", limit)
			if !d.Allowed || d.Remaining != -1 {
				t.Fatalf("limit %d: decision = %+v", limit, d)
			}
		}
	}
}

func TestScopesAreIndependent(t *testing.T) {
	l := NewWithClock(fixedClock(time.Unix(7200, 0)))
	l.Check("group:g1", 1)
	if d := l.Check("group:g2", 1); !d.Allowed {
		t.Fatalf("g1 consumption charged to g2")
	}
	if d := l.Check("private:u1", 1); !d.Allowed {
		t.Fatalf("group consumption charged to a private scope")
	}
}

func TestRemainingDoesNotConsume(t *testing.T) {
	l := NewWithClock(fixedClock(time.Unix(7200, 0)))
	for i := 0; i < 10; i++ {
		if got := l.Remaining("g", 2); got != 2 {
			t.Fatalf("Remaining consumed a slot: %d", got)
		}
	}
}

func TestReset(t *testing.T) {
	l := NewWithClock(fixedClock(time.Unix(7200, 0)))
	l.Check("g", 1)
	l.Reset()
	if d := l.Check("g", 1); !d.Allowed {
		t.Fatalf("Reset did not restore the budget")
	}
}

func TestConcurrentChecksAdmitExactlyLimit(t *testing.T) {
	l := NewWithClock(fixedClock(time.Unix(7200, 0)))
	const limit = 10

	var wg sync.WaitGroup
	admitted := make(chan bool, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			admitted <- l.Check("g", limit).Allowed
		}()
	}
	wg.Wait()
	close(admitted)

	n := 0
	for ok := range admitted {
		if ok {
			n++
		}
	}
	if n != limit {
		t.Fatalf("admitted %d messages, want exactly %d", n, limit)
	}
}
