package event_test

import (
	"sync"
	"testing"

	"github.com/sesamoshop/tienda/pkg/event"
)

func TestFireReachesAllListeners(t *testing.T) {
	defer event.Flush()

	got := []string{}
	event.Listen("thing.happened", func(p any) { got = append(got, p.(string)) })
	event.Listen("thing.happened", func(p any) { got = append(got, p.(string)) })

	event.Fire("thing.happened", "x")

	if len(got) != 2 {
		t.Fatalf("expected 2 deliveries, got %d", len(got))
	}
}

func TestFireUnknownEventIsNoop(t *testing.T) {
	defer event.Flush()
	event.Fire("nobody.listens", nil)
}

func TestFireAsync(t *testing.T) {
	defer event.Flush()

	var wg sync.WaitGroup
	wg.Add(3)
	for i := 0; i < 3; i++ {
		event.Listen("async.thing", func(any) { wg.Done() })
	}

	event.FireAsync("async.thing", nil)
	wg.Wait()
}

func TestFlushRemovesListeners(t *testing.T) {
	fired := false
	event.Listen("gone", func(any) { fired = true })
	event.Flush()

	event.Fire("gone", nil)
	if fired {
		t.Error("flushed listener must not fire")
	}
}
