package events_test

import (
	"fmt"
	"testing"

	"github.com/yeetcoin/blockchain/foundation/events"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_Events(t *testing.T) {
	evts := events.New()

	t.Log("Given the need to fan events out to listeners.")
	{
		a := evts.Acquire("a")
		b := evts.Acquire("b")

		if evts.Acquire("a") != a || evts.Len() != 2 {
			t.Fatalf("\t%s\tShould register each id once.", failed)
		}
		t.Logf("\t%s\tShould register each id once.", success)

		evts.Send("viewer: block: 1")
		if <-a != "viewer: block: 1" || <-b != "viewer: block: 1" {
			t.Fatalf("\t%s\tShould deliver the event to every listener.", failed)
		}
		t.Logf("\t%s\tShould deliver the event to every listener.", success)

		for i := 0; i < 200; i++ {
			evts.Send(fmt.Sprint(i))
		}
		if len(a) != cap(a) {
			t.Fatalf("\t%s\tShould drop events for a full listener, got %d.", failed, len(a))
		}
		t.Logf("\t%s\tShould drop events for a full listener without blocking.", success)

		if err := evts.Release("a"); err != nil {
			t.Fatalf("\t%s\tShould release a listener: %v", failed, err)
		}
		if err := evts.Release("a"); err == nil {
			t.Fatalf("\t%s\tShould fail to release an unknown listener.", failed)
		}
		t.Logf("\t%s\tShould release a listener once.", success)

		evts.Shutdown()
		for range b {
		}
		if evts.Len() != 0 {
			t.Fatalf("\t%s\tShould close every listener on shutdown.", failed)
		}
		t.Logf("\t%s\tShould close every listener on shutdown.", success)
	}
}
