package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(eventsDelivered.WithLabelValues("message"))
	AddDelivered("message", 3)
	AddDelivered("message", 0)
	if got := testutil.ToFloat64(eventsDelivered.WithLabelValues("message")); got != before+3 {
		t.Fatalf("delivered = %v, want %v", got, before+3)
	}

	beforeFail := testutil.ToFloat64(persistenceFailures.WithLabelValues("append"))
	IncPersistenceFailure("append")
	if got := testutil.ToFloat64(persistenceFailures.WithLabelValues("append")); got != beforeFail+1 {
		t.Fatalf("append failures = %v, want %v", got, beforeFail+1)
	}

	SetRooms(4)
	if got := testutil.ToFloat64(rooms); got != 4 {
		t.Fatalf("rooms = %v, want 4", got)
	}

	conns := testutil.ToFloat64(wsConnections)
	IncConnections()
	DecConnections()
	if got := testutil.ToFloat64(wsConnections); got != conns {
		t.Fatalf("connections = %v, want %v", got, conns)
	}
}
