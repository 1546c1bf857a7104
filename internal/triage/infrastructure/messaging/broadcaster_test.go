package messaging

import (
	"fmt"
	"testing"

	"github.com/wyfcoding/amltriage/internal/triage/domain"
)

func event(alertID string, seq int) *domain.Event {
	return &domain.Event{
		EventID:  fmt.Sprintf("EVT-%d", seq),
		AlertID:  alertID,
		Kind:     domain.EventInvestigatorFinding,
		Sequence: seq,
	}
}

func TestBroadcasterFansOutPerAlert(t *testing.T) {
	b := NewBroadcaster()
	ch1, cancel1 := b.Subscribe("ALERT-1")
	defer cancel1()
	ch2, cancel2 := b.Subscribe("ALERT-1")
	defer cancel2()
	other, cancelOther := b.Subscribe("ALERT-2")
	defer cancelOther()

	b.Publish(event("ALERT-1", 1))

	for i, ch := range []<-chan *domain.Event{ch1, ch2} {
		select {
		case e := <-ch:
			if e.AlertID != "ALERT-1" || e.Sequence != 1 {
				t.Errorf("subscriber %d got %v", i, e)
			}
		default:
			t.Errorf("subscriber %d got nothing", i)
		}
	}
	select {
	case e := <-other:
		t.Errorf("ALERT-2 subscriber received foreign event %v", e)
	default:
	}
}

func TestBroadcasterDropsWhenSubscriberIsSlow(t *testing.T) {
	b := NewBroadcaster()
	ch, cancel := b.Subscribe("ALERT-1")
	defer cancel()

	// 缓冲写满之后 Publish 必须立即返回而不是阻塞流水线
	for i := 0; i < subscriberBuffer+10; i++ {
		b.Publish(event("ALERT-1", i+1))
	}
	if got := len(ch); got != subscriberBuffer {
		t.Errorf("buffered %d events, want %d with overflow dropped", got, subscriberBuffer)
	}
}

func TestBroadcasterCancelClosesChannel(t *testing.T) {
	b := NewBroadcaster()
	ch, cancel := b.Subscribe("ALERT-1")
	cancel()

	if _, ok := <-ch; ok {
		t.Error("channel must be closed after cancel")
	}
	// 取消后再发布不得 panic
	b.Publish(event("ALERT-1", 1))
	// 重复取消幂等
	cancel()
}
