package logic

import (
	"errors"
	"testing"
	"time"

	"github.com/sweeney/button-sensor/internal/clock"
	"github.com/sweeney/button-sensor/internal/pin"
)

func newTestButton(dir pin.Direction) (*Button, *pin.FakePin) {
	p := pin.NewFakePin(false)
	if dir == pin.Reverse {
		p.Set(true)
	}
	return NewButton(pin.NewSwitch(p, dir)), p
}

// drive holds the raw level from..to inclusive, stepping once per millisecond.
func drive(t *testing.T, b *Button, p *pin.FakePin, high bool, from, to uint64) {
	t.Helper()
	p.Set(high)
	for ms := from; ms <= to; ms++ {
		if err := b.Step(ms); err != nil {
			t.Fatalf("step %d: unexpected error: %v", ms, err)
		}
	}
}

func TestNewButtonDefaults(t *testing.T) {
	b, _ := newTestButton(pin.Normal)
	want := Timing{Debounce: 60, Hold: 500, ClickGroup: 500, Repeat: 400}
	if b.Timing() != want {
		t.Errorf("expected default timing %+v, got %+v", want, b.Timing())
	}
	if b.IsPressedNow() || b.IsHoldingNow() {
		t.Error("new button should be idle")
	}
}

func TestTimingSetters(t *testing.T) {
	b, _ := newTestButton(pin.Normal)
	b.SetDebounce(20)
	b.SetHoldTimeout(800)
	b.SetClickTimeout(300)
	b.SetRepeatInterval(100)

	want := Timing{Debounce: 20, Hold: 800, ClickGroup: 300, Repeat: 100}
	if b.Timing() != want {
		t.Errorf("expected %+v, got %+v", want, b.Timing())
	}
}

func TestDebounceRejectsShortPulse(t *testing.T) {
	b, p := newTestButton(pin.Normal)

	// 59ms of high never reaches the 60ms threshold
	drive(t, b, p, true, 0, 59)
	drive(t, b, p, false, 60, 200)

	if b.TookPress() {
		t.Error("short pulse should not raise press")
	}
	if b.TookRelease() {
		t.Error("short pulse should not raise release")
	}
	if b.PendingClicks() != 0 {
		t.Errorf("expected no pending clicks, got %d", b.PendingClicks())
	}
}

func TestDebounceConfirmsAtThreshold(t *testing.T) {
	b, p := newTestButton(pin.Normal)
	p.Set(true)

	for ms := uint64(0); ms < 60; ms++ {
		if err := b.Step(ms); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if b.TookPress() {
			t.Fatalf("press raised early at t=%d", ms)
		}
	}

	if err := b.Step(60); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !b.TookPress() {
		t.Error("expected press at t=60")
	}
}

func TestDebounceRestartsOnLowSample(t *testing.T) {
	b, p := newTestButton(pin.Normal)

	drive(t, b, p, true, 0, 40)
	drive(t, b, p, false, 41, 41)

	p.Set(true)
	for ms := uint64(42); ms < 102; ms++ {
		b.Step(ms)
		if b.TookPress() {
			t.Fatalf("press raised at t=%d, debounce should restart at t=42", ms)
		}
	}
	b.Step(102)
	if !b.TookPress() {
		t.Error("expected press 60ms after the restarted debounce")
	}
}

func TestConcreteTapScenario(t *testing.T) {
	b, p := newTestButton(pin.Normal)
	p.Set(true)

	for ms := uint64(0); ms <= 80; ms++ {
		b.Step(ms)
		pressed := b.TookPress()
		if ms == 60 && !pressed {
			t.Fatal("expected press at t=60")
		}
		if ms != 60 && pressed {
			t.Fatalf("unexpected press at t=%d", ms)
		}
	}

	p.Set(false)
	b.Step(81)
	if !b.TookRelease() {
		t.Error("expected release at t=81")
	}
	if !b.TookSingleClick() {
		t.Error("expected single click at t=81")
	}

	for ms := uint64(82); ms < 581; ms++ {
		b.Step(ms)
		if b.PendingClicks() != 1 {
			t.Fatalf("t=%d: expected 1 pending click, got %d", ms, b.PendingClicks())
		}
		if b.HasAnyClicks() {
			t.Fatalf("t=%d: group finalised early", ms)
		}
	}

	b.Step(581)
	if got := b.TakeClickCount(); got != 1 {
		t.Errorf("expected click count 1, got %d", got)
	}
}

func TestTripleClickGroup(t *testing.T) {
	b, p := newTestButton(pin.Normal)

	drive(t, b, p, true, 0, 100)
	drive(t, b, p, false, 101, 200)
	drive(t, b, p, true, 201, 300)
	drive(t, b, p, false, 301, 400)
	drive(t, b, p, true, 401, 500)
	drive(t, b, p, false, 501, 1000)

	if b.HasAnyClicks() {
		t.Fatal("group should still be open at t=1000")
	}

	drive(t, b, p, false, 1001, 1001)

	if b.IsExactly(1) {
		t.Error("IsExactly(1) should be false")
	}
	if b.IsDouble() {
		t.Error("IsDouble should be false")
	}
	if !b.IsTriple() {
		t.Error("IsTriple should be true")
	}
	if got := b.TakeClickCount(); got != 3 {
		t.Errorf("expected click count 3, got %d", got)
	}

	// Acknowledged group is cleared by the next step
	b.Step(1002)
	if b.HasAnyClicks() {
		t.Error("group should be cleared after acknowledgment")
	}
	if got := b.TakeClickCount(); got != 0 {
		t.Errorf("expected click count 0 after acknowledgment, got %d", got)
	}
}

func TestGroupNotFinalisedWhileAsserted(t *testing.T) {
	b, p := newTestButton(pin.Normal)
	b.SetHoldTimeout(10_000)

	drive(t, b, p, true, 0, 100)
	drive(t, b, p, false, 101, 150)
	// second press sits asserted well past the click group timeout
	drive(t, b, p, true, 151, 2000)

	if b.HasAnyClicks() {
		t.Error("group must not finalise while the button is asserted")
	}
}

func TestHoldPreemptsTap(t *testing.T) {
	b, p := newTestButton(pin.Normal)

	holds := 0
	p.Set(true)
	for ms := uint64(0); ms <= 1000; ms++ {
		b.Step(ms)
		if b.TookHoldStarted() {
			holds++
			if ms != 500 {
				t.Errorf("hold started at t=%d, want 500", ms)
			}
		}
		if ms > 500 && !b.IsHoldingNow() {
			t.Fatalf("t=%d: expected holding", ms)
		}
	}
	if holds != 1 {
		t.Errorf("expected exactly one hold start, got %d", holds)
	}

	drive(t, b, p, false, 1001, 3000)

	if !b.TookRelease() {
		t.Error("expected release after hold")
	}
	if b.TookSingleClick() {
		t.Error("hold must not produce a single click")
	}
	if b.IsHoldingNow() {
		t.Error("hold should end on release")
	}
	if b.PendingClicks() != 0 {
		t.Errorf("expected 0 pending clicks, got %d", b.PendingClicks())
	}
	if b.HasAnyClicks() {
		t.Error("hold must not finalise a click group")
	}
}

func TestHoldRemembersPriorClicks(t *testing.T) {
	b, p := newTestButton(pin.Normal)

	drive(t, b, p, true, 0, 100)
	drive(t, b, p, false, 101, 200)
	drive(t, b, p, true, 201, 300)
	drive(t, b, p, false, 301, 400)
	if b.PendingClicks() != 2 {
		t.Fatalf("expected 2 pending clicks, got %d", b.PendingClicks())
	}

	drive(t, b, p, true, 401, 1200)
	if !b.TookHoldStarted() {
		t.Fatal("expected hold")
	}
	if got := b.TakeHoldClickCount(); got != 2 {
		t.Errorf("expected hold click count 2, got %d", got)
	}

	drive(t, b, p, false, 1201, 3000)
	if b.HasAnyClicks() {
		t.Error("taps before a hold must not finalise a group")
	}
	// not cleared by reading
	if got := b.TakeHoldClickCount(); got != 2 {
		t.Errorf("hold click count should persist, got %d", got)
	}
}

func TestTookPressIsIdempotent(t *testing.T) {
	b, p := newTestButton(pin.Normal)
	drive(t, b, p, true, 0, 60)

	if !b.TookPress() {
		t.Error("first TookPress should be true")
	}
	if b.TookPress() {
		t.Error("second TookPress should be false")
	}
}

func TestStickyFlagsSurviveLatePolling(t *testing.T) {
	b, p := newTestButton(pin.Normal)
	drive(t, b, p, true, 0, 100)
	drive(t, b, p, false, 101, 5000)

	if !b.TookPress() || !b.TookRelease() || !b.TookSingleClick() {
		t.Error("events should wait for the consumer")
	}
	if got := b.TakeClickCount(); got != 1 {
		t.Errorf("expected click count 1, got %d", got)
	}
}

func TestStepReadErrorIsFailAtomic(t *testing.T) {
	b, p := newTestButton(pin.Normal)
	drive(t, b, p, true, 0, 30)

	hwErr := errors.New("simulated error")
	p.ReadError = hwErr
	err := b.Step(31)
	if err == nil {
		t.Fatal("expected error")
	}
	var re *ReadError
	if !errors.As(err, &re) {
		t.Fatalf("expected *ReadError, got %T", err)
	}
	if !errors.Is(err, hwErr) {
		t.Error("ReadError should unwrap to the pin error")
	}

	// debounce started at t=0 must survive the failed step
	p.ReadError = nil
	drive(t, b, p, true, 32, 60)
	if !b.TookPress() {
		t.Error("expected press at t=60 after a failed read")
	}
}

func TestReversePolarity(t *testing.T) {
	b, p := newTestButton(pin.Reverse)

	// idle high reads as released
	drive(t, b, p, true, 0, 100)
	if b.TookPress() {
		t.Fatal("idle-high reverse button should not press")
	}

	drive(t, b, p, false, 101, 200)
	if !b.TookPress() {
		t.Error("low level should press a reverse button")
	}
	if !b.IsPressedNow() {
		t.Error("expected pressed level")
	}
}

func TestClockBehindLastEdgeCountsAsNoTime(t *testing.T) {
	b, p := newTestButton(pin.Normal)
	drive(t, b, p, true, 100, 100)
	drive(t, b, p, true, 50, 50)
	drive(t, b, p, true, 20, 20)

	if b.TookPress() {
		t.Error("a clock reading behind the edge must not confirm a press")
	}
}

func TestAutoTick(t *testing.T) {
	b, p := newTestButton(pin.Normal)
	clk := clock.NewManual(0)
	b.SetAutoTick(clk)
	p.Set(true)

	if b.TookPress() {
		t.Fatal("first auto tick only starts debounce")
	}
	clk.Advance(60 * time.Millisecond)
	if !b.TookPress() {
		t.Error("auto tick at 60ms should confirm press")
	}

	p.ReadError = errors.New("simulated error")
	b.IsHoldingNow()
	if b.AutoTickErr() == nil {
		t.Error("expected auto tick error to be kept")
	}

	b.SetAutoTick(nil)
	if b.AutoTickErr() != nil {
		t.Error("disabling auto tick should clear the error")
	}
}

func TestTickAndMustTick(t *testing.T) {
	b, p := newTestButton(pin.Normal)
	clk := clock.NewManual(0)
	p.Set(true)

	b.MustTick(clk)
	clk.Advance(60 * time.Millisecond)
	if err := b.Tick(clk); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !b.TookPress() {
		t.Error("expected press")
	}
}

func TestResetAll(t *testing.T) {
	b, p := newTestButton(pin.Normal)
	drive(t, b, p, true, 0, 100)
	drive(t, b, p, false, 101, 200)
	drive(t, b, p, true, 201, 900)

	b.ResetAll()

	if b.TookPress() || b.TookRelease() || b.TookSingleClick() || b.TookHoldStarted() {
		t.Error("ResetAll should clear event flags")
	}
	if b.IsHoldingNow() {
		t.Error("ResetAll should clear holding")
	}
	if b.PendingClicks() != 0 || b.TakeHoldClickCount() != 0 || b.HasAnyClicks() {
		t.Error("ResetAll should clear counters")
	}

	// still held: no new press is reported
	drive(t, b, p, true, 901, 1000)
	if b.TookPress() {
		t.Error("a press held across reset should not be reported again")
	}
}

func TestResetAllMidTapKeepsClickPairing(t *testing.T) {
	b, p := newTestButton(pin.Normal)
	drive(t, b, p, true, 0, 100)
	if !b.TookPress() {
		t.Fatal("expected press")
	}

	b.ResetAll()
	drive(t, b, p, false, 101, 700)

	if !b.TookRelease() {
		t.Error("expected release")
	}
	if !b.TookSingleClick() {
		t.Error("a tap released after a reset should still report its click")
	}
	if !b.IsSingle() {
		t.Error("expected the tap to close a single-click group")
	}
}

func TestHoldKeepsUnacknowledgedGroup(t *testing.T) {
	b, p := newTestButton(pin.Normal)

	// tap, group closes at 601 and is left unread
	drive(t, b, p, true, 0, 100)
	drive(t, b, p, false, 101, 700)

	// edge at 701, hold at 1201
	drive(t, b, p, true, 701, 1400)
	if !b.TookHoldStarted() {
		t.Fatal("expected hold")
	}
	if got := b.TakeHoldClickCount(); got != 0 {
		t.Errorf("hold click count: got %d, want 0 (the tap was already grouped)", got)
	}
	drive(t, b, p, false, 1401, 1500)

	if !b.TookRelease() {
		t.Error("expected release after hold")
	}
	if b.PendingClicks() != 0 {
		t.Errorf("expected 0 pending clicks, got %d", b.PendingClicks())
	}
	if got := b.TakeClickCount(); got != 1 {
		t.Errorf("finalized group across hold: got %d, want 1", got)
	}
	b.Step(1501)
	if b.HasAnyClicks() {
		t.Error("group should be gone once acknowledged")
	}
}
