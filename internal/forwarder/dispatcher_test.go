// AIS-WiFi-Manager - ADS-B/AIS Forwarding Daemon
// Copyright 2026 JLBMaritime
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/JLBMaritime/AIS-WiFi-Manager

package forwarder

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JLBMaritime/AIS-WiFi-Manager/internal/filter"
)

type collector struct {
	mu     sync.Mutex
	frames []string
}

func (c *collector) Offer(frame []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, string(frame))
}

func (c *collector) got() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.frames...)
}

func TestDispatcher_SBSFanOut(t *testing.T) {
	a, b := &collector{}, &collector{}
	d := newDispatcher(nil, filter.SBSDecoder{}, filter.New(filter.ModeSpecific, []string{"a92f2d"}), []offerer{a, b})

	for _, line := range []string{sbsA92F2D, sbs4CA123, "MSG,3", sbsA92F2D} {
		d.dispatch([]byte(line))
	}

	want := []string{sbsA92F2D + "\n", sbsA92F2D + "\n"}
	assert.Equal(t, want, a.got())
	assert.Equal(t, want, b.got(), "every publisher receives every accepted frame")
	assert.Equal(t, FrameCounters{Received: 4, Malformed: 1, Filtered: 1, Accepted: 2}, d.counters())
}

func TestDispatcher_ModeAllStillDropsMalformed(t *testing.T) {
	c := &collector{}
	d := newDispatcher(nil, filter.SBSDecoder{}, filter.New(filter.ModeAll, nil), []offerer{c})

	d.dispatch([]byte(sbs4CA123))
	d.dispatch([]byte("MSG,3,1,1,NOTHEX,1"))

	assert.Equal(t, []string{sbs4CA123 + "\n"}, c.got())
	assert.Equal(t, uint64(1), d.counters().Malformed)
}

func TestDispatcher_NMEAMultiSentence(t *testing.T) {
	c := &collector{}
	d := newDispatcher(nil, filter.NewNMEADecoder(), filter.New(filter.ModeSpecific, []string{"351759000"}), []offerer{c})

	d.dispatch([]byte("!AIVDM,1,1,,B,177KQJ5000G?tO`K>RA1wUbN0TKH,0*5C"))
	d.dispatch([]byte("!AIVDM,2,1,1,A,55?MbV02;H;s<HtKR20EHE:0@T4@Dn2222222216L961O5Gf0NSQEp6ClRp8,0*1C"))
	assert.Empty(t, c.got(), "first fragment is held until the group completes")
	d.dispatch([]byte("!AIVDM,2,2,1,A,88888888880,2*25"))

	got := c.got()
	require.Len(t, got, 1)
	assert.Equal(t, "!AIVDM,2,1,1,A,55?MbV02;H;s<HtKR20EHE:0@T4@Dn2222222216L961O5Gf0NSQEp6ClRp8,0*1C\r\n!AIVDM,2,2,1,A,88888888880,2*25\r\n", got[0])
	assert.Equal(t, uint64(1), d.counters().Filtered)
}

func TestDispatcher_MalformedWarningsAreThrottled(t *testing.T) {
	d := newDispatcher(nil, filter.SBSDecoder{}, filter.New(filter.ModeAll, nil), nil)

	for i := 0; i < 50; i++ {
		d.dispatch([]byte("junk"))
	}
	// One warning is allowed per interval; the rest are counted.
	assert.Equal(t, uint64(49), d.suppressed)
	assert.Equal(t, uint64(50), d.counters().Malformed)
}

func TestDispatcher_ServeStopsOnCancel(t *testing.T) {
	in := make(chan []byte, 1)
	c := &collector{}
	d := newDispatcher(in, filter.RawDecoder{}, filter.New(filter.ModeAll, nil), []offerer{c})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Serve(ctx) }()

	in <- []byte("anything")
	require.Eventually(t, func() bool { return len(c.got()) == 1 }, time.Second, time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Serve did not return")
	}
}
