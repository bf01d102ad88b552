// AIS-WiFi-Manager - ADS-B/AIS Forwarding Daemon
// Copyright 2026 JLBMaritime
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/JLBMaritime/AIS-WiFi-Manager

package publisher

// queue is a bounded FIFO that evicts its oldest entry when full. One
// goroutine pushes and one pops.
type queue struct {
	ch chan []byte
}

func newQueue(size int) *queue {
	if size < 1 {
		size = 1
	}
	return &queue{ch: make(chan []byte, size)}
}

// push never blocks. It returns the number of frames evicted.
func (q *queue) push(frame []byte) (evicted int) {
	for {
		select {
		case q.ch <- frame:
			return evicted
		default:
		}
		select {
		case <-q.ch:
			evicted++
		default:
		}
	}
}

// drain discards everything queued and returns the count.
func (q *queue) drain() (n int) {
	for {
		select {
		case <-q.ch:
			n++
		default:
			return n
		}
	}
}

func (q *queue) len() int { return len(q.ch) }
