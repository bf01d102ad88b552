// AIS-WiFi-Manager - ADS-B/AIS Forwarding Daemon
// Copyright 2026 JLBMaritime
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/JLBMaritime/AIS-WiFi-Manager

package filter

import (
	"bytes"
	"fmt"
	"strconv"

	ais "github.com/BertoldVdb/go-ais"
	"github.com/BertoldVdb/go-ais/aisnmea"
)

// maxPendingGroups bounds the number of incomplete multi-sentence messages
// held at once. The oldest is discarded first.
const maxPendingGroups = 16

// NMEADecoder reads AIS !AIVDM/!AIVDO sentences. The identifier is the
// sender's MMSI, zero padded to nine digits.
type NMEADecoder struct {
	codec   *aisnmea.NMEACodec
	pending map[string][][]byte
	order   []string
}

// NewNMEADecoder returns a decoder with an empty fragment buffer.
func NewNMEADecoder() *NMEADecoder {
	codec := ais.CodecNew(false, false)
	codec.DropSpace = true
	return &NMEADecoder{
		codec:   aisnmea.NMEACodecNew(codec),
		pending: make(map[string][][]byte),
	}
}

// Decode implements Decoder. Fragments are buffered until the last one of
// their message arrives; the returned frame then carries every fragment in
// arrival order.
func (d *NMEADecoder) Decode(line []byte) (Frame, bool, error) {
	total, num, key, err := fragmentHeader(line)
	if err != nil {
		return Frame{}, false, err
	}

	decoded, err := d.codec.ParseSentence(string(line))
	if err != nil {
		d.drop(key)
		return Frame{}, false, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}

	if total > 1 {
		if num == 1 {
			d.drop(key)
			d.hold(key)
		}
		if _, ok := d.pending[key]; !ok {
			return Frame{}, false, fmt.Errorf("%w: fragment %d/%d without its first part", ErrMalformedFrame, num, total)
		}
		d.pending[key] = append(d.pending[key], withTerminator(line, "\r\n"))
		if num < total {
			return Frame{}, false, nil
		}
	}

	if decoded == nil || decoded.Packet == nil {
		d.drop(key)
		return Frame{}, false, fmt.Errorf("%w: undecodable AIS payload", ErrMalformedFrame)
	}

	id := fmt.Sprintf("%09d", decoded.Packet.GetHeader().UserID)
	if total == 1 {
		return Frame{ID: id, Data: withTerminator(line, "\r\n")}, true, nil
	}
	data := bytes.Join(d.pending[key], nil)
	d.drop(key)
	return Frame{ID: id, Data: data}, true, nil
}

// Pending returns the number of incomplete messages being held.
func (d *NMEADecoder) Pending() int { return len(d.pending) }

func (d *NMEADecoder) hold(key string) {
	if len(d.order) >= maxPendingGroups {
		d.drop(d.order[0])
	}
	d.pending[key] = nil
	d.order = append(d.order, key)
}

func (d *NMEADecoder) drop(key string) {
	if _, ok := d.pending[key]; !ok {
		return
	}
	delete(d.pending, key)
	for i, k := range d.order {
		if k == key {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
}

// fragmentHeader reads "!AIVDM,<total>,<num>,<seq>,<channel>,...". The key
// groups fragments of one message.
func fragmentHeader(line []byte) (total, num int, key string, err error) {
	if len(line) < 7 || line[0] != '!' {
		return 0, 0, "", fmt.Errorf("%w: not an AIS sentence", ErrMalformedFrame)
	}
	fields := bytes.SplitN(line, []byte{','}, 6)
	if len(fields) < 6 {
		return 0, 0, "", fmt.Errorf("%w: %d fields", ErrMalformedFrame, len(fields))
	}
	total, err1 := strconv.Atoi(string(fields[1]))
	num, err2 := strconv.Atoi(string(fields[2]))
	if err1 != nil || err2 != nil || total < 1 || num < 1 || num > total {
		return 0, 0, "", fmt.Errorf("%w: bad fragment numbering", ErrMalformedFrame)
	}
	key = string(fields[0]) + "/" + string(fields[3]) + "/" + string(fields[4])
	return total, num, key, nil
}
