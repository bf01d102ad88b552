// AIS-WiFi-Manager - ADS-B/AIS Forwarding Daemon
// Copyright 2026 JLBMaritime
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/JLBMaritime/AIS-WiFi-Manager

package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	sbsLine = "MSG,3,1,1,a92f2d,1,2026/01/01,12:00:00.000,2026/01/01,12:00:00.000,,37000,,,51.47,-0.45,,,0,0,0,0"

	aisSingle = "!AIVDM,1,1,,B,177KQJ5000G?tO`K>RA1wUbN0TKH,0*5C"
	aisPart1  = "!AIVDM,2,1,1,A,55?MbV02;H;s<HtKR20EHE:0@T4@Dn2222222216L961O5Gf0NSQEp6ClRp8,0*1C"
	aisPart2  = "!AIVDM,2,2,1,A,88888888880,2*25"
)

func TestNewDecoder(t *testing.T) {
	for _, format := range []string{"sbs", "nmea", "raw"} {
		d, err := NewDecoder(format)
		require.NoError(t, err, format)
		assert.NotNil(t, d)
	}
	_, err := NewDecoder("beast")
	assert.Error(t, err)
}

func TestSBSDecoder(t *testing.T) {
	frame, ok, err := SBSDecoder{}.Decode([]byte(sbsLine))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "A92F2D", frame.ID)
	assert.Equal(t, sbsLine+"\n", string(frame.Data))
}

func TestSBSDecoder_TISB(t *testing.T) {
	frame, ok, err := SBSDecoder{}.Decode([]byte("MSG,8,1,1,~4CA2D6,1,,,,,,,,,,,,,,,,"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "4CA2D6", frame.ID)
}

func TestSBSDecoder_Malformed(t *testing.T) {
	for _, line := range []string{
		"",
		"MSG,3,1,1",
		"MSG,3,1,1,,1,2026/01/01",
		"MSG,3,1,1,NOTHEX,1",
		"garbage with no commas",
	} {
		_, ok, err := SBSDecoder{}.Decode([]byte(line))
		assert.ErrorIs(t, err, ErrMalformedFrame, "line %q", line)
		assert.False(t, ok)
	}
}

func TestRawDecoder(t *testing.T) {
	frame, ok, err := RawDecoder{}.Decode([]byte("anything at all"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, frame.ID)
	assert.Equal(t, "anything at all\n", string(frame.Data))
}

func TestNMEADecoder_SingleSentence(t *testing.T) {
	d := NewNMEADecoder()

	frame, ok, err := d.Decode([]byte(aisSingle))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "477553000", frame.ID)
	assert.Equal(t, aisSingle+"\r\n", string(frame.Data))
}

func TestNMEADecoder_MultiSentenceForwardedAsGroup(t *testing.T) {
	d := NewNMEADecoder()

	_, ok, err := d.Decode([]byte(aisPart1))
	require.NoError(t, err)
	assert.False(t, ok, "first fragment alone is not a frame")
	assert.Equal(t, 1, d.Pending())

	frame, ok, err := d.Decode([]byte(aisPart2))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "351759000", frame.ID)
	assert.Equal(t, aisPart1+"\r\n"+aisPart2+"\r\n", string(frame.Data))
	assert.Equal(t, 0, d.Pending())
}

func TestNMEADecoder_OrphanFragment(t *testing.T) {
	d := NewNMEADecoder()

	_, ok, err := d.Decode([]byte(aisPart2))
	assert.ErrorIs(t, err, ErrMalformedFrame)
	assert.False(t, ok)
}

func TestNMEADecoder_BadChecksum(t *testing.T) {
	d := NewNMEADecoder()

	_, _, err := d.Decode([]byte("!AIVDM,1,1,,B,177KQJ5000G?tO`K>RA1wUbN0TKH,0*00"))
	assert.ErrorIs(t, err, ErrMalformedFrame)
}

func TestNMEADecoder_NotAIS(t *testing.T) {
	d := NewNMEADecoder()

	for _, line := range []string{"", "$GPGGA,123519,4807.038,N", "!AIVDM,x,1,,B,abc,0*00", "!AIVDM,1"} {
		_, _, err := d.Decode([]byte(line))
		assert.ErrorIs(t, err, ErrMalformedFrame, "line %q", line)
	}
}

func TestNMEADecoder_PendingIsBounded(t *testing.T) {
	d := NewNMEADecoder()

	// Incomplete messages under distinct keys; none ever completes.
	for seq := 0; seq < maxPendingGroups+5; seq++ {
		d.hold(string(rune('a' + seq)))
	}
	assert.Equal(t, maxPendingGroups, d.Pending())
}
