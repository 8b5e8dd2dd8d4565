package audio

import (
	"bytes"
	"encoding/binary"
	"testing"
	"time"
)

func TestPCMRoundTrip(t *testing.T) {
	t.Parallel()

	samples := []int16{0, 1, -1, 32767, -32768, 12345, -12345}
	pcm := Int16ToPCM(samples)
	got := PCMToInt16(pcm)

	if len(got) != len(samples) {
		t.Fatalf("want %d samples, got %d", len(samples), len(got))
	}
	for i := range samples {
		if got[i] != samples[i] {
			t.Fatalf("sample %d: want %d, got %d", i, samples[i], got[i])
		}
	}
}

func TestPCMToInt16TrailingByte(t *testing.T) {
	t.Parallel()

	pcm := []byte{0x01, 0x00, 0xff} // one sample plus a dangling byte
	got := PCMToInt16(pcm)
	if len(got) != 1 || got[0] != 1 {
		t.Fatalf("want [1], got %v", got)
	}
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   int16
		want float64
	}{
		{0, 0},
		{-32768, -1.0},
		{32767, 32767.0 / 32768.0},
		{16384, 0.5},
	}
	for _, c := range cases {
		if got := Normalize(c.in); got != c.want {
			t.Errorf("Normalize(%d) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	t.Parallel()

	f := Format{SampleRate: 16000, SampleWidth: 2, Channels: 1}

	t.Run("one second of audio", func(t *testing.T) {
		t.Parallel()
		if d := f.Duration(32000); d != time.Second {
			t.Fatalf("want 1s, got %v", d)
		}
	})

	t.Run("zero format yields zero", func(t *testing.T) {
		t.Parallel()
		if d := (Format{}).Duration(32000); d != 0 {
			t.Fatalf("want 0, got %v", d)
		}
	})
}

func TestEncodeWAV(t *testing.T) {
	t.Parallel()

	pcm := Int16ToPCM([]int16{100, -100, 200, -200})
	f := Format{SampleRate: 16000, SampleWidth: 2, Channels: 1}
	wav := EncodeWAV(pcm, f)

	if len(wav) != 44+len(pcm) {
		t.Fatalf("want %d bytes, got %d", 44+len(pcm), len(wav))
	}
	if !bytes.Equal(wav[0:4], []byte("RIFF")) || !bytes.Equal(wav[8:12], []byte("WAVE")) {
		t.Fatalf("missing RIFF/WAVE markers: %q %q", wav[0:4], wav[8:12])
	}
	if rate := binary.LittleEndian.Uint32(wav[24:28]); rate != 16000 {
		t.Fatalf("want sample rate 16000, got %d", rate)
	}
	if bits := binary.LittleEndian.Uint16(wav[34:36]); bits != 16 {
		t.Fatalf("want 16 bits per sample, got %d", bits)
	}
	if size := binary.LittleEndian.Uint32(wav[40:44]); int(size) != len(pcm) {
		t.Fatalf("want data size %d, got %d", len(pcm), size)
	}
	if !bytes.Equal(wav[44:], pcm) {
		t.Fatal("payload bytes do not match input PCM")
	}
}
