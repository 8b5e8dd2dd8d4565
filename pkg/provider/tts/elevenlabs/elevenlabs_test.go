package elevenlabs

import (
	"encoding/json"
	"strings"
	"testing"
)

// ---- Construction ----

func TestNew_Validation(t *testing.T) {
	if _, err := New("", "voice-abc123"); err == nil {
		t.Error("expected error for empty api key")
	}
	if _, err := New("xi-key", ""); err == nil {
		t.Error("expected error for empty voice id")
	}
	if _, err := New("xi-key", "voice-abc123", WithOutputFormat("mp3_44100_128")); err == nil {
		t.Error("expected error for non-pcm output format")
	}
}

func TestNew_Defaults(t *testing.T) {
	p, err := New("xi-key", "voice-abc123")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if p.model != defaultModel {
		t.Errorf("expected model %q, got %q", defaultModel, p.model)
	}
	if p.outputFormat != defaultOutputFmt {
		t.Errorf("expected output format %q, got %q", defaultOutputFmt, p.outputFormat)
	}
	if got := p.Name(); got != "elevenlabs" {
		t.Errorf("Name() = %q, want elevenlabs", got)
	}
}

// ---- URL construction ----

func TestStreamURL(t *testing.T) {
	p, err := New("xi-key", "voice-abc123", WithModel("eleven_flash_v2_5"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	url := p.streamURL()
	if !strings.Contains(url, "voice-abc123") {
		t.Errorf("URL should contain voice ID, got: %s", url)
	}
	if !strings.Contains(url, "eleven_flash_v2_5") {
		t.Errorf("URL should contain model ID, got: %s", url)
	}
	if !strings.HasPrefix(url, "wss://") {
		t.Errorf("URL should be a WebSocket URL, got: %s", url)
	}
}

// ---- Output format parsing ----

func TestParseOutputFormat(t *testing.T) {
	cases := []struct {
		format  string
		rate    int
		wantErr bool
	}{
		{"pcm_16000", 16000, false},
		{"pcm_24000", 24000, false},
		{"pcm_44100", 44100, false},
		{"mp3_44100_128", 0, true},
		{"pcm_", 0, true},
		{"pcm_abc", 0, true},
		{"", 0, true},
	}
	for _, tc := range cases {
		rate, err := parseOutputFormat(tc.format)
		if tc.wantErr {
			if err == nil {
				t.Errorf("%q: expected error", tc.format)
			}
			continue
		}
		if err != nil {
			t.Errorf("%q: unexpected error: %v", tc.format, err)
			continue
		}
		if rate != tc.rate {
			t.Errorf("%q: rate = %d, want %d", tc.format, rate, tc.rate)
		}
	}
}

// ---- WebSocket message shapes ----

func TestBOIMessage_Shape(t *testing.T) {
	boi := boiMessage{
		Text:          " ",
		VoiceSettings: &voiceSettings{Stability: 0.5, SimilarityBoost: 0.75},
		XiAPIKey:      "xi-key",
		OutputFormat:  "pcm_16000",
	}
	data, err := json.Marshal(boi)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, field := range []string{"text", "voice_settings", "xi_api_key", "output_format"} {
		if _, ok := raw[field]; !ok {
			t.Errorf("BOI message missing %q field", field)
		}
	}
	if string(raw["text"]) != `" "` {
		t.Errorf("BOI text must be a single space, got %s", raw["text"])
	}
}

func TestFlushMessage_Shape(t *testing.T) {
	// ElevenLabs flush = {"text":""} with no other fields.
	data, err := json.Marshal(textMessage{Text: ""})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal flush: %v", err)
	}
	if string(raw["text"]) != `""` {
		t.Errorf("expected empty string for text, got %s", raw["text"])
	}
	if _, exists := raw["voice_settings"]; exists {
		t.Error("flush message should not contain voice_settings")
	}
}

func TestAudioResponse_Decode(t *testing.T) {
	raw := []byte(`{"audio":"AAAA","isFinal":false,"message":"info"}`)
	var resp audioResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Audio != "AAAA" {
		t.Errorf("Audio = %q, want AAAA", resp.Audio)
	}
	if resp.IsFinal {
		t.Error("IsFinal should be false")
	}

	final := []byte(`{"isFinal":true}`)
	resp = audioResponse{}
	if err := json.Unmarshal(final, &resp); err != nil {
		t.Fatalf("unmarshal final: %v", err)
	}
	if !resp.IsFinal {
		t.Error("IsFinal should be true")
	}
}
