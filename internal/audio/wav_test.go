package audio

import (
	"encoding/binary"
	"testing"
)

func TestEncodeWAV_Empty(t *testing.T) {
	data, err := EncodeWAV(nil, 8000, 1, 16)
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}

	if len(data) != 44 {
		t.Fatalf("expected exactly 44 bytes for empty PCM, got %d", len(data))
	}
	if chunkSize := binary.LittleEndian.Uint32(data[4:8]); chunkSize != 36 {
		t.Errorf("expected ChunkSize 36, got %d", chunkSize)
	}
	if dataSize := binary.LittleEndian.Uint32(data[40:44]); dataSize != 0 {
		t.Errorf("expected Subchunk2Size 0, got %d", dataSize)
	}
}

func TestEncodeWAV_HeaderFields(t *testing.T) {
	samples := []int16{0, 100, -100, 32767, -32768}
	data, err := EncodeWAV(samples, 8000, 1, 16)
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}

	if len(data) != 44+len(samples)*2 {
		t.Fatalf("expected %d bytes, got %d", 44+len(samples)*2, len(data))
	}
	if string(data[0:4]) != "RIFF" {
		t.Errorf("missing RIFF marker: %q", data[0:4])
	}
	if string(data[8:12]) != "WAVE" {
		t.Errorf("missing WAVE marker: %q", data[8:12])
	}
	if string(data[12:16]) != "fmt " {
		t.Errorf("missing fmt chunk: %q", data[12:16])
	}
	if string(data[36:40]) != "data" {
		t.Errorf("missing data chunk: %q", data[36:40])
	}

	dataSize := binary.LittleEndian.Uint32(data[40:44])
	if int(dataSize) != len(samples)*2 {
		t.Errorf("expected Subchunk2Size %d, got %d", len(samples)*2, dataSize)
	}
	chunkSize := binary.LittleEndian.Uint32(data[4:8])
	if chunkSize != 36+dataSize {
		t.Errorf("expected ChunkSize %d, got %d", 36+dataSize, chunkSize)
	}
	if byteRate := binary.LittleEndian.Uint32(data[28:32]); byteRate != 16000 {
		t.Errorf("expected ByteRate 16000 for 8kHz mono 16-bit, got %d", byteRate)
	}
	if blockAlign := binary.LittleEndian.Uint16(data[32:34]); blockAlign != 2 {
		t.Errorf("expected BlockAlign 2, got %d", blockAlign)
	}
}

func TestEncodeWAV_InvalidParams(t *testing.T) {
	tests := []struct {
		name          string
		sampleRate    int
		channels      int
		bitsPerSample int
	}{
		{"zero sample rate", 0, 1, 16},
		{"negative sample rate", -8000, 1, 16},
		{"zero channels", 8000, 0, 16},
		{"unsupported bit depth", 8000, 1, 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := EncodeWAV([]int16{1, 2}, tt.sampleRate, tt.channels, tt.bitsPerSample); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestWAVRoundTrip(t *testing.T) {
	samples := []int16{0, 1, -1, 1000, -1000, 32767, -32768}
	data, err := EncodeWAV(samples, 8000, 1, 16)
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}

	decoded, rate, err := DecodeWAV(data)
	if err != nil {
		t.Fatalf("DecodeWAV failed: %v", err)
	}
	if rate != 8000 {
		t.Errorf("expected sample rate 8000, got %d", rate)
	}
	if len(decoded) != len(samples) {
		t.Fatalf("expected %d samples, got %d", len(samples), len(decoded))
	}
	for i := range samples {
		if decoded[i] != samples[i] {
			t.Errorf("sample %d: expected %d, got %d", i, samples[i], decoded[i])
		}
	}
}

func TestDecodeWAV_Truncated(t *testing.T) {
	if _, _, err := DecodeWAV([]byte{1, 2, 3}); err == nil {
		t.Error("expected error for truncated data, got nil")
	}
}

func TestWAVDuration(t *testing.T) {
	samples := make([]int16, 8000) // 1 second at 8kHz
	data, err := EncodeWAV(samples, 8000, 1, 16)
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}

	duration, err := WAVDuration(data)
	if err != nil {
		t.Fatalf("WAVDuration failed: %v", err)
	}
	if duration != 1.0 {
		t.Errorf("expected duration 1.0s, got %f", duration)
	}
}
