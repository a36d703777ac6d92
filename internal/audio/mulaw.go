package audio

// G.711 μ-law codec (PCMU). Telephony audio arrives as one μ-law byte per
// sample at 8kHz; decoding expands each byte to a 16-bit linear PCM sample.

const (
	// mulawBias is the bias constant from the ITU-T G.711 decompression table.
	mulawBias = 0x84
	// mulawClip is the maximum linear magnitude the encoder accepts before
	// clipping, keeping the biased value inside the 15-bit segment range.
	mulawClip = 32635
)

// mulawDecodeTable maps every μ-law byte to its linear PCM sample. Building
// the table once guarantees all 256 inputs go through the same formula.
var mulawDecodeTable = buildMulawDecodeTable()

func buildMulawDecodeTable() [256]int16 {
	var table [256]int16
	for i := 0; i < 256; i++ {
		// μ-law is transmitted bit-inverted
		b := ^byte(i)
		sign := b & 0x80
		exponent := (b >> 4) & 0x07
		mantissa := b & 0x0F

		magnitude := ((int32(mantissa)<<3 + mulawBias) << exponent) - mulawBias

		if sign != 0 {
			magnitude = -magnitude
		}
		table[i] = int16(magnitude)
	}
	return table
}

// DecodeMulawSample expands a single μ-law byte to a 16-bit linear PCM sample.
// Total over the full 0..255 domain; 0xFF (μ-law silence) decodes to 0.
func DecodeMulawSample(b byte) int16 {
	return mulawDecodeTable[b]
}

// DecodeMulaw expands μ-law bytes to linear PCM samples, one sample per byte.
func DecodeMulaw(data []byte) []int16 {
	samples := make([]int16, len(data))
	for i, b := range data {
		samples[i] = mulawDecodeTable[b]
	}
	return samples
}

// EncodeMulawSample compresses a 16-bit linear PCM sample to a μ-law byte.
// Kept for symmetry with the decoder and for round-trip testing.
func EncodeMulawSample(sample int16) byte {
	var sign byte
	magnitude := int32(sample)
	if magnitude < 0 {
		sign = 0x80
		magnitude = -magnitude
	}
	if magnitude > mulawClip {
		magnitude = mulawClip
	}
	magnitude += mulawBias

	exponent := byte(7)
	for mask := int32(0x4000); mask != 0x40 && magnitude&mask == 0; mask >>= 1 {
		exponent--
	}

	mantissa := byte((magnitude >> (exponent + 3)) & 0x0F)
	return ^(sign | exponent<<4 | mantissa)
}

// EncodeMulaw compresses linear PCM samples to μ-law bytes.
func EncodeMulaw(samples []int16) []byte {
	data := make([]byte, len(samples))
	for i, s := range samples {
		data[i] = EncodeMulawSample(s)
	}
	return data
}
