package speech

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"time"

	log "github.com/sirupsen/logrus"
)

// Canonical assessment audio: mono, 16 kHz, 16-bit PCM.
const (
	TargetSampleRate = 16000
	TargetBits       = 16
	TargetChannels   = 1
)

var errNotWAV = errors.New("not a RIFF/WAVE stream")

type wavFormat struct {
	audioFormat   uint16
	channels      int
	sampleRate    int
	bitsPerSample int
}

// NormalizeWAV converts audio to the canonical format. RIFF PCM input is decoded
// in process; any other container goes through ffmpeg when ffmpegPath is set.
// On failure the original bytes are returned unchanged.
func NormalizeWAV(ctx context.Context, data []byte, ffmpegPath string) []byte {
	out, err := normalizeRIFF(data)
	if err == nil {
		return out
	}

	if !errors.Is(err, errNotWAV) || ffmpegPath == "" {
		log.WithError(err).Debug("wav normalization skipped, passing original audio")
		return data
	}

	converted, ffErr := transcodeWithFFmpeg(ctx, data, ffmpegPath)
	if ffErr != nil {
		log.WithError(ffErr).Warn("ffmpeg conversion failed, passing original audio")
		return data
	}
	if out, err := normalizeRIFF(converted); err == nil {
		return out
	}
	return converted
}

func normalizeRIFF(data []byte) ([]byte, error) {
	format, pcm, err := parseWAV(data)
	if err != nil {
		return nil, err
	}
	if format.audioFormat == 1 && format.channels == TargetChannels &&
		format.sampleRate == TargetSampleRate && format.bitsPerSample == TargetBits {
		return PCMToWAV(pcm, TargetSampleRate, TargetBits, TargetChannels), nil
	}

	samples, err := decodeMono(format, pcm)
	if err != nil {
		return nil, err
	}
	samples = resampleLinear(samples, format.sampleRate, TargetSampleRate)
	return PCMToWAV(encodePCM16(samples), TargetSampleRate, TargetBits, TargetChannels), nil
}

func parseWAV(data []byte) (wavFormat, []byte, error) {
	var format wavFormat
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return format, nil, errNotWAV
	}

	var pcm []byte
	haveFmt := false
	for pos := 12; pos+8 <= len(data); {
		id := string(data[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		body := pos + 8
		end := body + size
		// streamed writers (ffmpeg to a pipe) leave the size unset
		if size < 0 || end > len(data) {
			end = len(data)
		}

		switch id {
		case "fmt ":
			if end-body < 16 {
				return format, nil, fmt.Errorf("wav: short fmt chunk")
			}
			chunk := data[body:end]
			format.audioFormat = binary.LittleEndian.Uint16(chunk[0:2])
			format.channels = int(binary.LittleEndian.Uint16(chunk[2:4]))
			format.sampleRate = int(binary.LittleEndian.Uint32(chunk[4:8]))
			format.bitsPerSample = int(binary.LittleEndian.Uint16(chunk[14:16]))
			if format.audioFormat == 0xFFFE && len(chunk) >= 26 {
				// WAVE_FORMAT_EXTENSIBLE: sub-format tag leads the GUID
				format.audioFormat = binary.LittleEndian.Uint16(chunk[24:26])
			}
			haveFmt = true
		case "data":
			pcm = data[body:end]
		}

		pos = end
		if size%2 == 1 {
			pos++
		}
	}

	if !haveFmt || pcm == nil {
		return format, nil, fmt.Errorf("wav: missing fmt or data chunk")
	}
	if format.channels < 1 || format.sampleRate < 1 {
		return format, nil, fmt.Errorf("wav: invalid format %+v", format)
	}
	return format, pcm, nil
}

// decodeMono averages channels into float samples in [-1, 1].
func decodeMono(f wavFormat, pcm []byte) ([]float64, error) {
	bytesPerSample := f.bitsPerSample / 8
	switch {
	case f.audioFormat == 1 && (f.bitsPerSample == 8 || f.bitsPerSample == 16 || f.bitsPerSample == 24 || f.bitsPerSample == 32):
	case f.audioFormat == 3 && f.bitsPerSample == 32:
	default:
		return nil, fmt.Errorf("wav: unsupported encoding format=%d bits=%d", f.audioFormat, f.bitsPerSample)
	}

	frameSize := bytesPerSample * f.channels
	frames := len(pcm) / frameSize
	out := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for ch := 0; ch < f.channels; ch++ {
			off := i*frameSize + ch*bytesPerSample
			sum += decodeSample(f, pcm[off:off+bytesPerSample])
		}
		out[i] = sum / float64(f.channels)
	}
	return out, nil
}

func decodeSample(f wavFormat, b []byte) float64 {
	switch f.bitsPerSample {
	case 8:
		return (float64(b[0]) - 128) / 128
	case 16:
		return float64(int16(binary.LittleEndian.Uint16(b))) / 32768
	case 24:
		v := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
		if v&0x800000 != 0 {
			v |= ^0xFFFFFF
		}
		return float64(v) / 8388608
	default:
		bits := binary.LittleEndian.Uint32(b)
		if f.audioFormat == 3 {
			return float64(math.Float32frombits(bits))
		}
		return float64(int32(bits)) / 2147483648
	}
}

func resampleLinear(in []float64, from, to int) []float64 {
	if from == to || len(in) == 0 {
		return in
	}
	n := int(math.Round(float64(len(in)) * float64(to) / float64(from)))
	if n < 1 {
		n = 1
	}
	out := make([]float64, n)
	ratio := float64(from) / float64(to)
	last := len(in) - 1
	for i := range out {
		pos := float64(i) * ratio
		idx := int(pos)
		if idx >= last {
			out[i] = in[last]
			continue
		}
		frac := pos - float64(idx)
		out[i] = in[idx]*(1-frac) + in[idx+1]*frac
	}
	return out
}

func encodePCM16(samples []float64) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(math.Round(s*32767))))
	}
	return out
}

// PCMToWAV wraps raw PCM audio data with a 44-byte WAV header.
func PCMToWAV(pcmData []byte, sampleRate, bitsPerSample, channels int) []byte {
	dataLen := len(pcmData)
	byteRate := sampleRate * channels * bitsPerSample / 8
	blockAlign := channels * bitsPerSample / 8

	header := make([]byte, 44)
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], uint32(36+dataLen))
	copy(header[8:12], "WAVE")
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[20:22], 1)
	binary.LittleEndian.PutUint16(header[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(header[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(header[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(header[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(header[34:36], uint16(bitsPerSample))
	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], uint32(dataLen))

	return append(header, pcmData...)
}

func transcodeWithFFmpeg(ctx context.Context, data []byte, ffmpegPath string) ([]byte, error) {
	if _, err := exec.LookPath(ffmpegPath); err != nil {
		return nil, fmt.Errorf("ffmpeg unavailable: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, ffmpegPath,
		"-hide_banner", "-loglevel", "error",
		"-i", "pipe:0",
		"-ar", fmt.Sprint(TargetSampleRate),
		"-ac", fmt.Sprint(TargetChannels),
		"-sample_fmt", "s16",
		"-f", "wav", "pipe:1",
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdin = bytes.NewReader(data)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg: %w: %s", err, truncate(stderr.String(), 200))
	}
	if stdout.Len() == 0 {
		return nil, fmt.Errorf("ffmpeg produced no output")
	}
	return stdout.Bytes(), nil
}
