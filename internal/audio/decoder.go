package audio

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/faiface/beep"
	"github.com/faiface/beep/flac"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/wav"
)

// Decode decodes an audio file based on its content, falling back on
// the path extension. Cached files are named <song>_<br>.bin, so the
// extension rarely helps; the gateway serves mp3 for standard bitrates
// and flac for lossless.
func Decode(r io.ReadSeekCloser, path string) (beep.StreamSeekCloser, beep.Format, error) {
	switch sniffFormat(r, path) {
	case "flac":
		return flac.Decode(r)
	case "wav":
		return wav.Decode(r)
	case "mp3":
		return mp3.Decode(r)
	default:
		return nil, beep.Format{}, fmt.Errorf("unrecognised audio format: %s", filepath.Base(path))
	}
}

// sniffFormat inspects magic bytes, then the extension. mp3 is the
// fallback: ID3-less mp3 frames have no stable magic.
func sniffFormat(r io.ReadSeeker, path string) string {
	var head [4]byte
	n, _ := r.Read(head[:])
	_, _ = r.Seek(0, io.SeekStart)
	if n >= 4 {
		switch {
		case string(head[:4]) == "fLaC":
			return "flac"
		case string(head[:4]) == "RIFF":
			return "wav"
		}
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".flac":
		return "flac"
	case ".wav":
		return "wav"
	default:
		return "mp3"
	}
}
