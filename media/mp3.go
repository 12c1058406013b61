package media

import (
	"fmt"
	"os"

	"github.com/gopxl/beep/v2/mp3"
)

// MP3Duration decodes an MP3 file in process and returns its length in
// seconds. It serves when ffprobe is not installed.
func MP3Duration(path string) (float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	streamer, format, err := mp3.Decode(f)
	if err != nil {
		f.Close()
		return 0, fmt.Errorf("decode mp3: %w", err)
	}
	defer streamer.Close()

	if format.SampleRate == 0 {
		return 0, fmt.Errorf("decode mp3: zero sample rate")
	}
	return format.SampleRate.D(streamer.Len()).Seconds(), nil
}
