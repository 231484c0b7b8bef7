// Package media inspects generated clips with ffprobe. Encoding itself is
// delegated entirely to ffmpeg inside the model repository; the worker only
// reads stream metadata for the response info block.
package media

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// StreamInfo summarizes the primary video stream of a clip.
type StreamInfo struct {
	Width  int
	Height int
	Frames int
	FPS    int
}

// ErrProbeUnavailable is returned when ffprobe is not on PATH.
var ErrProbeUnavailable = errors.New("media: ffprobe not available")

// Probe reads stream metadata from the file at path.
func Probe(ctx context.Context, path string) (StreamInfo, error) {
	bin, err := exec.LookPath("ffprobe")
	if err != nil {
		return StreamInfo{}, ErrProbeUnavailable
	}

	cmd := exec.CommandContext(ctx, bin,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height,nb_frames,r_frame_rate",
		"-of", "json",
		path,
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return StreamInfo{}, fmt.Errorf("media: ffprobe %s: %w: %s", path, err, strings.TrimSpace(stderr.String()))
	}
	return parseProbe(stdout.Bytes())
}

func parseProbe(out []byte) (StreamInfo, error) {
	var decoded struct {
		Streams []struct {
			Width     int    `json:"width"`
			Height    int    `json:"height"`
			NBFrames  string `json:"nb_frames"`
			FrameRate string `json:"r_frame_rate"`
		} `json:"streams"`
	}
	if err := json.Unmarshal(out, &decoded); err != nil {
		return StreamInfo{}, fmt.Errorf("media: decode ffprobe output: %w", err)
	}
	if len(decoded.Streams) == 0 {
		return StreamInfo{}, errors.New("media: no video stream found")
	}
	s := decoded.Streams[0]
	info := StreamInfo{Width: s.Width, Height: s.Height}
	if n, err := strconv.Atoi(s.NBFrames); err == nil {
		info.Frames = n
	}
	info.FPS = parseRate(s.FrameRate)
	return info, nil
}

// parseRate converts an ffprobe rational like "24/1" or "30000/1001" to a
// rounded integer frame rate.
func parseRate(rate string) int {
	num, den, ok := strings.Cut(rate, "/")
	if !ok {
		if n, err := strconv.Atoi(strings.TrimSpace(rate)); err == nil {
			return n
		}
		return 0
	}
	n, err1 := strconv.ParseFloat(strings.TrimSpace(num), 64)
	d, err2 := strconv.ParseFloat(strings.TrimSpace(den), 64)
	if err1 != nil || err2 != nil || d == 0 {
		return 0
	}
	return int(n/d + 0.5)
}
