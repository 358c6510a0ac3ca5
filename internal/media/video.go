package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"strconv"
	"time"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/example/regionkit/internal/geometry"
	"github.com/example/regionkit/internal/logging"
)

// VideoSource grabs one frame from a video file with ffmpeg.
type VideoSource struct {
	Path      string
	Timestamp time.Duration
}

var (
	probe     = ffmpeg.Probe
	grabFrame = runFFmpeg
)

type videoProbe struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Frame returns the frame at Timestamp. When ffmpeg cannot deliver pixels
// but ffprobe reports the stream size, a *PixelAccessError is returned.
func (s VideoSource) Frame(ctx context.Context) (image.Image, error) {
	if s.Timestamp < 0 {
		return nil, fmt.Errorf("video frame: negative timestamp %v", s.Timestamp)
	}
	var buf bytes.Buffer
	err := grabFrame(ctx, s.Path, s.Timestamp, &buf)
	if err == nil && buf.Len() > 0 {
		img, derr := png.Decode(&buf)
		if derr == nil {
			return img, nil
		}
		err = derr
	}
	if err == nil {
		err = fmt.Errorf("no frame at %v", s.Timestamp)
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	dims, perr := s.Probe()
	if perr != nil {
		return nil, fmt.Errorf("video frame %s: %w", s.Path, err)
	}
	logging.Debug("ffmpeg frame grab failed for %s: %v", s.Path, err)
	return nil, &PixelAccessError{Dimensions: dims.Dimensions, Err: err}
}

// VideoInfo is what ffprobe reports about a video.
type VideoInfo struct {
	geometry.Dimensions
	Duration time.Duration
}

// Probe reads the size of the first video stream and the container duration.
func (s VideoSource) Probe() (VideoInfo, error) {
	out, err := probe(s.Path)
	if err != nil {
		return VideoInfo{}, fmt.Errorf("ffprobe %s: %w", s.Path, err)
	}
	var p videoProbe
	if err := json.Unmarshal([]byte(out), &p); err != nil {
		return VideoInfo{}, fmt.Errorf("ffprobe %s: %w", s.Path, err)
	}
	var info VideoInfo
	if secs, err := strconv.ParseFloat(p.Format.Duration, 64); err == nil {
		info.Duration = time.Duration(secs * float64(time.Second))
	}
	for _, st := range p.Streams {
		if st.CodecType == "video" && st.Width > 0 && st.Height > 0 {
			info.Dimensions = geometry.Dimensions{Width: st.Width, Height: st.Height}
			return info, nil
		}
	}
	return VideoInfo{}, fmt.Errorf("ffprobe %s: no video stream", s.Path)
}

func runFFmpeg(ctx context.Context, path string, at time.Duration, w *bytes.Buffer) error {
	var stderr bytes.Buffer
	cmd := ffmpeg.Input(path, ffmpeg.KwArgs{"ss": strconv.FormatFloat(at.Seconds(), 'f', 3, 64)}).
		Output("pipe:1", ffmpeg.KwArgs{
			"format":  "image2pipe",
			"vcodec":  "png",
			"vframes": 1,
		}).
		WithOutput(w).
		WithErrorOutput(&stderr)
	cmd.Context = ctx
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg: %w: %s", err, bytes.TrimSpace(stderr.Bytes()))
	}
	return nil
}
