package video

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	"io"
	"os/exec"

	"github.com/ivlev/stagekeys/internal/config"
	"github.com/ivlev/stagekeys/internal/system"
)

// VideoEncoder consumes frames in order until the channel is closed. Frames
// come from the system image pool and are returned to it once written.
type VideoEncoder interface {
	Encode(ctx context.Context, frames <-chan *image.RGBA, videoPath string, params config.ExportParams) error
}

type FFmpegEncoder struct{}

func (e *FFmpegEncoder) Encode(ctx context.Context, frames <-chan *image.RGBA, videoPath string, params config.ExportParams) error {
	args := buildFFmpegArgs(videoPath, params)

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("stdin pipe error: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("ffmpeg start error: %w", err)
	}

	var writeErr error
	for frame := range frames {
		// Keep draining after a failed write so the producer is not blocked
		if writeErr == nil {
			writeErr = writeRawRGBA(stdin, frame)
		}
		system.PutImage(frame)
	}
	stdin.Close()

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("ffmpeg wait error: %w\n%s", err, out.String())
	}
	if writeErr != nil {
		return fmt.Errorf("write raw error: %w", writeErr)
	}
	return nil
}

func buildFFmpegArgs(videoPath string, params config.ExportParams) []string {
	encoderName := params.Encoder
	if encoderName == "" {
		encoderName = "libx264"
	}

	args := []string{
		"-y",
		"-f", "rawvideo",
		"-pixel_format", "rgba",
		"-video_size", fmt.Sprintf("%dx%d", params.Width, params.Height),
		"-framerate", fmt.Sprintf("%d", params.FPS),
		"-i", "-",
		"-pix_fmt", "yuv420p",
		"-c:v", encoderName,
	}

	quality := params.Quality
	switch encoderName {
	case "h264_videotoolbox":
		// VideoToolbox does not take -q:v everywhere, use a bitrate instead
		if quality <= 0 {
			quality = 75
		}
		args = append(args, "-b:v", fmt.Sprintf("%dk", quality*100))
	case "h264_nvenc":
		if quality <= 0 {
			quality = 23
		}
		args = append(args, "-cq", fmt.Sprintf("%d", quality))
	default: // libx264
		if quality <= 0 {
			quality = 23
		}
		args = append(args, "-crf", fmt.Sprintf("%d", quality), "-preset", "medium")
	}

	args = append(args, videoPath)
	return args
}

func writeRawRGBA(w io.Writer, img image.Image) error {
	bounds := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	// rawvideo needs tightly packed rows starting at the origin
	if !ok || rgba.Stride != bounds.Dx()*4 || rgba.Rect.Min.X != 0 || rgba.Rect.Min.Y != 0 {
		rgba = image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	}
	_, err := w.Write(rgba.Pix)
	return err
}
