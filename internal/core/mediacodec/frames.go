// Copyright 2025 YishanCoding
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package mediacodec extracts still frames from videos and composes 3x3
// storyboard grids. Frame capture shells out to ffmpeg/ffprobe; grid
// composition is pure in-process image work.
package mediacodec

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/h2non/filetype"

	"github.com/YishanCoding/TikTok-Viral-Video-Architect/internal/cloud"
	"github.com/YishanCoding/TikTok-Viral-Video-Architect/internal/core/model"
)

const tempFilePrefix = "frame-capture-"

// FrameCapturer grabs still frames from a video file at requested
// timestamps using ffmpeg.
type FrameCapturer struct {
	ffmpegPath  string
	ffprobePath string
}

// NewFrameCapturer builds a capturer from the pipeline configuration.
func NewFrameCapturer(cfg cloud.Pipeline) *FrameCapturer {
	out := &FrameCapturer{ffmpegPath: cfg.FFmpegPath, ffprobePath: cfg.FFprobePath}
	if out.ffmpegPath == "" {
		out.ffmpegPath = "ffmpeg"
	}
	if out.ffprobePath == "" {
		out.ffprobePath = "ffprobe"
	}
	return out
}

// CaptureFrames extracts one still per timestamp (seconds), returning
// base64 JPEG strings in the same order and of the same length as the
// input. A timestamp outside the video's duration, or one ffmpeg cannot
// seek to, yields an empty-string placeholder rather than failing the
// batch. A video that cannot be written or probed at all is a hard failure
// for the whole batch.
//
// Frames are captured sequentially: each seek-and-grab completes before
// the next begins. Each frame is downsampled to half the native width to
// bound memory and latency.
func (f *FrameCapturer) CaptureFrames(ctx context.Context, video *model.MediaAsset, timestamps []float64) ([]string, error) {
	if video == nil || len(video.Data) == 0 {
		return nil, &cloud.LocalError{Op: "capture-frames", Err: fmt.Errorf("no video data")}
	}

	videoFile, err := f.writeTempVideo(video)
	if err != nil {
		return nil, &cloud.LocalError{Op: "capture-frames", Err: err}
	}
	defer os.Remove(videoFile)

	duration, err := f.ProbeDuration(ctx, videoFile)
	if err != nil {
		return nil, &cloud.LocalError{Op: "capture-frames", Err: fmt.Errorf("failed to probe video: %w", err)}
	}

	screenshots := make([]string, len(timestamps))
	for i, ts := range timestamps {
		if ts < 0 || ts > duration {
			continue
		}
		frame, err := f.grabFrame(ctx, videoFile, ts)
		if err != nil {
			slog.Warn("frame grab failed, leaving placeholder", "timestamp", ts, "error", err)
			continue
		}
		screenshots[i] = frame
	}
	return screenshots, nil
}

// ProbeDuration returns the duration of the video file in seconds.
func (f *FrameCapturer) ProbeDuration(ctx context.Context, path string) (float64, error) {
	cmd := exec.CommandContext(ctx, f.ffprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path)
	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed: %w", err)
	}
	duration, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, fmt.Errorf("unparseable ffprobe duration %q: %w", strings.TrimSpace(string(out)), err)
	}
	return duration, nil
}

// writeTempVideo persists the asset bytes to a temp file with an extension
// ffmpeg will recognize, sniffed from the content when the asset's MIME
// type does not identify one.
func (f *FrameCapturer) writeTempVideo(video *model.MediaAsset) (string, error) {
	ext := ""
	if kind, err := filetype.Match(video.Data); err == nil && kind.Extension != "unknown" {
		ext = "." + kind.Extension
	} else if parts := strings.SplitN(video.MIMEType, "/", 2); len(parts) == 2 {
		ext = "." + parts[1]
	}
	tmp, err := os.CreateTemp("", tempFilePrefix+"*"+ext)
	if err != nil {
		return "", err
	}
	defer tmp.Close()
	if _, err := tmp.Write(video.Data); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return tmp.Name(), nil
}

// grabFrame seeks to one timestamp and writes a single half-resolution
// JPEG frame. Seek settling is ffmpeg's concern; there is no explicit
// retry loop around one timestamp.
func (f *FrameCapturer) grabFrame(ctx context.Context, videoFile string, ts float64) (string, error) {
	out, err := os.CreateTemp("", tempFilePrefix+"*.jpg")
	if err != nil {
		return "", err
	}
	outName := out.Name()
	out.Close()
	defer os.Remove(outName)

	cmd := exec.CommandContext(ctx, f.ffmpegPath,
		"-y", "-hide_banner", "-loglevel", "error",
		"-ss", fmt.Sprintf("%.3f", ts),
		"-i", videoFile,
		"-frames:v", "1",
		"-vf", "scale=trunc(iw/4)*2:-2",
		"-q:v", "4",
		outName)
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("ffmpeg seek to %.3fs failed: %w", ts, err)
	}

	data, err := os.ReadFile(outName)
	if err != nil || len(data) == 0 {
		return "", fmt.Errorf("no frame produced at %.3fs", ts)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}
