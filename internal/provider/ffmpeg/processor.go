// Package ffmpeg implements the post-processing adapter: it erases the
// generator's corner watermark and applies a quality-enhancement filter
// chain. When ffmpeg is missing the adapter degrades to a byte copy instead
// of failing — a watermarked upload beats no upload.
package ffmpeg

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Watermarks sit in the bottom-right corner of generated videos; the region
// is expressed relative to the frame so it survives any resolution.
const (
	delogoFilter = "delogo=x=iw*0.78:y=ih*0.88:w=iw*0.2:h=ih*0.1"
	enhanceChain = "hqdn3d=1.5:1.5:6:6,unsharp=5:5:0.8:3:3:0.4"
)

// Processor implements pipeline.PostProcessor by shelling out to ffmpeg.
type Processor struct {
	outputDir string
	log       *slog.Logger

	// Injection points for tests.
	lookPath func(file string) (string, error)
	runCmd   func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// New returns a Processor that writes cleaned videos to outputDir.
func New(outputDir string, log *slog.Logger) *Processor {
	return &Processor{
		outputDir: outputDir,
		log:       log,
		lookPath:  exec.LookPath,
		runCmd: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return exec.CommandContext(ctx, name, args...).CombinedOutput()
		},
	}
}

// Process implements pipeline.PostProcessor. It tries, in order: the full
// delogo+enhance pass, a simple crop pass that trims the watermarked edges,
// and finally a plain byte copy. Only a failure of all three is an error.
func (p *Processor) Process(ctx context.Context, inputPath string) (string, error) {
	if _, err := os.Stat(inputPath); err != nil {
		return "", fmt.Errorf("input video not found: %w", err)
	}
	if err := os.MkdirAll(p.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	outputPath := filepath.Join(p.outputDir,
		fmt.Sprintf("cleaned_%d_%s.mp4", time.Now().Unix(), uuid.NewString()[:8]))

	ffmpegPath, err := p.lookPath("ffmpeg")
	if err != nil {
		p.log.Warn("ffmpeg not found, copying video without watermark removal")
		return outputPath, copyFile(inputPath, outputPath)
	}

	encoder := p.bestEncoder(ctx, ffmpegPath)

	err = p.run(ctx, ffmpegPath, inputPath, outputPath, delogoFilter+","+enhanceChain, encoder)
	if err == nil {
		return outputPath, nil
	}
	p.log.Warn("delogo pass failed, falling back to crop", slog.String("error", err.Error()))

	// Crop off the watermarked edges instead.
	err = p.run(ctx, ffmpegPath, inputPath, outputPath, "crop=iw*0.9:ih*0.9:0:0", encoder)
	if err == nil {
		return outputPath, nil
	}
	p.log.Warn("crop pass failed, copying video unmodified", slog.String("error", err.Error()))

	return outputPath, copyFile(inputPath, outputPath)
}

func (p *Processor) run(ctx context.Context, ffmpegPath, in, out, filter string, encoder []string) error {
	args := []string{"-hide_banner", "-y", "-i", in, "-vf", filter}
	args = append(args, encoder...)
	args = append(args, "-c:a", "copy", out)

	if output, err := p.runCmd(ctx, ffmpegPath, args...); err != nil {
		return fmt.Errorf("ffmpeg: %w: %s", err, tail(string(output), 200))
	}
	return nil
}

// bestEncoder probes the available encoders, preferring NVENC hardware
// encoding over libx264.
func (p *Processor) bestEncoder(ctx context.Context, ffmpegPath string) []string {
	output, err := p.runCmd(ctx, ffmpegPath, "-hide_banner", "-encoders")
	if err != nil {
		return []string{"-c:v", "libx264", "-preset", "medium", "-crf", "23"}
	}
	encoders := string(output)
	if strings.Contains(encoders, "h264_nvenc") {
		return []string{"-c:v", "h264_nvenc", "-preset", "p7", "-rc", "vbr", "-cq", "19", "-b:v", "5M"}
	}
	return []string{"-c:v", "libx264", "-preset", "medium", "-crf", "23"}
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copy %s to %s: %w", src, dst, err)
	}
	return out.Close()
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
