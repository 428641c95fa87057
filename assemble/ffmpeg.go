package assemble

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// runFFmpeg executes ffmpeg and surfaces the tail of stderr on failure so
// encoding errors carry their cause.
func runFFmpeg(ctx context.Context, args ...string) error {
	full := append([]string{"-y", "-hide_banner", "-loglevel", "error"}, args...)
	cmd := exec.CommandContext(ctx, "ffmpeg", full...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg: %w: %s", err, tail(stderr.String(), 400))
	}
	return nil
}

// concatFiles joins same-format clips with the concat demuxer.
func concatFiles(ctx context.Context, files []string, listPath, outFile string, reencodeArgs []string) error {
	var lines []string
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			abs = f
		}
		lines = append(lines, fmt.Sprintf("file '%s'", abs))
	}
	if err := os.WriteFile(listPath, []byte(strings.Join(lines, "\n")), 0644); err != nil {
		return fmt.Errorf("write concat list: %w", err)
	}

	args := []string{"-f", "concat", "-safe", "0", "-i", listPath}
	args = append(args, reencodeArgs...)
	args = append(args, outFile)
	return runFFmpeg(ctx, args...)
}

// escapeDrawtext escapes the characters drawtext treats specially.
func escapeDrawtext(s string) string {
	r := strings.NewReplacer(
		`\`, `\\`,
		`'`, `\'`,
		`:`, `\:`,
		`%`, `\%`,
		`,`, `\,`,
	)
	return r.Replace(s)
}

// wrapSubtitle breaks chunk text into display lines without splitting words.
func wrapSubtitle(text string, lineWidth int) string {
	words := strings.Fields(text)
	var lines []string
	var current string
	for _, w := range words {
		switch {
		case current == "":
			current = w
		case len(current)+1+len(w) <= lineWidth:
			current += " " + w
		default:
			lines = append(lines, current)
			current = w
		}
	}
	if current != "" {
		lines = append(lines, current)
	}
	return strings.Join(lines, "\n")
}

func rgbHex(rgb [3]int) string {
	return fmt.Sprintf("0x%02X%02X%02X", rgb[0]&0xFF, rgb[1]&0xFF, rgb[2]&0xFF)
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
