// Package mux hands an ordered concat list to an external media tool that
// joins the listed segments into one output file without re-encoding.
package mux

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ErrMuxer is matched by every *Error.
var ErrMuxer = errors.New("muxer failed")

// Muxer concatenates the files named in listFile into outputFile.
type Muxer interface {
	Concatenate(ctx context.Context, listFile, outputFile string) error
}

// Error reports a failed concatenation together with the tool's output.
type Error struct {
	ListFile   string
	OutputFile string
	Output     string
	Err        error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("concatenate %s into %s: %v", e.ListFile, e.OutputFile, e.Err)
	if out := strings.TrimSpace(e.Output); out != "" {
		msg += ": " + out
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool { return target == ErrMuxer }

// FFmpeg runs the ffmpeg concat demuxer with stream copy.
type FFmpeg struct {
	// Binary is the ffmpeg executable; empty means "ffmpeg" from PATH.
	Binary string
}

// Concatenate implements Muxer.
func (f FFmpeg) Concatenate(ctx context.Context, listFile, outputFile string) error {
	cmd := exec.CommandContext(ctx, f.binary(), concatArgs(listFile, outputFile)...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return &Error{ListFile: listFile, OutputFile: outputFile, Output: string(out), Err: err}
	}
	return nil
}

func (f FFmpeg) binary() string {
	if b := strings.TrimSpace(f.Binary); b != "" {
		return b
	}
	return "ffmpeg"
}

func concatArgs(listFile, outputFile string) []string {
	return []string{
		"-hide_banner",
		"-loglevel", "error",
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listFile,
		"-c", "copy",
		outputFile,
	}
}

// Status describes whether the muxer binary can be executed.
type Status struct {
	Command   string
	Available bool
	Detail    string
}

// Check resolves binary on PATH so a missing ffmpeg is reported before any
// segment is downloaded.
func Check(binary string) Status {
	name := FFmpeg{Binary: binary}.binary()
	path, err := exec.LookPath(name)
	if err != nil {
		return Status{Command: name, Detail: fmt.Sprintf("binary %q not found", name)}
	}
	return Status{Command: path, Available: true}
}
