package delta

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/aymerick/raymond"
	"github.com/google/shlex"
	"github.com/orion-system/patchforge/config"
	"github.com/orion-system/patchforge/logger"
)

// ToolError reports a delta tool invocation that exited non-zero. It aborts
// the whole patch-set build: a patch the tool could not produce must never
// be published.
type ToolError struct {
	Command  string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ToolError) Error() string {
	msg := fmt.Sprintf("delta tool failed (exit %d): %s", e.ExitCode, e.Command)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}

func (e *ToolError) Unwrap() error {
	return e.Err
}

// ExecEncoder drives an external binary-diff tool such as xdelta3. The
// command lines are templates rendered with the temp file paths {{old}},
// {{new}} and {{patch}}, then split shell-style. Every invocation gets its
// own temp directory, removed on all exit paths, and a timeout so a hung
// tool can not stall the pipeline.
type ExecEncoder struct {
	EncodeTemplate string
	ApplyTemplate  string
	Timeout        time.Duration
}

func NewExecEncoder(ps config.PatchSettings) *ExecEncoder {
	return &ExecEncoder{
		EncodeTemplate: ps.Command,
		ApplyTemplate:  ps.ApplyCommand,
		Timeout:        time.Duration(ps.TimeoutSeconds) * time.Second,
	}
}

func (x *ExecEncoder) Encode(ctx context.Context, old []byte, new []byte) ([]byte, error) {
	return x.run(ctx, x.EncodeTemplate, map[string][]byte{
		"old": orEmpty(old),
		"new": new,
	}, "patch")
}

func (x *ExecEncoder) Apply(ctx context.Context, old []byte, patch []byte) ([]byte, error) {
	return x.run(ctx, x.ApplyTemplate, map[string][]byte{
		"old":   orEmpty(old),
		"patch": patch,
	}, "new")
}

// run materializes the inputs in a scratch directory, renders and executes
// the command line, and reads back the output file named by outName.
func (x *ExecEncoder) run(ctx context.Context, template string, inputs map[string][]byte, outName string) ([]byte, error) {
	scratch, err := os.MkdirTemp("", "patchforge-delta-")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(scratch)

	tctx := map[string]string{}
	for name, data := range inputs {
		p := filepath.Join(scratch, name)
		if err := os.WriteFile(p, data, 0600); err != nil {
			return nil, err
		}
		tctx[name] = p
	}
	outPath := filepath.Join(scratch, outName)
	tctx[outName] = outPath

	command, err := raymond.Render(template, tctx)
	if err != nil {
		return nil, fmt.Errorf("bad delta command template: %w", err)
	}
	cmdLine, err := shlex.Split(command)
	if err != nil {
		return nil, fmt.Errorf("bad delta command line %q: %w", command, err)
	}
	if len(cmdLine) == 0 {
		return nil, fmt.Errorf("empty delta command line")
	}

	if x.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, x.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, cmdLine[0], cmdLine[1:]...)
	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr
	logger.Debug("running delta tool", "commandLine", command)
	if err := cmd.Run(); err != nil {
		code := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		}
		return nil, &ToolError{
			Command:  command,
			ExitCode: code,
			Stderr:   stderr.String(),
			Err:      err,
		}
	}

	out, err := os.ReadFile(outPath)
	if err != nil {
		return nil, fmt.Errorf("delta tool produced no output: %w", err)
	}
	return out, nil
}

func orEmpty(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}
