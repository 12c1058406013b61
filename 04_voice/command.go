package voice

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"eco-reel-pipeline/media"
)

// Command shells out to a local TTS binary.
//
// Supported forms:
//
//	gtts-cli           gtts-cli <text> --lang en --output <out>
//	edge-tts           edge-tts --voice <voice> --text <text> --write-media <out>
//	script.py          python3 script.py --text <text> --output <out>
//	anything else      <cmd> --text <text> --output <out>
type Command struct {
	cmd    string
	voice  string
	runner media.Runner
}

// NewCommand creates a Command provider. runner defaults to media.ExecRunner.
func NewCommand(cmd, voice string, runner media.Runner) *Command {
	cmd = strings.TrimSpace(cmd)
	if cmd == "" {
		cmd = "gtts-cli"
	}
	if voice == "" {
		voice = "en-US-AriaNeural"
	}
	if runner == nil {
		runner = media.ExecRunner{}
	}
	return &Command{cmd: cmd, voice: voice, runner: runner}
}

func (c *Command) Name() string { return "command:" + filepath.Base(c.cmd) }

func (c *Command) args(text, outputPath string) (string, []string) {
	switch {
	case filepath.Base(c.cmd) == "gtts-cli":
		return c.cmd, []string{text, "--lang", "en", "--output", outputPath}
	case filepath.Base(c.cmd) == "edge-tts":
		return c.cmd, []string{"--voice", c.voice, "--text", text, "--write-media", outputPath}
	case strings.HasSuffix(c.cmd, ".py"):
		return "python3", []string{c.cmd, "--text", text, "--output", outputPath}
	default:
		return c.cmd, []string{"--text", text, "--output", outputPath}
	}
}

func (c *Command) Synthesize(ctx context.Context, text, outputPath string) error {
	name, args := c.args(text, outputPath)
	if _, err := c.runner.Run(ctx, name, args...); err != nil {
		return fmt.Errorf("tts command: %w", err)
	}
	return nil
}
