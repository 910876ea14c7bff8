package engine

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultGeneratorBin     = "claude"
	DefaultGeneratorTimeout = 10 * time.Minute

	maxScanTokenSize = 1024 * 1024
)

// CLIGenerator runs generation turns through an external AI CLI speaking the
// stream-json line protocol on stdout. The prompt goes in on stdin; assistant
// text is streamed through onLine; the session id is captured so a paused job
// can be resumed on the same conversation.
type CLIGenerator struct {
	Bin     string
	Args    []string
	Timeout time.Duration
}

type streamEvent struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id,omitempty"`
	Result    string `json:"result,omitempty"`
	Message   struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text,omitempty"`
		} `json:"content"`
	} `json:"message"`
}

func (g *CLIGenerator) Generate(ctx context.Context, req GenerateRequest, onLine func(string)) (GenerateResult, error) {
	bin := g.Bin
	if bin == "" {
		bin = DefaultGeneratorBin
	}
	timeout := g.Timeout
	if timeout <= 0 {
		timeout = DefaultGeneratorTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := []string{"-p", "--verbose", "--output-format", "stream-json"}
	args = append(args, g.Args...)
	if req.SessionID != "" {
		args = append(args, "--resume", req.SessionID)
	}

	cmd := exec.CommandContext(ctx, bin, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return GenerateResult{}, errors.Wrap(err, "generator stdin")
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return GenerateResult{}, errors.Wrap(err, "generator stdout")
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return GenerateResult{}, errors.Wrap(err, "generator stderr")
	}

	if err := cmd.Start(); err != nil {
		return GenerateResult{}, errors.Wrapf(err, "start generator %s", bin)
	}
	log.Debug().Str("bin", bin).Bool("resume", req.SessionID != "").Msg("generator started")

	go func() {
		defer func() { _ = stdin.Close() }()
		_, _ = io.WriteString(stdin, req.Prompt)
	}()

	var (
		textParts []string
		finalText string
		sessionID string
		errTail   []string
	)

	eg := &errgroup.Group{}
	eg.Go(func() error {
		scanner := newLineScanner(stdout)
		for scanner.Scan() {
			line := scanner.Text()
			var ev streamEvent
			if err := json.Unmarshal([]byte(line), &ev); err != nil {
				// Not a protocol frame, surface as plain output.
				textParts = append(textParts, line)
				if onLine != nil {
					onLine(line)
				}
				continue
			}
			if sessionID == "" && ev.SessionID != "" {
				sessionID = ev.SessionID
			}
			switch ev.Type {
			case "assistant":
				for _, c := range ev.Message.Content {
					if c.Type != "text" || c.Text == "" {
						continue
					}
					textParts = append(textParts, c.Text)
					if onLine != nil {
						for _, l := range strings.Split(c.Text, "\n") {
							onLine(l)
						}
					}
				}
			case "result":
				if ev.Result != "" {
					finalText = ev.Result
				}
			}
		}
		return scanner.Err()
	})
	eg.Go(func() error {
		scanner := newLineScanner(stderr)
		for scanner.Scan() {
			errTail = append(errTail, scanner.Text())
			if len(errTail) > 20 {
				errTail = errTail[1:]
			}
		}
		return scanner.Err()
	})

	scanErr := eg.Wait()
	waitErr := cmd.Wait()

	if ctx.Err() == context.DeadlineExceeded {
		return GenerateResult{}, errors.Errorf("generator %s timed out after %s", bin, timeout)
	}
	if waitErr != nil {
		if ctx.Err() == context.Canceled {
			return GenerateResult{}, ctx.Err()
		}
		detail := strings.Join(errTail, "\n")
		if detail != "" {
			return GenerateResult{}, errors.Wrapf(waitErr, "generator %s failed: %s", bin, detail)
		}
		return GenerateResult{}, errors.Wrapf(waitErr, "generator %s failed", bin)
	}
	if scanErr != nil {
		return GenerateResult{}, errors.Wrap(scanErr, "read generator output")
	}

	out := finalText
	if out == "" {
		out = strings.Join(textParts, "\n")
	}
	return GenerateResult{Output: out, SessionID: sessionID}, nil
}

func newLineScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxScanTokenSize)
	return scanner
}
