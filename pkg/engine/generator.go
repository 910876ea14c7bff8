package engine

import (
	"context"
	"sync"
	"time"
)

type GenerateRequest struct {
	Prompt string
	// SessionID resumes a previous generator conversation when continuing a
	// paused job.
	SessionID string
}

type GenerateResult struct {
	Output    string
	SessionID string
}

// Generator runs one generation turn, streaming raw output lines through
// onLine as they arrive and returning the full output at the end.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest, onLine func(string)) (GenerateResult, error)
}

// GenerateTurn is one scripted generator response.
type GenerateTurn struct {
	Lines  []string
	Output string
	Err    error
}

// ScriptedGenerator plays back canned turns, one per Generate call. Used by
// tests and the smoketest command in place of a real generator process.
type ScriptedGenerator struct {
	Turns     []GenerateTurn
	SessionID string
	// Delay is applied before each line, letting tests exercise cancellation
	// mid-stream.
	Delay time.Duration

	mu    sync.Mutex
	calls []GenerateRequest
}

func (g *ScriptedGenerator) Generate(ctx context.Context, req GenerateRequest, onLine func(string)) (GenerateResult, error) {
	g.mu.Lock()
	turn := GenerateTurn{}
	if n := len(g.calls); n < len(g.Turns) {
		turn = g.Turns[n]
	} else if len(g.Turns) > 0 {
		turn = g.Turns[len(g.Turns)-1]
	}
	g.calls = append(g.calls, req)
	g.mu.Unlock()

	for _, line := range turn.Lines {
		if g.Delay > 0 {
			select {
			case <-ctx.Done():
				return GenerateResult{}, ctx.Err()
			case <-time.After(g.Delay):
			}
		} else if ctx.Err() != nil {
			return GenerateResult{}, ctx.Err()
		}
		if onLine != nil {
			onLine(line)
		}
	}
	if turn.Err != nil {
		return GenerateResult{}, turn.Err
	}
	sid := g.SessionID
	if sid == "" {
		sid = "scripted-session"
	}
	return GenerateResult{Output: turn.Output, SessionID: sid}, nil
}

// Calls returns a copy of the requests seen so far.
func (g *ScriptedGenerator) Calls() []GenerateRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]GenerateRequest(nil), g.calls...)
}
