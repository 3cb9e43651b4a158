package provider

import (
	"context"
	"fmt"
	"sync"
)

// MockClient is a lightweight scripted Client useful for tests & examples.
// Each call to Generate consumes the next scripted turn; when the script is
// exhausted it echoes the last user message.
type MockClient struct {
	mu    sync.Mutex
	info  Info
	turns [][]Chunk
	errs  []error
	calls []Request
}

// NewMockClient constructs a MockClient reporting the given model name.
func NewMockClient(name string) *MockClient {
	return &MockClient{info: Info{Name: name, Provider: "mock"}}
}

// QueueTurn appends a scripted turn: the chunks are replayed in order on a
// future Generate call.
func (m *MockClient) QueueTurn(chunks ...Chunk) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns = append(m.turns, chunks)
	m.errs = append(m.errs, nil)
}

// QueueError appends a scripted failing turn.
func (m *MockClient) QueueError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns = append(m.turns, nil)
	m.errs = append(m.errs, err)
}

// Requests returns a copy of every Request seen so far.
func (m *MockClient) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.calls))
	copy(out, m.calls)
	return out
}

// Generate implements Client; replays the next scripted turn.
func (m *MockClient) Generate(ctx context.Context, req Request) (<-chan Chunk, <-chan error) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	var chunks []Chunk
	var scriptErr error
	if len(m.turns) > 0 {
		chunks, scriptErr = m.turns[0], m.errs[0]
		m.turns, m.errs = m.turns[1:], m.errs[1:]
	} else {
		text := "Mock response"
		for i := len(req.Messages) - 1; i >= 0; i-- {
			if req.Messages[i].Role == "user" {
				text = fmt.Sprintf("Mock response to: %s", req.Messages[i].Content)
				break
			}
		}
		chunks = []Chunk{{Text: text, FinishReason: FinishStop}}
	}
	m.mu.Unlock()

	out := make(chan Chunk, len(chunks)+1)
	errCh := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errCh)
		if scriptErr != nil {
			errCh <- scriptErr
			return
		}
		for _, ck := range chunks {
			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			case out <- ck:
			}
		}
	}()
	return out, errCh
}

// Info implements Client.
func (m *MockClient) Info() Info { return m.info }
