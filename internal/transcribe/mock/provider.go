// Package mock provides a mock transcription provider for testing and
// for running the relay without cloud credentials.
package mock

import (
	"context"
	"sync"
)

// DefaultTranscripts are cycled through when no scripted transcripts
// are queued.
var DefaultTranscripts = []string{
	"Hello, how are you?",
	"I will be there in ten minutes",
	"Can you send me the address?",
	"Thank you very much",
}

// Provider implements transcribe.Provider with scripted responses.
type Provider struct {
	mu       sync.Mutex
	queue    []string
	next     int
	calls    int
	lastMIME string
	err      error
}

// New creates a mock provider cycling through DefaultTranscripts.
func New() *Provider {
	return &Provider{}
}

// Script queues transcripts to return in order, overriding the
// defaults. An empty string is returned as-is, simulating silence.
func (p *Provider) Script(transcripts ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queue = append(p.queue, transcripts...)
}

// Fail makes every subsequent call return err.
func (p *Provider) Fail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

// Transcribe returns the next scripted or default transcript.
func (p *Provider) Transcribe(_ context.Context, _ []byte, mimeType string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.calls++
	p.lastMIME = mimeType
	if p.err != nil {
		return "", p.err
	}
	if len(p.queue) > 0 {
		out := p.queue[0]
		p.queue = p.queue[1:]
		return out, nil
	}
	out := DefaultTranscripts[p.next%len(DefaultTranscripts)]
	p.next++
	return out, nil
}

// Calls returns how many times Transcribe was invoked.
func (p *Provider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// LastMIMEType returns the content type of the most recent call.
func (p *Provider) LastMIMEType() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastMIME
}
