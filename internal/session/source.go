package session

import (
	"errors"
	"io"

	"github.com/flamemarketdc-cyber/SErver-Builder/internal/provider"
)

// TokenSource yields successive text fragments of a model response.
// Recv returns io.EOF once the response ended normally. A fragment is only
// valid when the error is nil.
type TokenSource interface {
	Recv() (string, error)
}

// SourceFunc adapts a function to TokenSource.
type SourceFunc func() (string, error)

// Recv implements TokenSource.
func (f SourceFunc) Recv() (string, error) {
	return f()
}

// FromCompletion reads the text content of a provider stream.
func FromCompletion(stream *provider.CompletionStream) TokenSource {
	return SourceFunc(func() (string, error) {
		msg, err := stream.Recv()
		if err != nil {
			return "", err
		}
		if msg == nil {
			return "", nil
		}
		return msg.Content, nil
	})
}

// FromStrings replays fixed chunks, then returns io.EOF.
func FromStrings(chunks ...string) TokenSource {
	i := 0
	return SourceFunc(func() (string, error) {
		if i >= len(chunks) {
			return "", io.EOF
		}
		i++
		return chunks[i-1], nil
	})
}

// FromReader reads r in pieces of at most chunkSize bytes. A chunkSize of
// zero or less reads whatever each Read call returns into a 4 KiB buffer.
// Chunks may split multi-byte characters; the decoder only compares bytes.
func FromReader(r io.Reader, chunkSize int) TokenSource {
	if chunkSize <= 0 {
		chunkSize = 4096
	}
	buf := make([]byte, chunkSize)
	var pending error
	return SourceFunc(func() (string, error) {
		for pending == nil {
			n, err := r.Read(buf)
			if err != nil {
				pending = err
			}
			if n > 0 {
				return string(buf[:n]), nil
			}
		}
		if errors.Is(pending, io.EOF) {
			return "", io.EOF
		}
		return "", pending
	})
}
