// Package source feeds extracted crawler items into the pipeline.
package source

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"trip_hotel/internal/domain"
)

// ErrNotObject marks a payload that is valid JSON but not an object.
var ErrNotObject = errors.New("payload is not a JSON object")

// decodeFields keeps numbers as json.Number so large identifiers survive intact.
func decodeFields(b []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("decode payload: trailing data")
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, ErrNotObject
	}
	return m, nil
}

func noAck() error { return nil }

// JSONLines reads one item per line, the format of a crawler's .jl feed export.
// Blank lines are skipped. Next is not safe for concurrent use.
type JSONLines struct {
	sc     *bufio.Scanner
	closer io.Closer
	line   int
}

const maxLine = 4 << 20

func NewJSONLines(r io.Reader) *JSONLines {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLine)
	return &JSONLines{sc: sc}
}

// OpenJSONLines opens path, or stdin for "-".
func OpenJSONLines(path string) (*JSONLines, error) {
	if path == "-" || path == "" {
		return NewJSONLines(os.Stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open items file: %w", err)
	}
	s := NewJSONLines(f)
	s.closer = f
	return s, nil
}

func (s *JSONLines) Next(ctx context.Context) (domain.SourceRecord, error) {
	for {
		if err := ctx.Err(); err != nil {
			return domain.SourceRecord{}, err
		}
		if !s.sc.Scan() {
			if err := s.sc.Err(); err != nil {
				return domain.SourceRecord{}, fmt.Errorf("read items line %d: %w", s.line+1, err)
			}
			return domain.SourceRecord{}, io.EOF
		}
		s.line++
		b := bytes.TrimSpace(s.sc.Bytes())
		if len(b) == 0 {
			continue
		}
		fields, err := decodeFields(b)
		if err != nil {
			err = fmt.Errorf("line %d: %w", s.line, err)
		}
		return domain.SourceRecord{Fields: fields, Err: err, Ack: noAck}, nil
	}
}

func (s *JSONLines) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
