package http

import (
	"errors"
	"fmt"
	nethttp "net/http"
	"strconv"
	"strings"
)

var (
	ErrRangeStartMismatch  = errors.New("range start does not match segment position")
	ErrRangeEndMismatch    = errors.New("range end does not match requested end")
	ErrEntityLengthChanged = errors.New("entity length differs from the confirmed length")

	ErrInvalidContentRange  = errors.New("invalid Content-Range header")
	ErrInvalidContentLength = errors.New("invalid Content-Length header")
)

// Range is the byte range a server reports for a response: first and last
// byte offsets and the total resource size.
type Range struct {
	Start        int64
	End          int64
	EntityLength int64
}

func (r Range) String() string {
	return fmt.Sprintf("bytes %d-%d/%d", r.Start, r.End, r.EntityLength)
}

// CheckRange returns nil when r is exactly what was asked for and may be
// appended to the bytes already written, or the reason it may not. A non-nil
// result means the segment must be restarted from scratch.
func (b *Builder) CheckRange(r Range) error {
	if b.segment == nil {
		return ErrNoSegment
	}

	if r.Start != b.segment.Position() {
		return fmt.Errorf("%w: got %d, want %d", ErrRangeStartMismatch, r.Start, b.segment.Position())
	}

	if end := b.EndByte(); end > 0 && r.End != end {
		return fmt.Errorf("%w: got %d, want %d", ErrRangeEndMismatch, r.End, end)
	}

	if b.entityLength != 0 && b.entityLength != r.EntityLength {
		return fmt.Errorf("%w: got %d, want %d", ErrEntityLengthChanged, r.EntityLength, b.entityLength)
	}

	return nil
}

// IsRangeSatisfied reports whether r may be appended to the written bytes.
// It does not record r.EntityLength; callers do that after accepting.
func (b *Builder) IsRangeSatisfied(r Range) bool {
	return b.CheckRange(r) == nil
}

// ParseContentRange parses a Content-Range value of the form
// "bytes first-last/total". An unknown total ("*") yields EntityLength 0.
func ParseContentRange(value string) (Range, error) {
	value = strings.TrimSpace(value)

	unit, spec, ok := strings.Cut(value, " ")
	if !ok || !strings.EqualFold(unit, "bytes") {
		return Range{}, fmt.Errorf("%w: %q", ErrInvalidContentRange, value)
	}

	span, total, ok := strings.Cut(strings.TrimSpace(spec), "/")
	if !ok {
		return Range{}, fmt.Errorf("%w: %q", ErrInvalidContentRange, value)
	}

	first, last, ok := strings.Cut(span, "-")
	if !ok {
		return Range{}, fmt.Errorf("%w: %q", ErrInvalidContentRange, value)
	}

	var r Range
	var err error

	if r.Start, err = parseDigits(first); err != nil {
		return Range{}, fmt.Errorf("%w: %q", ErrInvalidContentRange, value)
	}

	if r.End, err = parseDigits(last); err != nil {
		return Range{}, fmt.Errorf("%w: %q", ErrInvalidContentRange, value)
	}

	if total != "*" {
		if r.EntityLength, err = parseDigits(total); err != nil {
			return Range{}, fmt.Errorf("%w: %q", ErrInvalidContentRange, value)
		}
	}

	if r.Start < 0 || r.End < r.Start || (r.EntityLength > 0 && r.End >= r.EntityLength) {
		return Range{}, fmt.Errorf("%w: %q", ErrInvalidContentRange, value)
	}

	return r, nil
}

// parseDigits accepts only unsigned decimal numbers; strconv alone would
// also take a leading sign.
func parseDigits(s string) (int64, error) {
	if s == "" || s[0] < '0' || s[0] > '9' {
		return 0, strconv.ErrSyntax
	}

	return strconv.ParseInt(s, 10, 64)
}

// RangeFromHeader derives the response range from Content-Range, falling
// back to Content-Length for a full response and to (0, 0, 0) when neither
// header is present.
func RangeFromHeader(h nethttp.Header) (Range, error) {
	if cr := h.Get("Content-Range"); cr != "" {
		return ParseContentRange(cr)
	}

	cl := h.Get("Content-Length")
	if cl == "" {
		return Range{}, nil
	}

	n, err := strconv.ParseInt(strings.TrimSpace(cl), 10, 64)
	if err != nil || n < 0 {
		return Range{}, fmt.Errorf("%w: %q", ErrInvalidContentLength, cl)
	}

	if n == 0 {
		return Range{}, nil
	}

	return Range{Start: 0, End: n - 1, EntityLength: n}, nil
}
