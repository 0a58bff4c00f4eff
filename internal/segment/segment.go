package segment

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
)

var (
	ErrInvalidSegmentLength = errors.New("segment length must be positive")
	ErrInvalidLength        = errors.New("length must be between 0 and segment length")
	ErrInvalidWrittenLength = errors.New("written length must be between 0 and length")
	ErrInvalidTotalLength   = errors.New("total length must be positive")
)

// Segment addresses one contiguous chunk of a remote resource.
//
// WrittenLength is advanced by the transport while builders read it, so it
// must only be accessed through the atomic accessors once shared.
type Segment struct {
	Index         uint32 `json:"index"`
	SegmentLength int64  `json:"segmentLength"`
	Length        int64  `json:"length"`
	WrittenLength int64  `json:"writtenLength"`
}

// New returns the unbounded sentinel: fetch the whole resource without a range.
func New() *Segment {
	return &Segment{}
}

// NewSegment creates a segment and checks its invariants.
func NewSegment(index uint32, length, segmentLength, writtenLength int64) (*Segment, error) {
	s := &Segment{
		Index:         index,
		SegmentLength: segmentLength,
		Length:        length,
		WrittenLength: writtenLength,
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}

	return s, nil
}

// Validate checks 0 <= WrittenLength <= Length <= SegmentLength. The
// unbounded sentinel has no segment length but must have nothing written.
func (s *Segment) Validate() error {
	if s.IsUnbounded() {
		if written := s.GetWrittenLength(); written != 0 {
			return fmt.Errorf("%w: writtenLength=%d length=0", ErrInvalidWrittenLength, written)
		}

		return nil
	}

	if s.SegmentLength <= 0 {
		return ErrInvalidSegmentLength
	}

	if s.Length < 0 || s.Length > s.SegmentLength {
		return fmt.Errorf("%w: length=%d segmentLength=%d", ErrInvalidLength, s.Length, s.SegmentLength)
	}

	written := s.GetWrittenLength()
	if written < 0 || written > s.Length {
		return fmt.Errorf("%w: writtenLength=%d length=%d", ErrInvalidWrittenLength, written, s.Length)
	}

	return nil
}

// IsUnbounded reports whether s is the whole-resource sentinel.
func (s *Segment) IsUnbounded() bool {
	return s.Index == 0 && s.Length == 0
}

// Offset is the absolute position of the first byte of the chunk.
func (s *Segment) Offset() int64 {
	return int64(s.Index) * s.SegmentLength
}

// Position is the absolute offset of the next unwritten byte.
func (s *Segment) Position() int64 {
	return s.Offset() + s.GetWrittenLength()
}

// EndPosition is the absolute offset of the last byte of the chunk.
func (s *Segment) EndPosition() int64 {
	return s.Offset() + s.Length - 1
}

// Remaining returns how many bytes of the chunk are still to be written.
func (s *Segment) Remaining() int64 {
	return s.Length - s.GetWrittenLength()
}

// Complete reports whether every byte of a bounded chunk has been written.
func (s *Segment) Complete() bool {
	return !s.IsUnbounded() && s.Remaining() <= 0
}

func (s *Segment) GetWrittenLength() int64 {
	return atomic.LoadInt64(&s.WrittenLength)
}

func (s *Segment) SetWrittenLength(n int64) {
	atomic.StoreInt64(&s.WrittenLength, n)
}

// Reset discards written progress so the chunk is fetched from scratch.
func (s *Segment) Reset() {
	s.SetWrittenLength(0)
}

func (s *Segment) String() string {
	if s.IsUnbounded() {
		return "segment(unbounded)"
	}

	return fmt.Sprintf("segment(%d: %d-%d, written=%d)", s.Index, s.Offset(), s.EndPosition(), s.GetWrittenLength())
}

func (s *Segment) MarshalJSON() ([]byte, error) {
	type Alias Segment

	return json.Marshal(&struct {
		*Alias

		WrittenLength int64 `json:"writtenLength"`
	}{
		Alias:         (*Alias)(s),
		WrittenLength: s.GetWrittenLength(),
	})
}
