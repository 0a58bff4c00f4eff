package segment

import (
	"fmt"

	"github.com/NamanBalaji/segreq/internal/logger"
)

// DefaultSegmentLength is used when the caller does not choose one (1 MB).
const DefaultSegmentLength int64 = 1024 * 1024

// Plan partitions a resource of totalLength bytes into segments of
// segmentLength bytes. The final segment carries the remainder.
func Plan(totalLength, segmentLength int64) ([]*Segment, error) {
	if totalLength <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidTotalLength, totalLength)
	}

	if segmentLength <= 0 {
		segmentLength = DefaultSegmentLength
	}

	count := (totalLength + segmentLength - 1) / segmentLength
	logger.Debugf("Planning %d segments of %d bytes for resource of %d bytes", count, segmentLength, totalLength)

	segments := make([]*Segment, 0, count)
	for i := range count {
		length := segmentLength
		if remaining := totalLength - i*segmentLength; remaining < segmentLength {
			length = remaining
		}

		segments = append(segments, &Segment{
			Index:         uint32(i),
			SegmentLength: segmentLength,
			Length:        length,
		})
	}

	return segments, nil
}
