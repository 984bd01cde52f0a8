package hls

import (
	"errors"
	"fmt"
	"strings"

	"github.com/grafov/m3u8"
)

// ErrNoSegments is returned when a media playlist contains no segments.
var ErrNoSegments = errors.New("no segments in media playlist")

// ParseSegments decodes a media playlist and returns its segments with
// zero-based ordinals in playlist order.
func ParseSegments(text string) ([]Segment, error) {
	pl, listType, err := m3u8.DecodeFrom(strings.NewReader(text), false)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoSegments, err)
	}
	if listType != m3u8.MEDIA {
		return nil, fmt.Errorf("%w: got a master playlist", ErrNoSegments)
	}
	media := pl.(*m3u8.MediaPlaylist)

	var segments []Segment
	for _, seg := range media.Segments {
		// The segment buffer is preallocated; the first nil marks its end.
		if seg == nil {
			break
		}
		segments = append(segments, Segment{
			Ordinal:  len(segments),
			URI:      seg.URI,
			Duration: seg.Duration,
		})
	}
	if len(segments) == 0 {
		return nil, ErrNoSegments
	}
	return segments, nil
}
