package hls

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/grafov/m3u8"
)

// ErrNoVariants is returned when a master playlist lists no variant streams.
var ErrNoVariants = errors.New("no variants in master playlist")

// ParseVariants decodes a master playlist and returns its variants in listed order.
// I-frame-only playlists are trick-play renditions, not playable variants, and
// are left out.
func ParseVariants(text string) ([]Variant, error) {
	pl, listType, err := m3u8.DecodeFrom(strings.NewReader(text), false)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoVariants, err)
	}
	if listType != m3u8.MASTER {
		return nil, fmt.Errorf("%w: got a media playlist", ErrNoVariants)
	}
	master := pl.(*m3u8.MasterPlaylist)

	variants := make([]Variant, 0, len(master.Variants))
	for _, v := range master.Variants {
		if v == nil || v.URI == "" || v.Iframe {
			continue
		}
		variants = append(variants, Variant{
			URI:        v.URI,
			Resolution: parseResolution(v.Resolution),
			Bandwidth:  v.Bandwidth,
		})
	}
	if len(variants) == 0 {
		return nil, ErrNoVariants
	}
	return variants, nil
}

// SelectHighestResolution parses a master playlist, picks the variant with the
// greatest height and returns its URI resolved against baseURL.
// Variants of equal height keep their listed order, so the first one wins.
func SelectHighestResolution(text, baseURL string) (string, error) {
	variants, err := ParseVariants(text)
	if err != nil {
		return "", err
	}
	best := highest(variants)
	return ResolveURL(baseURL, best.URI)
}

func highest(variants []Variant) Variant {
	sorted := make([]Variant, len(variants))
	copy(sorted, variants)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Resolution.Height > sorted[j].Resolution.Height
	})
	return sorted[0]
}

// parseResolution reads "WIDTHxHEIGHT". Missing or invalid values yield zero.
func parseResolution(s string) Resolution {
	w, h, ok := strings.Cut(strings.TrimSpace(s), "x")
	if !ok {
		return Resolution{}
	}
	width, errW := strconv.Atoi(w)
	height, errH := strconv.Atoi(h)
	if errW != nil || errH != nil {
		return Resolution{}
	}
	return Resolution{Width: width, Height: height}
}
