package hls

// Resolution is the RESOLUTION attribute of a variant stream.
type Resolution struct {
	Width  int
	Height int
}

// Variant is one alternative-quality stream listed in a master playlist.
type Variant struct {
	URI        string
	Resolution Resolution
	Bandwidth  uint32
}

// Segment is one media chunk of a media playlist.
// Ordinal is the zero-based position in the playlist and defines playback order.
type Segment struct {
	Ordinal  int
	URI      string
	Duration float64
}
