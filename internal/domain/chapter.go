package domain

type Chapter struct {
	Title string
	// Start is in whole seconds.
	Start     int64
	ImageURL  string
	Image     []byte
	Highlight bool
}
