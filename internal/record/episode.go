package record

// Episode subordinates a tvEpisode Title to its parent tvSeries Title.
type Episode struct {
	ID        string // the tvEpisode title's id
	TVShowID  string // the parent tvSeries/tvMiniSeries title's id
	Season    *uint32
	Episode   *uint32
}
