package record

// Rating is IMDb's aggregate user rating for a title, at most one per id.
type Rating struct {
	ID     string
	Rating float64
	Votes  uint32
}
