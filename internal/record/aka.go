package record

// AlternateName is a non-primary localized or transliterated title name.
type AlternateName struct {
	ID         string // the title this name belongs to
	Name       string
	Region     string
	Language   string
	Attributes []string
	IsOriginal bool
}
