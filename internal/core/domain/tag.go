package domain

// UntitledTagTitle replaces empty or missing tag titles on construction
// and on decode.
const UntitledTagTitle = "Untitled Tag"

// TagColor is a display color. Channels are in [0,1]; missing channels
// decode to 0 (black). Color is cosmetic and never part of tag identity.
type TagColor struct {
	Red   float64 `json:"colorRed"`
	Green float64 `json:"colorGreen"`
	Blue  float64 `json:"colorBlue"`
}

// Tag identity is its title, case-sensitive. Two tags with equal titles
// and different colors are the same tag.
type Tag struct {
	Title string   `json:"title"`
	Color TagColor `json:"color"`
}

// NewTag coerces an empty title to the untitled sentinel.
func NewTag(title string, color TagColor) Tag {
	if title == "" {
		title = UntitledTagTitle
	}
	return Tag{Title: title, Color: color}
}
