package tags

import (
	"encoding/json"

	"github.com/inkfold/notecore/internal/core/domain"
)

// tagRecord is the persisted shape of a tag: flat color channels rather
// than a nested color object, matching the snapshot wire format.
type tagRecord struct {
	Title string  `json:"title"`
	Red   float64 `json:"colorRed"`
	Green float64 `json:"colorGreen"`
	Blue  float64 `json:"colorBlue"`
}

type snapshotRecord struct {
	Tags     []tagRecord         `json:"tags"`
	NoteTags map[string][]string `json:"noteTags"`
}

type snapshotData struct {
	Tags     []domain.Tag
	NoteTags map[string][]string
}

func encodeSnapshot(data snapshotData) ([]byte, error) {
	record := snapshotRecord{
		Tags:     make([]tagRecord, 0, len(data.Tags)),
		NoteTags: data.NoteTags,
	}
	if record.NoteTags == nil {
		record.NoteTags = map[string][]string{}
	}
	for _, tag := range data.Tags {
		record.Tags = append(record.Tags, tagRecord{
			Title: tag.Title,
			Red:   tag.Color.Red,
			Green: tag.Color.Green,
			Blue:  tag.Color.Blue,
		})
	}
	return json.Marshal(record)
}

// decodeSnapshot tolerates either field being absent and coerces empty
// titles to the untitled sentinel. Missing color channels decode to 0.
func decodeSnapshot(raw []byte) (snapshotData, error) {
	var record snapshotRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return snapshotData{}, err
	}

	data := snapshotData{
		Tags:     make([]domain.Tag, 0, len(record.Tags)),
		NoteTags: record.NoteTags,
	}
	if data.NoteTags == nil {
		data.NoteTags = map[string][]string{}
	}
	for _, tr := range record.Tags {
		data.Tags = append(data.Tags, domain.NewTag(tr.Title, domain.TagColor{
			Red:   tr.Red,
			Green: tr.Green,
			Blue:  tr.Blue,
		}))
	}
	return data, nil
}
