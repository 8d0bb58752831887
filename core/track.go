package core

// Track 是曲目的展示元数据（metadata_table 的一行）。
type Track struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Artists     []string `json:"artists"`
	Popularity  int      `json:"popularity"`
	ReleaseYear int      `json:"release_year"`
}

// LeadArtist 返回 Artists 的第一个元素。
func (t *Track) LeadArtist() string {
	if t == nil || len(t.Artists) == 0 {
		return ""
	}
	return t.Artists[0]
}
