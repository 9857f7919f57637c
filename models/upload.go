package models

// MediaUpload, blob store'a yüklenmiş bir dosyanın referansı.
// Client bu değerleri bir content variant'ına (image/file/audio/video) gömer.
type MediaUpload struct {
	URL      string `json:"url"`
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	MimeType string `json:"type"`
}
