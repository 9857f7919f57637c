package models

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/akinalp/dmrelay/pkg"
)

// ContentKind, bir mesajın hangi içerik variant'ını taşıdığını belirtir.
type ContentKind string

const (
	ContentText     ContentKind = "text"
	ContentImage    ContentKind = "image"
	ContentFile     ContentKind = "file"
	ContentAudio    ContentKind = "audio"
	ContentVideo    ContentKind = "video"
	ContentLocation ContentKind = "location"
	ContentContact  ContentKind = "contact"
)

// maxTextLength, metin mesajı ve caption için rune limiti.
const maxTextLength = 2000

// ImageContent, yüklenmiş bir görselin referansı.
type ImageContent struct {
	URL     string `json:"url"`
	Caption string `json:"caption,omitempty"`
}

// FileContent, yüklenmiş genel bir dosya.
type FileContent struct {
	URL      string `json:"url"`
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	MimeType string `json:"type"`
}

// AudioContent, ses kaydı. Duration saniye cinsinden.
type AudioContent struct {
	URL      string  `json:"url"`
	Duration float64 `json:"duration"`
}

// VideoContent, video + opsiyonel thumbnail.
type VideoContent struct {
	URL          string  `json:"url"`
	Duration     float64 `json:"duration"`
	ThumbnailURL string  `json:"thumbnail,omitempty"`
}

// LocationContent, konum paylaşımı.
type LocationContent struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address,omitempty"`
}

// ContactContent, kartvizit paylaşımı. Telefon veya email'den en az biri gerekir.
type ContactContent struct {
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

// Content, bir mesajın tagged-variant içeriği.
//
// Type alanı hangi payload'ın dolu olduğunu söyler; tam olarak bir payload
// pointer'ı nil olmamalıdır. Wire formatı:
//
//	{"type":"text","text":"merhaba"}
//	{"type":"location","location":{"latitude":41.0,"longitude":29.0}}
type Content struct {
	Type     ContentKind      `json:"type"`
	Text     *string          `json:"text,omitempty"`
	Image    *ImageContent    `json:"image,omitempty"`
	File     *FileContent     `json:"file,omitempty"`
	Audio    *AudioContent    `json:"audio,omitempty"`
	Video    *VideoContent    `json:"video,omitempty"`
	Location *LocationContent `json:"location,omitempty"`
	Contact  *ContactContent  `json:"contact,omitempty"`
}

// TextContent, düz metin içerik kurar.
func TextContent(text string) Content {
	return Content{Type: ContentText, Text: &text}
}

// presentKinds, dolu olan payload'ların kind listesini döner.
func (c *Content) presentKinds() []ContentKind {
	var kinds []ContentKind
	if c.Text != nil {
		kinds = append(kinds, ContentText)
	}
	if c.Image != nil {
		kinds = append(kinds, ContentImage)
	}
	if c.File != nil {
		kinds = append(kinds, ContentFile)
	}
	if c.Audio != nil {
		kinds = append(kinds, ContentAudio)
	}
	if c.Video != nil {
		kinds = append(kinds, ContentVideo)
	}
	if c.Location != nil {
		kinds = append(kinds, ContentLocation)
	}
	if c.Contact != nil {
		kinds = append(kinds, ContentContact)
	}
	return kinds
}

// Validate, içeriğin tam olarak bir variant taşıdığını ve o variant'ın
// alanlarının geçerli olduğunu kontrol eder. Type boşsa dolu payload'dan çıkarılır.
// Metin alanları trim edilir (in-place).
//
// Tüm hatalar pkg.ErrInvalidContent ile sarılır.
func (c *Content) Validate() error {
	kinds := c.presentKinds()
	switch len(kinds) {
	case 0:
		return fmt.Errorf("%w: message content is required", pkg.ErrInvalidContent)
	case 1:
	default:
		return fmt.Errorf("%w: exactly one content variant allowed, got %d", pkg.ErrInvalidContent, len(kinds))
	}

	if c.Type == "" {
		c.Type = kinds[0]
	}
	if c.Type != kinds[0] {
		return fmt.Errorf("%w: type %q does not match %q payload", pkg.ErrInvalidContent, c.Type, kinds[0])
	}

	switch c.Type {
	case ContentText:
		text := strings.TrimSpace(*c.Text)
		if err := validateText(text, true); err != nil {
			return err
		}
		c.Text = &text
	case ContentImage:
		if strings.TrimSpace(c.Image.URL) == "" {
			return fmt.Errorf("%w: image url is required", pkg.ErrInvalidContent)
		}
		c.Image.Caption = strings.TrimSpace(c.Image.Caption)
		if err := validateText(c.Image.Caption, false); err != nil {
			return err
		}
	case ContentFile:
		if strings.TrimSpace(c.File.URL) == "" || strings.TrimSpace(c.File.Name) == "" {
			return fmt.Errorf("%w: file url and name are required", pkg.ErrInvalidContent)
		}
		if c.File.Size < 0 {
			return fmt.Errorf("%w: file size must not be negative", pkg.ErrInvalidContent)
		}
	case ContentAudio:
		if strings.TrimSpace(c.Audio.URL) == "" {
			return fmt.Errorf("%w: audio url is required", pkg.ErrInvalidContent)
		}
		if c.Audio.Duration < 0 {
			return fmt.Errorf("%w: audio duration must not be negative", pkg.ErrInvalidContent)
		}
	case ContentVideo:
		if strings.TrimSpace(c.Video.URL) == "" {
			return fmt.Errorf("%w: video url is required", pkg.ErrInvalidContent)
		}
		if c.Video.Duration < 0 {
			return fmt.Errorf("%w: video duration must not be negative", pkg.ErrInvalidContent)
		}
	case ContentLocation:
		if c.Location.Latitude < -90 || c.Location.Latitude > 90 ||
			c.Location.Longitude < -180 || c.Location.Longitude > 180 {
			return fmt.Errorf("%w: coordinates out of range", pkg.ErrInvalidContent)
		}
	case ContentContact:
		c.Contact.Name = strings.TrimSpace(c.Contact.Name)
		if c.Contact.Name == "" {
			return fmt.Errorf("%w: contact name is required", pkg.ErrInvalidContent)
		}
		if strings.TrimSpace(c.Contact.Phone) == "" && strings.TrimSpace(c.Contact.Email) == "" {
			return fmt.Errorf("%w: contact needs a phone or an email", pkg.ErrInvalidContent)
		}
	default:
		return fmt.Errorf("%w: unknown content type %q", pkg.ErrInvalidContent, c.Type)
	}

	return nil
}

func validateText(text string, required bool) error {
	n := utf8.RuneCountInString(text)
	if required && n == 0 {
		return fmt.Errorf("%w: message text is required", pkg.ErrInvalidContent)
	}
	if n > maxTextLength {
		return fmt.Errorf("%w: text must be at most %d characters", pkg.ErrInvalidContent, maxTextLength)
	}
	return nil
}

// Clone, içeriğin derin kopyasını döner. Forward işleminde orijinal
// mesajın payload'ı yeni mesajla paylaşılmasın diye kullanılır.
func (c Content) Clone() Content {
	out := Content{Type: c.Type}
	if c.Text != nil {
		t := *c.Text
		out.Text = &t
	}
	if c.Image != nil {
		v := *c.Image
		out.Image = &v
	}
	if c.File != nil {
		v := *c.File
		out.File = &v
	}
	if c.Audio != nil {
		v := *c.Audio
		out.Audio = &v
	}
	if c.Video != nil {
		v := *c.Video
		out.Video = &v
	}
	if c.Location != nil {
		v := *c.Location
		out.Location = &v
	}
	if c.Contact != nil {
		v := *c.Contact
		out.Contact = &v
	}
	return out
}

// SearchText, arama index'ine yazılacak düz metni döner.
// Metin, caption, dosya adı, adres ve kişi adı aranabilir.
func (c *Content) SearchText() string {
	switch {
	case c.Text != nil:
		return *c.Text
	case c.Image != nil:
		return c.Image.Caption
	case c.File != nil:
		return c.File.Name
	case c.Location != nil:
		return c.Location.Address
	case c.Contact != nil:
		return c.Contact.Name
	}
	return ""
}

// Preview, bildirim email'leri için kısa önizleme üretir.
func (c *Content) Preview() string {
	switch c.Type {
	case ContentText:
		if c.Text == nil {
			return ""
		}
		text := *c.Text
		if utf8.RuneCountInString(text) > 120 {
			return string([]rune(text)[:120]) + "…"
		}
		return text
	case ContentImage:
		return "📷 Photo"
	case ContentFile:
		return "📎 " + c.File.Name
	case ContentAudio:
		return "🎤 Voice message"
	case ContentVideo:
		return "🎬 Video"
	case ContentLocation:
		return "📍 Location"
	case ContentContact:
		return "👤 Contact"
	}
	return ""
}
