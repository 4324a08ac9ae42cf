package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"gopkg.in/yaml.v3"

	"bookforge/internal/book"
	"bookforge/internal/compose"
	"bookforge/internal/language"
	"bookforge/internal/services"
)

// OrderFile is the YAML document describing one book order.
type OrderFile struct {
	Order book.Order      `yaml:"order"`
	Story book.StoryInput `yaml:"story"`
	Style StyleSpec       `yaml:"style"`
	// Photo is a path to a reference picture of the child, relative to the
	// order file when not absolute.
	Photo string `yaml:"photo"`
}

// StyleSpec is the user-facing part of the style lock.
type StyleSpec struct {
	Style     string `yaml:"style"`
	Character string `yaml:"character"`
}

// LoadOrder reads and normalizes an order file.
func LoadOrder(path string) (*OrderFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "order", "read", path, err)
	}
	order, err := ParseOrder(data)
	if err != nil {
		return nil, err
	}
	if order.Photo != "" && !filepath.IsAbs(order.Photo) {
		order.Photo = filepath.Join(filepath.Dir(path), order.Photo)
	}
	return order, nil
}

// ParseOrder decodes an order document, fills derived fields, and validates it.
func ParseOrder(data []byte) (*OrderFile, error) {
	var order OrderFile
	if err := yaml.Unmarshal(data, &order); err != nil {
		return nil, services.Wrap(services.ErrValidation, "order", "parse", "invalid order yaml", err)
	}
	order.normalize()
	if err := order.Validate(); err != nil {
		return nil, err
	}
	return &order, nil
}

func (o *OrderFile) normalize() {
	o.Order.ID = strings.TrimSpace(o.Order.ID)
	o.Order.ProductID = strings.TrimSpace(o.Order.ProductID)
	code := o.Order.Language
	if strings.TrimSpace(code) == "" {
		code = o.Story.Language
	}
	if iso := language.ToISO2(code); iso != "" {
		code = iso
	}
	o.Order.Language = code
	if o.Story.Language == "" {
		o.Story.Language = code
	}
	if o.Order.Direction == "" {
		o.Order.Direction = language.Direction(code)
	}
	if o.Order.Recipient == "" {
		o.Order.Recipient = o.Story.ChildName
	}
	o.Photo = strings.TrimSpace(o.Photo)
}

// Validate checks the fields every run needs before any generation call.
func (o *OrderFile) Validate() error {
	var problems []string
	if o.Order.ID == "" {
		problems = append(problems, "order.id is required")
	}
	if o.Order.ProductID == "" {
		problems = append(problems, "order.productId is required")
	}
	switch o.Order.Direction {
	case book.LeftToRight, book.RightToLeft:
	default:
		problems = append(problems, fmt.Sprintf("order.direction %q is not ltr or rtl", o.Order.Direction))
	}
	if err := o.Story.Validate(); err != nil {
		problems = append(problems, err.Error())
	}
	if len(problems) > 0 {
		return services.Wrap(services.ErrValidation, "order", "validate", strings.Join(problems, "; "), nil)
	}
	return nil
}

// Session builds the run session. The reference photo, when set, is decoded
// with EXIF orientation applied and stored as PNG in the style lock.
func (o *OrderFile) Session(defaultStyle string) (*book.Session, error) {
	style := book.StyleLock{
		Style:     strings.TrimSpace(o.Style.Style),
		Character: strings.TrimSpace(o.Style.Character),
		Age:       o.Story.Age,
	}
	if style.Style == "" {
		style.Style = defaultStyle
	}
	if style.Character == "" {
		style.Character = o.Story.ChildName
	}
	if o.Photo != "" {
		img, err := imaging.Open(o.Photo, imaging.AutoOrientation(true))
		if err != nil {
			return nil, services.Wrap(services.ErrValidation, "order", "load photo", o.Photo, err)
		}
		encoded, err := compose.EncodePNG(img)
		if err != nil {
			return nil, services.Wrap(services.ErrValidation, "order", "encode photo", o.Photo, err)
		}
		style.CharacterPhoto = encoded
	}
	return book.NewSession(o.Order, o.Story, style), nil
}
