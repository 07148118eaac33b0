package storage

import (
	"errors"
	"net/url"
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const (
	defaultCrop   = "fill"
	defaultFormat = "auto"
	maxDimension  = 5000
)

// ErrInvalidVariant is returned for a display variant that cannot be served.
var ErrInvalidVariant = errors.New("invalid variant")

// Variant is a display transformation applied when an asset is read.
type Variant struct {
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
	Crop   string `json:"crop,omitempty"`
	Format string `json:"format,omitempty"`
}

// Validate checks the variant bounds and enumerations.
func (v Variant) Validate() error {
	return validation.ValidateStruct(&v,
		validation.Field(&v.Width, validation.Min(0), validation.Max(maxDimension)),
		validation.Field(&v.Height, validation.Min(0), validation.Max(maxDimension)),
		validation.Field(&v.Crop, validation.In("fill", "fit", "limit", "pad", "scale", "crop", "thumb")),
		validation.Field(&v.Format, validation.In("auto", "jpg", "png", "webp", "avif", "gif")),
	)
}

// query encodes the variant with its defaults filled in. url.Values sorts
// by key, so equal variants always produce the same string.
func (v Variant) query() string {
	q := url.Values{}
	if v.Width > 0 {
		q.Set("w", strconv.Itoa(v.Width))
	}
	if v.Height > 0 {
		q.Set("h", strconv.Itoa(v.Height))
	}
	crop := v.Crop
	if crop == "" {
		crop = defaultCrop
	}
	format := v.Format
	if format == "" {
		format = defaultFormat
	}
	q.Set("c", crop)
	q.Set("f", format)
	return q.Encode()
}
