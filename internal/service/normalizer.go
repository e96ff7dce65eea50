package service

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/utafrali/hybridsearch/internal/domain"
)

// Normalizer maps stored product records to their public view.
type Normalizer struct {
	base       *url.URL
	uploadPath string
}

// NewNormalizer creates a normalizer that resolves image filenames against
// baseURL joined with uploadPath.
func NewNormalizer(baseURL, uploadPath string) (*Normalizer, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("parse base url: %q is not absolute", baseURL)
	}
	return &Normalizer{base: u, uploadPath: uploadPath}, nil
}

// ImageURL returns the absolute URL for a stored image filename.
func (n *Normalizer) ImageURL(image string) string {
	if image == "" {
		return ""
	}
	lower := strings.ToLower(image)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return image
	}
	return n.base.JoinPath(n.uploadPath, image).String()
}

// View converts one record.
func (n *Normalizer) View(r domain.ProductRecord) domain.ProductView {
	return domain.ProductView{
		ProductID:           r.ProductID,
		Name:                r.Name,
		MRP:                 r.MRP,
		DiscountPrice:       r.DiscountPrice,
		Qty:                 r.Qty,
		Image:               n.ImageURL(r.Image),
		CategoryName:        r.CategoryName,
		CategoryDescription: r.CategoryDescription,
	}
}

// Views converts records in order. The result is never nil.
func (n *Normalizer) Views(records []domain.ProductRecord) []domain.ProductView {
	out := make([]domain.ProductView, 0, len(records))
	for _, r := range records {
		out = append(out, n.View(r))
	}
	return out
}
