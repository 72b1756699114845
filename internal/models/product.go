package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Product is a single marketplace listing.
type Product struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Category    string    `json:"category"`
	Price       float64   `json:"price"`
	Description string    `json:"description,omitempty"`
	Condition   string    `json:"condition,omitempty"`
	Location    string    `json:"location,omitempty"`
	Contact     string    `json:"contact,omitempty"`
	Delivery    string    `json:"delivery,omitempty"`
	Images      []string  `json:"images"`
	CreatedBy   string    `json:"createdBy,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`

	// JSON string field for DB storage
	ImagesJSON string `json:"-"`
}

// ProductInput carries the client-supplied fields of a new listing.
type ProductInput struct {
	Title       string   `json:"title" validate:"required"`
	Category    string   `json:"category" validate:"required"`
	Price       *float64 `json:"price" validate:"required,gte=0"`
	Description string   `json:"description"`
	Condition   string   `json:"condition"`
	Location    string   `json:"location"`
	Contact     string   `json:"contact"`
	Delivery    string   `json:"delivery"`
	Images      []string `json:"images"`
}

// PrepareForSave marshals Images into ImagesJSON for DB storage.
func (p *Product) PrepareForSave() error {
	if p.Images == nil {
		p.Images = []string{}
	}
	imagesBytes, err := json.Marshal(p.Images)
	if err != nil {
		return fmt.Errorf("encode images: %w", err)
	}
	p.ImagesJSON = string(imagesBytes)
	return nil
}

// PrepareForAPI unmarshals ImagesJSON into Images. Images is never nil afterwards.
// A malformed column is reported rather than hidden behind an empty list.
func (p *Product) PrepareForAPI() error {
	if p.ImagesJSON != "" {
		if err := json.Unmarshal([]byte(p.ImagesJSON), &p.Images); err != nil {
			return fmt.Errorf("decode images of product %s: %w", p.ID, err)
		}
	}
	if p.Images == nil {
		p.Images = []string{}
	}
	return nil
}
