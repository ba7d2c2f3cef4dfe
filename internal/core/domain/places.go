package domain

import "time"

// Shelter is a public shelter. Registry data usually carries only grid
// coordinates; Location is derived from Projected in that case.
type Shelter struct {
	ID         string          `json:"id"`
	Name       string          `json:"name,omitempty"`
	Address    string          `json:"address,omitempty"`
	Kind       string          `json:"kind,omitempty"`
	Capacity   int             `json:"capacity,omitempty"`
	Accessible bool            `json:"accessible"`
	Location   GeoPoint        `json:"location"`
	Projected  *ProjectedPoint `json:"projected,omitempty"`
	Distance   *float64        `json:"distance,omitempty"` // km, computed
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Hospital is a hospital or emergency room.
type Hospital struct {
	ID        string    `json:"id"`
	Name      string    `json:"name,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	City      string    `json:"city,omitempty"`
	Emergency bool      `json:"emergency"`
	Location  GeoPoint  `json:"location"`
	Distance  *float64  `json:"distance,omitempty"` // km, computed
	UpdatedAt time.Time `json:"updated_at"`
}
