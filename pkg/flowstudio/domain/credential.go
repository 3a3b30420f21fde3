package domain

import "time"

type Credential struct {
	ID        int64     `json:"id,string"`
	Name      string    `json:"name" validate:"required,max=128"`
	Type      string    `json:"type" validate:"required,max=128"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
