package entity

import "time"

// Partner cliente de la venta (receptor del documento).
type Partner struct {
	ID             string
	CompanyID      string
	Name           string
	DocumentNumber string // RUT
	Activity       string // giro
	Street         string
	City           string
	Email          string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
