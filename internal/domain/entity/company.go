package entity

import "time"

// Company empresa emisora de las boletas.
type Company struct {
	ID               string
	Name             string
	RUT              string // RUT emisor (RE del CAF)
	Activity         string // giro
	Address          string
	Phone            string
	Email            string
	ResolutionNumber string // número de resolución SII
	ResolutionDate   time.Time
	Status           string // active, suspended, inactive
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
