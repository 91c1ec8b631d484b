package dto

import "time"

// CreateCompanyRequest alta de una empresa emisora.
type CreateCompanyRequest struct {
	Name             string `json:"name" validate:"required"`
	RUT              string `json:"rut" validate:"required"`
	Activity         string `json:"activity"`
	Address          string `json:"address"`
	Phone            string `json:"phone"`
	Email            string `json:"email"`
	ResolutionNumber string `json:"resolution_number"`
	ResolutionDate   string `json:"resolution_date"` // YYYY-MM-DD
}

// CompanyResponse datos del emisor impresos en la boleta.
type CompanyResponse struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	RUT              string    `json:"rut"`
	Activity         string    `json:"activity"`
	Address          string    `json:"address"`
	ResolutionNumber string    `json:"resolution_number"`
	ResolutionDate   time.Time `json:"resolution_date"`
}
