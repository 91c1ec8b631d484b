package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound           = errors.New("recurso no encontrado")
	ErrUserNotFound       = errors.New("usuario no encontrado")
	ErrEmailAlreadyExists = errors.New("el email ya está registrado")
	ErrInvalidInput       = errors.New("entrada inválida")
	ErrDuplicate          = errors.New("recurso duplicado")
	ErrUnauthorized       = errors.New("no autorizado")
	ErrForbidden          = errors.New("acceso denegado")
	ErrConflict           = errors.New("conflicto con el estado actual")
)

// Errores fiscales de la emisión de boletas.
var (
	// ErrValidation identificador tributario mal formado o con dígito verificador inválido.
	ErrValidation = errors.New("validación fallida")
	// ErrNoAuthorizationForFolio ningún CAF cargado cubre el folio asignado.
	ErrNoAuthorizationForFolio = errors.New("no hay CAF que autorice el folio")
	// ErrNoFoliosAvailable los rangos autorizados de la clase de documento están agotados.
	ErrNoFoliosAvailable = errors.New("no quedan folios disponibles")
	// ErrFiscalMappingMiss la posición fiscal no tiene impuesto equivalente; no es fatal.
	ErrFiscalMappingMiss = errors.New("impuesto sin equivalente en la posición fiscal")
	// ErrIntegrityViolation la venta incumple una regla de negocio del documento fiscal.
	ErrIntegrityViolation = errors.New("la venta no cumple las reglas del documento fiscal")
	// ErrMalformedAuthorization datos de CAF o de impuestos inconsistentes.
	ErrMalformedAuthorization = errors.New("autorización de folios mal formada")
	// ErrCafExpired el CAF superó su vigencia.
	ErrCafExpired = errors.New("CAF vencido")
)
