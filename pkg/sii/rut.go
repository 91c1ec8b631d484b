package sii

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidRUT es la causa común de todos los errores de validación de RUT.
var ErrInvalidRUT = errors.New("sii: RUT inválido")

// RUTErrorKind clasifica la falla de validación.
type RUTErrorKind int

const (
	RUTTooShort RUTErrorKind = iota + 1
	RUTInvalidCharacter
	RUTCheckDigitMismatch
)

func (k RUTErrorKind) String() string {
	switch k {
	case RUTTooShort:
		return "too_short"
	case RUTInvalidCharacter:
		return "invalid_character"
	case RUTCheckDigitMismatch:
		return "check_digit_mismatch"
	default:
		return "unknown"
	}
}

// RUTError describe por qué un RUT no es válido. Unwrap devuelve ErrInvalidRUT.
type RUTError struct {
	Kind     RUTErrorKind
	Input    string
	Expected byte // solo para RUTCheckDigitMismatch
	Got      byte
}

func (e *RUTError) Error() string {
	switch e.Kind {
	case RUTTooShort:
		return fmt.Sprintf("sii: RUT %q demasiado corto", e.Input)
	case RUTInvalidCharacter:
		return fmt.Sprintf("sii: RUT %q contiene caracteres inválidos", e.Input)
	case RUTCheckDigitMismatch:
		return fmt.Sprintf("sii: dígito verificador del RUT inválido: esperado %c, recibido %c", e.Expected, e.Got)
	default:
		return "sii: RUT inválido"
	}
}

func (e *RUTError) Unwrap() error { return ErrInvalidRUT }

// RUT normalizado: cuerpo solo dígitos y dígito verificador en mayúscula.
type RUT struct {
	Body       string
	CheckDigit byte
}

// String devuelve el RUT en forma canónica "12345678-5".
func (r RUT) String() string {
	if r.Body == "" {
		return ""
	}
	return r.Body + "-" + string(r.CheckDigit)
}

// CheckRUT normaliza y valida un RUT ("12.345.678-5", "12345678-5", "123456785").
// Cualquier falla se devuelve como *RUTError.
func CheckRUT(input string) (RUT, error) {
	clean := make([]byte, 0, len(input))
	for _, r := range input {
		switch {
		case r == '.' || r == '-' || r == ' ' || r == '\t' || r == '\n' || r == '\r':
			continue
		case r >= '0' && r <= '9':
			clean = append(clean, byte(r))
		case r == 'k' || r == 'K':
			clean = append(clean, 'K')
		default:
			return RUT{}, &RUTError{Kind: RUTInvalidCharacter, Input: input}
		}
	}
	if len(clean) < 2 {
		return RUT{}, &RUTError{Kind: RUTTooShort, Input: input}
	}
	body, dv := clean[:len(clean)-1], clean[len(clean)-1]
	for _, c := range body {
		if c == 'K' {
			return RUT{}, &RUTError{Kind: RUTInvalidCharacter, Input: input}
		}
	}
	expected := checkDigit(body)
	rut := RUT{Body: strings.TrimLeft(string(body), "0"), CheckDigit: dv}
	if rut.Body == "" {
		rut.Body = "0"
	}
	if expected != dv {
		return rut, &RUTError{Kind: RUTCheckDigitMismatch, Input: input, Expected: expected, Got: dv}
	}
	return rut, nil
}

// ValidateRUT en modo estricto devuelve el error de validación; en modo no estricto
// nunca devuelve error y solo informa la validez en el booleano.
func ValidateRUT(input string, strict bool) (RUT, bool, error) {
	rut, err := CheckRUT(input)
	if err != nil {
		if strict {
			return rut, false, err
		}
		return rut, false, nil
	}
	return rut, true, nil
}

// ComputeRUTCheckDigit calcula el dígito verificador (módulo 11) para el cuerpo dado.
func ComputeRUTCheckDigit(body string) (byte, error) {
	digits := make([]byte, 0, len(body))
	for _, r := range body {
		if r == '.' || r == ' ' {
			continue
		}
		if r < '0' || r > '9' {
			return 0, &RUTError{Kind: RUTInvalidCharacter, Input: body}
		}
		digits = append(digits, byte(r))
	}
	if len(digits) == 0 {
		return 0, &RUTError{Kind: RUTTooShort, Input: body}
	}
	return checkDigit(digits), nil
}

// checkDigit recorre el cuerpo desde el dígito menos significativo con pesos 2..7.
func checkDigit(body []byte) byte {
	sum, weight := 0, 2
	for i := len(body) - 1; i >= 0; i-- {
		sum += int(body[i]-'0') * weight
		weight++
		if weight > 7 {
			weight = 2
		}
	}
	switch rem := sum % 11; rem {
	case 0:
		return '0'
	case 1:
		return 'K'
	default:
		return byte('0' + (11 - rem))
	}
}
