package sii

// Signer firma el bloque DD del timbre electrónico y devuelve la firma en base64.
type Signer interface {
	// Sign recibe los bytes exactos del DD (ISO-8859-1) y la llave RSASK del CAF en PEM.
	Sign(dd []byte, privateKeyPEM []byte) (string, error)
}
