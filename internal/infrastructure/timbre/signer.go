package timbre

import (
	"crypto"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"math/big"

	"github.com/jhoicas/boleta-pos/pkg/sii"
)

// RSASigner firma con SHA1withRSA (PKCS#1 v1.5), el mismo algoritmo de la firma del CAF.
type RSASigner struct{}

// NewRSASigner crea el firmador.
func NewRSASigner() *RSASigner {
	return &RSASigner{}
}

var _ sii.Signer = (*RSASigner)(nil)

// Sign implementa pkg/sii.Signer.
func (s *RSASigner) Sign(dd []byte, privateKeyPEM []byte) (string, error) {
	priv, err := ParsePrivateKey(privateKeyPEM)
	if err != nil {
		return "", err
	}
	digest := sha1.Sum(dd)
	sig, err := rsa.SignPKCS1v15(nil, priv, crypto.SHA1, digest[:])
	if err != nil {
		return "", fmt.Errorf("timbre: firmar DD: %w", err)
	}
	return base64.StdEncoding.EncodeToString(sig), nil
}

// Verify comprueba una firma SHA1withRSA en base64.
func Verify(data []byte, signatureB64 string, pub *rsa.PublicKey) error {
	sig, err := base64.StdEncoding.DecodeString(signatureB64)
	if err != nil {
		return fmt.Errorf("timbre: firma no es base64: %w", err)
	}
	digest := sha1.Sum(data)
	if err := rsa.VerifyPKCS1v15(pub, crypto.SHA1, digest[:], sig); err != nil {
		return fmt.Errorf("timbre: firma inválida: %w", err)
	}
	return nil
}

// ParsePrivateKey lee la llave RSASK del CAF (PKCS#1 o PKCS#8 en PEM).
func ParsePrivateKey(pemBytes []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, fmt.Errorf("timbre: RSASK no contiene un bloque PEM")
	}
	if k, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return k, nil
	}
	k, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("timbre: parsear RSASK: %w", err)
	}
	rk, ok := k.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("timbre: RSASK no es una llave RSA")
	}
	return rk, nil
}

// ParsePublicKeyPEM lee una llave pública RSA (PKIX o PKCS#1) en PEM.
func ParsePublicKeyPEM(pemBytes []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, fmt.Errorf("timbre: llave pública sin bloque PEM")
	}
	if k, err := x509.ParsePKCS1PublicKey(block.Bytes); err == nil {
		return k, nil
	}
	k, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("timbre: parsear llave pública: %w", err)
	}
	rk, ok := k.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("timbre: la llave pública no es RSA")
	}
	return rk, nil
}

// publicKeyFromRSAPK arma la llave pública desde RSAPK/M y RSAPK/E (base64, big-endian).
func publicKeyFromRSAPK(modulusB64, exponentB64 string) (*rsa.PublicKey, error) {
	m, err := base64.StdEncoding.DecodeString(modulusB64)
	if err != nil {
		return nil, fmt.Errorf("timbre: RSAPK/M: %w", err)
	}
	e, err := base64.StdEncoding.DecodeString(exponentB64)
	if err != nil {
		return nil, fmt.Errorf("timbre: RSAPK/E: %w", err)
	}
	exp := new(big.Int).SetBytes(e)
	if len(m) == 0 || !exp.IsInt64() || exp.Int64() < 3 {
		return nil, fmt.Errorf("timbre: RSAPK incompleto")
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(m), E: int(exp.Int64())}, nil
}
