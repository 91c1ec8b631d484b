// Package timbretest genera CAF firmados con llaves efímeras para pruebas.
package timbretest

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"math/big"
	"strings"
	"testing"

	"github.com/jhoicas/boleta-pos/internal/infrastructure/timbre"
)

// Config datos de la declaración del CAF de prueba.
type Config struct {
	RUT      string // RE; por defecto 76000000-0
	Name     string // RS
	SIICode  int    // TD; por defecto 39
	From, To int64  // RNG
	Issued   string // FA (YYYY-MM-DD); por defecto 2024-01-15
	KeyID    string // IDK; por defecto 100
	Encoding string // declaración XML opcional, ej. ISO-8859-1
}

// CAF archivo generado con sus llaves.
type CAF struct {
	XML       []byte
	Key       *rsa.PrivateKey // RSASK
	Authority *rsa.PrivateKey // llave del SII que firmó la declaración
}

const template = `%s<AUTORIZACION>
  <CAF version="1.0">
    <DA>
      <RE>%s</RE>
      <RS>%s</RS>
      <TD>%d</TD>
      <RNG><D>%d</D><H>%d</H></RNG>
      <FA>%s</FA>
      <RSAPK><M>%s</M><E>%s</E></RSAPK>
      <IDK>%s</IDK>
    </DA>
    <FRMA algoritmo="SHA1withRSA">%s</FRMA>
  </CAF>
  <RSASK>%s</RSASK>
  <RSAPUBK>%s</RSAPUBK>
</AUTORIZACION>
`

// New genera un CAF cuya FRMA es una firma válida de la llave Authority.
func New(t testing.TB, cfg Config) *CAF {
	t.Helper()
	if cfg.RUT == "" {
		cfg.RUT = "76000000-0"
	}
	if cfg.Name == "" {
		cfg.Name = "COMERCIAL DE PRUEBA LTDA"
	}
	if cfg.SIICode == 0 {
		cfg.SIICode = 39
	}
	if cfg.From == 0 && cfg.To == 0 {
		cfg.From, cfg.To = 1, 50
	}
	if cfg.Issued == "" {
		cfg.Issued = "2024-01-15"
	}
	if cfg.KeyID == "" {
		cfg.KeyID = "100"
	}
	key := generateKey(t)
	authority := generateKey(t)

	render := func(frma string) string {
		decl := ""
		if cfg.Encoding != "" {
			decl = fmt.Sprintf(`<?xml version="1.0" encoding="%s"?>`+"\n", cfg.Encoding)
		}
		return fmt.Sprintf(template, decl, cfg.RUT, cfg.Name, cfg.SIICode, cfg.From, cfg.To, cfg.Issued,
			base64.StdEncoding.EncodeToString(key.N.Bytes()),
			base64.StdEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
			cfg.KeyID, frma, PrivateKeyPEM(key), publicKeyPEM(t, key))
	}

	draft, err := timbre.ParseCAF([]byte(render("PENDIENTE")))
	if err != nil {
		t.Fatalf("timbretest: parsear CAF: %v", err)
	}
	canon, err := timbre.CanonicalDeclaration(draft)
	if err != nil {
		t.Fatalf("timbretest: DA canónico: %v", err)
	}
	frma, err := timbre.NewRSASigner().Sign(canon, []byte(PrivateKeyPEM(authority)))
	if err != nil {
		t.Fatalf("timbretest: firmar DA: %v", err)
	}
	return &CAF{XML: []byte(render(frma)), Key: key, Authority: authority}
}

// PrivateKeyPEM llave en PEM PKCS#1, como viene en RSASK.
func PrivateKeyPEM(k *rsa.PrivateKey) string {
	return strings.TrimSpace(string(pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(k)})))
}

// PublicKeyPEM llave pública en PEM PKIX.
func PublicKeyPEM(t testing.TB, k *rsa.PrivateKey) string {
	return publicKeyPEM(t, k)
}

func publicKeyPEM(t testing.TB, k *rsa.PrivateKey) string {
	der, err := x509.MarshalPKIXPublicKey(&k.PublicKey)
	if err != nil {
		t.Fatalf("timbretest: llave pública: %v", err)
	}
	return strings.TrimSpace(string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})))
}

func generateKey(t testing.TB) *rsa.PrivateKey {
	k, err := rsa.GenerateKey(rand.Reader, 1024)
	if err != nil {
		t.Fatalf("timbretest: generar llave: %v", err)
	}
	return k
}
