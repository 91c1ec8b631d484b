package timbre

import (
	"bytes"
	"crypto/rsa"
	"encoding/xml"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/ucarion/c14n"

	"github.com/jhoicas/boleta-pos/internal/domain"
	"github.com/jhoicas/boleta-pos/internal/domain/entity"
	"github.com/jhoicas/boleta-pos/pkg/sii"
)

// ParseCAF lee un archivo CAF (AUTORIZACION/CAF/DA ... RSASK) tal como lo entrega el SII.
func ParseCAF(data []byte) (*entity.CafFile, error) {
	data, err := normalizeEncoding(data)
	if err != nil {
		return nil, fmt.Errorf("%w: codificación: %w", domain.ErrMalformedAuthorization, err)
	}
	doc := etree.NewDocument()
	doc.ReadSettings.CharsetReader = charsetReader
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("%w: XML: %w", domain.ErrMalformedAuthorization, err)
	}
	root := doc.SelectElement("AUTORIZACION")
	if root == nil {
		return nil, fmt.Errorf("%w: falta AUTORIZACION", domain.ErrMalformedAuthorization)
	}
	cafEl := root.SelectElement("CAF")
	if cafEl == nil || cafEl.SelectElement("DA") == nil {
		return nil, fmt.Errorf("%w: falta CAF/DA", domain.ErrMalformedAuthorization)
	}
	da := cafEl.SelectElement("DA")
	text := func(el *etree.Element, path string) string {
		if e := el.FindElement(path); e != nil {
			return strings.TrimSpace(e.Text())
		}
		return ""
	}

	caf := &entity.CafFile{
		EmitterRUT:     text(da, "RE"),
		EmitterName:    text(da, "RS"),
		KeyID:          text(da, "IDK"),
		PublicModulus:  compact(text(da, "RSAPK/M")),
		PublicExponent: compact(text(da, "RSAPK/E")),
		PrivateKeyPEM:  text(root, "RSASK"),
		PublicKeyPEM:   text(root, "RSAPUBK"),
		RawXML:         data,
		Status:         entity.CafDraft,
	}
	caf.AuthoritySignature = compact(text(cafEl, "FRMA"))

	var errs []error
	if caf.SIICode, err = strconv.Atoi(text(da, "TD")); err != nil {
		errs = append(errs, fmt.Errorf("TD inválido: %q", text(da, "TD")))
	}
	if caf.RangeStart, err = strconv.ParseInt(text(da, "RNG/D"), 10, 64); err != nil {
		errs = append(errs, fmt.Errorf("RNG/D inválido: %q", text(da, "RNG/D")))
	}
	if caf.RangeEnd, err = strconv.ParseInt(text(da, "RNG/H"), 10, 64); err != nil {
		errs = append(errs, fmt.Errorf("RNG/H inválido: %q", text(da, "RNG/H")))
	}
	if err == nil && caf.RangeStart > caf.RangeEnd {
		errs = append(errs, fmt.Errorf("rango [%d,%d] invertido", caf.RangeStart, caf.RangeEnd))
	}
	if caf.IssuedDate, err = time.Parse("2006-01-02", text(da, "FA")); err != nil {
		errs = append(errs, fmt.Errorf("FA inválida: %q", text(da, "FA")))
	}
	if caf.EmitterRUT == "" {
		errs = append(errs, errors.New("falta RE"))
	}
	if caf.PrivateKeyPEM == "" {
		errs = append(errs, errors.New("falta RSASK"))
	}
	if len(errs) > 0 {
		return nil, errors.Join(append([]error{domain.ErrMalformedAuthorization}, errs...)...)
	}
	if sii.CafExpires(caf.SIICode) {
		exp := caf.IssuedDate.AddDate(0, sii.CafValidityMonths, 0)
		caf.ExpirationDate = &exp
	}

	decl := etree.NewDocument()
	decl.SetRoot(cafEl.Copy())
	decl.Indent(etree.NoIndent)
	decl.WriteSettings = canonicalSettings()
	if caf.Declaration, err = decl.WriteToString(); err != nil {
		return nil, fmt.Errorf("%w: serializar CAF: %w", domain.ErrMalformedAuthorization, err)
	}
	return caf, nil
}

// ValidateCAF comprueba que el CAF pertenezca a la empresa y al tipo de documento,
// que esté vigente y que RSASK corresponda a RSAPK.
func ValidateCAF(caf *entity.CafFile, companyRUT string, siiCode int, now time.Time) error {
	var errs []error
	if normalizeRUT(caf.EmitterRUT) != normalizeRUT(companyRUT) {
		errs = append(errs, fmt.Errorf("el CAF es del RUT %s y la empresa es %s", caf.EmitterRUT, companyRUT))
	}
	if caf.SIICode != siiCode {
		errs = append(errs, fmt.Errorf("el CAF es para el documento %d y se esperaba %d", caf.SIICode, siiCode))
	}
	if err := checkKeyPair(caf); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return errors.Join(append([]error{domain.ErrMalformedAuthorization}, errs...)...)
	}
	if caf.IsExpired(now) {
		return fmt.Errorf("%w: venció el %s", domain.ErrCafExpired, caf.ExpirationDate.Format("2006-01-02"))
	}
	return nil
}

func checkKeyPair(caf *entity.CafFile) error {
	priv, err := ParsePrivateKey([]byte(caf.PrivateKeyPEM))
	if err != nil {
		return err
	}
	if caf.PublicModulus == "" {
		return nil
	}
	pub, err := publicKeyFromRSAPK(caf.PublicModulus, caf.PublicExponent)
	if err != nil {
		return err
	}
	if !priv.PublicKey.Equal(pub) {
		return errors.New("RSASK no corresponde a RSAPK")
	}
	return nil
}

// CanonicalDeclaration forma canónica (C14N) del elemento DA, que es lo que firma el SII.
func CanonicalDeclaration(caf *entity.CafFile) ([]byte, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(caf.Declaration); err != nil {
		return nil, fmt.Errorf("%w: declaración: %w", domain.ErrMalformedAuthorization, err)
	}
	da := doc.FindElement("CAF/DA")
	if da == nil {
		return nil, fmt.Errorf("%w: declaración sin DA", domain.ErrMalformedAuthorization)
	}
	out := etree.NewDocument()
	out.SetRoot(da.Copy())
	raw, err := out.WriteToBytes()
	if err != nil {
		return nil, err
	}
	dec := xml.NewDecoder(bytes.NewReader(raw))
	dec.Entity = map[string]string{}
	return c14n.Canonicalize(dec)
}

// AuthorityKeyring llaves públicas del SII indexadas por IDK.
type AuthorityKeyring map[string]*rsa.PublicKey

// LoadAuthorityKeys lee los archivos <IDK>.pem del directorio. Directorio vacío = sin llaves.
func LoadAuthorityKeys(dir string) (AuthorityKeyring, error) {
	ring := AuthorityKeyring{}
	if dir == "" {
		return ring, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("timbre: leer llaves del SII: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".pem" {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("timbre: leer %s: %w", e.Name(), err)
		}
		pub, err := ParsePublicKeyPEM(raw)
		if err != nil {
			return nil, fmt.Errorf("timbre: %s: %w", e.Name(), err)
		}
		ring[strings.TrimSuffix(e.Name(), ".pem")] = pub
	}
	return ring, nil
}

// VerifyAuthority valida FRMA contra la llave del SII indicada por IDK.
// Si no hay llave para ese IDK no se puede verificar y se devuelve nil.
func (k AuthorityKeyring) VerifyAuthority(caf *entity.CafFile) error {
	pub, ok := k[caf.KeyID]
	if !ok {
		return nil
	}
	canon, err := CanonicalDeclaration(caf)
	if err != nil {
		return err
	}
	if err := Verify(canon, caf.AuthoritySignature, pub); err != nil {
		return fmt.Errorf("%w: firma del SII (IDK %s): %w", domain.ErrMalformedAuthorization, caf.KeyID, err)
	}
	return nil
}

func canonicalSettings() etree.WriteSettings {
	return etree.WriteSettings{
		CanonicalEndTags: true,
		CanonicalText:    true,
		CanonicalAttrVal: true,
	}
}

func compact(s string) string {
	return strings.Join(strings.Fields(s), "")
}

// normalizeRUT deja el RUT sin puntos, sin ceros a la izquierda y con DV en mayúscula.
func normalizeRUT(s string) string {
	if rut, err := sii.CheckRUT(s); err == nil {
		return rut.String()
	}
	return strings.ToUpper(strings.TrimLeft(strings.ReplaceAll(s, ".", ""), "0"))
}
