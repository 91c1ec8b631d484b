package timbre

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/boleta-pos/internal/domain"
	"github.com/jhoicas/boleta-pos/internal/domain/entity"
	"github.com/jhoicas/boleta-pos/pkg/sii"
)

// StampService genera el Timbre Electrónico (TED) de un documento ya foliado.
type StampService struct {
	signer sii.Signer
	loc    *time.Location
}

// NewStampService crea el servicio. loc es la zona horaria de FE y TSTED (nil = UTC).
func NewStampService(signer sii.Signer, loc *time.Location) *StampService {
	if loc == nil {
		loc = time.UTC
	}
	return &StampService{signer: signer, loc: loc}
}

// Sign construye y firma el TED de la venta. Si la venta ya tiene timbre se devuelve el mismo,
// sin volver a firmar. La venta no se modifica.
func (s *StampService) Sign(order *entity.Order, company *entity.Company, cafs entity.CafSet) (*entity.Stamp, error) {
	if order == nil || company == nil {
		return nil, fmt.Errorf("%w: venta y empresa son obligatorias", domain.ErrInvalidInput)
	}
	if order.Stamp != nil {
		return order.Stamp, nil
	}
	if order.DocumentClass == nil {
		return nil, fmt.Errorf("%w: la venta no tiene tipo de documento", domain.ErrInvalidInput)
	}
	if order.SIIDocumentNumber <= 0 {
		return nil, fmt.Errorf("%w: la venta no tiene folio", domain.ErrInvalidInput)
	}
	caf := cafs.ForFolio(order.SIIDocumentNumber)
	if caf == nil {
		return nil, fmt.Errorf("%w: folio %d del documento %d", domain.ErrNoAuthorizationForFolio, order.SIIDocumentNumber, order.DocumentClass.SIICode)
	}
	if order.ValidatedAt.IsZero() {
		return nil, fmt.Errorf("%w: la venta no tiene fecha de validación", domain.ErrInvalidInput)
	}

	stamp := s.fields(order, company)
	stamp.CAFDeclaration = caf.Declaration

	dd, err := buildDD(stamp)
	if err != nil {
		return nil, err
	}
	payload, err := latin1(dd)
	if err != nil {
		return nil, fmt.Errorf("timbre: codificar DD: %w", err)
	}
	sig, err := s.signer.Sign(payload, []byte(caf.PrivateKeyPEM))
	if err != nil {
		return nil, err
	}
	stamp.DD = dd
	stamp.Signature = sig
	stamp.Algorithm = sii.SignatureAlgorithm
	if stamp.XML, err = buildTED(dd, sig); err != nil {
		return nil, err
	}
	return stamp, nil
}

func (s *StampService) fields(order *entity.Order, company *entity.Company) *entity.Stamp {
	validated := order.ValidatedAt.In(s.loc)
	st := &entity.Stamp{
		EmitterRUT:   emitterRUT(company.RUT),
		DocumentType: order.DocumentClass.SIICode,
		Folio:        order.SIIDocumentNumber,
		EmissionDate: validated.Format("2006-01-02"),
		ReceiverRUT:  sii.AnonymousReceiverRUT,
		ReceiverName: sii.AnonymousReceiverName,
		Amount:       order.AmountTotal.Round(0).IntPart(),
		Timestamp:    validated.Format("2006-01-02T15:04:05"),
	}
	if c := order.Client; c != nil && c.DocumentNumber != "" {
		st.ReceiverRUT = receiverRUT(c.DocumentNumber)
		st.ReceiverName = c.Name
	}
	if l := order.FirstLine(); l != nil {
		st.FirstItem = l.Description
	}
	return st
}

// receiverRUT forma canónica del RUT del cliente (sin puntos, DV en mayúscula).
func receiverRUT(raw string) string {
	if rut, err := sii.CheckRUT(raw); err == nil {
		return rut.String()
	}
	return strings.ReplaceAll(raw, ".", "")
}

// emitterRUT quita puntos y un único cero a la izquierda.
func emitterRUT(rut string) string {
	rut = strings.ReplaceAll(rut, ".", "")
	return strings.TrimPrefix(rut, "0")
}

// buildDD serializa el bloque DD en el orden exigido. El texto se escapa al serializar
// (& pasa a &amp;).
func buildDD(st *entity.Stamp) (string, error) {
	doc := etree.NewDocument()
	doc.WriteSettings = canonicalSettings()
	dd := doc.CreateElement("DD")
	dd.CreateElement("RE").SetText(st.EmitterRUT)
	dd.CreateElement("TD").SetText(strconv.Itoa(st.DocumentType))
	dd.CreateElement("F").SetText(strconv.FormatInt(st.Folio, 10))
	dd.CreateElement("FE").SetText(st.EmissionDate)
	dd.CreateElement("RR").SetText(st.ReceiverRUT)
	dd.CreateElement("RSR").SetText(st.ReceiverName)
	dd.CreateElement("MNT").SetText(strconv.FormatInt(st.Amount, 10))
	dd.CreateElement("IT1").SetText(st.FirstItem)

	decl := etree.NewDocument()
	if err := decl.ReadFromString(st.CAFDeclaration); err != nil || decl.Root() == nil {
		return "", fmt.Errorf("%w: declaración del CAF ilegible", domain.ErrMalformedAuthorization)
	}
	dd.AddChild(decl.Root().Copy())
	dd.CreateElement("TSTED").SetText(st.Timestamp)

	return doc.WriteToString()
}

func buildTED(dd, signature string) (string, error) {
	ddDoc := etree.NewDocument()
	if err := ddDoc.ReadFromString(dd); err != nil {
		return "", fmt.Errorf("timbre: releer DD: %w", err)
	}
	doc := etree.NewDocument()
	doc.WriteSettings = canonicalSettings()
	ted := doc.CreateElement("TED")
	ted.CreateAttr("version", sii.TEDVersion)
	ted.AddChild(ddDoc.Root().Copy())
	frmt := ted.CreateElement("FRMT")
	frmt.CreateAttr("algoritmo", sii.SignatureAlgorithm)
	frmt.SetText(signature)
	return doc.WriteToString()
}

// ParseTED reconstruye el timbre persistido (XML del TED) al importar una venta.
func ParseTED(xmlStr string) (*entity.Stamp, error) {
	doc := etree.NewDocument()
	doc.WriteSettings = canonicalSettings()
	if err := doc.ReadFromString(xmlStr); err != nil {
		return nil, fmt.Errorf("%w: TED ilegible: %w", domain.ErrInvalidInput, err)
	}
	ted := doc.SelectElement("TED")
	if ted == nil || ted.SelectElement("DD") == nil {
		return nil, fmt.Errorf("%w: falta TED/DD", domain.ErrInvalidInput)
	}
	dd := ted.SelectElement("DD")
	text := func(tag string) string {
		if e := dd.SelectElement(tag); e != nil {
			return e.Text()
		}
		return ""
	}
	st := &entity.Stamp{
		EmitterRUT:   text("RE"),
		EmissionDate: text("FE"),
		ReceiverRUT:  text("RR"),
		ReceiverName: text("RSR"),
		FirstItem:    text("IT1"),
		Timestamp:    text("TSTED"),
		XML:          xmlStr,
		Algorithm:    sii.SignatureAlgorithm,
	}
	st.DocumentType, _ = strconv.Atoi(text("TD"))
	st.Folio, _ = strconv.ParseInt(text("F"), 10, 64)
	if mnt, err := decimal.NewFromString(text("MNT")); err == nil {
		st.Amount = mnt.IntPart()
	}
	if frmt := ted.SelectElement("FRMT"); frmt != nil {
		st.Signature = frmt.Text()
		if alg := frmt.SelectAttrValue("algoritmo", ""); alg != "" {
			st.Algorithm = alg
		}
	}
	if cafEl := dd.SelectElement("CAF"); cafEl != nil {
		d := etree.NewDocument()
		d.WriteSettings = canonicalSettings()
		d.SetRoot(cafEl.Copy())
		st.CAFDeclaration, _ = d.WriteToString()
	}
	ddDoc := etree.NewDocument()
	ddDoc.WriteSettings = canonicalSettings()
	ddDoc.SetRoot(dd.Copy())
	st.DD, _ = ddDoc.WriteToString()
	return st, nil
}

// Parse reconstruye un timbre persistido.
func (s *StampService) Parse(xmlStr string) (*entity.Stamp, error) {
	return ParseTED(xmlStr)
}
