package masterdata_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/boleta-pos/internal/domain"
	"github.com/jhoicas/boleta-pos/internal/domain/entity"
	"github.com/jhoicas/boleta-pos/internal/infrastructure/masterdata"
)

func TestDefault(t *testing.T) {
	c := masterdata.Default()

	iva, ok := c.Tax("iva_19")
	require.True(t, ok)
	assert.Equal(t, 14, iva.SIICode)
	assert.Equal(t, entity.AmountPercent, iva.AmountType)

	d, ok := c.DocumentClassByCode(39)
	require.True(t, ok)
	assert.Equal(t, "boleta_afecta", d.ID)

	classes := c.DocumentClasses()
	require.Len(t, classes, 2)
	assert.Equal(t, 39, classes[0].SIICode)
	assert.Equal(t, 41, classes[1].SIICode)

	fp, ok := c.FiscalPosition("exenta")
	require.True(t, ok)
	assert.Equal(t, "exento", fp.TaxMap["iva_19"])
}

const groupYAML = `
units:
  - {id: kg, name: Kilogramo, factor: "1"}
taxes:
  - id: grp
    name: IVA + ILA
    amount: "0"
    amount_type: group
    children: [iva, ila]
  - {id: iva, name: IVA, amount: "19", amount_type: percent, sii_code: 14}
  - {id: ila, name: ILA, amount: "10", amount_type: percent, sii_code: 27}
  - {id: fijo, name: Específico, amount: "50", amount_type: fixed, uom: kg, sii_code: 28}
`

func TestParse_GrupoYUnidad(t *testing.T) {
	c, err := masterdata.Parse([]byte(groupYAML))
	require.NoError(t, err)

	grp, ok := c.Tax("grp")
	require.True(t, ok)
	require.Len(t, grp.Children, 2)
	assert.Equal(t, "iva", grp.Children[0].ID)

	fijo, _ := c.Tax("fijo")
	require.NotNil(t, fijo.UoM)
	assert.Equal(t, "kg", fijo.UoM.ID)

	rules, err := c.Taxes([]string{"ila", "iva"})
	require.NoError(t, err)
	assert.Equal(t, "ila", rules[0].ID)

	_, err = c.Taxes([]string{"nope"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestParse_Errores(t *testing.T) {
	cases := map[string]string{
		"tipo desconocido":   `taxes: [{id: x, amount: "1", amount_type: magic}]`,
		"hijo inexistente":   `taxes: [{id: g, amount: "0", amount_type: group, children: [y]}]`,
		"unidad inexistente": `taxes: [{id: f, amount: "1", amount_type: fixed, uom: lb}]`,
		"factor inválido":    `units: [{id: u, factor: "0"}]`,
		"posición inválida":  `fiscal_positions: [{id: p, tax_map: {a: b}}]`,
		"yaml roto":          "taxes: [",
		"incluido -100":      `taxes: [{id: x, amount: "-100", amount_type: percent, price_include: true}]`,
		"grupo suma -100":    `taxes: [{id: a, amount: "-60", amount_type: percent, price_include: true}, {id: b, amount: "-40", amount_type: percent, price_include: true}, {id: g, amount: "0", amount_type: group, children: [a, b]}]`,
	}
	for name, raw := range cases {
		_, err := masterdata.Parse([]byte(raw))
		assert.ErrorIs(t, err, domain.ErrInvalidInput, name)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(groupYAML), 0o600))

	c, err := masterdata.LoadFile(path)
	require.NoError(t, err)
	_, ok := c.Tax("grp")
	assert.True(t, ok)

	_, err = masterdata.LoadFile(filepath.Join(t.TempDir(), "no-existe.yaml"))
	assert.Error(t, err)
}
