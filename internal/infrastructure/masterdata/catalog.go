// Package masterdata carga desde YAML los datos maestros de la caja: unidades de medida,
// impuestos, tipos de documento y posiciones fiscales.
package masterdata

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/jhoicas/boleta-pos/internal/domain"
	"github.com/jhoicas/boleta-pos/internal/domain/entity"
	"github.com/jhoicas/boleta-pos/internal/domain/tax"
)

//go:embed default.yaml
var defaultYAML []byte

type file struct {
	Units []struct {
		ID     string `yaml:"id"`
		Name   string `yaml:"name"`
		Factor string `yaml:"factor"`
	} `yaml:"units"`
	Taxes []struct {
		ID                string   `yaml:"id"`
		Name              string   `yaml:"name"`
		Amount            string   `yaml:"amount"`
		AmountType        string   `yaml:"amount_type"`
		PriceInclude      bool     `yaml:"price_include"`
		IncludeBaseAmount bool     `yaml:"include_base_amount"`
		Children          []string `yaml:"children"`
		UoM               string   `yaml:"uom"`
		SIICode           int      `yaml:"sii_code"`
	} `yaml:"taxes"`
	DocumentClasses []struct {
		ID      string `yaml:"id"`
		Name    string `yaml:"name"`
		SIICode int    `yaml:"sii_code"`
	} `yaml:"document_classes"`
	FiscalPositions []struct {
		ID     string            `yaml:"id"`
		Name   string            `yaml:"name"`
		TaxMap map[string]string `yaml:"tax_map"`
	} `yaml:"fiscal_positions"`
}

// Catalog datos maestros inmutables durante la sesión.
type Catalog struct {
	units     map[string]*entity.UnitOfMeasure
	taxes     map[string]*entity.TaxRule
	classes   map[string]*entity.DocumentClass
	positions map[string]*entity.FiscalPosition
}

// Default catálogo embebido (IVA 19%, exento, boletas 39 y 41).
func Default() *Catalog {
	c, err := Parse(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("masterdata: catálogo por defecto inválido: %v", err))
	}
	return c
}

// LoadFile lee el catálogo desde un archivo YAML.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("masterdata: leer %s: %w", path, err)
	}
	return Parse(data)
}

// Parse interpreta el YAML y resuelve referencias (unidad del impuesto, hijos de grupos).
func Parse(data []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: masterdata: %w", domain.ErrInvalidInput, err)
	}
	c := &Catalog{
		units:     map[string]*entity.UnitOfMeasure{},
		taxes:     map[string]*entity.TaxRule{},
		classes:   map[string]*entity.DocumentClass{},
		positions: map[string]*entity.FiscalPosition{},
	}

	for _, u := range f.Units {
		factor, err := decimal.NewFromString(u.Factor)
		if err != nil || !factor.IsPositive() {
			return nil, fmt.Errorf("%w: unidad %s: factor %q inválido", domain.ErrInvalidInput, u.ID, u.Factor)
		}
		c.units[u.ID] = &entity.UnitOfMeasure{ID: u.ID, Name: u.Name, Factor: factor}
	}

	for _, t := range f.Taxes {
		amount, err := decimal.NewFromString(t.Amount)
		if err != nil {
			return nil, fmt.Errorf("%w: impuesto %s: monto %q inválido", domain.ErrInvalidInput, t.ID, t.Amount)
		}
		at := entity.AmountType(t.AmountType)
		switch at {
		case entity.AmountFixed, entity.AmountPercent, entity.AmountDivision, entity.AmountGroup:
		default:
			return nil, fmt.Errorf("%w: impuesto %s: tipo %q desconocido", domain.ErrInvalidInput, t.ID, t.AmountType)
		}
		rule := &entity.TaxRule{
			ID:                t.ID,
			Name:              t.Name,
			Amount:            amount,
			AmountType:        at,
			PriceInclude:      t.PriceInclude,
			IncludeBaseAmount: t.IncludeBaseAmount,
			SIICode:           t.SIICode,
		}
		if t.UoM != "" {
			u, ok := c.units[t.UoM]
			if !ok {
				return nil, fmt.Errorf("%w: impuesto %s: unidad %q no existe", domain.ErrInvalidInput, t.ID, t.UoM)
			}
			rule.UoM = u
		}
		if err := tax.CheckInclusiveRates([]*entity.TaxRule{rule}); err != nil {
			return nil, err
		}
		c.taxes[t.ID] = rule
	}
	// segunda pasada: los hijos pueden declararse después del grupo
	for _, t := range f.Taxes {
		for _, childID := range t.Children {
			child, ok := c.taxes[childID]
			if !ok {
				return nil, fmt.Errorf("%w: grupo %s: impuesto hijo %q no existe", domain.ErrInvalidInput, t.ID, childID)
			}
			c.taxes[t.ID].Children = append(c.taxes[t.ID].Children, child)
		}
		if err := tax.CheckInclusiveRates(c.taxes[t.ID].Children); err != nil {
			return nil, fmt.Errorf("grupo %s: %w", t.ID, err)
		}
	}

	for _, d := range f.DocumentClasses {
		c.classes[d.ID] = &entity.DocumentClass{ID: d.ID, Name: d.Name, SIICode: d.SIICode}
	}
	for _, p := range f.FiscalPositions {
		for src, dst := range p.TaxMap {
			if _, ok := c.taxes[src]; !ok {
				return nil, fmt.Errorf("%w: posición %s: impuesto %q no existe", domain.ErrInvalidInput, p.ID, src)
			}
			if _, ok := c.taxes[dst]; dst != "" && !ok {
				return nil, fmt.Errorf("%w: posición %s: impuesto %q no existe", domain.ErrInvalidInput, p.ID, dst)
			}
		}
		c.positions[p.ID] = &entity.FiscalPosition{ID: p.ID, Name: p.Name, TaxMap: p.TaxMap}
	}
	return c, nil
}

// Tax impuesto por id.
func (c *Catalog) Tax(id string) (*entity.TaxRule, bool) {
	t, ok := c.taxes[id]
	return t, ok
}

// Taxes resuelve una lista de ids en orden; un id desconocido es ErrNotFound.
func (c *Catalog) Taxes(ids []string) ([]*entity.TaxRule, error) {
	out := make([]*entity.TaxRule, 0, len(ids))
	for _, id := range ids {
		t, ok := c.taxes[id]
		if !ok {
			return nil, fmt.Errorf("%w: impuesto %q", domain.ErrNotFound, id)
		}
		out = append(out, t)
	}
	return out, nil
}

// TaxIndex todos los impuestos por id.
func (c *Catalog) TaxIndex() map[string]*entity.TaxRule {
	return c.taxes
}

// UoM unidad de medida por id.
func (c *Catalog) UoM(id string) (*entity.UnitOfMeasure, bool) {
	u, ok := c.units[id]
	return u, ok
}

// DocumentClass tipo de documento por id.
func (c *Catalog) DocumentClass(id string) (*entity.DocumentClass, bool) {
	d, ok := c.classes[id]
	return d, ok
}

// DocumentClassByCode tipo de documento por código SII.
func (c *Catalog) DocumentClassByCode(code int) (*entity.DocumentClass, bool) {
	for _, d := range c.classes {
		if d.SIICode == code {
			return d, true
		}
	}
	return nil, false
}

// DocumentClasses tipos de documento ordenados por código SII.
func (c *Catalog) DocumentClasses() []*entity.DocumentClass {
	out := make([]*entity.DocumentClass, 0, len(c.classes))
	for _, d := range c.classes {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SIICode < out[j].SIICode })
	return out
}

// FiscalPosition posición fiscal por id.
func (c *Catalog) FiscalPosition(id string) (*entity.FiscalPosition, bool) {
	p, ok := c.positions[id]
	return p, ok
}
