package pos_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/boleta-pos/internal/application/dto"
	"github.com/jhoicas/boleta-pos/internal/application/pos"
	"github.com/jhoicas/boleta-pos/internal/domain"
	"github.com/jhoicas/boleta-pos/internal/domain/entity"
	"github.com/jhoicas/boleta-pos/internal/domain/repository"
	"github.com/jhoicas/boleta-pos/internal/domain/tax"
	"github.com/jhoicas/boleta-pos/internal/infrastructure/masterdata"
	"github.com/jhoicas/boleta-pos/internal/infrastructure/timbre"
	"github.com/jhoicas/boleta-pos/internal/infrastructure/timbre/timbretest"
)

// ── repositorios en memoria ─────────────────────────────────────────────────

type memOrders struct {
	mu sync.Mutex
	m  map[string]*entity.Order
}

func newMemOrders() *memOrders { return &memOrders{m: map[string]*entity.Order{}} }

func (r *memOrders) Create(_ context.Context, o *entity.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.m[o.ID]; ok {
		return domain.ErrDuplicate
	}
	c := *o
	r.m[o.ID] = &c
	return nil
}

func (r *memOrders) GetByID(_ context.Context, id string) (*entity.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.m[id]
	if !ok {
		return nil, nil
	}
	c := *o
	return &c, nil
}

func (r *memOrders) List(_ context.Context, f repository.OrderFilter) ([]*entity.Order, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.Order
	for _, o := range r.m {
		if o.CompanyID != f.CompanyID || (f.SessionID != "" && o.SessionID != f.SessionID) {
			continue
		}
		if f.SIICode != 0 && (o.DocumentClass == nil || o.DocumentClass.SIICode != f.SIICode) {
			continue
		}
		c := *o
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SIIDocumentNumber < out[j].SIIDocumentNumber })
	return out, len(out), nil
}

func (r *memOrders) CountBySessionAndClass(_ context.Context, sessionID, classID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, o := range r.m {
		if o.SessionID == sessionID && o.DocumentClass != nil && o.DocumentClass.ID == classID && o.SIIDocumentNumber > 0 {
			n++
		}
	}
	return n, nil
}

func (r *memOrders) MaxFolio(_ context.Context, companyID string, siiCode int) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var top int64
	for _, o := range r.m {
		if o.CompanyID == companyID && o.DocumentClass != nil && o.DocumentClass.SIICode == siiCode && o.SIIDocumentNumber > top {
			top = o.SIIDocumentNumber
		}
	}
	return top, nil
}

type memSessions struct {
	mu sync.Mutex
	m  map[string]*entity.PosSession
}

func newMemSessions() *memSessions { return &memSessions{m: map[string]*entity.PosSession{}} }

func copySession(s *entity.PosSession) *entity.PosSession {
	c := *s
	c.Sequences = nil
	for _, seq := range s.Sequences {
		sc := *seq
		c.Sequences = append(c.Sequences, &sc)
	}
	return &c
}

func (r *memSessions) Create(_ context.Context, s *entity.PosSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m[s.ID] = copySession(s)
	return nil
}

func (r *memSessions) GetByID(_ context.Context, id string) (*entity.PosSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.m[id]
	if !ok {
		return nil, nil
	}
	return copySession(s), nil
}

func (r *memSessions) UpdateSequence(_ context.Context, seq *entity.SessionSequence) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.m[seq.SessionID]
	if !ok {
		return domain.ErrNotFound
	}
	for _, ss := range s.Sequences {
		if ss.DocumentClassID == seq.DocumentClassID {
			ss.Issued = seq.Issued
			return nil
		}
	}
	c := *seq
	s.Sequences = append(s.Sequences, &c)
	return nil
}

func (r *memSessions) Close(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.m[id]
	if !ok {
		return domain.ErrNotFound
	}
	s.State = entity.SessionClosed
	s.ClosedAt = &at
	return nil
}

func (r *memSessions) issued(id, classID string) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ss := range r.m[id].Sequences {
		if ss.DocumentClassID == classID {
			return ss.Issued
		}
	}
	return -1
}

type memCafs struct {
	mu sync.Mutex
	m  []*entity.CafFile
}

func (r *memCafs) Create(_ context.Context, c *entity.CafFile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m = append(r.m, c)
	return nil
}

func (r *memCafs) ListByCompanyAndCode(_ context.Context, companyID string, code int) ([]*entity.CafFile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.CafFile
	for _, c := range r.m {
		if c.CompanyID == companyID && c.SIICode == code {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *memCafs) UpdateStatus(_ context.Context, id string, status entity.CafStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.m {
		if c.ID == id {
			c.Status = status
			return nil
		}
	}
	return domain.ErrNotFound
}

type memCompanies struct{ m map[string]*entity.Company }

func (r *memCompanies) Create(_ context.Context, c *entity.Company) error {
	r.m[c.ID] = c
	return nil
}

func (r *memCompanies) GetByID(_ context.Context, id string) (*entity.Company, error) {
	return r.m[id], nil
}

func (r *memCompanies) GetByRUT(_ context.Context, rut string) (*entity.Company, error) {
	for _, c := range r.m {
		if c.RUT == rut {
			return c, nil
		}
	}
	return nil, nil
}

// fakeTx ejecuta fn sobre los repositorios en memoria; err simula un fallo del commit.
type fakeTx struct {
	orders   *memOrders
	sessions *memSessions
	err      error
}

func (tx *fakeTx) RunPOS(_ context.Context, fn func(repository.OrderRepository, repository.SessionRepository) error) error {
	if tx.err != nil {
		return tx.err
	}
	return fn(tx.orders, tx.sessions)
}

type fakeMetrics struct {
	mu       sync.Mutex
	issued   map[int]int
	left     map[int]int64
	failures map[string]int
	loaded   map[int]int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{issued: map[int]int{}, left: map[int]int64{}, failures: map[string]int{}, loaded: map[int]int{}}
}

func (m *fakeMetrics) FolioIssued(code int, left int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.issued[code]++
	m.left[code] = left
}

func (m *fakeMetrics) StampFailed(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[reason]++
}

func (m *fakeMetrics) CafLoaded(code int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loaded[code]++
}

type fakeBarcode struct{}

func (fakeBarcode) PNG(ted string) ([]byte, error) {
	if ted == "" {
		return nil, errors.New("vacío")
	}
	return []byte("png:" + ted[:5]), nil
}

type fakePDF struct{ last pos.ReceiptData }

func (g *fakePDF) Generate(data pos.ReceiptData) ([]byte, error) {
	g.last = data
	return []byte("%PDF-1.4"), nil
}

// ── fixture ─────────────────────────────────────────────────────────────────

const companyID = "c1"

type fixture struct {
	orders    *memOrders
	sessions  *memSessions
	cafs      *memCafs
	companies *memCompanies
	tx        *fakeTx
	metrics   *fakeMetrics
	pdf       *fakePDF

	registry *pos.SessionRegistry
	pricing  *pos.PricingUseCase
	finalize *pos.FinalizeUseCase
	session  *pos.SessionUseCase
	order    *pos.OrderUseCase
	caf      *pos.CafUseCase
	receipt  *pos.ReceiptUseCase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		orders:   newMemOrders(),
		sessions: newMemSessions(),
		cafs:     &memCafs{},
		companies: &memCompanies{m: map[string]*entity.Company{
			companyID: {ID: companyID, Name: "Comercial de Prueba", RUT: "76.000.000-0", Activity: "Panadería"},
		}},
		metrics: newFakeMetrics(),
		pdf:     &fakePDF{},
	}
	f.tx = &fakeTx{orders: f.orders, sessions: f.sessions}
	log := zerolog.Nop()
	catalog := masterdata.Default()
	stamps := timbre.NewStampService(timbre.NewRSASigner(), time.UTC)

	f.registry = pos.NewSessionRegistry(f.sessions, f.orders, f.cafs, catalog, log)
	f.pricing = pos.NewPricingUseCase(tax.NewEngine(false), catalog, decimal.NewFromInt(1), log)
	f.finalize = pos.NewFinalizeUseCase(f.pricing, f.registry, stamps, f.companies, f.orders, f.cafs, f.tx, f.metrics, log)
	f.session = pos.NewSessionUseCase(f.registry)
	f.order = pos.NewOrderUseCase(f.orders, f.pricing, f.registry, stamps, catalog, time.UTC, log)
	f.caf = pos.NewCafUseCase(timbre.NewCafReader(nil), f.cafs, f.companies, f.registry, f.metrics, log)
	f.receipt = pos.NewReceiptUseCase(f.order, f.companies, fakeBarcode{}, f.pdf)
	return f
}

// addCaf guarda un CAF de boletas de la empresa antes de abrir la sesión.
func (f *fixture) addCaf(t *testing.T, from, to int64) *entity.CafFile {
	t.Helper()
	gen := timbretest.New(t, timbretest.Config{From: from, To: to})
	caf, err := timbre.ParseCAF(gen.XML)
	require.NoError(t, err)
	caf.ID = uuid.New().String()
	caf.CompanyID = companyID
	require.NoError(t, f.cafs.Create(context.Background(), caf))
	return caf
}

func (f *fixture) open(t *testing.T) string {
	t.Helper()
	s, err := f.session.Open(context.Background(), companyID, "cajero-1")
	require.NoError(t, err)
	return s.ID
}

func boletaInput(price string) dto.OrderInput {
	return dto.OrderInput{
		Reference:       "Pedido 00001-001-0001",
		DocumentClassID: "boleta_afecta",
		Lines: []dto.OrderLineInput{{
			Description: "Pan amasado",
			Quantity:    decimal.NewFromInt(1),
			UnitPrice:   decimal.RequireFromString(price),
			TaxIDs:      []string{"iva_19_incl"},
		}},
	}
}
