// Package erptest is an in-memory ERP backend for tests. It serves the
// table, tab, sale, cash session and fiscal endpoints the terminal uses.
package erptest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// Entity is a table or a tab as stored by the fake backend.
type Entity struct {
	ID     int
	Number int
	Code   string
	Status string
	Items  []Item
}

type Item struct {
	ID        int
	ProductID string
	Quantity  int
	UnitPrice decimal.Decimal
}

// Server is a fake ERP. Zero values are usable after New.
type Server struct {
	*httptest.Server

	mu          sync.Mutex
	tables      map[string]*Entity
	tabs        map[string]*Entity
	sales       map[string]*Entity
	prices      map[string]decimal.Decimal
	rejects     map[string]string
	sessionOpen bool
	sessionID   int
	nextID      int
	hits        map[string]int
	bodies      map[string][]map[string]any
	fiscalFails bool
}

func New() *Server {
	s := &Server{
		tables:  map[string]*Entity{},
		tabs:    map[string]*Entity{},
		sales:   map[string]*Entity{},
		prices:  map[string]decimal.Decimal{},
		rejects: map[string]string{},
		hits:    map[string]int{},
		bodies:  map[string][]map[string]any{},
		nextID:  100,
	}
	s.Server = httptest.NewServer(s.routes())
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.count)
	for _, res := range []string{"mesas", "comandas"} {
		r.Route("/"+res, func(r chi.Router) {
			r.Get("/", s.list(res))
			r.Post("/", s.create(res))
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/conta/", s.bill(res))
				r.Post("/abrir/", s.open(res))
				r.Post("/adicionar_pedido/", s.addLine(res))
				r.Post("/remover_pedido/", s.removeLine(res))
				r.Post("/fechar/", s.close(res))
				r.Post("/liberar/", s.release(res))
			})
		})
	}
	r.Post("/vendas/", s.createSale)
	r.Get("/vendas/{id}/", s.bill("vendas"))
	r.Post("/vendas/{id}/finalizar/", s.close("vendas"))
	r.Post("/itens-venda/", s.addSaleItem)
	r.Delete("/itens-venda/{id}/", s.deleteSaleItem)
	r.Get("/sessoes-caixa/aberta/", s.openSession)
	r.Post("/sessoes-caixa/abrir/", s.openRegister)
	r.Post("/sessoes-caixa/{id}/fechar/", s.closeRegister)
	r.Post("/nfe/emissao/gerar-de-venda/", s.fiscal)
	return r
}

// AddTable seeds a table. Its id is the table number.
func (s *Server) AddTable(number int, status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[strconv.Itoa(number)] = &Entity{ID: number, Number: number, Status: status}
}

// AddTab seeds a tab with the given id and code.
func (s *Server) AddTab(id int, code, status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tabs[strconv.Itoa(id)] = &Entity{ID: id, Code: code, Status: status}
}

// AddItem seeds a committed bill item on a table.
func (s *Server) AddItem(table int, itemID int, productID string, qty int, price decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.tables[strconv.Itoa(table)]
	e.Items = append(e.Items, Item{ID: itemID, ProductID: productID, Quantity: qty, UnitPrice: price})
}

func (s *Server) SetPrice(productID string, price decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prices[productID] = price
}

// Reject makes adding productID fail with a field validation error.
func (s *Server) Reject(productID, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rejects[productID] = message
}

func (s *Server) SetSessionOpen(open bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessionOpen = open
	if open && s.sessionID == 0 {
		s.sessionID = 1
	}
}

func (s *Server) FailFiscal() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fiscalFails = true
}

// Table returns a copy of the stored table.
func (s *Server) Table(number int) Entity {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := *s.tables[strconv.Itoa(number)]
	e.Items = append([]Item(nil), e.Items...)
	return e
}

// Hits counts requests by "METHOD path".
func (s *Server) Hits(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[key]
}

// Bodies returns the decoded JSON bodies posted to path.
func (s *Server) Bodies(path string) []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]map[string]any(nil), s.bodies[path]...)
}

func (s *Server) count(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.hits[r.Method+" "+r.URL.Path]++
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) decode(r *http.Request) map[string]any {
	body := map[string]any{}
	_ = json.NewDecoder(r.Body).Decode(&body)
	s.bodies[r.URL.Path] = append(s.bodies[r.URL.Path], body)
	return body
}

func (s *Server) store(res string) map[string]*Entity {
	switch res {
	case "mesas":
		return s.tables
	case "comandas":
		return s.tabs
	default:
		return s.sales
	}
}

func (s *Server) list(res string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		results := make([]map[string]any, 0)
		for _, e := range s.store(res) {
			results = append(results, entityJSON(e))
		}
		writeJSON(w, http.StatusOK, map[string]any{"count": len(results), "next": nil, "previous": nil, "results": results})
	}
}

func (s *Server) create(res string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		body := s.decode(r)
		s.nextID++
		e := &Entity{ID: s.nextID, Status: "LIVRE"}
		if n, ok := body["numero"].(float64); ok {
			e.Number = int(n)
		}
		if c, ok := body["codigo"].(string); ok {
			e.Code = c
		}
		s.store(res)[strconv.Itoa(e.ID)] = e
		writeJSON(w, http.StatusCreated, entityJSON(e))
	}
}

func (s *Server) entity(w http.ResponseWriter, r *http.Request, res string) *Entity {
	e, ok := s.store(res)[chi.URLParam(r, "id")]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"detail": "Não encontrado."})
		return nil
	}
	return e
}

func (s *Server) bill(res string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		e := s.entity(w, r, res)
		if e == nil {
			return
		}
		total := decimal.Zero
		items := make([]map[string]any, 0, len(e.Items))
		for _, item := range e.Items {
			subtotal := item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
			total = total.Add(subtotal)
			items = append(items, map[string]any{
				"id":             item.ID,
				"produto_nome":   item.ProductID,
				"quantidade":     item.Quantity,
				"preco_unitario": item.UnitPrice.StringFixed(2),
				"subtotal":       subtotal.StringFixed(2),
			})
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"numero_pedido":  strconv.Itoa(e.ID),
			"numero":         strconv.Itoa(e.ID),
			"total_bruto":    total.StringFixed(2),
			"total_desconto": "0.00",
			"total_liquido":  total.StringFixed(2),
			"itens":          items,
		})
	}
}

func (s *Server) open(res string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.decode(r)
		e := s.entity(w, r, res)
		if e == nil {
			return
		}
		if res == "mesas" {
			e.Status = "OCUPADA"
		} else {
			e.Status = "EM_USO"
		}
		writeJSON(w, http.StatusOK, entityJSON(e))
	}
}

func (s *Server) appendLine(w http.ResponseWriter, e *Entity, body map[string]any) bool {
	productID, _ := body["produto_id"].(string)
	if msg, rejected := s.rejects[productID]; rejected {
		writeJSON(w, http.StatusBadRequest, map[string]any{"produto_id": []string{msg}})
		return false
	}
	qty := 1
	if q, ok := body["quantidade"].(float64); ok {
		qty = int(q)
	}
	s.nextID++
	e.Items = append(e.Items, Item{ID: s.nextID, ProductID: productID, Quantity: qty, UnitPrice: s.prices[productID]})
	return true
}

func (s *Server) addLine(res string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		body := s.decode(r)
		e := s.entity(w, r, res)
		if e == nil {
			return
		}
		if s.appendLine(w, e, body) {
			writeJSON(w, http.StatusCreated, map[string]any{"success": true})
		}
	}
}

func (s *Server) removeLine(res string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		body := s.decode(r)
		e := s.entity(w, r, res)
		if e == nil {
			return
		}
		id, _ := body["item_id"].(string)
		if !removeItem(e, id) {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Item não encontrado."})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	}
}

func (s *Server) close(res string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.decode(r)
		e := s.entity(w, r, res)
		if e == nil {
			return
		}
		if !s.sessionOpen {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Nenhum caixa aberto."})
			return
		}
		e.Items = nil
		e.Status = "LIVRE"
		s.nextID++
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "venda_id": s.nextID})
	}
}

func (s *Server) release(res string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		e := s.entity(w, r, res)
		if e == nil {
			return
		}
		if len(e.Items) > 0 {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Conta possui itens."})
			return
		}
		e.Status = "LIVRE"
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	}
}

func (s *Server) createSale(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.decode(r)
	s.nextID++
	e := &Entity{ID: s.nextID, Status: "ABERTA"}
	s.sales[strconv.Itoa(e.ID)] = e
	writeJSON(w, http.StatusCreated, map[string]any{"id": e.ID, "numero": strconv.Itoa(e.ID)})
}

func (s *Server) addSaleItem(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	body := s.decode(r)
	saleID, _ := body["venda_id"].(string)
	e, ok := s.sales[saleID]
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]any{"venda_id": []string{"Venda inválida."}})
		return
	}
	if s.appendLine(w, e, body) {
		writeJSON(w, http.StatusCreated, map[string]any{"id": s.nextID})
	}
}

func (s *Server) deleteSaleItem(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := chi.URLParam(r, "id")
	for _, e := range s.sales {
		if removeItem(e, id) {
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]any{"detail": "Não encontrado."})
}

func (s *Server) openSession(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.sessionOpen {
		writeJSON(w, http.StatusNotFound, map[string]any{"detail": "Nenhuma sessão aberta."})
		return
	}
	writeJSON(w, http.StatusOK, s.sessionJSON())
}

func (s *Server) openRegister(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.decode(r)
	if s.sessionOpen {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Caixa já está aberto."})
		return
	}
	s.sessionOpen = true
	s.sessionID++
	writeJSON(w, http.StatusCreated, s.sessionJSON())
}

func (s *Server) closeRegister(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.decode(r)
	if !s.sessionOpen || chi.URLParam(r, "id") != strconv.Itoa(s.sessionID) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Sessão não está aberta."})
		return
	}
	s.sessionOpen = false
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) fiscal(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.decode(r)
	if s.fiscalFails {
		writeJSON(w, http.StatusBadGateway, map[string]any{"error": "SEFAZ indisponível."})
		return
	}
	s.nextID++
	writeJSON(w, http.StatusCreated, map[string]any{"id": s.nextID, "numero": "1", "status": "AUTORIZADA"})
}

func (s *Server) sessionJSON() map[string]any {
	return map[string]any{
		"id":            s.sessionID,
		"caixa_id":      1,
		"operador_id":   1,
		"data_abertura": "2026-10-15T08:00:00Z",
		"saldo_inicial": "100.00",
		"status":        "ABERTA",
	}
}

func removeItem(e *Entity, id string) bool {
	for i, item := range e.Items {
		if strconv.Itoa(item.ID) == id {
			e.Items = append(e.Items[:i], e.Items[i+1:]...)
			return true
		}
	}
	return false
}

func entityJSON(e *Entity) map[string]any {
	out := map[string]any{"id": e.ID, "status": e.Status}
	if e.Number != 0 {
		out["numero"] = e.Number
	}
	if e.Code != "" {
		out["codigo"] = e.Code
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
