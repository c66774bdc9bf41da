package lookup

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

type memCache map[string][]byte

func (m memCache) Get(_ context.Context, k string) ([]byte, bool) {
	b, ok := m[k]
	return b, ok
}

func (m memCache) Set(_ context.Context, k string, v []byte) { m[k] = v }

func TestLookupCEP(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		switch r.URL.Path {
		case "/ws/01001000/json/":
			_, _ = io.WriteString(w, `{"cep":"01001-000","logradouro":"Praça da Sé","bairro":"Sé","localidade":"São Paulo","uf":"SP"}`)
		case "/ws/99999999/json/":
			_, _ = io.WriteString(w, `{"erro":"true"}`)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	cache := memCache{}
	c := New(srv.URL, srv.URL, cache)
	ctx := context.Background()

	a := c.LookupCEP(ctx, "01001-000")
	if !a.Found || a.City != "São Paulo" || a.PostalCode != "01001000" {
		t.Fatalf("address = %+v", a)
	}
	if again := c.LookupCEP(ctx, "01001000"); again != a {
		t.Errorf("cached address = %+v", again)
	}
	if hits != 1 {
		t.Errorf("hits = %d, want 1 (second call cached)", hits)
	}

	if c.LookupCEP(ctx, "99999-999").Found {
		t.Error("erro response reported as found")
	}
	if c.LookupCEP(ctx, "12345678").Found {
		t.Error("server failure reported as found")
	}
	if _, ok := cache["lookup:cep:12345678"]; ok {
		t.Error("failure must not be cached")
	}
	if c.LookupCEP(ctx, "123").Found {
		t.Error("short input reported as found")
	}
}

func TestLookupCNPJ(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/cnpj/v1/19131243000197" {
			_, _ = io.WriteString(w, `{"cnpj":"19131243000197","razao_social":"OPEN KNOWLEDGE BRASIL","municipio":"SAO PAULO","uf":"SP","descricao_situacao_cadastral":"ATIVA"}`)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(srv.URL, srv.URL, nil)
	co := c.LookupCNPJ(context.Background(), "19.131.243/0001-97")
	if !co.Found || co.LegalName != "OPEN KNOWLEDGE BRASIL" || co.Status != "ATIVA" {
		t.Fatalf("company = %+v", co)
	}
	if c.LookupCNPJ(context.Background(), "00000000000000").Found {
		t.Error("404 reported as found")
	}
}

func TestLookupUnreachable(t *testing.T) {
	c := New("http://127.0.0.1:1", "http://127.0.0.1:1", nil)
	if c.LookupCEP(context.Background(), "01001000").Found {
		t.Error("unreachable service reported as found")
	}
}
