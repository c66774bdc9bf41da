// Package lookup resolves Brazilian postal codes (ViaCEP) and company tax ids
// (BrasilAPI). Lookups never fail the caller: any problem is logged and
// reported as not found.
package lookup

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/lookali/marketplace-api/internal/redisx"
	"github.com/lookali/marketplace-api/pkg/logkey"
)

type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte)
}

type Address struct {
	Found      bool   `json:"found"`
	PostalCode string `json:"postal_code,omitempty"`
	Street     string `json:"street,omitempty"`
	Complement string `json:"complement,omitempty"`
	District   string `json:"district,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
}

type Company struct {
	Found      bool   `json:"found"`
	TaxID      string `json:"tax_id,omitempty"`
	LegalName  string `json:"legal_name,omitempty"`
	TradeName  string `json:"trade_name,omitempty"`
	Street     string `json:"street,omitempty"`
	Number     string `json:"number,omitempty"`
	District   string `json:"district,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Status     string `json:"status,omitempty"`
}

type Client struct {
	viaCEPBase    string
	brasilAPIBase string
	cache         Cache
	client        *http.Client
}

// New returns a Client. cache may be nil.
func New(viaCEPBase, brasilAPIBase string, cache Cache) *Client {
	return &Client{
		viaCEPBase:    strings.TrimRight(viaCEPBase, "/"),
		brasilAPIBase: strings.TrimRight(brasilAPIBase, "/"),
		cache:         cache,
		client:        &http.Client{Timeout: 5 * time.Second},
	}
}

func digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

type viaCEPResponse struct {
	CEP         string `json:"cep"`
	Logradouro  string `json:"logradouro"`
	Complemento string `json:"complemento"`
	Bairro      string `json:"bairro"`
	Localidade  string `json:"localidade"`
	UF          string `json:"uf"`
	Erro        any    `json:"erro"`
}

func (c *Client) LookupCEP(ctx context.Context, cep string) Address {
	cep = digits(cep)
	if len(cep) != 8 {
		return Address{}
	}
	key := fmt.Sprintf(redisx.KeyLookupCEP, cep)
	if a, ok := cached[Address](ctx, c.cache, key); ok {
		return a
	}

	var resp viaCEPResponse
	status, err := c.getJSON(ctx, c.viaCEPBase+"/ws/"+cep+"/json/", &resp)
	if err != nil {
		slog.WarnContext(ctx, "postal code lookup failed", slog.String("cep", cep), slog.String(logkey.ERROR, err.Error()))
		return Address{}
	}
	addr := Address{}
	if status == http.StatusOK && resp.Erro == nil {
		addr = Address{
			Found:      true,
			PostalCode: digits(resp.CEP),
			Street:     resp.Logradouro,
			Complement: resp.Complemento,
			District:   resp.Bairro,
			City:       resp.Localidade,
			State:      resp.UF,
		}
	}
	store(ctx, c.cache, key, addr)
	return addr
}

type brasilAPICompany struct {
	CNPJ                      string `json:"cnpj"`
	RazaoSocial               string `json:"razao_social"`
	NomeFantasia              string `json:"nome_fantasia"`
	Logradouro                string `json:"logradouro"`
	Numero                    string `json:"numero"`
	Bairro                    string `json:"bairro"`
	Municipio                 string `json:"municipio"`
	UF                        string `json:"uf"`
	CEP                       string `json:"cep"`
	DescricaoSituacaoCadastro string `json:"descricao_situacao_cadastral"`
}

func (c *Client) LookupCNPJ(ctx context.Context, cnpj string) Company {
	cnpj = digits(cnpj)
	if len(cnpj) != 14 {
		return Company{}
	}
	key := fmt.Sprintf(redisx.KeyLookupCNPJ, cnpj)
	if co, ok := cached[Company](ctx, c.cache, key); ok {
		return co
	}

	var resp brasilAPICompany
	status, err := c.getJSON(ctx, c.brasilAPIBase+"/api/cnpj/v1/"+cnpj, &resp)
	if err != nil {
		slog.WarnContext(ctx, "tax id lookup failed", slog.String("cnpj", cnpj), slog.String(logkey.ERROR, err.Error()))
		return Company{}
	}
	co := Company{}
	if status == http.StatusOK {
		co = Company{
			Found:      true,
			TaxID:      digits(resp.CNPJ),
			LegalName:  resp.RazaoSocial,
			TradeName:  resp.NomeFantasia,
			Street:     resp.Logradouro,
			Number:     resp.Numero,
			District:   resp.Bairro,
			City:       resp.Municipio,
			State:      resp.UF,
			PostalCode: digits(resp.CEP),
			Status:     resp.DescricaoSituacaoCadastro,
		}
	}
	store(ctx, c.cache, key, co)
	return co
}

// getJSON decodes 200 responses into out. 400 and 404 are reported by status
// only; any other status is an error.
func (c *Client) getJSON(ctx context.Context, url string, out any) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return 0, err
		}
		if err := json.Unmarshal(body, out); err != nil {
			return 0, fmt.Errorf("decode response: %w", err)
		}
		return resp.StatusCode, nil
	case http.StatusBadRequest, http.StatusNotFound:
		return resp.StatusCode, nil
	default:
		return 0, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
}

func cached[T any](ctx context.Context, c Cache, key string) (T, bool) {
	var v T
	if c == nil {
		return v, false
	}
	b, ok := c.Get(ctx, key)
	if !ok || json.Unmarshal(b, &v) != nil {
		return v, false
	}
	return v, true
}

func store(ctx context.Context, c Cache, key string, v any) {
	if c == nil {
		return
	}
	if b, err := json.Marshal(v); err == nil {
		c.Set(ctx, key, b)
	}
}
