package provider

import (
	"log/slog"
	"net/http"

	"github.com/agromarket/payments/internal/transport"
)

// providerView is the public shape of a provider: demo accounts and their
// balances never leave the process.
type providerView struct {
	Code       string   `json:"code"`
	Name       string   `json:"name"`
	Kind       string   `json:"kind"`
	Currencies []string `json:"currencies"`
	MinAmount  string   `json:"min_amount"`
	MaxAmount  string   `json:"max_amount"`
	FeeRate    string   `json:"fee_rate"`
	Settlement string   `json:"settlement"`
}

type Handler struct {
	transport.BaseHandler
	Registry *Registry
	Logger   *slog.Logger
}

func NewHandler(registry *Registry, logger *slog.Logger) *Handler {
	return &Handler{
		BaseHandler: transport.BaseHandler{Logger: logger},
		Registry:    registry,
		Logger:      logger,
	}
}

// ListProviders handles GET /api/v1/providers
func (h *Handler) ListProviders(w http.ResponseWriter, r *http.Request) {
	banks := h.Registry.Banks()
	mobile := h.Registry.MobileProviders()

	out := make([]providerView, 0, len(banks)+len(mobile))
	for _, cfg := range banks {
		out = append(out, toView(cfg, "bank"))
	}
	for _, cfg := range mobile {
		out = append(out, toView(cfg, "mobile"))
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"providers": out})
}

func toView(cfg Config, kind string) providerView {
	return providerView{
		Code:       cfg.Code,
		Name:       cfg.Name,
		Kind:       kind,
		Currencies: cfg.Currencies,
		MinAmount:  cfg.MinAmount.String(),
		MaxAmount:  cfg.MaxAmount.String(),
		FeeRate:    cfg.FeeRate.String(),
		Settlement: cfg.Settlement,
	}
}
