package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"cardmint-shopify-app/internal/application"
	"cardmint-shopify-app/internal/domain"
	"cardmint-shopify-app/internal/infrastructure/pubsub"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

var errStreamingUnsupported = errors.New("streaming unsupported")

// AdminAPI exposes the embedded app's backend endpoints: settings, issued
// gift cards, and the dashboard. It is a thin read/display layer over the
// core's persisted state; the shop acting is taken from the request context.
type AdminAPI struct {
	settings  *application.SettingsService
	giftCards *application.GiftCardService
	events    *pubsub.IssuancePubSub
	logger    zerolog.Logger
}

// NewAdminAPI creates a new admin API
func NewAdminAPI(
	settings *application.SettingsService,
	giftCards *application.GiftCardService,
	events *pubsub.IssuancePubSub,
	logger zerolog.Logger,
) *AdminAPI {
	return &AdminAPI{
		settings:  settings,
		giftCards: giftCards,
		events:    events,
		logger:    logger,
	}
}

// Routes mounts the admin endpoints on a chi router
func (a *AdminAPI) Routes(r chi.Router) {
	r.Get("/settings", a.handleGetSettings)
	r.Put("/settings", a.handleUpdateSettings)
	r.Post("/settings/variants/{variantID}", a.handleAddVariant)
	r.Delete("/settings/variants/{variantID}", a.handleRemoveVariant)

	r.Get("/giftcards", a.handleListGiftCards)
	r.Get("/giftcards/balances", a.handleGetBalances)
	r.Get("/giftcards/{id}/code", a.handleRevealCode)
	r.Post("/giftcards/{id}/printed", a.handleMarkPrinted)
	r.Delete("/giftcards/{id}/printed", a.handleUnmarkPrinted)

	r.Get("/dashboard", a.handleDashboard)
	r.Get("/events", a.handleEvents)
}

// handleEvents streams issuance events for the acting shop as server-sent
// events, so the embedded UI can refresh when an order is processed.
func (a *AdminAPI) handleEvents(w http.ResponseWriter, r *http.Request) {
	shop := domain.GetShopDomainFromContext(r.Context())

	flusher, ok := w.(http.Flusher)
	if !ok {
		a.writeError(w, http.StatusInternalServerError, errStreamingUnsupported)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher.Flush()

	channel := a.events.Subscribe(r.Context(), shop)
	for {
		select {
		case <-r.Context().Done():
			return
		case event, open := <-channel.Events:
			if !open {
				return
			}
			data, err := json.Marshal(event)
			if err != nil {
				a.logger.Error().Err(err).Msg("Failed to encode issuance event")
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}

func (a *AdminAPI) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	shop := domain.GetShopDomainFromContext(r.Context())

	settings, err := a.settings.GetSettings(r.Context(), shop)
	if err != nil {
		a.writeError(w, http.StatusInternalServerError, err)
		return
	}
	a.writeJSON(w, http.StatusOK, settings)
}

func (a *AdminAPI) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	shop := domain.GetShopDomainFromContext(r.Context())

	var input application.UpdateSettingsInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}

	settings, err := a.settings.UpdateSettings(r.Context(), shop, input)
	if err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}
	a.writeJSON(w, http.StatusOK, settings)
}

func (a *AdminAPI) handleAddVariant(w http.ResponseWriter, r *http.Request) {
	shop := domain.GetShopDomainFromContext(r.Context())
	variantID := chi.URLParam(r, "variantID")

	if err := a.settings.AddTriggerVariant(r.Context(), shop, variantID); err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *AdminAPI) handleRemoveVariant(w http.ResponseWriter, r *http.Request) {
	shop := domain.GetShopDomainFromContext(r.Context())
	variantID := chi.URLParam(r, "variantID")

	if err := a.settings.RemoveTriggerVariant(r.Context(), shop, variantID); err != nil {
		a.writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *AdminAPI) handleListGiftCards(w http.ResponseWriter, r *http.Request) {
	shop := domain.GetShopDomainFromContext(r.Context())

	page, _ := strconv.ParseInt(r.URL.Query().Get("page"), 10, 64)
	perPage, _ := strconv.ParseInt(r.URL.Query().Get("per_page"), 10, 64)

	groups, total, err := a.giftCards.ListGiftCards(r.Context(), shop, page, perPage)
	if err != nil {
		a.writeError(w, http.StatusInternalServerError, err)
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]any{
		"orders": groups,
		"total":  total,
	})
}

func (a *AdminAPI) handleGetBalances(w http.ResponseWriter, r *http.Request) {
	shop := domain.GetShopDomainFromContext(r.Context())

	idsParam := r.URL.Query().Get("ids")
	if idsParam == "" {
		a.writeJSON(w, http.StatusOK, map[string]string{})
		return
	}
	ids := strings.Split(idsParam, ",")

	balances, err := a.giftCards.GetBalances(r.Context(), shop, ids)
	if err != nil {
		a.writeError(w, http.StatusBadGateway, err)
		return
	}
	a.writeJSON(w, http.StatusOK, balances)
}

func (a *AdminAPI) handleRevealCode(w http.ResponseWriter, r *http.Request) {
	shop := domain.GetShopDomainFromContext(r.Context())
	id := chi.URLParam(r, "id")

	code, err := a.giftCards.RevealCode(r.Context(), shop, id)
	if err != nil {
		a.writeError(w, http.StatusNotFound, err)
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]string{"code": code})
}

func (a *AdminAPI) handleMarkPrinted(w http.ResponseWriter, r *http.Request) {
	a.setPrinted(w, r, true)
}

func (a *AdminAPI) handleUnmarkPrinted(w http.ResponseWriter, r *http.Request) {
	a.setPrinted(w, r, false)
}

func (a *AdminAPI) setPrinted(w http.ResponseWriter, r *http.Request, printed bool) {
	shop := domain.GetShopDomainFromContext(r.Context())
	id := chi.URLParam(r, "id")

	if err := a.giftCards.SetPrinted(r.Context(), shop, id, printed); err != nil {
		a.writeError(w, http.StatusNotFound, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *AdminAPI) handleDashboard(w http.ResponseWriter, r *http.Request) {
	shop := domain.GetShopDomainFromContext(r.Context())

	stats, err := a.giftCards.Dashboard(r.Context(), shop)
	if err != nil {
		a.writeError(w, http.StatusInternalServerError, err)
		return
	}
	a.writeJSON(w, http.StatusOK, stats)
}

func (a *AdminAPI) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.logger.Error().Err(err).Msg("Failed to encode response")
	}
}

func (a *AdminAPI) writeError(w http.ResponseWriter, status int, err error) {
	a.logger.Error().Err(err).Int("status", status).Msg("Admin API request failed")
	a.writeJSON(w, status, map[string]string{"error": err.Error()})
}
