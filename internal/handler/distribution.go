package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"storefront-bridge/internal/adapter"
	"storefront-bridge/internal/model"
)

// distributionRequest carries the free-text distribution lines to validate.
type distributionRequest struct {
	Lines []model.DistributionLine `json:"lines"`
}

// distributionResponse returns the merged lines, each annotated with the
// address identifier a cart insertion should ship to.
type distributionResponse struct {
	OK    bool                     `json:"ok"`
	Lines []model.DistributionLine `json:"lines"`
}

// handleValidateDistribution resolves every distribution line to an
// address-book identifier, creating missing entries upstream. Resolution is
// all-or-nothing: one unresolvable line fails the whole request.
func (h *Handler) handleValidateDistribution(w http.ResponseWriter, r *http.Request) {
	email, err := customerEmail(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	var req distributionRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	if len(req.Lines) == 0 {
		h.writeError(w, model.NewValidationError("lines", "at least one line required"))
		return
	}
	for i, line := range req.Lines {
		if line.Address == "" || line.City == "" || line.Postal == "" {
			h.writeError(w, model.NewValidationError("lines",
				fmt.Sprintf("line %d needs address, city and postal code", i+1)))
			return
		}
	}

	customerID, err := h.upstream.ResolveCustomer(r.Context(), email)
	if err != nil {
		h.writeError(w, err)
		return
	}

	resolved, err := h.reconciler.ResolveDistribution(r.Context(), customerID, req.Lines)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, distributionResponse{OK: true, Lines: resolved})
}

// cartItemsResponse reports the cart insertion per line.
type cartItemsResponse struct {
	OK      bool                   `json:"ok"`
	CartID  string                 `json:"cartId"`
	Results []model.CartLineResult `json:"results"`
}

// handleCartItems inserts one cart line per resolved address. Lines are
// independent: a failed insertion marks its line failed and the loop goes
// on, so a retry only needs to resend the failed lines.
func (h *Handler) handleCartItems(w http.ResponseWriter, r *http.Request) {
	email, err := customerEmail(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	var req model.CartItemRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	if req.ProductSlug == "" {
		h.writeError(w, model.NewValidationError("productSlug", "required"))
		return
	}
	if len(req.Lines) == 0 {
		h.writeError(w, model.NewValidationError("lines", "at least one line required"))
		return
	}

	ctx := r.Context()
	customerID, err := h.upstream.ResolveCustomer(ctx, email)
	if err != nil {
		h.writeError(w, err)
		return
	}
	productID, err := h.upstream.ResolveProduct(ctx, req.ProductSlug)
	if err != nil {
		h.writeError(w, err)
		return
	}
	cartID, err := h.upstream.GetCart(ctx, customerID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	results := make([]model.CartLineResult, 0, len(req.Lines))
	allOK := true
	for _, line := range req.Lines {
		result := model.CartLineResult{AddressID: line.AddressID, Quantity: line.Quantity}
		switch {
		case line.AddressID == "":
			result.Status = model.CartLineFailed
			result.Message = "missing address identifier; validate the distribution first"
			allOK = false
		case line.Quantity <= 0:
			result.Status = model.CartLineWarning
			result.Message = "non-positive quantity, line skipped"
		default:
			err := h.upstream.AddCartItem(ctx, cartID, &adapter.CartItemInsert{
				ProductID:      productID,
				AddressID:      line.AddressID,
				Quantity:       line.Quantity,
				ShippingMethod: req.ShippingMethod,
				PricingOptions: req.PricingOptions,
			})
			if err != nil {
				h.logger.ErrorContext(ctx, "cart line insertion failed",
					slog.String("cart_id", cartID),
					slog.String("address_id", line.AddressID),
					slog.String("error", err.Error()),
				)
				result.Status = model.CartLineFailed
				result.Message = err.Error()
				allOK = false
			} else {
				result.Status = model.CartLineOK
			}
		}
		results = append(results, result)
	}

	h.writeJSON(w, http.StatusOK, cartItemsResponse{OK: allOK, CartID: cartID, Results: results})
}
