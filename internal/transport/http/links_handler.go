package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/linklytics/linklytics/internal/config"
	"github.com/linklytics/linklytics/internal/constants"
	"github.com/linklytics/linklytics/internal/infrastructure/logger"
	appvalidation "github.com/linklytics/linklytics/internal/infrastructure/validation"
	"github.com/linklytics/linklytics/internal/processing/clicks"
	"github.com/linklytics/linklytics/internal/processing/links"
	"github.com/linklytics/linklytics/internal/transport/http/middleware"
	"github.com/linklytics/linklytics/pkg/httputils"
	"go.uber.org/zap"
)

// LinkService is the slice of the link domain the handlers use.
type LinkService interface {
	Create(ctx context.Context, in links.CreateLinkInput) (*links.Link, error)
	Resolve(ctx context.Context, id string) (*links.Link, error)
}

type LinksHandler struct {
	cfg *config.Config
	svc LinkService

	sink         clicks.Sink
	asyncClick   bool
	clickTimeout time.Duration
}

type LinksHandlerOptions struct {
	AsyncClick   bool
	ClickTimeout time.Duration
}

func NewLinksHandler(cfg *config.Config, svc LinkService, sink clicks.Sink) *LinksHandler {
	return NewLinksHandlerWithOptions(cfg, svc, sink, LinksHandlerOptions{
		AsyncClick:   true,
		ClickTimeout: 2 * time.Second,
	})
}

func NewLinksHandlerWithOptions(cfg *config.Config, svc LinkService, sink clicks.Sink, opts LinksHandlerOptions) *LinksHandler {
	if opts.ClickTimeout <= 0 {
		opts.ClickTimeout = 2 * time.Second
	}

	return &LinksHandler{
		cfg:          cfg,
		svc:          svc,
		sink:         sink,
		asyncClick:   opts.AsyncClick,
		clickTimeout: opts.ClickTimeout,
	}
}

type createLinkRequest struct {
	OriginalURL string     `json:"originalURL" validate:"required,notblank,http_url"`
	Alias       string     `json:"alias,omitempty" validate:"omitempty,min=3,max=20,alias_format"`
	ExpDate     *time.Time `json:"expDate,omitempty" validate:"omitempty,future"`
}

type linkResponse struct {
	ID          string     `json:"id"`
	OriginalURL string     `json:"originalURL"`
	Alias       string     `json:"alias,omitempty"`
	ShortURL    string     `json:"shortUrl"`
	CreatedAt   time.Time  `json:"createdAt"`
	ExpDate     *time.Time `json:"expDate,omitempty"`
}

func (h *LinksHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputils.WriteAPIError(w, r, constants.ErrInvalidRequestBody)
		return
	}
	if err := appvalidation.Validate(req); err != nil {
		httputils.WriteAPIError(w, r, validationAPIError(err))
		return
	}

	link, err := h.svc.Create(r.Context(), links.CreateLinkInput{
		OriginalURL: req.OriginalURL,
		Alias:       req.Alias,
		ExpiresAt:   req.ExpDate,
	})
	if err != nil {
		switch {
		case errors.Is(err, links.ErrValidation):
			httputils.WriteAPIError(w, r, constants.ErrValidation.WithMessage(err.Error()))
		default:
			logger.Error("failed to create link", zap.Error(err))
			httputils.WriteAPIError(w, r, constants.ErrInternalError)
		}
		return
	}

	httputils.WriteCreated(w, r, h.linkResponse(link))
}

func (h *LinksHandler) Redirect(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	link, err := h.svc.Resolve(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, links.ErrNotFound):
			httputils.WriteAPIError(w, r, constants.ErrLinkNotFound)
		case errors.Is(err, links.ErrExpired):
			httputils.WriteAPIError(w, r, constants.ErrLinkExpired)
		default:
			logger.Error("failed to resolve link", zap.Error(err), zap.String("id", id))
			httputils.WriteAPIError(w, r, constants.ErrInternalError)
		}
		return
	}

	h.submitClick(r, link.ID)

	http.Redirect(w, r, link.OriginalURL, h.cfg.Shortener.RedirectStatus)
}

// submitClick hands the click to the sink without ever failing the
// redirect: failures are logged, not surfaced.
func (h *LinksHandler) submitClick(r *http.Request, linkID string) {
	req := clicks.Request{
		LinkID:    linkID,
		IPAddress: middleware.ClientIP(r),
		UserAgent: r.UserAgent(),
		Referrer:  middleware.Referrer(r),
	}

	if h.asyncClick {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), h.clickTimeout)
			defer cancel()
			if err := h.sink.Submit(ctx, req); err != nil {
				logger.Warn("failed to record click", zap.Error(err), zap.String("id", linkID))
			}
		}()
		return
	}

	if err := h.sink.Submit(r.Context(), req); err != nil {
		logger.Warn("failed to record click", zap.Error(err), zap.String("id", linkID))
	}
}

func (h *LinksHandler) linkResponse(link *links.Link) linkResponse {
	return linkResponse{
		ID:          link.ID,
		OriginalURL: link.OriginalURL,
		Alias:       link.Alias,
		ShortURL:    strings.TrimRight(h.cfg.Shortener.BaseURL, "/") + "/link/" + link.ID,
		CreatedAt:   link.CreatedAt,
		ExpDate:     link.ExpiresAt,
	}
}

func validationAPIError(err error) constants.APIError {
	apiErr := constants.ErrValidation
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		for _, e := range validationErrs {
			switch {
			case e.Field() == "originalURL":
				return apiErr.WithMessage("originalURL must be a valid http(s) URL")
			case e.Field() == "alias" && e.Tag() == "alias_format":
				return apiErr.WithMessage("alias may only contain letters, digits, - and _")
			case e.Field() == "alias":
				return apiErr.WithMessage("alias must be 3-20 characters")
			case e.Field() == "expDate" && e.Tag() == "future":
				return apiErr.WithMessage("expDate must be in the future")
			}
		}
	}
	return apiErr
}
