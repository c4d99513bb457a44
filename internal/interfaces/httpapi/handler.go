package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	sonic "github.com/bytedance/sonic"
	"github.com/go-playground/validator/v10"
	"github.com/riskibarqy/volleyball-league/internal/domain/league"
	"github.com/riskibarqy/volleyball-league/internal/platform/logging"
	"github.com/riskibarqy/volleyball-league/internal/usecase"
)

// DisplaySettings are the presentation options exposed to front ends.
type DisplaySettings struct {
	PrimaryColor    string
	SecondaryColor  string
	SourceOwner     string
	SourceRepo      string
	SourceBranch    string
	TokenConfigured bool
}

type Handler struct {
	importService   *usecase.ImportService
	standingService *usecase.StandingService
	display         DisplaySettings
	logger          *logging.Logger
	validator       *validator.Validate
}

func NewHandler(
	importService *usecase.ImportService,
	standingService *usecase.StandingService,
	display DisplaySettings,
	logger *logging.Logger,
) *Handler {
	if logger == nil {
		logger = logging.Default()
	}

	return &Handler{
		importService:   importService,
		standingService: standingService,
		display:         display,
		logger:          logger,
		validator:       validator.New(),
	}
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Healthz")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) GetDisplaySettings(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetDisplaySettings")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, displaySettingsDTO{
		PrimaryColor:   h.display.PrimaryColor,
		SecondaryColor: h.display.SecondaryColor,
		Source: sourceSettingsDTO{
			Owner:           h.display.SourceOwner,
			Repo:            h.display.SourceRepo,
			Branch:          h.display.SourceBranch,
			TokenConfigured: h.display.TokenConfigured,
		},
	})
}

func (h *Handler) validateRequest(ctx context.Context, req any) error {
	if err := h.validator.StructCtx(ctx, req); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
			first := validationErrs[0]
			return fmt.Errorf("%w: field %s failed on %s", usecase.ErrInvalidInput, strings.ToLower(first.Field()), first.Tag())
		}
		return fmt.Errorf("%w: %v", usecase.ErrInvalidInput, err)
	}
	return nil
}

// decodeOptionalJSON decodes a request body into dst. An empty body leaves
// dst untouched.
func decodeOptionalJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	if err := sonic.ConfigDefault.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("%w: invalid JSON payload", usecase.ErrInvalidInput)
	}
	return nil
}

// cleanPathSegment decodes a league or sub-league path value. Values are
// percent-decoded once more to accept double-encoded clients, then stripped
// of backslash escapes and collapsed.
func cleanPathSegment(raw string) string {
	value := raw
	if decoded, err := url.PathUnescape(value); err == nil {
		value = decoded
	}
	value = strings.ReplaceAll(value, `\`, "")
	return league.CleanLabel(value)
}
