package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"sunpump/internal/core"
	"sunpump/internal/i18n"
	"sunpump/internal/types"
)

// LabelsHandler serves the display strings for each language so other
// front ends can reuse them.
type LabelsHandler struct {
	validator *core.Validator
}

func NewLabelsHandler(v *core.Validator) *LabelsHandler {
	return &LabelsHandler{validator: v}
}

func (h *LabelsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/labels", h.HandleListLanguages)
	r.Get("/labels/{lang}", h.HandleGetLabels)
}

type languageInfo struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type labelsParams struct {
	Lang string `json:"lang" validate:"required,lang"`
}

// HandleListLanguages handles GET /v1/labels.
func (h *LabelsHandler) HandleListLanguages(w http.ResponseWriter, r *http.Request) {
	langs := i18n.Languages()
	out := make([]languageInfo, len(langs))
	for i, l := range langs {
		out[i] = languageInfo{Code: l.Code(), Name: l.Name()}
	}
	core.Data(w, r, http.StatusOK, out)
}

// HandleGetLabels handles GET /v1/labels/{lang}.
func (h *LabelsHandler) HandleGetLabels(w http.ResponseWriter, r *http.Request) {
	params := labelsParams{Lang: chi.URLParam(r, "lang")}
	if err := h.validator.ValidateStruct(params); err != nil {
		var appErr *types.AppError
		if errors.As(err, &appErr) && appErr.Code == types.ErrCodeValidationInvalidLanguage {
			err = types.NewAppErrorWithDetails(types.ErrCodeNotFoundLanguage, "no labels for language", err,
				map[string]any{"lang": params.Lang, "supported": supportedCodes()})
		}
		core.Error(w, r, err)
		return
	}
	lang, _ := i18n.ParseLanguage(params.Lang)
	w.Header().Set("Content-Language", lang.Code())
	core.Data(w, r, http.StatusOK, i18n.For(lang))
}
