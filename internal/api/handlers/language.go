package handlers

import (
	"net/http"

	"sunpump/internal/i18n"
	"sunpump/internal/types"
)

// requestLanguage picks the display language: an explicit ?lang= wins,
// then Accept-Language, then the default. An unsupported ?lang= is an
// error so API clients notice typos.
func requestLanguage(r *http.Request) (i18n.Language, error) {
	if key := r.URL.Query().Get("lang"); key != "" {
		lang, err := i18n.ParseLanguage(key)
		if err != nil {
			return i18n.Default, types.NewAppErrorWithDetails(
				types.ErrCodeValidationInvalidLanguage,
				"unsupported language",
				err,
				map[string]any{"lang": key, "supported": supportedCodes()},
			)
		}
		return lang, nil
	}
	return i18n.Negotiate(r.Header.Get("Accept-Language")), nil
}

func supportedCodes() []string {
	langs := i18n.Languages()
	codes := make([]string, len(langs))
	for i, l := range langs {
		codes[i] = l.Code()
	}
	return codes
}
