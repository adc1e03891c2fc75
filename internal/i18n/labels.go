// Package i18n holds the dashboard's display strings for each supported
// language.
package i18n

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

// Language is a supported display language.
type Language int

const (
	English Language = iota
	Marathi

	languageCount
)

// Default is used when no preference matches.
const Default = English

// Labels is the full set of display strings for one language. Adding a
// field forces every entry in the table below to be reviewed.
type Labels struct {
	Title            string `json:"title"`
	Subtitle         string `json:"subtitle"`
	LiveTab          string `json:"live_tab"`
	HistoryTab       string `json:"history_tab"`
	SettingsTab      string `json:"settings_tab"`
	GHILabel         string `json:"ghi_label"`
	ForecastedSeries string `json:"forecasted_series"`
	ActualSeries     string `json:"actual_series"`
	ThresholdLabel   string `json:"threshold_label"`
	AlertTitle       string `json:"alert_title"`
	PumpOn           string `json:"pump_on"`
	PumpOff          string `json:"pump_off"`
	BestWindow       string `json:"best_window"`
	Savings          string `json:"savings"`
	CompareWith      string `json:"compare_with"`
	Language         string `json:"language"`
	AlertsIssued     string `json:"alerts_issued"`
	DaysForecasted   string `json:"days_forecasted"`
	MaxGHI           string `json:"max_ghi"`
	TimeColumn       string `json:"time_column"`
	PredictedColumn  string `json:"predicted_column"`
	DecisionColumn   string `json:"decision_column"`
	AdvisoryTitle    string `json:"advisory_title"`
	AdvisoryIrrigate string `json:"advisory_irrigate"`
	AdvisoryConserve string `json:"advisory_conserve"`
	Download         string `json:"download"`
	HistoryPending   string `json:"history_pending"`
	Footer           string `json:"footer"`
}

// table is indexed by Language and sized by languageCount. A language left
// out of the literal gets zero-valued Labels; TestLabels_Complete catches it.
var table = [languageCount]Labels{
	English: {
		Title:            "Smart Irrigation Forecast Dashboard",
		Subtitle:         "Solar irradiance forecast with pump alerts at the 500 W/m² threshold.",
		LiveTab:          "Live Forecast",
		HistoryTab:       "History",
		SettingsTab:      "Settings",
		GHILabel:         "Global Horizontal Irradiance (GHI)",
		ForecastedSeries: "Forecasted GHI",
		ActualSeries:     "Actual GHI",
		ThresholdLabel:   "Pump Threshold",
		AlertTitle:       "Irrigation Recommendations",
		PumpOn:           "Irrigate Now",
		PumpOff:          "Delay Irrigation",
		BestWindow:       "Best GHI Window: 11 AM – 2 PM",
		Savings:          "Energy Saved: ₹42 (Est.)",
		CompareWith:      "Compare with",
		Language:         "Language",
		AlertsIssued:     "Alerts Issued",
		DaysForecasted:   "Days Forecasted",
		MaxGHI:           "Max GHI",
		TimeColumn:       "Time",
		PredictedColumn:  "Predicted GHI",
		DecisionColumn:   "Pump Decision",
		AdvisoryTitle:    "Voice Advisory (Simulated)",
		AdvisoryIrrigate: "Advisory: start irrigation within the next 15 minutes",
		AdvisoryConserve: "Advisory: solar power insufficient, use stored energy",
		Download:         "Download Forecast CSV",
		HistoryPending:   "Comparison is not available in this version.",
		Footer:           "Powered by SARIMA GHI forecasting",
	},
	Marathi: {
		Title:            "शहाण्या सिंचन डॅशबोर्ड",
		Subtitle:         "सौर विकिरण अंदाज आणि ५०० W/m² मर्यादेवर पंप सूचना.",
		LiveTab:          "थेट अंदाज",
		HistoryTab:       "इतिहास",
		SettingsTab:      "सेटिंग्ज",
		GHILabel:         "संपूर्ण क्षैतिज विकिरण (GHI)",
		ForecastedSeries: "अंदाजित GHI",
		ActualSeries:     "प्रत्यक्ष GHI",
		ThresholdLabel:   "पंप मर्यादा",
		AlertTitle:       "सिंचनासाठी सूचना",
		PumpOn:           "पंप चालू करा",
		PumpOff:          "पंप सुरू करू नका",
		BestWindow:       "सर्वोत्तम वेळ: सकाळी ११ – दुपारी २",
		Savings:          "ऊर्जा बचत: ₹४२ (अंदाजित)",
		CompareWith:      "याची तुलना करा",
		Language:         "भाषा",
		AlertsIssued:     "दिलेल्या सूचना",
		DaysForecasted:   "अंदाजाचे दिवस",
		MaxGHI:           "कमाल GHI",
		TimeColumn:       "वेळ",
		PredictedColumn:  "अंदाजित GHI",
		DecisionColumn:   "पंप निर्णय",
		AdvisoryTitle:    "मराठी आवाज सूचना (नमुना)",
		AdvisoryIrrigate: "सूचना: पुढील १५ मिनिटांत सिंचन सुरू करा",
		AdvisoryConserve: "सूचना: सौर ऊर्जा अपुरी, साठवणूक वापरा",
		Download:         "अंदाज CSV डाउनलोड करा",
		HistoryPending:   "या आवृत्तीत तुलना उपलब्ध नाही.",
		Footer:           "SARIMA GHI अंदाजावर आधारित",
	},
}

var (
	codes = [languageCount]string{English: "en", Marathi: "mr"}
	names = [languageCount]string{English: "English", Marathi: "मराठी"}
	tags  = [languageCount]language.Tag{English: language.English, Marathi: language.Marathi}

	matcher = language.NewMatcher(tags[:])
)

// Languages lists every supported language in display order.
func Languages() []Language {
	out := make([]Language, languageCount)
	for i := range out {
		out[i] = Language(i)
	}
	return out
}

// Code returns the short key ("en", "mr").
func (l Language) Code() string {
	if !l.valid() {
		return codes[Default]
	}
	return codes[l]
}

// Name returns the language's name in its own script.
func (l Language) Name() string {
	if !l.valid() {
		return names[Default]
	}
	return names[l]
}

func (l Language) String() string { return l.Code() }

func (l Language) valid() bool { return l >= 0 && l < languageCount }

// For returns the labels for l, falling back to Default for unknown values.
func For(l Language) Labels {
	if !l.valid() {
		return table[Default]
	}
	return table[l]
}

// ParseLanguage resolves a user-selected language key. It accepts the short
// codes, the English names and BCP 47 tags such as "mr-IN".
func ParseLanguage(key string) (Language, error) {
	k := strings.ToLower(strings.TrimSpace(key))
	switch k {
	case "en", "english":
		return English, nil
	case "mr", "marathi", "मराठी":
		return Marathi, nil
	}
	if tag, err := language.Parse(k); err == nil {
		base, _ := tag.Base()
		for i, t := range tags {
			if b, _ := t.Base(); b == base {
				return Language(i), nil
			}
		}
	}
	return Default, fmt.Errorf("unsupported language %q", key)
}

// Negotiate picks the best supported language for an Accept-Language header
// value. An empty or unmatched header yields Default.
func Negotiate(acceptLanguage string) Language {
	if strings.TrimSpace(acceptLanguage) == "" {
		return Default
	}
	prefs, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(prefs) == 0 {
		return Default
	}
	_, idx, conf := matcher.Match(prefs...)
	if conf == language.No {
		return Default
	}
	return Language(idx)
}
