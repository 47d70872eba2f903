package security

import (
	"net/http"
	"time"
)

// Report summarizes security-relevant settings. It never carries secrets.
type Report struct {
	ProductionMode         bool
	SigningAlgorithm       string
	Issuer                 string
	AccessTTL              time.Duration
	RefreshTTL             time.Duration
	PasswordScheme         string
	UpgradeOnLogin         bool
	SecureCookies          bool
	SameSite               string
	RevokeLineageOnReuse   bool
	VerboseDecisions       bool
	AuditEnabled           bool
	MetricsEnabled         bool
	LatencyHistogramActive bool
}

type ReportInput struct {
	ProductionMode          bool
	RequireSecureCookies    bool
	Issuer                  string
	AccessTTL               time.Duration
	RefreshTTL              time.Duration
	PasswordScheme          string
	UpgradeOnLogin          bool
	SameSite                http.SameSite
	RevokeLineageOnReuse    bool
	VerboseDecisions        bool
	AuditEnabled            bool
	MetricsEnabled          bool
	EnableLatencyHistograms bool
}

// BuildReport derives the report from input.
func BuildReport(input ReportInput) Report {
	return Report{
		ProductionMode:         input.ProductionMode,
		SigningAlgorithm:       "HS256",
		Issuer:                 input.Issuer,
		AccessTTL:              input.AccessTTL,
		RefreshTTL:             input.RefreshTTL,
		PasswordScheme:         input.PasswordScheme,
		UpgradeOnLogin:         input.UpgradeOnLogin,
		SecureCookies:          input.ProductionMode || input.RequireSecureCookies,
		SameSite:               sameSiteName(input.SameSite),
		RevokeLineageOnReuse:   input.RevokeLineageOnReuse,
		VerboseDecisions:       input.VerboseDecisions,
		AuditEnabled:           input.AuditEnabled,
		MetricsEnabled:         input.MetricsEnabled,
		LatencyHistogramActive: input.MetricsEnabled && input.EnableLatencyHistograms,
	}
}

func sameSiteName(mode http.SameSite) string {
	switch mode {
	case http.SameSiteLaxMode:
		return "lax"
	case http.SameSiteStrictMode:
		return "strict"
	case http.SameSiteNoneMode:
		return "none"
	default:
		return "default"
	}
}
