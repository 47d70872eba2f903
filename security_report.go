package authgate

import "github.com/MrEthical07/authgate/internal/security"

// SecurityReport summarizes the security posture of a built Service. It carries no
// secrets and is safe to log at startup.
type SecurityReport = security.Report

// SecurityReport describes the effective configuration.
func (s *Service) SecurityReport() SecurityReport {
	if s == nil {
		return SecurityReport{}
	}
	cfg := s.config
	return security.BuildReport(security.ReportInput{
		ProductionMode:          cfg.Security.ProductionMode,
		RequireSecureCookies:    cfg.Security.RequireSecureCookies,
		Issuer:                  cfg.JWT.Issuer,
		AccessTTL:               cfg.JWT.AccessTTL,
		RefreshTTL:              cfg.JWT.RefreshTTL,
		PasswordScheme:          cfg.Password.Scheme,
		UpgradeOnLogin:          cfg.Password.UpgradeOnLogin,
		SameSite:                cfg.Cookie.SameSite,
		RevokeLineageOnReuse:    cfg.Rotation.RevokeLineageOnReuse,
		VerboseDecisions:        cfg.Security.VerboseDecisions,
		AuditEnabled:            cfg.Audit.Enabled,
		MetricsEnabled:          cfg.Metrics.Enabled,
		EnableLatencyHistograms: cfg.Metrics.EnableLatencyHistograms,
	})
}
