package api

// PathPrefix is prepended to every request path in live mode.
const PathPrefix = "/api"

// Backend routes (relative to PathPrefix).
const (
	RouteLogin              = "/auth/login/"
	RouteRegister           = "/auth/register/"
	RouteCurrentUser        = "/users/me/"
	RouteDashboardStats     = "/dashboard/stats/"
	RouteParties            = "/parties/"
	RouteVideos             = "/videos/"
	RouteNotifications      = "/notifications/"
	RouteAnalyticsOverview  = "/analytics/overview/"
	RouteSettingsPreference = "/settings/preferences/"
)
