package httpapi

import (
	"fmt"
	"net/http"

	"leadcrm/internal/service"

	"go.uber.org/zap"
)

// Services 路由依赖的服务集合
type Services struct {
	Auth       *service.AuthService
	Leads      *service.LeadService
	FollowUps  *service.FollowUpService
	Categories *service.CategoryService
	Agents     *service.AgentService
	Dashboard  *service.DashboardService
	Messages   *service.Messages
}

// Options HTTP 层参数
type Options struct {
	CookieName string
	MaxUpload  int64
	Metrics    *Metrics // nil 时不暴露 /metrics
}

// NewAPI registers every route and wraps the router with session and metrics middleware.
func NewAPI(s Services, opts Options, logger *zap.Logger) (http.Handler, error) {
	router := NewRouter(logger)

	schema, err := NewDashboardSchema(s.Dashboard)
	if err != nil {
		return nil, fmt.Errorf("failed to build graphql schema: %w", err)
	}

	router.RegisterAuthRoutes(NewAuthHandler(s.Auth, opts.CookieName, logger))
	router.RegisterLeadRoutes(
		NewLeadsHandler(s.Leads, s.FollowUps, s.Messages, opts.MaxUpload, logger),
		NewFollowUpsHandler(s.FollowUps, s.Messages, opts.MaxUpload, logger),
	)
	router.RegisterCategoryRoutes(NewCategoriesHandler(s.Categories, s.Messages, logger))
	router.RegisterAgentRoutes(NewAgentsHandler(s.Agents, s.Messages, logger))
	router.RegisterDashboardRoutes(
		NewDashboardHandler(s.Dashboard, s.Messages, logger),
		NewGraphQLHandler(schema, logger),
	)
	router.RegisterOpsRoutes(opts.Metrics)

	var h http.Handler = SessionMiddleware(s.Auth, opts.CookieName, logger, router)
	if opts.Metrics != nil {
		h = opts.Metrics.Middleware(h)
	}
	return h, nil
}
