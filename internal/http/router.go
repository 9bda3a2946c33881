package httpapi

import (
	"net/http"

	"go.uber.org/zap"
)

// Router 使用标准库 http.ServeMux
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

// HandleHandler 支持 http.Handler 接口
func (r *Router) HandleHandler(pattern string, h http.Handler) {
	r.mux.Handle(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// RegisterAuthRoutes /api/v1/auth/*
func (r *Router) RegisterAuthRoutes(h *AuthHandler) {
	r.HandleHandler("/api/v1/auth/", h)
}

// RegisterLeadRoutes 线索 + 跟进记录
func (r *Router) RegisterLeadRoutes(leads *LeadsHandler, followUps *FollowUpsHandler) {
	r.HandleHandler(leadsPrefix, leads)
	r.HandleHandler(leadsPrefix+"/", leads)
	r.HandleHandler(followUpsPrefix, followUps)
}

// RegisterCategoryRoutes 分类
func (r *Router) RegisterCategoryRoutes(h *CategoriesHandler) {
	r.HandleHandler(categoriesPrefix, h)
	r.HandleHandler(categoriesPrefix+"/", h)
}

// RegisterAgentRoutes agent 管理
func (r *Router) RegisterAgentRoutes(h *AgentsHandler) {
	r.HandleHandler(agentsPrefix, h)
	r.HandleHandler(agentsPrefix+"/", h)
}

// RegisterDashboardRoutes 仪表盘（REST + GraphQL）与一次性提示
func (r *Router) RegisterDashboardRoutes(h *DashboardHandler, gql *GraphQLHandler) {
	r.Handle("/api/v1/dashboard", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		h.GetDashboard(w, req)
	})
	r.Handle("/api/v1/messages", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		h.PopMessages(w, req)
	})
	if gql != nil {
		r.HandleHandler("/api/v1/graphql", gql)
	}
}

// RegisterOpsRoutes /healthz 与 /metrics
func (r *Router) RegisterOpsRoutes(m *Metrics) {
	r.Handle("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, Ok(map[string]string{"status": "ok"}))
	})
	if m != nil {
		r.HandleHandler("/metrics", m.Handler())
	}
}
