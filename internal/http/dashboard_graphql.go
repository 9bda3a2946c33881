package httpapi

import (
	"net/http"

	"leadcrm/internal/service"

	"github.com/graphql-go/graphql"
	"go.uber.org/zap"
)

// GraphQLHandler serves the read-only dashboard schema.
type GraphQLHandler struct {
	schema graphql.Schema
	logger *zap.Logger
}

// NewDashboardSchema builds:
//
//	query { dashboard(days: Int) { totalLeadCount totalInPastDays convertedInPastDays days }
//	        me { username role organizationId } }
func NewDashboardSchema(dashboard *service.DashboardService) (graphql.Schema, error) {
	dashboardType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Dashboard",
		Fields: graphql.Fields{
			"totalLeadCount": &graphql.Field{
				Type: graphql.Int,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*service.DashboardResponse).TotalLeads, nil
				},
			},
			"totalInPastDays": &graphql.Field{
				Type: graphql.Int,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*service.DashboardResponse).RecentLeads, nil
				},
			},
			"convertedInPastDays": &graphql.Field{
				Type: graphql.Int,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*service.DashboardResponse).RecentConverted, nil
				},
			},
			"days": &graphql.Field{
				Type: graphql.Int,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*service.DashboardResponse).Days, nil
				},
			},
		},
	})

	meType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Me",
		Fields: graphql.Fields{
			"username": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*service.Actor).Username, nil
				},
			},
			"role": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return string(p.Source.(*service.Actor).Role.Kind()), nil
				},
			},
			"organizationId": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*service.Actor).OrganizationID(), nil
				},
			},
		},
	})

	query := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"dashboard": &graphql.Field{
				Type: dashboardType,
				Args: graphql.FieldConfigArgument{
					"days": &graphql.ArgumentConfig{
						Type:         graphql.Int,
						DefaultValue: service.DefaultDashboardDays,
					},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					days, _ := p.Args["days"].(int)
					return dashboard.Dashboard(p.Context, actorFrom(p.Context), days)
				},
			},
			"me": &graphql.Field{
				Type: meType,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					actor := actorFrom(p.Context)
					if actor == nil {
						return nil, nil
					}
					return actor, nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{Query: query})
}

func NewGraphQLHandler(schema graphql.Schema, logger *zap.Logger) *GraphQLHandler {
	return &GraphQLHandler{schema: schema, logger: logger}
}

func (h *GraphQLHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var params struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}
	if err := readBodyJSON(r, maxJSONBody, &params); err != nil || params.Query == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"errors": []map[string]any{{"message": "Invalid request body"}},
		})
		return
	}

	result := graphql.Do(graphql.Params{
		Schema:         h.schema,
		RequestString:  params.Query,
		VariableValues: params.Variables,
		OperationName:  params.OperationName,
		Context:        r.Context(),
	})
	if result.HasErrors() {
		h.logger.Debug("GraphQL query returned errors", zap.Int("errors", len(result.Errors)))
	}
	writeJSON(w, http.StatusOK, result)
}

