// Package graphql exposes a read-only view of the catalog at /api/graphql.
// Mutations stay on the REST admin API where sessions and validation live.
package graphql

import (
	"net/http"

	"github.com/graphql-go/graphql"

	"github.com/sesamoshop/tienda/app/services"
	"github.com/sesamoshop/tienda/pkg/bind"
	"github.com/sesamoshop/tienda/pkg/response"
)

// Handler resolves storefront queries against the catalog service.
type Handler struct {
	schema graphql.Schema
}

// New builds the schema. Failing to assemble it is a programming error, so
// it is surfaced instead of hidden behind a lazy rebuild.
func New(catalog *services.CatalogService) (*Handler, error) {
	categoryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Category",
		Fields: graphql.Fields{
			"id":          &graphql.Field{Type: graphql.Int},
			"name":        &graphql.Field{Type: graphql.String},
			"description": &graphql.Field{Type: graphql.String},
		},
	})

	productType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Product",
		Fields: graphql.Fields{
			"id":          &graphql.Field{Type: graphql.Int},
			"name":        &graphql.Field{Type: graphql.String},
			"category":    &graphql.Field{Type: graphql.String},
			"price":       &graphql.Field{Type: graphql.Float},
			"stock":       &graphql.Field{Type: graphql.Int},
			"description": &graphql.Field{Type: graphql.String},
			"image":       &graphql.Field{Type: graphql.String},
			"featured":    &graphql.Field{Type: graphql.Boolean},
		},
	})

	queryFields := graphql.Fields{
		"products": &graphql.Field{
			Type: graphql.NewList(productType),
			Args: graphql.FieldConfigArgument{
				"page":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 1},
				"limit": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 10},
			},
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				page, _ := p.Args["page"].(int)
				limit, _ := p.Args["limit"].(int)
				items, _ := catalog.ActiveProducts(page, limit)
				return items, nil
			},
		},
		"product": &graphql.Field{
			Type: productType,
			Args: graphql.FieldConfigArgument{
				"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
			},
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				id, _ := p.Args["id"].(int)
				prod, err := catalog.Product(id)
				if err != nil {
					return nil, nil // absent, not an error
				}
				if !prod.Active() {
					return nil, nil
				}
				return prod, nil
			},
		},
		"categories": &graphql.Field{
			Type: graphql.NewList(categoryType),
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return catalog.Categories(), nil
			},
		},
	}

	schema, err := graphql.NewSchema(graphql.SchemaConfig{
		Query: graphql.NewObject(graphql.ObjectConfig{Name: "Query", Fields: queryFields}),
	})
	if err != nil {
		return nil, err
	}
	return &Handler{schema: schema}, nil
}

// ServeHTTP handles POST {query, variables}.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Query     string                 `json:"query"`
		Variables map[string]interface{} `json:"variables"`
	}
	if _, err := bind.JSON(r, &body); err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	result := graphql.Do(graphql.Params{
		Schema:         h.schema,
		RequestString:  body.Query,
		VariableValues: body.Variables,
		Context:        r.Context(),
	})
	response.Success(w, result)
}
