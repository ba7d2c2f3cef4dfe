package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/safezone-app/safezone/internal/core/domain"
	"github.com/safezone-app/safezone/internal/pkg/geospatial"
)

// buildSchema creates the GraphQL schema wired to our services. Field
// resolution relies on the json tags of the domain types.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lon": &graphql.Field{Type: graphql.Float},
		},
	})

	zoneType := graphql.NewObject(graphql.ObjectConfig{
		Name: "AlertZone",
		Fields: graphql.Fields{
			"id":              &graphql.Field{Type: graphql.String},
			"code":            &graphql.Field{Type: graphql.String},
			"name":            &graphql.Field{Type: graphql.String},
			"city":            &graphql.Field{Type: graphql.String},
			"point":           &graphql.Field{Type: geoPointType},
			"shelter_seconds": &graphql.Field{Type: graphql.Int},
		},
	})

	alertType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Alert",
		Fields: graphql.Fields{
			"id":         &graphql.Field{Type: graphql.String},
			"category":   &graphql.Field{Type: graphql.String},
			"title":      &graphql.Field{Type: graphql.String},
			"zone_codes": &graphql.Field{Type: graphql.NewList(graphql.String)},
			"cities":     &graphql.Field{Type: graphql.NewList(graphql.String)},
			"issued_at":  &graphql.Field{Type: graphql.DateTime},
		},
	})

	statusType := graphql.NewObject(graphql.ObjectConfig{
		Name: "ZoneStatus",
		Fields: graphql.Fields{
			"zone":     &graphql.Field{Type: zoneType},
			"matched":  &graphql.Field{Type: graphql.Boolean},
			"match_by": &graphql.Field{Type: graphql.String},
			"alerts":   &graphql.Field{Type: graphql.NewList(alertType)},
			"deadline": &graphql.Field{Type: graphql.DateTime},
		},
	})

	shelterType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Shelter",
		Fields: graphql.Fields{
			"id":         &graphql.Field{Type: graphql.String},
			"name":       &graphql.Field{Type: graphql.String},
			"address":    &graphql.Field{Type: graphql.String},
			"kind":       &graphql.Field{Type: graphql.String},
			"capacity":   &graphql.Field{Type: graphql.Int},
			"accessible": &graphql.Field{Type: graphql.Boolean},
			"location":   &graphql.Field{Type: geoPointType},
			"distance":   &graphql.Field{Type: graphql.Float},
		},
	})

	hospitalType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Hospital",
		Fields: graphql.Fields{
			"id":        &graphql.Field{Type: graphql.String},
			"name":      &graphql.Field{Type: graphql.String},
			"phone":     &graphql.Field{Type: graphql.String},
			"city":      &graphql.Field{Type: graphql.String},
			"emergency": &graphql.Field{Type: graphql.Boolean},
			"location":  &graphql.Field{Type: geoPointType},
			"distance":  &graphql.Field{Type: graphql.Float},
		},
	})

	locationArgs := graphql.FieldConfigArgument{
		"lat": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
		"lon": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
	}
	withArgs := func(extra graphql.FieldConfigArgument) graphql.FieldConfigArgument {
		out := graphql.FieldConfigArgument{}
		for k, v := range locationArgs {
			out[k] = v
		}
		for k, v := range extra {
			out[k] = v
		}
		return out
	}
	pointArg := func(p graphql.ResolveParams) domain.GeoPoint {
		return domain.GeoPoint{Lat: p.Args["lat"].(float64), Lon: p.Args["lon"].(float64)}
	}

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"zones": &graphql.Field{
				Type:        graphql.NewList(zoneType),
				Description: "All alert zones in source order",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Zones.List(p.Context)
				},
			},
			"zone": &graphql.Field{
				Type:        zoneType,
				Description: "A single alert zone by code",
				Args: graphql.FieldConfigArgument{
					"code": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Zones.GetByCode(p.Context, p.Args["code"].(string))
				},
			},
			"resolveZone": &graphql.Field{
				Type:        statusType,
				Description: "Resolve the alert zone for a location, falling back to a city name",
				Args: withArgs(graphql.FieldConfigArgument{
					"city":     &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: ""},
					"strategy": &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: "first"},
				}),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					strategy, ok := geospatial.ParseStrategy(p.Args["strategy"].(string))
					if !ok {
						return nil, &domain.ValidationError{Field: "strategy", Reason: "must be first or nearest"}
					}
					return deps.Zones.Resolve(p.Context, pointArg(p), p.Args["city"].(string), strategy)
				},
			},
			"nearestShelters": &graphql.Field{
				Type:        graphql.NewList(shelterType),
				Description: "Closest shelters to a location",
				Args: withArgs(graphql.FieldConfigArgument{
					"limit": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 10},
				}),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Shelters.Nearest(p.Context, pointArg(p), p.Args["limit"].(int))
				},
			},
			"nearbyHospitals": &graphql.Field{
				Type:        graphql.NewList(hospitalType),
				Description: "Hospitals within a radius in kilometers",
				Args: withArgs(graphql.FieldConfigArgument{
					"radius_km": &graphql.ArgumentConfig{Type: graphql.Float, DefaultValue: 0.0},
				}),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					radius := p.Args["radius_km"].(float64)
					if radius <= 0 {
						radius = deps.HospitalRadiusKm
					}
					return deps.Hospitals.Nearby(p.Context, pointArg(p), radius)
				},
			},
			"alerts": &graphql.Field{
				Type:        graphql.NewList(alertType),
				Description: "Recorded alerts, newest first",
				Args: graphql.FieldConfigArgument{
					"since_hours": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 24},
					"limit":       &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 100},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					since := time.Now().Add(-time.Duration(p.Args["since_hours"].(int)) * time.Hour)
					return deps.Alerts.History(p.Context, since, p.Args["limit"].(int))
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil || req.Query == "" {
			return errBadRequest(c, "invalid request body")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		c.Set(fiber.HeaderCacheControl, "no-store")
		return c.JSON(result)
	}
}
