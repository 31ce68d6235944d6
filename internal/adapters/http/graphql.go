package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/parksafe/parksafe/internal/core/domain"
	"github.com/parksafe/parksafe/internal/pkg/cluster"
)

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lon": &graphql.Field{Type: graphql.Float},
		},
	})

	markerType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Marker",
		Fields: graphql.Fields{
			"id":          &graphql.Field{Type: graphql.String},
			"kind":        &graphql.Field{Type: graphql.String},
			"name":        &graphql.Field{Type: graphql.String},
			"description": &graphql.Field{Type: graphql.String},
			"coordinate":  &graphql.Field{Type: geoPointType},
			"available":   &graphql.Field{Type: graphql.Boolean},
			"capacity":    &graphql.Field{Type: graphql.Int},
			"covered":     &graphql.Field{Type: graphql.Boolean},
			"has_pump":    &graphql.Field{Type: graphql.Boolean},
			"has_tools":   &graphql.Field{Type: graphql.Boolean},
			"distance":    &graphql.Field{Type: graphql.Float},
			"updated_at":  &graphql.Field{Type: graphql.DateTime},
		},
	})

	parkingSpotType := graphql.NewObject(graphql.ObjectConfig{
		Name: "ParkingSpot",
		Fields: graphql.Fields{
			"id":          &graphql.Field{Type: graphql.String},
			"name":        &graphql.Field{Type: graphql.String},
			"description": &graphql.Field{Type: graphql.String},
			"location":    &graphql.Field{Type: geoPointType},
			"capacity":    &graphql.Field{Type: graphql.Int},
			"covered":     &graphql.Field{Type: graphql.Boolean},
			"available":   &graphql.Field{Type: graphql.Boolean},
			"created_at":  &graphql.Field{Type: graphql.DateTime},
		},
	})

	repairStationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "RepairStation",
		Fields: graphql.Fields{
			"id":           &graphql.Field{Type: graphql.String},
			"name":         &graphql.Field{Type: graphql.String},
			"description":  &graphql.Field{Type: graphql.String},
			"location":     &graphql.Field{Type: geoPointType},
			"station_type": &graphql.Field{Type: graphql.String},
			"has_pump":     &graphql.Field{Type: graphql.Boolean},
			"has_tools":    &graphql.Field{Type: graphql.Boolean},
			"available":    &graphql.Field{Type: graphql.Boolean},
			"created_at":   &graphql.Field{Type: graphql.DateTime},
		},
	})

	clusterFeatureType := graphql.NewObject(graphql.ObjectConfig{
		Name: "ClusterFeature",
		Fields: graphql.Fields{
			"cluster":    &graphql.Field{Type: graphql.Boolean},
			"count":      &graphql.Field{Type: graphql.Int},
			"coordinate": &graphql.Field{Type: geoPointType},
			"marker":     &graphql.Field{Type: markerType},
		},
	})

	parseKindArgs := func(p graphql.ResolveParams) ([]domain.MarkerKind, error) {
		raw, ok := p.Args["kinds"].([]interface{})
		if !ok {
			return nil, nil
		}
		var kinds []domain.MarkerKind
		for _, entry := range raw {
			s, _ := entry.(string)
			kind, err := domain.ParseMarkerKind(s)
			if err != nil {
				return nil, err
			}
			kinds = append(kinds, kind)
		}
		return kinds, nil
	}

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"markersNearby": &graphql.Field{
				Type:        graphql.NewList(markerType),
				Description: "Find parking and repair markers near a location",
				Args: graphql.FieldConfigArgument{
					"lat":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"lon":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"radius": &graphql.ArgumentConfig{Type: graphql.Float, DefaultValue: 1000.0},
					"limit":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 50},
					"kinds":  &graphql.ArgumentConfig{Type: graphql.NewList(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					lat := p.Args["lat"].(float64)
					lon := p.Args["lon"].(float64)
					radius := p.Args["radius"].(float64)
					limit := p.Args["limit"].(int)
					kinds, err := parseKindArgs(p)
					if err != nil {
						return nil, err
					}
					return deps.Markers.FindNearby(p.Context, lat, lon, radius, limit, kinds)
				},
			},
			"allMarkers": &graphql.Field{
				Type:        graphql.NewList(markerType),
				Description: "The full marker set, optionally filtered by kind",
				Args: graphql.FieldConfigArgument{
					"kinds": &graphql.ArgumentConfig{Type: graphql.NewList(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					kinds, err := parseKindArgs(p)
					if err != nil {
						return nil, err
					}
					return deps.Markers.All(p.Context, kinds)
				},
			},
			"clusters": &graphql.Field{
				Type:        graphql.NewList(clusterFeatureType),
				Description: "Markers bucketed into clusters for a map viewport",
				Args: graphql.FieldConfigArgument{
					"zoom":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
					"min_lat": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"min_lon": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"max_lat": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"max_lon": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"kinds":   &graphql.ArgumentConfig{Type: graphql.NewList(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					kinds, err := parseKindArgs(p)
					if err != nil {
						return nil, err
					}
					markers, err := deps.Markers.All(p.Context, kinds)
					if err != nil {
						return nil, err
					}
					bounds := domain.Bounds{
						MinLat: p.Args["min_lat"].(float64),
						MinLon: p.Args["min_lon"].(float64),
						MaxLat: p.Args["max_lat"].(float64),
						MaxLon: p.Args["max_lon"].(float64),
					}
					return cluster.Clusters(markers, p.Args["zoom"].(int), bounds)
				},
			},
			"parkingSpot": &graphql.Field{
				Type:        parkingSpotType,
				Description: "Get a parking spot by ID",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id := p.Args["id"].(string)
					return deps.Markers.ParkingSpot(p.Context, id)
				},
			},
			"repairStation": &graphql.Field{
				Type:        repairStationType,
				Description: "Get a repair station by ID",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id := p.Args["id"].(string)
					return deps.Markers.RepairStation(p.Context, id)
				},
			},
			"usernameAvailable": &graphql.Field{
				Type:        graphql.Boolean,
				Description: "Whether a username is free to register",
				Args: graphql.FieldConfigArgument{
					"username": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					username := p.Args["username"].(string)
					return deps.Accounts.UsernameAvailable(p.Context, username)
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
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.Context(),
		})

		return c.JSON(result)
	}
}
