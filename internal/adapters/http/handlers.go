package http

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/parksafe/parksafe/internal/core/domain"
	"github.com/parksafe/parksafe/internal/core/ports"
	"github.com/parksafe/parksafe/internal/pkg/cluster"
	"github.com/parksafe/parksafe/internal/pkg/metrics"
)

// MapStats holds row counts from the marker tables.
type MapStats struct {
	ParkingSpots   int    `json:"parking_spots"`
	RepairStations int    `json:"repair_stations"`
	Profiles       int    `json:"profiles"`
	Feedback       int    `json:"feedback"`
	LastUpdate     string `json:"last_update,omitempty"`
}

// MapStatsHandler returns row counts from the marker tables.
func MapStatsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.DB == nil {
			return errInternal(c, "database not available")
		}

		var stats MapStats
		row := deps.DB.Pool.QueryRow(c.Context(), `
			SELECT
				(SELECT count(*) FROM parking_spots),
				(SELECT count(*) FROM repair_stations),
				(SELECT count(*) FROM profiles),
				(SELECT count(*) FROM feedback),
				COALESCE((SELECT max(updated_at)::text FROM parking_spots), '')
		`)
		if err := row.Scan(&stats.ParkingSpots, &stats.RepairStations,
			&stats.Profiles, &stats.Feedback, &stats.LastUpdate); err != nil {
			return errInternal(c, err.Error())
		}

		c.Set("Cache-Control", "public, max-age=60")
		return c.JSON(stats)
	}
}

// parseKinds reads the optional comma-separated kind filter. An empty
// parameter means every kind.
func parseKinds(c *fiber.Ctx) ([]domain.MarkerKind, error) {
	raw := c.Query("kinds")
	if raw == "" {
		return nil, nil
	}
	var kinds []domain.MarkerKind
	for _, part := range strings.Split(raw, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		kind, err := domain.ParseMarkerKind(part)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, kind)
	}
	return kinds, nil
}

// NearbyMarkersHandler returns markers within a radius of a point.
func NearbyMarkersHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		lat := c.QueryFloat("lat", 0)
		lon := c.QueryFloat("lon", 0)
		radius := c.QueryFloat("radius", 1000)
		limit := c.QueryInt("limit", 50)

		if lat == 0 || lon == 0 {
			return errBadRequest(c, "lat and lon are required")
		}
		kinds, err := parseKinds(c)
		if err != nil {
			return errBadRequest(c, err.Error())
		}

		markers, err := deps.Markers.FindNearby(c.Context(), lat, lon, radius, limit, kinds)
		if err != nil {
			return errBadRequest(c, err.Error())
		}

		c.Set("Cache-Control", "public, max-age=60")
		return c.JSON(markers)
	}
}

// nearbyByKind serves the per-kind nearby endpoints old app builds call.
// Same query as NearbyMarkersHandler with the kind filter pinned.
func nearbyByKind(deps *Dependencies, kinds []domain.MarkerKind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		lat := c.QueryFloat("lat", 0)
		lon := c.QueryFloat("lon", 0)
		radius := c.QueryFloat("radius", 1000)
		limit := c.QueryInt("limit", 50)

		if lat == 0 || lon == 0 {
			return errBadRequest(c, "lat and lon are required")
		}

		markers, err := deps.Markers.FindNearby(c.Context(), lat, lon, radius, limit, kinds)
		if err != nil {
			return errBadRequest(c, err.Error())
		}

		c.Set("Cache-Control", "public, max-age=60")
		return c.JSON(markers)
	}
}

// NearbyParkingSpotsHandler returns parking markers near a point.
func NearbyParkingSpotsHandler(deps *Dependencies) fiber.Handler {
	return nearbyByKind(deps, []domain.MarkerKind{domain.MarkerParking})
}

// NearbyRepairStationsHandler returns repair and service markers near a point.
func NearbyRepairStationsHandler(deps *Dependencies) fiber.Handler {
	return nearbyByKind(deps, []domain.MarkerKind{domain.MarkerRepairStation, domain.MarkerBicycleService})
}

// AllMarkersHandler returns the full marker set, optionally filtered by kind.
func AllMarkersHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		kinds, err := parseKinds(c)
		if err != nil {
			return errBadRequest(c, err.Error())
		}

		markers, err := deps.Markers.All(c.Context(), kinds)
		if err != nil {
			return errInternal(c, err.Error())
		}

		c.Set("Cache-Control", "public, max-age=300")
		return c.JSON(markers)
	}
}

// AllParkingSpotsHandler is the legacy per-kind dump kept for old app builds.
// Prefer GET /v1/markers?kinds=parking.
func AllParkingSpotsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		markers, err := deps.Markers.All(c.Context(), []domain.MarkerKind{domain.MarkerParking})
		if err != nil {
			return errInternal(c, err.Error())
		}

		c.Set("Cache-Control", "public, max-age=300")
		return c.JSON(markers)
	}
}

// AllRepairStationsHandler is the legacy per-kind dump kept for old app builds.
// Prefer GET /v1/markers?kinds=repair_station,bicycle_service.
func AllRepairStationsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		markers, err := deps.Markers.All(c.Context(), []domain.MarkerKind{domain.MarkerRepairStation, domain.MarkerBicycleService})
		if err != nil {
			return errInternal(c, err.Error())
		}

		c.Set("Cache-Control", "public, max-age=300")
		return c.JSON(markers)
	}
}

// ClusteredMarkersHandler buckets markers into clusters for a map viewport.
// GET /v1/markers/clustered?zoom=12&min_lat=..&min_lon=..&max_lat=..&max_lon=..
func ClusteredMarkersHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		zoom := c.QueryInt("zoom", 12)
		if c.Query("min_lat") == "" || c.Query("min_lon") == "" || c.Query("max_lat") == "" || c.Query("max_lon") == "" {
			return errBadRequest(c, "min_lat, min_lon, max_lat, max_lon are required")
		}
		bounds := domain.Bounds{
			MinLat: c.QueryFloat("min_lat", 0),
			MinLon: c.QueryFloat("min_lon", 0),
			MaxLat: c.QueryFloat("max_lat", 0),
			MaxLon: c.QueryFloat("max_lon", 0),
		}
		if !bounds.Valid() {
			return errBadRequest(c, "min_lat, min_lon, max_lat, max_lon must describe a valid viewport")
		}
		kinds, err := parseKinds(c)
		if err != nil {
			return errBadRequest(c, err.Error())
		}

		markers, err := deps.Markers.All(c.Context(), kinds)
		if err != nil {
			return errInternal(c, err.Error())
		}

		features, err := cluster.Clusters(markers, zoom, bounds)
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		metrics.ClusterRequests.WithLabelValues(strconv.Itoa(zoom)).Observe(float64(len(markers)))

		c.Set("Cache-Control", "public, max-age=60")
		return c.JSON(fiber.Map{
			"zoom":     zoom,
			"features": features,
			"count":    len(features),
		})
	}
}

// ListParkingSpotsHandler lists parking spots with offset pagination.
func ListParkingSpotsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		offset := c.QueryInt("offset", 0)
		limit := c.QueryInt("limit", 100)
		if offset < 0 {
			offset = 0
		}
		if limit <= 0 || limit > 200 {
			limit = 100
		}

		spots, total, err := deps.Markers.ListParkingSpots(c.Context(), limit, offset)
		if err != nil {
			return errInternal(c, err.Error())
		}

		pg := Pagination{Offset: offset, Limit: limit, Total: total}
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: spots, Pagination: pg})
	}
}

// GetParkingSpotHandler returns a single parking spot by ID.
func GetParkingSpotHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "parking spot id is required")
		}
		spot, err := deps.Markers.ParkingSpot(c.Context(), id)
		if err != nil {
			if errors.Is(err, ports.ErrNotFound) {
				return errNotFound(c, "parking spot not found")
			}
			return errInternal(c, err.Error())
		}
		return c.JSON(spot)
	}
}

// ListRepairStationsHandler lists repair stations with offset pagination.
func ListRepairStationsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		offset := c.QueryInt("offset", 0)
		limit := c.QueryInt("limit", 100)
		if offset < 0 {
			offset = 0
		}
		if limit <= 0 || limit > 200 {
			limit = 100
		}

		stations, total, err := deps.Markers.ListRepairStations(c.Context(), limit, offset)
		if err != nil {
			return errInternal(c, err.Error())
		}

		pg := Pagination{Offset: offset, Limit: limit, Total: total}
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: stations, Pagination: pg})
	}
}

// GetRepairStationHandler returns a single repair station by ID.
func GetRepairStationHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "repair station id is required")
		}
		station, err := deps.Markers.RepairStation(c.Context(), id)
		if err != nil {
			if errors.Is(err, ports.ErrNotFound) {
				return errNotFound(c, "repair station not found")
			}
			return errInternal(c, err.Error())
		}
		return c.JSON(station)
	}
}

// DirectionsHandler builds external navigation deep links for a marker,
// so clients can hand off to Google or Apple Maps without knowing the
// URL formats. GET /v1/directions/:kind/:id
func DirectionsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		kind, err := domain.ParseMarkerKind(c.Params("kind"))
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "marker id is required")
		}

		var (
			name  string
			point domain.GeoPoint
		)
		switch kind {
		case domain.MarkerParking:
			spot, err := deps.Markers.ParkingSpot(c.Context(), id)
			if err != nil {
				if errors.Is(err, ports.ErrNotFound) {
					return errNotFound(c, "parking spot not found")
				}
				return errInternal(c, err.Error())
			}
			name, point = spot.Name, spot.Location
		default:
			station, err := deps.Markers.RepairStation(c.Context(), id)
			if err != nil {
				if errors.Is(err, ports.ErrNotFound) {
					return errNotFound(c, "repair station not found")
				}
				return errInternal(c, err.Error())
			}
			name, point = station.Name, station.Location
		}

		dest := fmt.Sprintf("%.6f,%.6f", point.Lat, point.Lon)
		c.Set("Cache-Control", "public, max-age=3600")
		return c.JSON(fiber.Map{
			"marker_id":  id,
			"kind":       kind,
			"name":       name,
			"coordinate": point,
			"google":     "https://www.google.com/maps/dir/?api=1&destination=" + dest,
			"apple":      "https://maps.apple.com/?daddr=" + dest + "&q=" + url.QueryEscape(name),
		})
	}
}

// availabilityReportBody is the request body for availability reports.
type availabilityReportBody struct {
	Kind      string `json:"kind"`
	MarkerID  string `json:"marker_id"`
	Available bool   `json:"available"`
}

// ReportAvailabilityHandler accepts a user report that a marker is free,
// occupied, or out of order. The report is queued for the availability
// worker rather than applied inline.
func ReportAvailabilityHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body availabilityReportBody
		if err := c.BodyParser(&body); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		kind, err := domain.ParseMarkerKind(body.Kind)
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		if body.MarkerID == "" {
			return errBadRequest(c, "marker_id is required")
		}

		userID, _ := c.Locals("userID").(string)
		report := &domain.AvailabilityReport{
			Kind:       kind,
			MarkerID:   body.MarkerID,
			Available:  body.Available,
			ReporterID: userID,
		}
		if err := deps.Markers.ReportAvailability(c.Context(), report); err != nil {
			LoggerFromCtx(c.UserContext()).Warn("availability report not queued",
				"marker_id", body.MarkerID, "error", err)
			return errInternal(c, err.Error())
		}

		return c.Status(202).JSON(fiber.Map{
			"status":    "accepted",
			"marker_id": body.MarkerID,
		})
	}
}
