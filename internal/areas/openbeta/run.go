package openbeta

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode"

	"github.com/VerbClub/VC-Backend/internal/areas"
	"github.com/google/uuid"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Config carries the knobs for an import run.
type Config struct {
	DatabaseURL string
	JobPath     string
}

type importer struct {
	tx      *gorm.DB
	client  *Client
	job     Job
	visited map[string]bool

	areaCount  int
	routeCount int
}

// Run crawls the job's root areas from the OpenBeta API and upserts them into
// the areas/routes tables. Everything happens in one transaction, with a
// breadcrumb recompute before commit, so a failed run leaves the hierarchy
// untouched.
func Run(ctx context.Context, cfg Config) error {
	job, err := LoadJob(cfg.JobPath)
	if err != nil {
		return err
	}

	gdb, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}

	imp := &importer{
		client:  NewClient(),
		job:     job,
		visited: make(map[string]bool),
	}

	return gdb.Transaction(func(tx *gorm.DB) error {
		imp.tx = tx

		for _, root := range job.Roots {
			if err := imp.crawl(ctx, root, nil, 0); err != nil {
				return fmt.Errorf("import %q: %w", root, err)
			}
		}

		refreshed, err := areas.RecomputeBreadcrumbs(tx)
		if err != nil {
			return fmt.Errorf("recompute breadcrumbs: %w", err)
		}

		log.Printf("[Import] upserted %d areas and %d routes, refreshed %d breadcrumbs",
			imp.areaCount, imp.routeCount, refreshed)
		return nil
	})
}

var nameFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// normalizeName folds diacritics and case so "Cañon" and "canon" count as the
// same crawl target.
func normalizeName(name string) string {
	folded, _, err := transform.String(nameFolder, name)
	if err != nil {
		folded = name
	}
	return strings.ToLower(strings.TrimSpace(folded))
}

func (imp *importer) crawl(ctx context.Context, name string, parentID *string, depth int) error {
	key := normalizeName(name)
	if imp.visited[key] {
		return nil
	}
	imp.visited[key] = true

	nodes, err := imp.client.FetchAreaByName(ctx, name)
	if err != nil {
		return err
	}
	if len(nodes) == 0 {
		log.Printf("[Import] no OpenBeta match for %q, skipping", name)
		return nil
	}

	for _, node := range nodes {
		if err := imp.upsertArea(node, parentID); err != nil {
			return err
		}

		for _, child := range node.Children {
			if err := imp.upsertArea(child, &node.ID); err != nil {
				return err
			}
			if err := imp.upsertRoutes(child.ID, child.Climbs); err != nil {
				return err
			}

			if !child.Metadata.Leaf && depth+1 < imp.job.MaxDepth {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(imp.job.RequestDelay()):
				}
				if err := imp.crawl(ctx, child.AreaName, &node.ID, depth+1); err != nil {
					return err
				}
			}
		}
	}

	return nil
}

func (imp *importer) upsertArea(node AreaNode, parentID *string) error {
	meta, err := json.Marshal(node.Metadata)
	if err != nil {
		return fmt.Errorf("encode metadata for %s: %w", node.ID, err)
	}

	polyJSON := polygonGeoJSON(node.Metadata.Polygon)
	b := node.Metadata.BBox
	var bbox [4]*float64
	if len(b) == 4 {
		for i := range b {
			bbox[i] = &b[i]
		}
	}

	res := imp.tx.Exec(`
		INSERT INTO areas (id, name, parent_id, lat, lng, leaf, metadata, geometry, centroid, bbox, created_at, updated_at)
		VALUES (
			?, ?, ?, ?, ?, ?, ?,
			ST_SetSRID(ST_GeomFromGeoJSON(?), 4326),
			COALESCE(
				ST_SetSRID(ST_MakePoint(?, ?), 4326),
				ST_Centroid(ST_SetSRID(ST_GeomFromGeoJSON(?), 4326))
			),
			ST_MakeEnvelope(?, ?, ?, ?, 4326),
			NOW(), NOW()
		)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			parent_id = COALESCE(EXCLUDED.parent_id, areas.parent_id),
			lat = EXCLUDED.lat,
			lng = EXCLUDED.lng,
			leaf = EXCLUDED.leaf,
			metadata = EXCLUDED.metadata,
			geometry = COALESCE(EXCLUDED.geometry, areas.geometry),
			centroid = COALESCE(EXCLUDED.centroid, areas.centroid),
			bbox = COALESCE(EXCLUDED.bbox, areas.bbox),
			updated_at = NOW()`,
		node.ID, node.AreaName, parentID,
		node.Metadata.Lat, node.Metadata.Lng, node.Metadata.Leaf, string(meta),
		polyJSON,
		node.Metadata.Lng, node.Metadata.Lat, polyJSON,
		bbox[0], bbox[1], bbox[2], bbox[3],
	)
	if res.Error != nil {
		return fmt.Errorf("upsert area %s: %w", node.ID, res.Error)
	}
	imp.areaCount++
	return nil
}

func (imp *importer) upsertRoutes(areaID string, climbs []Climb) error {
	for _, climb := range climbs {
		id := climb.ID
		if id == "" {
			id = uuid.NewString()
		}

		meta, err := json.Marshal(climb)
		if err != nil {
			return fmt.Errorf("encode metadata for route %s: %w", id, err)
		}

		res := imp.tx.Exec(`
			INSERT INTO routes (id, name, grade, area_id, lat, lng, type_sport, type_trad, type_toprope, metadata, geometry, created_at, updated_at)
			VALUES (
				?, ?, ?, ?, ?, ?, ?, ?, ?, ?,
				ST_SetSRID(ST_MakePoint(?, ?), 4326),
				NOW(), NOW()
			)
			ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name,
				grade = EXCLUDED.grade,
				area_id = EXCLUDED.area_id,
				lat = EXCLUDED.lat,
				lng = EXCLUDED.lng,
				type_sport = EXCLUDED.type_sport,
				type_trad = EXCLUDED.type_trad,
				type_toprope = EXCLUDED.type_toprope,
				metadata = EXCLUDED.metadata,
				geometry = COALESCE(EXCLUDED.geometry, routes.geometry),
				updated_at = NOW()`,
			id, climb.Name, climb.Grades.YDS, areaID,
			climb.Metadata.Lat, climb.Metadata.Lng,
			climb.Type.Sport, climb.Type.Trad, climb.Type.TR, string(meta),
			climb.Metadata.Lng, climb.Metadata.Lat,
		)
		if res.Error != nil {
			return fmt.Errorf("upsert route %s: %w", id, res.Error)
		}
		imp.routeCount++
	}
	return nil
}

// polygonGeoJSON turns an OpenBeta [lng, lat] point list into a GeoJSON
// Polygon string, closing the ring when the source leaves it open. Returns nil
// when there is no usable polygon.
func polygonGeoJSON(points [][]float64) *string {
	if len(points) < 3 {
		return nil
	}
	for _, p := range points {
		if len(p) != 2 {
			return nil
		}
	}

	ring := points
	first, last := points[0], points[len(points)-1]
	if first[0] != last[0] || first[1] != last[1] {
		ring = append(append([][]float64{}, points...), first)
	}

	raw, err := json.Marshal(map[string]any{
		"type":        "Polygon",
		"coordinates": [][][]float64{ring},
	})
	if err != nil {
		return nil
	}
	s := string(raw)
	return &s
}
