package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/your-org/mallid/internal/config"
	"github.com/your-org/mallid/internal/models"
	"github.com/your-org/mallid/internal/ports"
)

// Pool wraps the shared pgx connection pool every Postgres-backed adapter
// in this package is built on top of.
type Pool struct {
	pool *pgxpool.Pool
}

func NewPool(cfg config.DatabaseConfig) (*Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxConns)

	pool, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Pool{pool: pool}, nil
}

func (p *Pool) Close() {
	p.pool.Close()
}

func (p *Pool) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// TrackletRepo implements ports.TrackletSource. Its query does no vector
// search: the embedding-floor gate is applied downstream in
// internal/candidates, so this query only narrows by mall and time window.
type TrackletRepo struct {
	pool *Pool
}

func NewTrackletRepo(pool *Pool) *TrackletRepo { return &TrackletRepo{pool: pool} }

func (r *TrackletRepo) Fetch(ctx context.Context, mallID string, from, to time.Time) ([]models.Tracklet, error) {
	rows, err := r.pool.pool.Query(ctx,
		`SELECT id, mall_id, pin_id, video_id, t_in, t_out, outfit, embedding, physique, quality, outfit_fingerprint
		 FROM tracklets WHERE mall_id = $1 AND t_in >= $2 AND t_in < $3
		 ORDER BY id`, mallID, from, to)
	if err != nil {
		return nil, fmt.Errorf("fetch tracklets: %w", err)
	}
	defer rows.Close()

	var out []models.Tracklet
	for rows.Next() {
		t, err := scanTracklet(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTracklet(row rowScanner) (models.Tracklet, error) {
	var t models.Tracklet
	var outfitJSON, physiqueJSON []byte
	var vec pgvector.Vector
	if err := row.Scan(&t.ID, &t.MallID, &t.PinID, &t.VideoID, &t.TIn, &t.TOut,
		&outfitJSON, &vec, &physiqueJSON, &t.Quality, &t.OutfitFingerprint); err != nil {
		return models.Tracklet{}, fmt.Errorf("scan tracklet: %w", err)
	}
	t.Embedding = vec.Slice()
	if err := json.Unmarshal(outfitJSON, &t.Outfit); err != nil {
		return models.Tracklet{}, fmt.Errorf("unmarshal outfit: %w", err)
	}
	if err := json.Unmarshal(physiqueJSON, &t.Physique); err != nil {
		return models.Tracklet{}, fmt.Errorf("unmarshal physique: %w", err)
	}
	return t, nil
}

// TopologyRepo implements ports.TopologyRepo.
type TopologyRepo struct {
	pool *Pool
}

func NewTopologyRepo(pool *Pool) *TopologyRepo { return &TopologyRepo{pool: pool} }

func (r *TopologyRepo) Load(ctx context.Context, mallID string) (ports.TopologyData, error) {
	pinRows, err := r.pool.pool.Query(ctx,
		`SELECT id, mall_id, name, kind, adjacent_to FROM camera_pins WHERE mall_id = $1 ORDER BY id`, mallID)
	if err != nil {
		return ports.TopologyData{}, fmt.Errorf("load camera pins: %w", err)
	}
	defer pinRows.Close()

	var pins []models.CameraPin
	for pinRows.Next() {
		var p models.CameraPin
		if err := pinRows.Scan(&p.ID, &p.MallID, &p.Name, &p.Kind, &p.AdjacentTo); err != nil {
			return ports.TopologyData{}, fmt.Errorf("scan camera pin: %w", err)
		}
		pins = append(pins, p)
	}
	if err := pinRows.Err(); err != nil {
		return ports.TopologyData{}, err
	}

	overrideRows, err := r.pool.pool.Query(ctx,
		`SELECT from_pin, to_pin, mu_sec, tau_sec FROM transit_overrides WHERE mall_id = $1`, mallID)
	if err != nil {
		return ports.TopologyData{}, fmt.Errorf("load transit overrides: %w", err)
	}
	defer overrideRows.Close()

	overrides := make(map[ports.PinPair]models.TransitParams)
	for overrideRows.Next() {
		var pair ports.PinPair
		var tp models.TransitParams
		if err := overrideRows.Scan(&pair.From, &pair.To, &tp.MuSec, &tp.TauSec); err != nil {
			return ports.TopologyData{}, fmt.Errorf("scan transit override: %w", err)
		}
		overrides[pair] = tp
	}
	if err := overrideRows.Err(); err != nil {
		return ports.TopologyData{}, err
	}

	return ports.TopologyData{Pins: pins, TransitOverrides: overrides}, nil
}

// AssociationRepo implements ports.AssociationSink and backs the
// /v1/associations reporting endpoint.
type AssociationRepo struct {
	pool *Pool
}

func NewAssociationRepo(pool *Pool) *AssociationRepo { return &AssociationRepo{pool: pool} }

func (r *AssociationRepo) Write(ctx context.Context, batch []models.Association) error {
	tx, err := r.pool.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin association write: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, a := range batch {
		subScores, err := json.Marshal(a.SubScores)
		if err != nil {
			return fmt.Errorf("marshal sub_scores: %w", err)
		}
		components, err := json.Marshal(a.Components)
		if err != nil {
			return fmt.Errorf("marshal components: %w", err)
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO associations (from_tracklet_id, to_tracklet_id, decision, final_score, sub_scores, components, candidate_count)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 ON CONFLICT (to_tracklet_id) DO UPDATE SET
			   from_tracklet_id = EXCLUDED.from_tracklet_id, decision = EXCLUDED.decision,
			   final_score = EXCLUDED.final_score, sub_scores = EXCLUDED.sub_scores,
			   components = EXCLUDED.components, candidate_count = EXCLUDED.candidate_count`,
			a.FromTrackletID, a.ToTrackletID, a.Decision, a.FinalScore, subScores, components, a.CandidateCount)
		if err != nil {
			return fmt.Errorf("insert association: %w", err)
		}
	}
	return tx.Commit(ctx)
}

func (r *AssociationRepo) List(ctx context.Context, mallID string, decision *models.Decision, limit, offset int) ([]models.Association, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}
	query := `SELECT a.from_tracklet_id, a.to_tracklet_id, a.decision, a.final_score, a.sub_scores, a.components, a.candidate_count
	           FROM associations a JOIN tracklets t ON t.id = a.to_tracklet_id WHERE t.mall_id = $1`
	args := []any{mallID}
	if decision != nil {
		query += " AND a.decision = $2 ORDER BY a.final_score DESC LIMIT $3 OFFSET $4"
		args = append(args, *decision, limit, offset)
	} else {
		query += " ORDER BY a.final_score DESC LIMIT $2 OFFSET $3"
		args = append(args, limit, offset)
	}

	rows, err := r.pool.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list associations: %w", err)
	}
	defer rows.Close()

	var out []models.Association
	for rows.Next() {
		var a models.Association
		var subScores, components []byte
		if err := rows.Scan(&a.FromTrackletID, &a.ToTrackletID, &a.Decision, &a.FinalScore, &subScores, &components, &a.CandidateCount); err != nil {
			return nil, fmt.Errorf("scan association: %w", err)
		}
		if err := json.Unmarshal(subScores, &a.SubScores); err != nil {
			return nil, fmt.Errorf("unmarshal sub_scores: %w", err)
		}
		if err := json.Unmarshal(components, &a.Components); err != nil {
			return nil, fmt.Errorf("unmarshal components: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// JourneyRepo implements ports.JourneySink and backs the /v1/journeys
// reporting endpoint.
type JourneyRepo struct {
	pool *Pool
}

func NewJourneyRepo(pool *Pool) *JourneyRepo { return &JourneyRepo{pool: pool} }

func (r *JourneyRepo) Write(ctx context.Context, batch []models.Journey) error {
	tx, err := r.pool.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin journey write: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, j := range batch {
		path, err := json.Marshal(j.Path)
		if err != nil {
			return fmt.Errorf("marshal path: %w", err)
		}
		outfitSummary, err := json.Marshal(j.OutfitSummary)
		if err != nil {
			return fmt.Errorf("marshal outfit_summary: %w", err)
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO journeys (id, visitor_id, mall_id, entry_point, exit_point, entry_time, exit_time, path, confidence, outfit_summary, closed)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			 ON CONFLICT (id) DO UPDATE SET
			   exit_point = EXCLUDED.exit_point, exit_time = EXCLUDED.exit_time,
			   path = EXCLUDED.path, confidence = EXCLUDED.confidence,
			   outfit_summary = EXCLUDED.outfit_summary, closed = EXCLUDED.closed`,
			j.ID, j.VisitorID, j.MallID, j.EntryPoint, j.ExitPoint, j.EntryTime, j.ExitTime,
			path, j.Confidence, outfitSummary, j.Closed)
		if err != nil {
			return fmt.Errorf("insert journey: %w", err)
		}
	}
	return tx.Commit(ctx)
}

func (r *JourneyRepo) List(ctx context.Context, mallID string, limit, offset int) ([]models.Journey, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}
	rows, err := r.pool.pool.Query(ctx,
		`SELECT id, visitor_id, mall_id, entry_point, exit_point, entry_time, exit_time, path, confidence, outfit_summary, closed
		 FROM journeys WHERE mall_id = $1 ORDER BY entry_time DESC LIMIT $2 OFFSET $3`, mallID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list journeys: %w", err)
	}
	defer rows.Close()

	var out []models.Journey
	for rows.Next() {
		var j models.Journey
		var path, outfitSummary []byte
		if err := rows.Scan(&j.ID, &j.VisitorID, &j.MallID, &j.EntryPoint, &j.ExitPoint,
			&j.EntryTime, &j.ExitTime, &path, &j.Confidence, &outfitSummary, &j.Closed); err != nil {
			return nil, fmt.Errorf("scan journey: %w", err)
		}
		if err := json.Unmarshal(path, &j.Path); err != nil {
			return nil, fmt.Errorf("unmarshal path: %w", err)
		}
		if err := json.Unmarshal(outfitSummary, &j.OutfitSummary); err != nil {
			return nil, fmt.Errorf("unmarshal outfit_summary: %w", err)
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

// FrequentOutfitRepo implements both ports.FrequentOutfitRepo and
// ports.FrequentOutfitSink: the snapshot a run reads and the deltas it
// writes back land in the same table.
type FrequentOutfitRepo struct {
	pool *Pool
}

func NewFrequentOutfitRepo(pool *Pool) *FrequentOutfitRepo { return &FrequentOutfitRepo{pool: pool} }

func (r *FrequentOutfitRepo) Snapshot(ctx context.Context, mallID string, hourBucket int64) (map[string]int, error) {
	rows, err := r.pool.pool.Query(ctx,
		`SELECT fingerprint, count FROM frequent_outfit_counts WHERE mall_id = $1 AND hour_bucket = $2`, mallID, hourBucket)
	if err != nil {
		return nil, fmt.Errorf("snapshot frequent-outfit counts: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var fp string
		var count int
		if err := rows.Scan(&fp, &count); err != nil {
			return nil, fmt.Errorf("scan frequent-outfit count: %w", err)
		}
		out[fp] = count
	}
	return out, rows.Err()
}

func (r *FrequentOutfitRepo) Increment(ctx context.Context, mallID, fingerprint string, hourBucket int64, byCount int) error {
	_, err := r.pool.pool.Exec(ctx,
		`INSERT INTO frequent_outfit_counts (mall_id, fingerprint, hour_bucket, count)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (mall_id, fingerprint, hour_bucket) DO UPDATE SET count = frequent_outfit_counts.count + EXCLUDED.count`,
		mallID, fingerprint, hourBucket, byCount)
	if err != nil {
		return fmt.Errorf("increment frequent-outfit count: %w", err)
	}
	return nil
}
