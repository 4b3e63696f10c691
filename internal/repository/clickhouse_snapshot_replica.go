package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"PumpRadar/internal/domain/models"
	domrepo "PumpRadar/internal/domain/repository"
	pkgch "PumpRadar/pkg/clickhouse"
	applogger "PumpRadar/pkg/logger"
)

const snapshotTable = "snapshots"

var snapshotSchema = []string{
	`CREATE TABLE IF NOT EXISTS ` + snapshotTable + ` (
        key        String,
        updated_at DateTime64(3, 'UTC'),
        payload    String,
        version    UInt64
    ) ENGINE = ReplacingMergeTree(version)
    ORDER BY key`,
}

// CHSnapshotReplica is the durable, slow tier. Every save inserts a new row;
// ReplacingMergeTree keeps the highest version per key.
type CHSnapshotReplica struct {
	ch *pkgch.Client
	l  *applogger.Logger
}

func NewCHSnapshotReplica(ch *pkgch.Client, l *applogger.Logger) *CHSnapshotReplica {
	return &CHSnapshotReplica{ch: ch, l: l.With("snapshot-replica")}
}

func (r *CHSnapshotReplica) Init(ctx context.Context) error {
	return r.ch.InitSchema(ctx, snapshotSchema)
}

func (r *CHSnapshotReplica) Load(ctx context.Context, key string) (*models.Snapshot, error) {
	const q = `
        SELECT payload
        FROM ` + snapshotTable + ` FINAL
        WHERE key = ?
        ORDER BY updated_at DESC
        LIMIT 1
    `
	var payload string
	if err := r.ch.DB().QueryRowContext(ctx, q, key).Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domrepo.ErrNotFound
		}
		return nil, fmt.Errorf("query replica: %w", err)
	}
	return decodeSnapshot(payload)
}

func (r *CHSnapshotReplica) Save(ctx context.Context, key string, snap *models.Snapshot) error {
	start := time.Now()
	payload, err := encodeSnapshot(snap)
	if err != nil {
		return err
	}
	const q = `INSERT INTO ` + snapshotTable + ` (key, updated_at, payload, version) VALUES (?, ?, ?, ?)`
	if _, err := r.ch.DB().ExecContext(ctx, q, key, snap.UpdatedAt.UTC(), payload, snapshotVersion(snap)); err != nil {
		return fmt.Errorf("insert replica: %w", err)
	}
	r.l.Debug("replica saved",
		applogger.String("key", key),
		applogger.Int("bytes", len(payload)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return nil
}

func (r *CHSnapshotReplica) Close() error { return r.ch.Close() }

func encodeSnapshot(snap *models.Snapshot) (string, error) {
	if snap == nil {
		return "", errors.New("nil snapshot")
	}
	b, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}
	return string(b), nil
}

func decodeSnapshot(payload string) (*models.Snapshot, error) {
	var snap models.Snapshot
	if err := json.Unmarshal([]byte(payload), &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, nil
}

// snapshotVersion orders replica rows by the snapshot's own update time.
func snapshotVersion(snap *models.Snapshot) uint64 {
	ms := snap.UpdatedAt.UnixMilli()
	if ms < 0 {
		return 0
	}
	return uint64(ms)
}

var _ domrepo.SnapshotReplica = (*CHSnapshotReplica)(nil)
