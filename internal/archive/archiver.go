// Package archive exports completed care event history out of the hot store
// into cold object storage. Events are written as zstd-compressed JSON lines,
// one object per plant per run, then removed from the store.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/klauspost/compress/zstd"
	"golang.org/x/sync/errgroup"

	"plantcare/internal/types"
)

// EventSource is the store surface the archiver reads from and prunes.
type EventSource interface {
	ListPlants(ctx context.Context) ([]*types.Plant, error)
	GetPlantCareEvents(ctx context.Context, plantID string) ([]*types.CareEvent, error)
	DeleteCareEvent(ctx context.Context, id string) error
}

// ObjectSink receives the compressed archive objects.
type ObjectSink interface {
	Put(ctx context.Context, key string, body []byte) error
}

// S3Sink writes archive objects to an S3 bucket.
type S3Sink struct {
	client *s3.Client
	bucket string
}

// NewS3Sink creates an S3-backed ObjectSink.
func NewS3Sink(client *s3.Client, bucket string) *S3Sink {
	return &S3Sink{client: client, bucket: bucket}
}

func (s *S3Sink) Put(ctx context.Context, key string, body []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/zstd"),
	})
	if err != nil {
		return types.NewAppError(types.ErrCodeArchiveSink,
			fmt.Sprintf("failed to write archive object %s", key), err)
	}
	return nil
}

// Report summarizes one archiver run.
type Report struct {
	PlantsScanned  int `json:"plants_scanned"`
	EventsArchived int `json:"events_archived"`
	PlantsFailed   int `json:"plants_failed"`
}

// Archiver runs the export. Plants are processed in parallel with a bounded
// errgroup; a failing plant is isolated and logged so one bad export never
// blocks the rest.
type Archiver struct {
	source      EventSource
	sink        ObjectSink
	clock       types.Clock
	logger      *slog.Logger
	retention   time.Duration
	concurrency int
	encoder     *zstd.Encoder
}

// New creates an Archiver. retention is how long completed events stay hot;
// concurrency bounds the parallel per-plant exports.
func New(source EventSource, sink ObjectSink, clock types.Clock, logger *slog.Logger, retention time.Duration, concurrency int) (*Archiver, error) {
	if source == nil || sink == nil {
		return nil, fmt.Errorf("archive: source and sink must not be nil")
	}
	if clock == nil {
		clock = types.RealClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if concurrency <= 0 {
		concurrency = 4
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderConcurrency(1))
	if err != nil {
		return nil, fmt.Errorf("archive: failed to create zstd encoder: %w", err)
	}
	return &Archiver{
		source:      source,
		sink:        sink,
		clock:       clock,
		logger:      logger.With("component", "archiver"),
		retention:   retention,
		concurrency: concurrency,
		encoder:     enc,
	}, nil
}

// Run exports every plant's expired completed events and returns a summary.
// Scan events are retained in the hot store regardless of age because the
// transition handler treats them as the plant's scan history.
func (a *Archiver) Run(ctx context.Context) (*Report, error) {
	plants, err := a.source.ListPlants(ctx)
	if err != nil {
		return nil, err
	}
	cutoff := a.clock.Now().Add(-a.retention)

	var mu sync.Mutex
	report := &Report{PlantsScanned: len(plants)}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for _, plant := range plants {
		plant := plant
		g.Go(func() error {
			n, err := a.archivePlant(gCtx, plant, cutoff)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.PlantsFailed++
				a.logger.ErrorContext(gCtx, "plant archive failed",
					"plant_id", plant.ID, "error", err)
				// Isolated failure; other plants continue.
				return nil
			}
			report.EventsArchived += n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return report, err
	}

	a.logger.InfoContext(ctx, "archive run finished",
		"plants_scanned", report.PlantsScanned,
		"events_archived", report.EventsArchived,
		"plants_failed", report.PlantsFailed,
	)
	return report, nil
}

// archivePlant exports one plant's expired events and prunes them. Returns
// the number of events archived.
func (a *Archiver) archivePlant(ctx context.Context, plant *types.Plant, cutoff time.Time) (int, error) {
	events, err := a.source.GetPlantCareEvents(ctx, plant.ID)
	if err != nil {
		return 0, err
	}

	var expired []*types.CareEvent
	for _, ev := range events {
		if ev.Completed && ev.Type != types.EventScan && ev.Date.Before(cutoff) {
			expired = append(expired, ev)
		}
	}
	if len(expired) == 0 {
		return 0, nil
	}

	var lines bytes.Buffer
	enc := json.NewEncoder(&lines)
	for _, ev := range expired {
		if err := enc.Encode(ev); err != nil {
			return 0, fmt.Errorf("failed to encode event %s: %w", ev.ID, err)
		}
	}
	compressed := a.encoder.EncodeAll(lines.Bytes(), nil)

	key := fmt.Sprintf("events/%s/%s.jsonl.zst",
		plant.ID, a.clock.Now().Format("20060102T150405Z"))
	if err := a.sink.Put(ctx, key, compressed); err != nil {
		return 0, err
	}

	// Prune only after the object landed. A crash between put and prune
	// re-archives the same events on the next run, which is harmless.
	archived := 0
	for _, ev := range expired {
		if err := a.source.DeleteCareEvent(ctx, ev.ID); err != nil {
			return archived, err
		}
		archived++
	}

	a.logger.InfoContext(ctx, "plant history archived",
		"plant_id", plant.ID, "key", key, "events", archived)
	return archived, nil
}
