// Package replay rebuilds ledger state from a bucket's current contents. It
// lists every object under a prefix and feeds each one through the same
// dispatch path the queue consumer uses, as a synthetic created-object event.
// The workflow's lookup-before-create sequence makes a replay safe to run
// against a ledger that already has some of the documents.
package replay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// DispatchFunc handles one synthetic event payload.
type DispatchFunc func(ctx context.Context, raw map[string]any) error

// Options scopes a replay run.
type Options struct {
	// Bucket to list. Required.
	Bucket string

	// Prefix restricts the listing; empty replays the whole bucket.
	Prefix string

	// PageSize is the ListObjectsV2 page size (S3 default when zero).
	PageSize int32

	// DryRun lists and counts objects without dispatching.
	DryRun bool
}

// Result summarizes a replay run.
type Result struct {
	Scanned    int      `json:"scanned"`
	Dispatched int      `json:"dispatched"`
	Failed     int      `json:"failed"`
	FailedKeys []string `json:"failed_keys,omitempty"`
}

// Runner walks a bucket and dispatches synthetic events.
type Runner struct {
	client   s3.ListObjectsV2APIClient
	dispatch DispatchFunc
	logger   *slog.Logger
}

// New creates a replay runner.
func New(client s3.ListObjectsV2APIClient, dispatch DispatchFunc, logger *slog.Logger) (*Runner, error) {
	if client == nil {
		return nil, errors.New("replay: s3 client is required")
	}
	if dispatch == nil {
		return nil, errors.New("replay: dispatch func is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{client: client, dispatch: dispatch, logger: logger}, nil
}

// Run lists the bucket page by page and dispatches one event per object.
// A dispatch failure is counted and logged but does not stop the run; a
// listing failure does.
func (r *Runner) Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Bucket == "" {
		return nil, errors.New("replay: bucket is required")
	}

	input := &s3.ListObjectsV2Input{Bucket: &opts.Bucket}
	if opts.Prefix != "" {
		input.Prefix = &opts.Prefix
	}
	var pageOpts []func(*s3.ListObjectsV2PaginatorOptions)
	if opts.PageSize > 0 {
		pageOpts = append(pageOpts, func(o *s3.ListObjectsV2PaginatorOptions) {
			o.Limit = opts.PageSize
		})
	}

	r.logger.Info("starting replay",
		"bucket", opts.Bucket,
		"prefix", opts.Prefix,
		"dry_run", opts.DryRun)

	result := &Result{}
	paginator := s3.NewListObjectsV2Paginator(r.client, input, pageOpts...)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return result, fmt.Errorf("replay: list objects in %s: %w", opts.Bucket, err)
		}

		for _, obj := range page.Contents {
			result.Scanned++
			if opts.DryRun {
				continue
			}

			raw := syntheticCreatedEvent(opts.Bucket, obj)
			if err := r.dispatch(ctx, raw); err != nil {
				result.Failed++
				key := ""
				if obj.Key != nil {
					key = *obj.Key
				}
				result.FailedKeys = append(result.FailedKeys, key)
				r.logger.Error("replay dispatch failed", "object_key", key, "error", err)
				continue
			}
			result.Dispatched++
		}
	}

	r.logger.Info("replay finished",
		"scanned", result.Scanned,
		"dispatched", result.Dispatched,
		"failed", result.Failed)
	return result, nil
}

// syntheticCreatedEvent shapes a listed object as the bucket-notification
// payload the normalizer expects. Fields a real notification would carry but
// a listing cannot supply (requester identity, sequencer) are simply absent.
func syntheticCreatedEvent(bucket string, obj types.Object) map[string]any {
	object := map[string]any{}
	if obj.Key != nil {
		object["key"] = *obj.Key
	}
	if obj.Size != nil {
		// Notifications carry sizes as JSON numbers.
		object["size"] = float64(*obj.Size)
	}
	if obj.ETag != nil {
		object["eTag"] = strings.Trim(*obj.ETag, `"`)
	}

	record := map[string]any{
		"eventVersion": "2.0",
		"eventSource":  "replay:s3",
		"eventName":    "s3:ObjectCreated:Put",
		"s3": map[string]any{
			"bucket": map[string]any{"name": bucket},
			"object": object,
		},
	}
	if obj.LastModified != nil {
		record["eventTime"] = obj.LastModified.UTC().Format(time.RFC3339Nano)
	}

	return map[string]any{"Records": []any{record}}
}
