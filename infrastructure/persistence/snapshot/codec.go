package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"relmap-backend/domain/core/aggregates"
	pkgerrors "relmap-backend/pkg/errors"
)

// Result describes a finished import
type Result struct {
	FromVersion int              `json:"fromVersion"`
	Version     int              `json:"version"`
	Migrated    bool             `json:"migrated"`
	Stats       aggregates.Stats `json:"stats"`
}

// Codec exports stores to documents and imports documents into stores
type Codec struct {
	appTag   string
	registry *Registry
	strict   bool
	maxBytes int64
	logger   *zap.Logger
	tracer   trace.Tracer
}

// Option configures a Codec
type Option func(*Codec)

// WithAppTag sets the app tag written on export
func WithAppTag(tag string) Option {
	return func(c *Codec) {
		if tag != "" {
			c.appTag = tag
		}
	}
}

// WithRegistry replaces the migration registry
func WithRegistry(r *Registry) Option {
	return func(c *Codec) {
		if r != nil {
			c.registry = r
		}
	}
}

// WithStrictReferences toggles cross-reference checks on import
func WithStrictReferences(strict bool) Option {
	return func(c *Codec) { c.strict = strict }
}

// WithMaxBytes limits the size of raw JSON input; 0 disables the limit
func WithMaxBytes(n int64) Option {
	return func(c *Codec) { c.maxBytes = n }
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(c *Codec) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithTracer sets the tracer used for import/export spans
func WithTracer(tracer trace.Tracer) Option {
	return func(c *Codec) {
		if tracer != nil {
			c.tracer = tracer
		}
	}
}

// NewCodec creates a codec with the default migration chain and strict
// reference checks
func NewCodec(opts ...Option) *Codec {
	c := &Codec{
		appTag:   DefaultAppTag,
		registry: DefaultRegistry(),
		strict:   true,
		logger:   zap.NewNop(),
		tracer:   otel.Tracer("relmap/snapshot"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Export deep-copies the store into a document. It has no side effects.
func (c *Codec) Export(ctx context.Context, store *aggregates.Store) Document {
	_, span := c.tracer.Start(ctx, "snapshot.export")
	defer span.End()

	st := store.State()
	doc := Document{
		App:           c.appTag,
		Version:       CurrentVersion,
		CreatedAt:     st.CreatedAt,
		UpdatedAt:     st.UpdatedAt,
		CharacterTags: st.CharacterTags,
		Characters:    st.Characters,
		Relations:     st.Relations,
		Sheets:        st.Sheets,
		Groups:        st.Groups,
	}
	span.SetAttributes(
		attribute.Int("characters", len(doc.Characters)),
		attribute.Int("relations", len(doc.Relations)),
	)
	return doc
}

// Encode writes the document as indented JSON
func (c *Codec) Encode(w io.Writer, doc Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// Prepare migrates and validates raw input without touching any store.
// raw may be JSON bytes, a string, a decoded map or a Document.
func (c *Codec) Prepare(ctx context.Context, raw interface{}) (Document, Result, error) {
	_, span := c.tracer.Start(ctx, "snapshot.prepare")
	defer span.End()

	doc, result, err := c.prepare(raw)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return doc, result, err
}

func (c *Codec) prepare(raw interface{}) (Document, Result, error) {
	input, err := c.decode(raw)
	if err != nil {
		return Document{}, Result{}, err
	}

	migrated, from, err := c.registry.Migrate(input, CurrentVersion)
	if err != nil {
		return Document{}, Result{FromVersion: from}, err
	}

	var doc Document
	buf, err := json.Marshal(migrated)
	if err == nil {
		err = json.Unmarshal(buf, &doc)
	}
	if err != nil {
		return Document{}, Result{FromVersion: from}, pkgerrors.NewValidationError("MALFORMED_DOCUMENT",
			"snapshot does not match the document shape").WithCause(err)
	}
	doc.Version = CurrentVersion

	if err := Validate(doc, c.strict); err != nil {
		return Document{}, Result{FromVersion: from}, err
	}
	return doc, Result{FromVersion: from, Version: CurrentVersion, Migrated: from != CurrentVersion}, nil
}

// Import migrates, validates and then commits raw into the store. On any
// error the store is left untouched.
func (c *Codec) Import(ctx context.Context, store *aggregates.Store, raw interface{}) (Result, error) {
	ctx, span := c.tracer.Start(ctx, "snapshot.import")
	defer span.End()
	start := time.Now()

	doc, result, err := c.Prepare(ctx, raw)
	if err == nil {
		err = store.Replace(aggregates.State{
			CharacterTags: doc.CharacterTags,
			Characters:    doc.Characters,
			Relations:     doc.Relations,
			Sheets:        doc.Sheets,
			Groups:        doc.Groups,
			CreatedAt:     doc.CreatedAt,
		})
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.Warn("snapshot import rejected", zap.Int("fromVersion", result.FromVersion), zap.Error(err))
		return result, err
	}

	result.Stats = store.Stats()
	span.SetAttributes(
		attribute.Int("from_version", result.FromVersion),
		attribute.Bool("migrated", result.Migrated),
	)
	c.logger.Info("snapshot imported",
		zap.Int("fromVersion", result.FromVersion),
		zap.Bool("migrated", result.Migrated),
		zap.Int("characters", result.Stats.Characters),
		zap.Int("relations", result.Stats.Relations),
		zap.Duration("duration", time.Since(start)),
	)
	return result, nil
}

func (c *Codec) decode(raw interface{}) (RawDocument, error) {
	switch v := raw.(type) {
	case RawDocument:
		return v, nil
	case Document:
		buf, err := json.Marshal(v)
		if err != nil {
			return nil, pkgerrors.NewValidationError("MALFORMED_DOCUMENT", "cannot encode document").WithCause(err)
		}
		return c.decodeBytes(buf)
	case *Document:
		if v == nil {
			return nil, notAnObject()
		}
		return c.decode(*v)
	case []byte:
		return c.decodeBytes(v)
	case json.RawMessage:
		return c.decodeBytes(v)
	case string:
		return c.decodeBytes([]byte(v))
	case io.Reader:
		reader := v
		if c.maxBytes > 0 {
			reader = io.LimitReader(v, c.maxBytes+1)
		}
		buf, err := io.ReadAll(reader)
		if err != nil {
			return nil, fmt.Errorf("read snapshot: %w", err)
		}
		return c.decodeBytes(buf)
	default:
		return nil, notAnObject()
	}
}

func (c *Codec) decodeBytes(buf []byte) (RawDocument, error) {
	if c.maxBytes > 0 && int64(len(buf)) > c.maxBytes {
		return nil, pkgerrors.NewValidationError("SNAPSHOT_TOO_LARGE",
			fmt.Sprintf("snapshot exceeds %d bytes", c.maxBytes))
	}
	trimmed := bytes.TrimSpace(buf)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, notAnObject()
	}
	var doc RawDocument
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, pkgerrors.NewValidationError("MALFORMED_JSON", "snapshot is not valid JSON").WithCause(err)
	}
	return doc, nil
}

func notAnObject() error {
	return pkgerrors.NewValidationError("NOT_AN_OBJECT", "snapshot must be a JSON object")
}
