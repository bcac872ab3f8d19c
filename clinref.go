// Package clinref answers clinical reference questions over an ingested
// document corpus. A query is classified, answered from curated facts or
// structured sources when possible, otherwise grounded in hybrid retrieval
// and synthesized by an LLM, then formatted with verified citations.
package clinref

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/clinref/clinref/core/cache"
	"github.com/clinref/clinref/core/classify"
	"github.com/clinref/clinref/core/curated"
	"github.com/clinref/clinref/core/format"
	"github.com/clinref/clinref/core/retrieval"
	"github.com/clinref/clinref/core/routing"
	"github.com/clinref/clinref/core/synthesis"
	"github.com/clinref/clinref/database"
	"github.com/clinref/clinref/helper"
	"github.com/clinref/clinref/llm"
	"github.com/clinref/clinref/model"
	loadSql "github.com/clinref/clinref/sql"
	"golang.org/x/sync/singleflight"
)

// Options configures optional pipeline components. Zero values get sensible
// defaults; Generator being nil disables synthesis and classification falls
// back to rules only.
type Options struct {
	EmbeddingDim int                   // vector dimension, default 384
	Generator    llm.Generator         // LLM backend, e.g. llm.NewOllamaClient
	Embedder     retrieval.EmbedFunc   // query embedder, nil disables the vector path
	Pipeline     *model.PipelineConfig // nil uses model.DefaultPipelineConfig
	CacheBackend cache.Backend         // nil uses an in-process backend
	Logger       *slog.Logger
}

// Clinref provides a unified interface to the query pipeline and all
// database handlers
type Clinref struct {
	DB        *helper.Database
	Documents *database.DocumentsDBHandler
	Chunks    *database.ChunksDBHandler
	Curated   *database.CuratedDBHandler
	Contacts  *database.ContactsDBHandler

	cfg          *model.PipelineConfig
	classifier   *classify.Classifier
	curatedStore *curated.Store
	engine       *retrieval.Engine
	synthesizer  *synthesis.Synthesizer
	formatter    *format.Formatter
	cache        *cache.SemanticCache
	router       *routing.Router
	flight       singleflight.Group
	log          *slog.Logger
}

// New creates a Clinref instance with all handlers initialized and the
// in-memory stores loaded from the database
func New(config *helper.DatabaseConfiguration, opts Options) (*Clinref, error) {
	logger := opts.Logger
	if logger == nil {
		prettyOpts := helper.PrettyHandlerOptions{
			SlogOpts: slog.HandlerOptions{
				Level: slog.LevelInfo,
			},
		}
		logger = slog.New(helper.NewPrettyHandler(os.Stdout, prettyOpts))
	}

	pipelineCfg := opts.Pipeline
	if pipelineCfg == nil {
		defaults := model.DefaultPipelineConfig()
		pipelineCfg = &defaults
	}

	embeddingDim := opts.EmbeddingDim
	if embeddingDim <= 0 {
		embeddingDim = 384
	}

	db := helper.NewDatabase("clinref", config, logger)
	err := loadSql.Init(db.Instance)
	if err != nil {
		return nil, helper.NewError("initialize database extensions", err)
	}

	// Create all handlers in the correct order (documents first, then chunks)
	// force=false to not reload if functions already exist
	documents, err := database.NewDocumentsDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create documents handler", err)
	}

	chunks, err := database.NewChunksDBHandler(db, embeddingDim, false)
	if err != nil {
		return nil, helper.NewError("create chunks handler", err)
	}

	curatedHandler, err := database.NewCuratedDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create curated handler", err)
	}

	contacts, err := database.NewContactsDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create contacts handler", err)
	}

	backend := opts.CacheBackend
	if backend == nil {
		backend = cache.NewMemoryBackend(10 * time.Minute)
	}

	c := &Clinref{
		DB:        db,
		Documents: documents,
		Chunks:    chunks,
		Curated:   curatedHandler,
		Contacts:  contacts,

		cfg:         pipelineCfg,
		classifier:  classify.NewClassifier(pipelineCfg, opts.Generator),
		synthesizer: synthesis.NewSynthesizer(pipelineCfg, opts.Generator),
		formatter:   format.NewFormatter(pipelineCfg),
		cache:       cache.NewSemanticCache(pipelineCfg, backend, logger),
		log:         logger,
	}

	entries, err := curatedHandler.SelectAllCuratedEntries()
	if err != nil {
		return nil, helper.NewError("load curated entries", err)
	}
	c.curatedStore = curated.NewStore(pipelineCfg, entries)

	snapshot, err := chunks.SelectAllChunks()
	if err != nil {
		return nil, helper.NewError("load chunk snapshot", err)
	}
	docs, err := documents.SelectAllDocuments()
	if err != nil {
		return nil, helper.NewError("load document registry", err)
	}
	c.engine = retrieval.NewEngine(pipelineCfg, snapshot, docs, chunks, opts.Embedder, logger)

	c.router = routing.NewRouter(pipelineCfg, c.curatedStore, c.engine, contacts, logger)

	logger.Info("Pipeline initialized",
		slog.Int("chunks", len(snapshot)),
		slog.Int("documents", len(docs)),
		slog.Int("curated_entries", c.curatedStore.Len()))

	return c, nil
}

// Process answers a single query. Every failure past classification resolves
// to a well-formed response with reduced confidence and warnings; only an
// empty query returns an error. sessionID is carried through logging only.
func (c *Clinref) Process(ctx context.Context, text string, sessionID string) (*model.QueryResponse, error) {
	start := time.Now()

	classification, err := c.classifier.Classify(ctx, text)
	if err != nil {
		return nil, err
	}

	c.log.Info("Query received",
		slog.String("session_id", sessionID),
		slog.String("type", string(classification.Type)),
		slog.Float64("confidence", classification.Confidence),
		slog.String("method", string(classification.Method)))

	if cached := c.cache.Get(ctx, text, classification.Type); cached != nil {
		cached.ProcessingTime = time.Since(start)
		c.log.Info("Cache hit", slog.String("session_id", sessionID), slog.String("type", string(classification.Type)))
		return cached, nil
	}

	var response *model.QueryResponse
	var storable bool
	if c.cfg.Cacheable(classification.Type) {
		// Identical in-flight cacheable queries share one computation.
		// Never-cache types (FORM, CONTACT) skip this and always run fully.
		key := c.cache.Key(text, classification.Type)
		value, err, shared := c.flight.Do(key, func() (interface{}, error) {
			answered, store, err := c.answer(ctx, text, classification)
			if err != nil {
				return nil, err
			}
			return &flightResult{response: answered, storable: store}, nil
		})
		if err != nil {
			return nil, err
		}
		result := value.(*flightResult)
		response, storable = result.response, result.storable
		if shared {
			copied := *response
			response = &copied
		}
	} else {
		response, storable, err = c.answer(ctx, text, classification)
		if err != nil {
			return nil, err
		}
	}

	response.ProcessingTime = time.Since(start)
	if storable {
		c.cache.Set(ctx, text, response.QueryType, response)
	}

	c.log.Info("Query answered",
		slog.String("session_id", sessionID),
		slog.String("type", string(response.QueryType)),
		slog.Float64("confidence", response.Confidence),
		slog.Int("sources", len(response.Sources)),
		slog.Duration("processing_time", response.ProcessingTime))

	return response, nil
}

// flightResult carries an answer and its cache eligibility through
// singleflight's single return value
type flightResult struct {
	response *model.QueryResponse
	storable bool
}

// answer routes the query and synthesizes where needed. The returned bool
// reports whether the response may be cached: answers produced without the
// LLM are transient and must not outlive the outage.
func (c *Clinref) answer(ctx context.Context, text string, classification *model.Classification) (*model.QueryResponse, bool, error) {
	route, err := c.router.Route(ctx, text, classification)
	if err != nil {
		return nil, false, err
	}

	raw := route.Answer
	confidence := route.Confidence
	warnings := route.Warnings
	storable := true

	if route.Kind == routing.RouteHybrid {
		confidence = classification.Confidence
		raw, err = c.synthesizer.Synthesize(ctx, text, route.QueryType, route.Blocks)
		if err != nil {
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil, false, err
			}
			if !errors.Is(err, model.ErrLLMUnavailable) {
				c.log.Warn("Synthesis failed", slog.String("error", err.Error()))
			}
			raw, warnings, confidence = c.degradedAnswer(route, warnings)
			storable = false
		}
	}

	response := c.formatter.Format(raw, text, route.Blocks, route.QueryType, confidence)
	response.Warnings = append(warnings, response.Warnings...)
	return response, storable, nil
}

// degradedAnswer builds a retrieval-only answer when the LLM is unavailable:
// the strongest retrieved passage verbatim, clearly marked as unverified
func (c *Clinref) degradedAnswer(route *routing.RouteResult, warnings []string) (string, []string, float64) {
	c.log.Warn("Language model unavailable, answering from retrieval only")

	warnings = append(warnings, "The language model is unavailable; this is a raw excerpt from the reference documents, not a synthesized answer.")

	if len(route.Blocks) == 0 {
		return c.cfg.InsufficientMessage, warnings, c.cfg.InsufficientConfidence
	}

	top := route.Blocks[0]
	excerpt := top.Content
	if len(excerpt) > 600 {
		excerpt = excerpt[:600] + "..."
	}
	raw := fmt.Sprintf("From [%s]: %s", top.DisplayName, strings.TrimSpace(excerpt))
	return raw, warnings, c.cfg.DegradedConfidenceCap
}

// Reload re-reads the curated entries, chunk snapshot and document registry
// from the database. Administrative operation, not called during request
// handling.
func (c *Clinref) Reload(ctx context.Context) error {
	entries, err := c.Curated.SelectAllCuratedEntries()
	if err != nil {
		return helper.NewError("reload curated entries", err)
	}
	c.curatedStore.Reload(entries)

	snapshot, err := c.Chunks.SelectAllChunks()
	if err != nil {
		return helper.NewError("reload chunk snapshot", err)
	}
	docs, err := c.Documents.SelectAllDocuments()
	if err != nil {
		return helper.NewError("reload document registry", err)
	}
	c.engine.Reload(snapshot, docs)

	c.log.Info("Stores reloaded",
		slog.Int("chunks", len(snapshot)),
		slog.Int("documents", len(docs)),
		slog.Int("curated_entries", c.curatedStore.Len()))
	return nil
}

// Close closes the database connection
func (c *Clinref) Close() error {
	if c.DB != nil && c.DB.Instance != nil {
		return c.DB.Instance.Close()
	}
	return nil
}
