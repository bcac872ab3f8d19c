// Package routing selects the answer path for a classified query. Paths are
// tried in fixed order: curated fact, structured lookup, hybrid retrieval,
// and finally the canonical insufficient-information response. A query never
// resolves to a silent empty answer.
package routing

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/clinref/clinref/core/curated"
	"github.com/clinref/clinref/core/retrieval"
	"github.com/clinref/clinref/helper"
	"github.com/clinref/clinref/model"
)

// RouteKind names the path that produced a result
type RouteKind string

const (
	RouteCurated      RouteKind = "curated"
	RouteStructured   RouteKind = "structured"
	RouteHybrid       RouteKind = "hybrid"
	RouteInsufficient RouteKind = "insufficient"
)

// RouteResult is the routing outcome. Curated, structured and insufficient
// paths carry a finished Answer; the hybrid path carries context blocks for
// the synthesizer instead.
type RouteResult struct {
	Kind       RouteKind
	QueryType  model.QueryType
	Answer     string
	Confidence float64
	Blocks     []model.ContextBlock
	Warnings   []string
}

// ContactDirectory resolves on-call contacts, implemented by
// database.ContactsDBHandler.
type ContactDirectory interface {
	SelectAllContacts() ([]*model.Contact, error)
}

// Router decides which path answers a classified query
type Router struct {
	cfg      *model.PipelineConfig
	curated  *curated.Store
	engine   *retrieval.Engine
	contacts ContactDirectory
	log      *slog.Logger
}

// NewRouter creates a router. contacts may be nil when no on-call directory
// is configured; CONTACT queries then fall through to retrieval.
func NewRouter(cfg *model.PipelineConfig, curatedStore *curated.Store, engine *retrieval.Engine, contacts ContactDirectory, logger *slog.Logger) *Router {
	return &Router{
		cfg:      cfg,
		curated:  curatedStore,
		engine:   engine,
		contacts: contacts,
		log:      logger,
	}
}

// Route resolves a classified query to a result. The returned result always
// carries either a finished answer or context blocks, never neither.
func (r *Router) Route(ctx context.Context, text string, classification *model.Classification) (*RouteResult, error) {
	queryType := classification.Type

	// A curated fact of another type that clearly beats the classification
	// wins and re-routes the query to its own type.
	if best := r.curated.BestMatchAnyType(text); best != nil &&
		best.Entry.QueryType != queryType &&
		best.Score >= classification.Confidence+r.cfg.RerouteMargin {
		r.log.Info("re-routing query to curated entry type",
			"classified", queryType, "rerouted", best.Entry.QueryType, "score", best.Score)
		return r.curatedResult(best), nil
	}

	if match := r.curated.Lookup(text, queryType); match != nil {
		return r.curatedResult(match), nil
	}

	if result, err := r.routeStructured(ctx, text, queryType); err != nil {
		return nil, err
	} else if result != nil {
		return result, nil
	}

	return r.routeHybrid(ctx, text, queryType)
}

func (r *Router) curatedResult(match *model.CuratedMatch) *RouteResult {
	entry := match.Entry
	blocks := []model.ContextBlock{}
	if entry.Source != "" {
		blocks = append(blocks, model.ContextBlock{
			DisplayName: entry.Source,
			Filename:    entry.Source,
			Content:     entry.Answer,
		})
	}
	return &RouteResult{
		Kind:       RouteCurated,
		QueryType:  entry.QueryType,
		Answer:     entry.Answer,
		Confidence: match.Confidence,
		Blocks:     blocks,
	}
}

// routeStructured answers from authoritative structured sources. A nil
// result means the type has no structured source for this query and routing
// continues with retrieval. FORM is the exception: it either resolves to a
// registered retrievable document or fails explicitly, never a paraphrase.
func (r *Router) routeStructured(ctx context.Context, text string, queryType model.QueryType) (*RouteResult, error) {
	switch queryType {
	case model.QueryTypeForm:
		return r.routeForm(text)
	case model.QueryTypeContact:
		return r.routeContact(ctx, text)
	case model.QueryTypeDosage:
		return r.routeDosageTable(text), nil
	default:
		return nil, nil
	}
}

// routeForm resolves a form request to a registered document
func (r *Router) routeForm(text string) (*RouteResult, error) {
	doc := r.bestDocumentMatch(text)
	if doc == nil {
		return &RouteResult{
			Kind:       RouteStructured,
			QueryType:  model.QueryTypeForm,
			Answer:     "No matching form was found in the document registry. Please check the form name or contact the administrator.",
			Confidence: r.cfg.InsufficientConfidence,
			Warnings:   []string{model.ErrNoDocumentMatch.Error()},
			Blocks:     []model.ContextBlock{},
		}, nil
	}
	return &RouteResult{
		Kind:       RouteStructured,
		QueryType:  model.QueryTypeForm,
		Answer:     fmt.Sprintf("The form you are looking for is %s, available as %s.", doc.DisplayName, doc.Filename),
		Confidence: 0.9,
		Blocks: []model.ContextBlock{{
			DisplayName: doc.DisplayName,
			Filename:    doc.Filename,
			Content:     doc.DisplayName,
		}},
	}, nil
}

// routeContact answers from the on-call directory. A miss falls through to
// retrieval, since reference documents may still hold contact details.
func (r *Router) routeContact(ctx context.Context, text string) (*RouteResult, error) {
	if r.contacts == nil {
		return nil, nil
	}
	contacts, err := r.contacts.SelectAllContacts()
	if err != nil {
		r.log.Warn("on-call directory unavailable, falling back to retrieval", "error", err)
		return nil, nil
	}

	queryTokens := curated.Tokenize(text)
	for _, contact := range contacts {
		if !queryTokens[strings.ToLower(contact.Specialty)] {
			continue
		}
		answer := fmt.Sprintf("%s on-call: %s, phone %s", contact.Specialty, contact.Name, contact.Phone)
		if contact.Pager != nil && *contact.Pager != "" {
			answer += fmt.Sprintf(", pager %s", *contact.Pager)
		}
		answer += "."
		return &RouteResult{
			Kind:       RouteStructured,
			QueryType:  model.QueryTypeContact,
			Answer:     answer,
			Confidence: 0.9,
			Blocks: []model.ContextBlock{{
				DisplayName: "On-call directory",
				Filename:    "oncall_contacts",
				Content:     answer,
			}},
		}, nil
	}
	return nil, nil
}

// routeDosageTable answers directly from the configured dosage reference
// table when it covers the medication and indication asked about. The same
// drug's dose for a different indication must not be served as a confident
// structured answer; those queries continue to retrieval.
func (r *Router) routeDosageTable(text string) *RouteResult {
	lower := strings.ToLower(text)
	queryTokens := curated.Tokenize(text)
	for _, guideline := range r.cfg.DosageTable {
		if !strings.Contains(lower, strings.ToLower(guideline.Medication)) {
			continue
		}
		if !indicationMatches(queryTokens, guideline.Indication) {
			continue
		}
		answer := fmt.Sprintf("%s for %s: %g %s %s %s, per %s.",
			guideline.Medication, guideline.Indication,
			guideline.Dose, guideline.Unit, guideline.Route, guideline.Frequency,
			guideline.Source)
		return &RouteResult{
			Kind:       RouteStructured,
			QueryType:  model.QueryTypeDosage,
			Answer:     answer,
			Confidence: 0.9,
			Blocks: []model.ContextBlock{{
				DisplayName: guideline.Source,
				Filename:    guideline.Source,
				Content:     answer,
			}},
		}
	}
	return nil
}

// indicationMatches reports whether a guideline row applies to the query.
// Rows without an indication apply to any query about their medication.
func indicationMatches(queryTokens map[string]bool, indication string) bool {
	if indication == "" {
		return true
	}
	for token := range curated.Tokenize(indication) {
		if queryTokens[token] {
			return true
		}
	}
	return false
}

// routeHybrid retrieves context for the synthesizer. Empty or weak results
// resolve to the canonical insufficient-information response.
func (r *Router) routeHybrid(ctx context.Context, text string, queryType model.QueryType) (*RouteResult, error) {
	results, err := r.engine.Retrieve(ctx, text, queryType, r.cfg.TopK)
	if err != nil {
		return nil, helper.NewError("retrieve context", err)
	}

	if len(results) == 0 || results[0].Score < r.cfg.SimilarityThreshold {
		return r.insufficientResult(queryType), nil
	}

	blocks := make([]model.ContextBlock, 0, len(results))
	for _, result := range results {
		block := model.ContextBlock{
			Filename: fmt.Sprintf("document-%d", result.Chunk.DocumentID),
			Page:     result.Chunk.Page,
			Content:  result.Chunk.Content,
		}
		if doc := r.engine.Document(result.Chunk.DocumentID); doc != nil {
			block.DisplayName = doc.DisplayName
			block.Filename = doc.Filename
		}
		blocks = append(blocks, block)
	}

	return &RouteResult{
		Kind:       RouteHybrid,
		QueryType:  queryType,
		Confidence: results[0].Score,
		Blocks:     blocks,
	}, nil
}

func (r *Router) insufficientResult(queryType model.QueryType) *RouteResult {
	return &RouteResult{
		Kind:       RouteInsufficient,
		QueryType:  queryType,
		Answer:     r.cfg.InsufficientMessage,
		Confidence: r.cfg.InsufficientConfidence,
		Blocks:     []model.ContextBlock{},
	}
}

// bestDocumentMatch scores registered documents by query token coverage over
// filename and display name, highest coverage wins
func (r *Router) bestDocumentMatch(text string) *model.Document {
	queryTokens := curated.Tokenize(text)
	delete(queryTokens, "form")
	delete(queryTokens, "forms")

	var best *model.Document
	bestScore := 0.0
	for _, doc := range r.engine.Documents() {
		docTokens := curated.Tokenize(doc.Filename + " " + doc.DisplayName)
		overlap := 0
		for token := range queryTokens {
			if docTokens[token] {
				overlap++
			}
		}
		if len(queryTokens) == 0 {
			continue
		}
		score := float64(overlap) / float64(len(queryTokens))
		if score > bestScore && overlap > 0 {
			bestScore = score
			best = doc
		}
	}
	if bestScore < 0.3 {
		return nil
	}
	return best
}
