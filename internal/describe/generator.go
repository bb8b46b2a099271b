package describe

import (
	"context"
	"fmt"
	"strings"

	"github.com/cvickery/rules-archive/internal/catalog"
	"github.com/cvickery/rules-archive/internal/database"
	"github.com/cvickery/rules-archive/internal/grades"
	"github.com/cvickery/rules-archive/internal/models"
	"github.com/cvickery/rules-archive/internal/prose"
	"go.uber.org/zap"
)

const (
	inactiveMarker = "[Inactive]"
	mesgMarker     = "[MESG]"
	bkcrMarker     = "[BKCR]"
)

// Sink receives each batch of descriptions as it is generated.
type Sink interface {
	Write(ctx context.Context, schema string, batch []models.RuleDescription) error
}

type Result struct {
	Rules          int
	Batches        int
	UnknownCourses int
}

// Generator builds the canonical description of transfer rules.
type Generator struct {
	store     database.RuleStore
	cache     *catalog.Cache
	batchSize int
	logger    *zap.SugaredLogger
}

func NewGenerator(store database.RuleStore, cache *catalog.Cache, batchSize int, logger *zap.SugaredLogger) *Generator {
	if batchSize <= 0 {
		batchSize = 100000
	}
	return &Generator{store: store, cache: cache, batchSize: batchSize, logger: logger}
}

// Run describes every rule in ruleKeys, handing the sink one batch at a time.
func (g *Generator) Run(ctx context.Context, schema string, ruleKeys []string, sink Sink) (*Result, error) {
	result := &Result{}
	missesBefore := g.cache.Misses()

	for start := 0; start < len(ruleKeys); start += g.batchSize {
		end := min(start+g.batchSize, len(ruleKeys))
		batch, err := g.describeBatch(ctx, schema, ruleKeys[start:end])
		if err != nil {
			return nil, err
		}
		if err := sink.Write(ctx, schema, batch); err != nil {
			return nil, err
		}
		result.Rules += len(batch)
		result.Batches++
		g.logger.Debugf("Described rules %d to %d of %d", start+1, end, len(ruleKeys))
	}

	result.UnknownCourses = g.cache.Misses() - missesBefore
	return result, nil
}

// Describe builds the description of a single rule.
func (g *Generator) Describe(ctx context.Context, schema, ruleKey string) (string, error) {
	batch, err := g.describeBatch(ctx, schema, []string{ruleKey})
	if err != nil {
		return "", err
	}
	return batch[0].Description, nil
}

func (g *Generator) describeBatch(ctx context.Context, schema string, ruleKeys []string) ([]models.RuleDescription, error) {
	sources, err := g.store.SourceCourses(ctx, schema, ruleKeys)
	if err != nil {
		return nil, err
	}
	destinations, err := g.store.DestinationCourses(ctx, schema, ruleKeys)
	if err != nil {
		return nil, err
	}

	batch := make([]models.RuleDescription, 0, len(ruleKeys))
	for _, key := range ruleKeys {
		description, err := g.Render(sources[key], destinations[key])
		if err != nil {
			return nil, fmt.Errorf("rule %s: %w", key, err)
		}
		batch = append(batch, models.RuleDescription{RuleKey: key, Description: description})
	}
	return batch, nil
}

// Render formats "{source courses} => {destination courses}".
func (g *Generator) Render(sources []models.SourceCourse, destinations []models.DestinationCourse) (string, error) {
	sourcePhrases := make([]string, 0, len(sources))
	for _, c := range sources {
		phrase, err := g.sourcePhrase(c)
		if err != nil {
			return "", err
		}
		sourcePhrases = append(sourcePhrases, phrase)
	}
	sourceText, err := prose.Join(sourcePhrases, "and")
	if err != nil {
		return "", err
	}

	destinationPhrases := make([]string, 0, len(destinations))
	for _, c := range destinations {
		destinationPhrases = append(destinationPhrases, g.destinationPhrase(c))
	}
	destinationText, err := prose.Join(destinationPhrases, "and")
	if err != nil {
		return "", err
	}

	return sourceText + " => " + destinationText, nil
}

func (g *Generator) sourcePhrase(c models.SourceCourse) (string, error) {
	entry, ok := g.cache.Resolve(c.Course())
	if !ok {
		return models.UnknownCourseLabel + inactiveMarker, nil
	}
	restriction, err := grades.Encode(c.MinGPA, c.MaxGPA)
	if err != nil {
		return "", fmt.Errorf("course %s: %w", c.Course(), err)
	}
	phrase := entry.Label() + restriction
	if !entry.IsActive {
		phrase += inactiveMarker
	}
	return phrase, nil
}

func (g *Generator) destinationPhrase(c models.DestinationCourse) string {
	entry, ok := g.cache.Resolve(c.Course())
	if !ok {
		return models.UnknownCourseLabel + inactiveMarker
	}
	var b strings.Builder
	b.WriteString(entry.Label())
	if !entry.IsActive {
		b.WriteString(inactiveMarker)
	}
	if entry.IsMesg {
		b.WriteString(mesgMarker)
	}
	if entry.IsBkcr {
		b.WriteString(bkcrMarker)
	}
	return b.String()
}
