package metadata

import (
	"sort"
	"strings"

	"github.com/dlclark/regexp2"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/promorag/internal/corpus"
	"github.com/fyrsmithlabs/promorag/internal/vocabulary"
)

// Input is the chunk and its provenance.
type Input struct {
	Text               string
	DocumentName       string
	SourceType         string
	Page               int
	TableHeaders       []string
	TableRows          []corpus.Row
	ExcelRow           corpus.Row
	DocumentHyperlinks []string
	CurrentHeading     string
}

// structured reports whether the input came from a table or a sheet.
func (in Input) structured() bool {
	return strings.Contains(in.SourceType, "table") || strings.Contains(in.SourceType, "excel")
}

// flatten renders structured rows as plain text for pattern matching.
func (in Input) flatten() string {
	if len(in.ExcelRow) > 0 {
		return corpus.JoinRow(in.ExcelRow)
	}
	lines := make([]string, 0, len(in.TableRows))
	for _, row := range in.TableRows {
		cells := make([]string, 0, len(row))
		for _, f := range row {
			cells = append(cells, f.Value)
		}
		lines = append(lines, strings.Join(cells, " | "))
	}
	return strings.Join(lines, "\n")
}

// Extractor derives corpus.Metadata from chunk text. It is safe for
// concurrent use.
type Extractor struct {
	logger *zap.Logger

	stages, geos, currencies, departments termSet
	metrics, mechanics, bonusTypes        termSet
	priorities, slaValues, formTypes      termSet
	tools, related, knownContacts         termSet

	responsiblePatterns []*regexp2.Regexp
	ownerKeys           map[string]bool
	entityRules         []entityRule
}

// NewExtractor compiles vocab into an extractor. A nil vocab selects
// vocabulary.Default and a nil logger discards warnings.
func NewExtractor(vocab *vocabulary.Vocabulary, logger *zap.Logger) *Extractor {
	if vocab == nil {
		vocab = vocabulary.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	ownerKeys := make(map[string]bool, len(vocab.ExcelOwnerKeys))
	for _, k := range vocab.ExcelOwnerKeys {
		ownerKeys[strings.ToLower(k)] = true
	}

	return &Extractor{
		logger:              logger,
		stages:              newTermSet(vocab.ProcessStages),
		geos:                newTermSet(vocab.Geos),
		currencies:          newTermSet(vocab.Currencies),
		departments:         newTermSet(vocab.Departments),
		metrics:             newTermSet(vocab.Metrics),
		mechanics:           newTermSet(vocab.Mechanics),
		bonusTypes:          newTermSet(vocab.BonusTypes),
		priorities:          newTermSet(vocab.Priorities),
		slaValues:           newTermSet(vocab.SLAValues),
		formTypes:           newTermSet(vocab.FormTypes),
		tools:               newTermSet(vocab.Tools),
		related:             newTermSet(vocab.RelatedTopics),
		knownContacts:       newTermSet(vocab.KnownContacts),
		responsiblePatterns: responsiblePatterns(vocab.ResponsibleKeywords),
		ownerKeys:           ownerKeys,
		entityRules:         defaultEntityRules(),
	}
}

// Extract annotates in. Pattern failures are logged and skipped.
func (e *Extractor) Extract(in Input) corpus.Metadata {
	meta, warnings := e.ExtractWithWarnings(in)
	for _, w := range warnings {
		e.logger.Warn("metadata extraction degraded",
			zap.String("document", in.DocumentName),
			zap.String("signal", w.Signal),
			zap.Error(w),
		)
	}
	return meta
}

// ExtractWithWarnings is Extract returning the warnings instead of logging
// them.
func (e *Extractor) ExtractWithWarnings(in Input) (corpus.Metadata, []*ExtractionWarning) {
	p := &pass{}
	meta := corpus.Metadata{
		DocumentName:  in.DocumentName,
		Page:          in.Page,
		SourceType:    in.SourceType,
		DocumentLinks: sortedSet(in.DocumentHyperlinks),
	}

	var (
		links, responsible, stage, geo, currency []string
		department, metric, mechanic, bonusType  []string
		priority, sla, duration, wager, payout   []string
		goal, formType, tools, related           []string
	)

	if text := in.Text; text != "" {
		links = e.links(p, text)
		stage = p.find("stage", e.stages, text)
		geo = p.find("geo", e.geos, text)
		currency = p.find("currency", e.currencies, text)
		department = p.find("department", e.departments, text)
		metric = p.find("metric", e.metrics, text)
		mechanic = p.find("mechanic", e.mechanics, text)
		bonusType = p.find("bonus_type", e.bonusTypes, text)
		priority = p.find("priority_level", e.priorities, text)
		formType = p.find("form_type", e.formTypes, text)
		tools = p.find("tools", e.tools, text)
		related = p.find("related_to", e.related, text)
		responsible = e.responsible(p, text)
		meta.Type = e.entityType(p, text, in.CurrentHeading)

		regexSLA := e.sla(p, text)
		sla = append(p.find("sla", e.slaValues, text), regexSLA...)
		duration = e.duration(p, text, regexSLA)
		wager = e.wager(p, text)
		payout = e.payout(p, text)
		goal = e.goals(p, text)
	}

	if in.structured() {
		meta.Table = true
		if len(in.TableHeaders) > 0 {
			meta.Columns = append([]string(nil), in.TableHeaders...)
		}

		if flat := in.flatten(); flat != "" {
			responsible = append(responsible, e.responsible(p, flat)...)
			links = append(links, e.links(p, flat)...)
			metric = append(metric, p.find("metric", e.metrics, flat)...)
			mechanic = append(mechanic, p.find("mechanic", e.mechanics, flat)...)
			bonusType = append(bonusType, p.find("bonus_type", e.bonusTypes, flat)...)
			department = append(department, p.find("department", e.departments, flat)...)
		}

		for _, f := range in.ExcelRow {
			if e.ownerKeys[strings.ToLower(f.Key)] && strings.TrimSpace(f.Value) != "" {
				responsible = append(responsible, strings.TrimSpace(f.Value))
			}
			if strings.HasPrefix(f.Value, "http") {
				links = append(links, f.Value)
			}
		}
	}

	meta.Link = sortedSet(links)
	if names := sortedSet(responsible); len(names) > 0 {
		// Lexicographic pick; the first name in sort order wins.
		meta.Responsible = names[0]
	}
	meta.Stage = sortedSet(stage)
	meta.Geo = sortedSet(geo)
	meta.Currency = sortedSet(currency)
	meta.Department = sortedSet(department)
	meta.Metric = sortedSet(metric)
	meta.Mechanic = sortedSet(mechanic)
	meta.BonusType = sortedSet(bonusType)
	meta.PriorityLevel = highestPriority(priority)
	meta.SLA = sortedSet(sla)
	meta.Duration = sortedSet(duration)
	meta.Wager = sortedSet(wager)
	meta.Payout = sortedSet(payout)
	meta.Goal = sortedSet(goal)
	meta.FormType = sortedSet(formType)
	meta.Tools = sortedSet(tools)

	var extra []string
	if meta.PriorityLevel != "" {
		extra = append(extra, meta.PriorityLevel)
	}
	if meta.Type != "" {
		extra = append(extra, meta.Type)
	}
	meta.RelatedTo = sortedSet(related, meta.Department, meta.Mechanic, meta.Geo, extra)

	return meta, p.warnings
}

func highestPriority(found []string) string {
	values := sortedSet(found)
	if len(values) == 0 {
		return ""
	}
	sort.SliceStable(values, func(i, j int) bool {
		return vocabulary.PriorityRank[values[i]] > vocabulary.PriorityRank[values[j]]
	})
	return values[0]
}
