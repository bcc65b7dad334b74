package metadata

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/promorag/internal/corpus"
	"github.com/fyrsmithlabs/promorag/internal/logging"
	"github.com/fyrsmithlabs/promorag/internal/vocabulary"
)

func newTestExtractor(t *testing.T) *Extractor {
	t.Helper()
	return NewExtractor(vocabulary.Default(), nil)
}

func TestExtract_Signals(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		check func(t *testing.T, m corpus.Metadata)
	}{
		{
			name: "known vocabulary",
			text: "Запуск акции в KZ и TR, валюта KZT. Работаем в Asana и Jira.",
			check: func(t *testing.T, m corpus.Metadata) {
				assert.Equal(t, []string{"KZ", "TR"}, m.Geo)
				assert.Equal(t, []string{"KZT"}, m.Currency)
				assert.Equal(t, []string{"Asana", "Jira"}, m.Tools)
				assert.Equal(t, []string{"Запуск"}, m.Stage)
			},
		},
		{
			name: "sla keyword",
			text: "SLA: 24 часа",
			check: func(t *testing.T, m corpus.Metadata) {
				assert.Equal(t, []string{"24 часа"}, m.SLA)
				assert.Equal(t, []string{"24"}, m.Duration)
			},
		},
		{
			name: "sla end of period",
			text: "Ответ дадим до конца недели",
			check: func(t *testing.T, m corpus.Metadata) {
				assert.Equal(t, []string{"до конца недели"}, m.SLA)
			},
		},
		{
			name: "date range duration",
			text: "Акция действует с 01.06.2024 по 30.06.2024",
			check: func(t *testing.T, m corpus.Metadata) {
				assert.Equal(t, []string{"до 30.06.2024", "с 01.06.2024 по 30.06.2024"}, m.Duration)
			},
		},
		{
			name: "permanent duration",
			text: "Кэшбек начисляется постоянно",
			check: func(t *testing.T, m corpus.Metadata) {
				assert.Equal(t, []string{"Бессрочно"}, m.Duration)
			},
		},
		{
			name: "wager",
			text: "Вейджер x35. Для кэшбека no wager.",
			check: func(t *testing.T, m corpus.Metadata) {
				assert.Equal(t, []string{"x0", "x35"}, m.Wager)
			},
		},
		{
			name: "payout currency",
			text: "Max win: 500 EUR",
			check: func(t *testing.T, m corpus.Metadata) {
				assert.Equal(t, []string{"500EUR"}, m.Payout)
			},
		},
		{
			name: "payout thousands separator",
			text: "Максимальный вывод: 1,000 USD",
			check: func(t *testing.T, m corpus.Metadata) {
				assert.Equal(t, []string{"1000USD"}, m.Payout)
			},
		},
		{
			name: "payout multiplier",
			text: "Payout x10",
			check: func(t *testing.T, m corpus.Metadata) {
				assert.Equal(t, []string{"x10"}, m.Payout)
			},
		},
		{
			name: "links",
			text: "Форма: https://form.asana.com/?k=abc, доска www.miro.com/app.",
			check: func(t *testing.T, m corpus.Metadata) {
				assert.Equal(t, []string{"http://www.miro.com/app", "https://form.asana.com/?k=abc"}, m.Link)
			},
		},
		{
			name: "responsible after keyword",
			text: "Ответственный менеджер: Иван Петров",
			check: func(t *testing.T, m corpus.Metadata) {
				assert.Equal(t, "Иван Петров", m.Responsible)
			},
		},
		{
			name: "responsible before handle",
			text: "Мария @maria_promo",
			check: func(t *testing.T, m corpus.Metadata) {
				assert.Equal(t, "Мария", m.Responsible)
			},
		},
		{
			name: "responsible lexicographic pick",
			text: "Контакт: Борис. Анна (anna@example.com)",
			check: func(t *testing.T, m corpus.Metadata) {
				assert.Equal(t, "Анна", m.Responsible)
			},
		},
		{
			name: "priority picks highest",
			text: "Приоритет: High, можно Low",
			check: func(t *testing.T, m corpus.Metadata) {
				assert.Equal(t, "High", m.PriorityLevel)
				assert.Contains(t, m.RelatedTo, "High")
			},
		},
		{
			name: "goals",
			text: "Цель: рост retention игроков.",
			check: func(t *testing.T, m corpus.Metadata) {
				assert.Equal(t, []string{"Retention игроков", "рост retention игроков."}, m.Goal)
			},
		},
		{
			name: "related topics union",
			text: "Promo акция для VIP в KZ",
			check: func(t *testing.T, m corpus.Metadata) {
				assert.Equal(t, []string{"KZ", "Promo", "VIP"}, m.RelatedTo)
			},
		},
		{
			name: "nothing to find",
			text: "",
			check: func(t *testing.T, m corpus.Metadata) {
				assert.Equal(t, corpus.Metadata{DocumentName: "doc.pdf", SourceType: "text_chunk"}, m)
			},
		},
	}

	e := newTestExtractor(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, warnings := e.ExtractWithWarnings(Input{
				Text:         tt.text,
				DocumentName: "doc.pdf",
				SourceType:   "text_chunk",
			})
			assert.Empty(t, warnings)
			tt.check(t, m)
		})
	}
}

func TestExtract_EntityType(t *testing.T) {
	tests := []struct {
		heading string
		text    string
		want    string
	}{
		{heading: "FAQ по бонусам", text: "Кто начисляет бонусы", want: EntityFAQ},
		{text: "Правило начисления: бонус", want: EntityBonusRule},
		{text: "Правило округления сумм", want: EntityRule},
		{text: "Описание: процесс согласования", want: EntityProcess},
		{text: "Заполните форма на сайте", want: EntityFormInstruction},
		{text: "Ключевая метрика команды", want: EntityMetricDefinition},
		{text: "Обычный текст", want: ""},
	}

	e := newTestExtractor(t)
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			m := e.Extract(Input{Text: tt.text, DocumentName: "doc", CurrentHeading: tt.heading})
			assert.Equal(t, tt.want, m.Type)
		})
	}
}

func TestExtract_ExcelRow(t *testing.T) {
	row := corpus.Row{
		{Key: "ответственный", Value: "Петр Сидоров"},
		{Key: "ссылка", Value: "https://confluence.dats.tech/x"},
	}
	in := Input{
		Text:         corpus.RenderRow(row),
		DocumentName: "contacts.xlsx",
		SourceType:   string(corpus.BlockExcelRow) + "_chunk",
		TableHeaders: []string{"ответственный", "ссылка"},
		ExcelRow:     row,
	}

	m := newTestExtractor(t).Extract(in)
	assert.True(t, m.Table)
	assert.Equal(t, []string{"ответственный", "ссылка"}, m.Columns)
	assert.Equal(t, "Петр Сидоров", m.Responsible)
	assert.Equal(t, []string{"https://confluence.dats.tech/x"}, m.Link)
	assert.Equal(t, "excel_row_chunk", m.SourceType)
}

func TestExtract_TableRows(t *testing.T) {
	in := Input{
		Text:         "| Метрика | Отдел |",
		DocumentName: "report.docx",
		SourceType:   "table_chunk",
		TableHeaders: []string{"Метрика", "Отдел"},
		TableRows: []corpus.Row{
			{{Key: "Метрика", Value: "GGR"}, {Key: "Отдел", Value: "Analytics"}},
		},
	}

	m := newTestExtractor(t).Extract(in)
	assert.True(t, m.Table)
	assert.Equal(t, []string{"GGR"}, m.Metric)
	assert.Equal(t, []string{"Analytics"}, m.Department)
}

func TestExtract_DocumentLinks(t *testing.T) {
	m := newTestExtractor(t).Extract(Input{
		Text:               "текст",
		DocumentName:       "doc.docx",
		DocumentHyperlinks: []string{"https://b.example.com", "https://a.example.com", "https://b.example.com"},
	})
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, m.DocumentLinks)
}

func TestExtract_KnownContacts(t *testing.T) {
	vocab := vocabulary.Default().Merge(&vocabulary.Vocabulary{KnownContacts: []string{"@promo_team", "promo desk"}})
	e := NewExtractor(vocab, nil)

	m := e.Extract(Input{Text: "пишите в @promo_team или в promo desk", DocumentName: "doc"})
	assert.Equal(t, "@promo_team", m.Responsible)
}

func TestExtract_Deterministic(t *testing.T) {
	in := Input{
		Text: "## Регламент промо\nОтветственный менеджер: Иван Петров (@ivan_p). SLA: 3 рабочих дня.\n" +
			"Гео: KZ, TR, AZ. Вейджер x40, max win 1000 EUR. Ссылка: https://app.asana.com/0/1207021300313272\n" +
			"Цель: рост конверсии в депозит.",
		DocumentName: "promo.pdf",
		SourceType:   "text_chunk",
		Page:         3,
	}

	e := newTestExtractor(t)
	first, err := json.Marshal(e.Extract(in))
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		next, err := json.Marshal(e.Extract(in))
		require.NoError(t, err)
		assert.JSONEq(t, string(first), string(next))
		assert.Equal(t, first, next)
	}
}

func TestExtract_ListInvariant(t *testing.T) {
	m := newTestExtractor(t).Extract(Input{
		Text:         "Promo Promo  KZ KZ, бонус через Asana. Asana!",
		DocumentName: "doc",
	})

	for _, list := range [][]string{m.Geo, m.Tools, m.Department, m.RelatedTo} {
		require.NotEmpty(t, list)
		assert.IsIncreasing(t, list)
	}
}

func TestExtract_LogsWarnings(t *testing.T) {
	logger := logging.NewTestLogger()
	e := NewExtractor(nil, logger.Underlying())

	e.Extract(Input{Text: "обычный текст", DocumentName: "doc"})
	logger.AssertNotLogged(t, zapcore.WarnLevel, "metadata extraction degraded")
}

func TestExtractionWarning(t *testing.T) {
	cause := errors.New("match timeout")
	w := &ExtractionWarning{Signal: "sla", Pattern: `\d+`, Err: cause}

	assert.ErrorIs(t, w, cause)
	assert.Contains(t, w.Error(), "sla")
	assert.Contains(t, w.Error(), "match timeout")
}
