// Package vocabulary holds the domain term lists used by metadata
// extraction, query classification and scoring.
//
// A Vocabulary is an immutable value: build it once with Default or
// LoadFile and share it between goroutines.
package vocabulary

import (
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// ErrInvalidFile is returned when a vocabulary file cannot be decoded.
var ErrInvalidFile = errors.New("invalid vocabulary file")

// Vocabulary is the set of known domain terms.
type Vocabulary struct {
	RelatedTopics       []string `toml:"related_topics"`
	ProcessStages       []string `toml:"process_stages"`
	Geos                []string `toml:"geos"`
	Currencies          []string `toml:"currencies"`
	Departments         []string `toml:"departments"`
	Metrics             []string `toml:"metrics"`
	Mechanics           []string `toml:"mechanics"`
	BonusTypes          []string `toml:"bonus_types"`
	Priorities          []string `toml:"priorities"`
	SLAValues           []string `toml:"sla_values"`
	FormTypes           []string `toml:"form_types"`
	Tools               []string `toml:"tools"`
	KnownContacts       []string `toml:"known_contacts"`
	ResponsibleKeywords []string `toml:"responsible_keywords"`
	ExcelOwnerKeys      []string `toml:"excel_owner_keys"`
}

// PriorityRank orders priority levels; higher is more urgent.
var PriorityRank = map[string]int{
	"ASAP":    5,
	"High":    4,
	"Medium":  3,
	"Low":     2,
	"Backlog": 1,
}

// Default returns the built-in vocabulary.
func Default() *Vocabulary {
	return &Vocabulary{
		RelatedTopics: []string{
			"Promo", "Promo360", "VIP", "Payments", "Casino", "CRM", "Support",
			"Mostbet", "BetAndreas", "ASAP", "MWL", "MSD", "Antifraud", "CX",
			"Content", "Web-analytics", "Турниры", "Бонусы", "Платежи", "Игры",
			"Регламент", "Отчет", "Дашборд", "Форма", "Заявка", "Тикет",
		},
		ProcessStages: []string{
			"Инициация", "Оценка", "Приоритизация", "Продуктовая оценка",
			"Доработка брифа", "Согласование", "Антифрод", "Создание турнира",
			"Подготовка контента", "Макет и задачи", "Ежеквартальное планирование",
			"Подготовка к запуску", "Запуск", "A/B тест", "Мониторинг",
			"Информирование", "Исполнение", "Награда", "Постаналитика",
			"Подведение итогов", "Ретроспектива", "Отключение",
		},
		Geos: []string{
			"ALL", "KZ", "TR", "AZ", "PT", "PL", "HU", "IN", "BD", "UA", "UZ",
			"NP", "SI", "PK", "RU", "CZ", "IT", "EN", "GLOBAL", "ROW", "BR", "GEO",
		},
		Currencies: []string{
			"RUB", "USD", "EUR", "TRY", "AZN", "INR", "KZT", "UZS", "BDT", "PKR",
			"LKR", "CZK", "PLN", "HUF", "UAH", "GEL",
		},
		Departments: []string{
			"Promo", "Casino", "Analytics", "Product", "VIP", "SMM", "CRM",
			"Content", "Support", "Payments", "CX", "MSD", "Tech", "Antifraud",
			"Web-analytics", "GOP", "HR", "Finance", "Legal", "Marketing", "Risk",
			"BI", "Development", "QA",
		},
		Metrics: []string{
			"GGR", "NGR", "RR", "Retention", "CLTV", "LTV", "CR", "Conversion Rate",
			"Conversion", "Конверсия", "Average Deposit", "Avg. Deposit",
			"Средний депозит", "ROI", "ROMI", "ARPU", "ARPPU", "CAC", "Churn Rate",
			"Отток", "Active Users", "Активные игроки", "DAU", "WAU", "MAU",
			"Bet Count", "Количество ставок", "Avg Bet Size", "Средняя ставка",
			"Hold", "Margin", "Маржа", "Rake", "Рейк", "Bonus Cost",
			"Стоимость бонусов", "Turnover", "Оборот",
		},
		Mechanics: []string{
			"Бонус", "Турнир", "Лотерея", "Цепочка", "Фриспины", "Фрибеты",
			"Промокод", "Ручная", "Авто", "ASAP", "Кэшбек", "Розыгрыш", "Миссия",
			"Джекпот", "Колесо фортуны", "Квест", "Giveaway", "Leaderboard",
			"Welcome Bonus", "Reload Bonus", "Бездепозитный бонус", "Депозитный бонус",
		},
		BonusTypes: []string{
			"Бонусный пакет", "Фриспины", "Фрибет", "Промокод", "Кэшбек",
			"Реферальный бонус", "Деньги на счет", "Бездепозитный бонус",
			"Релоад бонус", "Страховка ставки", "Подарок", "Приветственный бонус",
			"Reload Bonus", "No Deposit Bonus", "Deposit Bonus", "Cash Bonus", "FS", "FB",
		},
		Priorities: []string{"ASAP", "High", "Medium", "Low", "Backlog"},
		SLAValues: []string{
			"3 рабочих дня", "5 рабочих дней", "10 рабочих дней", "72 часа",
			"24 часа", "1 рабочий день", "до конца недели", "до конца месяца",
			"до конца дня",
		},
		FormTypes: []string{
			"Форма на аналитику", "Форма на бонус", "Jira тикет", "Asana форма",
			"Service Desk", "Форма на CRM", "Форма на дизайн", "Форма на разработку",
			"Форма на ручные бонусы", "Inbox 360", "Бриф на акцию",
			"Форма на отключение акции", "Заявка на аналитику", "Заявка на бонус",
			"Bonus Package Form", "Форма постановки задач", "Запрос на доступ",
		},
		Tools: []string{
			"Asana", "Confluence", "Google Docs", "Google Sheets", "Google Slides",
			"Jira", "Trello", "Miro", "Figma", "Slack", "Telegram", "Superset",
			"Power BI", "Metabase", "Grafana", "GrowthBook", "Admin Panel",
			"Админка", "Creatio", "Excel", "Word", "Outlook", "Service Desk",
		},
		ResponsibleKeywords: []string{
			"ответственн", "контакт", "автор", "менеджер", "лид", "директор",
			"руководитель", "владелец", "исполнитель", "лпр", "head of", "lead",
			"manager", "director", "owner", "responsible", "contact person",
		},
		ExcelOwnerKeys: []string{
			"manager", "responsible", "ответственный", "куратор", "owner", "лид",
			"фио", "имя",
		},
	}
}

// LoadFile reads a TOML vocabulary file. Lists present in the file replace
// the corresponding defaults; absent lists keep them.
func LoadFile(path string) (*Vocabulary, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}

	var overlay Vocabulary
	if _, err := toml.DecodeFile(path, &overlay); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidFile, path, err)
	}
	return Default().Merge(&overlay), nil
}

// Merge returns a copy of v with every non-empty list of overlay replacing
// its counterpart.
func (v *Vocabulary) Merge(overlay *Vocabulary) *Vocabulary {
	out := v.clone()
	if overlay == nil {
		return out
	}
	pick := func(dst *[]string, src []string) {
		if len(src) > 0 {
			*dst = append([]string(nil), src...)
		}
	}
	pick(&out.RelatedTopics, overlay.RelatedTopics)
	pick(&out.ProcessStages, overlay.ProcessStages)
	pick(&out.Geos, overlay.Geos)
	pick(&out.Currencies, overlay.Currencies)
	pick(&out.Departments, overlay.Departments)
	pick(&out.Metrics, overlay.Metrics)
	pick(&out.Mechanics, overlay.Mechanics)
	pick(&out.BonusTypes, overlay.BonusTypes)
	pick(&out.Priorities, overlay.Priorities)
	pick(&out.SLAValues, overlay.SLAValues)
	pick(&out.FormTypes, overlay.FormTypes)
	pick(&out.Tools, overlay.Tools)
	pick(&out.KnownContacts, overlay.KnownContacts)
	pick(&out.ResponsibleKeywords, overlay.ResponsibleKeywords)
	pick(&out.ExcelOwnerKeys, overlay.ExcelOwnerKeys)
	return out
}

func (v *Vocabulary) clone() *Vocabulary {
	c := func(s []string) []string { return append([]string(nil), s...) }
	return &Vocabulary{
		RelatedTopics:       c(v.RelatedTopics),
		ProcessStages:       c(v.ProcessStages),
		Geos:                c(v.Geos),
		Currencies:          c(v.Currencies),
		Departments:         c(v.Departments),
		Metrics:             c(v.Metrics),
		Mechanics:           c(v.Mechanics),
		BonusTypes:          c(v.BonusTypes),
		Priorities:          c(v.Priorities),
		SLAValues:           c(v.SLAValues),
		FormTypes:           c(v.FormTypes),
		Tools:               c(v.Tools),
		KnownContacts:       c(v.KnownContacts),
		ResponsibleKeywords: c(v.ResponsibleKeywords),
		ExcelOwnerKeys:      c(v.ExcelOwnerKeys),
	}
}
