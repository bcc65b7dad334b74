package query

import "strings"

// KeyLink ties a group of trigger words to a URL fragment identifying the
// canonical link for them.
type KeyLink struct {
	Keywords []string `koanf:"keywords" json:"keywords"`
	Pattern  string   `koanf:"pattern" json:"pattern"`
}

// Target is the link target reported for this group.
func (k KeyLink) Target() string {
	return strings.Join(k.Keywords, " ")
}

// Keywords holds the trigger lists for every query type.
type Keywords struct {
	Contact []string
	SLA     []string
	Process []string
	Tool    []string
	Link    []string

	// OwnerHints must accompany a bare name or handle for the query to be
	// treated as a contact question.
	OwnerHints []string
	// LinkAnchors are fallback link targets, tried in order.
	LinkAnchors []string
	// KeyLinks are tried in order before LinkAnchors.
	KeyLinks []KeyLink
}

// DefaultKeywords returns the built-in trigger lists.
func DefaultKeywords() Keywords {
	return Keywords{
		Contact: []string{
			"контакт", "связаться", "email", "почта", "телеграм", "tg", "имя",
			"фамилия", "ответственный", "роль", "должность", "лид", "менеджер",
			"директор", "сотрудник", "кто", "человек",
		},
		SLA:     []string{"sla", "срок", "время", "дней", "часов", "недель", "быстро", "когда", "долго"},
		Process: []string{"процесс", "этап", "шаг", "регламент", "запуск", "подготовка", "аналитика", "как"},
		Tool: []string{
			"asana", "jira", "miro", "confluence", "инструмент", "система",
			"форма", "доска", "superset", "power bi", "metabase",
		},
		Link: []string{
			"ссылка", "url", "адрес", "перейти", "где найти", "форма", "доска",
			"документ", "календарь", "лого", "плашк", "роутинг",
		},
		OwnerHints: []string{"кто", "чей", "ответств", "роль", "должн"},
		LinkAnchors: []string{
			"inbox 360", "miro", "calendar", "msd", "promo process", "routing",
			"asana", "jira", "confluence", "superset", "power bi", "metabase",
			"форма", "доска",
		},
		KeyLinks: DefaultKeyLinks(),
	}
}

// DefaultKeyLinks returns the built-in key link table.
func DefaultKeyLinks() []KeyLink {
	return []KeyLink{
		{Keywords: []string{"inbox", "360"}, Pattern: "form.asana.com/?k=x7VsquZlamoAzBhkho0TkQ"},
		{Keywords: []string{"miro", "структура"}, Pattern: "miro.com/app/board/"},
		{Keywords: []string{"calendar", "календарь"}, Pattern: "confluence.dats.tech/display/MOS/calendar/"},
		{Keywords: []string{"msd", "инцидент"}, Pattern: "form.asana.com/?k=nc3ajhWt-yVWuXSG1U5m5w"},
		{Keywords: []string{"promo process", "процесс промо"}, Pattern: "app.asana.com/0/1207021300313272"},
		{Keywords: []string{"routing", "роутинг"}, Pattern: "form.asana.com/?k=0DSknHTYjf1cmHosatN3Zg"},
		{Keywords: []string{"logo", "лого", "плашк"}, Pattern: "form.asana.com/?k=nQkrYEdZO-TqK8bFVdw2ww"},
	}
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
