package metadata

import "strings"

// Entity types assigned to chunks.
const (
	EntityFAQ               = "faq"
	EntityGuide             = "guide"
	EntityBonusRule         = "bonus_rule"
	EntityRule              = "rule"
	EntityProcess           = "process"
	EntityFormInstruction   = "form_instruction"
	EntityRoleDescription   = "role_description"
	EntityMetricDefinition  = "metric_definition"
	EntityReportDescription = "report_description"
	EntityContactList       = "contact_list"
	EntityUserFlow          = "user_flow"
)

// entityRule assigns tag when every term set matches.
type entityRule struct {
	tag  string
	sets []termSet
}

func defaultEntityRules() []entityRule {
	rule := newTermSet([]string{"правило", "rule"})
	return []entityRule{
		{EntityFAQ, []termSet{newTermSet([]string{"faq", "вопрос ответ", "чаво"})}},
		{EntityGuide, []termSet{newTermSet([]string{"инструкция", "гайд", "руководство", "как сделать", "how to", "guide"})}},
		{EntityBonusRule, []termSet{rule, newTermSet([]string{"бонус", "акция", "промо"})}},
		{EntityRule, []termSet{rule}},
		{EntityProcess, []termSet{newTermSet([]string{"процесс", "process", "регламент", "workflow", "порядок", "схема взаимодействия"})}},
		{EntityFormInstruction, []termSet{newTermSet([]string{"форма", "заявка", "тикет", "запрос", "постановка задачи", "бриф"})}},
		{EntityRoleDescription, []termSet{newTermSet([]string{"роль", "role", "должность"})}},
		{EntityMetricDefinition, []termSet{newTermSet([]string{"метрика", "metric", "показатель", "kpi"})}},
		{EntityReportDescription, []termSet{newTermSet([]string{"отчет", "report", "дашборд", "dashboard"})}},
		{EntityContactList, []termSet{newTermSet([]string{"контакт", "contact list", "список контактов"})}},
		{EntityUserFlow, []termSet{newTermSet([]string{"user flow", "путь пользователя"})}},
	}
}

// entityType returns the tag of the first rule matching heading and text.
func (e *Extractor) entityType(p *pass, text, heading string) string {
	full := strings.TrimSpace(strings.ToLower(heading) + "\n" + strings.ToLower(text))
	if full == "" {
		return ""
	}
	for _, r := range e.entityRules {
		matched := true
		for _, set := range r.sets {
			if !p.has("type", set, full) {
				matched = false
				break
			}
		}
		if matched {
			return r.tag
		}
	}
	return ""
}
