package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifier_Classify(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantType   Type
		wantTarget string
	}{
		{name: "empty", query: "   ", wantType: TypeGeneral},
		{name: "email question", query: "Email Максима Рощины?", wantType: TypeContact},
		{name: "link with target", query: "Ссылка на форму Promo Inbox 360?", wantType: TypeLink, wantTarget: "promo inbox 360"},
		{name: "link via key words", query: "Где найти календарь релизов", wantType: TypeLink, wantTarget: "calendar календарь"},
		{name: "link via anchor", query: "Где найти доска", wantType: TypeLink, wantTarget: "доска"},
		{name: "contact keyword", query: "Кто отвечает за турниры", wantType: TypeContact},
		{name: "full name with owner hint", query: "Чей проект у Иван Петров", wantType: TypeContact},
		{name: "sla", query: "Какой SLA на выплаты", wantType: TypeSLA},
		{name: "tool", query: "Нужен доступ в jira", wantType: TypeTool},
		{name: "process", query: "Опиши этап согласования", wantType: TypeProcess},
		{name: "general", query: "Расскажи про турниры", wantType: TypeGeneral},
	}

	c := NewClassifier(DefaultKeywords())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(tt.query)
			assert.Equal(t, tt.wantType, got.Type)
			assert.Equal(t, tt.wantTarget, got.LinkTarget())
		})
	}
}

func TestClassifier_CustomKeywords(t *testing.T) {
	kw := DefaultKeywords()
	kw.SLA = []string{"дедлайн"}

	c := NewClassifier(kw)
	assert.Equal(t, TypeSLA, c.Classify("Какой дедлайн?").Type)
	assert.Equal(t, TypeGeneral, c.Classify("Сколько занимает срок?").Type)
}

func TestKeyLink_Target(t *testing.T) {
	assert.Equal(t, "promo process процесс промо", KeyLink{Keywords: []string{"promo process", "процесс промо"}}.Target())
}
