package llm

import "strings"

// SystemPrompt constrains the assistant to the supplied document context.
const SystemPrompt = "Ты — точный и внимательный ассистент PromoAI. Твоя задача - отвечать на вопросы пользователя СТРОГО на основе предоставленных ниже фрагментов документов (контекста)." +
	"\nОсновные правила:" +
	"\n1. Используй **только** информацию из раздела 'КОНТЕКСТ ДОКУМЕНТОВ'. Не добавляй знания извне и ничего не выдумывай." +
	"\n2. Если в контексте есть конкретные данные (имена, email, Telegram вида @username, ссылки URL, цифры SLA, названия форм/инструментов), **точно цитируй** их в ответе." +
	"\n3. Если спрашивают контактные данные (email, TG, телефон) и они есть в контексте - предоставь их. Если их нет - четко скажи: 'В предоставленных документах [запрошенный контакт] не найден.'" +
	"\n4. Если спрашивают ссылку на ресурс (форма, Miro, документ) и она есть в контексте - предоставь URL. Если упоминается ресурс, но ссылки нет, укажи это." +
	"\n5. Если вопрос касается табличных данных, извлекай информацию из текста таблиц в контексте." +
	"\n6. Если информация в контексте отсутствует или недостаточна для ответа, сообщи: 'На основе предоставленной информации я не могу точно ответить на ваш вопрос.'" +
	"\n7. Учитывай предыдущий диалог (если он предоставлен), чтобы понимать контекст вопроса пользователя." +
	"\n8. Отвечай кратко, по делу, без лишней информации."

// Instructions opens every user prompt.
const Instructions = "Инструкция: Основываясь **строго** на предоставленном КОНТЕКСТЕ ДОКУМЕНТОВ и ПРЕДЫДУЩЕМ ДИАЛОГЕ (если есть), " +
	"дай ответ на ПОСЛЕДНИЙ ВОПРОС ПОЛЬЗОВАТЕЛЯ. Цитируй конкретные данные (email, TG вида @username, ссылки URL, SLA) если они есть в контексте. " +
	"Если релевантной информации для ответа нет, четко скажи, что информация не найдена."

// HistoryLimit is the number of previous exchanges included in a prompt.
const HistoryLimit = 3

// Roles for conversation turns.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one message of a previous exchange.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// BuildPrompt assembles the user prompt from the assembled context, the
// question and optional earlier turns, oldest first. Only the last
// HistoryLimit exchanges are kept.
func BuildPrompt(context, question string, history ...Turn) string {
	var b strings.Builder
	b.WriteString(Instructions)
	b.WriteString("\n\n--- КОНТЕКСТ ДОКУМЕНТОВ ---\n")
	b.WriteString(context)
	b.WriteString("\n")
	b.WriteString(formatHistory(history))
	b.WriteString("\n--- ПОСЛЕДНИЙ ВОПРОС ПОЛЬЗОВАТЕЛЯ ---\n")
	b.WriteString(question)
	b.WriteString("\n\n--- ТВОЙ ОТВЕТ ---\n")
	return b.String()
}

func formatHistory(history []Turn) string {
	if n := 2 * HistoryLimit; len(history) > n {
		history = history[len(history)-n:]
	}
	if len(history) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("\n\n--- ПРЕДЫДУЩИЙ ДИАЛОГ ---\n")
	for _, t := range history {
		role := "Ассистент"
		if t.Role == RoleUser {
			role = "Пользователь"
		}
		b.WriteString(role + ": " + t.Content + "\n")
	}
	b.WriteString(strings.Repeat("-", 25) + "\n")
	return b.String()
}
