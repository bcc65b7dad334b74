package metadata

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

func (e *Extractor) links(p *pass, text string) []string {
	var out []string
	for _, m := range p.findAll("link", urlPattern, text) {
		link := m[0]
		if r, size := utf8.DecodeLastRuneInString(link); size > 0 && strings.ContainsRune(".,;!?'\"`<>", r) {
			link = link[:len(link)-size]
		}
		link = strings.TrimSpace(link)
		if !strings.Contains(link, ".") || utf8.RuneCountInString(link) <= 4 {
			continue
		}
		if !strings.HasPrefix(link, "http://") && !strings.HasPrefix(link, "https://") && strings.HasPrefix(link, "www.") {
			link = "http://" + link
		}
		out = append(out, link)
	}
	return out
}

func (e *Extractor) responsible(p *pass, text string) []string {
	var names []string
	for _, re := range e.responsiblePatterns {
		for _, m := range p.findAll("responsible", re, text) {
			if name := strings.TrimSpace(m[0]); utf8.RuneCountInString(name) > 1 {
				names = append(names, name)
			}
		}
	}
	for _, contact := range p.find("responsible", e.knownContacts, text) {
		if strings.HasPrefix(contact, "@") {
			names = append(names, contact)
		}
	}
	return names
}

func (e *Extractor) sla(p *pass, text string) []string {
	var out []string
	for _, re := range slaPatterns {
		for _, m := range p.findAll("sla", re, text) {
			if v := joinParts(m); v != "" {
				out = append(out, v)
			}
		}
	}
	return out
}

// duration extracts validity periods, excluding values already reported
// as SLA.
func (e *Extractor) duration(p *pass, text string, sla []string) []string {
	exclude := make(map[string]bool, len(sla))
	for _, s := range sla {
		exclude[s] = true
	}

	var out []string
	for _, re := range durationPatterns {
		for _, m := range p.findAll("duration", re, text) {
			parts := nonBlankParts(m)
			var value string
			switch len(parts) {
			case 1:
				value = parts[0]
			case 2:
				value = "с " + parts[0] + " по " + parts[1]
			default:
				continue
			}
			value = strings.TrimSpace(e.normalizeDuration(p, value))
			if value != "" && !exclude[value] {
				out = append(out, value)
			}
		}
	}
	return out
}

func (e *Extractor) normalizeDuration(p *pass, value string) string {
	switch {
	case p.matches("duration", bareDate, value):
		return "до " + value
	case p.matches("duration", permanentWords, value):
		return "Бессрочно"
	case p.matches("duration", accountLifetime, value):
		return "Время жизни аккаунта"
	}
	return value
}

func (e *Extractor) wager(p *pass, text string) []string {
	lower := strings.ToLower(text)
	var out []string
	for _, re := range wagerPatterns {
		for _, m := range p.findAll("wager", re, lower) {
			if v := normalizeWager(m[0]); v != "" {
				out = append(out, v)
			}
		}
	}
	return out
}

func normalizeWager(raw string) string {
	s := strings.ToUpper(strings.ReplaceAll(raw, " ", ""))
	switch {
	case s == "":
		return ""
	case strings.Contains(s, "БЕЗВЕЙДЖЕР"), strings.Contains(s, "NOWAGER"), s == "X0", s == "0X":
		return "x0"
	case strings.Contains(s, "REAL+BONUS"):
		return "real+bonus"
	}

	var b strings.Builder
	digits := false
	for _, r := range s {
		switch {
		case r == 'X' || r == 'Х':
			b.WriteRune('X')
		case unicode.IsDigit(r):
			b.WriteRune(r)
			digits = true
		}
	}
	if !digits {
		return ""
	}
	return "x" + strings.TrimPrefix(b.String(), "X")
}

var currencySymbols = strings.NewReplacer("€", "EUR", "₽", "RUB", "₺", "TRY", "$", "USD")

func (e *Extractor) payout(p *pass, text string) []string {
	var out []string
	for _, re := range payoutPatterns {
		for _, m := range p.findAll("payout", re, text) {
			if v := e.normalizePayout(p, m[0]); v != "" {
				out = append(out, v)
			}
		}
	}
	return out
}

func (e *Extractor) normalizePayout(p *pass, raw string) string {
	s := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(raw), " ", ""))
	if s == "" {
		return ""
	}
	if strings.HasPrefix(s, "X") || strings.HasPrefix(s, "Х") {
		s = strings.ReplaceAll(s, "Х", "X")
		if s == "X" {
			return ""
		}
		return "x" + s[1:]
	}

	s = currencySymbols.Replace(s)
	s, err := thousandsSeparator.Replace(s, "$1$2", -1, -1)
	if err != nil {
		p.warn("payout", thousandsSeparator, err)
		return ""
	}
	amount := p.findAll("payout", leadingDigits, s)
	currency := p.findAll("payout", trailingCurrency, s)
	if len(amount) == 0 || len(currency) == 0 {
		return ""
	}
	return amount[0][0] + currency[0][0]
}

func (e *Extractor) goals(p *pass, text string) []string {
	var out []string
	for _, m := range p.findAll("goal", explicitGoal, text) {
		if g := strings.TrimSpace(m[0]); utf8.RuneCountInString(g) > 5 {
			out = append(out, g)
		}
	}
	for _, re := range actionGoals {
		for _, m := range p.findAll("goal", re, text) {
			g := strings.Trim(m[0], " .,;")
			if n := utf8.RuneCountInString(g); n > 5 && n < 100 {
				out = append(out, capitalize(g))
			}
		}
	}
	return out
}

func capitalize(s string) string {
	r := []rune(strings.ToLower(s))
	if len(r) == 0 {
		return s
	}
	r[0] = unicode.ToTitle(r[0])
	return string(r)
}

func nonBlankParts(parts []string) []string {
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func joinParts(parts []string) string {
	return strings.Join(nonBlankParts(parts), " ")
}
