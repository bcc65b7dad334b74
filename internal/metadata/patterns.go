package metadata

import (
	"strings"

	"github.com/dlclark/regexp2"
)

var urlPattern = compile(`\b((?:https?://|www\d{0,3}[.]|[a-z0-9.\-]+[.][a-z]{2,4}/)`+
	`(?:[^\s()<>{}\[\]"]+|\((?:[^\s()<>"]+|(?:\([^\s()<>]+\)))*\))+`+
	`(?:\((?:[^\s()<>"]+|(?:\([^\s()<>]+\)))*\)|[^\s`+"`"+`!()\[\]{};:'".,<>?«»“”‘’]))`,
	regexp2.IgnoreCase)

const (
	namePattern    = `\b([А-ЯЁ](?:[а-яё]+|\.)(?:\s+[А-ЯЁ][а-яё]+)?|[А-ЯЁ][а-яё]+\s+[А-ЯЁ]\.|[А-ЯЁ][а-яё]+(?:-[А-ЯЁ][а-яё]+)?)\b`
	contactPattern = `[\w\.-]+@[\w\.-]{2,}\.[\w]+|(?<![\w\.-])@[\w\d\._]{3,}`
)

// responsiblePatterns builds the three name strategies: a name after a
// responsibility keyword, a name before a contact and a name after one.
func responsiblePatterns(keywords []string) []*regexp2.Regexp {
	var out []*regexp2.Regexp
	if len(keywords) > 0 {
		out = append(out, compile(`\b(?:`+strings.Join(keywords, "|")+`)[:\s]*\s*(`+namePattern+`)`, regexp2.IgnoreCase))
	}
	return append(out,
		compile(`(`+namePattern+`)\s*[:(]?\s*(?:`+contactPattern+`)`, regexp2.None),
		compile(`(?:`+contactPattern+`)\s*[:)]?\s*(`+namePattern+`)`, regexp2.None),
	)
}

const slaUnits = `(?:рабочих|раб\.?|календ\.?|к\.?)\s*(?:дней|дня|дн\.?|часов|час\.?|ч\.?|недель|нед\.?|месяцев|мес\.?)`

var slaPatterns = []*regexp2.Regexp{
	compile(`(?:в течени[ие]|не более|до|порядка|около|максимум|минимум|приблизительно|за|не менее|от|срок)\s+(\d+[\.,]?\d*)\s*(?:-|до)?\s*(\d+[\.,]?\d*\s*)?`+slaUnits, regexp2.IgnoreCase),
	compile(`\bSLA:?\s*(\d+[\.,]?\d*\s*(?:-|до)?\s*\d*[\.,]?\d*\s*(?:час|дн|раб|календ|недел|мес)[а-я\. ]*)`, regexp2.IgnoreCase),
	compile(`(?<!\d\s)(?<!\d)(?<!\d-)(\d+[\.,]?\d*)\s*(?:-|до)?\s*(\d+[\.,]?\d*\s*)?`+slaUnits+`(?!\s*\w)`, regexp2.IgnoreCase),
	compile(`\b(?:до\s+конца\s+(?:недели|месяца|дня))\b`, regexp2.IgnoreCase),
}

const datePattern = `\d{1,2}[\./-]\d{1,2}[\./-]\d{2,4}`

var (
	durationPatterns = []*regexp2.Regexp{
		compile(`\b(?:до|по)\s+(`+datePattern+`)\b`, regexp2.None),
		compile(`\b(?:с|от)\s+(`+datePattern+`)\s+(?:до|по)\s+(`+datePattern+`)\b`, regexp2.None),
		compile(`\b(\d+)\s*(?:h|час[а-я]*|ч)\b`, regexp2.None),
		compile(`\b(\d+)\s*(?:d|дн[ейя]|day[s]?)(?!\s*раб)`, regexp2.None),
		compile(`\b(\d+)\s*(?:недел[ьи]|week[s]?|нед\.?)\b`, regexp2.None),
		compile(`\b(\d+)\s*(?:месяц[а-яев]*|month[s]?|мес\.?)\b`, regexp2.None),
		compile(`\b(\d)\s*(?:квартал|quarter)\b`, regexp2.None),
		compile(`\bQ([1-4])\b`, regexp2.None),
		compile(`\b(?:бессрочно|постоянно|навсегда|permanent|unlimited)\b`, regexp2.IgnoreCase),
		compile(`\b(?:в\s+течени[ие]\s+жизни\s+аккаунта)\b`, regexp2.IgnoreCase),
	}
	bareDate        = compile(`^`+datePattern+`$`, regexp2.None)
	permanentWords  = compile(`бессрочно|постоянно|навсегда|permanent|unlimited`, regexp2.IgnoreCase)
	accountLifetime = compile(`жизни\s+аккаунта`, regexp2.IgnoreCase)
)

var wagerPatterns = []*regexp2.Regexp{
	compile(`(?:wager|вейджер|отыгрыш|отыграть|wagering|прокрутить)\s*[:=\s]*([xXхХ]?\s?\d+)`, regexp2.IgnoreCase),
	compile(`\b([xXхХ]\s?\d+)\b`, regexp2.IgnoreCase),
	compile(`\b(real\s*\+\s*bonus)\b`, regexp2.IgnoreCase),
	compile(`\b(без\s*вейджер|без\s*отыгрыш|no\s*wager|0x|x0)\b`, regexp2.IgnoreCase),
}

const payoutPrefix = `\b(?:max.*win|payout|макс.*выигрыш|выплат[аы]|лимит выигрыша|максимальный вывод)\s*[:=]?\s*`

var payoutPatterns = []*regexp2.Regexp{
	compile(payoutPrefix+`([xXхХ]\s?\d+)\b`, regexp2.IgnoreCase),
	compile(payoutPrefix+`(\d+[\.,]?\d*\s*(?:AZN|RUB|EUR|TRY|USD|INR|KZT|UZS|BDT|PKR|LKR|CZK|PLN|HUF|UAH|GEL|[€₽₺$]))\b`, regexp2.IgnoreCase),
}

var (
	thousandsSeparator = compile(`(\d)[,.](\d{3})`, regexp2.None)
	leadingDigits      = compile(`^(\d+)`, regexp2.None)
	trailingCurrency   = compile(`([A-Z]{3})$`, regexp2.None)
)

var (
	explicitGoal = compile(`(?:^|\n)\s*(?:цель|goal|задача|expected\s*result)[:\s]+([^\n]+)`, regexp2.IgnoreCase)
	actionGoals  = []*regexp2.Regexp{
		compile(`\b(?:рост|увелич[а-я]+|привлеч[а-я]+|повышен[а-я]+)\s+([\w\s.,-]+?)(?:[\.,;]|$|\n)`, regexp2.IgnoreCase),
		compile(`\b(?:снижен[а-я]+|уменьшен[а-я]+|сокращен[а-я]+)\s+([\w\s.,-]+?)(?:[\.,;]|$|\n)`, regexp2.IgnoreCase),
	}
)
