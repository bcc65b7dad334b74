package query

import (
	"strings"
	"time"

	"github.com/dlclark/regexp2"
)

// Type is a query intent.
type Type string

const (
	TypeContact Type = "contact"
	TypeSLA     Type = "sla"
	TypeProcess Type = "process"
	TypeTool    Type = "tool"
	TypeLink    Type = "link"
	TypeGeneral Type = "general"
)

// ParamLinkTarget is the Params key holding the resolved link target.
const ParamLinkTarget = "link_target"

// Classification is the result of classifying a query.
type Classification struct {
	Type   Type              `json:"type"`
	Params map[string]string `json:"params,omitempty"`
}

// LinkTarget returns the resolved link target, if any.
func (c Classification) LinkTarget() string {
	return c.Params[ParamLinkTarget]
}

var (
	linkTargetPattern = mustCompile(`(?:ссылк[ау]|url|адрес)\s+(?:на\s+)?(?:форму\s+)?(?:доск[уи]\s+)?([\w\s\d\-\.\/]+(?:\s+[\w\d\-\.\/]+)*)`, regexp2.IgnoreCase)
	handlePattern     = mustCompile(`[\w\.-]+@[\w\.-]+|@[\w\d\._]+`, regexp2.None)
	fullNamePattern   = mustCompile(`[А-ЯЁ][а-яё]+ [А-ЯЁ][а-яё]+`, regexp2.None)
)

func mustCompile(expr string, opts regexp2.RegexOptions) *regexp2.Regexp {
	re := regexp2.MustCompile(expr, opts)
	re.MatchTimeout = 100 * time.Millisecond
	return re
}

// Classifier assigns query types. It is safe for concurrent use.
type Classifier struct {
	kw Keywords
}

// NewClassifier returns a classifier over kw.
func NewClassifier(kw Keywords) *Classifier {
	return &Classifier{kw: kw}
}

// Classify returns the intent of q. Keyword checks run on the lowercased
// query; the full-name check runs on q as given, since it relies on
// capitalization.
func (c *Classifier) Classify(q string) Classification {
	lower := strings.ToLower(strings.TrimSpace(q))
	if lower == "" {
		return Classification{Type: TypeGeneral}
	}

	if containsAny(lower, c.kw.Link) {
		if target := c.linkTarget(lower); target != "" {
			return Classification{Type: TypeLink, Params: map[string]string{ParamLinkTarget: target}}
		}
	}
	if containsAny(lower, c.kw.Contact) {
		return Classification{Type: TypeContact}
	}
	if (matches(handlePattern, lower) || matches(fullNamePattern, q)) && containsAny(lower, c.kw.OwnerHints) {
		return Classification{Type: TypeContact}
	}
	switch {
	case containsAny(lower, c.kw.SLA):
		return Classification{Type: TypeSLA}
	case containsAny(lower, c.kw.Tool):
		return Classification{Type: TypeTool}
	case containsAny(lower, c.kw.Process):
		return Classification{Type: TypeProcess}
	}
	return Classification{Type: TypeGeneral}
}

func (c *Classifier) linkTarget(lower string) string {
	if m, err := linkTargetPattern.FindStringMatch(lower); err == nil && m != nil {
		if target := strings.ToLower(strings.TrimSpace(m.GroupByNumber(1).String())); target != "" {
			return target
		}
	}
	for _, kl := range c.kw.KeyLinks {
		if containsAny(lower, kl.Keywords) {
			return kl.Target()
		}
	}
	for _, anchor := range c.kw.LinkAnchors {
		if strings.Contains(lower, anchor) {
			return anchor
		}
	}
	return ""
}

func matches(re *regexp2.Regexp, s string) bool {
	ok, err := re.MatchString(s)
	return err == nil && ok
}
