// Package i18n renders the notice keys sent in S_NOTICE into the player's
// language.
package i18n

import (
	"sync"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"

	"github.com/lootgo/server/internal/protocol"
)

var supported = []language.Tag{language.English, language.SimplifiedChinese}

var (
	once    sync.Once
	cat     *catalog.Builder
	matcher language.Matcher
)

var texts = map[language.Tag]map[string]string{
	language.English: {
		protocol.NoticeInvFull:    "Your inventory is full",
		protocol.NoticeAutoOn:     "Auto pickup enabled",
		protocol.NoticeAutoOff:    "Auto pickup disabled",
		protocol.NoticeFilterAll:  "Showing all items",
		protocol.NoticeFilterRare: "Showing rare items only",
	},
	language.SimplifiedChinese: {
		protocol.NoticeInvFull:    "背包已满",
		protocol.NoticeAutoOn:     "自动拾取已开启",
		protocol.NoticeAutoOff:    "自动拾取已关闭",
		protocol.NoticeFilterAll:  "显示全部物品",
		protocol.NoticeFilterRare: "仅显示稀有物品",
	},
}

func build() {
	cat = catalog.NewBuilder(catalog.Fallback(language.English))
	for tag, m := range texts {
		for key, text := range m {
			// Keys contain no format verbs, so SetString cannot fail here.
			_ = cat.SetString(tag, key, text)
		}
	}
	matcher = language.NewMatcher(supported)
}

// Match picks the supported language closest to a BCP 47 string such as
// "zh-CN" or "en-US". Unknown input yields fallback.
func Match(lang, fallback string) language.Tag {
	once.Do(build)
	if lang == "" {
		lang = fallback
	}
	tag, _ := language.MatchStrings(matcher, lang, fallback)
	base, _ := tag.Base()
	for _, s := range supported {
		if b, _ := s.Base(); b == base {
			return s
		}
	}
	return language.English
}

// Printer renders notice keys in one language.
type Printer struct {
	p *message.Printer
}

func NewPrinter(tag language.Tag) *Printer {
	once.Do(build)
	return &Printer{p: message.NewPrinter(tag, message.Catalog(cat))}
}

// Text returns the localized text for key, or key itself when unknown.
func (p *Printer) Text(key string) string {
	return p.p.Sprintf(key)
}

// Text is a one-shot lookup for a language string.
func Text(lang, fallback, key string) string {
	return NewPrinter(Match(lang, fallback)).Text(key)
}
