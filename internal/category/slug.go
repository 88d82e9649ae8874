package category

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// defaultSlug は名前から有効な文字が残らなかった場合のスラッグ。
const defaultSlug = "categoria"

// Slugify はカテゴリ名からURL用のスラッグを生成する。
// NFD正規化で分解したアクセント記号を取り除いて小文字化し、
// [a-z0-9]以外の連続をハイフン1つに置き換える。前後のハイフンは除く。
func Slugify(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, name)
	if err != nil {
		stripped = name
	}
	stripped = strings.ToLower(stripped)

	var b strings.Builder
	b.Grow(len(stripped))
	pendingDash := false
	for _, r := range stripped {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}

	if b.Len() == 0 {
		return defaultSlug
	}
	return b.String()
}
