package scraper

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"mygovpulse/internal/domain"
	"mygovpulse/internal/textnorm"
)

const (
	articleSelector   = "article.comment_row, article.comment"
	bodySelector      = "div.comment_body"
	authorSelector    = "span.username, .username, .comment_user, .user-name"
	timestampSelector = "time, span.timeago, .submitted, .comment_date, .comment-time"
)

// ExtractComments parses one rendered page fragment into raw candidate
// records. The primary strategy walks comment article containers; when
// none exist it falls back to bare comment-body elements with a
// best-effort author attribution.
func ExtractComments(fragmentHTML string) []domain.RawComment {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragmentHTML))
	if err != nil {
		return nil
	}

	var rows []domain.RawComment

	doc.Find(articleSelector).Each(func(_ int, article *goquery.Selection) {
		body := article.Find(bodySelector).First()
		if body.Length() == 0 {
			return
		}

		text := textnorm.RepairMojibake(body.Text())
		if textnorm.IsJunkOrBoilerplate(text) {
			return
		}

		author := textnorm.RepairMojibake(article.Find(authorSelector).First().Text())
		if textnorm.IsPlaceholderAuthor(author) {
			author = "Unknown"
		}

		timestamp := textnorm.RepairMojibake(article.Find(timestampSelector).First().Text())

		rows = append(rows, domain.RawComment{Author: author, Timestamp: timestamp, Text: text})
	})

	if len(rows) > 0 {
		return rows
	}

	doc.Find(bodySelector).Each(func(_ int, body *goquery.Selection) {
		text := textnorm.RepairMojibake(body.Text())
		if textnorm.IsJunkOrBoilerplate(text) {
			return
		}

		author := textnorm.RepairMojibake(precedingUsername(body))
		if textnorm.IsPlaceholderAuthor(author) {
			author = "Unknown"
		}

		rows = append(rows, domain.RawComment{Author: author, Timestamp: "", Text: text})
	})

	return rows
}

// precedingUsername finds the nearest username element before the body
// in document order: prior siblings first, then prior siblings of each
// ancestor, closest level first.
func precedingUsername(body *goquery.Selection) string {
	for cur := body; cur.Length() > 0; cur = cur.Parent() {
		var found string
		cur.PrevAll().EachWithBreak(func(_ int, sibling *goquery.Selection) bool {
			if sibling.Is("span.username") {
				found = sibling.Text()
				return false
			}
			if nested := sibling.Find("span.username").Last(); nested.Length() > 0 {
				found = nested.Text()
				return false
			}
			return true
		})
		if found != "" {
			return found
		}
	}
	return ""
}
